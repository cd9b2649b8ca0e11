// Package odsio handles the external representations of ODS data: the
// persisted JSON instance format, remote fetches, and delimited tabular
// import/export. It deals only in plain maps and strings; normalization
// into records is the ods package's job.
package odsio

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// httpClient fetches remote ODS files. Package-level so tests can swap in
// a stub transport.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// ReadODS loads ODS entries from a local JSON file or an http(s) URL.
// The payload may be either the persisted container {dataKey: [...]} or a
// bare array of entries.
func ReadODS(input, dataKey string) ([]map[string]any, error) {
	var raw []byte
	var err error
	if strings.HasPrefix(input, "http") {
		raw, err = fetch(input)
	} else {
		path := input
		if !strings.HasSuffix(path, ".json") {
			path += ".json"
		}
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read ods %s: %w", input, err)
	}
	return decodeEntries(raw, dataKey)
}

// WriteODS writes entries to path in the persisted instance format:
// a container keyed by dataKey holding the ordered entry array.
func WriteODS(path, dataKey string, entries []map[string]any) error {
	if entries == nil {
		entries = []map[string]any{}
	}
	payload := map[string]any{dataKey: entries}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("write ods %s: %w", path, err)
	}
	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write ods %s: %w", path, err)
	}
	return nil
}

// ReadJSONMap reads an arbitrary JSON object file (defaults, header maps).
func ReadJSONMap(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json %s: %w", path, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse json %s: %w", path, err)
	}
	return out, nil
}

func fetch(url string) ([]byte, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// decodeEntries accepts either the persisted container or a bare array.
func decodeEntries(raw []byte, dataKey string) ([]map[string]any, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse ods payload: %w", err)
	}
	switch val := payload.(type) {
	case map[string]any:
		inner, ok := val[dataKey]
		if !ok {
			return nil, fmt.Errorf("ods payload missing data key %q", dataKey)
		}
		return entryList(inner)
	case []any:
		return entryList(val)
	default:
		return nil, fmt.Errorf("ods payload is neither an object nor an array")
	}
}

func entryList(v any) ([]map[string]any, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("ods data is not an array")
	}
	entries := make([]map[string]any, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ods entry %d is not an object", i)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

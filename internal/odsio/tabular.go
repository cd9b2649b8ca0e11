package odsio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SepAuto asks the tabular reader to detect the separator from the header
// line: comma, then tab, then whitespace.
const SepAuto = "auto"

// TableOptions configures delimited-text import.
type TableOptions struct {
	// Sep is the column separator, or SepAuto to detect.
	Sep string

	// ReplaceChar rewrites characters in header names before mapping:
	// one element removes that string, two elements replace the first
	// with the second.
	ReplaceChar []string

	// HeaderMap renames datafile column names to ODS field names after
	// ReplaceChar is applied.
	HeaderMap map[string]string
}

// ReadDataFile reads a delimited text file whose first line is a header
// row, returning one field->cell map per data row.
func ReadDataFile(path string, opts TableOptions) ([]map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file %s: %w", path, err)
	}
	lines := nonEmptyLines(string(raw))
	if len(lines) == 0 {
		return nil, fmt.Errorf("data file %s is empty", path)
	}

	sep := opts.Sep
	if sep == "" || sep == SepAuto {
		sep = detectSep(lines[0])
	}

	header, err := splitLine(lines[0], sep)
	if err != nil {
		return nil, fmt.Errorf("data file %s: %w", path, err)
	}
	for i, col := range header {
		header[i] = mapHeader(strings.TrimSpace(col), opts)
	}

	rows := make([]map[string]string, 0, len(lines)-1)
	for n, line := range lines[1:] {
		cells, err := splitLine(line, sep)
		if err != nil {
			return nil, fmt.Errorf("data file %s line %d: %w", path, n+2, err)
		}
		if len(cells) != len(header) {
			return nil, fmt.Errorf("data file %s line %d: %d cells for %d columns", path, n+2, len(cells), len(header))
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteDataFile writes rows as delimited text with the caller-specified
// column order. A column missing from any row is an error at export time,
// not a silently blanked cell.
func WriteDataFile(path string, rows []map[string]string, cols []string, sep string) error {
	if len(cols) == 0 {
		return fmt.Errorf("write data file %s: no columns specified", path)
	}
	var b strings.Builder
	b.WriteString(strings.Join(cols, sep))
	b.WriteByte('\n')
	for i, row := range rows {
		cells := make([]string, 0, len(cols))
		for _, col := range cols {
			cell, ok := row[col]
			if !ok {
				return fmt.Errorf("write data file %s: row %d missing column %q", path, i, col)
			}
			cells = append(cells, cell)
		}
		b.WriteString(strings.Join(cells, sep))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write data file %s: %w", path, err)
	}
	return nil
}

// LoadHeaderMap reads a column-name mapping from a JSON or YAML file.
func LoadHeaderMap(path string) (map[string]string, error) {
	if strings.HasSuffix(path, ".json") {
		raw, err := ReadJSONMap(path)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(raw))
		for k, v := range raw {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("header map %s: value for %q is not a string", path, k)
			}
			out[k] = s
		}
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read header map %s: %w", path, err)
	}
	var out map[string]string
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse header map %s: %w", path, err)
	}
	return out, nil
}

// mapHeader applies ReplaceChar then HeaderMap to one column name.
func mapHeader(col string, opts TableOptions) string {
	switch len(opts.ReplaceChar) {
	case 1:
		col = strings.ReplaceAll(col, opts.ReplaceChar[0], "")
	case 2:
		col = strings.ReplaceAll(col, opts.ReplaceChar[0], opts.ReplaceChar[1])
	}
	if mapped, ok := opts.HeaderMap[col]; ok {
		return mapped
	}
	return col
}

func detectSep(header string) string {
	switch {
	case strings.Contains(header, ","):
		return ","
	case strings.Contains(header, "\t"):
		return "\t"
	default:
		return " "
	}
}

// splitLine splits one line on sep; a single space separator means
// whitespace splitting, everything else goes through the csv reader so
// quoted cells survive.
func splitLine(line, sep string) ([]string, error) {
	if sep == " " {
		return strings.Fields(line), nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = rune(sep[0])
	r.TrimLeadingSpace = true
	return r.Read()
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

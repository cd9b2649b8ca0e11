package engine

import (
	"fmt"
	"reflect"
)

// Input is a sealed union of the record sources Add accepts.
// The concrete variants are RecordInput, ListInput, FileInput and
// BagInput.
type Input interface {
	odsInput()
}

// RecordInput is a single loose record.
type RecordInput map[string]any

func (RecordInput) odsInput() {}

// ListInput is a batch of loose records.
type ListInput []map[string]any

func (ListInput) odsInput() {}

// FileInput names a local file or http(s) URL to import records from.
// Paths ending in .json (and all URLs) are read as ODS JSON documents;
// anything else is read as a delimited data file.
type FileInput struct {
	// Path is the file path or URL.
	Path string

	// Sep is the column separator for data files. Empty or
	// odsio.SepAuto autodetects.
	Sep string

	// ReplaceChar optionally rewrites a character in header names:
	// one element removes it, two replace the first with the second.
	ReplaceChar []string

	// HeaderMap renames header columns to ODS field names.
	HeaderMap map[string]string

	// HeaderMapFile names a JSON or YAML file to load HeaderMap from.
	// Entries in HeaderMap take precedence.
	HeaderMapFile string
}

func (FileInput) odsInput() {}

// BagInput is a record extracted from an arbitrary value bag, such as a
// struct whose fields mirror ODS field names.
type BagInput map[string]any

func (BagInput) odsInput() {}

// NewBagInput extracts a BagInput from v. Maps with string keys pass
// through; structs (or pointers to structs) contribute their exported
// fields, using the `ods` tag as the field name when present. Fields
// tagged `ods:"-"` are skipped.
func NewBagInput(v any) (BagInput, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot extract records from nil")
	}
	if m, ok := v.(map[string]any); ok {
		return BagInput(m), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot extract records from nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot extract records from %T", v)
	}

	bag := make(BagInput)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("ods"); ok {
			if tag == "-" {
				continue
			}
			name = tag
		}
		bag[name] = rv.Field(i).Interface()
	}
	return bag, nil
}

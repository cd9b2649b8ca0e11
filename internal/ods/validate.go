package ods

import (
	"fmt"
	"strconv"

	"github.com/roach88/odskit/internal/standard"
	"github.com/roach88/odskit/internal/timeutil"
)

// Validate checks a single record against the standard:
//
//  1. every key present is a schema field
//  2. no value is the absent marker
//  3. every schema field is present
//  4. values are consistent with their field type
//  5. time fields hold (or parse to) genuine instants
//
// The result is a validity flag plus human-readable failure reasons; a
// schema violation never blocks ingestion, it is tracked per record.
func Validate(std *standard.Standard, rec Record) (bool, []string) {
	var msgs []string
	for key, val := range rec {
		if !std.IsField(key) {
			msgs = append(msgs, fmt.Sprintf("%s is not an ODS field", key))
			continue
		}
		if isNull(val) {
			msgs = append(msgs, fmt.Sprintf("value for %s is unset", key))
		}
	}
	for _, field := range std.FieldOrder {
		val, ok := rec[field]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("missing ODS field %s", field))
			continue
		}
		if isNull(val) {
			continue // already reported above
		}
		if !typeConsistent(val, std.Fields[field]) {
			msgs = append(msgs, fmt.Sprintf("%s is wrong type for %s", Stringify(val), field))
		}
	}
	for _, field := range std.TimeFields {
		val, ok := rec[field]
		if !ok || isNull(val) {
			continue // missing/unset already reported
		}
		if !timeConsistent(val) {
			msgs = append(msgs, fmt.Sprintf("%s is not a valid time for %s", Stringify(val), field))
		}
	}
	return len(msgs) == 0, msgs
}

func isNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// typeConsistent reports whether a non-null value can serve as the given
// field type. The check is deliberately lenient, matching what a cast
// would accept: numeric strings pass numeric fields, ints pass float
// fields, and string fields accept any scalar rendering.
func typeConsistent(v Value, ft standard.FieldType) bool {
	switch ft {
	case standard.FieldStr, standard.FieldBool:
		// Any scalar renders as a string; any value is truthy or falsy.
		return true
	case standard.FieldFloat:
		switch val := v.(type) {
		case Float, Int, Bool:
			return true
		case String:
			_, err := strconv.ParseFloat(string(val), 64)
			return err == nil
		default:
			return false
		}
	case standard.FieldInt:
		switch val := v.(type) {
		case Int, Float, Bool:
			return true
		case String:
			_, err := strconv.ParseInt(string(val), 10, 64)
			return err == nil
		default:
			return false
		}
	default:
		return false
	}
}

func timeConsistent(v Value) bool {
	switch val := v.(type) {
	case Time:
		return true
	case String:
		_, err := timeutil.Interpret(string(val))
		return err == nil
	default:
		return false
	}
}

package ods

import (
	"time"

	"github.com/roach88/odskit/internal/standard"
	"github.com/roach88/odskit/internal/timeutil"
)

// Record maps field names to values. A record built by NewRecord always
// carries every schema field as a key, with Null marking absent values.
// Records imported loosely (CoerceEntry) may additionally carry unknown
// keys; those are surfaced through the instance's "invalid" input set at
// scan time.
type Record map[string]Value

// NewRecord normalizes heterogeneous input into a complete record: for
// every schema field the value comes from entry, else from defaults, else
// Null. Time fields are coerced to instants; a value that fails to parse
// becomes Null, leaving the record invalid rather than failing the batch.
//
// Unknown keys in entry are dropped silently.
func NewRecord(std *standard.Standard, entry map[string]any, defaults map[string]Value) Record {
	rec := make(Record, len(std.FieldOrder))
	for _, field := range std.FieldOrder {
		var val Value
		if raw, ok := entry[field]; ok {
			val = FromAny(raw)
		} else if dv, ok := defaults[field]; ok {
			val = dv
		} else {
			val = Null{}
		}
		if std.IsTimeField(field) {
			val = coerceTime(val)
		}
		rec[field] = val
	}
	return rec
}

// CoerceEntry converts an imported entry into a record without dropping
// unknown keys and without applying defaults: time fields are normalized,
// missing schema fields are filled with Null, everything else is kept as
// supplied. This is the loose import path for whole ODS files, where
// misnamed fields should stay observable instead of being rejected.
func CoerceEntry(std *standard.Standard, entry map[string]any) Record {
	rec := make(Record, len(entry))
	for key, raw := range entry {
		val := FromAny(raw)
		if std.IsTimeField(key) {
			val = coerceTime(val)
		}
		rec[key] = val
	}
	for _, field := range std.FieldOrder {
		if _, ok := rec[field]; !ok {
			rec[field] = Null{}
		}
	}
	return rec
}

// coerceTime normalizes a value destined for a time field. Already-parsed
// Time values and Null pass through; anything else is interpreted, with a
// parse failure yielding Null.
func coerceTime(v Value) Value {
	switch val := v.(type) {
	case Time, Null:
		return v
	case String:
		t, err := timeutil.Interpret(string(val))
		if err != nil {
			return Null{}
		}
		return NewTime(t)
	default:
		return Null{}
	}
}

// Clone returns an independent copy of the record. Instances never share
// records by reference; merges copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Time returns the instant held by key, if key holds a genuine Time value.
func (r Record) Time(key string) (time.Time, bool) {
	t, ok := r[key].(Time)
	if !ok {
		return time.Time{}, false
	}
	return t.Time, true
}

// External converts the record to its serialized form (field -> plain Go
// value, times as ISO strings) for JSON export.
func (r Record) External() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = External(v)
	}
	return out
}

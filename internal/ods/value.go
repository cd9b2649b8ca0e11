package ods

import (
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/odskit/internal/timeutil"
)

// Value is a sealed interface over the types an ODS field can hold.
// Only Null, String, Int, Float, Bool, and Time implement it.
//
// Every Value renders to a deterministic string; composite sort keys are
// built from those strings (see SortEntries), so String() must be stable
// and, for Time, fixed-width so lexicographic order matches chronological
// order.
type Value interface {
	odsValue() // sealed
	String() string
}

// Null is the explicit absent-value marker. Fields are never omitted from
// a normalized record; a missing value is stored as Null so downstream
// code can rely on total key coverage.
type Null struct{}

func (Null) odsValue() {}

// String renders the absent marker.
func (Null) String() string { return "<nil>" }

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// String is a string field value.
type String string

func (String) odsValue() {}

func (s String) String() string { return string(s) }

// Int is an integer field value. Always int64.
type Int int64

func (Int) odsValue() {}

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Float is a floating-point field value.
type Float float64

func (Float) odsValue() {}

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// Bool is a boolean field value.
type Bool bool

func (Bool) odsValue() {}

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Time is a normalized absolute instant. Time-valued fields hold a Time
// (never a raw string) once inside an instance; normalization happens
// exactly once, at insertion.
type Time struct {
	time.Time
}

// NewTime wraps t as a Time value, pinned to UTC.
func NewTime(t time.Time) Time { return Time{t.UTC()} }

func (Time) odsValue() {}

// String renders the instant in fixed-width ISO-8601 with seconds.
func (t Time) String() string { return timeutil.ISO(t.Time) }

// MarshalJSON serializes the instant in the external ISO format.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// FromAny converts an arbitrary input value (typically decoded JSON or a
// caller-supplied Go value) into a Value. Unrecognized types degrade to
// their fmt rendering rather than failing; type problems are surfaced by
// validation, not at conversion.
func FromAny(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Value:
		return val
	case string:
		return String(val)
	case bool:
		return Bool(val)
	case int:
		return Int(val)
	case int32:
		return Int(val)
	case int64:
		return Int(val)
	case float32:
		return Float(val)
	case float64:
		return Float(val)
	case time.Time:
		return NewTime(val)
	default:
		return String(fmt.Sprint(val))
	}
}

// Stringify renders v for sort-key and comparison purposes. A nil interface
// (field not present at all) renders like Null.
func Stringify(v Value) string {
	if v == nil {
		return Null{}.String()
	}
	return v.String()
}

// ExternalString renders v for delimited-text export: Null becomes an empty
// cell, Time the ISO form, everything else its String rendering.
func ExternalString(v Value) string {
	switch v.(type) {
	case nil, Null:
		return ""
	}
	return v.String()
}

// External converts v to its serialized-form Go value for JSON export:
// Time becomes an ISO string, Null becomes nil, scalars pass through.
func External(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Time:
		return val.String()
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	default:
		return val.String()
	}
}

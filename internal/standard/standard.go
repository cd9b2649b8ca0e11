// Package standard defines the ODS field schema: which fields exist, their
// types, which are time-valued, and the canonical sort order.
//
// Versions are declared in versions.cue (embedded) and loaded through the
// CUE SDK, so a malformed version definition fails at load time with a CUE
// schema error rather than surfacing as odd record behavior later.
package standard

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed versions.cue
var versionsCUE []byte

// Latest selects the most recent available standard version.
const Latest = "latest"

// FieldType names the value type a schema field carries.
type FieldType string

const (
	FieldStr   FieldType = "str"
	FieldFloat FieldType = "float"
	FieldInt   FieldType = "int"
	FieldBool  FieldType = "bool"
)

// Standard is an immutable description of one ODS schema version.
// It is shared by reference between instances and must not be mutated
// after Load returns.
type Standard struct {
	Version       string
	Fields        map[string]FieldType
	FieldOrder    []string // declaration order, used for full-table export
	TimeFields    []string
	SortOrderTime []string
	DataKey       string // JSON container key holding the record array

	// Well-known field designations (the "transfer keys").
	Observatory string
	Lat         string
	Lon         string
	Ele         string
	Source      string
	RA          string
	Dec         string
	Start       string
	Stop        string
}

// versionSpec mirrors the #Version CUE schema for decoding.
type versionSpec struct {
	DataKey       string            `json:"data_key"`
	TimeFields    []string          `json:"time_fields"`
	Transfer      map[string]string `json:"transfer"`
	Fields        []fieldSpec       `json:"fields"`
	SortOrderTime []string          `json:"sort_order_time"`
}

type fieldSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Load resolves a version designator ("A", "B", or "latest") into a
// Standard. Unknown versions are an error.
func Load(version string) (*Standard, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(versionsCUE)
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile standard definitions: %w", err)
	}
	if err := root.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate standard definitions: %w", err)
	}

	if version == Latest || version == "" {
		latestVal := root.LookupPath(cue.ParsePath("latest"))
		resolved, err := latestVal.String()
		if err != nil {
			return nil, fmt.Errorf("resolve latest standard version: %w", err)
		}
		version = resolved
	}

	verVal := root.LookupPath(cue.ParsePath(fmt.Sprintf("versions.%s", version)))
	if !verVal.Exists() {
		return nil, fmt.Errorf("%s is not an available standard", version)
	}

	var spec versionSpec
	if err := verVal.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode standard version %s: %w", version, err)
	}
	return fromSpec(version, spec)
}

func fromSpec(version string, spec versionSpec) (*Standard, error) {
	std := &Standard{
		Version:       version,
		Fields:        make(map[string]FieldType, len(spec.Fields)),
		FieldOrder:    make([]string, 0, len(spec.Fields)),
		TimeFields:    spec.TimeFields,
		SortOrderTime: spec.SortOrderTime,
		DataKey:       spec.DataKey,
	}
	for _, f := range spec.Fields {
		if _, dup := std.Fields[f.Name]; dup {
			return nil, fmt.Errorf("standard version %s: duplicate field %s", version, f.Name)
		}
		std.Fields[f.Name] = FieldType(f.Type)
		std.FieldOrder = append(std.FieldOrder, f.Name)
	}
	assign := map[string]*string{
		"observatory": &std.Observatory,
		"lat":         &std.Lat,
		"lon":         &std.Lon,
		"ele":         &std.Ele,
		"source":      &std.Source,
		"ra":          &std.RA,
		"dec":         &std.Dec,
		"start":       &std.Start,
		"stop":        &std.Stop,
	}
	for key, dst := range assign {
		field, ok := spec.Transfer[key]
		if !ok {
			return nil, fmt.Errorf("standard version %s: missing transfer key %s", version, key)
		}
		if _, known := std.Fields[field]; !known {
			return nil, fmt.Errorf("standard version %s: transfer key %s names unknown field %s", version, key, field)
		}
		*dst = field
	}
	for _, tf := range std.TimeFields {
		if _, known := std.Fields[tf]; !known {
			return nil, fmt.Errorf("standard version %s: time field %s is not a schema field", version, tf)
		}
	}
	return std, nil
}

// IsField reports whether key is a schema field.
func (s *Standard) IsField(key string) bool {
	_, ok := s.Fields[key]
	return ok
}

// IsTimeField reports whether key is one of the declared time fields.
func (s *Standard) IsTimeField(key string) bool {
	for _, tf := range s.TimeFields {
		if tf == key {
			return true
		}
	}
	return false
}

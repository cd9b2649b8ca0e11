package ods

import (
	"time"

	"github.com/roach88/odskit/internal/standard"
	"github.com/roach88/odskit/internal/timeutil"
)

// DefaultWorkingInstance names the instance engine operations target when
// none is specified.
const DefaultWorkingInstance = "primary"

// InvalidKeySet is the input-set key collecting non-schema field names
// observed during a metadata scan.
const InvalidKeySet = "invalid"

// Instance is one named, independently owned collection of ODS records
// plus derived metadata. The record sequence keeps insertion order until
// an explicit sort or dedup reorders it; cull and filter operations
// replace it wholesale and then rescan.
//
// Derived metadata is recomputed by GenInfo with a full scan whenever
// records change, never incrementally patched, to avoid drift.
type Instance struct {
	Name     string
	Standard *standard.Standard

	// Input records where the entries last came from ("init",
	// "dictionary", "list", or a file/URL).
	Input string

	Entries         []Record
	NumberOfRecords int

	// ValidRecords and InvalidRecords partition entry indices as of the
	// last GenInfo; InvalidRecords maps index to failure reasons.
	ValidRecords   []int
	InvalidRecords map[int][]string

	// InputSets holds the distinct values seen per schema field, keyed by
	// their string rendering, plus the InvalidKeySet of unknown keys.
	InputSets map[string]map[string]Value

	// Earliest and Latest track the designated start/stop fields only,
	// over values that are genuine instants.
	Earliest time.Time
	Latest   time.Time
}

// NewInstance creates an empty instance bound to a standard.
func NewInstance(name string, std *standard.Standard) *Instance {
	return &Instance{
		Name:           name,
		Standard:       std,
		Input:          "init",
		InvalidRecords: map[int][]string{},
		InputSets:      map[string]map[string]Value{InvalidKeySet: {}},
		Earliest:       timeutil.RefLatest,
		Latest:         timeutil.RefEarliest,
	}
}

// NewRecord normalizes entry against the standard (filling from defaults)
// and appends it. Metadata is NOT recomputed; batching callers invoke
// GenInfo once at the end.
func (inst *Instance) NewRecord(entry map[string]any, defaults map[string]Value) {
	inst.Entries = append(inst.Entries, NewRecord(inst.Standard, entry, defaults))
}

// Append adds already-built records to the end of the sequence without
// recomputing metadata.
func (inst *Instance) Append(records ...Record) {
	inst.Entries = append(inst.Entries, records...)
}

// Replace swaps in a new record sequence wholesale and rescans. Cull and
// filter operations rebuild through this; entries are never field-patched
// in place by them.
func (inst *Instance) Replace(records []Record) {
	inst.Entries = records
	inst.GenInfo()
}

// UpdateEntry applies a patch to the record at entryNum. Only keys that
// are schema fields are applied, normalized through the same time-field
// coercion as insertion. Returns the number of fields actually changed;
// an out-of-range index is a no-op returning 0, so callers must check the
// return value to detect a silent miss.
func (inst *Instance) UpdateEntry(entryNum int, updates map[string]any) int {
	if entryNum < 0 || entryNum >= len(inst.Entries) {
		return 0
	}
	ctr := 0
	rec := inst.Entries[entryNum]
	for key, raw := range updates {
		if !inst.Standard.IsField(key) {
			continue
		}
		val := FromAny(raw)
		if inst.Standard.IsTimeField(key) {
			val = coerceTime(val)
		}
		rec[key] = val
		ctr++
	}
	if ctr > 0 {
		inst.GenInfo()
	}
	return ctr
}

// RemoveEntry deletes the record at entryNum, returning its field count.
// An out-of-range index is a no-op returning 0.
func (inst *Instance) RemoveEntry(entryNum int) int {
	if entryNum < 0 || entryNum >= len(inst.Entries) {
		return 0
	}
	n := len(inst.Entries[entryNum])
	inst.Entries = append(inst.Entries[:entryNum], inst.Entries[entryNum+1:]...)
	inst.GenInfo()
	return n
}

// Sort reorders the entries by the given terms; nil terms means the
// standard's canonical time sort order. With collapse true, duplicate
// composite keys are reduced to one survivor.
func (inst *Instance) Sort(terms []string, collapse, reverse bool) {
	if terms == nil {
		terms = inst.Standard.SortOrderTime
	}
	inst.Entries = SortEntries(inst.Entries, terms, collapse, reverse)
}

// GenInfo rebuilds all derived metadata with one full O(n·f) scan:
// validity partition, per-field distinct-value sets, unknown-key set, and
// the earliest/latest markers (reset from sentinel extremes; absent or
// non-instant values are skipped, never treated as extremes).
func (inst *Instance) GenInfo() {
	inst.Earliest = timeutil.RefLatest
	inst.Latest = timeutil.RefEarliest
	inst.NumberOfRecords = len(inst.Entries)
	inst.ValidRecords = inst.ValidRecords[:0]
	inst.InvalidRecords = map[int][]string{}
	inst.InputSets = map[string]map[string]Value{InvalidKeySet: {}}

	for ctr, rec := range inst.Entries {
		for key, val := range rec {
			if !inst.Standard.IsField(key) {
				inst.InputSets[InvalidKeySet][key] = String(key)
				continue
			}
			set, ok := inst.InputSets[key]
			if !ok {
				set = map[string]Value{}
				inst.InputSets[key] = set
			}
			set[Stringify(val)] = val

			if t, isTime := val.(Time); isTime {
				if key == inst.Standard.Start && t.Time.Before(inst.Earliest) {
					inst.Earliest = t.Time
				} else if key == inst.Standard.Stop && t.Time.After(inst.Latest) {
					inst.Latest = t.Time
				}
			}
		}
		if ok, msgs := Validate(inst.Standard, rec); ok {
			inst.ValidRecords = append(inst.ValidRecords, ctr)
		} else {
			inst.InvalidRecords[ctr] = msgs
		}
	}
}

// DefaultsLen1 extracts a defaults map from the input sets: every schema
// field whose distinct-value set holds exactly one non-null value
// contributes that value.
func (inst *Instance) DefaultsLen1() map[string]Value {
	out := map[string]Value{}
	for field, set := range inst.InputSets {
		if field == InvalidKeySet || !inst.Standard.IsField(field) {
			continue
		}
		if len(set) != 1 {
			continue
		}
		for _, v := range set {
			if !isNull(v) {
				out[field] = v
			}
		}
	}
	return out
}

// ExternalEntries converts all records to their serialized form for
// export.
func (inst *Instance) ExternalEntries() []map[string]any {
	out := make([]map[string]any, 0, len(inst.Entries))
	for _, rec := range inst.Entries {
		out = append(out, rec.External())
	}
	return out
}

// ExternalRows renders all records as string cells for delimited export.
func (inst *Instance) ExternalRows() []map[string]string {
	out := make([]map[string]string, 0, len(inst.Entries))
	for _, rec := range inst.Entries {
		row := make(map[string]string, len(rec))
		for k, v := range rec {
			row[k] = ExternalString(v)
		}
		out = append(out, row)
	}
	return out
}

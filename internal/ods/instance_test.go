package ods

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odskit/internal/timeutil"
)

// fullEntry returns input for a record that passes validation.
func fullEntry(id, start, stop string) map[string]any {
	return map[string]any{
		"site_id":                  "hcro",
		"site_lat_deg":             40.8172,
		"site_lon_deg":             -121.4698,
		"site_el_m":                1019.0,
		"src_id":                   id,
		"corr_integ_time_sec":      1.0,
		"src_ra_j2000_deg":         299.868,
		"src_dec_j2000_deg":        40.734,
		"src_start_utc":            start,
		"src_end_utc":              stop,
		"slew_sec":                 30.0,
		"trk_rate_dec_deg_per_sec": 0.0,
		"trk_rate_ra_deg_per_sec":  0.0,
		"freq_lower_hz":            1.0e9,
		"freq_upper_hz":            2.0e9,
		"version":                  "B",
		"dish_diameter_m":          6.1,
		"subarray":                 1,
	}
}

func newTestInstance(t *testing.T) *Instance {
	t.Helper()
	std, err := defaultStdOnce()
	require.NoError(t, err)
	return NewInstance("test", std)
}

func TestGenInfo_ValidityPartition(t *testing.T) {
	inst := newTestInstance(t)
	inst.NewRecord(fullEntry("good", "2024-01-01T00:00:00", "2024-01-01T01:00:00"), nil)
	inst.NewRecord(map[string]any{"src_id": "partial"}, nil)
	inst.GenInfo()

	assert.Equal(t, 2, inst.NumberOfRecords)
	assert.Equal(t, []int{0}, inst.ValidRecords)
	require.Contains(t, inst.InvalidRecords, 1)
	assert.NotEmpty(t, inst.InvalidRecords[1])
}

func TestGenInfo_EarliestLatest(t *testing.T) {
	inst := newTestInstance(t)
	inst.NewRecord(fullEntry("a", "2024-01-02T00:00:00", "2024-01-02T02:00:00"), nil)
	inst.NewRecord(fullEntry("b", "2024-01-01T00:00:00", "2024-01-01T02:00:00"), nil)
	inst.GenInfo()

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), inst.Earliest)
	assert.Equal(t, time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC), inst.Latest)
}

func TestGenInfo_EmptyInstanceKeepsSentinels(t *testing.T) {
	inst := newTestInstance(t)
	inst.GenInfo()
	assert.Equal(t, timeutil.RefLatest, inst.Earliest)
	assert.Equal(t, timeutil.RefEarliest, inst.Latest)
}

func TestGenInfo_SkipsNonInstantTimes(t *testing.T) {
	inst := newTestInstance(t)
	// Unparseable start normalizes to Null; it must not become an extreme.
	inst.NewRecord(fullEntry("bad", "garbage", "2024-01-05T00:00:00"), nil)
	inst.GenInfo()
	assert.Equal(t, timeutil.RefLatest, inst.Earliest, "absent start skipped")
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), inst.Latest)
}

func TestGenInfo_UnknownKeysObservable(t *testing.T) {
	inst := newTestInstance(t)
	std := inst.Standard
	inst.Append(CoerceEntry(std, map[string]any{"src_id": "x", "misnamed": 1}))
	inst.GenInfo()

	_, ok := inst.InputSets[InvalidKeySet]["misnamed"]
	assert.True(t, ok, "unknown keys surface in the invalid input set")
}

func TestGenInfo_InputSets(t *testing.T) {
	inst := newTestInstance(t)
	inst.NewRecord(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"), nil)
	inst.NewRecord(fullEntry("b", "2024-01-02T00:00:00", "2024-01-02T01:00:00"), nil)
	inst.GenInfo()

	assert.Len(t, inst.InputSets["src_id"], 2)
	assert.Len(t, inst.InputSets["site_id"], 1)
}

func TestUpdateEntry(t *testing.T) {
	inst := newTestInstance(t)
	inst.NewRecord(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"), nil)
	inst.GenInfo()

	n := inst.UpdateEntry(0, map[string]any{
		"src_id":        "renamed",
		"src_start_utc": "2024-02-01T00:00:00",
		"not_a_field":   "ignored",
	})
	assert.Equal(t, 2, n, "only schema fields count")
	assert.Equal(t, String("renamed"), inst.Entries[0]["src_id"])

	tm, ok := inst.Entries[0].Time("src_start_utc")
	require.True(t, ok, "patched time field goes through time coercion")
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), tm)

	// Metadata was recomputed.
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), inst.Earliest)
}

func TestUpdateEntry_OutOfRange(t *testing.T) {
	inst := newTestInstance(t)
	assert.Zero(t, inst.UpdateEntry(0, map[string]any{"src_id": "x"}))
	assert.Zero(t, inst.UpdateEntry(-1, map[string]any{"src_id": "x"}))
}

func TestRemoveEntry(t *testing.T) {
	inst := newTestInstance(t)
	inst.NewRecord(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"), nil)
	inst.NewRecord(fullEntry("b", "2024-01-02T00:00:00", "2024-01-02T01:00:00"), nil)
	inst.GenInfo()

	n := inst.RemoveEntry(0)
	assert.Equal(t, len(inst.Standard.FieldOrder), n, "returns prior field count")
	assert.Equal(t, 1, inst.NumberOfRecords)
	assert.Equal(t, String("b"), inst.Entries[0]["src_id"])

	assert.Zero(t, inst.RemoveEntry(5), "out-of-range removal is a silent no-op")
}

func TestSort_CollapseViaInstance(t *testing.T) {
	inst := newTestInstance(t)
	inst.NewRecord(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"), nil)
	inst.NewRecord(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"), nil)
	inst.GenInfo()

	inst.Sort(nil, true, false)
	inst.GenInfo()
	assert.Equal(t, 1, inst.NumberOfRecords)
}

func TestDefaultsLen1(t *testing.T) {
	inst := newTestInstance(t)
	inst.NewRecord(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"), nil)
	inst.NewRecord(fullEntry("b", "2024-01-02T00:00:00", "2024-01-02T01:00:00"), nil)
	inst.GenInfo()

	defaults := inst.DefaultsLen1()
	assert.Equal(t, String("hcro"), defaults["site_id"], "single-valued field becomes a default")
	_, ok := defaults["src_id"]
	assert.False(t, ok, "multi-valued field is no default")
	_, ok = defaults["src_start_utc"]
	assert.False(t, ok, "distinct times are no default")
}

func TestReplace_Wholesale(t *testing.T) {
	inst := newTestInstance(t)
	inst.NewRecord(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"), nil)
	inst.NewRecord(fullEntry("b", "2024-01-02T00:00:00", "2024-01-02T01:00:00"), nil)
	inst.GenInfo()

	inst.Replace(inst.Entries[:1])
	assert.Equal(t, 1, inst.NumberOfRecords)
	assert.Len(t, inst.ValidRecords, 1)
}

package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odskit/internal/check"
	"github.com/roach88/odskit/internal/interval"
	"github.com/roach88/odskit/internal/ods"
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

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Options{})
	require.NoError(t, err)
	return e
}

func TestNew_CreatesWorkingInstance(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, ods.DefaultWorkingInstance, e.WorkingInstance())

	inst, err := e.Instance("")
	require.NoError(t, err)
	assert.Equal(t, ods.DefaultWorkingInstance, inst.Name)
	assert.Zero(t, inst.NumberOfRecords)
}

func TestNewInstance_NoOverwriteKeepsExisting(t *testing.T) {
	e := newTestEngine(t)
	first := e.NewInstance("obs", InstanceOptions{})
	require.NoError(t, e.Add(RecordInput(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00")),
		AddOptions{Instance: "obs"}))

	again := e.NewInstance("obs", InstanceOptions{})
	assert.Same(t, first, again)
	assert.Equal(t, 1, again.NumberOfRecords)

	fresh := e.NewInstance("obs", InstanceOptions{Overwrite: true})
	assert.NotSame(t, first, fresh)
	assert.Zero(t, fresh.NumberOfRecords)
}

func TestSetWorkingInstance_Unknown(t *testing.T) {
	e := newTestEngine(t)
	err := e.SetWorkingInstance("nope")
	require.Error(t, err)
	assert.True(t, IsUnknownInstance(err))
	assert.Equal(t, ods.DefaultWorkingInstance, e.WorkingInstance())
}

func TestAdd_RecordAndList(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(RecordInput(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00")), AddOptions{}))

	inst, err := e.Instance("")
	require.NoError(t, err)
	assert.Equal(t, 1, inst.NumberOfRecords)
	assert.Equal(t, []int{0}, inst.ValidRecords)

	batch := ListInput{
		fullEntry("b", "2024-01-01T02:00:00", "2024-01-01T03:00:00"),
		fullEntry("b", "2024-01-01T02:00:00", "2024-01-01T03:00:00"),
	}
	require.NoError(t, e.Add(batch, AddOptions{}))
	assert.Equal(t, 2, inst.NumberOfRecords, "batch duplicates collapse")

	require.NoError(t, e.Add(batch, AddOptions{KeepDuplicates: true}))
	assert.Equal(t, 4, inst.NumberOfRecords)
}

func TestAdd_UnknownInstance(t *testing.T) {
	e := newTestEngine(t)
	err := e.Add(RecordInput(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00")),
		AddOptions{Instance: "missing"})
	assert.True(t, IsUnknownInstance(err))
}

func TestAdd_BagFromStruct(t *testing.T) {
	type observation struct {
		Source string  `ods:"src_id"`
		RA     float64 `ods:"src_ra_j2000_deg"`
		Skip   string  `ods:"-"`
	}
	bag, err := NewBagInput(observation{Source: "cygnus", RA: 299.868, Skip: "x"})
	require.NoError(t, err)
	assert.Equal(t, "cygnus", bag["src_id"])
	assert.Equal(t, 299.868, bag["src_ra_j2000_deg"])
	assert.NotContains(t, bag, "Skip")

	e := newTestEngine(t)
	require.NoError(t, e.Add(bag, AddOptions{}))
	inst, err := e.Instance("")
	require.NoError(t, err)
	require.Equal(t, 1, inst.NumberOfRecords)
	assert.Equal(t, ods.String("cygnus"), inst.Entries[0]["src_id"])
}

func TestAdd_FromJSONFile(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "obs.json")
	doc := map[string]any{
		e.Standard().DataKey: []any{
			fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"),
			fullEntry("b", "2024-01-01T02:00:00", "2024-01-01T03:00:00"),
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	require.NoError(t, e.Add(FileInput{Path: path}, AddOptions{}))
	inst, err := e.Instance("")
	require.NoError(t, err)
	assert.Equal(t, 2, inst.NumberOfRecords)
}

func TestAdd_FromDataFile(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "obs.csv")
	data := "source,src_start_utc,src_end_utc\ncygnus,2024-01-01T00:00:00,2024-01-01T01:00:00\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	in := FileInput{Path: path, HeaderMap: map[string]string{"source": "src_id"}}
	require.NoError(t, e.Add(in, AddOptions{}))

	inst, err := e.Instance("")
	require.NoError(t, err)
	require.Equal(t, 1, inst.NumberOfRecords)
	assert.Equal(t, ods.String("cygnus"), inst.Entries[0]["src_id"])
	start, ok := inst.Entries[0].Time("src_start_utc")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestMerge_ContentEquivalentEitherDirection(t *testing.T) {
	a := ListInput{
		fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"),
		fullEntry("shared", "2024-01-01T04:00:00", "2024-01-01T05:00:00"),
	}
	b := ListInput{
		fullEntry("b", "2024-01-01T02:00:00", "2024-01-01T03:00:00"),
		fullEntry("shared", "2024-01-01T04:00:00", "2024-01-01T05:00:00"),
	}

	build := func(t *testing.T, first, second ListInput) []map[string]any {
		e := newTestEngine(t)
		e.NewInstance("one", InstanceOptions{})
		e.NewInstance("two", InstanceOptions{})
		require.NoError(t, e.Add(first, AddOptions{Instance: "one", KeepDuplicates: true}))
		require.NoError(t, e.Add(second, AddOptions{Instance: "two", KeepDuplicates: true}))
		require.NoError(t, e.Merge("two", "one", false))
		inst, err := e.Instance("one")
		require.NoError(t, err)
		return inst.ExternalEntries()
	}

	ab := build(t, a, b)
	ba := build(t, b, a)
	assert.Equal(t, 3, len(ab), "shared record deduplicates")
	assert.Equal(t, ab, ba)
}

func TestMerge_SourceUnchanged(t *testing.T) {
	e := newTestEngine(t)
	e.NewInstance("src", InstanceOptions{})
	require.NoError(t, e.Add(RecordInput(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00")),
		AddOptions{Instance: "src"}))
	require.NoError(t, e.Merge("src", "", false))

	dst, err := e.Instance("")
	require.NoError(t, err)
	dst.Entries[0]["src_id"] = ods.String("mutated")

	src, err := e.Instance("src")
	require.NoError(t, err)
	assert.Equal(t, ods.String("a"), src.Entries[0]["src_id"])
}

func TestCullByTime_StaleBoundary(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("past", "2024-01-01T00:00:00", "2024-01-01T01:00:00"),
		fullEntry("ends_now", "2024-01-01T01:00:00", "2024-01-01T02:00:00"),
		fullEntry("future", "2024-01-01T03:00:00", "2024-01-01T04:00:00"),
	}, AddOptions{KeepDuplicates: true}))

	require.NoError(t, e.CullByTime("2024-01-01T02:00:00", CullStale, ""))

	inst, err := e.Instance("")
	require.NoError(t, err)
	require.Equal(t, 2, inst.NumberOfRecords)
	ids := []ods.Value{inst.Entries[0]["src_id"], inst.Entries[1]["src_id"]}
	assert.Contains(t, ids, ods.String("ends_now"), "stop equal to cull time survives")
	assert.Contains(t, ids, ods.String("future"))
}

func TestCullByTime_InactiveBoundary(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("active", "2024-01-01T01:00:00", "2024-01-01T03:00:00"),
		fullEntry("starts_now", "2024-01-01T02:00:00", "2024-01-01T04:00:00"),
		fullEntry("future", "2024-01-01T05:00:00", "2024-01-01T06:00:00"),
	}, AddOptions{KeepDuplicates: true}))

	require.NoError(t, e.CullByTime("2024-01-01T02:00:00", CullInactive, ""))

	inst, err := e.Instance("")
	require.NoError(t, err)
	require.Equal(t, 2, inst.NumberOfRecords)
	ids := []ods.Value{inst.Entries[0]["src_id"], inst.Entries[1]["src_id"]}
	assert.Contains(t, ids, ods.String("starts_now"), "start equal to cull time survives")
	assert.NotContains(t, ids, ods.String("future"))
}

func TestCullByTime_MissingBoundaryKept(t *testing.T) {
	e := newTestEngine(t)
	broken := fullEntry("broken", "2024-01-01T00:00:00", "2024-01-01T01:00:00")
	broken["src_end_utc"] = "not a time"
	require.NoError(t, e.Add(ListInput{broken}, AddOptions{KeepDuplicates: true}))

	require.NoError(t, e.CullByTime("2025-01-01", CullStale, ""))

	inst, err := e.Instance("")
	require.NoError(t, err)
	assert.Equal(t, 1, inst.NumberOfRecords, "uncomparable record is retained")
}

func TestCullByTime_BadMode(t *testing.T) {
	e := newTestEngine(t)
	err := e.CullByTime("now", "sideways", "")
	require.Error(t, err)
	var oe *OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, ErrCodeBadMode, oe.Code)
}

func TestCullByInvalid(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("good", "2024-01-01T00:00:00", "2024-01-01T01:00:00"),
		{"src_id": "partial"},
	}, AddOptions{KeepDuplicates: true}))

	require.NoError(t, e.CullByInvalid(""))

	inst, err := e.Instance("")
	require.NoError(t, err)
	require.Equal(t, 1, inst.NumberOfRecords)
	assert.Equal(t, ods.String("good"), inst.Entries[0]["src_id"])
}

func TestCullByInvalid_AllInvalidRetained(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		{"src_id": "one"},
		{"src_id": "two"},
	}, AddOptions{KeepDuplicates: true}))

	require.NoError(t, e.CullByInvalid(""))

	inst, err := e.Instance("")
	require.NoError(t, err)
	assert.Equal(t, 2, inst.NumberOfRecords, "wholly invalid set is kept for inspection")
}

func TestCullByDuplicate_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	rec := fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00")
	require.NoError(t, e.Add(ListInput{rec, rec, rec}, AddOptions{KeepDuplicates: true}))

	require.NoError(t, e.CullByDuplicate(""))
	inst, err := e.Instance("")
	require.NoError(t, err)
	require.Equal(t, 1, inst.NumberOfRecords)

	require.NoError(t, e.CullByDuplicate(""))
	assert.Equal(t, 1, inst.NumberOfRecords)
}

func TestUpdateEntry_OutOfRange(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(RecordInput(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00")), AddOptions{}))

	n, err := e.UpdateEntry(5, map[string]any{"src_id": "b"}, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.UpdateEntry(0, map[string]any{"src_id": "b", "not_a_field": 1}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdateByElevation(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("up", "2024-01-01T00:00:00", "2024-01-01T01:00:00"),
		fullEntry("down", "2024-01-01T02:00:00", "2024-01-01T03:00:00"),
	}, AddOptions{KeepDuplicates: true}))

	rise := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	set := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	horizon := func(rec ods.Record, elLimDeg, dtSec float64) (interval.Span, bool) {
		if rec["src_id"] == ods.String("down") {
			return interval.Span{}, false
		}
		return interval.Span{Start: rise, End: set}, true
	}
	require.NoError(t, e.UpdateByElevation(horizon, 10, 60, ""))

	inst, err := e.Instance("")
	require.NoError(t, err)
	// Replace rescans and re-sorts nothing, so order is preserved.
	start, ok := inst.Entries[0].Time("src_start_utc")
	require.True(t, ok)
	assert.Equal(t, rise, start)
	stop, ok := inst.Entries[1].Time("src_end_utc")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC), stop, "unplaceable record keeps its window")
}

func TestUpdateByContinuity(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T02:00:00"),
		fullEntry("b", "2024-01-01T01:00:00", "2024-01-01T03:00:00"),
	}, AddOptions{KeepDuplicates: true}))

	require.NoError(t, e.UpdateByContinuity(time.Second, check.AdjustStop, ""))

	inst, err := e.Instance("")
	require.NoError(t, err)
	stop, ok := inst.Entries[0].Time("src_end_utc")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 59, 59, 0, time.UTC), stop)
}

func TestUpdateTimes_GeneratedWindows(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("a", "2020-01-01T00:00:00", "2020-01-01T01:00:00"),
		fullEntry("b", "2020-01-01T02:00:00", "2020-01-01T03:00:00"),
	}, AddOptions{KeepDuplicates: true}))

	require.NoError(t, e.UpdateTimes(UpdateTimesOptions{
		Start:     "2024-06-01T00:00:00",
		ObsLenSec: []float64{600},
	}))

	inst, err := e.Instance("")
	require.NoError(t, err)
	start0, _ := inst.Entries[0].Time("src_start_utc")
	stop0, _ := inst.Entries[0].Time("src_end_utc")
	start1, _ := inst.Entries[1].Time("src_start_utc")
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), start0)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 10, 0, 0, time.UTC), stop0)
	assert.Equal(t, stop0.Add(time.Second), start1, "next window starts one second after the previous stop")
}

func TestUpdateTimes_CountMismatch(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(RecordInput(fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00")), AddOptions{}))

	err := e.UpdateTimes(UpdateTimesOptions{
		Times: [][2]time.Time{
			{time.Now(), time.Now()},
			{time.Now(), time.Now()},
		},
	})
	var oe *OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, ErrCodeBadInput, oe.Code)
}

func TestCheckActive_InclusiveBounds(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T02:00:00"),
		fullEntry("b", "2024-01-01T02:00:00", "2024-01-01T04:00:00"),
		fullEntry("c", "2024-01-01T05:00:00", "2024-01-01T06:00:00"),
	}, AddOptions{KeepDuplicates: true}))

	active, err := e.CheckActive("2024-01-01T02:00:00", "")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, active, "both boundaries count as active")
}

func TestCheckActive_ReadFromFile(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ods.json")
	doc := map[string]any{
		e.Standard().DataKey: []any{
			fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T02:00:00"),
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	active, err := e.CheckActive("2024-01-01T01:00:00", path)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, active)

	// The read populates a dedicated instance, not the working one.
	working, err := e.Instance("")
	require.NoError(t, err)
	assert.Zero(t, working.NumberOfRecords)
}

func TestLoadDefaults(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.LoadDefaults(ListInput{
		{"site_id": "hcro", "src_id": "a"},
		{"site_id": "hcro", "src_id": "b"},
	}))

	defaults := e.Defaults()
	assert.Equal(t, ods.String("hcro"), defaults["site_id"])
	assert.NotContains(t, defaults, "src_id", "fields with multiple values contribute nothing")

	require.NoError(t, e.Add(RecordInput{"src_id": "c"}, AddOptions{}))
	inst, err := e.Instance("")
	require.NoError(t, err)
	assert.Equal(t, ods.String("hcro"), inst.Entries[0]["site_id"])
}

func TestPostAndReadInto_RoundTrip(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"),
	}, AddOptions{KeepDuplicates: true}))

	dir := t.TempDir()
	path := filepath.Join(dir, "ods.json")
	require.NoError(t, e.Post(path, ""))

	e.NewInstance("reread", InstanceOptions{})
	require.NoError(t, e.ReadInto(path, "reread"))
	inst, err := e.Instance("reread")
	require.NoError(t, err)
	require.Equal(t, 1, inst.NumberOfRecords)
	assert.Equal(t, []int{0}, inst.ValidRecords)
	assert.Equal(t, path, inst.Input)
}

func TestExport_DataFile(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T01:00:00"),
	}, AddOptions{KeepDuplicates: true}))

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, e.Export(path, []string{"src_id", "src_start_utc"}, ",", ""))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "src_id,src_start_utc\na,2024-01-01T00:00:00\n", string(raw))
}

func TestAssemble(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()

	write := func(name string, entries []map[string]any) {
		doc := map[string]any{e.Standard().DataKey: entries}
		raw, err := json.Marshal(doc)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o644))
	}
	shared := fullEntry("shared", "2030-01-01T00:00:00", "2030-01-01T01:00:00")
	write("ods_one.json", []map[string]any{
		shared,
		fullEntry("one", "2030-01-01T02:00:00", "2030-01-01T03:00:00"),
	})
	write("ods_two.json", []map[string]any{
		shared,
		fullEntry("stale", "2000-01-01T00:00:00", "2000-01-01T01:00:00"),
	})
	// Not matched by the ods_*.json pattern.
	write("other.json", []map[string]any{
		fullEntry("ignored", "2030-01-01T00:00:00", "2030-01-01T01:00:00"),
	})

	out := filepath.Join(dir, "assembled.json")
	require.NoError(t, e.Assemble(dir, out, ""))

	inst, err := e.Instance(AssemblyInstance)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.NumberOfRecords, "shared deduplicated, stale culled, other.json skipped")

	// Per-file staging instances are dropped after merging.
	assert.NotContains(t, e.InstanceNames(), filepath.Join(dir, "ods_one.json"))

	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestDropInstance(t *testing.T) {
	e := newTestEngine(t)
	e.NewInstance("temp", InstanceOptions{})
	require.NoError(t, e.DropInstance("temp"))
	assert.True(t, IsUnknownInstance(e.DropInstance("temp")))

	err := e.DropInstance(e.WorkingInstance())
	require.Error(t, err)
}

func TestCoverage(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Add(ListInput{
		fullEntry("a", "2024-01-01T00:00:00", "2024-01-01T02:00:00"),
		fullEntry("b", "2024-01-01T03:00:00", "2024-01-01T04:00:00"),
	}, AddOptions{KeepDuplicates: true}))

	res, err := e.Coverage("")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, res.Fraction, 1e-9)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), res.Span.Start)
}

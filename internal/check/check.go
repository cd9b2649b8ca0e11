// Package check provides read-only analyses over ODS instances: duplicate
// detection, temporal coverage, continuity adjustment, and active-record
// lookup. Ephemeris math is not done here; horizon checks are consumed
// through an injected HorizonFunc collaborator.
package check

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/odskit/internal/interval"
	"github.com/roach88/odskit/internal/ods"
	"github.com/roach88/odskit/internal/standard"
)

// HorizonFunc reports the time window within a record's span during which
// its source is above the given elevation limit, stepping by dtSec.
// ok is false when the source never rises above the limit.
type HorizonFunc func(rec ods.Record, elLimDeg, dtSec float64) (span interval.Span, ok bool)

// ErrZeroSpan is returned by Coverage when the merged intervals collapse
// to a zero-length total span; a fraction would be division by zero.
var ErrZeroSpan = errors.New("coverage span has zero length")

// ErrNoSpans is returned by Coverage when no record carries a usable
// start/stop pair.
var ErrNoSpans = errors.New("no records with usable start/stop times")

// Checker runs analyses against one schema standard.
type Checker struct {
	std *standard.Standard
}

// New creates a Checker for the given standard.
func New(std *standard.Standard) *Checker {
	return &Checker{std: std}
}

// IsSame reports whether two records agree on the given fields, compared
// by string rendering. Nil fields means all schema fields. A field absent
// from either record makes the records differ.
func (c *Checker) IsSame(rec1, rec2 ods.Record, fields []string) bool {
	if fields == nil {
		fields = c.std.FieldOrder
	}
	for _, key := range fields {
		v1, ok1 := rec1[key]
		v2, ok2 := rec2[key]
		if !ok1 || !ok2 {
			return false
		}
		if ods.Stringify(v1) != ods.Stringify(v2) {
			return false
		}
	}
	return true
}

// IsDuplicate reports whether record is already present in the instance.
func (c *Checker) IsDuplicate(inst *ods.Instance, record ods.Record, fields []string) bool {
	for _, entry := range inst.Entries {
		if c.IsSame(entry, record, fields) {
			return true
		}
	}
	return false
}

// CoverageResult reports the temporal coverage of an instance.
type CoverageResult struct {
	// Covered is the summed duration of the merged spans.
	Covered time.Duration
	// Span runs from the first merged start to the last merged end.
	Span interval.Span
	// Fraction is Covered / Span, in [0, 1].
	Fraction float64
	// Merged is the minimal non-overlapping span set.
	Merged []interval.Span
}

// Coverage computes the fraction of the total observed span actually
// covered by the union of record intervals. Records without a usable
// start/stop pair are skipped. A zero-length total span is a reported
// error, not a silent zero.
func (c *Checker) Coverage(inst *ods.Instance) (*CoverageResult, error) {
	sorted := ods.SortEntries(inst.Entries, []string{c.std.Stop, c.std.Start}, false, false)
	spans := make([]interval.Span, 0, len(sorted))
	for _, entry := range sorted {
		start, okStart := entry.Time(c.std.Start)
		stop, okStop := entry.Time(c.std.Stop)
		if !okStart || !okStop {
			continue
		}
		spans = append(spans, interval.Span{Start: start, End: stop})
	}
	if len(spans) == 0 {
		return nil, ErrNoSpans
	}

	merged := interval.Merge(spans)
	covered := interval.TotalDuration(merged)
	span := interval.Span{Start: merged[0].Start, End: merged[len(merged)-1].End}
	if span.Duration() == 0 {
		return nil, ErrZeroSpan
	}

	res := &CoverageResult{
		Covered:  covered,
		Span:     span,
		Fraction: covered.Seconds() / span.Duration().Seconds(),
		Merged:   merged,
	}
	slog.Info("coverage computed",
		"instance", inst.Name,
		"covered", res.Covered,
		"span", res.Span.Duration(),
		"fraction", fmt.Sprintf("%.3f", res.Fraction))
	return res, nil
}

// AdjustStart and AdjustStop select which side of an overlapping pair
// Continuity moves.
const (
	AdjustStart = "start"
	AdjustStop  = "stop"
)

// Continuity returns a time-sorted copy of the instance's records with
// adjacent overlaps eliminated by shifting either the current record's
// stop backward or the next record's start forward by offset.
//
// This is a single pass: an overlap that remains after one adjustment
// (from a cascade of overlapping records) is logged, not re-resolved.
func (c *Checker) Continuity(inst *ods.Instance, offset time.Duration, adjust string) ([]ods.Record, error) {
	if adjust != AdjustStart && adjust != AdjustStop {
		return nil, fmt.Errorf("invalid adjust side %q: must be %q or %q", adjust, AdjustStart, AdjustStop)
	}
	adjusted := ods.SortEntries(inst.Entries, []string{c.std.Start, c.std.Stop}, false, false)
	for i := 0; i < len(adjusted)-1; i++ {
		thisStop, okStop := adjusted[i].Time(c.std.Stop)
		nextStart, okStart := adjusted[i+1].Time(c.std.Start)
		if !okStop || !okStart {
			continue
		}
		if !nextStart.Before(thisStop) {
			continue
		}
		switch adjust {
		case AdjustStart:
			nextStart = thisStop.Add(offset)
		case AdjustStop:
			thisStop = nextStart.Add(-offset)
		}
		adjusted[i][c.std.Stop] = ods.NewTime(thisStop)
		adjusted[i+1][c.std.Start] = ods.NewTime(nextStart)
		if nextStart.Before(thisStop) {
			slog.Warn("overlap remains after adjustment",
				"instance", inst.Name, "entry", i)
		}
	}
	return adjusted, nil
}

// Active returns the indices of records whose [start, stop] span contains
// t, inclusive on both ends. Records lacking comparable start/stop fields
// are skipped, not an error.
func (c *Checker) Active(inst *ods.Instance, t time.Time) []int {
	var active []int
	for i, entry := range inst.Entries {
		start, okStart := entry.Time(c.std.Start)
		stop, okStop := entry.Time(c.std.Stop)
		if !okStart || !okStop {
			continue
		}
		if (interval.Span{Start: start, End: stop}).Contains(t) {
			active = append(active, i)
		}
	}
	return active
}

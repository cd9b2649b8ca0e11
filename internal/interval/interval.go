// Package interval provides the pure span-merging algorithm used for
// coverage reporting.
package interval

import (
	"sort"
	"time"
)

// Span is a half-open-agnostic [Start, End] time interval with Start <= End.
type Span struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the span.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Contains reports whether t lies within the span, inclusive on both ends.
func (s Span) Contains(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

// Merge collapses a set of spans into the minimal list of non-overlapping
// spans covering the same point set. Touching spans (next.Start == current.End)
// are merged. The input is not modified; an empty input yields an empty
// result.
//
// O(n log n): one sort by start time, one linear scan.
func Merge(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]Span, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// TotalDuration sums the durations of the given spans.
func TotalDuration(spans []Span) time.Duration {
	var total time.Duration
	for _, s := range spans {
		total += s.Duration()
	}
	return total
}

// Package timeutil interprets the heterogeneous date inputs that appear in
// ODS files and on the command line: named times ("now", "yesterday+2h"),
// bare years, year-months, and anything ISO-ish.
//
// All times are UTC. ODS files carry no timezone designator, so every parse
// result is pinned to UTC before it enters a record.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Sentinel extremes used to reset an instance's earliest/latest markers
// before a metadata rescan. Any real record time falls between them.
var (
	RefEarliest = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	RefLatest   = time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)
)

// ISOFormat is the external time format: ISO-8601 with seconds precision.
// Fixed width, so lexicographic order over rendered times is chronological.
const ISOFormat = "2006-01-02T15:04:05"

// tunits maps time unit names to seconds.
var tunits = map[string]float64{
	"day": 86400.0, "d": 86400.0,
	"hour": 3600.0, "hr": 3600.0, "h": 3600.0,
	"minute": 60.0, "min": 60.0, "m": 60.0,
	"second": 1.0, "sec": 1.0, "s": 1.0,
}

// namedTimes maps named anchors to their offset in seconds from now.
var namedTimes = map[string]float64{
	"now":       0.0,
	"current":   0.0,
	"today":     0.0,
	"yesterday": -86400.0,
	"tomorrow":  86400.0,
}

// Now is the clock used for named times. Tests may replace it.
var Now = time.Now

// ISO renders t in the external ISO-8601-with-seconds format, in UTC.
func ISO(t time.Time) string {
	return t.UTC().Format(ISOFormat)
}

// Interpret parses an input date string into a UTC instant.
//
// Accepted forms, in order of precedence:
//   - named times with an optional offset: "now", "yesterday", "now+2h",
//     "tomorrow-30min"
//   - a bare year: "2024" (January 1)
//   - a year-month: "2024-06" (first of the month)
//   - anything dateparse understands (ISO-8601 variants, slashed dates, ...)
func Interpret(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, fmt.Errorf("interpret date: empty input")
	}
	if anchor, ok := matchNamed(s); ok {
		t := Now().UTC().Add(secondsDuration(namedTimes[anchor]))
		rest := s[len(anchor):]
		if rest != "" {
			off, err := parseOffset(rest)
			if err != nil {
				return time.Time{}, err
			}
			t = t.Add(off)
		}
		return t, nil
	}
	if len(s) == 4 {
		if year, err := strconv.Atoi(s); err == nil {
			return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	if len(s) == 7 && s[4] == '-' {
		if t, err := time.Parse("2006-01", s); err == nil {
			return t, nil
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("interpret date %q: %w", input, err)
	}
	return t.UTC(), nil
}

// InterpretAny coerces a value of unknown type to a UTC instant.
// time.Time values pass through (normalized to UTC), strings go through
// Interpret, everything else fails.
func InterpretAny(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case string:
		return Interpret(val)
	default:
		return time.Time{}, fmt.Errorf("interpret date: cannot interpret %T", v)
	}
}

// Delta converts a value and unit name ("2", "hr") to a duration.
func Delta(val float64, unit string) (time.Duration, error) {
	mult, ok := tunits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown time unit %q", unit)
	}
	return secondsDuration(val * mult), nil
}

// GenerateObservationTimes lays out consecutive [start, stop] pairs from a
// start time, one per entry of obsLenSec, with a one second gap between
// observations.
func GenerateObservationTimes(start string, obsLenSec []float64) ([][2]time.Time, error) {
	current, err := Interpret(start)
	if err != nil {
		return nil, err
	}
	times := make([][2]time.Time, 0, len(obsLenSec))
	for _, obs := range obsLenSec {
		stop := current.Add(secondsDuration(obs))
		times = append(times, [2]time.Time{current, stop})
		current = current.Add(secondsDuration(obs + 1))
	}
	return times, nil
}

// matchNamed reports the named-time anchor that prefixes s, if any.
func matchNamed(s string) (string, bool) {
	lower := strings.ToLower(s)
	best := ""
	for name := range namedTimes {
		if strings.HasPrefix(lower, name) && len(name) > len(best) {
			best = name
		}
	}
	return best, best != ""
}

// parseOffset parses an offset suffix like "+2h" or "-30min".
func parseOffset(s string) (time.Duration, error) {
	direction := 1.0
	switch {
	case strings.HasPrefix(s, "+"):
	case strings.HasPrefix(s, "-"):
		direction = -1.0
	default:
		return 0, fmt.Errorf("time offset must start with + or -, got %q", s)
	}
	body := s[1:]
	for unit, mult := range tunits {
		numPart, found := strings.CutSuffix(body, unit)
		if !found {
			continue
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(numPart), 64)
		if err != nil {
			continue
		}
		return secondsDuration(direction * val * mult), nil
	}
	return 0, fmt.Errorf("time offset must have a number and a time unit (e.g. '+2h', '-30m', '+15s'), got %q", s)
}

func secondsDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/odskit/internal/ods"
	"github.com/roach88/odskit/internal/timeutil"
)

// Cull modes for CullByTime.
const (
	// CullStale removes records whose observation window has entirely
	// passed.
	CullStale = "stale"

	// CullInactive additionally removes records that have not started
	// yet, keeping only the currently active window.
	CullInactive = "inactive"
)

// CullByTime removes records relative to a reference time. Stale mode
// drops records whose stop is strictly before the reference; inactive
// mode also drops records whose start is strictly after it. Records
// missing a comparable boundary are kept.
func (e *Engine) CullByTime(cullTime, mode, instance string) error {
	if mode != CullStale && mode != CullInactive {
		err := &OpError{Code: ErrCodeBadMode, Message: fmt.Sprintf("invalid cull mode %q", mode)}
		slog.Warn("skipping cull", "mode", mode, "error", err)
		return err
	}
	inst, err := e.resolve(instance)
	if err != nil {
		return err
	}
	t, err := timeutil.Interpret(cullTime)
	if err != nil {
		slog.Warn("skipping cull", "time", cullTime, "error", err)
		return &OpError{Code: ErrCodeBadTime, Message: err.Error(), Instance: inst.Name, Err: err}
	}

	kept := make([]ods.Record, 0, len(inst.Entries))
	for _, rec := range inst.Entries {
		if stop, ok := rec.Time(e.std.Stop); ok && t.After(stop) {
			continue
		}
		if mode == CullInactive {
			if start, ok := rec.Time(e.std.Start); ok && t.Before(start) {
				continue
			}
		}
		kept = append(kept, rec)
	}
	starting := inst.NumberOfRecords
	inst.Replace(kept)
	slog.Info("culled by time",
		"instance", inst.Name, "mode", mode, "time", timeutil.ISO(t),
		"retained", inst.NumberOfRecords, "of", starting)
	e.logOp("cull_"+mode, inst.Name, starting-inst.NumberOfRecords, timeutil.ISO(t))
	return nil
}

// CullByInvalid removes records that fail schema validation. If no
// record validates, everything is retained: an import problem that
// invalidates the whole set should be inspected, not silently emptied.
func (e *Engine) CullByInvalid(instance string) error {
	inst, err := e.resolve(instance)
	if err != nil {
		return err
	}
	inst.GenInfo()
	if len(inst.ValidRecords) == 0 {
		slog.Warn("no valid records, retaining all", "instance", inst.Name)
		return nil
	}
	starting := inst.NumberOfRecords
	kept := make([]ods.Record, 0, len(inst.ValidRecords))
	for _, num := range inst.ValidRecords {
		kept = append(kept, inst.Entries[num].Clone())
	}
	inst.Replace(kept)
	slog.Info("culled by invalid",
		"instance", inst.Name, "retained", inst.NumberOfRecords, "of", starting)
	e.logOp("cull_invalid", inst.Name, starting-inst.NumberOfRecords, "")
	return nil
}

// CullByDuplicate removes exact duplicate records, keeping one
// representative per identical content.
func (e *Engine) CullByDuplicate(instance string) error {
	inst, err := e.resolve(instance)
	if err != nil {
		return err
	}
	starting := inst.NumberOfRecords
	inst.Sort(nil, true, false)
	if len(inst.Entries) == starting {
		slog.Info("no duplicates, retaining all", "instance", inst.Name)
		return nil
	}
	inst.GenInfo()
	slog.Info("culled duplicates",
		"instance", inst.Name, "retained", inst.NumberOfRecords, "of", starting)
	e.logOp("cull_duplicate", inst.Name, starting-inst.NumberOfRecords, "")
	return nil
}

package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/odskit/internal/check"
	"github.com/roach88/odskit/internal/ods"
	"github.com/roach88/odskit/internal/timeutil"
)

// UpdateByElevation recomputes each record's observation window from a
// source-visibility model: horizon maps a record to the span the source
// sits above elLimDeg degrees, sampled every dtSec seconds. Records the
// model cannot place keep their existing window.
func (e *Engine) UpdateByElevation(horizon check.HorizonFunc, elLimDeg, dtSec float64, instance string) error {
	if horizon == nil {
		return &OpError{Code: ErrCodeBadInput, Message: "no visibility model supplied"}
	}
	inst, err := e.resolve(instance)
	if err != nil {
		return err
	}
	updated := make([]ods.Record, 0, len(inst.Entries))
	changed := 0
	for _, rec := range inst.Entries {
		span, ok := horizon(rec, elLimDeg, dtSec)
		if !ok {
			updated = append(updated, rec)
			continue
		}
		next := rec.Clone()
		next[e.std.Start] = ods.NewTime(span.Start)
		next[e.std.Stop] = ods.NewTime(span.End)
		updated = append(updated, next)
		changed++
	}
	inst.Replace(updated)
	slog.Info("updated by elevation",
		"instance", inst.Name, "el_lim_deg", elLimDeg, "changed", changed)
	e.logOp("update_elevation", inst.Name, changed, fmt.Sprintf("el_lim=%g", elLimDeg))
	return nil
}

// UpdateByContinuity sorts the records by time and removes adjacent
// overlaps by shifting one side of each overlapping pair by offset.
func (e *Engine) UpdateByContinuity(offset time.Duration, adjust, instance string) error {
	inst, err := e.resolve(instance)
	if err != nil {
		return err
	}
	entries, err := e.check.Continuity(inst, offset, adjust)
	if err != nil {
		return &OpError{Code: ErrCodeBadMode, Message: err.Error(), Instance: inst.Name, Err: err}
	}
	inst.Replace(entries)
	slog.Info("updated by continuity", "instance", inst.Name, "adjust", adjust)
	e.logOp("update_continuity", inst.Name, inst.NumberOfRecords, adjust)
	return nil
}

// UpdateTimesOptions configures UpdateTimes. Either Times supplies one
// window per record, or Start plus ObsLenSec generates consecutive
// windows (a single ObsLenSec element applies to every record).
type UpdateTimesOptions struct {
	Times     [][2]time.Time
	Start     string
	ObsLenSec []float64
	Instance  string
}

// UpdateTimes rewrites every record's observation window.
func (e *Engine) UpdateTimes(opts UpdateTimesOptions) error {
	inst, err := e.resolve(opts.Instance)
	if err != nil {
		return err
	}

	times := opts.Times
	if times == nil {
		if opts.Start == "" || len(opts.ObsLenSec) == 0 {
			err := &OpError{
				Code:     ErrCodeBadInput,
				Message:  "need explicit times or a start plus observation lengths",
				Instance: inst.Name,
			}
			slog.Warn("skipping time update", "error", err)
			return err
		}
		lens := opts.ObsLenSec
		if len(lens) == 1 && inst.NumberOfRecords > 1 {
			single := lens[0]
			lens = make([]float64, inst.NumberOfRecords)
			for i := range lens {
				lens[i] = single
			}
		}
		times, err = timeutil.GenerateObservationTimes(opts.Start, lens)
		if err != nil {
			slog.Warn("skipping time update", "start", opts.Start, "error", err)
			return &OpError{Code: ErrCodeBadTime, Message: err.Error(), Instance: inst.Name, Err: err}
		}
	}
	if len(times) != inst.NumberOfRecords {
		err := &OpError{
			Code:     ErrCodeBadInput,
			Message:  fmt.Sprintf("%d windows for %d records", len(times), inst.NumberOfRecords),
			Instance: inst.Name,
		}
		slog.Warn("skipping time update", "error", err)
		return err
	}

	for i, w := range times {
		inst.Entries[i][e.std.Start] = ods.NewTime(w[0])
		inst.Entries[i][e.std.Stop] = ods.NewTime(w[1])
	}
	inst.GenInfo()
	slog.Info("updated times", "instance", inst.Name, "records", inst.NumberOfRecords)
	e.logOp("update_times", inst.Name, inst.NumberOfRecords, "")
	return nil
}

// CheckActiveInstance is the registry name CheckActive loads documents
// into when asked to read from a source.
const CheckActiveInstance = "check_active"

// CheckActive returns the indices of records whose observation window
// contains ctime, boundaries included. With a non-empty readFrom the
// records are first loaded from that source into a fresh instance;
// otherwise the working instance is checked in place.
func (e *Engine) CheckActive(ctime, readFrom string) ([]int, error) {
	name := ""
	if readFrom != "" {
		e.NewInstance(CheckActiveInstance, InstanceOptions{Overwrite: true})
		if err := e.ReadInto(readFrom, CheckActiveInstance); err != nil {
			return nil, err
		}
		name = CheckActiveInstance
	}
	inst, err := e.resolve(name)
	if err != nil {
		return nil, err
	}
	t, err := timeutil.Interpret(ctime)
	if err != nil {
		return nil, &OpError{Code: ErrCodeBadTime, Message: err.Error(), Instance: inst.Name, Err: err}
	}
	active := e.check.Active(inst, t)
	slog.Info("checked active",
		"instance", inst.Name, "time", timeutil.ISO(t), "active", len(active))
	return active, nil
}

// Coverage reports how much of the span between an instance's earliest
// and latest times its records cover.
func (e *Engine) Coverage(instance string) (*check.CoverageResult, error) {
	inst, err := e.resolve(instance)
	if err != nil {
		return nil, err
	}
	return e.check.Coverage(inst)
}

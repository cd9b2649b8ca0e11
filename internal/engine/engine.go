// Package engine maintains a registry of named ODS instances and applies
// the reconciliation operations (imports, merges, culls, time updates,
// activity checks) that keep them consistent.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/odskit/internal/check"
	"github.com/roach88/odskit/internal/journal"
	"github.com/roach88/odskit/internal/ods"
	"github.com/roach88/odskit/internal/standard"
)

// DefaultsInstance is the registry name of the transient instance used
// to derive shared defaults from a reference document.
const DefaultsInstance = "__defaults__"

// Engine holds the instance registry, the shared defaults applied when
// records are created, and the checker bound to the schema version.
// An Engine is not safe for concurrent use.
type Engine struct {
	std       *standard.Standard
	instances map[string]*ods.Instance
	working   string
	defaults  map[string]ods.Value
	check     *check.Checker
	journal   *journal.Journal
}

// Options configures a new Engine.
type Options struct {
	// Version selects the schema version. Empty means latest.
	Version string

	// WorkingInstance names the initial working instance. Empty means
	// ods.DefaultWorkingInstance.
	WorkingInstance string

	// Journal, when non-nil, records every mutating operation.
	Journal *journal.Journal
}

// New builds an engine with an empty working instance ready to receive
// records.
func New(opts Options) (*Engine, error) {
	version := opts.Version
	if version == "" {
		version = standard.Latest
	}
	std, err := standard.Load(version)
	if err != nil {
		return nil, fmt.Errorf("loading standard: %w", err)
	}

	working := opts.WorkingInstance
	if working == "" {
		working = ods.DefaultWorkingInstance
	}

	e := &Engine{
		std:       std,
		instances: map[string]*ods.Instance{},
		defaults:  map[string]ods.Value{},
		check:     check.New(std),
		journal:   opts.Journal,
	}
	e.NewInstance(working, InstanceOptions{SetAsWorking: true})
	return e, nil
}

// Standard returns the schema version the engine validates against.
func (e *Engine) Standard() *standard.Standard { return e.std }

// Defaults returns the shared defaults map. The map is live: edits
// apply to subsequently created records.
func (e *Engine) Defaults() map[string]ods.Value { return e.defaults }

// WorkingInstance returns the name of the current working instance.
func (e *Engine) WorkingInstance() string { return e.working }

// InstanceNames returns the registry's instance names in no particular
// order.
func (e *Engine) InstanceNames() []string {
	names := make([]string, 0, len(e.instances))
	for name := range e.instances {
		names = append(names, name)
	}
	return names
}

// InstanceOptions configures NewInstance.
type InstanceOptions struct {
	// SetAsWorking makes the new instance the working instance.
	SetAsWorking bool

	// Overwrite replaces an existing instance of the same name.
	// Without it an existing instance is kept and a warning logged.
	Overwrite bool
}

// NewInstance creates an empty instance under name and returns it. If
// the name exists and Overwrite is not set, the existing instance is
// returned unchanged.
func (e *Engine) NewInstance(name string, opts InstanceOptions) *ods.Instance {
	if inst, ok := e.instances[name]; ok && !opts.Overwrite {
		slog.Warn("instance already exists, keeping it", "instance", name)
		if opts.SetAsWorking {
			e.working = name
		}
		return inst
	}
	inst := ods.NewInstance(name, e.std)
	e.instances[name] = inst
	if opts.SetAsWorking {
		e.working = name
	}
	slog.Info("created instance", "instance", name, "version", e.std.Version)
	return inst
}

// SetWorkingInstance switches the working instance to an existing
// registry entry.
func (e *Engine) SetWorkingInstance(name string) error {
	if _, ok := e.instances[name]; !ok {
		err := newUnknownInstance(name)
		slog.Error("cannot set working instance", "instance", name, "error", err)
		return err
	}
	e.working = name
	slog.Info("set working instance", "instance", name)
	return nil
}

// DropInstance removes an instance from the registry. Dropping the
// working instance leaves the working pointer dangling until reset, so
// that is refused.
func (e *Engine) DropInstance(name string) error {
	if name == e.working {
		return &OpError{
			Code:     ErrCodeBadMode,
			Message:  "cannot drop the working instance",
			Instance: name,
		}
	}
	if _, ok := e.instances[name]; !ok {
		return newUnknownInstance(name)
	}
	delete(e.instances, name)
	return nil
}

// Instance returns the named instance, or the working instance for "".
func (e *Engine) Instance(name string) (*ods.Instance, error) {
	return e.resolve(name)
}

func (e *Engine) resolve(name string) (*ods.Instance, error) {
	if name == "" {
		name = e.working
	}
	inst, ok := e.instances[name]
	if !ok {
		err := newUnknownInstance(name)
		slog.Error("instance lookup failed", "instance", name)
		return nil, err
	}
	return inst, nil
}

// Report logs a validity summary for an instance: total, valid and
// invalid record counts plus each invalid record's messages.
func (e *Engine) Report(instance string) error {
	inst, err := e.resolve(instance)
	if err != nil {
		return err
	}
	slog.Info("instance summary",
		"instance", inst.Name,
		"records", inst.NumberOfRecords,
		"valid", len(inst.ValidRecords),
		"invalid", len(inst.InvalidRecords))
	for num, msgs := range inst.InvalidRecords {
		slog.Warn("invalid record", "instance", inst.Name, "entry", num, "problems", msgs)
	}
	return nil
}

// UpdateEntry applies field updates to one record of an instance and
// returns the number of fields changed.
func (e *Engine) UpdateEntry(entryNum int, updates map[string]any, instance string) (int, error) {
	inst, err := e.resolve(instance)
	if err != nil {
		return 0, err
	}
	n := inst.UpdateEntry(entryNum, updates)
	e.logOp("update_entry", inst.Name, n, fmt.Sprintf("entry %d", entryNum))
	return n, nil
}

// RemoveEntry deletes one record from an instance and returns the
// number of fields removed with it.
func (e *Engine) RemoveEntry(entryNum int, instance string) (int, error) {
	inst, err := e.resolve(instance)
	if err != nil {
		return 0, err
	}
	n := inst.RemoveEntry(entryNum)
	e.logOp("remove_entry", inst.Name, 1, fmt.Sprintf("entry %d", entryNum))
	return n, nil
}

// logOp records an operation in the journal when one is attached.
// Journal failures are logged and otherwise ignored: bookkeeping never
// blocks reconciliation.
func (e *Engine) logOp(op, instance string, records int, detail string) {
	if e.journal == nil {
		return
	}
	rec := journal.NewOp(op, instance, records, detail)
	if err := e.journal.Record(context.Background(), rec); err != nil {
		slog.Warn("journal write failed", "op", op, "instance", instance, "error", err)
	}
}

package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// AssemblyInstance is the registry name the assembled result lives in.
const AssemblyInstance = "assembly"

// Assemble merges every ods_*.json document in a directory into one
// deduplicated, stale-free assembly instance. An optional initial
// instance seeds the assembly; each file passes through a transient
// per-file instance that is dropped after merging. With a non-empty
// postTo the result is written back out.
func (e *Engine) Assemble(directory, postTo, initialInstance string) error {
	if strings.HasSuffix(directory, ".json") {
		directory = filepath.Dir(directory)
	}
	files, err := filepath.Glob(filepath.Join(directory, "ods_*.json"))
	if err != nil {
		return &OpError{Code: ErrCodeIO, Message: err.Error(), Err: err}
	}
	slog.Info("assembling", "directory", directory, "files", len(files))

	e.NewInstance(AssemblyInstance, InstanceOptions{Overwrite: true})
	if initialInstance != "" {
		if _, ok := e.instances[initialInstance]; ok {
			if err := e.Merge(initialInstance, AssemblyInstance, false); err != nil {
				return err
			}
		} else {
			slog.Warn("initial instance not found, skipping", "instance", initialInstance)
		}
	}

	for _, file := range files {
		e.NewInstance(file, InstanceOptions{Overwrite: true})
		if err := e.Add(FileInput{Path: file}, AddOptions{Instance: file, KeepDuplicates: true}); err != nil {
			slog.Warn("skipping unreadable file", "path", file, "error", err)
			delete(e.instances, file)
			continue
		}
		if err := e.Merge(file, AssemblyInstance, true); err != nil {
			return err
		}
		delete(e.instances, file)
	}

	if err := e.CullByTime("now", CullStale, AssemblyInstance); err != nil {
		return err
	}
	if err := e.CullByDuplicate(AssemblyInstance); err != nil {
		return err
	}
	if postTo != "" {
		return e.Post(postTo, AssemblyInstance)
	}
	return nil
}

// Registry names Monitor stages its inputs through.
const (
	MonitorWebInstance = "from_web"
	MonitorLogInstance = "from_log"
)

// Monitor polls a served ODS document once and folds its records into a
// running log file: active records from the URL are merged with the
// existing log, deduplicated, and the log rewritten. The log
// accumulates every record ever seen active, not just the current set.
func (e *Engine) Monitor(url, logfile string, cols []string, sep string) error {
	e.NewInstance(MonitorWebInstance, InstanceOptions{Overwrite: true})
	if err := e.ReadInto(url, MonitorWebInstance); err != nil {
		return err
	}
	if err := e.CullByTime("now", CullInactive, MonitorWebInstance); err != nil {
		return err
	}

	e.NewInstance(MonitorLogInstance, InstanceOptions{Overwrite: true})
	if _, err := os.Stat(logfile); err == nil {
		opts := AddOptions{Instance: MonitorLogInstance, KeepDuplicates: true}
		if err := e.Add(FileInput{Path: logfile, Sep: sep}, opts); err != nil {
			return err
		}
	} else {
		slog.Info("starting new monitor log", "path", logfile)
	}

	if err := e.Merge(MonitorWebInstance, MonitorLogInstance, false); err != nil {
		return err
	}
	return e.Export(logfile, cols, sep, MonitorLogInstance)
}

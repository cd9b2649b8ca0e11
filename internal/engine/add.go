package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/odskit/internal/ods"
	"github.com/roach88/odskit/internal/odsio"
)

// AddOptions configures Add.
type AddOptions struct {
	// Instance names the target instance. Empty means the working
	// instance.
	Instance string

	// KeepDuplicates skips the post-import dedup pass.
	KeepDuplicates bool
}

// Add imports records from in into an instance. Single records are
// appended as-is; batches and files are deduplicated afterwards unless
// KeepDuplicates is set. Instance metadata is regenerated once per
// call, not per record.
func (e *Engine) Add(in Input, opts AddOptions) error {
	if in == nil {
		return nil
	}
	inst, err := e.resolve(opts.Instance)
	if err != nil {
		return err
	}

	switch v := in.(type) {
	case RecordInput:
		e.addEntries(inst, []map[string]any{v}, true)
		e.logOp("add", inst.Name, 1, "record")
	case BagInput:
		e.addEntries(inst, []map[string]any{v}, true)
		e.logOp("add", inst.Name, 1, "bag")
	case ListInput:
		e.addEntries(inst, v, opts.KeepDuplicates)
		e.logOp("add", inst.Name, len(v), "list")
	case FileInput:
		entries, err := e.readFile(v)
		if err != nil {
			slog.Error("import failed", "path", v.Path, "error", err)
			return &OpError{Code: ErrCodeIO, Message: err.Error(), Instance: inst.Name, Err: err}
		}
		e.addEntries(inst, entries, opts.KeepDuplicates)
		e.logOp("add", inst.Name, len(entries), v.Path)
	default:
		err := &OpError{Code: ErrCodeBadInput, Message: fmt.Sprintf("unhandled input type %T", in)}
		slog.Error("cannot add records", "error", err)
		return err
	}
	return e.Report(inst.Name)
}

// addEntries appends normalized records and regenerates metadata once.
func (e *Engine) addEntries(inst *ods.Instance, entries []map[string]any, keepDuplicates bool) {
	for _, entry := range entries {
		inst.NewRecord(entry, e.defaults)
	}
	if !keepDuplicates {
		inst.Sort(nil, true, false)
	}
	inst.GenInfo()
	slog.Info("added records", "instance", inst.Name, "added", len(entries), "total", inst.NumberOfRecords)
}

// readFile loads loose entries from a FileInput. URLs and .json paths
// are ODS JSON documents, everything else is a delimited data file.
func (e *Engine) readFile(in FileInput) ([]map[string]any, error) {
	if strings.HasPrefix(in.Path, "http") || strings.HasSuffix(in.Path, ".json") {
		return odsio.ReadODS(in.Path, e.std.DataKey)
	}

	headerMap := map[string]string{}
	if in.HeaderMapFile != "" {
		loaded, err := odsio.LoadHeaderMap(in.HeaderMapFile)
		if err != nil {
			return nil, fmt.Errorf("loading header map: %w", err)
		}
		for k, v := range loaded {
			headerMap[k] = v
		}
	}
	for k, v := range in.HeaderMap {
		headerMap[k] = v
	}

	sep := in.Sep
	if sep == "" {
		sep = odsio.SepAuto
	}
	rows, err := odsio.ReadDataFile(in.Path, odsio.TableOptions{
		Sep:         sep,
		ReplaceChar: in.ReplaceChar,
		HeaderMap:   headerMap,
	})
	if err != nil {
		return nil, err
	}
	entries := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		entry := make(map[string]any, len(row))
		for k, v := range row {
			entry[k] = v
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReadInto loads an ODS JSON document into an instance without schema
// filtering, so unknown keys survive into the metadata scan. Used when
// inspecting a document produced elsewhere.
func (e *Engine) ReadInto(source, instance string) error {
	inst, err := e.resolve(instance)
	if err != nil {
		return err
	}
	entries, err := odsio.ReadODS(source, e.std.DataKey)
	if err != nil {
		slog.Error("read failed", "source", source, "error", err)
		return &OpError{Code: ErrCodeIO, Message: err.Error(), Instance: inst.Name, Err: err}
	}
	for _, entry := range entries {
		inst.Append(ods.CoerceEntry(e.std, entry))
	}
	inst.Input = source
	inst.GenInfo()
	slog.Info("read records", "instance", inst.Name, "source", source, "records", inst.NumberOfRecords)
	return nil
}

// Merge appends copies of one instance's records onto another,
// deduplicating the result unless keepDuplicates is set. The source
// instance is left unchanged.
func (e *Engine) Merge(from, to string, keepDuplicates bool) error {
	src, err := e.resolve(from)
	if err != nil {
		return err
	}
	dst, err := e.resolve(to)
	if err != nil {
		return err
	}
	slog.Info("merging", "from", src.Name, "to", dst.Name, "records", len(src.Entries))
	for _, rec := range src.Entries {
		dst.Append(rec.Clone())
	}
	if !keepDuplicates {
		dst.Sort(nil, true, false)
	}
	dst.GenInfo()
	e.logOp("merge", dst.Name, len(src.Entries), "from "+src.Name)
	return nil
}

// LoadDefaults derives the shared defaults from a reference input:
// every schema field taking exactly one distinct non-null value across
// the reference records contributes that value. The reference lives in
// a transient registry instance.
func (e *Engine) LoadDefaults(in Input) error {
	e.NewInstance(DefaultsInstance, InstanceOptions{Overwrite: true})
	if err := e.Add(in, AddOptions{Instance: DefaultsInstance, KeepDuplicates: true}); err != nil {
		return err
	}
	inst := e.instances[DefaultsInstance]
	e.defaults = inst.DefaultsLen1()
	for field, val := range e.defaults {
		slog.Info("default", "field", field, "value", val.String())
	}
	return nil
}

// Post writes an instance to an ODS JSON file. An empty instance still
// writes (an empty data list) with a warning.
func (e *Engine) Post(path, instance string) error {
	inst, err := e.resolve(instance)
	if err != nil {
		return err
	}
	if inst.NumberOfRecords == 0 {
		slog.Warn("posting empty instance", "instance", inst.Name, "path", path)
	}
	if err := odsio.WriteODS(path, e.std.DataKey, inst.ExternalEntries()); err != nil {
		return &OpError{Code: ErrCodeIO, Message: err.Error(), Instance: inst.Name, Err: err}
	}
	slog.Info("posted", "instance", inst.Name, "path", path, "records", inst.NumberOfRecords)
	e.logOp("post", inst.Name, inst.NumberOfRecords, path)
	return nil
}

// Export writes an instance as a delimited data file. A nil cols slice
// exports every schema field in order.
func (e *Engine) Export(path string, cols []string, sep string, instance string) error {
	inst, err := e.resolve(instance)
	if err != nil {
		return err
	}
	if inst.NumberOfRecords == 0 {
		slog.Warn("exporting empty instance", "instance", inst.Name, "path", path)
	}
	if cols == nil {
		cols = e.std.FieldOrder
	}
	if sep == "" || sep == odsio.SepAuto {
		sep = ","
	}
	if err := odsio.WriteDataFile(path, inst.ExternalRows(), cols, sep); err != nil {
		return &OpError{Code: ErrCodeIO, Message: err.Error(), Instance: inst.Name, Err: err}
	}
	slog.Info("exported", "instance", inst.Name, "path", path, "records", inst.NumberOfRecords)
	e.logOp("export", inst.Name, inst.NumberOfRecords, path)
	return nil
}

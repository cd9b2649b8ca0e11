// Package view renders ODS instances as human-readable tables.
package view

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/roach88/odskit/internal/ods"
)

// DefaultOrder lists the fields shown first in a block view.
var DefaultOrder = []string{"src_id", "src_start_utc", "src_end_utc"}

// DefaultPerBlock is the number of record columns per block.
const DefaultPerBlock = 5

// Blocks renders an instance with fields as rows and records as
// columns, wrapped into blocks of perBlock records. The order fields
// lead, the remaining schema fields follow in schema order. Nil order
// means DefaultOrder; perBlock <= 0 means DefaultPerBlock.
func Blocks(inst *ods.Instance, order []string, perBlock int) string {
	if inst.NumberOfRecords == 0 {
		return "No records to view.\n"
	}
	if order == nil {
		order = DefaultOrder
	}
	if perBlock <= 0 {
		perBlock = DefaultPerBlock
	}

	fields := fieldOrder(inst, order)
	var b strings.Builder
	for blockStart := 0; blockStart < inst.NumberOfRecords; blockStart += perBlock {
		blockEnd := blockStart + perBlock
		if blockEnd > inst.NumberOfRecords {
			blockEnd = inst.NumberOfRecords
		}
		writeBlock(&b, inst, fields, blockStart, blockEnd)
		if blockEnd < inst.NumberOfRecords {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// fieldOrder puts the requested fields first, then the rest of the
// schema fields in schema order. Requested names that are not schema
// fields are dropped.
func fieldOrder(inst *ods.Instance, order []string) []string {
	seen := make(map[string]bool, len(order))
	fields := make([]string, 0, len(inst.Standard.FieldOrder))
	for _, f := range order {
		if inst.Standard.IsField(f) && !seen[f] {
			fields = append(fields, f)
			seen[f] = true
		}
	}
	for _, f := range inst.Standard.FieldOrder {
		if !seen[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

func writeBlock(b *strings.Builder, inst *ods.Instance, fields []string, from, to int) {
	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)

	fmt.Fprint(w, "field")
	for i := from; i < to; i++ {
		fmt.Fprintf(w, "\t%d", i)
	}
	fmt.Fprintln(w)

	for _, field := range fields {
		fmt.Fprint(w, field)
		for i := from; i < to; i++ {
			fmt.Fprintf(w, "\t%s", ods.ExternalString(inst.Entries[i][field]))
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

// Summary renders the instance's derived metadata as one line per
// fact.
func Summary(inst *ods.Instance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "instance: %s\n", inst.Name)
	fmt.Fprintf(&b, "version: %s\n", inst.Standard.Version)
	fmt.Fprintf(&b, "records: %d (%d valid, %d invalid)\n",
		inst.NumberOfRecords, len(inst.ValidRecords), len(inst.InvalidRecords))
	if inst.NumberOfRecords > 0 {
		fmt.Fprintf(&b, "earliest: %s\n", ods.NewTime(inst.Earliest).String())
		fmt.Fprintf(&b, "latest: %s\n", ods.NewTime(inst.Latest).String())
	}
	if inst.Input != "" {
		fmt.Fprintf(&b, "input: %s\n", inst.Input)
	}
	return b.String()
}

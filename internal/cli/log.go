package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/odskit/internal/journal"
)

// LogEntry is one journal operation in the log command's JSON payload.
type LogEntry struct {
	ID       string `json:"id"`
	Op       string `json:"op"`
	Instance string `json:"instance"`
	Records  int    `json:"records"`
	Detail   string `json:"detail,omitempty"`
	At       string `json:"at"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var instance string

	cmd := &cobra.Command{
		Use:           "log",
		Short:         "List journalled operations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(rootOpts, instance, cmd)
		},
	}

	cmd.Flags().StringVar(&instance, "instance", "", "only operations on this instance")
	return cmd
}

func runLog(opts *RootOptions, instance string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	if opts.JournalPath == "" {
		msg := "no journal configured: pass --journal"
		_ = formatter.Error("CLI_ERROR", msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	j, err := journal.Open(opts.JournalPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening journal", err)
	}
	defer j.Close()

	ops, err := j.List(cmd.Context(), instance)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing journal", err)
	}

	if formatter.Format == "json" {
		entries := make([]LogEntry, 0, len(ops))
		for _, op := range ops {
			entries = append(entries, LogEntry{
				ID:       op.ID,
				Op:       op.Op,
				Instance: op.Instance,
				Records:  op.Records,
				Detail:   op.Detail,
				At:       op.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return formatter.Success(entries)
	}

	w := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AT\tOP\tINSTANCE\tRECORDS\tDETAIL")
	for _, op := range ops {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			op.CreatedAt.UTC().Format(time.RFC3339), op.Op, op.Instance, op.Records, op.Detail)
	}
	return w.Flush()
}

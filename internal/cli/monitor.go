package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odskit/internal/engine"
)

// Default columns kept in a monitor log.
var defaultMonitorCols = []string{"src_id", "src_start_utc", "src_end_utc"}

// NewMonitorCommand creates the monitor command.
func NewMonitorCommand(rootOpts *RootOptions) *cobra.Command {
	var logfile string
	var cols []string
	var sep string

	cmd := &cobra.Command{
		Use:           "monitor <url>",
		Short:         "Fold a served ODS document's active records into a log file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(rootOpts, args[0], logfile, cols, sep, cmd)
		},
	}

	cmd.Flags().StringVar(&logfile, "log", "ods_monitor.txt", "running log file")
	cmd.Flags().StringSliceVar(&cols, "cols", defaultMonitorCols, "columns kept in the log")
	cmd.Flags().StringVar(&sep, "sep", ",", "log column separator")
	return cmd
}

func runMonitor(opts *RootOptions, url, logfile string, cols []string, sep string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	e, cleanup, err := newEngine(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := e.Monitor(url, logfile, cols, sep); err != nil {
		_ = formatter.OpError(err, nil)
		return WrapExitError(ExitCommandError, "monitoring", err)
	}
	inst, err := e.Instance(engine.MonitorLogInstance)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving instance", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"log":     logfile,
			"records": inst.NumberOfRecords,
		})
	}
	fmt.Fprintf(formatter.Writer, "monitor log %s holds %d record(s)\n", logfile, inst.NumberOfRecords)
	return nil
}

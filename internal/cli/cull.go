package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odskit/internal/engine"
)

// CullResult holds the cull command's JSON payload.
type CullResult struct {
	Starting int    `json:"starting"`
	Retained int    `json:"retained"`
	Output   string `json:"output,omitempty"`
}

// NewCullCommand creates the cull command.
func NewCullCommand(rootOpts *RootOptions) *cobra.Command {
	var mode string
	var at string
	var invalid bool
	var duplicates bool
	var output string

	cmd := &cobra.Command{
		Use:           "cull <ods-file-or-url>",
		Short:         "Remove stale, inactive, invalid or duplicate records",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCull(rootOpts, args[0], mode, at, invalid, duplicates, output, cmd)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", engine.CullStale, "time cull mode (stale|inactive), empty skips")
	cmd.Flags().StringVar(&at, "time", "now", "reference time for the time cull")
	cmd.Flags().BoolVar(&invalid, "invalid", false, "also drop records failing validation")
	cmd.Flags().BoolVar(&duplicates, "duplicates", false, "also drop exact duplicates")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the culled document here")
	return cmd
}

func runCull(opts *RootOptions, source, mode, at string, invalid, duplicates bool, output string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	e, cleanup, err := newEngine(opts)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := loadSource(e, source); err != nil {
		_ = formatter.OpError(err, nil)
		return err
	}
	inst, err := e.Instance("")
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving instance", err)
	}
	starting := inst.NumberOfRecords

	if mode != "" {
		if err := e.CullByTime(at, mode, ""); err != nil {
			_ = formatter.OpError(err, nil)
			return WrapExitError(ExitCommandError, "cull by time", err)
		}
	}
	if invalid {
		if err := e.CullByInvalid(""); err != nil {
			return WrapExitError(ExitCommandError, "cull by invalid", err)
		}
	}
	if duplicates {
		if err := e.CullByDuplicate(""); err != nil {
			return WrapExitError(ExitCommandError, "cull by duplicate", err)
		}
	}
	if output != "" {
		if err := e.Post(output, ""); err != nil {
			return WrapExitError(ExitCommandError, "writing "+output, err)
		}
	}

	result := CullResult{Starting: starting, Retained: inst.NumberOfRecords, Output: output}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "retained %d of %d record(s)\n", result.Retained, result.Starting)
	return nil
}

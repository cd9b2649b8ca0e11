package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/odskit/internal/check"
	"github.com/roach88/odskit/internal/engine"
	"github.com/roach88/odskit/internal/timeutil"
)

// CoverageReport holds the coverage check's JSON payload.
type CoverageReport struct {
	Fraction float64 `json:"fraction"`
	Covered  string  `json:"covered"`
	Span     string  `json:"span"`
	Segments int     `json:"segments"`
}

// ActiveReport holds the active check's JSON payload.
type ActiveReport struct {
	Time    string `json:"time"`
	Active  []int  `json:"active"`
	Records int    `json:"records"`
}

// NewCheckCommand creates the check command and its subcommands.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check an ODS document's coverage, continuity or activity",
	}
	cmd.AddCommand(newCheckCoverageCommand(rootOpts))
	cmd.AddCommand(newCheckContinuityCommand(rootOpts))
	cmd.AddCommand(newCheckActiveCommand(rootOpts))
	return cmd
}

func newCheckCoverageCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "coverage <ods-file-or-url>",
		Short:         "Report how much of the full span the records cover",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckCoverage(rootOpts, args[0], cmd)
		},
	}
}

func runCheckCoverage(opts *RootOptions, source string, cmd *cobra.Command) error {
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

	res, err := e.Coverage("")
	if err != nil {
		if errors.Is(err, check.ErrZeroSpan) || errors.Is(err, check.ErrNoSpans) {
			_ = formatter.Error("COVERAGE", err.Error(), nil)
			return NewExitError(ExitFailure, err.Error())
		}
		return WrapExitError(ExitCommandError, "coverage check", err)
	}

	report := CoverageReport{
		Fraction: res.Fraction,
		Covered:  res.Covered.String(),
		Span:     res.Span.Duration().String(),
		Segments: len(res.Merged),
	}
	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "coverage: %.1f%% (%s of %s in %d segment(s))\n",
			report.Fraction*100, report.Covered, report.Span, report.Segments)
	}
	if res.Fraction < 1.0 {
		return NewExitError(ExitFailure, fmt.Sprintf("coverage %.3f below 1.0", res.Fraction))
	}
	return nil
}

func newCheckContinuityCommand(rootOpts *RootOptions) *cobra.Command {
	var offsetSec float64
	var adjust string
	var output string

	cmd := &cobra.Command{
		Use:           "continuity <ods-file-or-url>",
		Short:         "Remove overlaps between consecutive records",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckContinuity(rootOpts, args[0], offsetSec, adjust, output, cmd)
		},
	}
	cmd.Flags().Float64Var(&offsetSec, "offset", 1, "seconds to shift an overlapping boundary")
	cmd.Flags().StringVar(&adjust, "adjust", check.AdjustStart, "side to move (start|stop)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the adjusted document here")
	return cmd
}

func runCheckContinuity(opts *RootOptions, source string, offsetSec float64, adjust, output string, cmd *cobra.Command) error {
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

	offset := time.Duration(offsetSec * float64(time.Second))
	if err := e.UpdateByContinuity(offset, adjust, ""); err != nil {
		_ = formatter.OpError(err, nil)
		return WrapExitError(ExitCommandError, "continuity", err)
	}
	if output != "" {
		if err := e.Post(output, ""); err != nil {
			return WrapExitError(ExitCommandError, "writing "+output, err)
		}
	}
	inst, err := e.Instance("")
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving instance", err)
	}
	return formatter.Success(fmt.Sprintf("continuity enforced over %d record(s)", inst.NumberOfRecords))
}

func newCheckActiveCommand(rootOpts *RootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:           "active <ods-file-or-url>",
		Short:         "List records whose window contains a time",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckActive(rootOpts, args[0], at, cmd)
		},
	}
	cmd.Flags().StringVar(&at, "time", "now", "reference time (named, ISO, or offset like now+2h)")
	return cmd
}

func runCheckActive(opts *RootOptions, source, at string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	e, cleanup, err := newEngine(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	active, err := e.CheckActive(at, source)
	if err != nil {
		_ = formatter.OpError(err, nil)
		return WrapExitError(ExitCommandError, "checking active", err)
	}
	inst, err := e.Instance(engine.CheckActiveInstance)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving instance", err)
	}
	t, err := timeutil.Interpret(at)
	if err != nil {
		return WrapExitError(ExitCommandError, "interpreting time", err)
	}

	report := ActiveReport{Time: timeutil.ISO(t), Active: active, Records: inst.NumberOfRecords}
	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "%d of %d record(s) active at %s: %v\n",
			len(active), report.Records, report.Time, active)
	}
	if len(active) == 0 {
		return NewExitError(ExitFailure, "no active records")
	}
	return nil
}

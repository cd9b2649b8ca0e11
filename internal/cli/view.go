package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odskit/internal/view"
)

// ViewResult holds the view command's JSON payload.
type ViewResult struct {
	Instance string           `json:"instance"`
	Records  int              `json:"records"`
	Valid    int              `json:"valid"`
	Invalid  int              `json:"invalid"`
	Entries  []map[string]any `json:"entries"`
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	var order []string
	var perBlock int

	cmd := &cobra.Command{
		Use:           "view <ods-file-or-url>",
		Short:         "Show an ODS document's records and summary",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(rootOpts, args[0], order, perBlock, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&order, "order", nil, "fields to show first")
	cmd.Flags().IntVar(&perBlock, "per-block", view.DefaultPerBlock, "record columns per block")
	return cmd
}

func runView(opts *RootOptions, source string, order []string, perBlock int, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	e, cleanup, err := newEngine(opts)
	if err != nil {
		_ = formatter.Error("CLI_ERROR", err.Error(), nil)
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

	if formatter.Format == "json" {
		return formatter.Success(ViewResult{
			Instance: inst.Name,
			Records:  inst.NumberOfRecords,
			Valid:    len(inst.ValidRecords),
			Invalid:  len(inst.InvalidRecords),
			Entries:  inst.ExternalEntries(),
		})
	}

	fmt.Fprint(formatter.Writer, view.Summary(inst))
	fmt.Fprintln(formatter.Writer)
	fmt.Fprint(formatter.Writer, view.Blocks(inst, order, perBlock))
	return nil
}

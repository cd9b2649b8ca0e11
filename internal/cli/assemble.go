package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odskit/internal/engine"
)

// NewAssembleCommand creates the assemble command.
func NewAssembleCommand(rootOpts *RootOptions) *cobra.Command {
	var post string

	cmd := &cobra.Command{
		Use:           "assemble <directory>",
		Short:         "Merge every ods_*.json in a directory into one document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(rootOpts, args[0], post, cmd)
		},
	}

	cmd.Flags().StringVar(&post, "post", "", "write the assembled document here")
	return cmd
}

func runAssemble(opts *RootOptions, directory, post string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	e, cleanup, err := newEngine(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := e.Assemble(directory, post, ""); err != nil {
		_ = formatter.OpError(err, nil)
		return WrapExitError(ExitCommandError, "assembling", err)
	}
	inst, err := e.Instance(engine.AssemblyInstance)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving instance", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"records": inst.NumberOfRecords,
			"output":  post,
		})
	}
	fmt.Fprintf(formatter.Writer, "assembled %d record(s)\n", inst.NumberOfRecords)
	return nil
}

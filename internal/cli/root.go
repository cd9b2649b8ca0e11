// Package cli implements the ods command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/odskit/internal/engine"
	"github.com/roach88/odskit/internal/journal"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ODSVersion  string // schema version, "latest" by default
	JournalPath string // sqlite operation journal, empty disables
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ods CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ods",
		Short: "ODS - Observation Data Set tooling",
		Long:  "Import, reconcile, check and export observation data set records.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ODSVersion, "ods-version", "latest", "ODS standard version")
	cmd.PersistentFlags().StringVar(&opts.JournalPath, "journal", "", "sqlite journal recording every mutation")

	// Add subcommands
	cmd.AddCommand(NewViewCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewCullCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewAssembleCommand(opts))
	cmd.AddCommand(NewMonitorCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter builds the command's output formatter from the global
// flags.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newEngine builds an engine from the global flags, opening the
// journal when one is configured. The returned cleanup closes it.
func newEngine(opts *RootOptions) (*engine.Engine, func(), error) {
	var j *journal.Journal
	cleanup := func() {}
	if opts.JournalPath != "" {
		var err error
		j, err = journal.Open(opts.JournalPath)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "opening journal", err)
		}
		cleanup = func() { _ = j.Close() }
	}
	e, err := engine.New(engine.Options{Version: opts.ODSVersion, Journal: j})
	if err != nil {
		cleanup()
		return nil, nil, WrapExitError(ExitCommandError, "initializing engine", err)
	}
	return e, cleanup, nil
}

// loadSource reads an ODS document (file path or URL) into the
// engine's working instance.
func loadSource(e *engine.Engine, source string) error {
	if err := e.ReadInto(source, ""); err != nil {
		return WrapExitError(ExitCommandError, "reading "+source, err)
	}
	return nil
}

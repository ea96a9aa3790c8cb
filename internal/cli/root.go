package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DBPath     string

	// Config is loaded before any subcommand runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sieve CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sieve",
		Short: "sieve - schema-aware record filters",
		Long: `Build filters from a collection's JSON Schema, evaluate them against
records, translate them into the backend query-filter grammar and carry
them through URL query strings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: sieve.yaml in the user config dir or .)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "view database path (overrides store.path)")

	cmd.AddCommand(NewOperatorsCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewTranslateCommand(opts))
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewURLCommand(opts))
	cmd.AddCommand(NewViewCommand(opts))

	return cmd
}

// setup loads configuration, applies it under the flags and installs the
// slog handler.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %v\n", ErrCodeLoadFailed, err)
		return WrapExitError(ExitCommandError, "loading config", err)
	}
	o.Config = cfg

	if !cmd.Flags().Changed("format") && cfg.Output.Format != "" {
		o.Format = cfg.Output.Format
	}
	if o.DBPath == "" {
		o.DBPath = cfg.Store.Path
	}
	if !isValidFormat(o.Format) {
		msg := fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats)
		fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %s\n", ErrCodeUsage, msg)
		return NewExitError(ExitCommandError, msg)
	}

	logLevel := slog.LevelWarn
	if o.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

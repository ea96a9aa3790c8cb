package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/compiler"
	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/schemaload"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Text   string // full-text term
	Output string // output file path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema> [descriptors]",
		Short: "Compile descriptors into a canonical filter",
		Long: `Compile (field, operator, value) descriptors into one canonical filter
whose members are OR-ed, or build the full-text filter with --text.

The descriptors file is JSON, YAML or CUE: a list of objects with field,
operator, value and an optional ref_path.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Text, "text", "", "build the full-text filter for this term")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	if (len(args) == 2) == (opts.Text != "") {
		return formatter.FailCode(ExitCommandError, ErrCodeUsage, errors.New("pass either a descriptors file or --text"))
	}

	root, err := schemaload.Schema(args[0])
	if err != nil {
		return formatter.Fail(err)
	}

	var filter *jsonschema.Schema
	if opts.Text != "" {
		filter, err = compiler.FullText(root, opts.Text)
	} else {
		var descriptors []compiler.Descriptor
		descriptors, err = LoadDescriptors(args[1])
		if err != nil {
			return formatter.Fail(err)
		}
		formatter.VerboseLog("compiling %d descriptor(s)", len(descriptors))
		filter, err = compiler.CreateFilter(root, descriptors)
	}
	if err != nil {
		return formatter.Fail(err)
	}

	if opts.Output != "" {
		if err := writeFilterToFile(filter, opts.Output); err != nil {
			return formatter.FailCode(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(filter)
	}
	if filter == nil {
		fmt.Fprintln(formatter.Writer, "(no filter: every value was empty)")
		return nil
	}
	text, err := renderJSON(filter)
	if err != nil {
		return formatter.Fail(err)
	}
	fmt.Fprintln(formatter.Writer, text)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote filter to %s\n", opts.Output)
	}
	return nil
}

// writeFilterToFile writes filter to a file as canonical JSON.
func writeFilterToFile(filter *jsonschema.Schema, filename string) error {
	data, err := jsonschema.MarshalCanonical(filter)
	if err != nil {
		return fmt.Errorf("marshaling filter: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

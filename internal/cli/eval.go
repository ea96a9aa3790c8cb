package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/evaluator"
	"github.com/roach88/sieve/internal/schemaload"
)

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <schema> <filters> <records>",
		Short: "Evaluate a filter set against records",
		Long: `Keep the records that satisfy every filter of the set. Records are a
JSON, YAML or CUE list of objects; output preserves their order.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			root, err := schemaload.Schema(args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			set, err := schemaload.Filters(args[1])
			if err != nil {
				return formatter.Fail(err)
			}
			records, err := schemaload.Records(args[2])
			if err != nil {
				return formatter.Fail(err)
			}

			matched, err := evaluator.Filter(root, set, records)
			if err != nil {
				return formatter.Fail(err)
			}
			formatter.VerboseLog("%d of %d record(s) matched", len(matched), len(records))

			if formatter.Format == "json" {
				return formatter.Success(matched)
			}
			text, err := renderJSON(matched)
			if err != nil {
				return formatter.Fail(err)
			}
			fmt.Fprintln(formatter.Writer, text)
			return nil
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/queryfilter"
	"github.com/roach88/sieve/internal/schemaload"
)

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <filters>",
		Short: "Translate a filter set into a query-filter object",
		Long: `Lower a filter set (a list of filters, or a single filter) into the
backend query-filter grammar. Multiple filters are AND-ed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			set, err := schemaload.Filters(args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			obj, err := queryfilter.TranslateSet(set)
			if err != nil {
				return formatter.Fail(err)
			}

			if formatter.Format == "json" {
				return formatter.Success(obj)
			}
			text, err := renderJSON(obj)
			if err != nil {
				return formatter.Fail(err)
			}
			fmt.Fprintln(formatter.Writer, text)
			return nil
		},
	}
}

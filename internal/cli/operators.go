package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/compiler"
	"github.com/roach88/sieve/internal/datatype"
	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/refscheme"
	"github.com/roach88/sieve/internal/schemaload"
)

// TargetOperators lists the operators available on one filter target.
type TargetOperators struct {
	Key       string              `json:"key"`
	Title     string              `json:"title"`
	Operators []datatype.Operator `json:"operators"`
}

// NewOperatorsCommand creates the operators command.
func NewOperatorsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "operators <schema> [key]",
		Short: "List filter targets and their operators",
		Long: `List every filterable target of a collection schema with its operator
table, or only the target named by key (a field or field___refPath).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperators(rootOpts, cmd, args)
		},
	}
}

func runOperators(opts *RootOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	root, err := schemaload.Schema(args[0])
	if err != nil {
		return formatter.Fail(err)
	}

	var targets []refscheme.Target
	if len(args) == 2 {
		tg, ok := refscheme.Resolve(root, args[1])
		if !ok {
			return formatter.Fail(filtererr.UnknownField(args[1]))
		}
		targets = []refscheme.Target{tg}
	} else if targets, err = refscheme.Targets(root); err != nil {
		return formatter.Fail(err)
	}

	result := make([]TargetOperators, 0, len(targets))
	for _, tg := range targets {
		ops, err := compiler.Operators(root, tg.Key)
		if filtererr.IsUnsupportedType(err) && len(args) == 1 {
			formatter.VerboseLog("skipping %s: %v", tg.Key, err)
			continue
		}
		if err != nil {
			return formatter.Fail(err)
		}
		result = append(result, TargetOperators{Key: tg.Key, Title: tg.Title, Operators: ops})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, r := range result {
		slugs := make([]string, len(r.Operators))
		for i, op := range r.Operators {
			slugs[i] = op.Slug
		}
		fmt.Fprintf(formatter.Writer, "%s (%s): %s\n", r.Key, r.Title, strings.Join(slugs, ", "))
	}
	return nil
}

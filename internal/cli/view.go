package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/schemaload"
	"github.com/roach88/sieve/internal/store"
	"github.com/roach88/sieve/internal/urlcodec"
	"github.com/roach88/sieve/internal/views"
)

// ViewOptions holds flags for the view commands.
type ViewOptions struct {
	*RootOptions
	Collection string // overrides store.collection
}

// ViewSummary is the output form of a saved view.
type ViewSummary struct {
	ID         string               `json:"id"`
	Collection string               `json:"collection"`
	Name       string               `json:"name"`
	Query      string               `json:"query"`
	FilterHash string               `json:"filter_hash"`
	Filters    jsonschema.FilterSet `json:"filters,omitempty"`
}

func summarize(v store.View) ViewSummary {
	return ViewSummary{
		ID:         v.ID,
		Collection: v.Collection,
		Name:       v.Name,
		Query:      v.Query,
		FilterHash: v.FilterHash,
	}
}

// NewViewCommand creates the view command group.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Save and open named filter sets",
	}
	cmd.PersistentFlags().StringVar(&opts.Collection, "collection", "", "collection the views belong to (overrides store.collection)")

	cmd.AddCommand(&cobra.Command{
		Use:   "save <schema> <name> <filters>",
		Short: "Save a filter set under a name",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewSave(opts, cmd, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <schema> <name>",
		Short: "Open a view against the current schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewShow(opts, cmd, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the views of the collection in save order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewDelete(opts, cmd, args[0])
		},
	})

	return cmd
}

func (o *ViewOptions) collection() string {
	if o.Collection != "" {
		return o.Collection
	}
	return o.Config.Store.Collection
}

// manager opens the store and builds a views.Manager. root may be nil for
// commands that never recompile a view.
func (o *ViewOptions) manager(root *jsonschema.Schema) (*views.Manager, *store.Store, error) {
	s, err := openStore(o.RootOptions)
	if err != nil {
		return nil, nil, err
	}
	var codecOpts []urlcodec.Option
	if o.Config.URL.LegacyRegexEscaping {
		codecOpts = append(codecOpts, urlcodec.WithLegacyRegexEscaping())
	}
	return views.NewManager(s, urlcodec.New(root, codecOpts...), o.collection()), s, nil
}

// failView maps view errors: a missing view is ErrCodeNotFound, other
// errors keep their own classification.
func failView(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrViewNotFound) {
		return formatter.FailCode(ExitCommandError, ErrCodeNotFound, err)
	}
	if errors.Is(err, views.ErrEmptyName) {
		return formatter.FailCode(ExitCommandError, ErrCodeUsage, err)
	}
	return formatter.Fail(err)
}

func runViewSave(opts *ViewOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	root, err := schemaload.Schema(args[0])
	if err != nil {
		return formatter.Fail(err)
	}
	set, err := schemaload.Filters(args[2])
	if err != nil {
		return formatter.Fail(err)
	}

	m, s, err := opts.manager(root)
	if err != nil {
		return formatter.FailCode(ExitCommandError, ErrCodeStoreFailed, err)
	}
	defer s.Close()

	v, err := m.Save(cmd.Context(), args[1], set)
	if err != nil {
		return failView(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(summarize(v))
	}
	fmt.Fprintf(formatter.Writer, "✓ Saved view %s (%s)\n", v.Name, v.ID)
	fmt.Fprintf(formatter.Writer, "  ?%s\n", v.Query)
	return nil
}

func runViewShow(opts *ViewOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	root, err := schemaload.Schema(args[0])
	if err != nil {
		return formatter.Fail(err)
	}
	m, s, err := opts.manager(root)
	if err != nil {
		return formatter.FailCode(ExitCommandError, ErrCodeStoreFailed, err)
	}
	defer s.Close()

	v, err := m.Get(cmd.Context(), args[1])
	if err != nil {
		return failView(formatter, err)
	}
	set, err := m.Open(cmd.Context(), args[1])
	if err != nil {
		return failView(formatter, err)
	}

	summary := summarize(v)
	summary.Filters = set
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	text, err := canonicalSet(set)
	if err != nil {
		return formatter.Fail(err)
	}
	fmt.Fprintf(formatter.Writer, "%s (%s)\n  ?%s\n%s\n", v.Name, v.ID, v.Query, text)
	return nil
}

func runViewList(opts *ViewOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, s, err := opts.manager(nil)
	if err != nil {
		return formatter.FailCode(ExitCommandError, ErrCodeStoreFailed, err)
	}
	defer s.Close()

	list, err := m.List(cmd.Context())
	if err != nil {
		return formatter.FailCode(ExitCommandError, ErrCodeStoreFailed, err)
	}

	summaries := make([]ViewSummary, len(list))
	for i, v := range list {
		summaries[i] = summarize(v)
	}
	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintf(formatter.Writer, "No views in %s\n", opts.collection())
		return nil
	}
	for _, v := range summaries {
		fmt.Fprintf(formatter.Writer, "%s\t?%s\n", v.Name, v.Query)
	}
	return nil
}

func runViewDelete(opts *ViewOptions, cmd *cobra.Command, name string) error {
	formatter := opts.formatter(cmd)

	m, s, err := opts.manager(nil)
	if err != nil {
		return formatter.FailCode(ExitCommandError, ErrCodeStoreFailed, err)
	}
	defer s.Close()

	if err := m.Delete(cmd.Context(), name); err != nil {
		return failView(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"deleted": name})
	}
	fmt.Fprintf(formatter.Writer, "✓ Deleted view %s\n", name)
	return nil
}

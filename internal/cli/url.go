package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/schemaload"
	"github.com/roach88/sieve/internal/store"
	"github.com/roach88/sieve/internal/urlcodec"
)

// URLOptions holds flags for the url commands.
type URLOptions struct {
	*RootOptions
	Remember bool // persist the query as the collection's last query
}

// DecodeResult is the output of url decode.
type DecodeResult struct {
	Query   string               `json:"query"`
	Filters jsonschema.FilterSet `json:"filters"`
	Cleared bool                 `json:"cleared"`
}

// queryNavigator is a location holding only a search string.
type queryNavigator struct {
	search   string
	replaced bool
}

func (n *queryNavigator) Search() string { return n.search }

func (n *queryNavigator) Replace(search string) error {
	n.search, n.replaced = search, true
	return nil
}

// NewURLCommand creates the url command group.
func NewURLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &URLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Encode and decode filter sets as URL query strings",
	}
	cmd.PersistentFlags().BoolVar(&opts.Remember, "remember", false, "store the query as the last query of the collection")

	cmd.AddCommand(&cobra.Command{
		Use:   "encode <schema> <filters>",
		Short: "Encode a filter set as a query string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runURLEncode(opts, cmd, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <schema> [query]",
		Short: "Restore a filter set from a query string",
		Long: `Restore a filter set from a query string. An invalid query yields an
empty set and is reported as cleared. With --remember, a missing query
falls back to the collection's last query and an invalid one is forgotten.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runURLDecode(opts, cmd, args)
		},
	})

	return cmd
}

func (o *URLOptions) codec(root *jsonschema.Schema) *urlcodec.Codec {
	var codecOpts []urlcodec.Option
	if o.Config != nil && o.Config.URL.LegacyRegexEscaping {
		codecOpts = append(codecOpts, urlcodec.WithLegacyRegexEscaping())
	}
	return urlcodec.New(root, codecOpts...)
}

func (o *URLOptions) lastQueryKey() string {
	return "last-query:" + o.Config.Store.Collection
}

func runURLEncode(opts *URLOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	root, err := schemaload.Schema(args[0])
	if err != nil {
		return formatter.Fail(err)
	}
	set, err := schemaload.Filters(args[1])
	if err != nil {
		return formatter.Fail(err)
	}

	var query string
	if opts.Remember {
		s, err := openStore(opts.RootOptions)
		if err != nil {
			return formatter.FailCode(ExitCommandError, ErrCodeStoreFailed, err)
		}
		defer s.Close()

		nav := &queryNavigator{}
		session := urlcodec.NewSession(opts.codec(root), nav, s, opts.lastQueryKey())
		if err := session.Save(cmd.Context(), set); err != nil {
			return formatter.Fail(err)
		}
		query = nav.search
	} else if query, err = urlcodec.EncodeQuery(set); err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"query": query})
	}
	fmt.Fprintln(formatter.Writer, query)
	return nil
}

func runURLDecode(opts *URLOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	root, err := schemaload.Schema(args[0])
	if err != nil {
		return formatter.Fail(err)
	}
	var query string
	if len(args) == 2 {
		query = args[1]
	}

	var result DecodeResult
	if opts.Remember {
		s, err := openStore(opts.RootOptions)
		if err != nil {
			return formatter.FailCode(ExitCommandError, ErrCodeStoreFailed, err)
		}
		defer s.Close()

		nav := &queryNavigator{search: query}
		session := urlcodec.NewSession(opts.codec(root), nav, s, opts.lastQueryKey())
		result.Filters = session.Load(cmd.Context())
		result.Query = query
		result.Cleared = nav.replaced
	} else {
		result.Query = query
		result.Filters, result.Cleared = opts.codec(root).Restore(query)
	}
	formatter.VerboseLog("restored %d filter(s)", len(result.Filters))

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if result.Cleared {
		fmt.Fprintln(formatter.Writer, "Query is invalid for this schema; filters cleared")
		return nil
	}
	text, err := canonicalSet(result.Filters)
	if err != nil {
		return formatter.Fail(err)
	}
	fmt.Fprintln(formatter.Writer, text)
	return nil
}

// openStore opens the view database named by the --db flag or config.
func openStore(opts *RootOptions) (*store.Store, error) {
	s, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", opts.DBPath, err)
	}
	return s, nil
}


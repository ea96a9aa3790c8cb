// Package evaluator applies a filter set to in-memory records.
//
// Filters in a set are AND-ed; the members of one filter's anyOf are OR-ed.
// Each filter is checked with JSON-Schema validation semantics over the
// keywords sieve produces. The full-text filter skips tree evaluation and
// matches a case-folded substring against each record's display values.
package evaluator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/sieve/internal/compiler"
	"github.com/roach88/sieve/internal/datatype"
	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/refscheme"
)

// Record is one element of the evaluated collection.
type Record = map[string]any

// DisplayFunc renders the single display value a full-text search matches
// against.
type DisplayFunc func(Record) string

// Evaluator filters records against a collection schema.
type Evaluator struct {
	root    *jsonschema.Schema
	display DisplayFunc
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithDisplayValue makes full-text search match against fn's output instead
// of every filterable field.
func WithDisplayValue(fn DisplayFunc) Option {
	return func(e *Evaluator) {
		e.display = fn
	}
}

// New creates an Evaluator for records described by root.
func New(root *jsonschema.Schema, opts ...Option) *Evaluator {
	e := &Evaluator{root: root}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Filter returns the records accepted by every filter in set, in their
// original order. Neither the set nor the records are modified.
func Filter(root *jsonschema.Schema, set jsonschema.FilterSet, records []Record, opts ...Option) ([]Record, error) {
	return New(root, opts...).Filter(set, records)
}

// Filter returns the records accepted by every filter in set.
func (e *Evaluator) Filter(set jsonschema.FilterSet, records []Record) ([]Record, error) {
	run := &evaluation{evaluator: e, patterns: map[string]*regexp.Regexp{}}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		ok, err := run.matches(set, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Matches reports whether one record satisfies every filter in set.
func (e *Evaluator) Matches(set jsonschema.FilterSet, rec Record) (bool, error) {
	run := &evaluation{evaluator: e, patterns: map[string]*regexp.Regexp{}}
	return run.matches(set, rec)
}

// evaluation holds per-call caches.
type evaluation struct {
	evaluator *Evaluator
	patterns  map[string]*regexp.Regexp
	targets   []refscheme.Target
	targetsOK bool
}

func (r *evaluation) matches(set jsonschema.FilterSet, rec Record) (bool, error) {
	value := jsonschema.Normalize(map[string]any(rec))
	for _, f := range set {
		if f == nil {
			continue
		}
		var ok bool
		var err error
		if term, isFullText := compiler.FullTextTerm(f); isFullText {
			ok, err = r.fullText(term, rec)
		} else {
			ok, err = r.validate(f, value)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (r *evaluation) fullText(term string, rec Record) (bool, error) {
	folder := cases.Fold()
	needle := folder.String(term)

	if r.evaluator.display != nil {
		return strings.Contains(folder.String(r.evaluator.display(rec)), needle), nil
	}

	if !r.targetsOK {
		targets, err := refscheme.Targets(r.evaluator.root)
		if err != nil {
			return false, err
		}
		r.targets, r.targetsOK = targets, true
	}
	for _, tg := range r.targets {
		for _, s := range DisplayStrings(tg.Schema, tg.RefPath, rec[tg.Field]) {
			if strings.Contains(folder.String(s), needle) {
				return true, nil
			}
		}
	}
	return false, nil
}

// DisplayStrings renders a field value the way it is shown to users:
// scalars as text, oneOf consts as their branch title, reference fields as
// the referenced leaf values. Arrays contribute every element and objects
// every scalar member.
func DisplayStrings(prop *jsonschema.Schema, refPath string, value any) []string {
	leaf := prop
	values := []any{jsonschema.Normalize(value)}
	if refPath != "" {
		if l, err := refscheme.Lookup(prop, refPath); err == nil {
			leaf = l
		}
		for _, seg := range strings.Split(refPath, ".") {
			name := seg
			if i := strings.IndexByte(seg, '['); i >= 0 {
				name = seg[:i]
			}
			var next []any
			for _, v := range flatten(values) {
				if m, ok := v.(map[string]any); ok {
					if child, present := m[name]; present {
						next = append(next, child)
					}
				}
			}
			values = next
		}
	}

	oneOf, titled := datatype.For(leaf).(datatype.OneOf)
	var out []string
	for _, v := range flatten(values) {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any:
			out = append(out, objectStrings(val)...)
			continue
		}
		if titled {
			if title, ok := oneOf.BranchTitle(v); ok {
				out = append(out, title)
				continue
			}
		}
		out = append(out, jsonschema.Stringify(v))
	}
	return out
}

func objectStrings(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		switch v := obj[k].(type) {
		case nil, []any:
		case map[string]any:
			out = append(out, objectStrings(v)...)
		default:
			out = append(out, jsonschema.Stringify(v))
		}
	}
	return out
}

func flatten(values []any) []any {
	var out []any
	for _, v := range values {
		if list, ok := v.([]any); ok {
			out = append(out, flatten(list)...)
			continue
		}
		out = append(out, v)
	}
	return out
}

func (r *evaluation) compile(pattern, flags string) (*regexp.Regexp, error) {
	switch flags {
	case "":
	case datatype.FlagCaseInsensitive:
		pattern = "(?i)" + pattern
	default:
		return nil, filtererr.UnsupportedRegexFlag(flags)
	}
	if re, ok := r.patterns[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	r.patterns[pattern] = re
	return re, nil
}

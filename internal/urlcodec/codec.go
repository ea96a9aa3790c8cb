// Package urlcodec persists filter sets in a URL query string.
//
// Each filter becomes a group of {n, o, v} triples: the field, the operator
// and the value of every anyOf member. The full-text filter becomes a
// single triple whose field and operator are the full-text sentinel. An
// optional r member carries the reference path of a composite key.
//
// Decoding types back strings that look like numbers, booleans or null,
// and every triple must name a declared field and a single-token operator.
// Restore discards the whole set when any group is
// invalid and tells the caller to clear the stored query.
package urlcodec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/sieve/internal/compiler"
	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/refscheme"
)

// Triple is the serialized form of one filter member.
type Triple struct {
	Field    string `json:"n"`
	Operator string `json:"o"`
	Value    any    `json:"v"`
	RefPath  string `json:"r,omitempty"`
}

// Key returns the descriptor key of the triple: the field, or the
// composite field___path key when a reference path is present.
func (t Triple) Key() string {
	return refscheme.Key(t.Field, t.RefPath)
}

// Codec encodes and decodes filter sets for one collection schema.
type Codec struct {
	root   *jsonschema.Schema
	legacy bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithLegacyRegexEscaping quotes pattern-based values once more on every
// restore, so a set that is repeatedly restored and saved without edits
// escapes its patterns again each cycle. This reproduces the historical
// behavior for compatibility checks; the default restore is idempotent.
func WithLegacyRegexEscaping() Option {
	return func(c *Codec) {
		c.legacy = true
	}
}

// New creates a Codec for records described by root.
func New(root *jsonschema.Schema, opts ...Option) *Codec {
	c := &Codec{root: root}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode maps a filter set to its triple groups.
func Encode(set jsonschema.FilterSet) ([][]Triple, error) {
	groups := make([][]Triple, 0, len(set))
	for i, f := range set {
		if f == nil {
			continue
		}
		if term, ok := compiler.FullTextTerm(f); ok {
			groups = append(groups, []Triple{{Field: compiler.FullTextID, Operator: compiler.FullTextID, Value: term}})
			continue
		}

		descriptors, ok := compiler.Descriptors(f)
		if !ok {
			return nil, fmt.Errorf("filter %d: members carry no descriptor", i)
		}
		group := make([]Triple, 0, len(descriptors))
		for _, d := range descriptors {
			field, refPath := refscheme.SplitKey(d.Field)
			group = append(group, Triple{Field: field, Operator: d.Operator, Value: d.Value, RefPath: refPath})
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// EncodeQuery maps a filter set to a query string, without the leading "?".
// An empty set encodes to "".
func EncodeQuery(set jsonschema.FilterSet) (string, error) {
	groups, err := Encode(set)
	if err != nil {
		return "", err
	}
	root := make([]any, len(groups))
	for i, g := range groups {
		list := make([]any, len(g))
		for j, t := range g {
			obj := orderedObject{{"n", t.Field}, {"o", t.Operator}, {"v", jsonschema.Normalize(t.Value)}}
			if t.RefPath != "" {
				obj = append(obj, member{"r", t.RefPath})
			}
			list[j] = obj
		}
		root[i] = list
	}
	return stringifyQuery(root), nil
}

// Decode parses a query string into triple groups and validates them
// against root. Any malformed or invalid entry fails the whole decode with
// a filtererr.ErrCodeInvalidURLState error.
func Decode(root *jsonschema.Schema, query string) ([][]Triple, error) {
	return New(root).Decode(query)
}

// Restore decodes a query string and recompiles it into a filter set.
// On any failure the set is empty and clear is true.
func Restore(root *jsonschema.Schema, query string) (jsonschema.FilterSet, bool) {
	return New(root).Restore(query)
}

// Decode parses and validates a query string.
func (c *Codec) Decode(query string) ([][]Triple, error) {
	tree, err := parseQuery(query)
	if err != nil {
		return nil, err
	}

	var rawGroups []any
	switch v := tree.(type) {
	case []any:
		rawGroups = v
	case map[string]any:
		if len(v) > 0 {
			return nil, filtererr.New(filtererr.ErrCodeInvalidURLState, "query is not a list of filters")
		}
	default:
		return nil, filtererr.New(filtererr.ErrCodeInvalidURLState, "query is not a list of filters")
	}

	groups := make([][]Triple, 0, len(rawGroups))
	for i, rg := range rawGroups {
		list, ok := rg.([]any)
		if !ok || len(list) == 0 {
			return nil, filtererr.New(filtererr.ErrCodeInvalidURLState, "filter %d is not a list of triples", i)
		}
		group := make([]Triple, 0, len(list))
		for j, rt := range list {
			t, err := c.triple(rt)
			if err != nil {
				return nil, fmt.Errorf("filter %d member %d: %w", i, j, err)
			}
			group = append(group, t)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (c *Codec) triple(raw any) (Triple, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Triple{}, filtererr.New(filtererr.ErrCodeInvalidURLState, "triple is not an object")
	}
	field, _ := obj["n"].(string)
	operator, _ := obj["o"].(string)
	refPath, _ := obj["r"].(string)

	if field != compiler.FullTextID && c.root.Property(field) == nil {
		e := filtererr.New(filtererr.ErrCodeInvalidURLState, "unknown field")
		e.Field = field
		return Triple{}, e
	}
	if !singleToken(operator) {
		e := filtererr.New(filtererr.ErrCodeInvalidURLState, "operator must be a single token")
		e.Field, e.Operator = field, operator
		return Triple{}, e
	}
	return Triple{Field: field, Operator: operator, Value: typed(obj["v"]), RefPath: refPath}, nil
}

func singleToken(s string) bool {
	return s != "" && len(strings.Fields(s)) == 1 && strings.TrimSpace(s) == s
}

// typed converts scalar-looking strings back into their JSON types: a
// finite number, true, false, null or undefined. Lists and objects are
// converted member by member.
func typed(v any) any {
	switch val := v.(type) {
	case string:
		switch val {
		case "true":
			return true
		case "false":
			return false
		case "null", "undefined":
			return nil
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = typed(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = typed(e)
		}
		return out
	default:
		return val
	}
}

// Restore decodes and recompiles a query string. A failure at any step
// yields an empty set and clear=true; an empty query yields an empty set
// and clear=false.
func (c *Codec) Restore(query string) (jsonschema.FilterSet, bool) {
	set, err := c.restore(query)
	if err != nil {
		return jsonschema.FilterSet{}, true
	}
	return set, false
}

// RestoreErr is Restore with the cause of a failure reported.
func (c *Codec) RestoreErr(query string) (jsonschema.FilterSet, error) {
	return c.restore(query)
}

func (c *Codec) restore(query string) (jsonschema.FilterSet, error) {
	groups, err := c.Decode(query)
	if err != nil {
		return nil, err
	}

	set := jsonschema.FilterSet{}
	for i, g := range groups {
		var f *jsonschema.Schema
		var err error
		if len(g) == 1 && g[0].Field == compiler.FullTextID && g[0].Operator == compiler.FullTextID {
			f, err = compiler.FullText(c.root, termOf(g[0].Value))
		} else {
			f, err = compiler.CreateFilter(c.root, c.descriptors(g))
		}
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		if f != nil {
			set = append(set, f)
		}
	}
	return set, nil
}

func (c *Codec) descriptors(g []Triple) []compiler.Descriptor {
	out := make([]compiler.Descriptor, len(g))
	for i, t := range g {
		v := t.Value
		if c.legacy && isPatternOperator(t.Operator) {
			if s, ok := v.(string); ok {
				v = regexp.QuoteMeta(s)
			}
		}
		out[i] = compiler.Descriptor{Field: t.Key(), Operator: t.Operator, Value: v}
	}
	return out
}

// isPatternOperator reports whether operator compiles its value into an
// escaped regexp.
func isPatternOperator(operator string) bool {
	for _, suffix := range []string{"contains", "starts_with", "ends_with"} {
		if strings.HasSuffix(operator, suffix) {
			return true
		}
	}
	return false
}

func termOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return jsonschema.Stringify(v)
}

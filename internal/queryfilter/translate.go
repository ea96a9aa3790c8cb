// Package queryfilter lowers canonical filters into the backend's nested
// query-filter grammar.
//
// Lowering is recursive and path-accumulating. The translator carries
// parentKeys, the ordered path segments leading to the node being lowered,
// and wraps leaf comparisons into nested single-key objects:
//
//	WrapValue([]string{"a", "b"}, x) == {"a": {"b": x}}
//
// Inside an array exists-check the path restarts at a short alias derived
// from the array's property name, so fields at different array depths
// never collide.
//
// Output keys are limited to $and $or $not $any $alias $expr $contains
// $startswith $endswith $tolower $lt $le $gt $ge $ne $in $count, plus the
// field reference key $ used where a function operand names a field.
package queryfilter

import (
	"fmt"
	"strings"

	"github.com/roach88/sieve/internal/datatype"
	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/jsonschema"
)

// Object is a query-filter object: nested plain maps, lists and scalars.
type Object = map[string]any

// Grammar keys.
const (
	KeyAnd        = "$and"
	KeyOr         = "$or"
	KeyNot        = "$not"
	KeyAny        = "$any"
	KeyAlias      = "$alias"
	KeyExpr       = "$expr"
	KeyContains   = "$contains"
	KeyStartsWith = "$startswith"
	KeyEndsWith   = "$endswith"
	KeyToLower    = "$tolower"
	KeyLt         = "$lt"
	KeyLe         = "$le"
	KeyGt         = "$gt"
	KeyGe         = "$ge"
	KeyNe         = "$ne"
	KeyIn         = "$in"
	KeyCount      = "$count"
	KeyField      = "$"
)

// Translator lowers canonical filters. The zero value is ready to use and
// it holds no state between calls.
type Translator struct{}

// NewTranslator creates a Translator.
func NewTranslator() *Translator {
	return &Translator{}
}

// Translate lowers one canonical filter.
func Translate(filter *jsonschema.Schema) (Object, error) {
	return NewTranslator().Translate(filter)
}

// TranslateSet lowers a filter set: several filters are AND-ed, a single
// filter unwraps, and an empty set lowers to the always-true {}.
func TranslateSet(set jsonschema.FilterSet) (Object, error) {
	return NewTranslator().TranslateSet(set)
}

// Translate lowers one canonical filter. The input is never modified.
func (t *Translator) Translate(filter *jsonschema.Schema) (Object, error) {
	if filter == nil {
		return nil, fmt.Errorf("cannot translate nil filter")
	}
	out, err := t.convert(filter, nil)
	if err != nil {
		return nil, fmt.Errorf("translate filter: %w", err)
	}
	obj, ok := out.(Object)
	if !ok {
		return nil, filtererr.New(filtererr.ErrCodeUnsupportedShape, "filter lowers to a bare value %v", out)
	}
	return obj, nil
}

// TranslateSet lowers a filter set.
func (t *Translator) TranslateSet(set jsonschema.FilterSet) (Object, error) {
	var terms []any
	for i, f := range set {
		if f == nil {
			continue
		}
		obj, err := t.Translate(f)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		terms = append(terms, obj)
	}
	return group(KeyAnd, terms).(Object), nil
}

// convert dispatches on the node shape; the first matching rule wins.
func (t *Translator) convert(node *jsonschema.Schema, parentKeys []string) (any, error) {
	switch {
	case hasGrouping(node):
		return t.convertGrouping(node, parentKeys)
	case node.AnyOf != nil || node.OneOf != nil || node.AllOf != nil:
		return t.convertCombinators(node, parentKeys)
	case node.Contains != nil || node.Items != nil:
		return t.convertArray(node, parentKeys)
	case node.Properties != nil:
		return t.convertProperties(node, parentKeys)
	case node.Not != nil && node.Not.Const != nil:
		return WrapValue(parentKeys, Object{KeyNe: node.Not.Const.Value}), nil
	case node.Not != nil:
		inner, err := t.convert(node.Not, parentKeys)
		if err != nil {
			return nil, err
		}
		return Object{KeyNot: inner}, nil
	default:
		return t.convertLeaf(node, parentKeys)
	}
}

func hasGrouping(node *jsonschema.Schema) bool {
	_, and := node.Extra[KeyAnd]
	_, or := node.Extra[KeyOr]
	return and || or
}

// convertGrouping recurses into nodes that already carry $and/$or.
func (t *Translator) convertGrouping(node *jsonschema.Schema, parentKeys []string) (any, error) {
	var groups []any
	for _, key := range []string{KeyAnd, KeyOr} {
		if _, ok := node.Extra[key]; !ok {
			continue
		}
		children, ok := node.ExtraSchemas(key)
		if !ok {
			return nil, filtererr.New(filtererr.ErrCodeUnsupportedShape, "%s must be a list of filters", key)
		}
		terms, err := t.convertAll(children, parentKeys)
		if err != nil {
			return nil, err
		}
		groups = append(groups, Object{key: terms})
	}
	return group(KeyAnd, groups), nil
}

// convertCombinators maps anyOf/oneOf to $or and allOf to $and, passing the
// same parentKeys to every child.
func (t *Translator) convertCombinators(node *jsonschema.Schema, parentKeys []string) (any, error) {
	var groups []any
	for _, c := range []struct {
		op       string
		children []*jsonschema.Schema
	}{
		{KeyOr, node.AnyOf},
		{KeyOr, node.OneOf},
		{KeyAnd, node.AllOf},
	} {
		if c.children == nil {
			continue
		}
		terms, err := t.convertAll(c.children, parentKeys)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group(c.op, terms))
	}
	return group(KeyAnd, groups), nil
}

// convertArray lowers an array constraint into an optional cardinality guard
// and an exists-check over an alias-scoped element path.
func (t *Translator) convertArray(node *jsonschema.Schema, parentKeys []string) (any, error) {
	alias := Alias(last(parentKeys))

	var terms []any
	if node.MinItems != nil && *node.MinItems > 1 {
		terms = append(terms, Object{KeyGe: []any{
			Object{KeyCount: Object{KeyField: fieldRef(parentKeys)}},
			float64(*node.MinItems),
		}})
	}
	if node.Contains != nil {
		inner, err := t.convert(node.Contains, []string{alias})
		if err != nil {
			return nil, err
		}
		terms = append(terms, WrapValue(parentKeys, Object{KeyAny: Object{
			KeyAlias: alias,
			KeyExpr:  inner,
		}}))
	}
	return group(KeyAnd, terms), nil
}

// convertProperties ANDs every property's lowering, in sorted key order,
// with parentKeys extended by the property name.
func (t *Translator) convertProperties(node *jsonschema.Schema, parentKeys []string) (any, error) {
	var terms []any
	for _, key := range node.PropertyKeys() {
		out, err := t.convert(node.Properties[key], extend(parentKeys, key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		terms = append(terms, out)
	}
	return group(KeyAnd, terms), nil
}

func (t *Translator) convertLeaf(node *jsonschema.Schema, parentKeys []string) (any, error) {
	if node.Const != nil {
		return WrapValue(parentKeys, node.Const.Value), nil
	}
	if node.Enum != nil {
		return WrapValue(parentKeys, Object{KeyIn: append([]any{}, node.Enum...)}), nil
	}
	if node.Regexp != nil || node.Pattern != "" {
		return t.convertPattern(node, parentKeys)
	}

	var terms []any
	for _, cmp := range []struct {
		op     string
		number *float64
		format string
	}{
		{KeyLt, node.ExclusiveMaximum, node.FormatExclusiveMaximum},
		{KeyLe, node.Maximum, node.FormatMaximum},
		{KeyGt, node.ExclusiveMinimum, node.FormatExclusiveMinimum},
		{KeyGe, node.Minimum, node.FormatMinimum},
	} {
		if cmp.number != nil {
			terms = append(terms, WrapValue(parentKeys, Object{cmp.op: *cmp.number}))
		}
		if cmp.format != "" {
			terms = append(terms, WrapValue(parentKeys, Object{cmp.op: cmp.format}))
		}
	}
	if len(terms) == 0 {
		return nil, filtererr.New(filtererr.ErrCodeUnsupportedShape, "no convertible keyword in %s", describe(node))
	}
	return group(KeyAnd, terms), nil
}

func (t *Translator) convertPattern(node *jsonschema.Schema, parentKeys []string) (any, error) {
	pattern, flags := node.Pattern, ""
	if node.Regexp != nil {
		pattern, flags = node.Regexp.Pattern, node.Regexp.Flags
	}

	switch node.Comment {
	case datatype.MarkerStartsWith:
		return WrapValue(parentKeys, Object{KeyStartsWith: Unescape(strings.TrimPrefix(pattern, "^"))}), nil
	case datatype.MarkerEndsWith:
		return WrapValue(parentKeys, Object{KeyEndsWith: Unescape(strings.TrimSuffix(pattern, "$"))}), nil
	}

	switch flags {
	case datatype.FlagCaseInsensitive:
		return Object{KeyContains: []any{
			Object{KeyToLower: Object{KeyField: fieldRef(parentKeys)}},
			Object{KeyToLower: Unescape(pattern)},
		}}, nil
	case "":
		return WrapValue(parentKeys, Object{KeyContains: Unescape(pattern)}), nil
	default:
		return nil, filtererr.UnsupportedRegexFlag(flags)
	}
}

func (t *Translator) convertAll(nodes []*jsonschema.Schema, parentKeys []string) ([]any, error) {
	terms := make([]any, 0, len(nodes))
	for i, n := range nodes {
		out, err := t.convert(n, parentKeys)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		terms = append(terms, out)
	}
	return terms, nil
}

// group combines terms under op. A single term unwraps; no terms yield the
// always-true stub {} so a surrounding AND stays well-formed.
func group(op string, terms []any) any {
	switch len(terms) {
	case 0:
		return Object{}
	case 1:
		return terms[0]
	default:
		return Object{op: terms}
	}
}

// WrapValue nests v under keys: WrapValue([a b], v) == {a: {b: v}}.
// With no keys v is returned unchanged.
func WrapValue(keys []string, v any) any {
	for i := len(keys) - 1; i >= 0; i-- {
		v = Object{keys[i]: v}
	}
	return v
}

// Alias derives the element alias of an array property: the first letter
// of each underscore-separated word.
//
//	Alias("is_for__device_type") == "ifdt"
func Alias(name string) string {
	var b strings.Builder
	for _, word := range strings.Split(name, "_") {
		if word != "" {
			b.WriteString(word[:1])
		}
	}
	if b.Len() == 0 {
		return "el"
	}
	return b.String()
}

// Unescape removes regexp escaping: every backslash is dropped and the
// character after it is kept literally.
func Unescape(pattern string) string {
	if !strings.Contains(pattern, `\`) {
		return pattern
	}
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '\\' && i+1 < len(pattern) {
			i++
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}

// fieldRef is the $ operand naming the field at path: a plain name for a
// single segment, a list otherwise.
func fieldRef(path []string) any {
	if len(path) == 1 {
		return path[0]
	}
	out := make([]any, len(path))
	for i, p := range path {
		out[i] = p
	}
	return out
}

func extend(path []string, key string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, key)
}

func last(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

func describe(node *jsonschema.Schema) string {
	b, err := jsonschema.MarshalCanonical(node)
	if err != nil {
		return "node"
	}
	return string(b)
}

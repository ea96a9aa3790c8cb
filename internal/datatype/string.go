package datatype

import (
	"regexp"

	"github.com/roach88/sieve/internal/jsonschema"
)

// Comment markers for anchored patterns.
const (
	MarkerStartsWith = "starts_with"
	MarkerEndsWith   = "ends_with"
)

// FlagCaseInsensitive is the only supported regexp flag.
const FlagCaseInsensitive = "i"

var stringOperators = []Operator{
	{OpIs, "is"},
	{OpIsNot, "is not"},
	{OpContains, "contains"},
	{OpNotContains, "does not contain"},
	{OpMatchesRe, "matches RegEx"},
	{OpNotMatchesRe, "does not match RegEx"},
}

// String is the string kind.
type String struct{}

func (String) dataType() {}

// Kind implements DataType.
func (String) Kind() Kind { return KindString }

// Operators implements DataType.
func (String) Operators() []Operator { return stringOperators }

// CreateFilter implements DataType.
//
// An empty value on is, contains and matches_re matches "" or null; their
// negations match values that are neither, and require the field.
// starts_with and ends_with (and their negations) are accepted for the
// key/value object mode even though they are not listed operators.
func (String) CreateFilter(field, operator string, value any) *jsonschema.Schema {
	if operator == FullTextSearch {
		operator = OpContains
	}
	s := stringValue(value)

	switch operator {
	case OpIs, OpContains, OpMatchesRe:
		if s == "" {
			return jsonschema.Object(field, emptyOrNull(), false)
		}
	case OpIsNot, OpNotContains, OpNotMatchesRe:
		if s == "" {
			return jsonschema.Object(field, &jsonschema.Schema{Not: emptyOrNull()}, true)
		}
	}

	switch operator {
	case OpIs:
		return positive(field, constOf(s))
	case OpIsNot:
		return negative(field, constOf(s))
	case OpContains:
		return positive(field, caseInsensitive(s))
	case OpNotContains:
		return negative(field, caseInsensitive(s))
	case OpMatchesRe:
		return positive(field, &jsonschema.Schema{Pattern: s})
	case OpNotMatchesRe:
		return negative(field, &jsonschema.Schema{Pattern: s})
	case opStartsWith:
		return positive(field, anchored(s, MarkerStartsWith))
	case opNotStartsWith:
		return negative(field, anchored(s, MarkerStartsWith))
	case opEndsWith:
		return positive(field, anchored(s, MarkerEndsWith))
	case opNotEndsWith:
		return negative(field, anchored(s, MarkerEndsWith))
	default:
		return empty()
	}
}

func stringValue(v any) string {
	switch val := jsonschema.Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return jsonschema.Stringify(val)
	}
}

func emptyOrNull() *jsonschema.Schema {
	return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{constOf(""), constOf(nil)}}
}

// caseInsensitive builds the escaped substring constraint
// {regexp: {pattern, flags: "i"}}.
func caseInsensitive(s string) *jsonschema.Schema {
	return &jsonschema.Schema{Regexp: &jsonschema.Regexp{
		Pattern: regexp.QuoteMeta(s),
		Flags:   FlagCaseInsensitive,
	}}
}

func anchored(s, marker string) *jsonschema.Schema {
	pattern := regexp.QuoteMeta(s)
	if marker == MarkerStartsWith {
		pattern = "^" + pattern
	} else {
		pattern += "$"
	}
	return &jsonschema.Schema{
		Comment: marker,
		Regexp:  &jsonschema.Regexp{Pattern: pattern, Flags: FlagCaseInsensitive},
	}
}

package datatype

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/sieve/internal/jsonschema"
)

var enumOperators = []Operator{
	{OpIs, "is"},
	{OpIsNot, "is not"},
}

// Enum is the kind of properties declaring "enum".
type Enum struct{}

func (Enum) dataType() {}

// Kind implements DataType.
func (Enum) Kind() Kind { return KindEnum }

// Operators implements DataType.
func (Enum) Operators() []Operator { return enumOperators }

// CreateFilter implements DataType. The value {not: X} on "is" negates the
// whole property check rather than the comparison.
func (Enum) CreateFilter(field, operator string, value any) *jsonschema.Schema {
	switch operator {
	case FullTextSearch:
		return positive(field, caseInsensitive(stringValue(value)))
	case OpIs:
		if inner, ok := negatedValue(value); ok {
			return &jsonschema.Schema{Not: positive(field, constOf(inner))}
		}
		return positive(field, constOf(value))
	case OpIsNot:
		return negative(field, constOf(value))
	default:
		return empty()
	}
}

// OneOf is the kind of properties declaring "oneOf" branches.
type OneOf struct {
	branches []*jsonschema.Schema
}

func (OneOf) dataType() {}

// Kind implements DataType.
func (OneOf) Kind() Kind { return KindOneOf }

// Operators implements DataType.
func (OneOf) Operators() []Operator { return enumOperators }

// CreateFilter implements DataType. String values holding a JSON literal
// are decoded first. Full-text search maps matching branch titles to an
// enum over their consts.
func (t OneOf) CreateFilter(field, operator string, value any) *jsonschema.Schema {
	if operator == FullTextSearch {
		consts, ok := t.matchTitles(stringValue(value))
		if !ok || len(consts) == 0 {
			return empty()
		}
		return positive(field, &jsonschema.Schema{Enum: consts})
	}

	v := literalValue(value)
	switch operator {
	case OpIs:
		if inner, ok := negatedValue(v); ok {
			return &jsonschema.Schema{Not: positive(field, constOf(inner))}
		}
		return positive(field, constOf(v))
	case OpIsNot:
		return negative(field, constOf(v))
	default:
		return empty()
	}
}

// matchTitles returns the consts of branches whose title contains term,
// case-folded. ok is false unless every branch is a {title, const} pair.
func (t OneOf) matchTitles(term string) ([]any, bool) {
	folder := cases.Fold()
	needle := folder.String(term)
	consts := []any{}
	for _, b := range t.branches {
		if b.Title == "" || b.Const == nil {
			return nil, false
		}
		if strings.Contains(folder.String(b.Title), needle) {
			consts = append(consts, b.Const.Value)
		}
	}
	return consts, true
}

// BranchTitle returns the title of the branch whose const equals v.
func (t OneOf) BranchTitle(v any) (string, bool) {
	for _, b := range t.branches {
		if b.Const != nil && jsonschema.Equal(b.Const.Value, v) {
			return b.Title, b.Title != ""
		}
	}
	return "", false
}

func literalValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return jsonschema.Normalize(v)
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return s
	}
	return decoded
}

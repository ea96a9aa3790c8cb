// Package datatype is the registry of filterable data types.
//
// Every property schema resolves, once, to one variant of the sealed
// DataType interface. Each variant carries its own operator table and knows
// how to build the canonical filter fragment for an (operator, value) pair:
//
//	{type: object, properties: {field: <constraint>}, required: [field]}
//
// Negative operators leave the field out of "required" so records without
// the field satisfy them. A combination that cannot be represented yields
// the empty schema {}.
package datatype

import (
	"slices"
	"strings"

	"github.com/roach88/sieve/internal/jsonschema"
)

// Kind identifies a DataType variant.
type Kind int

const (
	KindUnsupported Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindEnum
	KindOneOf
	KindDateTime
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindUnsupported: "unsupported",
	KindString:      "string",
	KindNumber:      "number",
	KindBoolean:     "boolean",
	KindEnum:        "enum",
	KindOneOf:       "oneOf",
	KindDateTime:    "date-time",
	KindArray:       "array",
	KindObject:      "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unsupported"
}

// Operator slugs shared by several kinds.
const (
	OpIs           = "is"
	OpIsNot        = "is_not"
	OpContains     = "contains"
	OpNotContains  = "not_contains"
	OpMatchesRe    = "matches_re"
	OpNotMatchesRe = "not_matches_re"
	OpIsMoreThan   = "is_more_than"
	OpIsLessThan   = "is_less_than"
	OpIsBefore     = "is_before"
	OpIsAfter      = "is_after"

	opStartsWith    = "starts_with"
	opNotStartsWith = "not_starts_with"
	opEndsWith      = "ends_with"
	opNotEndsWith   = "not_ends_with"

	keyPrefix   = "key_"
	valuePrefix = "value_"
)

// FullTextSearch is the pseudo-operator of the free-text search box. Every
// kind accepts it and maps it to its loosest match.
const FullTextSearch = "full_text_search"

// Operator is one entry of a kind's operator table.
type Operator struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// DataType is a resolved, filterable property type.
//
// This is a sealed interface - only types in this package implement it.
type DataType interface {
	// Kind identifies the variant.
	Kind() Kind

	// Operators returns the operator table in presentation order.
	Operators() []Operator

	// CreateFilter builds the canonical filter fragment for field.
	CreateFilter(field, operator string, value any) *jsonschema.Schema

	dataType()
}

// KindOf resolves the kind of a property schema. Priority: enum, oneOf,
// a format ending in "date-time", then the declared type (first non-null
// entry of a type list).
func KindOf(prop *jsonschema.Schema) Kind {
	if prop == nil {
		return KindUnsupported
	}
	switch {
	case prop.Enum != nil:
		return KindEnum
	case len(prop.OneOf) > 0:
		return KindOneOf
	case prop.IsDateTime():
		return KindDateTime
	}
	switch prop.Type.Primary() {
	case jsonschema.TypeArray:
		return KindArray
	case jsonschema.TypeString:
		return KindString
	case jsonschema.TypeObject:
		return KindObject
	case jsonschema.TypeBoolean:
		return KindBoolean
	case jsonschema.TypeNumber, jsonschema.TypeInteger:
		return KindNumber
	default:
		return KindUnsupported
	}
}

// For resolves prop to its DataType, or nil when the property has no
// filterable type.
func For(prop *jsonschema.Schema) DataType {
	switch KindOf(prop) {
	case KindString:
		return String{}
	case KindNumber:
		return Number{}
	case KindBoolean:
		return Boolean{}
	case KindEnum:
		return Enum{}
	case KindOneOf:
		return OneOf{branches: prop.OneOf}
	case KindDateTime:
		return DateTime{}
	case KindArray:
		return Array{item: For(prop.Items)}
	case KindObject:
		return newObject(prop)
	default:
		return nil
	}
}

// Supports reports whether operator is registered for dt. The full-text
// sentinel is accepted by every kind.
func Supports(dt DataType, operator string) bool {
	if dt == nil {
		return false
	}
	if operator == FullTextSearch {
		return true
	}
	return slices.ContainsFunc(dt.Operators(), func(op Operator) bool {
		return op.Slug == operator
	})
}

// IsNegative reports whether operator is a negation of another operator.
func IsNegative(operator string) bool {
	_, negated := splitNegation(operator)
	return negated
}

var negations = map[string]string{
	OpIsNot:         OpIs,
	OpNotContains:   OpContains,
	OpNotMatchesRe:  OpMatchesRe,
	opNotStartsWith: opStartsWith,
	opNotEndsWith:   opEndsWith,
}

// splitNegation maps a negative operator to its positive form, keeping any
// key_/value_ prefix.
func splitNegation(operator string) (string, bool) {
	prefix, rest := "", operator
	for _, p := range []string{keyPrefix, valuePrefix} {
		if r, ok := strings.CutPrefix(operator, p); ok {
			prefix, rest = p, r
			break
		}
	}
	if positive, ok := negations[rest]; ok {
		return prefix + positive, true
	}
	return operator, false
}

func empty() *jsonschema.Schema {
	return &jsonschema.Schema{}
}

func positive(field string, c *jsonschema.Schema) *jsonschema.Schema {
	return jsonschema.Object(field, c, true)
}

func negative(field string, c *jsonschema.Schema) *jsonschema.Schema {
	return jsonschema.Object(field, &jsonschema.Schema{Not: c}, false)
}

func constOf(v any) *jsonschema.Schema {
	return &jsonschema.Schema{Const: jsonschema.NewConst(v)}
}

// negatedValue unwraps the literal {not: X} value.
func negatedValue(v any) (any, bool) {
	m, ok := jsonschema.Normalize(v).(map[string]any)
	if !ok || len(m) != 1 {
		return nil, false
	}
	inner, ok := m["not"]
	return inner, ok
}

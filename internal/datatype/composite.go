package datatype

import (
	"slices"
	"sort"
	"strings"

	"github.com/roach88/sieve/internal/jsonschema"
)

// Array is the array kind. Its operators and comparisons come from the item
// type; the result is wrapped as {type: array, minItems: 1, contains: c}.
// Negative operators negate the whole wrapped constraint.
type Array struct {
	item DataType
}

func (Array) dataType() {}

// Kind implements DataType.
func (Array) Kind() Kind { return KindArray }

// Item returns the item type, or nil when items are not filterable.
func (t Array) Item() DataType { return t.item }

// Operators implements DataType.
func (t Array) Operators() []Operator {
	if t.item == nil {
		return nil
	}
	return t.item.Operators()
}

// CreateFilter implements DataType.
func (t Array) CreateFilter(field, operator string, value any) *jsonschema.Schema {
	c := t.constraint(field, operator, value)
	if c == nil {
		return empty()
	}
	return c
}

func (t Array) constraint(field, operator string, value any) *jsonschema.Schema {
	base, negated := splitNegation(operator)

	var item *jsonschema.Schema
	switch it := t.item.(type) {
	case nil:
		return nil
	case Object:
		item = it.constraint(base, value)
	default:
		item = it.CreateFilter(field, base, value).Property(field)
	}
	if item.IsEmpty() {
		return nil
	}

	arr := &jsonschema.Schema{
		Type:     jsonschema.TypeList{jsonschema.TypeArray},
		MinItems: jsonschema.Int(1),
		Contains: item,
	}
	if negated {
		return negative(field, arr)
	}
	return positive(field, arr)
}

var objectOperators = []Operator{
	{OpIs, "is"},
	{OpIsNot, "is not"},
	{OpContains, "contains"},
	{OpNotContains, "does not contain"},
}

var tagOperators = []struct {
	suffix string
	label  string
}{
	{OpIs, "is"},
	{OpIsNot, "is not"},
	{OpContains, "contains"},
	{OpNotContains, "does not contain"},
	{opStartsWith, "starts with"},
	{opNotStartsWith, "does not start with"},
	{opEndsWith, "ends with"},
	{opNotEndsWith, "does not end with"},
}

// Object is the object kind.
//
// When a sub-property is tagged with the "key" or "value" role the object
// is treated as a tag, and key_* and value_* operators scope the comparison
// to that sub-property.
type Object struct {
	schema   *jsonschema.Schema
	keyProp  string
	valProp  string
	subNames []string
}

func (Object) dataType() {}

func newObject(prop *jsonschema.Schema) Object {
	o := Object{schema: prop}
	for _, name := range prop.PropertyKeys() {
		sub := prop.Properties[name]
		if sub == nil || sub.Meta.NoFilter {
			continue
		}
		o.subNames = append(o.subNames, name)
		switch sub.Meta.Role {
		case jsonschema.RoleKey:
			o.keyProp = name
		case jsonschema.RoleValue:
			o.valProp = name
		}
	}
	return o
}

// Kind implements DataType.
func (Object) Kind() Kind { return KindObject }

// IsTag reports whether the object has key or value tagged sub-properties.
func (t Object) IsTag() bool {
	return t.keyProp != "" || t.valProp != ""
}

// TagProperties returns the names of the key and value sub-properties.
func (t Object) TagProperties() (key, value string) {
	return t.keyProp, t.valProp
}

// Operators implements DataType.
func (t Object) Operators() []Operator {
	ops := slices.Clone(objectOperators)
	for _, scope := range []struct{ prefix, prop, label string }{
		{keyPrefix, t.keyProp, "key"},
		{valuePrefix, t.valProp, "value"},
	} {
		if scope.prop == "" {
			continue
		}
		for _, op := range tagOperators {
			ops = append(ops, Operator{Slug: scope.prefix + op.suffix, Label: scope.label + " " + op.label})
		}
	}
	return ops
}

// CreateFilter implements DataType.
func (t Object) CreateFilter(field, operator string, value any) *jsonschema.Schema {
	base, negated := splitNegation(operator)
	c := t.constraint(base, value)
	if c == nil {
		return empty()
	}
	if negated {
		return negative(field, c)
	}
	return positive(field, c)
}

// constraint builds the object-level constraint for a positive operator.
// An object value yields one constraint per present key, combined with
// AND. A scalar value is matched against every sub-property that can take
// the operator, combined with OR.
func (t Object) constraint(operator string, value any) *jsonschema.Schema {
	subOp, only := operator, ""
	if rest, ok := strings.CutPrefix(operator, keyPrefix); ok {
		subOp, only = rest, t.keyProp
	} else if rest, ok := strings.CutPrefix(operator, valuePrefix); ok {
		subOp, only = rest, t.valProp
	}
	if operator != subOp && only == "" {
		return nil
	}

	if m, ok := jsonschema.Normalize(value).(map[string]any); ok && only == "" {
		return t.allOf(subOp, m)
	}

	names := t.subNames
	if only != "" {
		names = []string{only}
	}
	var members []*jsonschema.Schema
	for _, name := range names {
		frag := subFilter(t.schema.Properties[name], name, subOp, value)
		if !frag.IsEmpty() {
			members = append(members, frag)
		}
	}
	switch len(members) {
	case 0:
		return nil
	case 1:
		return members[0]
	default:
		return &jsonschema.Schema{AnyOf: members}
	}
}

func (t Object) allOf(operator string, m map[string]any) *jsonschema.Schema {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := &jsonschema.Schema{
		Type:       jsonschema.TypeList{jsonschema.TypeObject},
		Properties: map[string]*jsonschema.Schema{},
	}
	for _, k := range keys {
		sub := t.schema.Property(k)
		if sub == nil || sub.Meta.NoFilter {
			continue
		}
		frag := subFilter(sub, k, operator, m[k])
		c := frag.Property(k)
		if c == nil {
			continue
		}
		merged.Properties[k] = c
		if frag.IsRequired(k) {
			merged.Required = append(merged.Required, k)
		}
	}
	if len(merged.Properties) == 0 {
		return nil
	}
	return merged
}

func subFilter(sub *jsonschema.Schema, name, operator string, value any) *jsonschema.Schema {
	dt := For(sub)
	if dt == nil {
		return empty()
	}
	if !Supports(dt, operator) && !isAnchoredString(dt, operator) {
		return empty()
	}
	return dt.CreateFilter(name, operator, value)
}

func isAnchoredString(dt DataType, operator string) bool {
	if dt.Kind() != KindString {
		return false
	}
	switch operator {
	case opStartsWith, opEndsWith:
		return true
	}
	return false
}

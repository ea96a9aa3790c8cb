// Package compiler turns (field, operator, value) descriptors into canonical
// filters.
//
// Compilation is pure orchestration: the field's reference path is resolved
// through refscheme, the resulting property schema is dispatched to its
// datatype, and the datatype builds the fragment. A compiled filter groups
// one or more fragments as {$id, anyOf: [member...]}. Each member carries the
// operator slug as its title and the originating descriptor in its
// description, so the filter can be read back for display and URL
// serialization.
package compiler

import (
	"fmt"

	"github.com/roach88/sieve/internal/datatype"
	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/refscheme"
)

// FullTextID is the $id, title and sentinel field of the full-text filter.
const FullTextID = datatype.FullTextSearch

// Descriptor is one user intent: filter Field with Operator and Value.
// Field may be a composite key (field___refPath).
type Descriptor struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`

	// Schema optionally supplies the property schema, bypassing the root
	// lookup.
	Schema *jsonschema.Schema `json:"-"`
}

// Resolved is a descriptor's field after reference resolution.
type Resolved struct {
	Field    string
	RefPath  string
	Property *jsonschema.Schema
	Pruned   *jsonschema.Schema
	Type     datatype.DataType
}

// Resolve looks up the property behind key and picks its data type.
func Resolve(root *jsonschema.Schema, key string, prop *jsonschema.Schema) (*Resolved, error) {
	field, refPath := refscheme.SplitKey(key)
	if prop == nil {
		prop = root.Property(field)
	}
	if prop == nil {
		return nil, filtererr.UnknownField(field)
	}
	if refPath == "" {
		refPath = refscheme.DefaultPath(prop)
	}

	pruned, err := refscheme.Prune(prop, refPath)
	if err != nil {
		if fe, ok := err.(*filtererr.Error); ok {
			c := *fe
			c.Field = field
			return nil, &c
		}
		return nil, err
	}

	dt := datatype.For(pruned)
	if dt == nil {
		return nil, filtererr.UnsupportedType(field)
	}
	return &Resolved{Field: field, RefPath: refPath, Property: prop, Pruned: pruned, Type: dt}, nil
}

// Compile builds the property fragment for one descriptor. The result may
// be the empty schema when the value cannot be represented for the type.
func Compile(root *jsonschema.Schema, d Descriptor) (*jsonschema.Schema, error) {
	r, err := Resolve(root, d.Field, d.Schema)
	if err != nil {
		return nil, err
	}
	if !datatype.Supports(r.Type, d.Operator) {
		return nil, filtererr.UnsupportedOperator(r.Field, d.Operator, r.Type.Kind().String())
	}
	return r.Type.CreateFilter(r.Field, d.Operator, d.Value), nil
}

// Operators returns the operator table for the field behind key.
func Operators(root *jsonschema.Schema, key string) ([]datatype.Operator, error) {
	r, err := Resolve(root, key, nil)
	if err != nil {
		return nil, err
	}
	return r.Type.Operators(), nil
}

// CreateFilter compiles descriptors into one canonical filter whose members
// are OR-ed. Descriptors whose fragment is empty are dropped; when every
// fragment is empty the result is nil.
func CreateFilter(root *jsonschema.Schema, descriptors []Descriptor) (*jsonschema.Schema, error) {
	var members []*jsonschema.Schema
	var identity []any
	for _, d := range descriptors {
		frag, err := Compile(root, d)
		if err != nil {
			return nil, fmt.Errorf("compile %s %s: %w", d.Field, d.Operator, err)
		}
		if frag.IsEmpty() {
			continue
		}

		field, refPath := refscheme.SplitKey(d.Field)
		meta := jsonschema.Metadata{Field: field, RefPath: refPath, Operator: d.Operator}.WithValue(d.Value)
		members = append(members, frag.WithTitle(d.Operator).WithMeta(meta))
		identity = append(identity, map[string]any{
			"field":    d.Field,
			"operator": d.Operator,
			"value":    jsonschema.Normalize(d.Value),
		})
	}
	if len(members) == 0 {
		return nil, nil
	}

	id, err := jsonschema.ContentID(jsonschema.DomainFilter, identity)
	if err != nil {
		return nil, err
	}
	return &jsonschema.Schema{ID: id, AnyOf: members}, nil
}

// FullText builds the full-text filter for term across every filterable
// property. Properties whose type cannot take the term are skipped. An
// empty term, or a term no property can take, yields nil.
func FullText(root *jsonschema.Schema, term string) (*jsonschema.Schema, error) {
	if term == "" {
		return nil, nil
	}
	targets, err := refscheme.Targets(root)
	if err != nil {
		return nil, err
	}

	var fields []*jsonschema.Schema
	for _, tg := range targets {
		frag, err := Compile(root, Descriptor{Field: tg.Key, Operator: FullTextID, Value: term})
		if filtererr.IsUnsupportedType(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !frag.IsEmpty() {
			fields = append(fields, frag)
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}

	meta := jsonschema.Metadata{Operator: FullTextID}.WithValue(term)
	member := (&jsonschema.Schema{AnyOf: fields}).WithMeta(meta)
	return &jsonschema.Schema{
		ID:    FullTextID,
		Title: FullTextID,
		AnyOf: []*jsonschema.Schema{member},
	}, nil
}

// IsFullText reports whether filter is the full-text filter.
func IsFullText(filter *jsonschema.Schema) bool {
	return filter != nil && filter.ID == FullTextID
}

// FullTextTerm returns the search term of a full-text filter.
func FullTextTerm(filter *jsonschema.Schema) (string, bool) {
	if !IsFullText(filter) || len(filter.AnyOf) == 0 {
		return "", false
	}
	v, ok := filter.AnyOf[0].Meta.DecodeValue()
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Descriptors reads the descriptors back from a compiled filter, one per
// anyOf member. ok is false when a member carries no descriptor. The
// member's title is preferred over the recorded operator.
func Descriptors(filter *jsonschema.Schema) ([]Descriptor, bool) {
	if filter == nil {
		return nil, false
	}
	if IsFullText(filter) {
		term, ok := FullTextTerm(filter)
		if !ok {
			return nil, false
		}
		return []Descriptor{{Field: FullTextID, Operator: FullTextID, Value: term}}, true
	}

	out := make([]Descriptor, 0, len(filter.AnyOf))
	for _, m := range filter.AnyOf {
		if m.Meta.Field == "" {
			return nil, false
		}
		op := m.Title
		if op == "" {
			op = m.Meta.Operator
		}
		v, _ := m.Meta.DecodeValue()
		out = append(out, Descriptor{
			Field:    refscheme.Key(m.Meta.Field, m.Meta.RefPath),
			Operator: op,
			Value:    v,
		})
	}
	return out, len(out) > 0
}

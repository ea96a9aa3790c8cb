package jsonschema

import (
	"slices"
	"strings"
)

// JSON-Schema type names.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeNull    = "null"
)

// Schema is a JSON-Schema node.
//
// Absent keywords are represented by zero values: nil pointers, nil slices,
// empty strings. Const uses a pointer wrapper so that "const: null" is
// distinguishable from "no const".
type Schema struct {
	ID          string
	Comment     string
	Title       string
	Description string

	Type   TypeList
	Format string

	Enum    []any
	Const   *Const
	Pattern string
	Regexp  *Regexp

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64

	FormatMinimum          string
	FormatMaximum          string
	FormatExclusiveMinimum string
	FormatExclusiveMaximum string

	MinItems *int
	MaxItems *int
	Items    *Schema
	Contains *Schema

	Properties map[string]*Schema
	Required   []string

	Not   *Schema
	AnyOf []*Schema
	OneOf []*Schema
	AllOf []*Schema

	// Extra holds foreign members that are not modeled above, such as
	// "$and"/"$or" groupings produced by other tools.
	Extra map[string]any

	// Meta is the typed form of Description. It is never serialized on its
	// own; Description is the wire representation.
	Meta Metadata
}

// Const wraps a const value so a null constant can be expressed.
type Const struct {
	Value any
}

// Regexp is the case-insensitive-capable pattern keyword: {pattern, flags}.
type Regexp struct {
	Pattern string
	Flags   string
}

// TypeList is the "type" keyword, which may be a single name or a list.
type TypeList []string

// Has reports whether name is one of the declared types.
func (t TypeList) Has(name string) bool {
	return slices.Contains(t, name)
}

// Primary returns the first declared type that is not "null".
func (t TypeList) Primary() string {
	for _, name := range t {
		if name != TypeNull {
			return name
		}
	}
	return ""
}

// FilterSet is an ordered list of canonical filters. Entries are AND-ed;
// order only matters for display.
type FilterSet []*Schema

// NewConst returns a Const holding the normalized value.
func NewConst(v any) *Const {
	return &Const{Value: Normalize(v)}
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// Int returns a pointer to n.
func Int(n int) *int {
	return &n
}

// Object builds the canonical single-property fragment
// {type:object, properties:{field: c}, required:[field]}.
// When required is false the field is left out of "required", so a record
// without the field still satisfies the fragment.
func Object(field string, c *Schema, required bool) *Schema {
	s := &Schema{
		Type:       TypeList{TypeObject},
		Properties: map[string]*Schema{field: c},
	}
	if required {
		s.Required = []string{field}
	}
	return s
}

// IsEmpty reports whether the node carries no keywords at all.
// An empty schema accepts every value.
func (s *Schema) IsEmpty() bool {
	if s == nil {
		return true
	}
	return s.ID == "" && s.Comment == "" && s.Title == "" && s.Description == "" &&
		len(s.Type) == 0 && s.Format == "" && s.Enum == nil && s.Const == nil &&
		s.Pattern == "" && s.Regexp == nil && s.Minimum == nil && s.Maximum == nil &&
		s.ExclusiveMinimum == nil && s.ExclusiveMaximum == nil &&
		s.FormatMinimum == "" && s.FormatMaximum == "" &&
		s.FormatExclusiveMinimum == "" && s.FormatExclusiveMaximum == "" &&
		s.MinItems == nil && s.MaxItems == nil && s.Items == nil && s.Contains == nil &&
		s.Properties == nil && s.Required == nil && s.Not == nil &&
		s.AnyOf == nil && s.OneOf == nil && s.AllOf == nil && len(s.Extra) == 0
}

// PropertyKeys returns the property names in sorted order.
func (s *Schema) PropertyKeys() []string {
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Property returns the named property schema, or nil.
func (s *Schema) Property(name string) *Schema {
	if s == nil || s.Properties == nil {
		return nil
	}
	return s.Properties[name]
}

// IsRequired reports whether name is listed in "required".
func (s *Schema) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}

// IsDateTime reports whether the format ends with "date-time".
func (s *Schema) IsDateTime() bool {
	return strings.HasSuffix(s.Format, "date-time")
}

// WithMeta returns a copy of s whose description carries m.
func (s *Schema) WithMeta(m Metadata) *Schema {
	c := s.ShallowCopy()
	c.Meta = m
	c.Description = m.Encode()
	return c
}

// WithTitle returns a copy of s with the given title.
func (s *Schema) WithTitle(title string) *Schema {
	c := s.ShallowCopy()
	c.Title = title
	return c
}

// ShallowCopy copies the top-level node; nested nodes are shared.
func (s *Schema) ShallowCopy() *Schema {
	if s == nil {
		return &Schema{}
	}
	c := *s
	return &c
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	c.Type = slices.Clone(s.Type)
	c.Enum = cloneSlice(s.Enum)
	if s.Const != nil {
		c.Const = &Const{Value: cloneValue(s.Const.Value)}
	}
	if s.Regexp != nil {
		r := *s.Regexp
		c.Regexp = &r
	}
	c.Minimum = cloneFloat(s.Minimum)
	c.Maximum = cloneFloat(s.Maximum)
	c.ExclusiveMinimum = cloneFloat(s.ExclusiveMinimum)
	c.ExclusiveMaximum = cloneFloat(s.ExclusiveMaximum)
	if s.MinItems != nil {
		c.MinItems = Int(*s.MinItems)
	}
	if s.MaxItems != nil {
		c.MaxItems = Int(*s.MaxItems)
	}
	c.Items = s.Items.Clone()
	c.Contains = s.Contains.Clone()
	c.Not = s.Not.Clone()
	if s.Properties != nil {
		c.Properties = make(map[string]*Schema, len(s.Properties))
		for k, v := range s.Properties {
			c.Properties[k] = v.Clone()
		}
	}
	c.Required = slices.Clone(s.Required)
	c.AnyOf = cloneSchemas(s.AnyOf)
	c.OneOf = cloneSchemas(s.OneOf)
	c.AllOf = cloneSchemas(s.AllOf)
	if s.Extra != nil {
		c.Extra = cloneValue(s.Extra).(map[string]any)
	}
	c.Meta = s.Meta.clone()
	return &c
}

// Clone returns a deep copy of every filter in the set.
func (fs FilterSet) Clone() FilterSet {
	if fs == nil {
		return nil
	}
	out := make(FilterSet, len(fs))
	for i, f := range fs {
		out[i] = f.Clone()
	}
	return out
}

func cloneSchemas(in []*Schema) []*Schema {
	if in == nil {
		return nil
	}
	out := make([]*Schema, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return Float(*f)
}

func cloneSlice(in []any) []any {
	if in == nil {
		return nil
	}
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		return cloneSlice(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return val
	}
}

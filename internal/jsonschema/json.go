package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// keywords lists every key handled by ToMap/FromMap. Anything else lands in
// Schema.Extra.
var keywords = map[string]bool{
	"$id": true, "$comment": true, "title": true, "description": true,
	"type": true, "format": true, "enum": true, "const": true,
	"pattern": true, "regexp": true,
	"minimum": true, "maximum": true, "exclusiveMinimum": true, "exclusiveMaximum": true,
	"formatMinimum": true, "formatMaximum": true,
	"formatExclusiveMinimum": true, "formatExclusiveMaximum": true,
	"minItems": true, "maxItems": true, "items": true, "contains": true,
	"properties": true, "required": true,
	"not": true, "anyOf": true, "oneOf": true, "allOf": true,
}

// ToMap returns the node as a plain JSON object.
func (s *Schema) ToMap() map[string]any {
	if s == nil {
		return nil
	}
	m := make(map[string]any, len(s.Extra)+4)
	for k, v := range s.Extra {
		m[k] = cloneValue(v)
	}
	putString(m, "$id", s.ID)
	putString(m, "$comment", s.Comment)
	putString(m, "title", s.Title)
	putString(m, "description", s.Description)
	switch len(s.Type) {
	case 0:
	case 1:
		m["type"] = s.Type[0]
	default:
		m["type"] = Normalize([]string(s.Type))
	}
	putString(m, "format", s.Format)
	if s.Enum != nil {
		m["enum"] = cloneSlice(s.Enum)
	}
	if s.Const != nil {
		m["const"] = cloneValue(s.Const.Value)
	}
	putString(m, "pattern", s.Pattern)
	if s.Regexp != nil {
		r := map[string]any{"pattern": s.Regexp.Pattern}
		if s.Regexp.Flags != "" {
			r["flags"] = s.Regexp.Flags
		}
		m["regexp"] = r
	}
	putFloat(m, "minimum", s.Minimum)
	putFloat(m, "maximum", s.Maximum)
	putFloat(m, "exclusiveMinimum", s.ExclusiveMinimum)
	putFloat(m, "exclusiveMaximum", s.ExclusiveMaximum)
	putString(m, "formatMinimum", s.FormatMinimum)
	putString(m, "formatMaximum", s.FormatMaximum)
	putString(m, "formatExclusiveMinimum", s.FormatExclusiveMinimum)
	putString(m, "formatExclusiveMaximum", s.FormatExclusiveMaximum)
	if s.MinItems != nil {
		m["minItems"] = float64(*s.MinItems)
	}
	if s.MaxItems != nil {
		m["maxItems"] = float64(*s.MaxItems)
	}
	if s.Items != nil {
		m["items"] = s.Items.ToMap()
	}
	if s.Contains != nil {
		m["contains"] = s.Contains.ToMap()
	}
	if s.Properties != nil {
		props := make(map[string]any, len(s.Properties))
		for k, p := range s.Properties {
			props[k] = p.ToMap()
		}
		m["properties"] = props
	}
	if s.Required != nil {
		m["required"] = Normalize(s.Required)
	}
	if s.Not != nil {
		m["not"] = s.Not.ToMap()
	}
	putSchemas(m, "anyOf", s.AnyOf)
	putSchemas(m, "oneOf", s.OneOf)
	putSchemas(m, "allOf", s.AllOf)
	return m
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func putFloat(m map[string]any, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}

func putSchemas(m map[string]any, key string, list []*Schema) {
	if list == nil {
		return
	}
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s.ToMap()
	}
	m[key] = out
}

// FromMap builds a Schema from a decoded JSON (or YAML/CUE) object.
// Metadata carried in the description is parsed here, once.
func FromMap(m map[string]any) (*Schema, error) {
	d := &decoder{}
	s := d.schema(m, "")
	if d.err != nil {
		return nil, d.err
	}
	return s, nil
}

// FromValue is FromMap for an untyped value, which must be an object.
func FromValue(v any) (*Schema, error) {
	m, ok := Normalize(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema must be an object, got %T", v)
	}
	return FromMap(m)
}

type decoder struct {
	err error
}

func (d *decoder) fail(path, format string, args ...any) {
	if d.err == nil {
		if path == "" {
			path = "/"
		}
		d.err = fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...))
	}
}

func (d *decoder) schema(raw map[string]any, path string) *Schema {
	m, _ := Normalize(raw).(map[string]any)
	s := &Schema{}
	s.ID = d.str(m, "$id", path)
	s.Comment = d.str(m, "$comment", path)
	s.Title = d.str(m, "title", path)
	s.Description = d.str(m, "description", path)
	s.Meta = ParseMetadata(s.Description)

	switch t := m["type"].(type) {
	case nil:
	case string:
		s.Type = TypeList{t}
	case []any:
		for _, e := range t {
			name, ok := e.(string)
			if !ok {
				d.fail(path+"/type", "type entries must be strings")
				break
			}
			s.Type = append(s.Type, name)
		}
	default:
		d.fail(path+"/type", "type must be a string or list")
	}

	s.Format = d.str(m, "format", path)
	if v, ok := m["enum"]; ok {
		list, isList := v.([]any)
		if !isList {
			d.fail(path+"/enum", "enum must be a list")
		}
		s.Enum = append([]any{}, list...)
	}
	if v, ok := m["const"]; ok {
		s.Const = &Const{Value: v}
	}
	s.Pattern = d.str(m, "pattern", path)
	if v, ok := m["regexp"]; ok {
		switch r := v.(type) {
		case string:
			s.Regexp = &Regexp{Pattern: r}
		case map[string]any:
			s.Regexp = &Regexp{
				Pattern: d.str(r, "pattern", path+"/regexp"),
				Flags:   d.str(r, "flags", path+"/regexp"),
			}
		default:
			d.fail(path+"/regexp", "regexp must be a string or {pattern, flags}")
		}
	}

	s.Minimum = d.num(m, "minimum", path)
	s.Maximum = d.num(m, "maximum", path)
	s.ExclusiveMinimum = d.num(m, "exclusiveMinimum", path)
	s.ExclusiveMaximum = d.num(m, "exclusiveMaximum", path)
	s.FormatMinimum = d.str(m, "formatMinimum", path)
	s.FormatMaximum = d.str(m, "formatMaximum", path)
	s.FormatExclusiveMinimum = d.str(m, "formatExclusiveMinimum", path)
	s.FormatExclusiveMaximum = d.str(m, "formatExclusiveMaximum", path)
	if f := d.num(m, "minItems", path); f != nil {
		s.MinItems = Int(int(*f))
	}
	if f := d.num(m, "maxItems", path); f != nil {
		s.MaxItems = Int(int(*f))
	}
	s.Items = d.child(m, "items", path)
	s.Contains = d.child(m, "contains", path)

	if v, ok := m["properties"]; ok {
		props, isMap := v.(map[string]any)
		if !isMap {
			d.fail(path+"/properties", "properties must be an object")
		}
		s.Properties = make(map[string]*Schema, len(props))
		for k := range props {
			s.Properties[k] = d.child(props, k, path+"/properties")
		}
	}
	if v, ok := m["required"]; ok {
		list, _ := v.([]any)
		s.Required = []string{}
		for _, e := range list {
			name, isStr := e.(string)
			if !isStr {
				d.fail(path+"/required", "required entries must be strings")
				continue
			}
			s.Required = append(s.Required, name)
		}
	}

	s.Not = d.child(m, "not", path)
	s.AnyOf = d.list(m, "anyOf", path)
	s.OneOf = d.list(m, "oneOf", path)
	s.AllOf = d.list(m, "allOf", path)

	for k, v := range m {
		if keywords[k] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[k] = v
	}
	return s
}

func (d *decoder) str(m map[string]any, key, path string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, isStr := v.(string)
	if !isStr {
		d.fail(path+"/"+key, "expected string, got %T", v)
	}
	return s
}

func (d *decoder) num(m map[string]any, key, path string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	f, isNum := v.(float64)
	if !isNum {
		d.fail(path+"/"+key, "expected number, got %T", v)
		return nil
	}
	return Float(f)
}

func (d *decoder) child(m map[string]any, key, path string) *Schema {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch c := v.(type) {
	case map[string]any:
		return d.schema(c, path+"/"+key)
	case bool:
		// Boolean schemas: true accepts everything, false nothing.
		if c {
			return &Schema{}
		}
		return &Schema{Not: &Schema{}}
	default:
		d.fail(path+"/"+key, "expected schema object, got %T", v)
		return nil
	}
}

func (d *decoder) list(m map[string]any, key, path string) []*Schema {
	v, ok := m[key]
	if !ok {
		return nil
	}
	raw, isList := v.([]any)
	if !isList {
		d.fail(path+"/"+key, "expected list of schemas, got %T", v)
		return nil
	}
	out := make([]*Schema, 0, len(raw))
	for i, e := range raw {
		c, isMap := e.(map[string]any)
		if !isMap {
			d.fail(fmt.Sprintf("%s/%s/%d", path, key, i), "expected schema object, got %T", e)
			continue
		}
		out = append(out, d.schema(c, fmt.Sprintf("%s/%s/%d", path, key, i)))
	}
	return out
}

// MarshalJSON implements json.Marshaler. Keys are written in sorted order
// and HTML characters are not escaped.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return encodeJSON(s.ToMap())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	parsed, err := FromMap(m)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// ExtraSchemas decodes the foreign member key as a list of schema nodes.
// It reports false when the key is absent or not a list of objects.
func (s *Schema) ExtraSchemas(key string) ([]*Schema, bool) {
	raw, ok := s.Extra[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]*Schema, 0, len(raw))
	for _, e := range raw {
		c, err := FromValue(e)
		if err != nil {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// ExtraKeys returns the sorted foreign member names.
func (s *Schema) ExtraKeys() []string {
	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

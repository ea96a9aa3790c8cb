// Package refscheme resolves reference paths declared on schema properties.
//
// A reference path is a dotted annotation such as "owner.slug" or
// "releases[0].version" pointing a property at the nested value used to
// filter, sort and display it. A property declares its paths through the
// x-ref-scheme and x-foreign-key-scheme metadata keys. When a property has
// more than one path, each path becomes its own filterable target under a
// composite key "field___path".
package refscheme

import (
	"strings"

	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/jsonschema"
)

// Separator joins a base field and a reference path in a composite key.
const Separator = "___"

// Lookup path markers.
const (
	MarkerProperties = "properties"
	MarkerItems      = "items"
)

// Target is one filterable entry of a collection schema.
type Target struct {
	// Key identifies the target: the field name, or field___path when the
	// property declares several reference paths.
	Key string

	// Field is the base property name.
	Field string

	// RefPath is the reference path, or "" for a plain property.
	RefPath string

	// Title is the display label: the referenced leaf's title, else the
	// property title, else the field name.
	Title string

	// Schema is the base property schema.
	Schema *jsonschema.Schema
}

// Key composes a composite key. An empty refPath yields the field itself.
func Key(field, refPath string) string {
	if refPath == "" {
		return field
	}
	return field + Separator + refPath
}

// SplitKey strips a composite key back into its field and reference path.
// A plain key returns an empty refPath.
func SplitKey(key string) (field, refPath string) {
	field, refPath, _ = strings.Cut(key, Separator)
	return field, refPath
}

// DefaultPath returns the first reference path a property declares, or "".
func DefaultPath(prop *jsonschema.Schema) string {
	if prop == nil {
		return ""
	}
	if paths := prop.Meta.Paths(); len(paths) > 0 {
		return paths[0]
	}
	return ""
}

// LookupPath rewrites a dotted reference path into a lookup path with
// "properties" and "items" markers inserted at every traversal boundary.
// Array properties are entered through "items" first.
//
//	LookupPath(object, "a.b[0].c") == [properties a properties b items properties c]
func LookupPath(prop *jsonschema.Schema, refPath string) []string {
	if refPath == "" {
		return nil
	}
	var path []string
	if isArray(prop) {
		path = append(path, MarkerItems)
	}
	for _, seg := range strings.Split(refPath, ".") {
		name, depth := parseSegment(seg)
		path = append(path, MarkerProperties, name)
		for range depth {
			path = append(path, MarkerItems)
		}
	}
	return path
}

// parseSegment splits "name[0][1]" into the name and the number of index
// markers.
func parseSegment(seg string) (string, int) {
	depth := 0
	for strings.HasSuffix(seg, "]") {
		open := strings.LastIndex(seg, "[")
		if open < 0 {
			break
		}
		seg = seg[:open]
		depth++
	}
	return seg, depth
}

func isArray(s *jsonschema.Schema) bool {
	if s == nil {
		return false
	}
	return s.Type.Has(jsonschema.TypeArray) || (len(s.Type) == 0 && s.Items != nil)
}

// Lookup returns the leaf schema a reference path points at. An empty path
// returns prop itself. A segment missing from the schema is a
// filtererr.ErrCodeSchemaResolution error.
func Lookup(prop *jsonschema.Schema, refPath string) (*jsonschema.Schema, error) {
	path := LookupPath(prop, refPath)
	node := prop
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case MarkerItems:
			if node.Items == nil {
				return nil, filtererr.SchemaResolution("", refPath, MarkerItems)
			}
			node = node.Items
		case MarkerProperties:
			i++
			child := node.Property(path[i])
			if child == nil {
				return nil, filtererr.SchemaResolution("", refPath, path[i])
			}
			node = child
		}
	}
	return node, nil
}

// Prune returns a copy of prop keeping only the branch that leads to the
// referenced leaf. The leaf's title, when present, becomes the title of the
// returned schema. prop is not modified.
func Prune(prop *jsonschema.Schema, refPath string) (*jsonschema.Schema, error) {
	if refPath == "" {
		return prop, nil
	}
	leaf, err := Lookup(prop, refPath)
	if err != nil {
		return nil, err
	}
	pruned := prune(prop, LookupPath(prop, refPath))
	if leaf.Title != "" {
		pruned.Title = leaf.Title
	}
	return pruned, nil
}

func prune(node *jsonschema.Schema, path []string) *jsonschema.Schema {
	if len(path) == 0 {
		return node.ShallowCopy()
	}
	c := node.ShallowCopy()
	switch path[0] {
	case MarkerItems:
		c.Items = prune(node.Items, path[1:])
	case MarkerProperties:
		name := path[1]
		c.Properties = map[string]*jsonschema.Schema{name: prune(node.Properties[name], path[2:])}
		c.Required = nil
		if node.IsRequired(name) {
			c.Required = []string{name}
		}
	}
	return c
}

// Targets enumerates the filterable targets of a collection schema in
// sorted field order. Properties flagged x-no-filter are skipped. A
// reference path that does not resolve is returned as an error.
func Targets(root *jsonschema.Schema) ([]Target, error) {
	var out []Target
	for _, field := range root.PropertyKeys() {
		prop := root.Properties[field]
		if prop == nil || prop.Meta.NoFilter {
			continue
		}

		paths := prop.Meta.Paths()
		if len(paths) == 0 {
			out = append(out, Target{Key: field, Field: field, Title: title(prop, nil, field), Schema: prop})
			continue
		}
		for _, p := range paths {
			leaf, err := Lookup(prop, p)
			if err != nil {
				return nil, withField(err, field)
			}
			key := field
			if len(paths) > 1 {
				key = Key(field, p)
			}
			out = append(out, Target{Key: key, Field: field, RefPath: p, Title: title(prop, leaf, field), Schema: prop})
		}
	}
	return out, nil
}

// Resolve finds the target for a key, accepting both plain field names and
// composite keys. ok is false when the field is not declared.
func Resolve(root *jsonschema.Schema, key string) (Target, bool) {
	field, refPath := SplitKey(key)
	prop := root.Property(field)
	if prop == nil {
		return Target{}, false
	}
	if refPath == "" {
		refPath = DefaultPath(prop)
	}
	leaf, _ := Lookup(prop, refPath)
	return Target{Key: key, Field: field, RefPath: refPath, Title: title(prop, leaf, field), Schema: prop}, true
}

func title(prop, leaf *jsonschema.Schema, field string) string {
	if leaf != nil && leaf != prop && leaf.Title != "" {
		return leaf.Title
	}
	if prop.Title != "" {
		return prop.Title
	}
	return field
}

func withField(err error, field string) error {
	if fe, ok := err.(*filtererr.Error); ok {
		c := *fe
		c.Field = field
		return &c
	}
	return err
}

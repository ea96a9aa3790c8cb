package cli

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/sieve/internal/compiler"
	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/refscheme"
	"github.com/roach88/sieve/internal/schemaload"
)

// descriptorInput is one descriptor as written in a descriptors file.
// RefPath is optional and combines with Field into a composite key.
type descriptorInput struct {
	Field    string
	Operator string
	RefPath  string
	Value    any
}

// LoadDescriptors reads a list of descriptors (or a single one) from a
// JSON, YAML or CUE file. Each entry has field, operator, value and an
// optional ref_path.
func LoadDescriptors(path string) ([]compiler.Descriptor, error) {
	v, err := schemaload.ReadFile(path)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}

	out := make([]compiler.Descriptor, 0, len(list))
	for i, e := range list {
		in, err := parseDescriptor(e)
		if err != nil {
			return nil, &schemaload.LoadError{Path: path, Message: fmt.Sprintf("descriptor %d: %v", i, err)}
		}
		out = append(out, compiler.Descriptor{
			Field:    refscheme.Key(in.Field, in.RefPath),
			Operator: in.Operator,
			Value:    in.Value,
		})
	}
	return out, nil
}

func parseDescriptor(v any) (descriptorInput, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return descriptorInput{}, fmt.Errorf("must be an object, got %T", v)
	}
	var in descriptorInput
	for _, f := range []struct {
		key      string
		dst      *string
		required bool
	}{
		{"field", &in.Field, true},
		{"operator", &in.Operator, true},
		{"ref_path", &in.RefPath, false},
	} {
		raw, present := m[f.key]
		if !present {
			if f.required {
				return descriptorInput{}, fmt.Errorf("missing %s", f.key)
			}
			continue
		}
		s, ok := raw.(string)
		if !ok || (f.required && s == "") {
			return descriptorInput{}, fmt.Errorf("%s must be a non-empty string", f.key)
		}
		*f.dst = s
	}
	in.Value = m["value"]
	return in, nil
}

// renderJSON formats a filter, filter set or query object for text output.
func renderJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding output: %w", err)
	}
	return string(data), nil
}

// canonicalSet renders a filter set as canonical JSON.
func canonicalSet(set jsonschema.FilterSet) (string, error) {
	data, err := jsonschema.MarshalCanonical(set)
	if err != nil {
		return "", fmt.Errorf("encoding filters: %w", err)
	}
	return string(data), nil
}

// Package schemaload reads collection schemas, records and filter sets from
// JSON, YAML and CUE files.
//
// Every format is decoded into the same JSON data model (see
// jsonschema.Normalize) before it is interpreted, so a schema written in
// CUE behaves exactly like its JSON rendering. CUE input must be concrete.
package schemaload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sieve/internal/jsonschema"
)

// Format is an input file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &LoadError{Path: path, Message: "unsupported file extension (want .json, .yaml, .yml or .cue)"}
	}
}

// LoadError reports a file that could not be read or interpreted.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Decode parses data in format f into the JSON data model.
func Decode(data []byte, f Format, filename string) (any, error) {
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, &LoadError{Path: filename, Message: fmt.Sprintf("invalid JSON: %v", err)}
		}
		return jsonschema.Normalize(v), nil
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, &LoadError{Path: filename, Message: fmt.Sprintf("invalid YAML: %v", err)}
		}
		return jsonschema.Normalize(v), nil
	case FormatCUE:
		return decodeCUE(data, filename)
	default:
		return nil, &LoadError{Path: filename, Message: fmt.Sprintf("unknown format %q", f)}
	}
}

// decodeCUE evaluates a CUE document and exports it through its JSON form.
func decodeCUE(data []byte, filename string) (any, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, filename)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, filename)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err, filename)
	}
	return Decode(raw, FormatJSON, filename)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, filename string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Path: filename, Message: err.Error()}
	}

	first := errs[0]
	loadErr := &LoadError{Path: filename, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}

// ReadFile reads and decodes path, picking the format from its extension.
func ReadFile(path string) (any, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	return Decode(data, f, path)
}

// Schema reads a collection schema.
func Schema(path string) (*jsonschema.Schema, error) {
	v, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSchema(v, path)
}

// ParseSchema interprets a decoded value as a collection schema. The root
// must be an object schema.
func ParseSchema(v any, path string) (*jsonschema.Schema, error) {
	s, err := jsonschema.FromValue(v)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	if s.Properties == nil {
		return nil, &LoadError{Path: path, Message: "schema declares no properties"}
	}
	return s, nil
}

// Records reads a list of records.
func Records(path string) ([]map[string]any, error) {
	v, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &LoadError{Path: path, Message: "records must be a list"}
	}
	out := make([]map[string]any, len(list))
	for i, e := range list {
		rec, ok := e.(map[string]any)
		if !ok {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("record %d is not an object", i)}
		}
		out[i] = rec
	}
	return out, nil
}

// Filters reads a filter set: a list of filters, or a single filter.
func Filters(path string) (jsonschema.FilterSet, error) {
	v, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	set := make(jsonschema.FilterSet, 0, len(list))
	for i, e := range list {
		f, err := jsonschema.FromValue(e)
		if err != nil {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("filter %d: %v", i, err)}
		}
		set = append(set, f)
	}
	return set, nil
}

package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/sieve/internal/jsonschema"
)

// marshalFilters converts a filter set to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so identical sets store identical text.
func marshalFilters(set jsonschema.FilterSet) (string, error) {
	if set == nil {
		set = jsonschema.FilterSet{}
	}
	data, err := jsonschema.MarshalCanonical(set)
	if err != nil {
		return "", fmt.Errorf("marshal filters: %w", err)
	}
	return string(data), nil
}

// unmarshalFilters parses canonical JSON TEXT back into a filter set.
// Returns an empty (non-nil) set for empty input.
func unmarshalFilters(data string) (jsonschema.FilterSet, error) {
	if data == "" || data == "[]" {
		return jsonschema.FilterSet{}, nil
	}
	var set jsonschema.FilterSet
	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return nil, fmt.Errorf("unmarshal filters: %w", err)
	}
	return set, nil
}

package jsonschema

import (
	"encoding/json"
	"slices"
	"strings"
)

// Metadata roles for key/value tag schemas.
const (
	RoleKey   = "key"
	RoleValue = "value"
)

// Metadata is the typed form of the JSON object some schemas carry in their
// description keyword.
//
// Schema authors use the x- keys. Compiled filters use the descriptor keys
// (field, refPath, operator, value) so a filter can be read back into the
// (field, operator, value) triple that produced it.
type Metadata struct {
	RefScheme        PathList `json:"x-ref-scheme,omitempty"`
	ForeignKeyScheme PathList `json:"x-foreign-key-scheme,omitempty"`
	NoFilter         bool     `json:"x-no-filter,omitempty"`
	Role             string   `json:"x-role,omitempty"`

	Field    string          `json:"field,omitempty"`
	RefPath  string          `json:"refPath,omitempty"`
	Operator string          `json:"operator,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// PathList is a list of reference paths. A single string is accepted when
// decoding.
type PathList []string

// UnmarshalJSON implements json.Unmarshaler.
func (p *PathList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*p = PathList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*p = many
	return nil
}

// ParseMetadata parses a description into Metadata. Malformed JSON yields
// the zero value. A bare "key" or "value" description tags the role.
func ParseMetadata(description string) Metadata {
	d := strings.TrimSpace(description)
	switch d {
	case RoleKey, RoleValue:
		return Metadata{Role: d}
	}
	if !strings.HasPrefix(d, "{") {
		return Metadata{}
	}
	var m Metadata
	if err := json.Unmarshal([]byte(d), &m); err != nil {
		return Metadata{}
	}
	return m
}

// IsZero reports whether no metadata is present.
func (m Metadata) IsZero() bool {
	return len(m.RefScheme) == 0 && len(m.ForeignKeyScheme) == 0 && !m.NoFilter &&
		m.Role == "" && m.Field == "" && m.RefPath == "" && m.Operator == "" && len(m.Value) == 0
}

// Encode returns the description string for m, or "" when m is empty.
func (m Metadata) Encode() string {
	if m.IsZero() {
		return ""
	}
	b, err := encodeJSON(m)
	if err != nil {
		return ""
	}
	return string(b)
}

// Paths returns every declared reference path, ref-scheme first, without
// duplicates.
func (m Metadata) Paths() []string {
	var out []string
	for _, p := range append(slices.Clone(m.RefScheme), m.ForeignKeyScheme...) {
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// HasValue reports whether a descriptor value was recorded, including null.
func (m Metadata) HasValue() bool {
	return len(m.Value) > 0
}

// DecodeValue returns the recorded descriptor value.
func (m Metadata) DecodeValue() (any, bool) {
	if !m.HasValue() {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(m.Value, &v); err != nil {
		return nil, false
	}
	return v, true
}

// WithValue returns a copy of m recording v as the descriptor value.
func (m Metadata) WithValue(v any) Metadata {
	b, err := encodeJSON(Normalize(v))
	if err != nil {
		b = []byte("null")
	}
	m.Value = b
	return m
}

func (m Metadata) clone() Metadata {
	m.RefScheme = slices.Clone(m.RefScheme)
	m.ForeignKeyScheme = slices.Clone(m.ForeignKeyScheme)
	m.Value = slices.Clone(m.Value)
	return m
}

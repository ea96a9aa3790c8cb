package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    Metadata
	}{
		{"empty", "", Metadata{}},
		{"plain text", "The device name", Metadata{}},
		{"malformed json", `{"x-ref-scheme": [`, Metadata{}},
		{"wrong value type", `{"x-no-filter": "yes"}`, Metadata{}},
		{"bare key role", "key", Metadata{Role: RoleKey}},
		{"bare value role", " value ", Metadata{Role: RoleValue}},
		{"x-role", `{"x-role": "key"}`, Metadata{Role: RoleKey}},
		{"ref scheme string", `{"x-ref-scheme": "slug"}`, Metadata{RefScheme: PathList{"slug"}}},
		{
			"ref and foreign key schemes",
			`{"x-ref-scheme": ["slug"], "x-foreign-key-scheme": ["name", "slug"]}`,
			Metadata{RefScheme: PathList{"slug"}, ForeignKeyScheme: PathList{"name", "slug"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseMetadata(tt.description))
		})
	}
}

func TestMetadataPaths(t *testing.T) {
	m := Metadata{RefScheme: PathList{"slug"}, ForeignKeyScheme: PathList{"name", "slug", ""}}
	assert.Equal(t, []string{"slug", "name"}, m.Paths())
	assert.Nil(t, Metadata{}.Paths())
}

func TestMetadataEncode(t *testing.T) {
	assert.Equal(t, "", Metadata{}.Encode())

	m := Metadata{Field: "a", Operator: "is"}.WithValue(map[string]any{"not": nil})
	assert.Equal(t, `{"field":"a","operator":"is","value":{"not":null}}`, m.Encode())

	v, ok := m.DecodeValue()
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"not": nil}, v)
}

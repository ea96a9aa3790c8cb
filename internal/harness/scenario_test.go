package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validScenario = `
name: valid
description: minimal scenario
schema:
  properties:
    n: {type: number}
filters:
  - descriptors:
      - {field: n, operator: is, value: 1}
assertions:
  - type: query
    query: "0[0][n]=n&0[0][o]=is&0[0][v]=1"
`

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)
	assert.Equal(t, "valid", s.Name)
	require.Len(t, s.Filters, 1)
	assert.Equal(t, DescriptorStep{Field: "n", Operator: "is", Value: 1}, s.Filters[0].Descriptors[0])
}

func TestLoadScenario_ResolvesPathsRelativeToFile(t *testing.T) {
	path := filepath.Join("testdata", "scenarios", "scenario_c_reference_array.yaml")
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "..", "..", "testutil", "fixtures", "device.schema.json"), s.SchemaFile)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: validScenario + "assertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: d\nschema: {properties: {}}\nfilters: [{text: x}]\nassertions: [{type: query}]\n",
			wantErr: "name is required",
		},
		{
			name:    "no schema",
			content: "name: n\ndescription: d\nfilters: [{text: x}]\nassertions: [{type: query}]\n",
			wantErr: "exactly one of schema and schema_file",
		},
		{
			name:    "missing schema file",
			content: "name: n\ndescription: d\nschema_file: nope.json\nfilters: [{text: x}]\nassertions: [{type: query}]\n",
			wantErr: "file not found",
		},
		{
			name:    "descriptors and text",
			content: "name: n\ndescription: d\nschema: {properties: {}}\nfilters: [{text: x, descriptors: [{field: a, operator: is}]}]\nassertions: [{type: query}]\n",
			wantErr: "filters[0]: exactly one of descriptors and text",
		},
		{
			name:    "descriptor without operator",
			content: "name: n\ndescription: d\nschema: {properties: {}}\nfilters: [{descriptors: [{field: a}]}]\nassertions: [{type: query}]\n",
			wantErr: "field and operator are required",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nschema: {properties: {}}\nfilters: [{text: x}]\nassertions: [{type: trace_order}]\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
		{
			name:    "matches without records",
			content: "name: n\ndescription: d\nschema: {properties: {}}\nfilters: [{text: x}]\nassertions: [{type: matches, ids: [1]}]\n",
			wantErr: "matches requires records",
		},
		{
			name:    "query_filter without expectation",
			content: "name: n\ndescription: d\nschema: {properties: {}}\nfilters: [{text: x}]\nassertions: [{type: query_filter}]\n",
			wantErr: "query_filter is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/testutil"
)

const onlineQuery = "0[0][n]=status&0[0][o]=is&0[0][v]=online"

// fixtures writes the device schema and records into dir.
func fixtures(t *testing.T, dir string) (schema, records string) {
	t.Helper()
	schema = filepath.Join(dir, "device.schema.json")
	records = filepath.Join(dir, "devices.json")
	require.NoError(t, os.WriteFile(schema, testutil.DeviceSchemaJSON(), 0o644))
	require.NoError(t, os.WriteFile(records, testutil.DevicesJSON(), 0o644))
	return schema, records
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// decodeData unmarshals the data member of a JSON CLI response.
func decodeData(t *testing.T, out string, dst any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

// compileFile compiles descriptors into a filter file and returns its path.
func compileFile(t *testing.T, dir, schema, name, descriptors string) string {
	t.Helper()
	in := writeInput(t, dir, name+".descriptors.yaml", descriptors)
	out := filepath.Join(dir, name+".filter.json")
	_, _, err := execute(t, dir, "compile", schema, in, "-o", out)
	require.NoError(t, err)
	return out
}

func TestOperatorsCommand(t *testing.T) {
	dir := workspace(t)
	schema, _ := fixtures(t, dir)

	out, _, err := execute(t, dir, "operators", schema)
	require.NoError(t, err)
	assert.Contains(t, out, "device_name (Name): is, is_not, contains, not_contains, matches_re, not_matches_re\n")
	assert.Contains(t, out, "total_devices (total_devices): is, is_not, is_more_than, is_less_than\n")
	assert.NotContains(t, out, "api_key")

	out, _, err = execute(t, dir, "--format", "json", "operators", schema, "created_at")
	require.NoError(t, err)
	var targets []TargetOperators
	decodeData(t, out, &targets)
	require.Len(t, targets, 1)
	assert.Equal(t, "created_at", targets[0].Key)
	assert.Equal(t, "is_before", targets[0].Operators[2].Slug)

	_, _, err = execute(t, dir, "operators", schema, "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCompileCommand(t *testing.T) {
	dir := workspace(t)
	schema, _ := fixtures(t, dir)
	in := writeInput(t, dir, "d.yaml", "- {field: status, operator: is, value: online}\n")

	out, _, err := execute(t, dir, "--format", "json", "compile", schema, in)
	require.NoError(t, err)
	var filter map[string]any
	decodeData(t, out, &filter)
	assert.Contains(t, filter, "$id")
	assert.Len(t, filter["anyOf"], 1)

	out, _, err = execute(t, dir, "--format", "json", "compile", schema, "--text", "kitchen")
	require.NoError(t, err)
	decodeData(t, out, &filter)
	assert.Equal(t, "full_text_search", filter["$id"])
}

func TestCompileCommandErrors(t *testing.T) {
	dir := workspace(t)
	schema, _ := fixtures(t, dir)

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantOut  string
	}{
		{"no input", []string{"compile", schema}, ExitCommandError, ErrCodeUsage},
		{"both inputs", []string{"compile", schema, schema, "--text", "x"}, ExitCommandError, ErrCodeUsage},
		{"missing schema", []string{"compile", filepath.Join(dir, "nope.json"), "--text", "x"}, ExitCommandError, ErrCodeLoadFailed},
		{
			"unsupported operator",
			[]string{"compile", schema, writeInput(t, dir, "bad.json", `[{"field": "tags", "operator": "is_after", "value": 1}]`)},
			ExitFailure, string(filtererr.ErrCodeUnsupportedOperator),
		},
		{
			"malformed descriptor",
			[]string{"compile", schema, writeInput(t, dir, "shape.json", `[{"operator": "is"}]`)},
			ExitCommandError, ErrCodeLoadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, dir, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestTranslateCommand(t *testing.T) {
	dir := workspace(t)
	schema, _ := fixtures(t, dir)
	filter := compileFile(t, dir, schema, "public", "- {field: is_public, operator: is, value: true}\n")

	out, _, err := execute(t, dir, "--format", "json", "translate", filter)
	require.NoError(t, err)
	var obj map[string]any
	decodeData(t, out, &obj)
	assert.Equal(t, map[string]any{"is_public": true}, obj)
}

func TestEvalCommand(t *testing.T) {
	dir := workspace(t)
	schema, records := fixtures(t, dir)
	filter := compileFile(t, dir, schema, "online", "- {field: status, operator: is, value: online}\n")

	out, _, err := execute(t, dir, "--format", "json", "eval", schema, filter, records)
	require.NoError(t, err)
	var matched []map[string]any
	decodeData(t, out, &matched)
	require.Len(t, matched, 1)
	assert.Equal(t, 1.0, matched[0]["id"])
}

func TestURLEncodeDecode(t *testing.T) {
	dir := workspace(t)
	schema, _ := fixtures(t, dir)
	filter := compileFile(t, dir, schema, "online", "- {field: status, operator: is, value: online}\n")

	out, _, err := execute(t, dir, "url", "encode", schema, filter)
	require.NoError(t, err)
	assert.Equal(t, onlineQuery+"\n", out)

	out, _, err = execute(t, dir, "--format", "json", "url", "decode", schema, onlineQuery)
	require.NoError(t, err)
	var result struct {
		Filters []map[string]any `json:"filters"`
		Cleared bool             `json:"cleared"`
	}
	decodeData(t, out, &result)
	assert.Len(t, result.Filters, 1)
	assert.False(t, result.Cleared)

	out, _, err = execute(t, dir, "url", "decode", schema, "0[0][n]=nope&0[0][o]=is&0[0][v]=x")
	require.NoError(t, err)
	assert.Contains(t, out, "filters cleared")
}

func TestURLRemember(t *testing.T) {
	dir := workspace(t)
	schema, _ := fixtures(t, dir)
	filter := compileFile(t, dir, schema, "online", "- {field: status, operator: is, value: online}\n")

	_, _, err := execute(t, dir, "url", "encode", "--remember", schema, filter)
	require.NoError(t, err)

	type decoded struct {
		Filters []map[string]any `json:"filters"`
		Cleared bool             `json:"cleared"`
	}

	// No query: falls back to the remembered one.
	out, _, err := execute(t, dir, "--format", "json", "url", "decode", "--remember", schema)
	require.NoError(t, err)
	var result decoded
	decodeData(t, out, &result)
	assert.Len(t, result.Filters, 1)
	assert.False(t, result.Cleared)

	// A remembered query that no longer fits the schema is forgotten.
	other := writeInput(t, dir, "other.schema.json", `{"type": "object", "properties": {"id": {"type": "integer"}}}`)
	out, _, err = execute(t, dir, "--format", "json", "url", "decode", "--remember", other)
	require.NoError(t, err)
	result = decoded{}
	decodeData(t, out, &result)
	assert.Empty(t, result.Filters)
	assert.True(t, result.Cleared)

	out, _, err = execute(t, dir, "--format", "json", "url", "decode", "--remember", schema)
	require.NoError(t, err)
	result = decoded{}
	decodeData(t, out, &result)
	assert.Empty(t, result.Filters)
	assert.False(t, result.Cleared)
}

func TestViewCommands(t *testing.T) {
	dir := workspace(t)
	schema, _ := fixtures(t, dir)
	filter := compileFile(t, dir, schema, "online", "- {field: status, operator: is, value: online}\n")

	out, _, err := execute(t, dir, "--format", "json", "view", "save", schema, "online", filter)
	require.NoError(t, err)
	var saved ViewSummary
	decodeData(t, out, &saved)
	assert.Equal(t, "online", saved.Name)
	assert.Equal(t, "default", saved.Collection)
	assert.Equal(t, onlineQuery, saved.Query)

	out, _, err = execute(t, dir, "view", "list")
	require.NoError(t, err)
	assert.Equal(t, "online\t?"+onlineQuery+"\n", out)

	out, _, err = execute(t, dir, "--format", "json", "view", "show", schema, "online")
	require.NoError(t, err)
	var shown ViewSummary
	decodeData(t, out, &shown)
	assert.Equal(t, saved.ID, shown.ID)
	assert.Len(t, shown.Filters, 1)

	out, _, err = execute(t, dir, "view", "list", "--collection", "fleets")
	require.NoError(t, err)
	assert.Equal(t, "No views in fleets\n", out)

	_, _, err = execute(t, dir, "view", "delete", "online")
	require.NoError(t, err)

	out, _, err = execute(t, dir, "view", "delete", "online")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

package refscheme

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/jsonschema"
)

const deviceSchema = `{
	"type": "object",
	"properties": {
		"device_name": {"type": "string", "title": "Name"},
		"api_heartbeat_state": {"type": "string", "description": "{\"x-no-filter\": true}"},
		"is_for__device_type": {
			"type": "array",
			"title": "Device type",
			"description": "{\"x-ref-scheme\": [\"slug\"]}",
			"items": {
				"type": "object",
				"required": ["slug", "name"],
				"properties": {
					"slug": {"type": "string", "title": "Slug"},
					"name": {"type": "string"}
				}
			}
		},
		"belongs_to__application": {
			"type": "object",
			"description": "{\"x-ref-scheme\": [\"app_name\"], \"x-foreign-key-scheme\": [\"owner.handle\"]}",
			"properties": {
				"app_name": {"type": "string", "title": "Fleet"},
				"owner": {
					"type": "object",
					"properties": {"handle": {"type": "string", "title": "Owner"}}
				}
			}
		},
		"releases": {
			"type": "object",
			"properties": {
				"builds": {
					"type": "array",
					"items": {"type": "object", "properties": {"version": {"type": "string"}}}
				}
			}
		}
	}
}`

func loadSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	var s jsonschema.Schema
	require.NoError(t, json.Unmarshal([]byte(deviceSchema), &s))
	return &s
}

func TestLookupPath(t *testing.T) {
	object := &jsonschema.Schema{Type: jsonschema.TypeList{"object"}}
	array := &jsonschema.Schema{Type: jsonschema.TypeList{"array"}}

	tests := []struct {
		name     string
		prop     *jsonschema.Schema
		refPath  string
		expected []string
	}{
		{"empty", object, "", nil},
		{"single", object, "slug", []string{"properties", "slug"}},
		{"nested", object, "a.b", []string{"properties", "a", "properties", "b"}},
		{"index marker", object, "a.b[0].c", []string{"properties", "a", "properties", "b", "items", "properties", "c"}},
		{"double index", object, "m[0][1]", []string{"properties", "m", "items", "items"}},
		{"array root", array, "slug", []string{"items", "properties", "slug"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LookupPath(tt.prop, tt.refPath))
		})
	}
}

func TestLookup(t *testing.T) {
	root := loadSchema(t)

	leaf, err := Lookup(root.Properties["is_for__device_type"], "slug")
	require.NoError(t, err)
	assert.Equal(t, "Slug", leaf.Title)

	leaf, err = Lookup(root.Properties["releases"], "builds[0].version")
	require.NoError(t, err)
	assert.True(t, leaf.Type.Has("string"))

	same, err := Lookup(root.Properties["device_name"], "")
	require.NoError(t, err)
	assert.Same(t, root.Properties["device_name"], same)
}

func TestLookupMissingSegment(t *testing.T) {
	root := loadSchema(t)

	_, err := Lookup(root.Properties["is_for__device_type"], "cpu_arch")
	require.Error(t, err)
	assert.True(t, filtererr.IsSchemaResolution(err))
	assert.Contains(t, err.Error(), `"cpu_arch"`)

	_, err = Lookup(root.Properties["device_name"], "x")
	assert.True(t, filtererr.IsSchemaResolution(err))
}

func TestPrune(t *testing.T) {
	root := loadSchema(t)
	prop := root.Properties["is_for__device_type"]
	before := prop.Clone()

	pruned, err := Prune(prop, "slug")
	require.NoError(t, err)

	assert.Equal(t, "Slug", pruned.Title)
	assert.Equal(t, []string{"slug"}, pruned.Items.PropertyKeys())
	assert.Equal(t, []string{"slug"}, pruned.Items.Required)
	assert.Equal(t, before.ToMap(), prop.ToMap(), "input must not change")
}

func TestPruneKeepsTitleWhenLeafHasNone(t *testing.T) {
	root := loadSchema(t)

	pruned, err := Prune(root.Properties["releases"], "builds[0].version")
	require.NoError(t, err)
	assert.Equal(t, "", pruned.Title)
	assert.Nil(t, pruned.Required)
	assert.Equal(t, []string{"version"}, pruned.Properties["builds"].Items.PropertyKeys())
}

func TestTargets(t *testing.T) {
	root := loadSchema(t)

	targets, err := Targets(root)
	require.NoError(t, err)

	keys := make([]string, 0, len(targets))
	for _, tg := range targets {
		keys = append(keys, tg.Key)
	}
	assert.Equal(t, []string{
		"belongs_to__application___app_name",
		"belongs_to__application___owner.handle",
		"device_name",
		"is_for__device_type",
		"releases",
	}, keys)

	assert.Equal(t, "Fleet", targets[0].Title)
	assert.Equal(t, "owner.handle", targets[1].RefPath)
	assert.Equal(t, "Name", targets[2].Title)
	assert.Equal(t, "Slug", targets[3].Title)
	assert.Equal(t, "slug", targets[3].RefPath)
	assert.Equal(t, "releases", targets[4].Title)
}

func TestTargetsBrokenRefScheme(t *testing.T) {
	root := &jsonschema.Schema{Properties: map[string]*jsonschema.Schema{
		"x": (&jsonschema.Schema{Type: jsonschema.TypeList{"object"}}).
			WithMeta(jsonschema.Metadata{RefScheme: jsonschema.PathList{"missing"}}),
	}}

	_, err := Targets(root)
	require.Error(t, err)
	assert.True(t, filtererr.IsSchemaResolution(err))
	assert.Contains(t, err.Error(), "field=x")
}

func TestSplitKey(t *testing.T) {
	field, ref := SplitKey("belongs_to__application___owner.handle")
	assert.Equal(t, "belongs_to__application", field)
	assert.Equal(t, "owner.handle", ref)

	field, ref = SplitKey("is_for__device_type")
	assert.Equal(t, "is_for__device_type", field)
	assert.Equal(t, "", ref)

	assert.Equal(t, "a___b", Key("a", "b"))
	assert.Equal(t, "a", Key("a", ""))
}

func TestResolve(t *testing.T) {
	root := loadSchema(t)

	tg, ok := Resolve(root, "is_for__device_type")
	require.True(t, ok)
	assert.Equal(t, "slug", tg.RefPath)

	tg, ok = Resolve(root, "belongs_to__application___owner.handle")
	require.True(t, ok)
	assert.Equal(t, "belongs_to__application", tg.Field)
	assert.Equal(t, "Owner", tg.Title)

	_, ok = Resolve(root, "nope")
	assert.False(t, ok)
}

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sieve/internal/datatype"
	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/testutil"
)

func canonical(t *testing.T, v any) string {
	t.Helper()
	b, err := jsonschema.MarshalCanonical(v)
	require.NoError(t, err)
	return string(b)
}

func TestCompileScalar(t *testing.T) {
	root := testutil.DeviceSchema(t)

	frag, err := Compile(root, Descriptor{Field: "total_devices", Operator: "is_more_than", Value: 10})
	require.NoError(t, err)
	assert.Equal(t,
		`{"properties":{"total_devices":{"exclusiveMinimum":10}},"required":["total_devices"],"type":"object"}`,
		canonical(t, frag))
}

func TestCompileRefScheme(t *testing.T) {
	root := testutil.DeviceSchema(t)

	frag, err := Compile(root, Descriptor{Field: "is_for__device_type", Operator: "is", Value: "bananapi-m1-plus"})
	require.NoError(t, err)
	assert.Equal(t,
		`{"properties":{"is_for__device_type":{"contains":{"properties":{"slug":{"const":"bananapi-m1-plus"}},"required":["slug"],"type":"object"},"minItems":1,"type":"array"}},"required":["is_for__device_type"],"type":"object"}`,
		canonical(t, frag))
}

func TestCompileCompositeKey(t *testing.T) {
	root := testutil.DeviceSchema(t)

	frag, err := Compile(root, Descriptor{Field: "belongs_to__application___owner.handle", Operator: "is", Value: "bob"})
	require.NoError(t, err)
	assert.Equal(t,
		`{"properties":{"belongs_to__application":{"properties":{"owner":{"properties":{"handle":{"const":"bob"}},"required":["handle"],"type":"object"}},"required":["owner"],"type":"object"}},"required":["belongs_to__application"],"type":"object"}`,
		canonical(t, frag))
}

func TestCompileErrors(t *testing.T) {
	root := testutil.DeviceSchema(t)

	tests := []struct {
		name  string
		d     Descriptor
		check func(error) bool
	}{
		{"unknown field", Descriptor{Field: "nope", Operator: "is"}, filtererr.IsUnknownField},
		{"bad ref path", Descriptor{Field: "is_for__device_type___cpu", Operator: "is"}, filtererr.IsSchemaResolution},
		{"unregistered operator", Descriptor{Field: "total_devices", Operator: "contains", Value: 1}, filtererr.IsUnsupportedOperator},
		{"operator from another type", Descriptor{Field: "is_public", Operator: "is_before", Value: true}, filtererr.IsUnsupportedOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(root, tt.d)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestCompileUnsupportedType(t *testing.T) {
	root := &jsonschema.Schema{Properties: map[string]*jsonschema.Schema{"blob": {Title: "Blob"}}}

	_, err := Compile(root, Descriptor{Field: "blob", Operator: "is", Value: "x"})
	assert.True(t, filtererr.IsUnsupportedType(err))
}

func TestCompileWithExplicitSchema(t *testing.T) {
	prop := &jsonschema.Schema{Type: jsonschema.TypeList{"boolean"}}

	frag, err := Compile(&jsonschema.Schema{}, Descriptor{Field: "flag", Operator: "is", Value: "false", Schema: prop})
	require.NoError(t, err)
	assert.Equal(t, `{"properties":{"flag":{"const":false}},"required":["flag"],"type":"object"}`, canonical(t, frag))
}

func TestCreateFilterAnnotatesMembers(t *testing.T) {
	root := testutil.DeviceSchema(t)

	f, err := CreateFilter(root, []Descriptor{
		{Field: "device_name", Operator: "contains", Value: "pi"},
		{Field: "belongs_to__application___owner.handle", Operator: "is_not", Value: "bob"},
	})
	require.NoError(t, err)
	require.Len(t, f.AnyOf, 2)
	assert.Len(t, f.ID, 64)

	assert.Equal(t, "contains", f.AnyOf[0].Title)
	assert.Equal(t, `{"field":"device_name","operator":"contains","value":"pi"}`, f.AnyOf[0].Description)
	assert.Equal(t, `{"field":"belongs_to__application","refPath":"owner.handle","operator":"is_not","value":"bob"}`, f.AnyOf[1].Description)

	again, err := CreateFilter(root, []Descriptor{
		{Field: "device_name", Operator: "contains", Value: "pi"},
		{Field: "belongs_to__application___owner.handle", Operator: "is_not", Value: "bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, f.ID, again.ID)
}

func TestCreateFilterDropsEmptyFragments(t *testing.T) {
	root := testutil.DeviceSchema(t)

	f, err := CreateFilter(root, []Descriptor{
		{Field: "total_devices", Operator: "is", Value: "many"},
		{Field: "total_devices", Operator: "is", Value: 3},
	})
	require.NoError(t, err)
	require.Len(t, f.AnyOf, 1)

	none, err := CreateFilter(root, []Descriptor{{Field: "total_devices", Operator: "is", Value: "many"}})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreateFilterPropagatesErrors(t *testing.T) {
	root := testutil.DeviceSchema(t)

	_, err := CreateFilter(root, []Descriptor{{Field: "missing", Operator: "is", Value: 1}})
	require.Error(t, err)
	assert.True(t, filtererr.IsUnknownField(err))
	assert.Contains(t, err.Error(), "compile missing is")
}

func TestDescriptorsRoundTrip(t *testing.T) {
	root := testutil.DeviceSchema(t)
	in := []Descriptor{
		{Field: "should_be_running__release", Operator: "is", Value: map[string]any{"not": nil}},
		{Field: "belongs_to__application___owner.handle", Operator: "is", Value: "alice"},
		{Field: "total_devices", Operator: "is_less_than", Value: 4.0},
	}

	f, err := CreateFilter(root, in)
	require.NoError(t, err)

	out, ok := Descriptors(f)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestDescriptorsRejectsUnannotated(t *testing.T) {
	_, ok := Descriptors(&jsonschema.Schema{AnyOf: []*jsonschema.Schema{{}}})
	assert.False(t, ok)

	_, ok = Descriptors(nil)
	assert.False(t, ok)
}

func TestFullText(t *testing.T) {
	root := testutil.DeviceSchema(t)

	f, err := FullText(root, "line")
	require.NoError(t, err)
	require.True(t, IsFullText(f))
	assert.Equal(t, FullTextID, f.Title)

	term, ok := FullTextTerm(f)
	require.True(t, ok)
	assert.Equal(t, "line", term)

	var fields []string
	for _, frag := range f.AnyOf[0].AnyOf {
		fields = append(fields, frag.PropertyKeys()...)
	}
	// Numbers, booleans and date-times cannot take a textual term, and
	// api_key is excluded from filtering.
	assert.Equal(t, []string{
		"application_tag",
		"belongs_to__application",
		"belongs_to__application",
		"device_name",
		"is_for__device_type",
		"note",
		"should_be_running__release",
		"status",
		"tags",
	}, fields)

	d, ok := Descriptors(f)
	require.True(t, ok)
	assert.Equal(t, []Descriptor{{Field: FullTextID, Operator: FullTextID, Value: "line"}}, d)
}

func TestFullTextEmptyTerm(t *testing.T) {
	f, err := FullText(testutil.DeviceSchema(t), "")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestOperators(t *testing.T) {
	root := testutil.DeviceSchema(t)

	ops, err := Operators(root, "created_at")
	require.NoError(t, err)
	assert.Equal(t, datatype.DateTime{}.Operators(), ops)

	ops, err = Operators(root, "application_tag")
	require.NoError(t, err)
	assert.Len(t, ops, 20)

	_, err = Operators(root, "missing")
	assert.True(t, filtererr.IsUnknownField(err))
}

func TestCompileDoesNotMutateSchema(t *testing.T) {
	root := testutil.DeviceSchema(t)
	before := canonical(t, root)

	_, err := CreateFilter(root, []Descriptor{
		{Field: "is_for__device_type", Operator: "is_not", Value: "x"},
		{Field: "application_tag", Operator: "key_contains", Value: "env"},
		{Field: "status", Operator: "is", Value: "online"},
	})
	require.NoError(t, err)
	_, err = FullText(root, "pi")
	require.NoError(t, err)

	assert.Equal(t, before, canonical(t, root))
}

package jsonschema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, 3.0, Normalize(3))
	assert.Equal(t, 3.0, Normalize(int64(3)))
	assert.Equal(t, 2.5, Normalize(json.Number("2.5")))
	assert.Equal(t, []any{"a", 1.0}, Normalize([]any{"a", 1}))
	assert.Equal(t, map[string]any{"k": 1.0}, Normalize(map[any]any{"k": 1}))
	assert.Equal(t, []any{"x"}, Normalize([]string{"x"}))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(1, 1.0))
	assert.True(t, Equal(map[string]any{"a": []any{1}}, map[string]any{"a": []any{1.0}}))
	assert.False(t, Equal("1", 1))
	assert.True(t, Equal(nil, nil))
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in    any
		want  float64
		valid bool
	}{
		{10, 10, true},
		{"10", 10, true},
		{"-1.5", -1.5, true},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := ToFloat(tt.in)
		assert.Equal(t, tt.valid, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "10", Stringify(10))
	assert.Equal(t, "0.25", Stringify(0.25))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "null", Stringify(nil))
	assert.Equal(t, `{"a":1}`, Stringify(map[string]any{"a": 1}))
}

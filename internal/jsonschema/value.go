package jsonschema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Normalize converts a decoded value into the JSON data model used across
// sieve: every number becomes float64, lists become []any and objects become
// map[string]any. Values from encoding/json, yaml.v3 and CUE all normalize to
// the same shape, so equality can use reflect.DeepEqual.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil, bool, string, float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = Normalize(e)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = e
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	default:
		return val
	}
}

// Equal reports whether two JSON values are structurally equal after
// normalization.
func Equal(a, b any) bool {
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// ToFloat reports the numeric value of v if v is a number or a string holding
// a finite number.
func ToFloat(v any) (float64, bool) {
	switch val := Normalize(v).(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Stringify renders a scalar the way a display layer would: strings as-is,
// numbers in shortest form, booleans and null as their JSON literals.
// Composite values render as compact JSON.
func Stringify(v any) string {
	switch val := Normalize(v).(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		s, err := formatNumber(val)
		if err != nil {
			return strconv.FormatFloat(val, 'g', -1, 64)
		}
		return s
	default:
		b, err := MarshalCanonical(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

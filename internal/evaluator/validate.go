package evaluator

import (
	"math"
	"strings"

	"github.com/roach88/sieve/internal/datatype"
	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/jsonschema"
)

// validate checks a normalized JSON value against a filter node.
//
// Structural keywords (properties, required, items, contains, minItems,
// maxItems) only constrain values of their own type. Leaf comparisons
// (pattern, regexp, numeric and format bounds) fail on any value they
// cannot compare, null included, so a positive comparison never accepts a
// missing value.
func (r *evaluation) validate(node *jsonschema.Schema, value any) (bool, error) {
	if node == nil {
		return true, nil
	}

	checks := []func(*jsonschema.Schema, any) (bool, error){
		r.checkType,
		r.checkValue,
		r.checkPattern,
		r.checkBounds,
		r.checkArray,
		r.checkObject,
		r.checkLogic,
		r.checkGrouping,
	}
	for _, check := range checks {
		ok, err := check(node, value)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (r *evaluation) checkType(node *jsonschema.Schema, value any) (bool, error) {
	if len(node.Type) == 0 {
		return true, nil
	}
	for _, name := range node.Type {
		if hasType(value, name) {
			return true, nil
		}
	}
	return false, nil
}

func hasType(value any, name string) bool {
	switch v := value.(type) {
	case nil:
		return name == jsonschema.TypeNull
	case bool:
		return name == jsonschema.TypeBoolean
	case string:
		return name == jsonschema.TypeString
	case float64:
		if name == jsonschema.TypeInteger {
			return v == math.Trunc(v)
		}
		return name == jsonschema.TypeNumber
	case []any:
		return name == jsonschema.TypeArray
	case map[string]any:
		return name == jsonschema.TypeObject
	default:
		return false
	}
}

func (r *evaluation) checkValue(node *jsonschema.Schema, value any) (bool, error) {
	if node.Const != nil && !jsonschema.Equal(node.Const.Value, value) {
		return false, nil
	}
	if node.Enum != nil {
		for _, candidate := range node.Enum {
			if jsonschema.Equal(candidate, value) {
				return true, nil
			}
		}
		return false, nil
	}
	return true, nil
}

func (r *evaluation) checkPattern(node *jsonschema.Schema, value any) (bool, error) {
	if node.Pattern == "" && node.Regexp == nil {
		return true, nil
	}
	s, ok := patternSubject(value)
	if !ok {
		return false, nil
	}
	if node.Pattern != "" {
		re, err := r.compile(node.Pattern, "")
		if err != nil {
			return false, err
		}
		if !re.MatchString(s) {
			return false, nil
		}
	}
	if node.Regexp != nil {
		re, err := r.compile(node.Regexp.Pattern, node.Regexp.Flags)
		if err != nil {
			return false, err
		}
		if !re.MatchString(s) {
			return false, nil
		}
	}
	return true, nil
}

// patternSubject is the text a pattern is matched against. Numbers and
// booleans match their display form.
func patternSubject(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64, bool:
		return jsonschema.Stringify(v), true
	default:
		return "", false
	}
}

func (r *evaluation) checkBounds(node *jsonschema.Schema, value any) (bool, error) {
	numeric := []struct {
		bound *float64
		ok    func(v, b float64) bool
	}{
		{node.Minimum, func(v, b float64) bool { return v >= b }},
		{node.Maximum, func(v, b float64) bool { return v <= b }},
		{node.ExclusiveMinimum, func(v, b float64) bool { return v > b }},
		{node.ExclusiveMaximum, func(v, b float64) bool { return v < b }},
	}
	for _, c := range numeric {
		if c.bound == nil {
			continue
		}
		v, isNumber := value.(float64)
		if !isNumber || !c.ok(v, *c.bound) {
			return false, nil
		}
	}

	formatted := []struct {
		bound string
		ok    func(cmp int) bool
	}{
		{node.FormatMinimum, func(cmp int) bool { return cmp >= 0 }},
		{node.FormatMaximum, func(cmp int) bool { return cmp <= 0 }},
		{node.FormatExclusiveMinimum, func(cmp int) bool { return cmp > 0 }},
		{node.FormatExclusiveMaximum, func(cmp int) bool { return cmp < 0 }},
	}
	for _, c := range formatted {
		if c.bound == "" {
			continue
		}
		s, isString := value.(string)
		if !isString || !c.ok(compareFormatted(s, c.bound)) {
			return false, nil
		}
	}
	return true, nil
}

// compareFormatted orders two formatted values as timestamps when both
// parse, lexically otherwise.
func compareFormatted(a, b string) int {
	ta, okA := datatype.ParseTimestamp(a)
	tb, okB := datatype.ParseTimestamp(b)
	if okA && okB {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}

func (r *evaluation) checkArray(node *jsonschema.Schema, value any) (bool, error) {
	list, isArray := value.([]any)
	if !isArray {
		return true, nil
	}
	if node.MinItems != nil && len(list) < *node.MinItems {
		return false, nil
	}
	if node.MaxItems != nil && len(list) > *node.MaxItems {
		return false, nil
	}
	if node.Items != nil {
		for _, el := range list {
			ok, err := r.validate(node.Items, el)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	if node.Contains != nil {
		for _, el := range list {
			ok, err := r.validate(node.Contains, el)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return true, nil
}

func (r *evaluation) checkObject(node *jsonschema.Schema, value any) (bool, error) {
	obj, isObject := value.(map[string]any)
	if !isObject {
		return true, nil
	}
	for _, name := range node.Required {
		if _, present := obj[name]; !present {
			return false, nil
		}
	}
	for _, name := range node.PropertyKeys() {
		v, present := obj[name]
		if !present {
			continue
		}
		ok, err := r.validate(node.Properties[name], v)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (r *evaluation) checkLogic(node *jsonschema.Schema, value any) (bool, error) {
	if node.Not != nil {
		ok, err := r.validate(node.Not, value)
		if err != nil || ok {
			return false, err
		}
	}
	for _, child := range node.AllOf {
		ok, err := r.validate(child, value)
		if err != nil || !ok {
			return false, err
		}
	}
	if node.AnyOf != nil {
		ok, err := r.count(node.AnyOf, value, 1)
		if err != nil || ok == 0 {
			return false, err
		}
	}
	if node.OneOf != nil {
		ok, err := r.count(node.OneOf, value, 2)
		if err != nil || ok != 1 {
			return false, err
		}
	}
	return true, nil
}

// count returns how many children accept value, stopping at limit.
func (r *evaluation) count(children []*jsonschema.Schema, value any, limit int) (int, error) {
	n := 0
	for _, child := range children {
		ok, err := r.validate(child, value)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
			if n == limit {
				break
			}
		}
	}
	return n, nil
}

// checkGrouping evaluates $and/$or members carried by filters built
// elsewhere.
func (r *evaluation) checkGrouping(node *jsonschema.Schema, value any) (bool, error) {
	for _, key := range []string{"$and", "$or"} {
		if _, ok := node.Extra[key]; !ok {
			continue
		}
		children, ok := node.ExtraSchemas(key)
		if !ok {
			return false, filtererr.New(filtererr.ErrCodeUnsupportedShape, "%s must be a list of filters", key)
		}
		limit := len(children)
		if key == "$or" {
			limit = 1
		}
		n, err := r.count(children, value, limit)
		if err != nil {
			return false, err
		}
		if (key == "$and" && n < len(children)) || (key == "$or" && n == 0) {
			return false, nil
		}
	}
	return true, nil
}

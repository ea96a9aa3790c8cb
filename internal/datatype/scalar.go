package datatype

import (
	"time"

	"github.com/roach88/sieve/internal/jsonschema"
)

var numberOperators = []Operator{
	{OpIs, "is"},
	{OpIsNot, "is not"},
	{OpIsMoreThan, "is more than"},
	{OpIsLessThan, "is less than"},
}

// Number is the number and integer kind.
type Number struct{}

func (Number) dataType() {}

// Kind implements DataType.
func (Number) Kind() Kind { return KindNumber }

// Operators implements DataType.
func (Number) Operators() []Operator { return numberOperators }

// CreateFilter implements DataType. A value that is not numeric yields {}.
func (Number) CreateFilter(field, operator string, value any) *jsonschema.Schema {
	n, ok := jsonschema.ToFloat(value)
	if !ok {
		return empty()
	}
	switch operator {
	case OpIs, FullTextSearch:
		return positive(field, constOf(n))
	case OpIsNot:
		return negative(field, constOf(n))
	case OpIsMoreThan:
		return positive(field, &jsonschema.Schema{ExclusiveMinimum: jsonschema.Float(n)})
	case OpIsLessThan:
		return positive(field, &jsonschema.Schema{ExclusiveMaximum: jsonschema.Float(n)})
	default:
		return empty()
	}
}

var booleanOperators = []Operator{
	{OpIs, "is"},
	{OpIsNot, "is not"},
}

// Boolean is the boolean kind.
type Boolean struct{}

func (Boolean) dataType() {}

// Kind implements DataType.
func (Boolean) Kind() Kind { return KindBoolean }

// Operators implements DataType.
func (Boolean) Operators() []Operator { return booleanOperators }

// CreateFilter implements DataType. The strings "true" and "false" are
// coerced to booleans.
func (Boolean) CreateFilter(field, operator string, value any) *jsonschema.Schema {
	b, ok := boolValue(value)
	if !ok {
		return empty()
	}
	switch operator {
	case OpIs, FullTextSearch:
		return positive(field, constOf(b))
	case OpIsNot:
		return negative(field, constOf(b))
	default:
		return empty()
	}
}

func boolValue(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch val {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

var dateTimeOperators = []Operator{
	{OpIs, "is"},
	{OpIsNot, "is not"},
	{OpIsBefore, "is before"},
	{OpIsAfter, "is after"},
}

// TimestampLayout is the canonical string form of a date-time value:
// RFC 3339 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// DateTime is the kind of properties whose format ends in "date-time".
type DateTime struct{}

func (DateTime) dataType() {}

// Kind implements DataType.
func (DateTime) Kind() Kind { return KindDateTime }

// Operators implements DataType.
func (DateTime) Operators() []Operator { return dateTimeOperators }

// CreateFilter implements DataType. String values are normalized to
// TimestampLayout in UTC; numeric values are epoch milliseconds and stay
// numbers. Full-text search does not apply to timestamps.
func (DateTime) CreateFilter(field, operator string, value any) *jsonschema.Schema {
	ts, ok := NormalizeTimestamp(value)
	if !ok {
		return empty()
	}
	_, epoch := ts.(float64)

	switch operator {
	case OpIs:
		return positive(field, constOf(ts))
	case OpIsNot:
		return negative(field, constOf(ts))
	case OpIsBefore:
		if epoch {
			return positive(field, &jsonschema.Schema{Maximum: jsonschema.Float(ts.(float64))})
		}
		return positive(field, &jsonschema.Schema{FormatMaximum: ts.(string)})
	case OpIsAfter:
		if epoch {
			return positive(field, &jsonschema.Schema{Minimum: jsonschema.Float(ts.(float64))})
		}
		return positive(field, &jsonschema.Schema{FormatMinimum: ts.(string)})
	default:
		return empty()
	}
}

// NormalizeTimestamp returns the canonical form of a date-time value: a
// TimestampLayout string for string input, epoch milliseconds for numeric
// input.
func NormalizeTimestamp(v any) (any, bool) {
	switch val := jsonschema.Normalize(v).(type) {
	case float64:
		return val, true
	case string:
		t, ok := ParseTimestamp(val)
		if !ok {
			return nil, false
		}
		return t.UTC().Format(TimestampLayout), true
	default:
		return nil, false
	}
}

// ParseTimestamp parses the date-time layouts accepted in filter values.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

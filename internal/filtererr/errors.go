// Package filtererr defines the coded error type shared by the filter
// compiler, evaluator, translator and URL codec.
//
// Structural errors (resolution, unsupported shape, unsupported regexp
// flag) always propagate to the caller: they indicate a defect in a schema
// or in filter construction. Invalid URL state is the one untrusted-input
// error and is absorbed by the URL codec.
package filtererr

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes a filter error.
type Code string

const (
	// ErrCodeSchemaResolution indicates a reference path segment that does
	// not exist in the schema.
	ErrCodeSchemaResolution Code = "E201"

	// ErrCodeUnknownField indicates a filter on a field the schema does not
	// declare.
	ErrCodeUnknownField Code = "E202"

	// ErrCodeUnsupportedType indicates a property whose shape maps to no
	// data type.
	ErrCodeUnsupportedType Code = "E203"

	// ErrCodeUnsupportedOperator indicates an operator not registered for
	// the resolved data type.
	ErrCodeUnsupportedOperator Code = "E204"

	// ErrCodeUnsupportedShape indicates a filter node the query translator
	// cannot classify.
	ErrCodeUnsupportedShape Code = "E205"

	// ErrCodeUnsupportedRegexFlag indicates a regexp flag other than "i".
	ErrCodeUnsupportedRegexFlag Code = "E206"

	// ErrCodeInvalidURLState indicates a decoded URL filter that references
	// an unknown field or a malformed operator.
	ErrCodeInvalidURLState Code = "E207"
)

var codeNames = map[Code]string{
	ErrCodeSchemaResolution:     "schema resolution",
	ErrCodeUnknownField:         "unknown field",
	ErrCodeUnsupportedType:      "unsupported type",
	ErrCodeUnsupportedOperator:  "unsupported operator",
	ErrCodeUnsupportedShape:     "unsupported filter shape",
	ErrCodeUnsupportedRegexFlag: "unsupported regexp flag",
	ErrCodeInvalidURLState:      "invalid URL filter state",
}

// Error is a filter error with structured context for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Field is the affected record field, when known.
	Field string

	// RefPath is the reference path being resolved, when relevant.
	RefPath string

	// Operator is the operator slug, when relevant.
	Operator string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", e.Code, codeNames[e.Code], e.Message)

	var ctx []string
	if e.Field != "" {
		ctx = append(ctx, "field="+e.Field)
	}
	if e.RefPath != "" {
		ctx = append(ctx, "ref="+e.RefPath)
	}
	if e.Operator != "" {
		ctx = append(ctx, "operator="+e.Operator)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	return b.String()
}

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// SchemaResolution reports a reference path segment that does not resolve.
func SchemaResolution(field, refPath, segment string) *Error {
	return &Error{
		Code:    ErrCodeSchemaResolution,
		Message: fmt.Sprintf("segment %q does not exist", segment),
		Field:   field,
		RefPath: refPath,
	}
}

// UnknownField reports a field missing from the schema.
func UnknownField(field string) *Error {
	return &Error{Code: ErrCodeUnknownField, Message: "field is not declared in the schema", Field: field}
}

// UnsupportedType reports a property that maps to no data type.
func UnsupportedType(field string) *Error {
	return &Error{Code: ErrCodeUnsupportedType, Message: "property has no filterable type", Field: field}
}

// UnsupportedOperator reports an operator not registered for a data type.
func UnsupportedOperator(field, operator, kind string) *Error {
	return &Error{
		Code:     ErrCodeUnsupportedOperator,
		Message:  fmt.Sprintf("operator is not registered for %s", kind),
		Field:    field,
		Operator: operator,
	}
}

// UnsupportedRegexFlag reports a regexp flag other than "i".
func UnsupportedRegexFlag(flags string) *Error {
	return &Error{Code: ErrCodeUnsupportedRegexFlag, Message: fmt.Sprintf("flags %q", flags)}
}

// Is reports whether err is a filter Error with the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsSchemaResolution returns true if err is a schema resolution error.
func IsSchemaResolution(err error) bool { return Is(err, ErrCodeSchemaResolution) }

// IsUnknownField returns true if err is an unknown field error.
func IsUnknownField(err error) bool { return Is(err, ErrCodeUnknownField) }

// IsUnsupportedType returns true if err is an unsupported type error.
func IsUnsupportedType(err error) bool { return Is(err, ErrCodeUnsupportedType) }

// IsUnsupportedOperator returns true if err is an unsupported operator error.
func IsUnsupportedOperator(err error) bool { return Is(err, ErrCodeUnsupportedOperator) }

// IsUnsupportedShape returns true if err is an unsupported shape error.
func IsUnsupportedShape(err error) bool { return Is(err, ErrCodeUnsupportedShape) }

// IsUnsupportedRegexFlag returns true if err is an unsupported regexp flag error.
func IsUnsupportedRegexFlag(err error) bool { return Is(err, ErrCodeUnsupportedRegexFlag) }

// IsInvalidURLState returns true if err is an invalid URL state error.
func IsInvalidURLState(err error) bool { return Is(err, ErrCodeInvalidURLState) }

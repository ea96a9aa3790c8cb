package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/urlcodec"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Query    string // URL encoding of the set, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Query != "" {
		fmt.Fprintf(&buf, "  Filter set: ?%s\n", e.Query)
	}
	return buf.String()
}

// check dispatches one assertion.
func (h *Harness) check(a Assertion, s Snapshot) error {
	switch a.Type {
	case AssertQueryFilter:
		return assertQueryFilter(s, a)
	case AssertQuery:
		return assertQuery(s, a)
	case AssertMatches:
		return assertMatches(s, a)
	case AssertRoundTrip:
		return assertRoundTrip(h.root, s)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertQueryFilter compares the translation with the expected object.
// Both sides are compared in canonical form, so numeric types do not matter.
func assertQueryFilter(s Snapshot, a Assertion) error {
	want, err := canonical(a.QueryFilter)
	if err != nil {
		return err
	}
	got, err := canonical(s.QueryFilter)
	if err != nil {
		return err
	}
	if want != got {
		return &AssertionError{Type: AssertQueryFilter, Expected: want, Actual: got, Query: s.Query}
	}
	return nil
}

// assertQuery compares the URL encoding exactly.
func assertQuery(s Snapshot, a Assertion) error {
	if s.Query != a.Query {
		return &AssertionError{
			Type:     AssertQuery,
			Expected: fmt.Sprintf("%q", a.Query),
			Actual:   fmt.Sprintf("%q", s.Query),
		}
	}
	return nil
}

// assertMatches compares the ids of matching records, in order.
func assertMatches(s Snapshot, a Assertion) error {
	want := a.IDs
	if want == nil {
		want = []any{}
	}
	got := s.MatchedIDs
	if got == nil {
		got = []any{}
	}
	if !jsonschema.Equal(want, got) {
		return &AssertionError{
			Type:     AssertMatches,
			Expected: fmt.Sprintf("ids %v", jsonschema.Normalize(want)),
			Actual:   fmt.Sprintf("ids %v", got),
			Query:    s.Query,
		}
	}
	return nil
}

// assertRoundTrip restores the URL encoding and compares canonical sets.
func assertRoundTrip(root *jsonschema.Schema, s Snapshot) error {
	restored, cleared := urlcodec.New(root).Restore(s.Query)
	if cleared {
		return &AssertionError{Type: AssertRoundTrip, Expected: "restorable query", Actual: "query was cleared", Query: s.Query}
	}
	want, err := canonical(s.Filters)
	if err != nil {
		return err
	}
	got, err := canonical(restored)
	if err != nil {
		return err
	}
	if want != got {
		return &AssertionError{Type: AssertRoundTrip, Expected: want, Actual: got, Query: s.Query}
	}
	return nil
}

func canonical(v any) (string, error) {
	b, err := jsonschema.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("canonical form: %w", err)
	}
	return string(b), nil
}

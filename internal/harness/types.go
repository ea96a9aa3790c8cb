package harness

import (
	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/queryfilter"
)

// Snapshot captures every observable output of a scenario's filter set.
type Snapshot struct {
	ScenarioName string
	Filters      jsonschema.FilterSet
	QueryFilter  queryfilter.Object
	Query        string

	// MatchedIDs are the "id" values of matching records, in record order.
	// Nil when the scenario has no records.
	MatchedIDs []any
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool

	// Snapshot holds the outputs the assertions ran against.
	Snapshot Snapshot

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

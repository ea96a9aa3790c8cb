package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sieve/internal/compiler"
	"github.com/roach88/sieve/internal/evaluator"
	"github.com/roach88/sieve/internal/jsonschema"
	"github.com/roach88/sieve/internal/queryfilter"
	"github.com/roach88/sieve/internal/refscheme"
	"github.com/roach88/sieve/internal/schemaload"
	"github.com/roach88/sieve/internal/urlcodec"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	root    *jsonschema.Schema
	records []map[string]any
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load the schema and records
// 2. Compile every filter step into the filter set
// 3. Translate, URL-encode and evaluate the set
// 4. Check assertions against the snapshot
//
// An error is returned when the scenario cannot be executed at all; failed
// assertions are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	if err := h.load(scenario); err != nil {
		return nil, err
	}

	set, err := h.compile(scenario.Filters)
	if err != nil {
		return nil, err
	}
	h.logger.Debug("filter set compiled", "scenario", scenario.Name, "filters", len(set))

	snapshot, err := h.observe(scenario.Name, set)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Snapshot = snapshot
	for i, a := range scenario.Assertions {
		if err := h.check(a, snapshot); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// load resolves the scenario's schema and records.
func (h *Harness) load(s *Scenario) error {
	var err error
	if s.SchemaFile != "" {
		h.root, err = schemaload.Schema(s.SchemaFile)
	} else {
		h.root, err = schemaload.ParseSchema(s.Schema, s.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	switch {
	case s.RecordsFile != "":
		h.records, err = schemaload.Records(s.RecordsFile)
		if err != nil {
			return fmt.Errorf("failed to load records: %w", err)
		}
	case s.Records != nil:
		h.records = make([]map[string]any, len(s.Records))
		for i, r := range s.Records {
			h.records[i] = jsonschema.Normalize(r).(map[string]any)
		}
	}
	return nil
}

// compile builds one filter per step. Steps whose values are all empty
// produce no filter.
func (h *Harness) compile(steps []FilterStep) (jsonschema.FilterSet, error) {
	set := jsonschema.FilterSet{}
	for i, step := range steps {
		var f *jsonschema.Schema
		var err error
		if step.Text != "" {
			f, err = compiler.FullText(h.root, step.Text)
		} else {
			descriptors := make([]compiler.Descriptor, len(step.Descriptors))
			for j, d := range step.Descriptors {
				descriptors[j] = compiler.Descriptor{
					Field:    refscheme.Key(d.Field, d.RefPath),
					Operator: d.Operator,
					Value:    jsonschema.Normalize(d.Value),
				}
			}
			f, err = compiler.CreateFilter(h.root, descriptors)
		}
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		if f != nil {
			set = append(set, f)
		}
	}
	return set, nil
}

// observe runs the set through the translator, the URL codec and the
// evaluator.
func (h *Harness) observe(name string, set jsonschema.FilterSet) (Snapshot, error) {
	snapshot := Snapshot{ScenarioName: name, Filters: set}

	var err error
	if snapshot.QueryFilter, err = queryfilter.TranslateSet(set); err != nil {
		return Snapshot{}, fmt.Errorf("translate: %w", err)
	}
	if snapshot.Query, err = urlcodec.EncodeQuery(set); err != nil {
		return Snapshot{}, fmt.Errorf("encode: %w", err)
	}

	if h.records != nil {
		matched, err := evaluator.Filter(h.root, set, h.records)
		if err != nil {
			return Snapshot{}, fmt.Errorf("evaluate: %w", err)
		}
		snapshot.MatchedIDs = make([]any, len(matched))
		for i, rec := range matched {
			snapshot.MatchedIDs[i] = rec["id"]
		}
	}
	return snapshot, nil
}

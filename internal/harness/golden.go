package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sieve/internal/jsonschema"
)

// toCanonicalMap converts a Snapshot to a map for canonical JSON
// serialization. The compiled filters are left out: their $id hashes are
// covered by the compiler's own tests.
func (s *Snapshot) toCanonicalMap() map[string]any {
	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"query_filter":  s.QueryFilter,
		"query":         s.Query,
	}
	if s.MatchedIDs != nil {
		result["matched_ids"] = s.MatchedIDs
	}
	return result
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := result.Snapshot
	snapshot.ScenarioName = scenarioName
	data, err := jsonschema.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sieve/internal/filtererr"
)

var (
	deviceSchema  = filepath.Join("..", "testutil", "fixtures", "device.schema.json")
	deviceRecords = filepath.Join("..", "testutil", "fixtures", "devices.json")
)

func fullTextAndStatus(assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "full_text_and_status",
		Description: "full-text filter AND-ed with an OR of statuses",
		SchemaFile:  deviceSchema,
		RecordsFile: deviceRecords,
		Filters: []FilterStep{
			{Text: "kitchen"},
			{Descriptors: []DescriptorStep{
				{Field: "status", Operator: "is", Value: "online"},
				{Field: "status", Operator: "is", Value: "idle"},
			}},
		},
		Assertions: assertions,
	}
}

func TestRun_FullTextAndOr(t *testing.T) {
	result, err := Run(fullTextAndStatus(
		Assertion{Type: AssertMatches, IDs: []any{1}},
		Assertion{Type: AssertQuery, Query: "0[0][n]=full_text_search&0[0][o]=full_text_search&0[0][v]=kitchen" +
			"&1[0][n]=status&1[0][o]=is&1[0][v]=online&1[1][n]=status&1[1][o]=is&1[1][v]=idle"},
		Assertion{Type: AssertRoundTrip},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Snapshot.Filters, 2)
	assert.Contains(t, result.Snapshot.QueryFilter, "$and")
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	result, err := Run(fullTextAndStatus(
		Assertion{Type: AssertMatches, IDs: []any{2}},
		Assertion{Type: AssertQueryFilter, QueryFilter: map[string]any{"status": "online"}},
		Assertion{Type: AssertQuery, Query: "0[0][n]=status"},
	))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "assertions[0]: Assertion failed: matches")
	assert.Contains(t, result.Errors[0], "Expected: ids [2]")
	assert.Contains(t, result.Errors[1], "Assertion failed: query_filter")
	assert.Contains(t, result.Errors[2], "Assertion failed: query")
}

func TestRun_UnrepresentableValueProducesNoFilter(t *testing.T) {
	result, err := Run(&Scenario{
		Name:       "empty",
		SchemaFile: deviceSchema,
		Records:    []map[string]any{{"id": 1}, {"id": 2}},
		Filters: []FilterStep{{Descriptors: []DescriptorStep{
			{Field: "is_public", Operator: "is", Value: "yes"},
		}}},
		Assertions: []Assertion{
			{Type: AssertQuery, Query: ""},
			{Type: AssertMatches, IDs: []any{1, 2}},
			{Type: AssertQueryFilter, QueryFilter: map[string]any{}},
			{Type: AssertRoundTrip},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Snapshot.Filters)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(&Scenario{
		Name:       "unknown field",
		SchemaFile: deviceSchema,
		Filters:    []FilterStep{{Descriptors: []DescriptorStep{{Field: "nope", Operator: "is", Value: 1}}}},
	})
	require.Error(t, err)
	assert.True(t, filtererr.IsUnknownField(err))

	_, err = Run(&Scenario{
		Name:   "bad schema",
		Schema: map[string]any{"type": "object"},
	})
	assert.ErrorContains(t, err, "failed to load schema")
}

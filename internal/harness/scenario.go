package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario builds a filter set against a collection schema, then asserts
// on its query-filter translation, URL encoding and in-memory matches.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is an inline collection schema. Exactly one of Schema and
	// SchemaFile is required.
	Schema map[string]any `yaml:"schema,omitempty"`

	// SchemaFile is a JSON, YAML or CUE schema path, relative to the
	// scenario file.
	SchemaFile string `yaml:"schema_file,omitempty"`

	// Records are inline records. At most one of Records and RecordsFile.
	Records []map[string]any `yaml:"records,omitempty"`

	// RecordsFile is a records path, relative to the scenario file.
	RecordsFile string `yaml:"records_file,omitempty"`

	// Filters are AND-ed into the filter set, in order.
	Filters []FilterStep `yaml:"filters"`

	// Assertions validate the compiled set.
	// Supported types: query_filter, query, matches, round_trip
	Assertions []Assertion `yaml:"assertions"`
}

// FilterStep builds one filter: OR-ed descriptors, or a full-text term.
type FilterStep struct {
	Descriptors []DescriptorStep `yaml:"descriptors,omitempty"`
	Text        string           `yaml:"text,omitempty"`
}

// DescriptorStep is one (field, operator, value) intent.
type DescriptorStep struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	RefPath  string `yaml:"ref_path,omitempty"`
	Value    any    `yaml:"value"`
}

// Assertion validates one view of the compiled filter set.
type Assertion struct {
	// Type specifies the assertion type:
	// - "query_filter": translation equals QueryFilter exactly
	// - "query": URL encoding equals Query exactly
	// - "matches": the ids of matching records equal IDs, in record order
	// - "round_trip": restoring the URL encoding yields the same set
	Type string `yaml:"type"`

	// QueryFilter is the expected translation (used by query_filter).
	QueryFilter map[string]any `yaml:"query_filter,omitempty"`

	// Query is the expected query string (used by query).
	Query string `yaml:"query,omitempty"`

	// IDs are the expected "id" values of matching records (used by matches).
	IDs []any `yaml:"ids,omitempty"`
}

// Assertion type constants.
const (
	AssertQueryFilter = "query_filter"
	AssertQuery       = "query"
	AssertMatches     = "matches"
	AssertRoundTrip   = "round_trip"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Schema and records paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&scenario.SchemaFile, &scenario.RecordsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Schema == nil) == (s.SchemaFile == "") {
		return fmt.Errorf("exactly one of schema and schema_file is required")
	}
	if s.Records != nil && s.RecordsFile != "" {
		return fmt.Errorf("records and records_file are mutually exclusive")
	}
	for _, p := range []string{s.SchemaFile, s.RecordsFile} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	if len(s.Filters) == 0 {
		return fmt.Errorf("filters list is required and must be non-empty")
	}
	for i, f := range s.Filters {
		if (len(f.Descriptors) == 0) == (f.Text == "") {
			return fmt.Errorf("filters[%d]: exactly one of descriptors and text is required", i)
		}
		for j, d := range f.Descriptors {
			if d.Field == "" || d.Operator == "" {
				return fmt.Errorf("filters[%d].descriptors[%d]: field and operator are required", i, j)
			}
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, s); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, s *Scenario) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertQueryFilter:
		if a.QueryFilter == nil {
			return fmt.Errorf("assertions[%d]: query_filter is required for query_filter", index)
		}
	case AssertQuery, AssertRoundTrip:
	case AssertMatches:
		if s.Records == nil && s.RecordsFile == "" {
			return fmt.Errorf("assertions[%d]: matches requires records or records_file", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

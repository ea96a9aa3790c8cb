// Package harness runs filter scenarios end to end: it compiles filters
// against a collection schema, then checks the query-filter translation,
// the URL encoding and the in-memory evaluation of the resulting set.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema_file: path/to/collection.schema.json   # or an inline schema:
//	records_file: path/to/records.json            # or inline records:
//	filters:
//	  - descriptors:
//	      - field: is_for__device_type
//	        ref_path: slug
//	        operator: contains
//	        value: rasp
//	  - text: kitchen
//	assertions:
//	  - type: query_filter
//	    query_filter: { status: online }
//	  - type: matches
//	    ids: [1, 3]
//	  - type: query
//	    query: "0[0][n]=status&0[0][o]=is&0[0][v]=online"
//	  - type: round_trip
//
// Each entry of filters becomes one filter of the set. A step holds either
// descriptors, OR-ed together, or a full-text term. File paths are resolved
// relative to the scenario file.
//
// # Assertion Types
//
//   - query_filter: the translation equals the expected object (canonical comparison)
//   - query: the URL encoding equals the expected string exactly
//   - matches: the ids of matching records, in record order
//   - round_trip: restoring the encoding yields the same set
//
// # Golden Snapshots
//
// RunWithGolden compares the canonical JSON snapshot of a run against
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness

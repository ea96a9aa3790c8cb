// Package testutil provides fixtures and deterministic helpers shared by
// package tests.
package testutil

import (
	_ "embed"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sieve/internal/jsonschema"
)

//go:embed fixtures/device.schema.json
var deviceSchemaJSON []byte

//go:embed fixtures/devices.json
var devicesJSON []byte

// DeviceSchemaJSON returns the raw device collection schema.
func DeviceSchemaJSON() []byte {
	return append([]byte(nil), deviceSchemaJSON...)
}

// DevicesJSON returns the raw device records.
func DevicesJSON() []byte {
	return append([]byte(nil), devicesJSON...)
}

// DeviceSchema returns a freshly decoded device collection schema.
//
// The schema covers every data type: strings, numbers, booleans, a oneOf
// status, a date-time, a nullable enum, an array of references
// (is_for__device_type with x-ref-scheme slug), a key/value tag array
// (application_tag), an object with two reference paths
// (belongs_to__application) and a property excluded from filtering
// (api_key).
func DeviceSchema(t testing.TB) *jsonschema.Schema {
	t.Helper()
	var s jsonschema.Schema
	require.NoError(t, json.Unmarshal(deviceSchemaJSON, &s))
	return &s
}

// Devices returns freshly decoded device records, numbers as float64.
func Devices(t testing.TB) []map[string]any {
	t.Helper()
	var records []map[string]any
	require.NoError(t, json.Unmarshal(devicesJSON, &records))
	return records
}

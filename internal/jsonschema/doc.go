// Package jsonschema provides the JSON-Schema node type shared by every
// other sieve package.
//
// A single Schema type plays two roles:
//
//   - PropertySchema: the description of one record field, loaded from a
//     collection schema (type, format, enum, oneOf, items, properties).
//   - CanonicalFilter: a boolean predicate over a record, expressed in the
//     same JSON-Schema vocabulary ({properties, required, not, anyOf, ...}).
//
// Custom metadata travels in the description keyword as a JSON string. It is
// parsed exactly once, when the node is decoded or built, into the typed
// Metadata field. A description that is not valid JSON simply yields empty
// metadata.
//
// This package imports nothing internal. Schema values are treated as
// immutable after construction: helpers that "change" a node return a copy.
package jsonschema

// Package store provides SQLite-backed storage for saved views and the
// last-used filter query of each collection.
//
// The store holds two tables:
//   - kv: byte values under string keys, used as the persistence port of a
//     URL codec session
//   - views: named filter sets per collection
//
// # Ordering
//
// Views are stamped with a seq INTEGER logical clock on insert, never a
// timestamp. Listings use ORDER BY seq ASC, id COLLATE BINARY ASC so the
// same database always lists views in the same order.
//
// # Serialization
//
// Filter sets are stored as canonical JSON (jsonschema.MarshalCanonical)
// together with their content hash, so identical filter sets produce
// identical rows.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

// Package store keeps a SQLite log of rendered statements and checks
// statements against a scratch SQLite schema.
//
// # Render log
//
// Every row is keyed by the statement fingerprint (hash of the template SQL)
// and the hash of the assigned parameter values, so recording the same render
// twice is a no-op. Rows are read back ordered by seq, a per-store counter,
// never by wall time.
//
// Parameter values are stored as canonical JSON (see ir.MarshalCanonical).
//
// # Prepare check
//
// Check applies a schema to a fresh in-memory database and runs a statement
// against it. A statement that SQLite can prepare and execute is portable
// enough for the test harness; MySQL-only functions such as JSON_CONTAINS
// fail the check.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store

// Package store provides SQLite-backed durable storage for eventloop runs.
//
// The store keeps two append-only tables:
//   - runs: one summary row per finished run (status, reason, error code,
//     final flags and shared data, graph hash, engine version)
//   - trace_events: the ordered trace of every run
//
// # Critical Patterns
//
// Logical Time:
//   - Trace ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - Traces read back in the order they were produced
//
// Idempotent Writes:
//   - PRIMARY KEY(run_id) and PRIMARY KEY(run_id, seq) with ON CONFLICT DO NOTHING
//   - Re-recording the same run is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// JSON columns hold canonical JSON from internal/ir where possible.
package store

// Package store provides SQLite-backed durable storage for generated rows.
//
// The store is an append-only sink with two tables:
//   - runs: one record per generation run (profile hash, mode, strategy)
//   - generated_rows: the rows of a run, keyed by (run_id, seq)
//
// # Critical Patterns
//
// CP-1: Row-Level Idempotency
//   - PRIMARY KEY(run_id, seq) with ON CONFLICT DO NOTHING
//   - Re-writing a row of a run is a no-op, so an interrupted sink can be
//     replayed from the start
//
// CP-2: Logical Time
//   - Rows are ordered by seq INTEGER (the generator's logical clock), never
//     by timestamps
//
// CP-3: Deterministic Query Results
//   - Row queries use ORDER BY seq ASC
//   - Run listings use ORDER BY id ASC COLLATE BINARY; UUIDv7 run IDs make
//     that creation order
//
// CP-4: Content Addressing
//   - row_hash is ir.RowHash of the row, data is its canonical JSON
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

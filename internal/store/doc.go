// Package store provides SQLite-backed durable storage for run journals.
//
// A journal records what a simulation run did, not the graph itself:
//   - Runs: one header per engine run (model, spec digest, versions)
//   - Steps: one summary per step (counts and the model digest after it)
//   - Commands: every collected command with its outcome
//
// # Ordering
//
// All ordering uses the engine's logical clock (seq), never timestamps.
// Every command query includes ORDER BY seq, so reading a journal twice
// yields identical results.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING keyed on (run_id, seq) and
// (run_id, step), so re-writing a step is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

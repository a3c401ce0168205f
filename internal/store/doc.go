// Package store provides SQLite-backed durable storage for saturation runs.
//
// The store is an append-only log with:
//   - Runs: one row per saturation, finalized with its stop reason
//   - Iterations: e-graph size and union counts after each rebuild
//   - Applications: per-rule match and union counts within an iteration
//   - Rulesets: canonical JSON of each rule set, keyed by its content hash
//
// Ordering uses seq INTEGER and iteration indices, never timestamps, so
// reading a run back yields the same records every time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// *Store implements runner.Recorder.
package store

// Package ir provides the record types shared by the saturation runner, the
// run store, and the scenario harness.
//
// This package contains type definitions and their canonical encodings only.
// All other internal packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Records never carry wall-clock timestamps; runs are ordered by insertion
//     sequence and iterations by index
//   - All JSON tags use snake_case
//   - Content-addressed identity (ruleset hashes) always goes through
//     MarshalCanonical
package ir

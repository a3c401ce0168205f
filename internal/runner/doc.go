// Package runner drives equality saturation: it repeatedly searches every
// rule, applies every rule to its matches, and rebuilds the e-graph until an
// iteration adds nothing or a budget runs out.
//
// Each iteration is one search/apply/rebuild round. All rules search the same
// graph state before any of them applies, so declaration order only affects
// union leaders, not which matches are seen.
//
// Runs are identified by a RunIDGenerator (UUIDv7 in production, fixed ids
// in tests) and may be logged through a Recorder.
package runner

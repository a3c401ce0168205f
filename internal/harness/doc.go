// Package harness runs saturation scenarios: YAML files naming rule files,
// a start term, optional facts, budgets, and assertions about the saturated
// e-graph.
//
// Each scenario runs against a fresh e-graph and a fresh in-memory store
// with a fixed run id, so the iteration log read back from the store is
// reproducible and can be compared against golden files.
//
// Supported assertions:
//   - equivalent: all terms end up in one class
//   - not_equivalent: two terms end up in different classes
//   - stop_reason: the run ended for the given reason
//   - rule_applied: a rule performed exactly count unions (or any, if count is omitted)
//   - best: the smallest term equal to the start term
package harness

package harness

import "github.com/roach88/eqsat/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// RunID identifies the run in the store.
	RunID string `json:"run_id"`

	// StopReason explains why saturation ended.
	StopReason ir.StopReason `json:"stop_reason"`

	// Iterations is the iteration log as read back from the store.
	Iterations []ir.IterationRecord `json:"iterations"`

	// Nodes and Classes describe the final e-graph.
	Nodes   int `json:"nodes"`
	Classes int `json:"classes"`

	// Best is the smallest term equal to the start term, and BestCost its size.
	Best     string `json:"best"`
	BestCost int    `json:"best_cost"`

	// LimitedRules lists rules that hit their application limit.
	LimitedRules []string `json:"limited_rules,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Iterations: []ir.IterationRecord{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

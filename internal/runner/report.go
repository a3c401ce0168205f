package runner

import (
	"time"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/term"
)

// Report summarizes one saturation run.
type Report struct {
	RunID       string
	RulesetHash string
	Start       *term.Expr // Nil when Run was given no start term
	Root        egraph.ID  // Class of Start when it was added; canonicalize with Find
	StopReason  ir.StopReason
	Iterations  []ir.IterationRecord
	Elapsed     time.Duration
}

// Applied returns the total number of unions rules performed.
func (r *Report) Applied() int {
	n := 0
	for _, it := range r.Iterations {
		n += it.Applied
	}
	return n
}

// Record returns the run as stored by a Recorder once finished.
func (r *Report) Record(ruleCount int) ir.RunRecord {
	return ir.RunRecord{
		ID:          r.RunID,
		StartExpr:   startText(r.Start),
		RulesetHash: r.RulesetHash,
		RuleCount:   ruleCount,
		StopReason:  r.StopReason,
		Iterations:  len(r.Iterations),
		IRVersion:   ir.IRVersion,
	}
}

// LimitedRules returns, in first-seen order, the rules that hit their
// application limit in any iteration.
func (r *Report) LimitedRules() []string {
	var out []string
	seen := make(map[string]bool)
	for _, it := range r.Iterations {
		for _, ra := range it.Rules {
			if ra.Limited && !seen[ra.Rule] {
				seen[ra.Rule] = true
				out = append(out, ra.Rule)
			}
		}
	}
	return out
}

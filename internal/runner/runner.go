package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/rewrite"
	"github.com/roach88/eqsat/internal/term"
)

// Default budgets.
const (
	DefaultIterationLimit = 30
	DefaultNodeLimit      = 10_000
	DefaultTimeLimit      = 5 * time.Second
)

// Runner saturates e-graphs with a fixed, ordered rule set.
//
// A Runner holds no graph state and may be reused. Run must not be called
// concurrently on the same e-graph.
type Runner struct {
	rules       []*rewrite.Rewrite // Declaration order
	rulesetHash string
	budget      Budget
	recorder    Recorder
	ids         RunIDGenerator
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithIterationLimit caps the number of iterations.
// Default: DefaultIterationLimit.
func WithIterationLimit(n int) Option {
	return func(r *Runner) { r.budget.IterationLimit = n }
}

// WithNodeLimit stops the run once the graph holds more than n e-nodes.
// Default: DefaultNodeLimit.
func WithNodeLimit(n int) Option {
	return func(r *Runner) { r.budget.NodeLimit = n }
}

// WithTimeLimit stops the run once d has elapsed.
// Default: DefaultTimeLimit.
func WithTimeLimit(d time.Duration) Option {
	return func(r *Runner) { r.budget.TimeLimit = d }
}

// WithRecorder logs every run through rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(r *Runner) { r.ids = gen }
}

// New creates a Runner for rules. The slice is copied; rule order is the
// order rules are searched and applied in every iteration.
//
// Returns an error if the rule set cannot be hashed.
func New(rules []*rewrite.Rewrite, opts ...Option) (*Runner, error) {
	rulesCopy := make([]*rewrite.Rewrite, len(rules))
	copy(rulesCopy, rules)

	descriptors := make([]ir.RuleDescriptor, len(rulesCopy))
	for i, rule := range rulesCopy {
		descriptors[i] = rule.Descriptor()
	}
	hash, err := ir.RulesetHash(descriptors)
	if err != nil {
		return nil, fmt.Errorf("hash ruleset: %w", err)
	}

	r := &Runner{
		rules:       rulesCopy,
		rulesetHash: hash,
		budget: Budget{
			IterationLimit: DefaultIterationLimit,
			NodeLimit:      DefaultNodeLimit,
			TimeLimit:      DefaultTimeLimit,
		},
		ids: UUIDv7Generator{},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RulesetHash returns the content hash of the rule set.
func (r *Runner) RulesetHash() string { return r.rulesetHash }

// Budget returns the configured limits.
func (r *Runner) Budget() Budget { return r.budget }

// Run adds start to g (when non-nil) and saturates g.
//
// Exhausting a budget or cancelling ctx is not an error: the report's
// StopReason says why the run ended. Errors come only from the Recorder.
func (r *Runner) Run(ctx context.Context, g *egraph.EGraph, start *term.Expr) (*Report, error) {
	report := &Report{
		RunID:       r.ids.Generate(),
		RulesetHash: r.rulesetHash,
		Start:       start,
	}
	if start != nil {
		report.Root = g.AddExpr(start)
	}
	if g.Dirty() {
		g.Rebuild()
	}

	if r.recorder != nil {
		run := ir.RunRecord{
			ID:          report.RunID,
			StartExpr:   startText(start),
			RulesetHash: r.rulesetHash,
			RuleCount:   len(r.rules),
			IRVersion:   ir.IRVersion,
		}
		if err := r.recorder.BeginRun(ctx, run); err != nil {
			return nil, fmt.Errorf("begin run %s: %w", report.RunID, err)
		}
	}

	logger := slog.With("run_id", report.RunID)
	logger.Debug("saturation started",
		"rules", len(r.rules),
		"ruleset_hash", r.rulesetHash,
	)

	began := r.now()
	for {
		if ctx.Err() != nil {
			report.StopReason = ir.StopCancelled
			break
		}
		if err := r.budget.Check(len(report.Iterations), g.NodeCount(), r.now().Sub(began)); err != nil {
			report.StopReason = err.(*LimitError).Reason
			break
		}

		it := r.iterate(g, len(report.Iterations))
		report.Iterations = append(report.Iterations, it)

		logger.Debug("iteration complete",
			"iteration", it.Index,
			"applied", it.Applied,
			"rebuilt", it.Rebuilt,
			"nodes", it.Nodes,
			"classes", it.Classes,
		)

		if r.recorder != nil {
			if err := r.recorder.RecordIteration(ctx, report.RunID, it); err != nil {
				return nil, fmt.Errorf("record iteration %d of run %s: %w", it.Index, report.RunID, err)
			}
		}

		if it.Applied == 0 {
			report.StopReason = ir.StopSaturated
			break
		}
	}
	report.Elapsed = r.now().Sub(began)

	if r.recorder != nil {
		// The run is over even if ctx is; its outcome still gets logged.
		finishCtx := context.WithoutCancel(ctx)
		if err := r.recorder.FinishRun(finishCtx, report.RunID, report.StopReason, len(report.Iterations)); err != nil {
			return nil, fmt.Errorf("finish run %s: %w", report.RunID, err)
		}
	}

	logger.Info("saturation finished",
		"stop_reason", report.StopReason,
		"iterations", len(report.Iterations),
		"nodes", g.NodeCount(),
		"classes", g.ClassCount(),
	)

	return report, nil
}

// iterate runs one search/apply/rebuild round.
func (r *Runner) iterate(g *egraph.EGraph, index int) ir.IterationRecord {
	searched := make([]searchResult, len(r.rules))
	for i, rule := range r.rules {
		searched[i] = searchResult{matches: rule.Search(g)}
	}

	it := ir.IterationRecord{
		Index: index,
		Rules: make([]ir.RuleApplications, len(r.rules)),
	}
	for i, rule := range r.rules {
		ids := rule.Apply(g, searched[i].matches)
		it.Rules[i] = ir.RuleApplications{
			Rule:    rule.Name(),
			Matches: searched[i].count(),
			Count:   len(ids),
			Limited: len(ids) > rule.ApplicationLimit(),
		}
		it.Applied += len(ids)
	}

	it.Rebuilt = g.Rebuild()
	it.Nodes = g.NodeCount()
	it.Classes = g.ClassCount()
	return it
}

// searchResult holds one rule's matches for the current iteration.
type searchResult struct {
	matches []pattern.SearchMatches
}

// count returns the number of mappings, which is what Apply iterates over.
func (s searchResult) count() int {
	n := 0
	for _, m := range s.matches {
		n += len(m.Mappings)
	}
	return n
}

func startText(e *term.Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}

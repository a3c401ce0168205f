package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/eqsat/internal/compiler"
	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/rewrite"
	"github.com/roach88/eqsat/internal/runner"
	"github.com/roach88/eqsat/internal/store"
	"github.com/roach88/eqsat/internal/term"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the scenario's rule files
//  2. Open an in-memory store and register the rule set
//  3. Add the facts and the start term to a fresh e-graph
//  4. Saturate with a fixed run id, recording into the store
//  5. Read the iteration log back and extract the best term
//  6. Evaluate assertions
//
// Returns an error only for setup failures (bad rules, bad terms, store
// errors). Failed assertions are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	rules, err := compiler.CompileFiles(scenario.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	start, err := term.Parse(scenario.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start term: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	opts, err := runnerOptions(scenario)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		runner.WithRecorder(st),
		runner.WithRunIDGenerator(runner.NewFixedGenerator("scenario-"+scenario.Name)),
	)

	r, err := runner.New(rules, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	if err := st.WriteRuleset(ctx, r.RulesetHash(), descriptors(rules)); err != nil {
		return nil, fmt.Errorf("failed to write ruleset: %w", err)
	}

	g := egraph.New()
	if err := addFacts(g, scenario.Facts); err != nil {
		return nil, err
	}

	report, err := r.Run(ctx, g, start)
	if err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}

	iterations, err := st.ReadIterations(ctx, report.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read iterations: %w", err)
	}

	result := NewResult()
	result.RunID = report.RunID
	result.StopReason = report.StopReason
	result.Iterations = iterations
	result.Nodes = g.NodeCount()
	result.Classes = g.ClassCount()
	result.LimitedRules = report.LimitedRules()

	best, cost, ok := egraph.NewExtractor(g).FindBest(report.Root)
	if ok {
		result.Best = best.String()
		result.BestCost = cost
	}

	actx := &AssertionContext{Graph: g, Report: report, Best: result.Best}
	for i, a := range scenario.Assertions {
		if err := EvaluateAssertion(actx, a); err != nil {
			result.AddError(fmt.Sprintf("assertion[%d]: %s", i, err))
		}
	}

	return result, nil
}

func runnerOptions(s *Scenario) ([]runner.Option, error) {
	var opts []runner.Option
	if s.Limits.Iterations > 0 {
		opts = append(opts, runner.WithIterationLimit(s.Limits.Iterations))
	}
	if s.Limits.Nodes > 0 {
		opts = append(opts, runner.WithNodeLimit(s.Limits.Nodes))
	}
	if s.Limits.Time != "" {
		d, err := time.ParseDuration(s.Limits.Time)
		if err != nil {
			return nil, fmt.Errorf("limits.time: %w", err)
		}
		opts = append(opts, runner.WithTimeLimit(d))
	}
	return opts, nil
}

// addFacts unions each pair of terms. The runner rebuilds before its first
// iteration.
func addFacts(g *egraph.EGraph, facts [][2]string) error {
	for i, fact := range facts {
		lhs, err := term.Parse(fact[0])
		if err != nil {
			return fmt.Errorf("facts[%d]: %w", i, err)
		}
		rhs, err := term.Parse(fact[1])
		if err != nil {
			return fmt.Errorf("facts[%d]: %w", i, err)
		}
		g.Union(g.AddExpr(lhs), g.AddExpr(rhs))
	}
	return nil
}

func descriptors(rules []*rewrite.Rewrite) []ir.RuleDescriptor {
	out := make([]ir.RuleDescriptor, len(rules))
	for i, r := range rules {
		out[i] = r.Descriptor()
	}
	return out
}

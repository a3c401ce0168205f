package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/runner"
	"github.com/roach88/eqsat/internal/term"
)

// AssertionContext is what assertions are evaluated against.
type AssertionContext struct {
	Graph  *egraph.EGraph
	Report *runner.Report
	Best   string // Printed best term of the start class
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type       string               // Assertion type for categorization
	Expected   string               // Human-readable expected outcome
	Actual     string               // Human-readable actual outcome
	Iterations []ir.IterationRecord // Iteration log for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Iterations) > 0 {
		fmt.Fprintf(&buf, "\nIterations:\n")
		for _, it := range e.Iterations {
			fmt.Fprintf(&buf, "  [%d] applied=%d nodes=%d classes=%d\n", it.Index, it.Applied, it.Nodes, it.Classes)
		}
	}

	return buf.String()
}

// EvaluateAssertion checks one assertion against a finished run.
// Returns nil if the assertion holds.
func EvaluateAssertion(ctx *AssertionContext, a Assertion) error {
	switch a.Type {
	case AssertEquivalent:
		return assertEquivalent(ctx, a)
	case AssertNotEquivalent:
		return assertNotEquivalent(ctx, a)
	case AssertStopReason:
		return assertStopReason(ctx, a)
	case AssertRuleApplied:
		return assertRuleApplied(ctx, a)
	case AssertBest:
		return assertBest(ctx, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// lookupTerm parses text and finds its class without inserting anything.
func lookupTerm(g *egraph.EGraph, text string) (egraph.ID, bool, error) {
	e, err := term.Parse(text)
	if err != nil {
		return 0, false, fmt.Errorf("parse %q: %w", text, err)
	}
	id, ok := g.Lookup(e)
	return id, ok, nil
}

func assertEquivalent(ctx *AssertionContext, a Assertion) error {
	first, ok, err := lookupTerm(ctx.Graph, a.Terms[0])
	if err != nil {
		return err
	}
	if !ok {
		return ctx.fail(a.Type, fmt.Sprintf("%s in the e-graph", a.Terms[0]), "term not found")
	}

	for _, text := range a.Terms[1:] {
		id, ok, err := lookupTerm(ctx.Graph, text)
		if err != nil {
			return err
		}
		if !ok {
			return ctx.fail(a.Type, fmt.Sprintf("%s in the e-graph", text), "term not found")
		}
		if id != first {
			return ctx.fail(a.Type,
				fmt.Sprintf("%s == %s", a.Terms[0], text),
				fmt.Sprintf("classes %d and %d", first, id))
		}
	}
	return nil
}

// assertNotEquivalent holds when either term is absent or the two terms
// are in different classes.
func assertNotEquivalent(ctx *AssertionContext, a Assertion) error {
	lhs, ok, err := lookupTerm(ctx.Graph, a.Terms[0])
	if err != nil || !ok {
		return err
	}
	rhs, ok, err := lookupTerm(ctx.Graph, a.Terms[1])
	if err != nil || !ok {
		return err
	}
	if lhs == rhs {
		return ctx.fail(a.Type,
			fmt.Sprintf("%s != %s", a.Terms[0], a.Terms[1]),
			fmt.Sprintf("both in class %d", lhs))
	}
	return nil
}

func assertStopReason(ctx *AssertionContext, a Assertion) error {
	if string(ctx.Report.StopReason) != a.Expect {
		return ctx.fail(a.Type, a.Expect, string(ctx.Report.StopReason))
	}
	return nil
}

func assertRuleApplied(ctx *AssertionContext, a Assertion) error {
	total := 0
	found := false
	for _, it := range ctx.Report.Iterations {
		for _, ra := range it.Rules {
			if ra.Rule == a.Rule {
				found = true
				total += ra.Count
			}
		}
	}
	if !found {
		return ctx.fail(a.Type, fmt.Sprintf("rule %s in the run", a.Rule), "rule not found")
	}

	if a.Count == nil {
		if total == 0 {
			return ctx.fail(a.Type, fmt.Sprintf("%s applied at least once", a.Rule), "0 applications")
		}
		return nil
	}
	if total != *a.Count {
		return ctx.fail(a.Type,
			fmt.Sprintf("%s applied %d times", a.Rule, *a.Count),
			fmt.Sprintf("%d applications", total))
	}
	return nil
}

func assertBest(ctx *AssertionContext, a Assertion) error {
	want, err := term.Parse(a.Expect)
	if err != nil {
		return fmt.Errorf("parse %q: %w", a.Expect, err)
	}
	if ctx.Best != want.String() {
		return ctx.fail(a.Type, want.String(), ctx.Best)
	}
	return nil
}

func (ctx *AssertionContext) fail(typ, expected, actual string) error {
	err := &AssertionError{Type: typ, Expected: expected, Actual: actual}
	if ctx.Report != nil {
		err.Iterations = ctx.Report.Iterations
	}
	return err
}

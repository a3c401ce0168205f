package rewrite

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/term"
)

// captureLogs routes the default slog logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func mustLookup(t *testing.T, g *egraph.EGraph, text string) egraph.ID {
	t.Helper()
	id, ok := g.Lookup(term.MustParse(text))
	require.True(t, ok, "term %s not in graph", text)
	return id
}

// leafOp returns the operator of the first leaf node in class id.
func leafOp(g *egraph.EGraph, id egraph.ID) (string, bool) {
	cls := g.Class(g.Find(id))
	if cls == nil {
		return "", false
	}
	for _, n := range cls.Nodes {
		if n.IsLeaf() {
			return n.Op, true
		}
	}
	return "", false
}

// TestRewrite_ConditionalFiring verifies the guard blocks the rule until the
// fact it checks is in the graph.
func TestRewrite_ConditionalFiring(t *testing.T) {
	g := egraph.New()
	g.AddExpr(term.MustParse("x"))
	g.AddExpr(term.MustParse("2"))
	mul := g.AddExpr(term.MustParse("(* x 2)"))
	truth := g.AddExpr(term.MustParse("TRUE"))

	b, err := RW("mul_to_shift").P("(* ?a ?b)").A("(>> ?a (log2 ?b))").
		WithConditionStrings("(is-power2 ?b)", "TRUE")
	require.NoError(t, err)
	rule := b.MustBuild()

	ids := rule.Apply(g, rule.Search(g))
	assert.Empty(t, ids)

	fact := mustLookup(t, g, "(is-power2 2)")
	g.Union(fact, truth)
	g.Rebuild()

	ids = rule.Apply(g, rule.Search(g))
	assert.Equal(t, []egraph.ID{g.Find(mul)}, ids)

	g.Rebuild()
	assert.Equal(t, []egraph.ID{g.Find(mul)}, g.Equivs(term.MustParse("(* x 2)"), term.MustParse("(>> x (log2 2))")))
}

// TestRewrite_ComputedApplier builds a new leaf from the names of the
// matched children.
func TestRewrite_ComputedApplier(t *testing.T) {
	g := egraph.New()
	start := term.MustParse("(+ x y)")
	goal := term.MustParse("xy")
	root := g.AddExpr(start)

	_, ok := g.Lookup(goal)
	require.False(t, ok)

	concat := Computed("concat", func(g *egraph.EGraph, m pattern.Mapping) []egraph.ID {
		a, _ := m.Get("?a")
		b, _ := m.Get("?b")
		sa, okA := leafOp(g, a)
		sb, okB := leafOp(g, b)
		if !okA || !okB {
			return nil
		}
		return []egraph.ID{g.Add(egraph.Node(sa + sb)).ID}
	})
	rule := RW("fn_rewrite").P("(+ ?a ?b)").WithApplier(concat).MustBuild()

	ids := rule.Apply(g, rule.Search(g))
	require.Len(t, ids, 1)
	g.Rebuild()

	assert.Equal(t, []egraph.ID{g.Find(root)}, g.Equivs(start, goal))
}

// TestRewrite_OneLeaderPerMatch verifies a plain rule records one union per match.
func TestRewrite_OneLeaderPerMatch(t *testing.T) {
	g := egraph.New()
	fa := g.AddExpr(term.MustParse("(f a)"))
	fb := g.AddExpr(term.MustParse("(f b)"))

	rule := RW("f_to_k").P("(f ?x)").A("(k ?x)").MustBuild()
	ids := rule.Apply(g, rule.Search(g))

	assert.Equal(t, []egraph.ID{fa, fb}, ids)
}

// TestRewrite_SelfResultSkipped verifies results equal to the matched class
// produce nothing.
func TestRewrite_SelfResultSkipped(t *testing.T) {
	g := egraph.New()
	g.AddExpr(term.MustParse("(f a)"))
	nodes, classes := g.NodeCount(), g.ClassCount()

	rule := RW("identity").P("?x").A("?x").MustBuild()
	ids := rule.Apply(g, rule.Search(g))

	assert.Empty(t, ids)
	assert.Equal(t, nodes, g.NodeCount())
	assert.Equal(t, classes, g.ClassCount())
	assert.False(t, g.Dirty())
}

// TestRewrite_ApplicationLimit verifies the strict greater-than cap: limit N
// yields N+1 results and one warning, and later matches are left alone.
func TestRewrite_ApplicationLimit(t *testing.T) {
	const limit = 3
	logs := captureLogs(t)

	g := egraph.New()
	var expected []egraph.ID
	for i := 0; i < limit+5; i++ {
		id := g.AddExpr(term.MustParse(fmt.Sprintf("(g c%d)", i)))
		if i <= limit {
			expected = append(expected, id)
		}
	}

	rule := RW("limited").P("(g ?x)").A("(h ?x)").WithApplicationLimit(limit).MustBuild()
	matches := rule.Search(g)
	require.Len(t, matches, limit+5)

	ids := rule.Apply(g, matches)
	assert.Equal(t, expected, ids)
	assert.Len(t, ids, limit+1)

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, "rewrite exceeded application limit"))
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "rule=limited")
	assert.Contains(t, out, "applications=4")

	_, ok := g.Lookup(term.MustParse(fmt.Sprintf("(h c%d)", limit)))
	assert.True(t, ok, "the application past the limit is kept")
	for i := limit + 1; i < limit+5; i++ {
		_, ok := g.Lookup(term.MustParse(fmt.Sprintf("(h c%d)", i)))
		assert.False(t, ok, "match %d must be unprocessed", i)
	}
}

// TestRewrite_LimitNotReached verifies no warning is logged at exactly the limit.
func TestRewrite_LimitNotReached(t *testing.T) {
	logs := captureLogs(t)

	g := egraph.New()
	for i := 0; i < 3; i++ {
		g.AddExpr(term.MustParse(fmt.Sprintf("(g c%d)", i)))
	}

	rule := RW("limited").P("(g ?x)").A("(h ?x)").WithApplicationLimit(3).MustBuild()
	ids := rule.Apply(g, rule.Search(g))

	assert.Len(t, ids, 3)
	assert.NotContains(t, logs.String(), "rewrite exceeded application limit")
}

// TestRewrite_ReapplyIsStable verifies a second pass over the same matches
// records nothing once the first pass has taken effect.
func TestRewrite_ReapplyIsStable(t *testing.T) {
	g := egraph.New()
	root := g.AddExpr(term.MustParse("(+ x y)"))

	rule := RW("commute").P("(+ ?a ?b)").A("(+ ?b ?a)").MustBuild()
	matches := rule.Search(g)

	first := rule.Apply(g, matches)
	assert.Equal(t, []egraph.ID{root}, first)
	g.Rebuild()

	second := rule.Apply(g, matches)
	assert.Empty(t, second)
}

// TestRewrite_Monotonic verifies Apply only adds terms and equivalences.
func TestRewrite_Monotonic(t *testing.T) {
	g := egraph.New()
	terms := []string{"(+ x y)", "(* x 2)", "(+ (* x 2) y)", "z"}
	var before []egraph.ID
	for _, s := range terms {
		before = append(before, g.AddExpr(term.MustParse(s)))
	}
	g.Union(mustLookup(t, g, "z"), mustLookup(t, g, "y"))
	g.Rebuild()
	nodes := g.NodeCount()

	rules := []*Rewrite{
		RW("commute").P("(+ ?a ?b)").A("(+ ?b ?a)").MustBuild(),
		RW("double").P("(* ?a 2)").A("(+ ?a ?a)").MustBuild(),
	}
	for _, r := range rules {
		r.Apply(g, r.Search(g))
	}
	g.Rebuild()

	assert.GreaterOrEqual(t, g.NodeCount(), nodes)
	for i, s := range terms {
		assert.True(t, g.Contains(before[i]))
		id := mustLookup(t, g, s)
		assert.Equal(t, g.Find(before[i]), id, "term %s keeps its class", s)
	}
	assert.NotNil(t, g.Equivs(term.MustParse("y"), term.MustParse("z")))
	assert.NotNil(t, g.Equivs(term.MustParse("(+ x y)"), term.MustParse("(+ y x)")))
	assert.NotNil(t, g.Equivs(term.MustParse("(* x 2)"), term.MustParse("(+ x x)")))
}

// TestRewrite_SearchKeepsOverlaps verifies matches from different patterns
// are concatenated without de-duplication.
func TestRewrite_SearchKeepsOverlaps(t *testing.T) {
	g := egraph.New()
	fa := g.AddExpr(term.MustParse("(f a)"))

	rule := RW("either").P("(f ?x)").P("(f a)").A("k").MustBuild()
	matches := rule.Search(g)
	require.Len(t, matches, 2)
	assert.Equal(t, fa, matches[0].EClass)
	assert.Equal(t, fa, matches[1].EClass)

	// The second match sees k already merged into its class.
	ids := rule.Apply(g, matches)
	assert.Equal(t, []egraph.ID{fa}, ids)
}

// TestRewrite_AppliersRunInOrder verifies each applier contributes in
// declaration order for each mapping.
func TestRewrite_AppliersRunInOrder(t *testing.T) {
	g := egraph.New()
	g.AddExpr(term.MustParse("(f a)"))

	var calls []string
	record := func(name string) Applier {
		return Computed(name, func(g *egraph.EGraph, m pattern.Mapping) []egraph.ID {
			calls = append(calls, name)
			return nil
		})
	}
	rule := RW("ordered").P("(f ?x)").WithApplier(record("first")).WithApplier(record("second")).MustBuild()

	ids := rule.Apply(g, rule.Search(g))
	assert.Empty(t, ids)
	assert.Equal(t, []string{"first", "second"}, calls)
}

// TestRewrite_ConditionMaterializes verifies a failing condition still adds
// its terms, and conditions after the failing one are not evaluated.
func TestRewrite_ConditionMaterializes(t *testing.T) {
	g := egraph.New()
	g.AddExpr(term.MustParse("(* x 3)"))
	g.AddExpr(term.MustParse("TRUE"))

	b, err := RW("guarded").P("(* ?a ?b)").A("(>> ?a (log2 ?b))").
		WithConditionStrings("(is-power2 ?b)", "TRUE")
	require.NoError(t, err)
	b, err = b.WithConditionStrings("(never ?a)", "TRUE")
	require.NoError(t, err)
	rule := b.MustBuild()

	ids := rule.Apply(g, rule.Search(g))
	assert.Empty(t, ids)

	_, ok := g.Lookup(term.MustParse("(is-power2 3)"))
	assert.True(t, ok, "failing condition materializes its terms")
	_, ok = g.Lookup(term.MustParse("(never x)"))
	assert.False(t, ok, "later conditions are skipped")
	_, ok = g.Lookup(term.MustParse("(log2 3)"))
	assert.False(t, ok, "applier must not run")
}

// TestRewrite_Run verifies Run searches, applies, and logs at debug level.
func TestRewrite_Run(t *testing.T) {
	logs := captureLogs(t)

	g := egraph.New()
	root := g.AddExpr(term.MustParse("(+ x y)"))

	rule := RW("commute").P("(+ ?a ?b)").A("(+ ?b ?a)").MustBuild()
	ids := rule.Run(g)

	assert.Equal(t, []egraph.ID{root}, ids)
	out := logs.String()
	assert.Contains(t, out, "rewrite matched")
	assert.Contains(t, out, "matches=1")
	assert.Contains(t, out, "rewrite applied")
	assert.Contains(t, out, "applications=1")
}

// TestRewrite_ApplyDoesNotMutateRule verifies the rule is unchanged by use.
func TestRewrite_ApplyDoesNotMutateRule(t *testing.T) {
	g := egraph.New()
	g.AddExpr(term.MustParse("(+ x y)"))

	rule := RW("commute").P("(+ ?a ?b)").A("(+ ?b ?a)").MustBuild()
	before := rule.Descriptor()
	rule.Apply(g, rule.Search(g))

	assert.Equal(t, before, rule.Descriptor())
}

// TestRewrite_Descriptor verifies the printable summary of a rule.
func TestRewrite_Descriptor(t *testing.T) {
	b, err := RW("mul_to_shift").P("(* ?a ?b)").A("(>> ?a (log2 ?b))").
		WithApplicationLimit(50).
		WithConditionStrings("(is-power2 ?b)", "TRUE")
	require.NoError(t, err)
	rule := b.WithApplier(Computed("noop", func(*egraph.EGraph, pattern.Mapping) []egraph.ID { return nil })).MustBuild()

	d := rule.Descriptor()
	assert.Equal(t, "mul_to_shift", d.Name)
	assert.Equal(t, []string{"(* ?a ?b)"}, d.Patterns)
	assert.Equal(t, []string{"(>> ?a (log2 ?b))", "<noop>"}, d.Appliers)
	assert.Equal(t, []string{"(is-power2 ?b) = TRUE"}, d.Conditions)
	assert.Equal(t, 50, d.Limit)
	assert.Equal(t, "mul_to_shift: [(* ?a ?b)] => [(>> ?a (log2 ?b)) <noop>]", rule.String())
}

// TestRewrite_AccessorsReturnCopies verifies callers cannot alter a built rule.
func TestRewrite_AccessorsReturnCopies(t *testing.T) {
	rule := RW("r").P("(f ?x)").A("(g ?x)").MustBuild()

	ps := rule.Patterns()
	ps[0] = pattern.MustParse("(zzz)")
	as := rule.Appliers()
	as[0] = nil

	assert.Equal(t, "(f ?x)", rule.Patterns()[0].String())
	assert.NotNil(t, rule.Appliers()[0])
	assert.Empty(t, rule.Conditions())
	assert.Equal(t, DefaultApplicationLimit, rule.ApplicationLimit())
	assert.Equal(t, "r", rule.Name())
}

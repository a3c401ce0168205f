package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/term"
)

func TestApplierFunc_Apply(t *testing.T) {
	g := egraph.New()
	x := g.AddExpr(term.MustParse("x"))

	fn := ApplierFunc(func(g *egraph.EGraph, m pattern.Mapping) []egraph.ID {
		id, _ := m.Get("?v")
		return []egraph.ID{id}
	})
	assert.Equal(t, []egraph.ID{x}, fn.Apply(g, pattern.Mapping{"?v": {x}}))
}

func TestDescribeApplier(t *testing.T) {
	fn := ApplierFunc(func(*egraph.EGraph, pattern.Mapping) []egraph.ID { return nil })

	assert.Equal(t, "(g ?x)", describeApplier(pattern.MustParse("(g ?x)")))
	assert.Equal(t, "<named>", describeApplier(Computed("named", fn)))
	assert.Equal(t, "<rewrite.ApplierFunc>", describeApplier(fn))
}

// TestApplier_SharedAcrossRules verifies one applier value can back several rules.
func TestApplier_SharedAcrossRules(t *testing.T) {
	calls := 0
	shared := Computed("count", func(*egraph.EGraph, pattern.Mapping) []egraph.ID {
		calls++
		return nil
	})

	g := egraph.New()
	g.AddExpr(term.MustParse("(f (g a))"))

	r1 := RW("f").P("(f ?x)").WithApplier(shared).MustBuild()
	r2 := RW("g").P("(g ?x)").WithApplier(shared).MustBuild()
	r1.Run(g)
	r2.Run(g)
	r1.Run(g)

	assert.Equal(t, 3, calls)
}

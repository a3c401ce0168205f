package rewrite

import (
	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
)

// Condition holds for a mapping when LHS and RHS instantiate to the same
// canonical class.
type Condition struct {
	LHS *pattern.Pattern
	RHS *pattern.Pattern
}

// ParseCondition builds a condition from two pattern texts.
// Parse failures are returned unchanged (*term.ParseError).
func ParseCondition(lhs, rhs string) (Condition, error) {
	l, err := pattern.Parse(lhs)
	if err != nil {
		return Condition{}, err
	}
	r, err := pattern.Parse(rhs)
	if err != nil {
		return Condition{}, err
	}
	return Condition{LHS: l, RHS: r}, nil
}

// Check instantiates both sides under m and compares their classes.
//
// Both sides are always inserted into g, even when the check fails. Later
// rounds may match against those terms, so the side effect is kept on
// purpose rather than probing with a read-only lookup.
func (c Condition) Check(g *egraph.EGraph, m pattern.Mapping) bool {
	lhs := c.LHS.SubstAndFind(g, m)
	rhs := c.RHS.SubstAndFind(g, m)
	return lhs == rhs
}

// String renders the condition as "lhs = rhs".
func (c Condition) String() string {
	return c.LHS.String() + " = " + c.RHS.String()
}

// Vars returns the wildcards used by either side.
func (c Condition) Vars() []pattern.Var {
	return append(c.LHS.Vars(), c.RHS.Vars()...)
}

// VarKinds merges the wildcard kinds of both sides. A wildcard used as a
// single wildcard on either side is reported as Single.
func (c Condition) VarKinds() map[pattern.Var]pattern.WildcardKind {
	kinds := c.LHS.VarKinds()
	mergeKinds(kinds, c.RHS.VarKinds())
	return kinds
}

// mergeKinds adds src to dst, letting Single win over Multi.
func mergeKinds(dst, src map[pattern.Var]pattern.WildcardKind) {
	for v, k := range src {
		if cur, ok := dst[v]; !ok || cur == pattern.Multi {
			dst[v] = k
		}
	}
}

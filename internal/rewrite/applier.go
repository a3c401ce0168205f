package rewrite

import (
	"fmt"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
)

// Applier is the right-hand side of a rewrite rule.
//
// Given the graph and one accepted mapping, it returns the classes of terms
// it wants equated with the matched class. It may insert terms, look them up,
// or compute new ones from the matched classes' nodes. Returning nothing is
// how an applier declines a match; there is no error channel.
//
// Appliers must be deterministic for a given mapping and graph state. They
// are shared by reference across every match and every Apply call, so any
// mutable state they capture is the applier author's to protect.
//
// *pattern.Pattern implements Applier by instantiating itself.
type Applier interface {
	Apply(g *egraph.EGraph, m pattern.Mapping) []egraph.ID
}

var _ Applier = (*pattern.Pattern)(nil)

// ApplierFunc adapts a plain function to the Applier interface.
type ApplierFunc func(g *egraph.EGraph, m pattern.Mapping) []egraph.ID

// Apply calls f(g, m).
func (f ApplierFunc) Apply(g *egraph.EGraph, m pattern.Mapping) []egraph.ID {
	return f(g, m)
}

// Computed wraps fn in an Applier that describes itself as <name>.
// Prefer it to a bare ApplierFunc so rule summaries and ruleset hashes can
// tell computed appliers apart.
func Computed(name string, fn ApplierFunc) Applier {
	return &computedApplier{name: name, fn: fn}
}

type computedApplier struct {
	name string
	fn   ApplierFunc
}

func (c *computedApplier) Apply(g *egraph.EGraph, m pattern.Mapping) []egraph.ID {
	return c.fn(g, m)
}

func (c *computedApplier) String() string {
	return "<" + c.name + ">"
}

// describeApplier renders an applier for summaries.
func describeApplier(a Applier) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("<%T>", a)
}

// varUser is implemented by appliers whose wildcards can be checked at build time.
type varUser interface {
	VarKinds() map[pattern.Var]pattern.WildcardKind
}

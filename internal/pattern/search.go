package pattern

import "github.com/roach88/eqsat/internal/egraph"

// Search matches p against every class of g, in ascending class id order.
// Classes with no mapping are omitted.
func (p *Pattern) Search(g *egraph.EGraph) []SearchMatches {
	var out []SearchMatches
	for _, cls := range g.Classes() {
		if mappings := p.match(g, cls.ID, Mapping{}); len(mappings) > 0 {
			out = append(out, SearchMatches{EClass: cls.ID, Mappings: mappings})
		}
	}
	return out
}

// SearchEClass matches p against a single class.
func (p *Pattern) SearchEClass(g *egraph.EGraph, id egraph.ID) (SearchMatches, bool) {
	id = g.Find(id)
	mappings := p.match(g, id, Mapping{})
	if len(mappings) == 0 {
		return SearchMatches{}, false
	}
	return SearchMatches{EClass: id, Mappings: mappings}, true
}

// match returns every extension of m under which p matches class id.
// Nodes are tried in stored order, so results are deterministic.
func (p *Pattern) match(g *egraph.EGraph, id egraph.ID, m Mapping) []Mapping {
	if p.IsWildcard() {
		if bound, ok := m[p.v]; ok {
			if len(bound) == 1 && g.Find(bound[0]) == g.Find(id) {
				return []Mapping{m}
			}
			return nil
		}
		return []Mapping{m.with(p.v, []egraph.ID{g.Find(id)})}
	}

	cls := g.Class(id)
	if cls == nil {
		return nil
	}

	var out []Mapping
	for _, n := range cls.Nodes {
		if n.Op != p.op {
			continue
		}
		out = append(out, matchChildren(g, p.children, n.Children, m)...)
	}
	return out
}

func matchChildren(g *egraph.EGraph, pats []*Pattern, ids []egraph.ID, m Mapping) []Mapping {
	fixed := pats
	var rest *Pattern
	if n := len(pats); n > 0 && pats[n-1].IsWildcard() && pats[n-1].kind == Multi {
		fixed, rest = pats[:n-1], pats[n-1]
		if len(ids) < len(fixed) {
			return nil
		}
	} else if len(ids) != len(pats) {
		return nil
	}

	results := []Mapping{m}
	for i, pat := range fixed {
		var next []Mapping
		for _, r := range results {
			next = append(next, pat.match(g, ids[i], r)...)
		}
		if len(next) == 0 {
			return nil
		}
		results = next
	}

	if rest == nil {
		return results
	}

	tail := make([]egraph.ID, len(ids)-len(fixed))
	for i, id := range ids[len(fixed):] {
		tail[i] = g.Find(id)
	}

	var out []Mapping
	for _, r := range results {
		if bound, ok := r[rest.v]; ok {
			if sameClasses(g, bound, tail) {
				out = append(out, r)
			}
			continue
		}
		out = append(out, r.with(rest.v, tail))
	}
	return out
}

func sameClasses(g *egraph.EGraph, a, b []egraph.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if g.Find(a[i]) != g.Find(b[i]) {
			return false
		}
	}
	return true
}

// SubstAndFind instantiates p under m, inserting any missing subterms, and
// returns the canonical class of the result.
//
// Panics if p uses a wildcard m does not bind; rule construction rejects
// such patterns.
func (p *Pattern) SubstAndFind(g *egraph.EGraph, m Mapping) egraph.ID {
	if p.IsWildcard() {
		ids, ok := m[p.v]
		if !ok || len(ids) != 1 {
			panic("pattern: wildcard " + string(p.v) + " is not bound to a single class")
		}
		return g.Find(ids[0])
	}

	children := make([]egraph.ID, 0, len(p.children))
	for _, c := range p.children {
		if c.IsWildcard() && c.kind == Multi {
			ids, ok := m[c.v]
			if !ok {
				panic("pattern: wildcard " + string(c.v) + " is not bound")
			}
			children = append(children, ids...)
			continue
		}
		children = append(children, c.SubstAndFind(g, m))
	}
	return g.Find(g.Add(egraph.ENode{Op: p.op, Children: children}).ID)
}

// Apply instantiates p under m and returns its class, which lets a pattern
// serve directly as the right-hand side of a rewrite rule.
func (p *Pattern) Apply(g *egraph.EGraph, m Mapping) []egraph.ID {
	return []egraph.ID{p.SubstAndFind(g, m)}
}

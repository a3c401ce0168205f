package egraph

import "github.com/roach88/eqsat/internal/term"

// Extractor picks the smallest term (by operator count) represented by each
// class. Build it after Rebuild; later mutations are not observed.
type Extractor struct {
	g    *EGraph
	best map[ID]choice
}

type choice struct {
	cost int
	node ENode
}

// NewExtractor computes the cheapest node of every class.
func NewExtractor(g *EGraph) *Extractor {
	x := &Extractor{g: g, best: make(map[ID]choice, g.ClassCount())}

	// Fixed point: a class gets a cost once all children of one of its nodes have one.
	for changed := true; changed; {
		changed = false
		for _, cls := range g.Classes() {
			for _, n := range cls.Nodes {
				cost, ok := x.nodeCost(n)
				if !ok {
					continue
				}
				if cur, seen := x.best[cls.ID]; !seen || cost < cur.cost {
					x.best[cls.ID] = choice{cost: cost, node: n}
					changed = true
				}
			}
		}
	}
	return x
}

func (x *Extractor) nodeCost(n ENode) (int, bool) {
	cost := 1
	for _, c := range n.Children {
		ch, ok := x.best[x.g.Find(c)]
		if !ok {
			return 0, false
		}
		cost += ch.cost
	}
	return cost, true
}

// FindBest returns the smallest term in the class of id and its size.
// ok is false when the class only holds cyclic terms.
func (x *Extractor) FindBest(id ID) (expr *term.Expr, cost int, ok bool) {
	ch, ok := x.best[x.g.Find(id)]
	if !ok {
		return nil, 0, false
	}
	return x.build(ch.node), ch.cost, true
}

func (x *Extractor) build(n ENode) *term.Expr {
	e := &term.Expr{Op: n.Op}
	for _, c := range n.Children {
		e.Children = append(e.Children, x.build(x.best[x.g.Find(c)].node))
	}
	return e
}

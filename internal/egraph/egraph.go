package egraph

import (
	"slices"

	"github.com/roach88/eqsat/internal/term"
)

// EGraph is a hash-consed graph of equivalence classes.
//
// INVARIANTS:
//   - Every key in classes is a union-find root
//   - memo maps node keys to class ids; after Rebuild every key is built from
//     canonical children and every value is canonical
//   - Nodes are never removed; Union only moves them into the leader class
type EGraph struct {
	uf      unionFind
	memo    map[string]ID
	classes map[ID]*EClass
	dirty   bool // Unions since the last Rebuild
}

// New creates an empty e-graph.
func New() *EGraph {
	return &EGraph{
		memo:    make(map[string]ID),
		classes: make(map[ID]*EClass),
	}
}

// Find returns the canonical id of the class containing id.
// Panics if id was never returned by this graph.
func (g *EGraph) Find(id ID) ID {
	return g.uf.find(id)
}

// Contains reports whether id was issued by this graph.
func (g *EGraph) Contains(id ID) bool {
	return int(id) < g.uf.size()
}

func (g *EGraph) canonicalize(n ENode) ENode {
	c := ENode{Op: n.Op}
	if len(n.Children) > 0 {
		c.Children = make([]ID, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = g.Find(child)
		}
	}
	return c
}

// Add inserts a node, or finds the class that already holds it.
// The returned id is canonical at the time of the call.
func (g *EGraph) Add(n ENode) AddResult {
	c := g.canonicalize(n)
	k := c.key()
	if id, ok := g.memo[k]; ok {
		return AddResult{ID: g.Find(id), WasNew: false}
	}

	id := g.uf.makeSet()
	g.classes[id] = &EClass{ID: id, Nodes: []ENode{c}}
	g.memo[k] = id
	return AddResult{ID: id, WasNew: true}
}

// AddExpr inserts every subterm of e and returns the class of the root.
func (g *EGraph) AddExpr(e *term.Expr) ID {
	children := make([]ID, len(e.Children))
	for i, c := range e.Children {
		children[i] = g.AddExpr(c)
	}
	return g.Add(ENode{Op: e.Op, Children: children}).ID
}

// Union merges the classes of a and b and returns the new leader.
//
// The leader is a's root unless b's class holds strictly more nodes, so
// merging a fresh term into an established class keeps the established id.
// Congruence is not restored until Rebuild.
func (g *EGraph) Union(a, b ID) ID {
	ra, rb := g.Find(a), g.Find(b)
	if ra == rb {
		return ra
	}

	if len(g.classes[rb].Nodes) > len(g.classes[ra].Nodes) {
		ra, rb = rb, ra
	}

	g.uf.link(ra, rb)
	leader := g.classes[ra]
	leader.Nodes = append(leader.Nodes, g.classes[rb].Nodes...)
	delete(g.classes, rb)
	g.dirty = true

	return ra
}

// Rebuild restores the congruence invariant after a batch of unions.
// Returns the number of additional unions congruence required.
//
// Classes are visited in ascending id order so the result is deterministic.
func (g *EGraph) Rebuild() int {
	total := 0
	for {
		memo := make(map[string]ID, len(g.memo))
		var pending [][2]ID

		for _, cls := range g.Classes() {
			for _, n := range cls.Nodes {
				k := g.canonicalize(n).key()
				if other, ok := memo[k]; ok {
					if other != cls.ID {
						pending = append(pending, [2]ID{other, cls.ID})
					}
					continue
				}
				memo[k] = cls.ID
			}
		}

		merged := 0
		for _, p := range pending {
			if g.Find(p[0]) != g.Find(p[1]) {
				g.Union(p[0], p[1])
				merged++
			}
		}
		total += merged

		if merged == 0 {
			g.memo = memo
			g.dedupeNodes()
			g.dirty = false
			return total
		}
	}
}

// dedupeNodes canonicalizes every node and drops duplicates within a class,
// keeping first occurrences in order.
func (g *EGraph) dedupeNodes() {
	for _, cls := range g.classes {
		seen := make(map[string]bool, len(cls.Nodes))
		nodes := cls.Nodes[:0]
		for _, n := range cls.Nodes {
			c := g.canonicalize(n)
			k := c.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			nodes = append(nodes, c)
		}
		cls.Nodes = nodes
	}
}

// Dirty reports whether unions happened since the last Rebuild.
func (g *EGraph) Dirty() bool {
	return g.dirty
}

// Class returns the class containing id, or nil if id is unknown.
func (g *EGraph) Class(id ID) *EClass {
	if !g.Contains(id) {
		return nil
	}
	return g.classes[g.Find(id)]
}

// Classes returns all classes in ascending id order.
func (g *EGraph) Classes() []*EClass {
	ids := make([]ID, 0, len(g.classes))
	for id := range g.classes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]*EClass, len(ids))
	for i, id := range ids {
		out[i] = g.classes[id]
	}
	return out
}

// ClassCount returns the number of classes.
func (g *EGraph) ClassCount() int {
	return len(g.classes)
}

// NodeCount returns the number of stored nodes across all classes.
func (g *EGraph) NodeCount() int {
	n := 0
	for _, cls := range g.classes {
		n += len(cls.Nodes)
	}
	return n
}

// Lookup finds the class of a ground term without inserting anything.
func (g *EGraph) Lookup(e *term.Expr) (ID, bool) {
	children := make([]ID, len(e.Children))
	for i, c := range e.Children {
		id, ok := g.Lookup(c)
		if !ok {
			return 0, false
		}
		children[i] = id
	}

	c := g.canonicalize(ENode{Op: e.Op, Children: children})
	k := c.key()
	if id, ok := g.memo[k]; ok {
		return g.Find(id), true
	}

	// The memo may hold stale keys until the next Rebuild.
	for _, cls := range g.Classes() {
		for _, n := range cls.Nodes {
			if g.canonicalize(n).key() == k {
				return cls.ID, true
			}
		}
	}
	return 0, false
}

// Equivs returns the shared canonical class of a and b, or nil if either
// term is absent or they are in different classes.
func (g *EGraph) Equivs(a, b *term.Expr) []ID {
	ida, ok := g.Lookup(a)
	if !ok {
		return nil
	}
	idb, ok := g.Lookup(b)
	if !ok || ida != idb {
		return nil
	}
	return []ID{ida}
}

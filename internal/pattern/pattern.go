package pattern

import (
	"strings"

	"github.com/roach88/eqsat/internal/egraph"
)

// Var names a wildcard, including its leading '?'.
type Var string

// WildcardKind says how many children a wildcard binds.
type WildcardKind int

const (
	// Single binds exactly one class.
	Single WildcardKind = iota
	// Multi binds the remaining children of a node.
	Multi
)

// Pattern is either an operator applied to child patterns or a wildcard.
type Pattern struct {
	op       string
	children []*Pattern
	v        Var
	kind     WildcardKind
}

// NewNode returns a pattern matching nodes with operator op whose children
// match children in order.
func NewNode(op string, children ...*Pattern) *Pattern {
	return &Pattern{op: op, children: children}
}

// NewWildcard returns a single wildcard.
func NewWildcard(v Var) *Pattern {
	return &Pattern{v: v, kind: Single}
}

// NewMultiWildcard returns a wildcard binding the remaining children of a node.
func NewMultiWildcard(v Var) *Pattern {
	return &Pattern{v: v, kind: Multi}
}

// IsWildcard reports whether the pattern is a wildcard.
func (p *Pattern) IsWildcard() bool { return p.v != "" }

// Op returns the operator of a node pattern ("" for wildcards).
func (p *Pattern) Op() string { return p.op }

// Var returns the wildcard name ("" for node patterns).
func (p *Pattern) Var() Var { return p.v }

// Kind returns the wildcard kind.
func (p *Pattern) Kind() WildcardKind { return p.kind }

// Children returns a copy of the child patterns.
func (p *Pattern) Children() []*Pattern {
	out := make([]*Pattern, len(p.children))
	copy(out, p.children)
	return out
}

// Vars returns the wildcards of p in order of first appearance.
func (p *Pattern) Vars() []Var {
	var out []Var
	seen := make(map[Var]bool)
	p.walkVars(func(v Var) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	})
	return out
}

// VarKinds returns the kind each wildcard of p is used with.
func (p *Pattern) VarKinds() map[Var]WildcardKind {
	kinds := make(map[Var]WildcardKind)
	p.walkWildcards(func(w *Pattern) { kinds[w.v] = w.kind })
	return kinds
}

func (p *Pattern) walkVars(fn func(Var)) {
	p.walkWildcards(func(w *Pattern) { fn(w.v) })
}

func (p *Pattern) walkWildcards(fn func(*Pattern)) {
	if p.IsWildcard() {
		fn(p)
		return
	}
	for _, c := range p.children {
		c.walkWildcards(fn)
	}
}

// String renders the pattern in the syntax accepted by Parse.
func (p *Pattern) String() string {
	var b strings.Builder
	p.write(&b)
	return b.String()
}

func (p *Pattern) write(b *strings.Builder) {
	if p.IsWildcard() {
		b.WriteString(string(p.v))
		if p.kind == Multi {
			b.WriteString("...")
		}
		return
	}
	if len(p.children) == 0 {
		b.WriteString(p.op)
		return
	}
	b.WriteByte('(')
	b.WriteString(p.op)
	for _, c := range p.children {
		b.WriteByte(' ')
		c.write(b)
	}
	b.WriteByte(')')
}

// Mapping binds wildcards to the classes they matched.
// Single wildcards bind one id; multi wildcards bind zero or more.
type Mapping map[Var][]egraph.ID

// Get returns the single class bound to v.
func (m Mapping) Get(v Var) (egraph.ID, bool) {
	ids, ok := m[v]
	if !ok || len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}

func (m Mapping) with(v Var, ids []egraph.ID) Mapping {
	out := make(Mapping, len(m)+1)
	for k, val := range m {
		out[k] = val
	}
	out[v] = ids
	return out
}

// SearchMatches holds every mapping under which a pattern matched one class.
type SearchMatches struct {
	EClass   egraph.ID
	Mappings []Mapping
}

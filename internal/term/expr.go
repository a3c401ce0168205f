package term

import "strings"

// Expr is a ground term: an operator applied to child terms.
type Expr struct {
	Op       string
	Children []*Expr
}

// Leaf returns a childless term.
func Leaf(op string) *Expr {
	return &Expr{Op: op}
}

// New returns a term with the given operator and children.
func New(op string, children ...*Expr) *Expr {
	return &Expr{Op: op, Children: children}
}

// IsLeaf reports whether the term has no children.
func (e *Expr) IsLeaf() bool {
	return len(e.Children) == 0
}

// String renders the term in the syntax accepted by Parse.
func (e *Expr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr) write(b *strings.Builder) {
	if e.IsLeaf() {
		b.WriteString(e.Op)
		return
	}
	b.WriteByte('(')
	b.WriteString(e.Op)
	for _, c := range e.Children {
		b.WriteByte(' ')
		c.write(b)
	}
	b.WriteByte(')')
}

// Size returns the number of operator occurrences in the term.
func (e *Expr) Size() int {
	n := 1
	for _, c := range e.Children {
		n += c.Size()
	}
	return n
}

// Parse reads a ground term.
func Parse(text string) (*Expr, error) {
	s, err := ParseSexp(text)
	if err != nil {
		return nil, err
	}
	return FromSexp(text, s)
}

// MustParse is like Parse but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParse(text string) *Expr {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

// FromSexp converts a parsed s-expression into a term.
// text is the original input, reported in any ParseError.
func FromSexp(text string, s *Sexp) (*Expr, error) {
	if !s.IsList {
		return Leaf(s.Atom), nil
	}
	if len(s.List) == 0 {
		return nil, &ParseError{Text: text, Pos: s.Pos, Message: "empty list"}
	}
	head := s.List[0]
	if head.IsList {
		return nil, &ParseError{Text: text, Pos: head.Pos, Message: "list head must be an operator symbol"}
	}

	e := &Expr{Op: head.Atom, Children: make([]*Expr, 0, len(s.List)-1)}
	for _, child := range s.List[1:] {
		c, err := FromSexp(text, child)
		if err != nil {
			return nil, err
		}
		e.Children = append(e.Children, c)
	}
	return e, nil
}

package pattern

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/eqsat/internal/term"
)

// DefaultParseCacheSize bounds the number of parsed patterns Parse keeps.
const DefaultParseCacheSize = 4096

// parseCache memoizes Parse by source text. Patterns are immutable, so the
// same *Pattern can be handed to every caller.
var parseCache = mustCache(DefaultParseCacheSize)

func mustCache(size int) *lru.Cache[string, *Pattern] {
	c, err := lru.New[string, *Pattern](size)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse reads a pattern. Errors are *term.ParseError values carrying text.
func Parse(text string) (*Pattern, error) {
	if p, ok := parseCache.Get(text); ok {
		return p, nil
	}

	s, err := term.ParseSexp(text)
	if err != nil {
		return nil, err
	}

	pp := &parser{text: text, kinds: make(map[Var]WildcardKind)}
	p, err := pp.convert(s, false, false)
	if err != nil {
		return nil, err
	}

	parseCache.Add(text, p)
	return p, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParse(text string) *Pattern {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// FromExpr converts a ground term into a wildcard-free pattern.
func FromExpr(e *term.Expr) *Pattern {
	p := &Pattern{op: e.Op}
	for _, c := range e.Children {
		p.children = append(p.children, FromExpr(c))
	}
	return p
}

type parser struct {
	text  string
	kinds map[Var]WildcardKind
}

func (pp *parser) errorAt(s *term.Sexp, msg string) error {
	return &term.ParseError{Text: pp.text, Pos: s.Pos, Message: msg}
}

// convert turns an s-expression into a pattern. lastChild is true only for
// the final child of a node, the one place a multi wildcard may appear.
func (pp *parser) convert(s *term.Sexp, isChild, lastChild bool) (*Pattern, error) {
	if !s.IsList {
		if !strings.HasPrefix(s.Atom, "?") {
			return &Pattern{op: s.Atom}, nil
		}
		return pp.wildcard(s, isChild && lastChild)
	}

	if len(s.List) == 0 {
		return nil, pp.errorAt(s, "empty list")
	}
	head := s.List[0]
	if head.IsList {
		return nil, pp.errorAt(head, "list head must be an operator symbol")
	}
	if strings.HasPrefix(head.Atom, "?") {
		return nil, pp.errorAt(head, "operator cannot be a wildcard")
	}

	p := &Pattern{op: head.Atom}
	args := s.List[1:]
	for i, child := range args {
		c, err := pp.convert(child, true, i == len(args)-1)
		if err != nil {
			return nil, err
		}
		p.children = append(p.children, c)
	}
	return p, nil
}

func (pp *parser) wildcard(s *term.Sexp, multiAllowed bool) (*Pattern, error) {
	name, kind := s.Atom, Single
	if strings.HasSuffix(name, "...") {
		name, kind = strings.TrimSuffix(name, "..."), Multi
	}
	if len(name) < 2 {
		return nil, pp.errorAt(s, "empty wildcard name")
	}
	if kind == Multi && !multiAllowed {
		return nil, pp.errorAt(s, "multi wildcard must be the last child of a node")
	}

	v := Var(name)
	if prev, seen := pp.kinds[v]; seen && prev != kind {
		return nil, pp.errorAt(s, "wildcard "+name+" used as both single and multi")
	}
	pp.kinds[v] = kind

	return &Pattern{v: v, kind: kind}, nil
}

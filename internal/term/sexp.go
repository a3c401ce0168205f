package term

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ParseError reports malformed term or pattern text.
// Text is always the complete input that failed to parse.
type ParseError struct {
	Text    string
	Pos     int // Byte offset into Text
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s at offset %d", e.Text, e.Message, e.Pos)
}

// Sexp is one node of a parsed s-expression: either an atom or a list.
type Sexp struct {
	Atom   string
	List   []*Sexp
	IsList bool
	Pos    int
}

// String renders the s-expression with single spaces between list elements.
func (s *Sexp) String() string {
	if !s.IsList {
		return s.Atom
	}
	parts := make([]string, len(s.List))
	for i, child := range s.List {
		parts[i] = child.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// ParseSexp reads exactly one s-expression from text.
// Leading and trailing whitespace is ignored; anything else after the first
// complete expression is an error.
func ParseSexp(text string) (*Sexp, error) {
	r := &reader{text: text}
	r.skipSpace()
	if r.pos >= len(r.text) {
		return nil, r.errorf("empty input")
	}

	s, err := r.read()
	if err != nil {
		return nil, err
	}

	r.skipSpace()
	if r.pos < len(r.text) {
		return nil, r.errorf("unexpected trailing input")
	}
	return s, nil
}

type reader struct {
	text string
	pos  int
}

func (r *reader) errorf(format string, args ...any) *ParseError {
	return &ParseError{Text: r.text, Pos: r.pos, Message: fmt.Sprintf(format, args...)}
}

func (r *reader) skipSpace() {
	for r.pos < len(r.text) {
		c := rune(r.text[r.pos])
		if c >= 0x80 || !unicode.IsSpace(c) {
			return
		}
		r.pos++
	}
}

func (r *reader) read() (*Sexp, error) {
	start := r.pos
	switch r.text[r.pos] {
	case ')':
		return nil, r.errorf("unexpected ')'")

	case '(':
		r.pos++
		list := &Sexp{IsList: true, Pos: start}
		for {
			r.skipSpace()
			if r.pos >= len(r.text) {
				return nil, &ParseError{Text: r.text, Pos: start, Message: "unclosed '('"}
			}
			if r.text[r.pos] == ')' {
				r.pos++
				return list, nil
			}
			child, err := r.read()
			if err != nil {
				return nil, err
			}
			list.List = append(list.List, child)
		}

	default:
		for r.pos < len(r.text) {
			c := r.text[r.pos]
			if c == '(' || c == ')' || (c < 0x80 && unicode.IsSpace(rune(c))) {
				break
			}
			r.pos++
		}
		return &Sexp{Atom: norm.NFC.String(r.text[start:r.pos]), Pos: start}, nil
	}
}

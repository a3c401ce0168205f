package rewrite

import (
	"fmt"
	"strings"

	"github.com/roach88/eqsat/internal/ir"
)

// FromDescriptor rebuilds a rule from its printable shape.
//
// Only rules whose appliers are all patterns round-trip; a computed applier
// ("<name>") yields ErrCodeOpaqueApplier. Parse failures are returned
// unchanged (*term.ParseError); everything else goes through Build.
func FromDescriptor(d ir.RuleDescriptor) (*Rewrite, error) {
	b := NewBuilder(d.Name).WithApplicationLimit(d.Limit)

	for _, text := range d.Patterns {
		if _, err := b.WithPatternString(text); err != nil {
			return nil, err
		}
	}

	for _, text := range d.Appliers {
		if isComputedText(text) {
			return nil, &InvalidRewriteError{
				Code:    ErrCodeOpaqueApplier,
				Rule:    d.Name,
				Message: fmt.Sprintf("applier %s is computed and cannot be rebuilt", text),
			}
		}
		if _, err := b.WithApplierString(text); err != nil {
			return nil, err
		}
	}

	for _, text := range d.Conditions {
		lhs, rhs, ok := splitCondition(text)
		if !ok {
			return nil, &InvalidRewriteError{
				Code:    ErrCodeMalformedCondition,
				Rule:    d.Name,
				Message: fmt.Sprintf("condition %q is not of the form \"lhs = rhs\"", text),
			}
		}
		if _, err := b.WithConditionStrings(lhs, rhs); err != nil {
			return nil, err
		}
	}

	return b.Build()
}

// isComputedText reports whether text is how describeApplier renders an
// applier that is not a pattern: "<name>" with a non-empty name and no
// whitespace or parentheses. Leaves such as "<" or "<=" are patterns.
func isComputedText(text string) bool {
	if len(text) < 3 || text[0] != '<' || text[len(text)-1] != '>' {
		return false
	}
	return !strings.ContainsAny(text, " \t\n()")
}

// splitCondition splits "lhs = rhs" at the first " = " outside parentheses,
// so an operator named "=" inside either side is left alone.
func splitCondition(text string) (lhs, rhs string, ok bool) {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ' ':
			if depth == 0 && strings.HasPrefix(text[i:], " = ") {
				return text[:i], text[i+3:], true
			}
		}
	}
	return "", "", false
}

package compiler

import (
	"fmt"

	"github.com/roach88/eqsat/internal/rewrite"
)

// Validation codes (E200-E299). These are lint findings about rules that
// built successfully but are probably not what the author meant.
const (
	ErrDuplicateRuleName = "E201" // two rules share a name
	ErrIdentityApplier   = "E202" // applier text equals a pattern text, never unions anything
	ErrUnnamedRule       = "E203" // rule has an empty name
	ErrLimitAboveDefault = "E204" // limit larger than rewrite.DefaultApplicationLimit
)

// ValidationError represents a rule lint finding.
type ValidationError struct {
	Rule    string `json:"rule"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Rule, e.Field, e.Message)
}

// Validate lints a rule set. Returns all findings (does not fail-fast), in
// rule declaration order.
func Validate(rules []*rewrite.Rewrite) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for _, rule := range rules {
		d := rule.Descriptor()

		if d.Name == "" {
			errs = append(errs, ValidationError{
				Field:   "name",
				Message: "rule has no name",
				Code:    ErrUnnamedRule,
			})
		} else if seen[d.Name] {
			errs = append(errs, ValidationError{
				Rule:    d.Name,
				Field:   "name",
				Message: "duplicate rule name",
				Code:    ErrDuplicateRuleName,
			})
		}
		seen[d.Name] = true

		patterns := make(map[string]bool, len(d.Patterns))
		for _, p := range d.Patterns {
			patterns[p] = true
		}
		for i, a := range d.Appliers {
			if patterns[a] {
				errs = append(errs, ValidationError{
					Rule:    d.Name,
					Field:   fmt.Sprintf("rhs[%d]", i),
					Message: fmt.Sprintf("applier %s rewrites a term to itself", a),
					Code:    ErrIdentityApplier,
				})
			}
		}

		if d.Limit > rewrite.DefaultApplicationLimit {
			errs = append(errs, ValidationError{
				Rule:    d.Name,
				Field:   "limit",
				Message: fmt.Sprintf("limit %d exceeds default %d", d.Limit, rewrite.DefaultApplicationLimit),
				Code:    ErrLimitAboveDefault,
			})
		}
	}

	return errs
}

package rewrite

import (
	"errors"
	"fmt"
)

// InvalidRewriteErrorCode categorizes rule construction failures.
type InvalidRewriteErrorCode string

const (
	// ErrCodeNoPatterns indicates a rule was built without a pattern.
	ErrCodeNoPatterns InvalidRewriteErrorCode = "NO_PATTERNS"

	// ErrCodeNoAppliers indicates a rule was built without an applier.
	ErrCodeNoAppliers InvalidRewriteErrorCode = "NO_APPLIERS"

	// ErrCodeInvalidLimit indicates a non-positive application limit.
	ErrCodeInvalidLimit InvalidRewriteErrorCode = "INVALID_LIMIT"

	// ErrCodeUnboundVar indicates an applier or condition uses a wildcard
	// that some pattern of the rule does not bind.
	ErrCodeUnboundVar InvalidRewriteErrorCode = "UNBOUND_VAR"

	// ErrCodeWildcardKind indicates an applier or condition uses a multi
	// wildcard of the pattern as a single wildcard.
	ErrCodeWildcardKind InvalidRewriteErrorCode = "WILDCARD_KIND"

	// ErrCodeOpaqueApplier indicates a descriptor names a computed applier,
	// which cannot be rebuilt from text.
	ErrCodeOpaqueApplier InvalidRewriteErrorCode = "OPAQUE_APPLIER"

	// ErrCodeMalformedCondition indicates a descriptor condition is not of
	// the form "lhs = rhs".
	ErrCodeMalformedCondition InvalidRewriteErrorCode = "MALFORMED_CONDITION"
)

// InvalidRewriteError is returned by Builder.Build for rules that could
// never be applied safely.
type InvalidRewriteError struct {
	Code    InvalidRewriteErrorCode
	Rule    string
	Message string
}

// Error implements the error interface.
func (e *InvalidRewriteError) Error() string {
	return fmt.Sprintf("invalid rewrite %q: %s: %s", e.Rule, e.Code, e.Message)
}

// IsInvalidRewrite returns true if err is or wraps an InvalidRewriteError.
func IsInvalidRewrite(err error) bool {
	var ie *InvalidRewriteError
	return errors.As(err, &ie)
}

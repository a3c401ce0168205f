package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports why one rule did not compile.
//
// Field names the part of the rule at fault: "lhs", "rhs", "conditions",
// "conditions.lhs", "conditions.rhs", "rule" for builder rejections, and
// "cue" for evaluation errors inside the rule value.
type CompileError struct {
	Rule    string // rule label, empty when unknown
	Field   string
	Message string
	Pos     token.Pos
	Err     error // *term.ParseError or *rewrite.InvalidRewriteError, if any
}

func (e *CompileError) Error() string {
	msg := e.Field + ": " + e.Message
	if e.Pos.IsValid() {
		msg = fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
	}
	return msg
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// formatCUEError turns a CUE evaluation error into a CompileError at the
// first reported position. CUE may report several errors for one value;
// the message says how many were dropped.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) == 0 {
		return err
	}

	msg := first.Error()
	if n := len(errs) - 1; n > 0 {
		msg = fmt.Sprintf("%s (and %d more)", msg, n)
	}
	return &CompileError{Field: "cue", Message: msg, Pos: positions[0], Err: err}
}

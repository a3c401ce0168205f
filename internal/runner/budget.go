package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/eqsat/internal/ir"
)

// Budget bounds a saturation run. A run stops before starting an iteration
// that would exceed any of the limits.
//
// Rules may still overshoot NodeLimit inside one iteration; the check runs
// between iterations, after rebuild.
type Budget struct {
	IterationLimit int
	NodeLimit      int
	TimeLimit      time.Duration
}

// Check reports the first exhausted limit as a *LimitError, or nil.
// Limits are checked in the order iterations, nodes, time.
func (b Budget) Check(iterations, nodes int, elapsed time.Duration) error {
	if iterations >= b.IterationLimit {
		return &LimitError{Reason: ir.StopIterationLimit, Value: int64(iterations), Limit: int64(b.IterationLimit)}
	}
	if nodes > b.NodeLimit {
		return &LimitError{Reason: ir.StopNodeLimit, Value: int64(nodes), Limit: int64(b.NodeLimit)}
	}
	if elapsed > b.TimeLimit {
		return &LimitError{Reason: ir.StopTimeLimit, Value: int64(elapsed), Limit: int64(b.TimeLimit)}
	}
	return nil
}

// LimitError describes an exhausted budget. Running out of budget ends a
// run normally; Run turns the error into the report's stop reason.
type LimitError struct {
	Reason ir.StopReason
	Value  int64 // Observed iterations, nodes, or nanoseconds
	Limit  int64
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %d exceeds limit %d", e.Reason, e.Value, e.Limit)
}

// IsLimitError returns true if err is or wraps a LimitError.
func IsLimitError(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}

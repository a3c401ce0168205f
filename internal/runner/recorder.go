package runner

import (
	"context"

	"github.com/roach88/eqsat/internal/ir"
)

// Recorder receives the progress of a run. *store.Store implements it.
//
// BeginRun is called once before the first iteration, RecordIteration after
// every rebuild, and FinishRun once with the stop reason. A Recorder error
// aborts the run.
type Recorder interface {
	BeginRun(ctx context.Context, run ir.RunRecord) error
	RecordIteration(ctx context.Context, runID string, it ir.IterationRecord) error
	FinishRun(ctx context.Context, runID string, reason ir.StopReason, iterations int) error
}

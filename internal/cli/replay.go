package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/rewrite"
	"github.com/roach88/eqsat/internal/runner"
	"github.com/roach88/eqsat/internal/store"
	"github.com/roach88/eqsat/internal/term"
)

// ErrCodeDeterminism reports a replay that diverged from its recording.
const ErrCodeDeterminism = "E_DETERMINISM"

const errNotDeterministic = "determinism verification failed"

// replayTimeLimit bounds a replay; recorded iteration counts bound it first.
const replayTimeLimit = time.Duration(math.MaxInt64)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string        `json:"run_id"`
	StopReason    ir.StopReason `json:"stop_reason,omitempty"`
	Iterations    int           `json:"iterations"`
	IsComplete    bool          `json:"is_complete"`
	Deterministic bool          `json:"deterministic"`
	Skipped       string        `json:"skipped,omitempty"`  // Why the run could not be replayed
	Mismatch      string        `json:"mismatch,omitempty"` // First difference found
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded runs and verify determinism",
		Long: `Re-run recorded saturation runs and verify they are deterministic.

Each run's rule set is rebuilt from the database, the start term is
saturated again for the recorded number of iterations, and the new
iteration log is compared against the recorded one.

Runs whose rule set was not stored, or uses computed appliers that cannot
be rebuilt from text, are reported as skipped.

Exit codes:
  0 - All replayed runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  eqsat replay --db ./runs.db
  eqsat replay --db ./runs.db --run 0190a6c2-...
  eqsat replay --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var runIDs []string
	if opts.RunID != "" {
		runIDs = []string{opts.RunID}
	} else {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, run := range runs {
			runIDs = append(runIDs, run.ID)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runIDs)),
		TotalRuns:        len(runIDs),
		AllDeterministic: true,
	}

	if len(runIDs) == 0 {
		if formatter.JSON() {
			return outputReplayJSON(formatter, result)
		}
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}

	for _, id := range runIDs {
		runResult, err := replayAndVerifyRun(ctx, st, id)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter.Writer, result, opts.Verbose)
}

// replayAndVerifyRun saturates a recorded run's start term again and
// compares iteration logs.
func replayAndVerifyRun(ctx context.Context, st *store.Store, runID string) (ReplayRunResult, error) {
	trace, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	result := ReplayRunResult{
		RunID:         runID,
		StopReason:    trace.Run.StopReason,
		Iterations:    len(trace.Iterations),
		IsComplete:    trace.Complete(),
		Deterministic: true,
	}

	if trace.Rules == nil {
		result.Skipped = "rule set not recorded"
		return result, nil
	}
	if len(trace.Iterations) == 0 {
		return result, nil
	}

	rules := make([]*rewrite.Rewrite, len(trace.Rules))
	for i, d := range trace.Rules {
		rules[i], err = rewrite.FromDescriptor(d)
		if err != nil {
			result.Skipped = fmt.Sprintf("rule %s: %v", d.Name, err)
			return result, nil
		}
	}

	var start *term.Expr
	if trace.Run.StartExpr != "" {
		start, err = term.Parse(trace.Run.StartExpr)
		if err != nil {
			return ReplayRunResult{}, fmt.Errorf("parse start term: %w", err)
		}
	}

	r, err := runner.New(rules,
		runner.WithIterationLimit(len(trace.Iterations)),
		runner.WithNodeLimit(math.MaxInt),
		runner.WithTimeLimit(replayTimeLimit),
	)
	if err != nil {
		return ReplayRunResult{}, err
	}
	if r.RulesetHash() != trace.Run.RulesetHash {
		result.Deterministic = false
		result.Mismatch = fmt.Sprintf("rebuilt rule set hashes to %s, recorded %s", r.RulesetHash(), trace.Run.RulesetHash)
		return result, nil
	}

	report, err := r.Run(ctx, egraph.New(), start)
	if err != nil {
		return ReplayRunResult{}, err
	}

	if mismatch := compareIterations(trace.Iterations, report.Iterations); mismatch != "" {
		result.Deterministic = false
		result.Mismatch = mismatch
	}
	return result, nil
}

// compareIterations describes the first difference between two iteration
// logs, or returns "" if they are equal.
func compareIterations(recorded, replayed []ir.IterationRecord) string {
	if len(recorded) != len(replayed) {
		return fmt.Sprintf("recorded %d iteration(s), replay ran %d", len(recorded), len(replayed))
	}
	for i := range recorded {
		a, b := recorded[i], replayed[i]
		if len(a.Rules) == 0 && len(b.Rules) == 0 {
			a.Rules, b.Rules = nil, nil
		}
		if !reflect.DeepEqual(a, b) {
			return fmt.Sprintf("iteration %d: recorded %+v, replayed %+v", i, recorded[i], replayed[i])
		}
	}
	return ""
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	if result.AllDeterministic {
		return formatter.Success(result)
	}
	if err := formatter.Failure(ErrCodeDeterminism, errNotDeterministic, result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, errNotDeterministic)
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		switch {
		case !run.Deterministic:
			status = "✗"
		case run.Skipped != "":
			status = "-"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		fmt.Fprintf(w, "  Iterations: %d\n", run.Iterations)

		if verbose {
			fmt.Fprintf(w, "  Stop reason: %s\n", run.StopReason)
			fmt.Fprintf(w, "  Complete: %v\n", run.IsComplete)
		}

		if run.Skipped != "" {
			fmt.Fprintf(w, "  Skipped: %s\n", run.Skipped)
		}
		if !run.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
			fmt.Fprintf(w, "  %s\n", run.Mismatch)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, errNotDeterministic)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/eqsat/internal/ir"
)

// RunTrace is everything the store knows about one run.
type RunTrace struct {
	Run        ir.RunRecord
	Rules      []ir.RuleDescriptor // Nil if the rule set was never stored
	Iterations []ir.IterationRecord
}

// Complete reports whether the run was finalized with a stop reason.
func (t RunTrace) Complete() bool {
	return t.Run.StopReason != ""
}

// ReadTrace returns a run with its rule set and iterations.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) ReadTrace(ctx context.Context, runID string) (RunTrace, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return RunTrace{}, err
	}

	rules, err := s.ReadRuleset(ctx, run.RulesetHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return RunTrace{}, fmt.Errorf("read trace %s: %w", runID, err)
	}

	iterations, err := s.ReadIterations(ctx, runID)
	if err != nil {
		return RunTrace{}, fmt.Errorf("read trace %s: %w", runID, err)
	}

	return RunTrace{Run: run, Rules: rules, Iterations: iterations}, nil
}

// FindIncompleteRuns returns runs that were begun but never finished, in
// insertion order. A process that dies mid-saturation leaves such runs.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_expr, ruleset_hash, rule_count, stop_reason, iterations, ir_version
		FROM runs
		WHERE stop_reason = ''
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query incomplete runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incomplete runs: %w", err)
	}
	return runs, nil
}

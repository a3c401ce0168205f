package store

import (
	"context"
	"fmt"

	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/runner"
)

var _ runner.Recorder = (*Store)(nil)

// WriteRuleset stores the canonical JSON of an ordered rule set under its hash.
// Uses ON CONFLICT DO NOTHING: a rule set is immutable once hashed.
func (s *Store) WriteRuleset(ctx context.Context, hash string, rules []ir.RuleDescriptor) error {
	rulesJSON, err := marshalRules(rules)
	if err != nil {
		return fmt.Errorf("write ruleset: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rulesets (hash, rules)
		VALUES (?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, rulesJSON)
	if err != nil {
		return fmt.Errorf("write ruleset: %w", err)
	}
	return nil
}

// BeginRun inserts a run in the in-progress state.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) BeginRun(ctx context.Context, run ir.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, start_expr, ruleset_hash, rule_count, ir_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.StartExpr,
		run.RulesetHash,
		run.RuleCount,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordIteration stores one iteration and its per-rule counts atomically.
// Duplicate writes of the same iteration are silently ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) RecordIteration(ctx context.Context, runID string, it ir.IterationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record iteration: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO iterations
		(run_id, idx, nodes, classes, applied, rebuilt)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, runID, it.Index, it.Nodes, it.Classes, it.Applied, it.Rebuilt)
	if err != nil {
		return fmt.Errorf("record iteration %d: %w", it.Index, err)
	}

	for pos, ra := range it.Rules {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO applications
			(run_id, iteration, position, rule, matches, count, limited)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, runID, it.Index, pos, ra.Rule, ra.Matches, ra.Count, boolToInt(ra.Limited))
		if err != nil {
			return fmt.Errorf("record iteration %d rule %q: %w", it.Index, ra.Rule, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record iteration %d: commit: %w", it.Index, err)
	}
	return nil
}

// FinishRun sets the stop reason and iteration count of a run.
//
// Returns an error for an unknown stop reason or an unknown run.
func (s *Store) FinishRun(ctx context.Context, runID string, reason ir.StopReason, iterations int) error {
	if !ir.ValidStopReasons[reason] {
		return fmt.Errorf("finish run %s: invalid stop reason %q", runID, reason)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET stop_reason = ?, iterations = ?
		WHERE id = ?
	`, string(reason), iterations, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: run not found", runID)
	}
	return nil
}

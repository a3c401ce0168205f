package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/eqsat/internal/ir"
)

// ListRuns returns every run in insertion order (ORDER BY seq ASC).
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_expr, ruleset_hash, rule_count, stop_reason, iterations, ir_version
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
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
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a single run by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, start_expr, ruleset_hash, rule_count, stop_reason, iterations, ir_version
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ReadIterations returns the iterations of a run in index order, each with
// its per-rule counts in declaration order.
// Returns an empty slice (not nil) if the run has no iterations.
func (s *Store) ReadIterations(ctx context.Context, runID string) ([]ir.IterationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, nodes, classes, applied, rebuilt
		FROM iterations
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query iterations: %w", err)
	}
	defer rows.Close()

	iterations := []ir.IterationRecord{}
	for rows.Next() {
		var it ir.IterationRecord
		if err := rows.Scan(&it.Index, &it.Nodes, &it.Classes, &it.Applied, &it.Rebuilt); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		iterations = append(iterations, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate iterations: %w", err)
	}
	rows.Close()

	for i := range iterations {
		rules, err := s.readApplications(ctx, runID, iterations[i].Index)
		if err != nil {
			return nil, err
		}
		iterations[i].Rules = rules
	}
	return iterations, nil
}

func (s *Store) readApplications(ctx context.Context, runID string, iteration int) ([]ir.RuleApplications, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, matches, count, limited
		FROM applications
		WHERE run_id = ? AND iteration = ?
		ORDER BY position ASC
	`, runID, iteration)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	rules := []ir.RuleApplications{}
	for rows.Next() {
		var ra ir.RuleApplications
		var limited int
		if err := rows.Scan(&ra.Rule, &ra.Matches, &ra.Count, &limited); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		ra.Limited = limited != 0
		rules = append(rules, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return rules, nil
}

// ReadRuleset returns the rule descriptors stored under hash.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRuleset(ctx context.Context, hash string) ([]ir.RuleDescriptor, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT rules FROM rulesets WHERE hash = ?`, hash).Scan(&data)
	if err != nil {
		return nil, err
	}
	return unmarshalRules(data)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one run row. sql.ErrNoRows is returned unwrapped.
func scanRun(row rowScanner) (ir.RunRecord, error) {
	var run ir.RunRecord
	var reason string
	err := row.Scan(&run.ID, &run.StartExpr, &run.RulesetHash, &run.RuleCount, &reason, &run.Iterations, &run.IRVersion)
	if err == sql.ErrNoRows {
		return ir.RunRecord{}, err
	}
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	run.StopReason = ir.StopReason(reason)
	return run, nil
}

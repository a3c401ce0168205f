package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/eqsat/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id string) ir.RunRecord {
	return ir.RunRecord{
		ID:          id,
		StartExpr:   "(+ x y)",
		RulesetHash: "test-hash",
		RuleCount:   2,
		IRVersion:   ir.IRVersion,
	}
}

// createTestIteration creates an iteration with two rule entries.
func createTestIteration(index, applied int) ir.IterationRecord {
	return ir.IterationRecord{
		Index:   index,
		Nodes:   4 + index,
		Classes: 3,
		Applied: applied,
		Rules: []ir.RuleApplications{
			{Rule: "commute", Matches: 1, Count: applied},
			{Rule: "assoc", Matches: 0, Count: 0, Limited: index == 1},
		},
	}
}

// mustBeginRun writes a run or fails the test.
func mustBeginRun(t *testing.T, s *Store, run ir.RunRecord) {
	t.Helper()
	if err := s.BeginRun(context.Background(), run); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
}

package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/eqsat/internal/ir"
)

// RunSnapshot captures the reproducible part of a scenario run.
// Durations and the ruleset hash are left out so goldens survive
// timing noise and cosmetic rule edits.
type RunSnapshot struct {
	ScenarioName string
	Start        string
	StopReason   ir.StopReason
	Iterations   []ir.IterationRecord
	Nodes        int
	Classes      int
	Best         string
	BestCost     int
	LimitedRules []string
}

// toCanonicalMap converts a RunSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *RunSnapshot) toCanonicalMap() map[string]any {
	iterations := make([]any, len(s.Iterations))
	for i, it := range s.Iterations {
		rules := make([]any, len(it.Rules))
		for j, ra := range it.Rules {
			rules[j] = map[string]any{
				"rule":    ra.Rule,
				"matches": ra.Matches,
				"count":   ra.Count,
				"limited": ra.Limited,
			}
		}
		iterations[i] = map[string]any{
			"index":   it.Index,
			"nodes":   it.Nodes,
			"classes": it.Classes,
			"applied": it.Applied,
			"rebuilt": it.Rebuilt,
			"rules":   rules,
		}
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"start":         s.Start,
		"stop_reason":   string(s.StopReason),
		"iterations":    iterations,
		"nodes":         s.Nodes,
		"classes":       s.Classes,
		"best":          s.Best,
		"best_cost":     s.BestCost,
	}
	if len(s.LimitedRules) > 0 {
		result["limited_rules"] = s.LimitedRules
	}
	return result
}

// Snapshot returns the canonical JSON compared against golden files.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := newSnapshot(scenario, result)
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

func newSnapshot(scenario *Scenario, result *Result) RunSnapshot {
	return RunSnapshot{
		ScenarioName: scenario.Name,
		Start:        scenario.Start,
		StopReason:   result.StopReason,
		Iterations:   result.Iterations,
		Nodes:        result.Nodes,
		Classes:      result.Classes,
		Best:         result.Best,
		BestCost:     result.BestCost,
		LimitedRules: result.LimitedRules,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}

package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/ir"
)

func commuteScenario() *Scenario {
	return &Scenario{
		Name:        "commute",
		Description: "commutativity",
		Rules:       []string{"testdata/rules/commute.cue"},
		Start:       "(+ x y)",
	}
}

func TestRun_Commute(t *testing.T) {
	result, err := Run(commuteScenario())
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "scenario-commute", result.RunID)
	assert.Equal(t, ir.StopSaturated, result.StopReason)
	assert.Equal(t, 4, result.Nodes)
	assert.Equal(t, 3, result.Classes)
	assert.Equal(t, "(+ x y)", result.Best)
	assert.Equal(t, 3, result.BestCost)

	require.Len(t, result.Iterations, 2, "iterations are read back from the store")
	assert.Equal(t, []ir.RuleApplications{{Rule: "commute", Matches: 1, Count: 1}}, result.Iterations[0].Rules)
}

func TestRun_FailedAssertionsCollected(t *testing.T) {
	s := commuteScenario()
	s.Assertions = []Assertion{
		{Type: AssertStopReason, Expect: "node_limit"},
		{Type: AssertBest, Expect: "(+ x y)"},
		{Type: AssertEquivalent, Terms: []string{"x", "y"}},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "assertion[0]")
	assert.Contains(t, result.Errors[1], "assertion[2]")
}

func TestRun_Limits(t *testing.T) {
	s := commuteScenario()
	s.Limits = Limits{Nodes: 3}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, ir.StopNodeLimit, result.StopReason)
	assert.Len(t, result.Iterations, 1)
}

func TestRun_SetupErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{
			name:    "missing rule file",
			mutate:  func(s *Scenario) { s.Rules = []string{"testdata/rules/missing.cue"} },
			wantErr: "failed to compile rules",
		},
		{
			name:    "bad start",
			mutate:  func(s *Scenario) { s.Start = "(+ x" },
			wantErr: "failed to parse start term",
		},
		{
			name:    "bad fact",
			mutate:  func(s *Scenario) { s.Facts = [][2]string{{"(f", "x"}} },
			wantErr: "facts[0]",
		},
		{
			name:    "bad time limit",
			mutate:  func(s *Scenario) { s.Limits.Time = "later" },
			wantErr: "limits.time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := commuteScenario()
			tt.mutate(s)
			_, err := Run(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestScenarios runs every scenario under testdata/scenarios and compares
// its snapshot with testdata/golden.
func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}

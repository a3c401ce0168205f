package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/ir"
)

func TestProveEqual(t *testing.T) {
	out, err := execute(NewProveCommand(&RootOptions{Format: "text"}), arithRulesDir, "(* x 2)", "(<< x 1)")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ (* x 2) = (<< x 1)")
	assert.Contains(t, out, "after 2 iteration(s) (saturated)")
}

func TestProveCommuted(t *testing.T) {
	out, err := execute(NewProveCommand(&RootOptions{Format: "json"}), arithRulesDir, "(+ a b)", "(+ b a)")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ProofResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Proven)
	assert.Equal(t, "(+ a b)", resp.Data.LHS)
	assert.Equal(t, "(+ b a)", resp.Data.RHS)
	assert.Equal(t, ir.StopSaturated, resp.Data.StopReason)
	assert.NotEmpty(t, resp.Data.RunID)
}

func TestProveNotShown(t *testing.T) {
	out, err := execute(NewProveCommand(&RootOptions{Format: "text"}), arithRulesDir, "(* x 3)", "(<< x 1)")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ (* x 3) = (<< x 1) not shown")
	assert.Contains(t, out, "(saturated)")
}

func TestProveBadTerms(t *testing.T) {
	tests := []struct {
		name string
		lhs  string
		rhs  string
	}{
		{"bad lhs", "(* x", "x"},
		{"bad rhs", "x", ")"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(NewProveCommand(&RootOptions{Format: "text"}), arithRulesDir, tt.lhs, tt.rhs)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, ErrCodeBadTerm)
		})
	}
}

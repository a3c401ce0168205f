package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/compiler"
)

func TestValidateValidRules(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), arithRulesDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ All rules valid")
	assert.Contains(t, out, "Trigger cycles:")
	assert.Contains(t, out, "[info] commute → commute")
}

func TestValidateValidRulesJSON(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), arithRulesDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Empty(t, resp.Data.Errors)
	require.Len(t, resp.Data.Cycles, 1)
	assert.Equal(t, []string{"commute", "commute"}, resp.Data.Cycles[0].Path)
	assert.Equal(t, "info", resp.Data.Cycles[0].Level)
}

func TestValidateIdentityApplier(t *testing.T) {
	dir := writeRules(t, `package rules

rule: noop: {
	lhs: "(f ?a)"
	rhs: "(f ?a)"
}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "rule noop")
	assert.Contains(t, out, compiler.ErrIdentityApplier)
}

func TestValidateReportsCompileFailures(t *testing.T) {
	dir := writeRules(t, `package rules

rule: broken: {
	lhs: "(f ?a"
	rhs: "?a"
}

rule: fine: {
	lhs: "(g ?a)"
	rhs: "?a"
}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Error  *CLIError        `json:"error"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, ErrCodeInvalidPattern, resp.Data.Errors[0].Code)
	assert.Contains(t, resp.Data.Errors[0].Message, "rule.broken")
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidPattern, resp.Error.Code)
}

func TestValidateLimitAboveDefault(t *testing.T) {
	dir := writeRules(t, `package rules

rule: greedy: {
	lhs: "(f ?a)"
	rhs: "(g ?a)"
	limit: 20000
}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, compiler.ErrLimitAboveDefault)
}

func TestValidateMissingDirectory(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/rules")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

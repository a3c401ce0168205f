package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileValidRules(t *testing.T) {
	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), arithRulesDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 2 rule(s)")
	assert.Contains(t, out, "commute: [(+ ?a ?b)] → [(+ ?b ?a)] (limit 10000)")
	assert.Contains(t, out, "mul_two: [(* ?a 2)] → [(<< ?a 1)]")
}

func TestCompileValidRulesJSON(t *testing.T) {
	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), arithRulesDir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.RulesetHash, 64)
	require.Len(t, resp.Data.Rules, 2)
	assert.Equal(t, "commute", resp.Data.Rules[0].Name)
	assert.Equal(t, "mul_two", resp.Data.Rules[1].Name)
}

func TestCompileOutputToFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "rules.json")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), arithRulesDir, "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote rule set to")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Rules, 2)
}

func TestCompileNonExistentDirectory(t *testing.T) {
	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "/nonexistent/rules")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestCompileEmptyDirectory(t *testing.T) {
	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeNoFiles)
}

func TestCompileNoRules(t *testing.T) {
	dir := writeRules(t, "package rules\n\nnote: \"nothing here\"\n")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoRules)
}

func TestCompileInvalidRules(t *testing.T) {
	dir := writeRules(t, `package rules

rule: bad_lhs: {
	lhs: "(+ ?a"
	rhs: "?a"
}

rule: unbound: {
	lhs: "(f ?a)"
	rhs: "(g ?b)"
}

rule: good: {
	lhs: "(f ?a)"
	rhs: "?a"
}
`)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "compilation failed with 2 error(s)")
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, ErrCodeInvalidPattern)
	assert.Contains(t, out, ErrCodeInvalidRule)
	assert.Contains(t, out, "rules.cue:", "positions are reported")
}

func TestCompileInvalidRulesJSON(t *testing.T) {
	dir := writeRules(t, `package rules

rule: no_rhs: {
	lhs: "(f ?a)"
}
`)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Error  *CLIError  `json:"error"`
		Data   []CLIError `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidApplier, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "rhs is required")
	assert.Len(t, resp.Data, 1)
}

func TestCompileVerboseOutput(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "text", Verbose: true})
	stderr := &bytes.Buffer{}
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{arithRulesDir})
	cmd.SetOut(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "Found 1 CUE file(s)")
	assert.Contains(t, stderr.String(), "Compiled rule: mul_two")
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.cue"), []byte("package y"), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"lhs", ErrCodeInvalidPattern},
		{"rhs", ErrCodeInvalidApplier},
		{"conditions", ErrCodeInvalidCondition},
		{"conditions.lhs", ErrCodeInvalidCondition},
		{"rule", ErrCodeInvalidRule},
		{"cue", ErrCodeInvalidCUE},
		{"unknown", ErrCodeGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field), tt.field)
	}
}

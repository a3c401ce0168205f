package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
	Cycles []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules-dir>",
		Short: "Lint rewrite rules",
		Long: `Compile and lint the CUE rewrite rules in a directory.

Reports rules that fail to compile, rules that can never union anything,
suspicious application limits, and groups of rules that may keep
triggering each other. Trigger cycles are reported as warnings only.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadRules(rulesDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return outputValidateError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, rulesDir)

	result := ValidationResult{
		Errors: loadErrorsToValidation(loadErrors),
		Cycles: compiler.AnalyzeCycles(loadResult.Rules),
	}
	result.Errors = append(result.Errors, compiler.Validate(loadResult.Rules)...)
	result.Valid = len(result.Errors) == 0

	for _, rule := range loadResult.Rules {
		formatter.VerboseLog("Validated rule: %s", rule.Name())
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// loadErrorsToValidation reports rules that failed to compile as findings.
func loadErrorsToValidation(errs []error) []compiler.ValidationError {
	out := make([]compiler.ValidationError, 0, len(errs))
	for _, err := range errs {
		code, message := parseLoadError(err)
		field := "load"
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			field = fmt.Sprintf("%s:%d", loadErr.Pos.Filename(), loadErr.Pos.Line())
		}
		out = append(out, compiler.ValidationError{
			Field:   field,
			Message: message,
			Code:    code,
		})
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All rules valid")
	writeCycleWarnings(formatter, result.Cycles)
	return nil
}

// writeCycleWarnings lists trigger cycles in text output.
func writeCycleWarnings(formatter *OutputFormatter, cycles []compiler.CycleWarning) {
	if len(cycles) == 0 {
		return
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, "Trigger cycles:")
	for _, c := range cycles {
		fmt.Fprintf(formatter.Writer, "  [%s] %s\n", c.Level, strings.Join(c.Path, " → "))
	}
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	// Findings are check failures, not command errors
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Rule != "" {
			fmt.Fprintf(formatter.Writer, "rule %s\n", err.Rule)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	writeCycleWarnings(formatter, result.Cycles)

	return failed
}

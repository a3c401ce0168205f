package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // write the compiled rule set here as well
}

// CompilationResult is the compiled rule set, identified by its hash.
type CompilationResult struct {
	RulesetHash string              `json:"ruleset_hash"`
	Rules       []ir.RuleDescriptor `json:"rules"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <rules-dir>",
		Short: "Compile CUE rewrite rules",
		Long: `Compile the CUE rewrite rules in a directory.

Every field of the package's top-level "rule" struct becomes one rewrite
rule. The output lists each rule's patterns, appliers, conditions and
application limit, along with the content hash that identifies the rule set
in recorded runs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "also write the rule set as JSON to this file")
	return cmd
}

func runCompile(opts *CompileOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, errs := LoadRules(rulesDir, LoadModeCollectAll)
	if loaded == nil {
		code, message := parseLoadError(errs[0])
		return compileFailure(formatter, code, message)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, rulesDir)
	for _, rule := range loaded.Rules {
		formatter.VerboseLog("Compiled rule: %s", rule.Name())
	}
	if len(errs) > 0 {
		return reportRuleErrors(formatter, errs)
	}

	descriptors := loaded.Descriptors()
	hash, err := ir.RulesetHash(descriptors)
	if err != nil {
		return compileFailure(formatter, ErrCodeGeneric, fmt.Sprintf("hashing rule set: %v", err))
	}
	result := &CompilationResult{RulesetHash: hash, Rules: descriptors}

	if opts.Output != "" {
		if err := saveRuleset(opts.Output, result); err != nil {
			return compileFailure(formatter, ErrCodeWriteFailed, err.Error())
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	printRuleset(formatter.Writer, result)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote rule set to %s\n", opts.Output)
	}
	return nil
}

func printRuleset(w io.Writer, result *CompilationResult) {
	fmt.Fprintf(w, "✓ Compiled %d rule(s)\n", len(result.Rules))
	fmt.Fprintf(w, "Ruleset: %s\n\nRules:\n", result.RulesetHash)
	for _, d := range result.Rules {
		line := fmt.Sprintf("  %s: %v → %v", d.Name, d.Patterns, d.Appliers)
		if len(d.Conditions) > 0 {
			line += fmt.Sprintf(" if %v", d.Conditions)
		}
		fmt.Fprintf(w, "%s (limit %d)\n", line, d.Limit)
	}
	fmt.Fprintln(w)
}

// compileFailure reports an error that stopped compilation before any rule
// was looked at, or after all of them compiled.
func compileFailure(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, code+": "+message)
}

// reportRuleErrors lists every rule that failed to compile. In JSON the
// first error heads the response and data carries all of them.
func reportRuleErrors(formatter *OutputFormatter, errs []error) error {
	failed := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		list := make([]CLIError, 0, len(errs))
		for _, err := range errs {
			code, message := parseLoadError(err)
			list = append(list, CLIError{Code: code, Message: message})
		}
		if err := formatter.Failure(list[0].Code, list[0].Message, list); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprint(formatter.Writer, "✗ Compilation failed\n\n")
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			pos := loadErr.Pos.Position()
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", pos.Filename, pos.Line, pos.Column)
		}
		code, message := parseLoadError(err)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}
	return failed
}

// saveRuleset writes result as indented JSON. Canonical JSON is only used
// for the hash.
func saveRuleset(path string, result *CompilationResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rule set: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

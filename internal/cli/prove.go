package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/term"
)

// ProveOptions holds flags for the prove command.
type ProveOptions struct {
	*RootOptions
	SaturationOptions
}

// ProofResult reports whether two terms were shown equal.
type ProofResult struct {
	LHS        string        `json:"lhs"`
	RHS        string        `json:"rhs"`
	Proven     bool          `json:"proven"`
	RunID      string        `json:"run_id"`
	StopReason ir.StopReason `json:"stop_reason"`
	Iterations int           `json:"iterations"`
}

// NewProveCommand creates the prove command.
func NewProveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "prove <rules-dir> <lhs> <rhs>",
		Short: "Check whether rules make two terms equal",
		Long: `Add both terms to one e-graph, saturate it, and report whether the
terms ended up in the same class.

An unproven result is not a disproof: the rules may need more budget, or
the terms may only be equal under rules that were not given.

Exit codes:
  0 - The terms are equal
  1 - The terms were not shown equal
  2 - Command error (bad term, bad rules, etc.)

Example:
  eqsat prove ./rules "(* x 2)" "(<< x 1)"`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProve(opts, args[0], args[1], args[2], cmd)
		},
	}

	addSaturationFlags(cmd, &opts.SaturationOptions)

	return cmd
}

func runProve(opts *ProveOptions, rulesDir, lhsText, rhsText string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	lhs, err := term.Parse(lhsText)
	if err != nil {
		_ = formatter.Error(ErrCodeBadTerm, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid lhs term", err)
	}
	rhs, err := term.Parse(rhsText)
	if err != nil {
		_ = formatter.Error(ErrCodeBadTerm, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid rhs term", err)
	}

	loadResult, err := loadRulesFailFast(rulesDir)
	if err != nil {
		code, message := parseLoadError(err)
		_ = formatter.Error(code, message, nil)
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	g := egraph.New()
	rhsID := g.AddExpr(rhs)
	report, err := saturate(ctx, &opts.SaturationOptions, loadResult.Rules, g, lhs)
	if err != nil {
		return err
	}

	result := ProofResult{
		LHS:        lhs.String(),
		RHS:        rhs.String(),
		Proven:     g.Find(report.Root) == g.Find(rhsID),
		RunID:      report.RunID,
		StopReason: report.StopReason,
		Iterations: len(report.Iterations),
	}

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Proven {
		fmt.Fprintf(formatter.Writer, "✓ %s = %s\n", result.LHS, result.RHS)
		fmt.Fprintf(formatter.Writer, "  after %d iteration(s) (%s)\n", result.Iterations, result.StopReason)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s = %s not shown\n", result.LHS, result.RHS)
		fmt.Fprintf(formatter.Writer, "  stopped after %d iteration(s) (%s)\n", result.Iterations, result.StopReason)
	}

	if !result.Proven {
		return NewExitError(ExitFailure, "terms not shown equal")
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/rewrite"
	"github.com/roach88/eqsat/internal/runner"
	"github.com/roach88/eqsat/internal/store"
	"github.com/roach88/eqsat/internal/term"
)

// SaturationOptions holds the flags shared by commands that saturate.
type SaturationOptions struct {
	Database       string // optional; runs are recorded when set
	IterationLimit int
	NodeLimit      int
	TimeLimit      time.Duration

	// RunIDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator runner.RunIDGenerator
}

// addSaturationFlags registers the budget and database flags.
func addSaturationFlags(cmd *cobra.Command, opts *SaturationOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record the run in")
	cmd.Flags().IntVar(&opts.IterationLimit, "iterations", runner.DefaultIterationLimit, "maximum number of iterations")
	cmd.Flags().IntVar(&opts.NodeLimit, "nodes", runner.DefaultNodeLimit, "maximum number of e-nodes")
	cmd.Flags().DurationVar(&opts.TimeLimit, "time", runner.DefaultTimeLimit, "maximum wall-clock time")
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SaturationOptions
}

// RunSummary is the outcome of one saturation run.
type RunSummary struct {
	RunID        string        `json:"run_id"`
	RulesetHash  string        `json:"ruleset_hash"`
	Start        string        `json:"start"`
	StopReason   ir.StopReason `json:"stop_reason"`
	Iterations   int           `json:"iterations"`
	Applied      int           `json:"applied"`
	Nodes        int           `json:"nodes"`
	Classes      int           `json:"classes"`
	Best         string        `json:"best"`
	BestCost     int           `json:"best_cost"`
	LimitedRules []string      `json:"limited_rules,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <rules-dir> <term>",
		Short: "Saturate a term with compiled rules",
		Long: `Saturate a term with the rewrite rules in a directory and print the
smallest equivalent term found.

Each iteration searches every rule against the e-graph, applies every
rule's matches, then restores congruence. The run stops when an iteration
adds nothing new, a budget is exhausted, or it is interrupted.

With --db, the rule set and every iteration are recorded in a SQLite
database (created if it doesn't exist) for later use with trace and replay.

Example:
  eqsat run ./rules "(* x 2)"
  eqsat run ./rules "(+ a (+ b c))" --db ./runs.db --iterations 10`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaturate(opts, args[0], args[1], cmd)
		},
	}

	addSaturationFlags(cmd, &opts.SaturationOptions)

	return cmd
}

func runSaturate(opts *RunOptions, rulesDir, startText string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	start, err := term.Parse(startText)
	if err != nil {
		_ = formatter.Error(ErrCodeBadTerm, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid start term", err)
	}

	loadResult, err := loadRulesFailFast(rulesDir)
	if err != nil {
		code, message := parseLoadError(err)
		_ = formatter.Error(code, message, nil)
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	formatter.VerboseLog("Loaded %d rule(s) from %s", len(loadResult.Rules), rulesDir)

	ctx, stop := signalContext(cmd)
	defer stop()

	g := egraph.New()
	report, err := saturate(ctx, &opts.SaturationOptions, loadResult.Rules, g, start)
	if err != nil {
		return err
	}

	summary := summarize(report, g)
	if formatter.JSON() {
		return formatter.Success(summary)
	}
	writeRunSummary(formatter, summary)
	return nil
}

// signalContext returns the command's context cancelled on SIGINT/SIGTERM.
// A cancelled run still reports what it found so far.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// saturate runs rules over g from start, recording into the database when
// one is configured.
func saturate(ctx context.Context, opts *SaturationOptions, rules []*rewrite.Rewrite, g *egraph.EGraph, start *term.Expr) (*runner.Report, error) {
	runOpts := []runner.Option{
		runner.WithIterationLimit(opts.IterationLimit),
		runner.WithNodeLimit(opts.NodeLimit),
		runner.WithTimeLimit(opts.TimeLimit),
	}
	if opts.RunIDGenerator != nil {
		runOpts = append(runOpts, runner.WithRunIDGenerator(opts.RunIDGenerator))
	}

	var st *store.Store
	if opts.Database != "" {
		slog.Debug("opening database", "path", opts.Database)
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, runner.WithRecorder(st))
	}

	r, err := runner.New(rules, runOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create runner", err)
	}

	if st != nil {
		descriptors := make([]ir.RuleDescriptor, len(rules))
		for i, rule := range rules {
			descriptors[i] = rule.Descriptor()
		}
		if err := st.WriteRuleset(ctx, r.RulesetHash(), descriptors); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to record rule set", err)
		}
	}

	report, err := r.Run(ctx, g, start)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "saturation failed", err)
	}
	return report, nil
}

func summarize(report *runner.Report, g *egraph.EGraph) RunSummary {
	summary := RunSummary{
		RunID:        report.RunID,
		RulesetHash:  report.RulesetHash,
		StopReason:   report.StopReason,
		Iterations:   len(report.Iterations),
		Applied:      report.Applied(),
		Nodes:        g.NodeCount(),
		Classes:      g.ClassCount(),
		LimitedRules: report.LimitedRules(),
	}
	if report.Start != nil {
		summary.Start = report.Start.String()
		if best, cost, ok := egraph.NewExtractor(g).FindBest(report.Root); ok {
			summary.Best = best.String()
			summary.BestCost = cost
		}
	}
	return summary
}

func writeRunSummary(formatter *OutputFormatter, s RunSummary) {
	w := formatter.Writer
	if s.StopReason == ir.StopSaturated {
		fmt.Fprintf(w, "✓ Saturated after %d iteration(s)\n", s.Iterations)
	} else {
		fmt.Fprintf(w, "Stopped (%s) after %d iteration(s)\n", s.StopReason, s.Iterations)
	}
	fmt.Fprintf(w, "  Run:     %s\n", s.RunID)
	fmt.Fprintf(w, "  Start:   %s\n", s.Start)
	fmt.Fprintf(w, "  Best:    %s (cost %d)\n", s.Best, s.BestCost)
	fmt.Fprintf(w, "  Applied: %d union(s)\n", s.Applied)
	fmt.Fprintf(w, "  E-graph: %d node(s), %d class(es)\n", s.Nodes, s.Classes)
	for _, rule := range s.LimitedRules {
		fmt.Fprintf(w, "  Note: rule %s hit its application limit\n", rule)
	}
}

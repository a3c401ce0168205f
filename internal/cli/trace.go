package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	RunID      string // optional - show one run in detail
	Rule       string // optional - filter to specific rule
	Incomplete bool   // list only runs that never finished
}

// RunListing is the trace output without --run.
type RunListing struct {
	Runs []ir.RunRecord `json:"runs"`
}

// RuleTotal sums one rule's activity over a run.
type RuleTotal struct {
	Rule              string `json:"rule"`
	Matches           int    `json:"matches"`
	Applications      int    `json:"applications"`
	LimitedIterations int    `json:"limited_iterations"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	Iterations int         `json:"iterations"`
	Applied    int         `json:"applied"`
	Rebuilt    int         `json:"rebuilt"`
	IsComplete bool        `json:"is_complete"`
	Rules      []RuleTotal `json:"rules"`
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	Run        ir.RunRecord         `json:"run"`
	Rules      []ir.RuleDescriptor  `json:"rules,omitempty"`
	Iterations []ir.IterationRecord `json:"iterations"`
	Stats      TraceStats           `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `Inspect saturation runs recorded with run --db.

Without --run, lists the recorded runs. With --run, shows the run's rule
set and, per iteration, the e-graph size and how often each rule matched
and applied.

Examples:
  eqsat trace --db ./runs.db
  eqsat trace --db ./runs.db --incomplete
  eqsat trace --db ./runs.db --run 0190a6c2-...
  eqsat trace --db ./runs.db --run 0190a6c2-... --rule commute --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "filter iterations to a specific rule")
	cmd.Flags().BoolVar(&opts.Incomplete, "incomplete", false, "list only runs that never finished")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, opts.Incomplete, formatter)
	}

	trace, err := st.ReadTrace(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result := buildTraceResult(trace, opts.Rule)

	if formatter.JSON() {
		return outputTraceJSON(formatter, result)
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

func listRuns(ctx context.Context, st *store.Store, incomplete bool, formatter *OutputFormatter) error {
	var runs []ir.RunRecord
	var err error
	if incomplete {
		runs, err = st.FindIncompleteRuns(ctx)
	} else {
		runs, err = st.ListRuns(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.JSON() {
		return outputTraceJSON(formatter, RunListing{Runs: runs})
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	for _, run := range runs {
		reason := string(run.StopReason)
		if reason == "" {
			reason = "incomplete"
		}
		fmt.Fprintf(w, "%s  %-15s  %3d iteration(s)  %s\n", run.ID, reason, run.Iterations, run.StartExpr)
	}
	return nil
}

// buildTraceResult assembles the trace output. When ruleFilter is set, each
// iteration lists only that rule; stats still cover the whole run.
func buildTraceResult(trace store.RunTrace, ruleFilter string) TraceResult {
	result := TraceResult{
		Run:        trace.Run,
		Rules:      trace.Rules,
		Iterations: make([]ir.IterationRecord, 0, len(trace.Iterations)),
		Stats: TraceStats{
			Iterations: len(trace.Iterations),
			IsComplete: trace.Complete(),
			Rules:      []RuleTotal{},
		},
	}

	totals := make(map[string]int)
	for _, it := range trace.Iterations {
		result.Stats.Applied += it.Applied
		result.Stats.Rebuilt += it.Rebuilt

		for _, ra := range it.Rules {
			i, seen := totals[ra.Rule]
			if !seen {
				i = len(result.Stats.Rules)
				totals[ra.Rule] = i
				result.Stats.Rules = append(result.Stats.Rules, RuleTotal{Rule: ra.Rule})
			}
			total := &result.Stats.Rules[i]
			total.Matches += ra.Matches
			total.Applications += ra.Count
			if ra.Limited {
				total.LimitedIterations++
			}
		}

		if ruleFilter != "" {
			filtered := it
			filtered.Rules = []ir.RuleApplications{}
			for _, ra := range it.Rules {
				if ra.Rule == ruleFilter {
					filtered.Rules = append(filtered.Rules, ra)
				}
			}
			it = filtered
		}
		result.Iterations = append(result.Iterations, it)
	}

	return result
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(formatter *OutputFormatter, data any) error {
	response := CLIResponse{Status: "ok", Data: data}
	if result, ok := data.(TraceResult); ok {
		response.RunID = result.Run.ID
	}
	return formatter.Respond(response)
}

// outputTraceText outputs the trace result as human-readable text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {

	fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Start: %s\n", result.Run.StartExpr)
	fmt.Fprintf(w, "Ruleset: %s (%d rule(s))\n", result.Run.RulesetHash, result.Run.RuleCount)
	if result.Stats.IsComplete {
		fmt.Fprintf(w, "Stop reason: %s\n", result.Run.StopReason)
	} else {
		fmt.Fprintln(w, "Stop reason: (incomplete)")
	}
	fmt.Fprintln(w)

	if verbose && len(result.Rules) > 0 {
		fmt.Fprintln(w, "Rules:")
		for _, d := range result.Rules {
			fmt.Fprintf(w, "  %s: %v → %v\n", d.Name, d.Patterns, d.Appliers)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Iterations:")
	for _, it := range result.Iterations {
		fmt.Fprintf(w, "  [%d] applied=%d rebuilt=%d nodes=%d classes=%d\n",
			it.Index, it.Applied, it.Rebuilt, it.Nodes, it.Classes)
		for _, ra := range it.Rules {
			limited := ""
			if ra.Limited {
				limited = " (limited)"
			}
			fmt.Fprintf(w, "      %s: %d match(es), %d applied%s\n", ra.Rule, ra.Matches, ra.Count, limited)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Stats:")
	fmt.Fprintf(w, "  Iterations: %d\n", result.Stats.Iterations)
	fmt.Fprintf(w, "  Applied: %d\n", result.Stats.Applied)
	fmt.Fprintf(w, "  Rebuilt: %d\n", result.Stats.Rebuilt)
	fmt.Fprintf(w, "  Complete: %v\n", result.Stats.IsComplete)

	return nil
}

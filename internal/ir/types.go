package ir

// StopReason explains why a saturation run ended.
type StopReason string

const (
	// StopSaturated means an iteration produced no new unions.
	StopSaturated StopReason = "saturated"

	// StopIterationLimit means the configured iteration budget was used up.
	StopIterationLimit StopReason = "iteration_limit"

	// StopNodeLimit means the e-graph grew past the configured node budget.
	StopNodeLimit StopReason = "node_limit"

	// StopTimeLimit means the wall-clock budget elapsed.
	StopTimeLimit StopReason = "time_limit"

	// StopCancelled means the caller's context was cancelled.
	StopCancelled StopReason = "cancelled"
)

// ValidStopReasons defines the allowed stop reasons.
var ValidStopReasons = map[StopReason]bool{
	StopSaturated:      true,
	StopIterationLimit: true,
	StopNodeLimit:      true,
	StopTimeLimit:      true,
	StopCancelled:      true,
}

// RunRecord describes one saturation run.
type RunRecord struct {
	ID          string     `json:"id"`
	StartExpr   string     `json:"start_expr"`
	RulesetHash string     `json:"ruleset_hash"`
	RuleCount   int        `json:"rule_count"`
	StopReason  StopReason `json:"stop_reason,omitempty"` // Empty while the run is in progress
	Iterations  int        `json:"iterations"`
	IRVersion   string     `json:"ir_version"`
}

// IterationRecord describes one search/apply/rebuild round of a run.
type IterationRecord struct {
	Index   int                `json:"index"`   // Zero-based
	Nodes   int                `json:"nodes"`   // E-node count after rebuild
	Classes int                `json:"classes"` // E-class count after rebuild
	Applied int                `json:"applied"` // Sum of Rules[*].Count
	Rebuilt int                `json:"rebuilt"` // Congruence unions found by rebuild
	Rules   []RuleApplications `json:"rules"`   // Declaration order
}

// RuleApplications counts the unions one rule produced in one iteration.
type RuleApplications struct {
	Rule    string `json:"rule"`
	Matches int    `json:"matches"`
	Count   int    `json:"count"`
	Limited bool   `json:"limited"` // Rule stopped early on its application limit
}

// RuleDescriptor is the printable shape of a rewrite rule.
// Used for ruleset hashing and for CLI summaries.
type RuleDescriptor struct {
	Name       string   `json:"name"`
	Patterns   []string `json:"patterns"`
	Appliers   []string `json:"appliers"`
	Conditions []string `json:"conditions"`
	Limit      int      `json:"limit"`
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a saturation test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules lists CUE rule files, compiled in order.
	// Relative paths are resolved against the scenario file's directory.
	Rules []string `yaml:"rules"`

	// Start is the term to saturate, in s-expression syntax.
	Start string `yaml:"start"`

	// Facts are pairs of terms unioned into the graph before the run.
	Facts [][2]string `yaml:"facts,omitempty"`

	// Limits override the runner's default budgets. Zero values keep defaults.
	Limits Limits `yaml:"limits,omitempty"`

	// Assertions validate the saturated graph and the run report.
	Assertions []Assertion `yaml:"assertions"`
}

// Limits mirrors the runner's budgets.
type Limits struct {
	Iterations int    `yaml:"iterations,omitempty"`
	Nodes      int    `yaml:"nodes,omitempty"`
	Time       string `yaml:"time,omitempty"` // time.ParseDuration syntax, e.g. "500ms"
}

// Assertion validates one property of a finished run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Terms are compared by equivalent and not_equivalent.
	Terms []string `yaml:"terms,omitempty"`

	// Expect is the stop reason (stop_reason) or the term (best).
	Expect string `yaml:"expect,omitempty"`

	// Rule names the rule checked by rule_applied.
	Rule string `yaml:"rule,omitempty"`

	// Count is the exact number of unions for rule_applied.
	// Nil means "at least one".
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertEquivalent    = "equivalent"
	AssertNotEquivalent = "not_equivalent"
	AssertStopReason    = "stop_reason"
	AssertRuleApplied   = "rule_applied"
	AssertBest          = "best"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// Rule paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, rulePath := range scenario.Rules {
		if !filepath.IsAbs(rulePath) {
			scenario.Rules[i] = filepath.Join(base, rulePath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Rules) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}

	if s.Start == "" {
		return fmt.Errorf("start is required")
	}

	if s.Limits.Iterations < 0 || s.Limits.Nodes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if s.Limits.Time != "" {
		if _, err := time.ParseDuration(s.Limits.Time); err != nil {
			return fmt.Errorf("limits.time: %w", err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion[%d]: %w", i, err)
		}
	}

	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertEquivalent:
		if len(a.Terms) < 2 {
			return fmt.Errorf("equivalent requires at least two terms")
		}
	case AssertNotEquivalent:
		if len(a.Terms) != 2 {
			return fmt.Errorf("not_equivalent requires exactly two terms")
		}
	case AssertStopReason, AssertBest:
		if a.Expect == "" {
			return fmt.Errorf("%s requires expect", a.Type)
		}
	case AssertRuleApplied:
		if a.Rule == "" {
			return fmt.Errorf("rule_applied requires rule")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

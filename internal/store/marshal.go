package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/eqsat/internal/ir"
)

// marshalRules converts rule descriptors to canonical JSON TEXT for storage.
// The bytes are exactly those the ruleset hash is computed over.
func marshalRules(rules []ir.RuleDescriptor) (string, error) {
	data, err := ir.MarshalRules(rules)
	if err != nil {
		return "", fmt.Errorf("marshal rules: %w", err)
	}
	return string(data), nil
}

// unmarshalRules parses canonical JSON TEXT back into descriptors.
// Returns an empty slice (not nil) for an empty rule set.
func unmarshalRules(data string) ([]ir.RuleDescriptor, error) {
	var rules []ir.RuleDescriptor
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	if rules == nil {
		rules = []ir.RuleDescriptor{}
	}
	return rules, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

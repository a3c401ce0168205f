package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRules() []RuleDescriptor {
	return []RuleDescriptor{
		{
			Name:     "commute-add",
			Patterns: []string{"(+ ?a ?b)"},
			Appliers: []string{"(+ ?b ?a)"},
			Limit:    10000,
		},
		{
			Name:       "mul-to-shift",
			Patterns:   []string{"(* ?a ?b)"},
			Appliers:   []string{"(>> ?a (log2 ?b))"},
			Conditions: []string{"(is-power2 ?b) = TRUE"},
			Limit:      10000,
		},
	}
}

func TestRulesetHashDeterminism(t *testing.T) {
	h1, err := RulesetHash(sampleRules())
	require.NoError(t, err)

	h2, err := RulesetHash(sampleRules())
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "RulesetHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestRulesetHashOrderMatters(t *testing.T) {
	rules := sampleRules()
	reversed := []RuleDescriptor{rules[1], rules[0]}

	assert.NotEqual(t, MustRulesetHash(rules), MustRulesetHash(reversed))
}

func TestRulesetHashChangesWithLimit(t *testing.T) {
	rules := sampleRules()
	changed := sampleRules()
	changed[0].Limit = 5

	assert.NotEqual(t, MustRulesetHash(rules), MustRulesetHash(changed))
}

func TestRulesetHashNilAndEmptySlicesAgree(t *testing.T) {
	withNil := []RuleDescriptor{{Name: "r", Patterns: []string{"x"}, Appliers: []string{"y"}, Limit: 1}}
	withEmpty := []RuleDescriptor{{Name: "r", Patterns: []string{"x"}, Appliers: []string{"y"}, Conditions: []string{}, Limit: 1}}

	assert.Equal(t, MustRulesetHash(withNil), MustRulesetHash(withEmpty))
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`[]`)
	assert.NotEqual(t, hashWithDomain("eqsat/ruleset/v1", data), hashWithDomain("eqsat/ruleset/v2", data))
}

func TestMarshalRules(t *testing.T) {
	data, err := MarshalRules([]RuleDescriptor{{Name: "r", Patterns: []string{"x"}, Appliers: []string{"y"}, Limit: 1}})
	require.NoError(t, err)

	assert.Equal(t, `[{"appliers":["y"],"conditions":[],"limit":1,"name":"r","patterns":["x"]}]`, string(data))
}

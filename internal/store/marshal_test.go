package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/ir"
)

func TestMarshalRules_Canonical(t *testing.T) {
	data, err := marshalRules([]ir.RuleDescriptor{{Name: "r", Patterns: []string{"x"}, Appliers: []string{"y"}, Limit: 3}})
	require.NoError(t, err)
	assert.Equal(t, `[{"appliers":["y"],"conditions":[],"limit":3,"name":"r","patterns":["x"]}]`, data)
}

func TestUnmarshalRules(t *testing.T) {
	rules, err := unmarshalRules(`[]`)
	require.NoError(t, err)
	assert.NotNil(t, rules)
	assert.Empty(t, rules)

	_, err = unmarshalRules(`{`)
	assert.Error(t, err)
}

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

package rewrite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/term"
)

func requireInvalid(t *testing.T, err error, code InvalidRewriteErrorCode) *InvalidRewriteError {
	t.Helper()
	require.Error(t, err)
	require.True(t, IsInvalidRewrite(err), "expected InvalidRewriteError, got %T", err)
	var ire *InvalidRewriteError
	require.True(t, errors.As(err, &ire))
	assert.Equal(t, code, ire.Code)
	return ire
}

func TestBuilder_Build(t *testing.T) {
	rule, err := NewBuilder("commute").
		WithPattern(pattern.MustParse("(+ ?a ?b)")).
		WithApplier(pattern.MustParse("(+ ?b ?a)")).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "commute", rule.Name())
	assert.Len(t, rule.Patterns(), 1)
	assert.Len(t, rule.Appliers(), 1)
	assert.Equal(t, DefaultApplicationLimit, rule.ApplicationLimit())
}

func TestBuilder_NoPatterns(t *testing.T) {
	_, err := RW("empty").A("x").Build()
	ire := requireInvalid(t, err, ErrCodeNoPatterns)
	assert.Equal(t, "empty", ire.Rule)
	assert.Contains(t, err.Error(), `invalid rewrite "empty"`)
	assert.Contains(t, err.Error(), "NO_PATTERNS")
}

func TestBuilder_NoAppliers(t *testing.T) {
	_, err := RW("lhs_only").P("(f ?x)").Build()
	requireInvalid(t, err, ErrCodeNoAppliers)
}

func TestBuilder_InvalidLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
	}{
		{"zero", 0},
		{"negative", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RW("r").P("(f ?x)").A("(g ?x)").WithApplicationLimit(tt.limit).Build()
			requireInvalid(t, err, ErrCodeInvalidLimit)
		})
	}
}

func TestBuilder_LimitOfOne(t *testing.T) {
	rule, err := RW("r").P("(f ?x)").A("(g ?x)").WithApplicationLimit(1).Build()
	require.NoError(t, err)
	assert.Equal(t, 1, rule.ApplicationLimit())
}

func TestBuilder_UnboundApplierVar(t *testing.T) {
	_, err := RW("bad").P("(f ?x)").A("(g ?y)").Build()
	ire := requireInvalid(t, err, ErrCodeUnboundVar)
	assert.Contains(t, ire.Message, "?y")
}

func TestBuilder_UnboundConditionVar(t *testing.T) {
	b, err := RW("bad").P("(f ?x)").A("(g ?x)").WithConditionStrings("(p ?z)", "TRUE")
	require.NoError(t, err)
	_, err = b.Build()
	requireInvalid(t, err, ErrCodeUnboundVar)
}

func TestBuilder_MultiWildcardUsedAsSingle(t *testing.T) {
	t.Run("applier", func(t *testing.T) {
		_, err := RW("spread").P("(f ?xs...)").A("(g ?xs)").Build()
		ire := requireInvalid(t, err, ErrCodeWildcardKind)
		assert.Contains(t, ire.Message, "?xs")
	})

	t.Run("condition", func(t *testing.T) {
		b, err := RW("spread").P("(f ?xs...)").A("(g ?xs...)").WithConditionStrings("(h ?xs)", "T")
		require.NoError(t, err)
		_, err = b.Build()
		requireInvalid(t, err, ErrCodeWildcardKind)
	})

	t.Run("one single use is enough", func(t *testing.T) {
		b, err := RW("spread").P("(f ?xs...)").A("(g ?xs...)").WithConditionStrings("(h ?xs...)", "(k ?xs)")
		require.NoError(t, err)
		_, err = b.Build()
		requireInvalid(t, err, ErrCodeWildcardKind)
	})
}

func TestBuilder_WildcardKindsCompatible(t *testing.T) {
	rule, err := RW("splice").P("(f ?xs...)").A("(g ?xs...)").Build()
	require.NoError(t, err)

	g := egraph.New()
	g.AddExpr(term.MustParse("(f a b)"))
	g.AddExpr(term.MustParse("(f)"))
	assert.NotPanics(t, func() { rule.Run(g) })
	g.Rebuild()
	assert.NotEmpty(t, g.Equivs(term.MustParse("(f a b)"), term.MustParse("(g a b)")))

	// A single wildcard may be spliced as a one-element list.
	_, err = RW("wrap").P("(f ?x)").A("(g ?x...)").Build()
	require.NoError(t, err)
}

// TestBuilder_EveryPatternMustBind verifies each alternative binds the vars
// the right-hand side needs.
func TestBuilder_EveryPatternMustBind(t *testing.T) {
	_, err := RW("alt").P("(f ?x)").P("(h a)").A("(g ?x)").Build()
	ire := requireInvalid(t, err, ErrCodeUnboundVar)
	assert.Contains(t, ire.Message, "(h a)")
}

// TestBuilder_ComputedApplierNotChecked verifies opaque appliers build
// regardless of the names they read.
func TestBuilder_ComputedApplierNotChecked(t *testing.T) {
	fn := ApplierFunc(func(*egraph.EGraph, pattern.Mapping) []egraph.ID { return nil })
	_, err := RW("opaque").P("(f ?x)").WithApplier(fn).Build()
	assert.NoError(t, err)
}

func TestBuilder_ParseErrorVerbatim(t *testing.T) {
	b := RW("broken")

	got, err := b.WithPatternString("(* ?a")
	require.Error(t, err)
	assert.Same(t, b, got)

	var pe *term.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "(* ?a", pe.Text)
	assert.False(t, IsInvalidRewrite(err))

	_, err = b.WithApplierString("(f ?x...  ?y)")
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "(f ?x...  ?y)", pe.Text)

	_, err = b.WithConditionStrings("(p ?x)", ")")
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ")", pe.Text)

	// Nothing was added by the failed calls.
	_, err = b.Build()
	requireInvalid(t, err, ErrCodeNoPatterns)
}

func TestBuilder_PanickingHelpers(t *testing.T) {
	assert.Panics(t, func() { RW("r").P("(") })
	assert.Panics(t, func() { RW("r").A("") })
	assert.Panics(t, func() { RW("r").MustBuild() })
	assert.NotPanics(t, func() { RW("r").P("?x").A("?x").MustBuild() })
}

// TestBuilder_ReuseAfterBuild verifies a built rule is isolated from later
// builder changes.
func TestBuilder_ReuseAfterBuild(t *testing.T) {
	b := RW("r").P("(f ?x)").A("(g ?x)")
	first := b.MustBuild()

	b.A("(h ?x)").WithApplicationLimit(7)
	second := b.MustBuild()

	assert.Len(t, first.Appliers(), 1)
	assert.Equal(t, DefaultApplicationLimit, first.ApplicationLimit())
	assert.Len(t, second.Appliers(), 2)
	assert.Equal(t, 7, second.ApplicationLimit())
}

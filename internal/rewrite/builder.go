package rewrite

import (
	"fmt"
	"slices"

	"github.com/roach88/eqsat/internal/pattern"
)

// DefaultApplicationLimit caps the unions one Apply call may record
// (plus one; see the package documentation).
const DefaultApplicationLimit = 10_000

// Builder accumulates the parts of a rule. Build validates them and returns
// the immutable Rewrite; it is the only way to obtain one.
//
// A Builder is not safe for concurrent use. It may be reused after Build:
// the built rule holds its own copies.
type Builder struct {
	name       string
	patterns   []*pattern.Pattern
	appliers   []Applier
	conditions []Condition
	limit      int
}

// NewBuilder starts a rule with the given diagnostic name.
// Names are not required to be unique.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, limit: DefaultApplicationLimit}
}

// RW is shorthand for NewBuilder.
func RW(name string) *Builder {
	return NewBuilder(name)
}

// WithPattern adds a left-hand pattern. Patterns are alternatives: a rule
// with several patterns matches wherever any of them does.
func (b *Builder) WithPattern(p *pattern.Pattern) *Builder {
	b.patterns = append(b.patterns, p)
	return b
}

// WithPatternString parses text and adds it as a pattern.
// On error the builder is returned unchanged along with the parser's error.
func (b *Builder) WithPatternString(text string) (*Builder, error) {
	p, err := pattern.Parse(text)
	if err != nil {
		return b, err
	}
	return b.WithPattern(p), nil
}

// WithApplier adds a right-hand action. Appliers run in the order added.
func (b *Builder) WithApplier(a Applier) *Builder {
	b.appliers = append(b.appliers, a)
	return b
}

// WithApplierString parses text and adds the pattern as an applier.
// On error the builder is returned unchanged along with the parser's error.
func (b *Builder) WithApplierString(text string) (*Builder, error) {
	p, err := pattern.Parse(text)
	if err != nil {
		return b, err
	}
	return b.WithApplier(p), nil
}

// WithCondition adds a side condition. All conditions must hold.
func (b *Builder) WithCondition(c Condition) *Builder {
	b.conditions = append(b.conditions, c)
	return b
}

// WithConditionStrings parses both sides and adds the condition.
// On error the builder is returned unchanged along with the parser's error.
func (b *Builder) WithConditionStrings(lhs, rhs string) (*Builder, error) {
	c, err := ParseCondition(lhs, rhs)
	if err != nil {
		return b, err
	}
	return b.WithCondition(c), nil
}

// WithApplicationLimit overrides DefaultApplicationLimit.
// Build rejects limits below 1.
func (b *Builder) WithApplicationLimit(limit int) *Builder {
	b.limit = limit
	return b
}

// P adds a pattern from text and panics on parse errors.
// Use only in tests or when inputs are known to be valid.
func (b *Builder) P(text string) *Builder {
	if _, err := b.WithPatternString(text); err != nil {
		panic(err)
	}
	return b
}

// A adds a pattern applier from text and panics on parse errors.
// Use only in tests or when inputs are known to be valid.
func (b *Builder) A(text string) *Builder {
	if _, err := b.WithApplierString(text); err != nil {
		panic(err)
	}
	return b
}

// Build validates the accumulated parts and returns the rule.
//
// Returns *InvalidRewriteError if there is no pattern, no applier, a
// non-positive limit, or a wildcard used by an applier or condition that
// some pattern leaves unbound.
func (b *Builder) Build() (*Rewrite, error) {
	if len(b.patterns) == 0 {
		return nil, &InvalidRewriteError{
			Code:    ErrCodeNoPatterns,
			Rule:    b.name,
			Message: "at least one pattern is required",
		}
	}
	if len(b.appliers) == 0 {
		return nil, &InvalidRewriteError{
			Code:    ErrCodeNoAppliers,
			Rule:    b.name,
			Message: "at least one applier is required",
		}
	}
	if b.limit < 1 {
		return nil, &InvalidRewriteError{
			Code:    ErrCodeInvalidLimit,
			Rule:    b.name,
			Message: fmt.Sprintf("application limit must be positive, got %d", b.limit),
		}
	}
	if err := b.checkBindings(); err != nil {
		return nil, err
	}

	r := &Rewrite{
		name:       b.name,
		patterns:   make([]*pattern.Pattern, len(b.patterns)),
		appliers:   make([]Applier, len(b.appliers)),
		conditions: make([]Condition, len(b.conditions)),
		limit:      b.limit,
	}
	copy(r.patterns, b.patterns)
	copy(r.appliers, b.appliers)
	copy(r.conditions, b.conditions)

	return r, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or when inputs are known to be valid.
func (b *Builder) MustBuild() *Rewrite {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// checkBindings verifies every pattern binds each wildcard the conditions
// and pattern-like appliers use, with a compatible kind. A multi wildcard
// may be spliced where a multi wildcard is expected, but never used as a
// single class. Computed appliers are opaque and skipped.
func (b *Builder) checkBindings() error {
	used := make(map[pattern.Var]pattern.WildcardKind)
	var order []pattern.Var
	use := func(kinds map[pattern.Var]pattern.WildcardKind) {
		for v := range kinds {
			if _, ok := used[v]; !ok {
				order = append(order, v)
			}
		}
		mergeKinds(used, kinds)
	}
	for _, c := range b.conditions {
		use(c.VarKinds())
	}
	for _, a := range b.appliers {
		if vu, ok := a.(varUser); ok {
			use(vu.VarKinds())
		}
	}
	slices.Sort(order)

	for i, p := range b.patterns {
		bound := p.VarKinds()
		for _, v := range order {
			kind, ok := bound[v]
			switch {
			case !ok:
				return &InvalidRewriteError{
					Code:    ErrCodeUnboundVar,
					Rule:    b.name,
					Message: fmt.Sprintf("wildcard %s is not bound by pattern %d %s", v, i, p),
				}
			case kind == pattern.Multi && used[v] == pattern.Single:
				return &InvalidRewriteError{
					Code:    ErrCodeWildcardKind,
					Rule:    b.name,
					Message: fmt.Sprintf("wildcard %s is bound as %s... by pattern %d %s but used as a single wildcard", v, v, i, p),
				}
			}
		}
	}
	return nil
}

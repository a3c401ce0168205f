package rewrite

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/eqsat/internal/egraph"
	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/pattern"
)

// Rewrite is an immutable rewrite rule.
//
// INVARIANTS (established by Builder.Build):
//   - len(patterns) >= 1 and len(appliers) >= 1
//   - limit >= 1
//   - Search and Apply never modify the rule; all mutation targets the graph
type Rewrite struct {
	name       string
	patterns   []*pattern.Pattern
	appliers   []Applier
	conditions []Condition
	limit      int
}

// Name returns the diagnostic name of the rule.
func (r *Rewrite) Name() string { return r.name }

// ApplicationLimit returns the configured limit.
func (r *Rewrite) ApplicationLimit() int { return r.limit }

// Patterns returns a copy of the left-hand patterns in declaration order.
func (r *Rewrite) Patterns() []*pattern.Pattern {
	out := make([]*pattern.Pattern, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Appliers returns a copy of the appliers in declaration order.
func (r *Rewrite) Appliers() []Applier {
	out := make([]Applier, len(r.appliers))
	copy(out, r.appliers)
	return out
}

// Conditions returns a copy of the conditions in declaration order.
func (r *Rewrite) Conditions() []Condition {
	out := make([]Condition, len(r.conditions))
	copy(out, r.conditions)
	return out
}

// Descriptor returns the printable shape of the rule.
func (r *Rewrite) Descriptor() ir.RuleDescriptor {
	d := ir.RuleDescriptor{
		Name:       r.name,
		Patterns:   make([]string, len(r.patterns)),
		Appliers:   make([]string, len(r.appliers)),
		Conditions: make([]string, len(r.conditions)),
		Limit:      r.limit,
	}
	for i, p := range r.patterns {
		d.Patterns[i] = p.String()
	}
	for i, a := range r.appliers {
		d.Appliers[i] = describeApplier(a)
	}
	for i, c := range r.conditions {
		d.Conditions[i] = c.String()
	}
	return d
}

// String renders the rule as "name: lhs => rhs".
func (r *Rewrite) String() string {
	d := r.Descriptor()
	return fmt.Sprintf("%s: %v => %v", d.Name, d.Patterns, d.Appliers)
}

// Search matches every pattern against g.
//
// Results are concatenated in pattern order, each pattern's matches in its
// own order. Overlapping matches from different patterns are all kept.
func (r *Rewrite) Search(g *egraph.EGraph) []pattern.SearchMatches {
	var matches []pattern.SearchMatches
	for _, p := range r.patterns {
		matches = append(matches, p.Search(g)...)
	}
	return matches
}

// Apply runs the rule over the given matches and returns the leader of every
// union it performed, in order.
//
// For each mapping whose conditions all hold, each applier runs in order and
// each result that differs from the matched class is unioned with it. Results
// equal to the matched class carry no new information and are skipped.
//
// After every recorded union the count is compared against the limit with a
// strict greater-than: once exceeded, a warning is logged and Apply returns
// what it has, leaving the remaining matches unprocessed. The caller must
// Rebuild the graph before relying on congruence.
func (r *Rewrite) Apply(g *egraph.EGraph, matches []pattern.SearchMatches) []egraph.ID {
	var applications []egraph.ID

outer:
	for _, match := range matches {
		for _, mapping := range match.Mappings {
			if !r.conditionsHold(g, mapping) {
				continue
			}
			for _, applier := range r.appliers {
				for _, id := range applier.Apply(g, mapping) {
					if id == match.EClass {
						continue
					}
					applications = append(applications, g.Union(match.EClass, id))

					if len(applications) > r.limit {
						slog.Warn("rewrite exceeded application limit",
							"rule", r.name,
							"applications", len(applications),
							"limit", r.limit,
						)
						break outer
					}
				}
			}
		}
	}

	return applications
}

// conditionsHold checks conditions in order and stops at the first failure,
// so later conditions of a rejected mapping never touch the graph.
func (r *Rewrite) conditionsHold(g *egraph.EGraph, m pattern.Mapping) bool {
	for _, c := range r.conditions {
		if !c.Check(g, m) {
			return false
		}
	}
	return true
}

// Run searches and applies in one step, logging match and application counts
// with the elapsed time at debug level.
func (r *Rewrite) Run(g *egraph.EGraph) []egraph.ID {
	start := time.Now()

	matches := r.Search(g)
	slog.Debug("rewrite matched",
		"rule", r.name,
		"matches", len(matches),
	)

	ids := r.Apply(g, matches)
	slog.Debug("rewrite applied",
		"rule", r.name,
		"applications", len(ids),
		"elapsed", time.Since(start),
	)

	return ids
}

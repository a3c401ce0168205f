// Package pattern matches term templates against an e-graph and instantiates
// them under a substitution.
//
// Pattern syntax extends term syntax with wildcards:
//
//	?a         binds exactly one child class
//	?rest...   binds the remaining children of a node (zero or more);
//	           only allowed as the last child
//
// A wildcard that appears more than once must bind the same class (compared
// canonically) at every occurrence.
//
// Patterns are immutable once built, so a single *Pattern may be shared by
// many rules, used as a rule applier, and cached by Parse.
package pattern

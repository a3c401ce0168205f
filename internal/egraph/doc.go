// Package egraph implements the graph of equivalence classes that rewrite
// rules search and extend.
//
// An EGraph stores e-nodes (an operator plus child class ids) partitioned into
// e-classes by a union-find structure. Terms are hash-consed: adding a node
// that already exists returns the existing class.
//
// Congruence (equal children imply equal parents) is only guaranteed after
// Rebuild. Callers batch any number of Add and Union calls and then Rebuild
// once, which is how the saturation runner drives the graph between rounds.
//
// An EGraph is not safe for concurrent use.
package egraph

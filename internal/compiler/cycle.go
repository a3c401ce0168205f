package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/eqsat/internal/pattern"
	"github.com/roach88/eqsat/internal/rewrite"
)

// CycleWarning represents rules that may keep feeding each other.
//
// Cycles are warnings, not errors: the e-graph merges equal terms, so many
// cycles (commutativity, for one) saturate on their own. The runner's
// budgets bound the rest.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["rule-a", "rule-b", "rule-a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static trigger analysis on a rule set.
//
// Rule A may trigger rule B when one of A's pattern appliers builds a node
// whose operator heads one of B's patterns, or when B has a bare wildcard
// pattern. Computed appliers are opaque and contribute no edges.
//
// The algorithm:
//  1. Build rule → rule trigger graph
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a potential cycle
//
// Self-loops are reported at "info" level since they are usually
// intentional (commutativity, associativity). A DAG returns an empty list.
func AnalyzeCycles(rules []*rewrite.Rewrite) []CycleWarning {
	if len(rules) == 0 {
		return []CycleWarning{}
	}

	graph, order := buildTriggerGraph(rules)
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// triggerGraph maps rule name → rule names it may trigger, in declaration order.
type triggerGraph map[string][]string

// buildTriggerGraph returns the graph and the rule names in declaration order.
func buildTriggerGraph(rules []*rewrite.Rewrite) (triggerGraph, []string) {
	graph := make(triggerGraph)
	var order []string

	// head operator → rules whose pattern it heads
	headToRules := make(map[string][]string)
	var wildcardRules []string
	for _, rule := range rules {
		name := rule.Name()
		if _, ok := graph[name]; !ok {
			graph[name] = []string{}
			order = append(order, name)
		}
		for _, p := range rule.Patterns() {
			if p.IsWildcard() {
				wildcardRules = appendUnique(wildcardRules, name)
				continue
			}
			headToRules[p.Op()] = appendUnique(headToRules[p.Op()], name)
		}
	}

	for _, rule := range rules {
		name := rule.Name()
		produced := make(map[string]bool)
		for _, a := range rule.Appliers() {
			if p, ok := a.(*pattern.Pattern); ok {
				collectOps(p, produced)
			}
		}
		if len(produced) == 0 {
			continue
		}

		// Iterate targets in declaration order for deterministic output.
		for _, target := range order {
			if triggers(target, produced, headToRules, wildcardRules) {
				graph[name] = appendUnique(graph[name], target)
			}
		}
	}

	return graph, order
}

func triggers(target string, produced map[string]bool, headToRules map[string][]string, wildcardRules []string) bool {
	for _, w := range wildcardRules {
		if w == target {
			return true
		}
	}
	for op := range produced {
		for _, r := range headToRules[op] {
			if r == target {
				return true
			}
		}
	}
	return false
}

// collectOps records every operator p builds.
func collectOps(p *pattern.Pattern, ops map[string]bool) {
	if p.IsWildcard() {
		return
	}
	ops[p.Op()] = true
	for _, c := range p.Children() {
		collectOps(c, ops)
	}
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph triggerGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so results are deterministic.
func tarjanSCC(graph triggerGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// Root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph triggerGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-triggering rule: %s → %s", name, name),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Potential rule cycle: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph triggerGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool)
	for _, node := range scc {
		members[node] = true
	}

	start := scc[len(scc)-1] // the SCC root, first visited
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		// Prefer unvisited members; close the cycle only when none remain.
		next, closes := "", false
		for _, neighbor := range graph[current] {
			if !members[neighbor] {
				continue
			}
			if !visited[neighbor] {
				next = neighbor
				break
			}
			if neighbor == start {
				closes = true
			}
		}
		if next == "" && closes {
			next = start
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}

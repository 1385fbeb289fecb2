package manifest

import (
	"fmt"
	"strings"

	"github.com/weftlabs/weft/internal/ir"
)

// CycleWarning reports a potential rule cycle found statically.
//
// Cycles are warnings, not errors: self-correcting loops and retry
// chains are legitimate, and the runtime bounds them at dispatch time
// with binding-level suppression plus depth and step limits.
type CycleWarning struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// AnalyzeCycles builds the rule dependency graph (a rule depends on the
// rules its consequents can trigger) and reports every strongly
// connected component of size > 1, plus self-loops, as a warning.
// A DAG returns an empty list.
func AnalyzeCycles(rules []*ir.Rule) []CycleWarning {
	if len(rules) == 0 {
		return nil
	}

	graph := buildDependencyGraph(rules)
	sccs := tarjanSCC(graph)

	var warnings []CycleWarning
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	return warnings
}

// dependencyGraph maps rule name to the rules its consequents can trigger.
type dependencyGraph map[string][]string

func buildDependencyGraph(rules []*ir.Rule) dependencyGraph {
	// Which rules does each action ref trigger?
	triggeredBy := make(map[string][]string)
	for _, rule := range rules {
		for _, clause := range rule.When {
			ref := clause.Ref()
			triggeredBy[ref] = append(triggeredBy[ref], rule.Name)
		}
	}

	graph := make(dependencyGraph, len(rules))
	for _, rule := range rules {
		edges := []string{}
		seen := make(map[string]bool)
		for _, clause := range rule.Then {
			for _, name := range triggeredBy[clause.Ref()] {
				if !seen[name] {
					seen[name] = true
					edges = append(edges, name)
				}
			}
		}
		graph[rule.Name] = edges
	}
	return graph
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are not cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
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

	for node := range graph {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("self-triggering rule: %s -> %s", name, name),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: "potential rule cycle: " + strings.Join(path, " -> "),
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until the walk returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
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

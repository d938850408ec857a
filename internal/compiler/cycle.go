package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/datagen/internal/profile"
)

// CycleWarning represents a cycle among ordering relations.
//
// Cycles are warnings, not errors, because they may be satisfiable:
//   - the relations sit in different anyOf branches
//   - every step is non-strict, so equal values satisfy them all
//   - offsets leave room in one direction
//
// A cycle nevertheless makes the walker backtrack heavily.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on the ordering relations of
// a profile.
//
// The algorithm:
//  1. Build a field graph with an edge a -> b whenever a relation orders a
//     above b (a > b, a >= b, or b < a). Negation flips the direction; an
//     if-condition contributes both directions.
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with more than one field as a cycle warning
//
// Equality relations order nothing and add no edges.
func AnalyzeCycles(p *profile.Profile) []CycleWarning {
	graph := buildOrderingGraph(p)
	if len(graph.edges) == 0 {
		return []CycleWarning{}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// orderingGraph maps field -> fields it is ordered above. nodes fixes the
// visiting order so results are deterministic.
type orderingGraph struct {
	nodes []string
	edges map[string][]string
}

func (g *orderingGraph) addNode(n string) {
	if !slices.Contains(g.nodes, n) {
		g.nodes = append(g.nodes, n)
	}
}

func (g *orderingGraph) addEdge(from, to string) {
	if from == to || slices.Contains(g.edges[from], to) {
		return
	}
	g.addNode(from)
	g.addNode(to)
	g.edges[from] = append(g.edges[from], to)
}

func buildOrderingGraph(p *profile.Profile) *orderingGraph {
	g := &orderingGraph{edges: make(map[string][]string)}
	for _, f := range p.Fields {
		g.addNode(f.Name)
	}

	var walk func(c profile.Constraint, neg bool)
	walk = func(c profile.Constraint, neg bool) {
		switch v := c.(type) {
		case profile.Relation:
			op := v.Op
			if neg {
				op = op.Negate()
			}
			switch op {
			case profile.RelGreaterThan, profile.RelGreaterThanOrEqualTo:
				g.addEdge(v.Field, v.Other)
			case profile.RelLessThan, profile.RelLessThanOrEqualTo:
				g.addEdge(v.Other, v.Field)
			}
		case profile.AllOf:
			for _, inner := range v {
				walk(inner, neg)
			}
		case profile.AnyOf:
			for _, inner := range v {
				walk(inner, neg)
			}
		case profile.Not:
			walk(v.Inner, !neg)
		case profile.If:
			walk(v.Cond, false)
			walk(v.Cond, true)
			walk(v.Then, neg)
			if v.Else != nil {
				walk(v.Else, neg)
			}
		}
	}
	for _, rule := range p.Rules {
		for _, c := range rule.Constraints {
			walk(c, false)
		}
	}
	return g
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of field names.
// Single-node SCCs are NOT cycles; the graph has no self-loops.
func tarjanSCC(graph *orderingGraph) [][]string {
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
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
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

	for _, node := range graph.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning, starting the path at
// the earliest declared field of the SCC.
func cycleSCCToWarning(scc []string, graph *orderingGraph) CycleWarning {
	start := scc[0]
	for _, n := range graph.nodes {
		if slices.Contains(scc, n) {
			start = n
			break
		}
	}
	path := reconstructCyclePath(start, scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("ordering cycle among relations: %s", strings.Join(path, " > ")),
		Level:   "warning",
	}
}

// reconstructCyclePath follows edges within the SCC from start until it
// returns to start.
func reconstructCyclePath(start string, scc []string, graph *orderingGraph) []string {
	current := start
	path := []string{current}
	visited := map[string]bool{}

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph.edges[current] {
			if slices.Contains(scc, neighbor) && (!visited[neighbor] || neighbor == start) {
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

package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/shorthand/internal/join"
)

// Cycle is a loop of queries that use each other as tables. Building any
// query on the loop fails, so cycles are reported by validation.
type Cycle struct {
	Path    []string `json:"path"`    // e.g. ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeCycles reports every loop in the query reference graph.
//
// The graph has an edge q -> r when an override key in q's join chain (or in
// one of its forks) names catalog query r. Strongly connected components are
// found with Tarjan's algorithm; each one with more than one query, or a
// single query referencing itself, is a cycle. An acyclic catalog returns an
// empty list.
func AnalyzeCycles(c *Catalog) []Cycle {
	if c == nil || c.Len() == 0 {
		return []Cycle{}
	}

	graph := buildDependencyGraph(c)
	sccs := tarjanSCC(graph)

	cycles := []Cycle{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, cycleSCCToCycle(scc, graph))
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Path[0] < cycles[j].Path[0]
	})
	return cycles
}

// dependencyGraph maps query name -> catalog queries it uses as tables.
type dependencyGraph map[string][]string

// buildDependencyGraph collects the override keys of every query that name
// another catalog query. Chains that do not compile contribute no edges;
// validation reports them separately.
func buildDependencyGraph(c *Catalog) dependencyGraph {
	graph := make(dependencyGraph)
	for _, q := range c.queries {
		graph[q.Name] = []string{}

		chains := []string{q.Definition.From}
		for _, table := range sortedKeys(q.Forks) {
			chains = append(chains, q.Forks[table].From)
		}
		for _, chain := range chains {
			j, err := join.Compile(chain, join.Options{})
			if err != nil {
				continue
			}
			for _, key := range j.OverrideKeys() {
				if _, ok := c.index[key]; ok {
					graph[q.Name] = append(graph[q.Name], key)
				}
			}
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of query names.
// Single-node SCCs without self-loops are NOT cycles.
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

		// v roots an SCC: pop it off the stack.
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

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToCycle converts an SCC to a Cycle. For a self reference the path
// is [name, name].
func cycleSCCToCycle(scc []string, graph dependencyGraph) Cycle {
	if len(scc) == 1 {
		name := scc[0]
		return Cycle{
			Path:    []string{name, name},
			Message: fmt.Sprintf("query %s uses itself as a table", name),
		}
	}

	sort.Strings(scc)
	path := reconstructCyclePath(scc, graph)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("queries use each other as tables: %s", strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns there.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
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
			// No more unvisited neighbors in SCC
			break
		}

		path = append(path, next)

		if next == start {
			// Completed the cycle
			break
		}

		current = next
	}

	return path
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

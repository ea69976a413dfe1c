package graph

import (
	"fmt"
	"sort"
	"strings"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
)

// CycleError reports a failed topological sort. Remaining names every node
// left with nonzero in-degree when the queue emptied.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency graph contains cycles; unresolved systems: %s",
		strings.Join(e.Remaining, ", "))
}

// DetectCycles finds every circular dependency. DFS with white/gray/black
// marking: a back-edge into a gray node yields a cycle, reconstructed by
// walking the active path back to the back-edge target. The search restarts
// from every undiscovered node so all disjoint cycles are found.
func (g *Graph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))

	for _, node := range g.nodes {
		if !visited[node] {
			g.findCycles(node, visited, onStack, []string{}, &cycles)
		}
	}

	return cycles
}

func (g *Graph) findCycles(curr string, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	for _, next := range g.dependsOn[curr] {
		if onStack[next] {
			cycleStart := -1
			for i, n := range path {
				if n == next {
					cycleStart = i
					break
				}
			}
			if cycleStart != -1 {
				cycle := make([]string, len(path)-cycleStart)
				copy(cycle, path[cycleStart:])
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[next] {
			g.findCycles(next, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}

// TopologicalSort returns a full linear order with every dependency before
// its dependents (Kahn's algorithm). On a cyclic graph it fails with a
// CycleError naming every node with residual in-degree; it never returns a
// truncated order.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		inDegree[n] = len(g.dependsOn[n])
	}

	var queue []string
	for _, n := range g.nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range g.dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Strings(queue)
			}
		}
	}

	if len(order) != len(g.nodes) {
		var remaining []string
		for _, n := range g.nodes {
			if inDegree[n] > 0 {
				remaining = append(remaining, n)
			}
		}
		return nil, &CycleError{Remaining: remaining}
	}

	return order, nil
}

// BFS returns the systems reachable from start, in breadth-first discovery
// order, excluding start itself. Direction selects depends-on edges ("what
// does X need") or reverse edges ("what breaks if X changes").
func (g *Graph) BFS(start string, dir Direction) ([]string, error) {
	if !g.Contains(start) {
		return nil, cctxerr.Newf(cctxerr.CodeNotFound, "system %q not in graph", start)
	}

	visited := map[string]bool{start: true}
	var reached []string
	queue := []string{start}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.neighbors(curr, dir) {
			if visited[next] {
				continue
			}
			visited[next] = true
			reached = append(reached, next)
			queue = append(queue, next)
		}
	}

	return reached, nil
}

// Reachable reports whether b is reachable from a along depends-on edges.
func (g *Graph) Reachable(a, b string) (bool, error) {
	reached, err := g.BFS(a, Dependencies)
	if err != nil {
		return false, err
	}
	for _, n := range reached {
		if n == b {
			return true, nil
		}
	}
	return false, nil
}

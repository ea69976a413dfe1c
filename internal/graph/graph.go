// Package graph builds an immutable directed dependency graph from registry
// state and answers cycle, ordering, and reachability queries. All queries
// are pure; the graph never mutates after Build.
package graph

import (
	"sort"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/shared/observability"
	"github.com/mabrax/cctx/internal/store"
)

type Direction string

const (
	// Dependencies walks depends-on edges: "what does X need".
	Dependencies Direction = "dependencies"
	// Dependents walks reverse edges: "what breaks if X changes".
	Dependents Direction = "dependents"
)

type Graph struct {
	nodes []string // sorted system paths
	names map[string]string

	dependsOn  map[string][]string // system -> sorted dependencies
	dependents map[string][]string // system -> sorted dependents

	edges []store.Dependency
}

// Build constructs the adjacency maps in O(V+E). An edge referencing an
// unregistered system fails the build; dangling references are never
// silently dropped.
func Build(systems []store.System, deps []store.Dependency) (*Graph, error) {
	g := &Graph{
		names:      make(map[string]string, len(systems)),
		dependsOn:  make(map[string][]string, len(systems)),
		dependents: make(map[string][]string, len(systems)),
	}

	for _, sys := range systems {
		g.nodes = append(g.nodes, sys.Path)
		g.names[sys.Path] = sys.Name
		g.dependsOn[sys.Path] = nil
		g.dependents[sys.Path] = nil
	}
	sort.Strings(g.nodes)

	for _, d := range deps {
		if _, ok := g.names[d.SystemPath]; !ok {
			return nil, cctxerr.AddContext(
				cctxerr.Newf(cctxerr.CodeStructuralIntegrity,
					"dependency edge %q -> %q references unknown system %q",
					d.SystemPath, d.DependsOn, d.SystemPath),
				cctxerr.CtxSystem, d.SystemPath)
		}
		if _, ok := g.names[d.DependsOn]; !ok {
			return nil, cctxerr.AddContext(
				cctxerr.Newf(cctxerr.CodeStructuralIntegrity,
					"dependency edge %q -> %q references unknown system %q",
					d.SystemPath, d.DependsOn, d.DependsOn),
				cctxerr.CtxSystem, d.DependsOn)
		}
		g.dependsOn[d.SystemPath] = append(g.dependsOn[d.SystemPath], d.DependsOn)
		g.dependents[d.DependsOn] = append(g.dependents[d.DependsOn], d.SystemPath)
		g.edges = append(g.edges, d)
	}

	for _, adj := range []map[string][]string{g.dependsOn, g.dependents} {
		for k := range adj {
			sort.Strings(adj[k])
		}
	}
	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].SystemPath != g.edges[j].SystemPath {
			return g.edges[i].SystemPath < g.edges[j].SystemPath
		}
		return g.edges[i].DependsOn < g.edges[j].DependsOn
	})

	observability.GraphNodes.Set(float64(len(g.nodes)))
	observability.GraphEdges.Set(float64(len(g.edges)))

	return g, nil
}

func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

func (g *Graph) Edges() []store.Dependency {
	return append([]store.Dependency(nil), g.edges...)
}

func (g *Graph) Name(path string) string {
	return g.names[path]
}

func (g *Graph) Contains(path string) bool {
	_, ok := g.names[path]
	return ok
}

// Roots are systems with no dependencies: the foundation of the graph.
func (g *Graph) Roots() []string {
	var roots []string
	for _, n := range g.nodes {
		if len(g.dependsOn[n]) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// Leaves are systems nothing depends on.
func (g *Graph) Leaves() []string {
	var leaves []string
	for _, n := range g.nodes {
		if len(g.dependents[n]) == 0 {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

func (g *Graph) neighbors(path string, dir Direction) []string {
	if dir == Dependents {
		return g.dependents[path]
	}
	return g.dependsOn[path]
}

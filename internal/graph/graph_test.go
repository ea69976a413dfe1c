package graph

import (
	"testing"
	"time"

	cctxerr "github.com/mabrax/cctx/internal/core/errors"
	"github.com/mabrax/cctx/internal/store"
)

func systems(paths ...string) []store.System {
	out := make([]store.System, 0, len(paths))
	for _, p := range paths {
		out = append(out, store.System{Path: p, Name: p})
	}
	return out
}

func edges(pairs ...[2]string) []store.Dependency {
	out := make([]store.Dependency, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, store.Dependency{SystemPath: p[0], DependsOn: p[1]})
	}
	return out
}

func TestBuildRejectsDanglingEdge(t *testing.T) {
	_, err := Build(systems("a", "b"), edges([2]string{"a", "ghost"}))
	if err == nil {
		t.Fatal("expected structural integrity error for dangling edge")
	}
	if !cctxerr.IsCode(err, cctxerr.CodeStructuralIntegrity) {
		t.Errorf("expected STRUCTURAL_INTEGRITY, got %v", err)
	}
}

func TestDetectCycles(t *testing.T) {
	// a -> b -> c -> a, plus disjoint d -> e -> d, plus acyclic f.
	g, err := Build(
		systems("a", "b", "c", "d", "e", "f"),
		edges(
			[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"},
			[2]string{"d", "e"}, [2]string{"e", "d"},
			[2]string{"f", "a"},
		),
	)
	if err != nil {
		t.Fatal(err)
	}

	cycles := g.DetectCycles()
	if len(cycles) != 2 {
		t.Fatalf("expected 2 disjoint cycles, got %d: %v", len(cycles), cycles)
	}

	participants := map[string]bool{}
	for _, cycle := range cycles {
		for _, n := range cycle {
			participants[n] = true
		}
	}
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		if !participants[n] {
			t.Errorf("node %s participates in a cycle but was not reported", n)
		}
	}
	if participants["f"] {
		t.Error("node f does not participate in any cycle")
	}
}

func TestDetectCyclesAcyclic(t *testing.T) {
	g, err := Build(
		systems("a", "b", "c"),
		edges([2]string{"a", "b"}, [2]string{"b", "c"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestTopologicalSort(t *testing.T) {
	// a depends on b, b depends on c: order must be c, b, a.
	g, err := Build(
		systems("a", "b", "c", "d"),
		edges([2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"a", "d"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 4 {
		t.Fatalf("expected full order of 4 nodes, got %v", order)
	}

	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	for _, e := range g.Edges() {
		if pos[e.DependsOn] >= pos[e.SystemPath] {
			t.Errorf("dependency %s must precede dependent %s in %v", e.DependsOn, e.SystemPath, order)
		}
	}
}

func TestTopologicalSortCycle(t *testing.T) {
	g, err := Build(
		systems("a", "b", "c", "d"),
		edges([2]string{"a", "b"}, [2]string{"b", "a"}, [2]string{"c", "d"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = g.TopologicalSort()
	var cycleErr *CycleError
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !asCycleError(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Remaining) != 2 {
		t.Errorf("expected residual set {a, b}, got %v", cycleErr.Remaining)
	}
}

func asCycleError(err error, target **CycleError) bool {
	ce, ok := err.(*CycleError)
	if ok {
		*target = ce
	}
	return ok
}

func TestBFSDependents(t *testing.T) {
	// c <- b <- a and c <- d: dependents of c are {b, d, a}.
	g, err := Build(
		systems("a", "b", "c", "d"),
		edges([2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"d", "c"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	reached, err := g.BFS("c", Dependents)
	if err != nil {
		t.Fatal(err)
	}
	if len(reached) != 3 {
		t.Fatalf("expected 3 dependents, got %v", reached)
	}

	seen := map[string]int{}
	for _, n := range reached {
		seen[n]++
	}
	for n, count := range seen {
		if count != 1 {
			t.Errorf("node %s visited %d times, expected exactly once", n, count)
		}
	}
	for _, n := range []string{"a", "b", "d"} {
		if seen[n] != 1 {
			t.Errorf("expected %s in transitive dependents, got %v", n, reached)
		}
	}
}

func TestBFSUnknownStart(t *testing.T) {
	g, err := Build(systems("a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.BFS("ghost", Dependencies); !cctxerr.IsCode(err, cctxerr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for unknown start, got %v", err)
	}
}

func TestReachable(t *testing.T) {
	g, err := Build(
		systems("a", "b", "c"),
		edges([2]string{"a", "b"}, [2]string{"b", "c"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := g.Reachable("a", "c")
	if err != nil || !ok {
		t.Errorf("expected c reachable from a, got %v %v", ok, err)
	}
	ok, err = g.Reachable("c", "a")
	if err != nil || ok {
		t.Errorf("expected a not reachable from c, got %v %v", ok, err)
	}
}

func TestRootsAndLeaves(t *testing.T) {
	g, err := Build(
		systems("a", "b", "c"),
		edges([2]string{"a", "b"}, [2]string{"b", "c"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	roots := g.Roots()
	if len(roots) != 1 || roots[0] != "c" {
		t.Errorf("expected roots [c], got %v", roots)
	}
	leaves := g.Leaves()
	if len(leaves) != 1 || leaves[0] != "a" {
		t.Errorf("expected leaves [a], got %v", leaves)
	}
}

func TestArtifactDeterministic(t *testing.T) {
	wm := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	g1, err := Build(systems("a", "b"), edges([2]string{"a", "b"}))
	if err != nil {
		t.Fatal(err)
	}
	g2, err := Build(systems("b", "a"), edges([2]string{"a", "b"}))
	if err != nil {
		t.Fatal(err)
	}

	enc1, err := NewArtifact(g1, wm).Encode()
	if err != nil {
		t.Fatal(err)
	}
	enc2, err := NewArtifact(g2, wm).Encode()
	if err != nil {
		t.Fatal(err)
	}
	if string(enc1) != string(enc2) {
		t.Error("artifact encoding must not depend on input ordering")
	}
}

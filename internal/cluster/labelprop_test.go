package cluster

import (
	"reflect"
	"testing"

	"github.com/mews-ugrads/mews-back-end/internal/graph"
)

func triangle(g *graph.Graph, a, b, c int64, w float64) {
	g.AddEdge(a, b, w)
	g.AddEdge(b, c, w)
	g.AddEdge(a, c, w)
}

func TestLabelPropagationTwoTriangles(t *testing.T) {
	g := graph.New()
	triangle(g, 1, 2, 3, 1)
	triangle(g, 4, 5, 6, 1)
	// Weak bridge between the triangles.
	g.AddEdge(3, 4, 0.1)

	p := LabelPropagation(g, 100)
	if !p.Converged {
		t.Fatalf("expected convergence, stopped after %d iterations", p.Iterations)
	}

	expected := [][]int64{{1, 2, 3}, {4, 5, 6}}
	if !reflect.DeepEqual(p.Communities, expected) {
		t.Fatalf("expected communities %v, got %v", expected, p.Communities)
	}
}

func TestLabelPropagationStar(t *testing.T) {
	g := graph.New()
	for leaf := int64(2); leaf <= 5; leaf++ {
		g.AddEdge(1, leaf, 1)
	}

	p := LabelPropagation(g, 100)
	if !p.Converged {
		t.Fatal("expected convergence on a star")
	}
	if len(p.Communities) != 1 {
		t.Fatalf("expected one community, got %v", p.Communities)
	}
	if !reflect.DeepEqual(p.Communities[0], []int64{1, 2, 3, 4, 5}) {
		t.Fatalf("expected all nodes in one community, got %v", p.Communities[0])
	}
}

func TestLabelPropagationWeightDominates(t *testing.T) {
	// Node 3 has two unit edges into {4,5} but one strong edge to 2; the
	// weighted tally must pull it toward the strong side.
	g := graph.New()
	g.AddEdge(1, 2, 5)
	g.AddEdge(2, 3, 5)
	g.AddEdge(3, 4, 1)
	g.AddEdge(3, 5, 1)
	g.AddEdge(4, 5, 2)

	p := LabelPropagation(g, 100)
	if !p.Converged {
		t.Fatal("expected convergence")
	}

	for _, community := range p.Communities {
		for _, id := range community {
			if id == 3 {
				if !reflect.DeepEqual(community, []int64{1, 2, 3}) {
					t.Fatalf("expected node 3 with its strong neighbors, got %v", community)
				}
			}
		}
	}
}

func TestLabelPropagationHubBetweenStrongTriangles(t *testing.T) {
	// A hub tied equally to two strong triangles cannot merge them: each
	// triangle's internal weight outvotes the single hub edge, so the hub
	// itself joins the lowest-labeled side and the triangles stand.
	g := graph.New()
	triangle(g, 1, 2, 3, 5)
	triangle(g, 4, 5, 6, 5)
	for other := int64(1); other <= 6; other++ {
		g.AddEdge(7, other, 1)
	}

	p := LabelPropagation(g, 100)
	if !p.Converged {
		t.Fatalf("expected convergence, stopped after %d iterations", p.Iterations)
	}

	expected := [][]int64{{1, 2, 3, 7}, {4, 5, 6}}
	if !reflect.DeepEqual(p.Communities, expected) {
		t.Fatalf("expected communities %v, got %v", expected, p.Communities)
	}
}

func TestLabelPropagationTotality(t *testing.T) {
	g := graph.New()
	triangle(g, 1, 2, 3, 1)
	g.AddEdge(10, 11, 1)
	g.AddNode(20)

	p := LabelPropagation(g, 100)

	assigned := make(map[int64]int)
	for _, community := range p.Communities {
		for _, id := range community {
			assigned[id]++
		}
	}
	for _, id := range g.Nodes() {
		if assigned[id] != 1 {
			t.Fatalf("node %d assigned %d times, want exactly once", id, assigned[id])
		}
	}
	// Isolated node forms a singleton community.
	found := false
	for _, community := range p.Communities {
		if len(community) == 1 && community[0] == 20 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected singleton community for isolated node, got %v", p.Communities)
	}
}

func TestLabelPropagationDeterministic(t *testing.T) {
	build := func() *graph.Graph {
		g := graph.New()
		triangle(g, 1, 2, 3, 1)
		triangle(g, 4, 5, 6, 1)
		g.AddEdge(3, 4, 0.5)
		g.AddEdge(6, 7, 2)
		return g
	}

	first := LabelPropagation(build(), 100)
	for i := 0; i < 10; i++ {
		again := LabelPropagation(build(), 100)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged: %v vs %v", i, first, again)
		}
	}
}

func TestLabelPropagationIterationCap(t *testing.T) {
	g := graph.New()
	triangle(g, 1, 2, 3, 1)
	triangle(g, 4, 5, 6, 1)
	g.AddEdge(3, 4, 0.1)

	p := LabelPropagation(g, 1)
	if p.Converged {
		t.Fatal("one pass cannot converge on this graph")
	}
	if p.Iterations != 1 {
		t.Fatalf("expected 1 iteration, got %d", p.Iterations)
	}

	// The partition at cap is still total.
	total := 0
	for _, community := range p.Communities {
		total += len(community)
	}
	if total != g.NodeCount() {
		t.Fatalf("partition covers %d of %d nodes", total, g.NodeCount())
	}
}

func TestLabelPropagationEmptyGraph(t *testing.T) {
	p := LabelPropagation(graph.New(), 100)
	if !p.Converged {
		t.Fatal("empty graph should converge trivially")
	}
	if len(p.Communities) != 0 {
		t.Fatalf("expected no communities, got %v", p.Communities)
	}
}

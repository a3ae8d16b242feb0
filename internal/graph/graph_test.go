package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mews-ugrads/mews-back-end/pkg/logging"
	"github.com/mews-ugrads/mews-back-end/pkg/models"
)

func TestGraphAddEdge(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, 0.5)
	g.AddEdge(2, 3, 1.5)

	if g.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("expected 2 edges, got %d", g.EdgeCount())
	}

	// Undirected: both directions resolve.
	if w, ok := g.Weight(2, 1); !ok || w != 0.5 {
		t.Fatalf("expected weight 0.5 from either endpoint, got %v (%v)", w, ok)
	}
}

func TestGraphAddEdgeOverwrites(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, 0.5)
	g.AddEdge(2, 1, 2.0)

	if g.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge after overwrite, got %d", g.EdgeCount())
	}
	if w, _ := g.Weight(1, 2); w != 2.0 {
		t.Fatalf("expected overwritten weight 2.0, got %v", w)
	}
}

func TestGraphIgnoresSelfLoops(t *testing.T) {
	g := New()
	g.AddEdge(1, 1, 1.0)

	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Fatalf("self-loop should be ignored, got %d nodes %d edges", g.NodeCount(), g.EdgeCount())
	}
}

func TestGraphNodesSorted(t *testing.T) {
	g := New()
	g.AddEdge(9, 3, 1)
	g.AddEdge(3, 7, 1)
	g.AddNode(1)

	nodes := g.Nodes()
	expected := []int64{1, 3, 7, 9}
	if len(nodes) != len(expected) {
		t.Fatalf("expected %d nodes, got %d", len(expected), len(nodes))
	}
	for i, id := range expected {
		if nodes[i] != id {
			t.Fatalf("expected node %d at index %d, got %d", id, i, nodes[i])
		}
	}
}

func TestGraphEdgesOrdered(t *testing.T) {
	g := New()
	g.AddEdge(5, 2, 1)
	g.AddEdge(2, 1, 1)
	g.AddEdge(5, 1, 1)

	edges := g.Edges()
	expected := []Edge{{A: 1, B: 2, Weight: 1}, {A: 1, B: 5, Weight: 1}, {A: 2, B: 5, Weight: 1}}
	if len(edges) != len(expected) {
		t.Fatalf("expected %d edges, got %d", len(expected), len(edges))
	}
	for i, e := range expected {
		if edges[i] != e {
			t.Fatalf("expected edge %+v at index %d, got %+v", e, i, edges[i])
		}
	}
}

func TestGraphSubgraph(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, 1)
	g.AddEdge(2, 3, 1)
	g.AddEdge(3, 4, 1)

	sub := g.Subgraph([]int64{1, 2, 3})
	if sub.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, got %d", sub.NodeCount())
	}
	if sub.EdgeCount() != 2 {
		t.Fatalf("expected 2 edges, got %d", sub.EdgeCount())
	}
	if sub.HasNode(4) {
		t.Fatal("node 4 should not be in the subgraph")
	}
	if _, ok := sub.Weight(3, 4); ok {
		t.Fatal("edge leaving the member set should be dropped")
	}
}

func TestGraphSubgraphIsolatedMember(t *testing.T) {
	g := New()
	g.AddEdge(1, 2, 1)

	sub := g.Subgraph([]int64{1, 99})
	if !sub.HasNode(99) {
		t.Fatal("member absent from the graph should become an isolated node")
	}
	if sub.EdgeCount() != 0 {
		t.Fatalf("expected no edges, got %d", sub.EdgeCount())
	}
}

type stubEdgeSource struct {
	edges []models.RelatednessEdge
	err   error
}

func (s *stubEdgeSource) EdgesInWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]models.RelatednessEdge, error) {
	return s.edges, s.err
}

func TestBuilderBuild(t *testing.T) {
	src := &stubEdgeSource{edges: []models.RelatednessEdge{
		{Post1ID: 1, Post2ID: 2, TotalWt: 1.5},
		{Post1ID: 2, Post2ID: 3, TotalWt: 0.5},
		{Post1ID: 3, Post2ID: 4, TotalWt: 0},
	}}

	b := NewBuilder(src, logging.NewLogger())
	g, err := b.Build(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes, zero-weight edge excluded, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("expected 2 edges, got %d", g.EdgeCount())
	}
	if g.HasNode(4) {
		t.Fatal("endpoint of a zero-weight edge should not appear as a node")
	}
}

func TestBuilderBuildSourceError(t *testing.T) {
	src := &stubEdgeSource{err: errors.New("connection refused")}

	b := NewBuilder(src, logging.NewLogger())
	if _, err := b.Build(context.Background(), time.Now().Add(-time.Hour), time.Now()); err == nil {
		t.Fatal("expected error from edge source")
	}
}

func TestBuilderBuildEmptyWindow(t *testing.T) {
	b := NewBuilder(&stubEdgeSource{}, logging.NewLogger())
	g, err := b.Build(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Fatalf("expected empty graph, got %d nodes %d edges", g.NodeCount(), g.EdgeCount())
	}
}

package graph

import (
	"sort"
)

// Graph is an undirected, weighted graph over post ids with O(1) neighbor
// lookup. Self-loops are rejected and at most one edge exists per pair;
// adding an existing edge overwrites its weight. Graphs are built once per
// batch run and are not safe for concurrent mutation.
type Graph struct {
	adj       map[int64]map[int64]float64
	edgeCount int
}

// Edge is an undirected edge with A < B.
type Edge struct {
	A      int64
	B      int64
	Weight float64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[int64]map[int64]float64)}
}

// AddNode ensures id exists as a node.
func (g *Graph) AddNode(id int64) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(map[int64]float64)
	}
}

// AddEdge adds an undirected edge between a and b. Self-loops are ignored.
func (g *Graph) AddEdge(a, b int64, weight float64) {
	if a == b {
		return
	}
	g.AddNode(a)
	g.AddNode(b)
	if _, ok := g.adj[a][b]; !ok {
		g.edgeCount++
	}
	g.adj[a][b] = weight
	g.adj[b][a] = weight
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.adj[id]
	return ok
}

// Weight returns the weight of edge {a,b}, or false if absent.
func (g *Graph) Weight(a, b int64) (float64, bool) {
	w, ok := g.adj[a][b]
	return w, ok
}

// Neighbors returns the adjacency map of id. The returned map is the
// graph's own storage; callers must not mutate it.
func (g *Graph) Neighbors(id int64) map[int64]float64 {
	return g.adj[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.adj)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// Nodes returns all node ids in ascending order. Deterministic iteration
// over this slice is the basis for reproducible clustering.
func (g *Graph) Nodes() []int64 {
	nodes := make([]int64, 0, len(g.adj))
	for id := range g.adj {
		nodes = append(nodes, id)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

// Edges returns all undirected edges with A < B, ordered by (A, B).
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.edgeCount)
	for a, neighbors := range g.adj {
		for b, w := range neighbors {
			if a < b {
				edges = append(edges, Edge{A: a, B: b, Weight: w})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// Subgraph returns the subgraph induced by members: the member nodes and
// every edge whose both endpoints are members. Edges leaving the member
// set are dropped. Member ids absent from the graph become isolated nodes.
func (g *Graph) Subgraph(members []int64) *Graph {
	in := make(map[int64]bool, len(members))
	for _, id := range members {
		in[id] = true
	}

	sub := New()
	for _, id := range members {
		sub.AddNode(id)
		for neighbor, w := range g.adj[id] {
			if in[neighbor] {
				sub.AddEdge(id, neighbor, w)
			}
		}
	}
	return sub
}

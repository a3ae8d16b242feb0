package cluster

import (
	"container/heap"

	"github.com/mews-ugrads/mews-back-end/internal/graph"
)

// Betweenness computes betweenness centrality for every member of a
// community, on the subgraph induced by the community's own members.
// Edges leaving the community are ignored.
//
// Relatedness weight is a similarity, while shortest-path algorithms want
// a distance, so edge weight w is inverted to distance 1/w before the
// Dijkstra stage: strongly related posts are "close". Scores are
// normalized by the standard undirected pair count (n-1)(n-2)/2.
// Communities with fewer than three members have no intermediate nodes
// and score zero everywhere.
func Betweenness(g *graph.Graph, members []int64) map[int64]float64 {
	sub := g.Subgraph(members)
	nodes := sub.Nodes()
	n := len(nodes)

	bc := make(map[int64]float64, n)
	for _, id := range nodes {
		bc[id] = 0
	}
	if n < 3 {
		return bc
	}

	// Brandes' algorithm with a Dijkstra inner stage.
	for _, source := range nodes {
		dist := make(map[int64]float64, n)
		sigma := make(map[int64]float64, n)
		preds := make(map[int64][]int64, n)
		settled := make(map[int64]bool, n)
		order := make([]int64, 0, n)

		sigma[source] = 1
		dist[source] = 0

		pq := &distQueue{{id: source, dist: 0}}
		for pq.Len() > 0 {
			entry := heap.Pop(pq).(distEntry)
			if settled[entry.id] {
				continue
			}
			settled[entry.id] = true
			order = append(order, entry.id)

			for neighbor, weight := range sub.Neighbors(entry.id) {
				if settled[neighbor] {
					continue
				}
				alt := dist[entry.id] + 1/weight
				current, seen := dist[neighbor]
				switch {
				case !seen || alt < current:
					dist[neighbor] = alt
					sigma[neighbor] = sigma[entry.id]
					preds[neighbor] = []int64{entry.id}
					heap.Push(pq, distEntry{id: neighbor, dist: alt})
				case alt == current:
					sigma[neighbor] += sigma[entry.id]
					preds[neighbor] = append(preds[neighbor], entry.id)
				}
			}
		}

		// Accumulate dependencies in reverse settle order.
		delta := make(map[int64]float64, n)
		for i := len(order) - 1; i > 0; i-- {
			w := order[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			bc[w] += delta[w]
		}
	}

	// Each pair was counted from both endpoints; halve, then normalize by
	// the (n-1)(n-2)/2 pair count.
	scale := 1 / float64((n-1)*(n-2))
	for id := range bc {
		bc[id] *= scale
	}
	return bc
}

type distEntry struct {
	id   int64
	dist float64
}

// distQueue is a min-heap over (distance, id); the id tie-break keeps the
// settle order deterministic.
type distQueue []distEntry

func (q distQueue) Len() int { return len(q) }

func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].id < q[j].id
}

func (q distQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *distQueue) Push(x interface{}) { *q = append(*q, x.(distEntry)) }

func (q *distQueue) Pop() interface{} {
	old := *q
	entry := old[len(old)-1]
	*q = old[:len(old)-1]
	return entry
}

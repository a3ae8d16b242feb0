package cluster

import (
	"sort"

	"github.com/mews-ugrads/mews-back-end/internal/graph"
)

// Partition is the result of community detection: disjoint communities
// covering every graph node exactly once, each sorted by post id.
type Partition struct {
	Communities [][]int64
	Iterations  int
	Converged   bool
}

// LabelPropagation partitions g into communities via semi-synchronous
// weighted label propagation.
//
// The algorithm is deliberately deterministic so identical input yields an
// identical partition: every node starts labeled with its own id; each
// pass visits nodes in ascending id order and a node adopts the label
// whose neighbor edge weights sum highest, with ties broken toward the
// lowest label id. Updates made earlier in a pass are visible to later
// nodes in the same pass. Propagation stops after a pass with no label
// change, or after maxIterations passes; hitting the cap is not an error
// and the partition at cap is returned with Converged set to false.
func LabelPropagation(g *graph.Graph, maxIterations int) Partition {
	nodes := g.Nodes()
	labels := make(map[int64]int64, len(nodes))
	for _, id := range nodes {
		labels[id] = id
	}

	iterations := 0
	converged := false
	for iterations < maxIterations {
		iterations++
		changed := 0

		for _, id := range nodes {
			neighbors := g.Neighbors(id)
			if len(neighbors) == 0 {
				continue
			}

			tally := make(map[int64]float64, len(neighbors))
			for neighbor, weight := range neighbors {
				tally[labels[neighbor]] += weight
			}

			candidates := make([]int64, 0, len(tally))
			for label := range tally {
				candidates = append(candidates, label)
			}
			sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

			// First candidate in ascending label order wins ties.
			best := candidates[0]
			bestWeight := tally[best]
			for _, label := range candidates[1:] {
				if tally[label] > bestWeight {
					best = label
					bestWeight = tally[label]
				}
			}

			if labels[id] != best {
				labels[id] = best
				changed++
			}
		}

		if changed == 0 {
			converged = true
			break
		}
	}

	grouped := make(map[int64][]int64)
	for _, id := range nodes {
		label := labels[id]
		grouped[label] = append(grouped[label], id)
	}

	communities := make([][]int64, 0, len(grouped))
	for _, members := range grouped {
		// Members are already ascending: nodes were visited in order.
		communities = append(communities, members)
	}
	sort.Slice(communities, func(i, j int) bool { return communities[i][0] < communities[j][0] })

	return Partition{
		Communities: communities,
		Iterations:  iterations,
		Converged:   converged,
	}
}

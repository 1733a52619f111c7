package store

import (
	"sort"

	"github.com/mosaicnetworks/ghs/src/graph"
	"github.com/mosaicnetworks/ghs/src/protocol"
)

// BranchEdges collects the spanning tree from the edge states of every node.
// An edge is in the tree as soon as one endpoint marked it Branch. The result
// is sorted by weight.
func BranchEdges(results []NodeResult) []graph.Edge {
	seen := make(map[[2]int]bool)
	tree := []graph.Edge{}

	for _, r := range results {
		for _, e := range r.Edges {
			if e.State != protocol.Branch.String() {
				continue
			}
			edge := graph.Edge{From: r.ID, To: e.Neighbor, Weight: e.Weight}
			if edge.From > edge.To {
				edge.From, edge.To = edge.To, edge.From
			}
			if seen[edge.Key()] {
				continue
			}
			seen[edge.Key()] = true
			tree = append(tree, edge)
		}
	}

	sort.Slice(tree, func(i, j int) bool { return tree[i].Weight < tree[j].Weight })

	return tree
}

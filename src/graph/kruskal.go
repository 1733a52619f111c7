package graph

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrDisconnected is returned by Kruskal when no spanning tree exists.
var ErrDisconnected = errors.New("graph is disconnected")

// Kruskal computes the minimum spanning tree of t with a union-find over the
// edges sorted by weight. It returns the tree edges in the order they were
// selected and their total weight. Ties are broken by edge order, which only
// matters for graphs that do not pass Validate.
func Kruskal(t *Topology) ([]Edge, int, error) {
	n := t.N()
	if n == 0 {
		return nil, 0, ErrDisconnected
	}

	edges := t.Edges()
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Weight < edges[j].Weight
	})

	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	find := func(u int) int {
		for parent[u] != u {
			parent[u] = parent[parent[u]]
			u = parent[u]
		}
		return u
	}

	union := func(u, v int) bool {
		ru, rv := find(u), find(v)
		if ru == rv {
			return false
		}
		switch {
		case rank[ru] < rank[rv]:
			parent[ru] = rv
		case rank[ru] > rank[rv]:
			parent[rv] = ru
		default:
			parent[rv] = ru
			rank[ru]++
		}
		return true
	}

	mst := make([]Edge, 0, n-1)
	total := 0
	for _, e := range edges {
		if len(mst) == n-1 {
			break
		}
		if union(e.From, e.To) {
			mst = append(mst, e)
			total += e.Weight
		}
	}

	if len(mst) != n-1 {
		return nil, 0, ErrDisconnected
	}

	return mst, total, nil
}

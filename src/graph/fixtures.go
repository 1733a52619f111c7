package graph

import (
	"math/rand"
)

func mustEdges(n int, edges []Edge) *Topology {
	t, err := FromEdges(n, edges)
	if err != nil {
		panic(err)
	}
	return t
}

// Triangle is 0-1=3, 1-2=1, 0-2=2. Its MST is {1-2, 0-2}.
func Triangle() *Topology {
	return mustEdges(3, []Edge{
		{0, 1, 3},
		{1, 2, 1},
		{0, 2, 2},
	})
}

// TenNodes is the 10-node, 17-edge sample network. Its MST weighs 48.
func TenNodes() *Topology {
	return mustEdges(10, []Edge{
		{0, 1, 3}, {0, 5, 2},
		{1, 2, 17}, {1, 3, 16},
		{2, 3, 8}, {2, 8, 18},
		{3, 4, 11}, {3, 8, 4},
		{4, 5, 1}, {4, 6, 6}, {4, 7, 5}, {4, 8, 10},
		{5, 6, 7},
		{6, 7, 15},
		{7, 8, 12}, {7, 9, 13},
		{8, 9, 9},
	})
}

// Path is 0-1-...-(n-1) with weights 1..n-1.
func Path(n int) *Topology {
	edges := []Edge{}
	for i := 1; i < n; i++ {
		edges = append(edges, Edge{i - 1, i, i})
	}
	return mustEdges(n, edges)
}

// Ring is Path(n) closed by the edge (n-1)-0 of weight n.
func Ring(n int) *Topology {
	edges := []Edge{}
	for i := 1; i < n; i++ {
		edges = append(edges, Edge{i - 1, i, i})
	}
	if n > 2 {
		edges = append(edges, Edge{n - 1, 0, n})
	}
	return mustEdges(n, edges)
}

// Star connects node 0 to every other node.
func Star(n int) *Topology {
	edges := []Edge{}
	for i := 1; i < n; i++ {
		edges = append(edges, Edge{0, i, i})
	}
	return mustEdges(n, edges)
}

// Complete is the complete graph on n nodes with distinct weights.
func Complete(n int) *Topology {
	edges := []Edge{}
	w := 1
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			edges = append(edges, Edge{i, j, w})
			w++
		}
	}
	return mustEdges(n, edges)
}

// Random builds a connected graph on n nodes: a random spanning tree plus up
// to extra random edges. Weights are a random permutation so they are
// pairwise distinct.
func Random(n, extra int, rnd *rand.Rand) *Topology {
	pairs := [][2]int{}
	seen := map[[2]int]bool{}
	add := func(a, b int) {
		k := Edge{a, b, 0}.Key()
		if a == b || seen[k] {
			return
		}
		seen[k] = true
		pairs = append(pairs, k)
	}

	perm := rnd.Perm(n)
	for i := 1; i < n; i++ {
		add(perm[i], perm[rnd.Intn(i)])
	}
	if n > 1 {
		for i := 0; i < extra; i++ {
			add(rnd.Intn(n), rnd.Intn(n))
		}
	}

	weights := rnd.Perm(len(pairs))
	edges := make([]Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = Edge{p[0], p[1], weights[i] + 1}
	}

	return mustEdges(n, edges)
}

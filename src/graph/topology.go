package graph

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Edge is an undirected weighted edge. Edges returned by a Topology always
// have From < To.
type Edge struct {
	From   int `codec:"from" json:"from"`
	To     int `codec:"to" json:"to"`
	Weight int `codec:"weight" json:"weight"`
}

// String ...
func (e Edge) String() string {
	return fmt.Sprintf("%d-%d=%d", e.From, e.To, e.Weight)
}

// Key identifies the edge regardless of its direction.
func (e Edge) Key() [2]int {
	if e.From > e.To {
		return [2]int{e.To, e.From}
	}
	return [2]int{e.From, e.To}
}

// Topology is a weighted undirected graph over nodes 0..N-1, stored as an
// adjacency matrix where 0 means no edge.
type Topology struct {
	weights [][]int
}

// NewTopology copies a square weight matrix.
func NewTopology(weights [][]int) (*Topology, error) {
	n := len(weights)

	m := make([][]int, n)
	for i, row := range weights {
		if len(row) != n {
			return nil, errors.Errorf("row %d has %d columns, expected %d", i, len(row), n)
		}
		m[i] = make([]int, n)
		copy(m[i], row)
	}

	return &Topology{weights: m}, nil
}

// FromEdges builds a topology with n nodes from a list of edges.
func FromEdges(n int, edges []Edge) (*Topology, error) {
	m := make([][]int, n)
	for i := range m {
		m[i] = make([]int, n)
	}

	for _, e := range edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return nil, errors.Errorf("edge %s out of range [0, %d)", e, n)
		}
		if m[e.From][e.To] != 0 {
			return nil, errors.Errorf("duplicate edge %s", e)
		}
		m[e.From][e.To] = e.Weight
		m[e.To][e.From] = e.Weight
	}

	return &Topology{weights: m}, nil
}

// N is the number of nodes.
func (t *Topology) N() int {
	return len(t.weights)
}

// Weights returns a copy of the row of node id: index is the neighbor id,
// value is the edge weight.
func (t *Topology) Weights(id int) []int {
	res := make([]int, len(t.weights[id]))
	copy(res, t.weights[id])
	return res
}

// Weight returns the weight of edge a-b, 0 if there is none.
func (t *Topology) Weight(a, b int) int {
	return t.weights[a][b]
}

// Edges returns every edge once, ordered by From then To.
func (t *Topology) Edges() []Edge {
	res := []Edge{}
	for i, row := range t.weights {
		for j := i + 1; j < len(row); j++ {
			if row[j] != 0 {
				res = append(res, Edge{From: i, To: j, Weight: row[j]})
			}
		}
	}
	return res
}

// Degree ...
func (t *Topology) Degree(id int) int {
	d := 0
	for _, w := range t.weights[id] {
		if w != 0 {
			d++
		}
	}
	return d
}

// Validate checks the assumptions of the algorithm: the matrix is symmetric
// with a zero diagonal, weights are positive and pairwise distinct, and the
// graph is connected.
func (t *Topology) Validate() error {
	n := t.N()
	if n == 0 {
		return errors.New("empty topology")
	}

	for i := 0; i < n; i++ {
		if t.weights[i][i] != 0 {
			return errors.Errorf("self-loop on node %d", i)
		}
		for j := 0; j < n; j++ {
			if t.weights[i][j] != t.weights[j][i] {
				return errors.Errorf("asymmetric weights between %d and %d", i, j)
			}
			if t.weights[i][j] < 0 {
				return errors.Errorf("negative weight between %d and %d", i, j)
			}
		}
	}

	edges := t.Edges()
	sort.Slice(edges, func(i, j int) bool { return edges[i].Weight < edges[j].Weight })
	for i := 1; i < len(edges); i++ {
		if edges[i].Weight == edges[i-1].Weight {
			return errors.Errorf("edges %s and %s share the same weight", edges[i-1], edges[i])
		}
	}

	if c := t.components(); c != 1 {
		return errors.Errorf("graph is not connected: %d components", c)
	}

	return nil
}

func (t *Topology) components() int {
	seen := make([]bool, t.N())
	count := 0
	for s := range seen {
		if seen[s] {
			continue
		}
		count++
		stack := []int{s}
		seen[s] = true
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for v, w := range t.weights[u] {
				if w != 0 && !seen[v] {
					seen[v] = true
					stack = append(stack, v)
				}
			}
		}
	}
	return count
}

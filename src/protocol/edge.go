package protocol

import (
	"fmt"
	"sort"
)

// Edge is one entry of a node's adjacency list.
type Edge struct {
	Neighbor int
	Weight   int
	State    EdgeState
}

// String ...
func (e Edge) String() string {
	return fmt.Sprintf("(N: %d, W: %d, T: %s)", e.Neighbor, e.Weight, e.State)
}

// EdgeTable is the adjacency list of a node, ordered by ascending neighbor id.
type EdgeTable struct {
	owner int
	edges []*Edge
	index map[int]*Edge
}

// NewEdgeTable builds the table of node owner from its weight vector: index is
// the neighbor id, value is the edge weight, and 0 means no edge.
func NewEdgeTable(owner int, weights []int) (*EdgeTable, error) {
	t := &EdgeTable{
		owner: owner,
		index: make(map[int]*Edge),
	}

	for neighbor, w := range weights {
		if w == 0 {
			continue
		}
		if w < 0 {
			return nil, NewError(InvalidTopology, owner,
				fmt.Sprintf("negative weight %d towards %d", w, neighbor))
		}
		if neighbor == owner {
			return nil, NewError(InvalidTopology, owner, "self-loop")
		}
		e := &Edge{Neighbor: neighbor, Weight: w, State: Basic}
		t.edges = append(t.edges, e)
		t.index[neighbor] = e
	}

	return t, nil
}

// Len ...
func (t *EdgeTable) Len() int {
	return len(t.edges)
}

// Edges returns a copy of all entries, by ascending neighbor id.
func (t *EdgeTable) Edges() []Edge {
	res := make([]Edge, len(t.edges))
	for i, e := range t.edges {
		res[i] = *e
	}
	return res
}

// Lookup returns the entry of a neighbor, or an EdgeNotFound error.
func (t *EdgeTable) Lookup(neighbor int) (*Edge, error) {
	e, ok := t.index[neighbor]
	if !ok {
		return nil, NewError(EdgeNotFound, t.owner, fmt.Sprintf("no edge to %d", neighbor))
	}
	return e, nil
}

// MinBasic returns the Basic edge with the lowest weight.
func (t *EdgeTable) MinBasic() (*Edge, bool) {
	var m *Edge
	for _, e := range t.edges {
		if e.State != Basic {
			continue
		}
		if m == nil || e.Weight < m.Weight {
			m = e
		}
	}
	return m, m != nil
}

// CountBasic returns the number of Basic edges.
func (t *EdgeTable) CountBasic() int {
	c := 0
	for _, e := range t.edges {
		if e.State == Basic {
			c++
		}
	}
	return c
}

// Branches returns the neighbor ids of all Branch edges.
func (t *EdgeTable) Branches() []int {
	res := []int{}
	for _, e := range t.edges {
		if e.State == Branch {
			res = append(res, e.Neighbor)
		}
	}
	return res
}

// Validate checks that the weights of the table are pairwise distinct.
func (t *EdgeTable) Validate() error {
	ws := make([]int, len(t.edges))
	for i, e := range t.edges {
		ws[i] = e.Weight
	}
	sort.Ints(ws)
	for i := 1; i < len(ws); i++ {
		if ws[i] == ws[i-1] {
			return NewError(InvalidTopology, t.owner, fmt.Sprintf("duplicate weight %d", ws[i]))
		}
	}
	return nil
}

// mark moves an edge to a more classified state. Only Basic edges may change;
// any other transition is reported.
func (t *EdgeTable) mark(e *Edge, s EdgeState) error {
	switch {
	case e.State == s:
		return nil
	case e.State == Basic:
		e.State = s
		return nil
	default:
		return NewError(ProtocolViolation, t.owner,
			fmt.Sprintf("edge to %d cannot go from %s to %s", e.Neighbor, e.State, s))
	}
}

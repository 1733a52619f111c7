package ghs

import (
	"time"

	"github.com/mosaicnetworks/ghs/src/graph"
	"github.com/mosaicnetworks/ghs/src/node"
	"github.com/mosaicnetworks/ghs/src/protocol"
	"github.com/mosaicnetworks/ghs/src/store"
	"github.com/pkg/errors"
)

// Result is the outcome of a simulation.
type Result struct {
	Nodes    []store.NodeResult `json:"nodes"`
	Tree     []graph.Edge       `json:"tree"`
	Weight   int                `json:"weight"`
	Leader   int                `json:"leader"`
	Messages int                `json:"messages"`
	Duration time.Duration      `json:"duration"`
}

func newResult(nodes []*node.Node, duration time.Duration) *Result {
	res := &Result{
		Nodes:    make([]store.NodeResult, len(nodes)),
		Leader:   protocol.NoLeader,
		Duration: duration,
	}

	for i, n := range nodes {
		res.Nodes[i] = nodeResult(n)
		res.Messages += res.Nodes[i].Sent
	}

	if len(res.Nodes) > 0 {
		res.Leader = res.Nodes[0].Leader
		for _, r := range res.Nodes {
			if r.Leader != res.Leader {
				res.Leader = protocol.NoLeader
				break
			}
		}
	}

	res.Tree = store.BranchEdges(res.Nodes)
	for _, e := range res.Tree {
		res.Weight += e.Weight
	}

	return res
}

func nodeResult(n *node.Node) store.NodeResult {
	info := n.Info()
	stats := n.GetStats()

	r := store.NodeResult{
		ID:         info.ID,
		Halted:     info.Halted,
		Leader:     info.Leader,
		Level:      info.Level,
		FragmentID: info.FragmentID,
		Levels:     n.LevelHistory(),
		Sent:       stats.Sent,
		Received:   stats.Received,
		Deferred:   stats.Deferred,
	}

	for _, e := range n.Edges() {
		r.Edges = append(r.Edges, store.EdgeResult{
			Neighbor: e.Neighbor,
			Weight:   e.Weight,
			State:    e.State.String(),
		})
	}

	if err := n.Err(); err != nil {
		r.Error = err.Error()
	}

	return r
}

// Verify checks the result against the topology it was computed on: every
// node halted without error and agrees on a single leader; both endpoints of
// every edge agree on its state; no edge is left Basic; the Branch edges form
// the minimum spanning tree; and no node ever went down a level.
func (r *Result) Verify(t *graph.Topology) error {
	if len(r.Nodes) != t.N() {
		return errors.Errorf("%d results for %d nodes", len(r.Nodes), t.N())
	}

	for _, n := range r.Nodes {
		if n.Error != "" {
			return errors.Errorf("node %d failed: %s", n.ID, n.Error)
		}
		if !n.Halted {
			return errors.Errorf("node %d did not halt", n.ID)
		}
	}

	if r.Leader == protocol.NoLeader {
		return errors.New("nodes do not agree on a leader")
	}

	if err := r.verifyEdges(); err != nil {
		return err
	}

	if len(r.Tree) != t.N()-1 {
		return errors.Errorf("%d Branch edges, expected %d", len(r.Tree), t.N()-1)
	}

	mst, weight, err := graph.Kruskal(t)
	if err != nil {
		return err
	}
	if weight != r.Weight {
		return errors.Errorf("tree weighs %d, minimum is %d", r.Weight, weight)
	}
	ref := make(map[[2]int]bool, len(mst))
	for _, e := range mst {
		ref[e.Key()] = true
	}
	for _, e := range r.Tree {
		if !ref[e.Key()] {
			return errors.Errorf("edge %s is not in the minimum spanning tree", e)
		}
	}

	for _, n := range r.Nodes {
		for i := 1; i < len(n.Levels); i++ {
			if n.Levels[i] < n.Levels[i-1] {
				return errors.Errorf("node %d went from level %d to %d", n.ID, n.Levels[i-1], n.Levels[i])
			}
		}
	}

	return nil
}

func (r *Result) verifyEdges() error {
	states := make(map[[2]int]string)
	for _, n := range r.Nodes {
		for _, e := range n.Edges {
			if e.State == protocol.Basic.String() {
				return errors.Errorf("edge %d-%d is still Basic at %d", n.ID, e.Neighbor, n.ID)
			}
			states[[2]int{n.ID, e.Neighbor}] = e.State
		}
	}

	for k, s := range states {
		other, ok := states[[2]int{k[1], k[0]}]
		if !ok {
			return errors.Errorf("edge %d-%d is only known to %d", k[0], k[1], k[0])
		}
		if other != s {
			return errors.Errorf("edge %d-%d is %s at %d but %s at %d", k[0], k[1], s, k[0], other, k[1])
		}
	}

	return nil
}

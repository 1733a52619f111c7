package protocol

import "math"

// Infinity is the best-weight sentinel meaning "no outgoing candidate".
const Infinity = math.MaxInt32

// NoEdge marks an unset edge reference (best-edge, test-edge, in-branch).
const NoEdge = -1

// NoLeader is the leader value until the node terminates.
const NoLeader = -1

// NodeState is the phase of a node in the current search round.
type NodeState uint8

const (
	// Sleeping is the initial state, before wakeup.
	Sleeping NodeState = iota
	// Find means the node is searching for its minimum outgoing edge.
	Find
	// Found means the node has reported its candidate.
	Found
)

// String ...
func (s NodeState) String() string {
	switch s {
	case Sleeping:
		return "Sleeping"
	case Find:
		return "Find"
	case Found:
		return "Found"
	default:
		return "Unknown"
	}
}

// EdgeState is the classification of an adjacent edge.
type EdgeState uint8

const (
	// Basic edges are still undetermined.
	Basic EdgeState = iota
	// Branch edges belong to the spanning tree.
	Branch
	// Rejected edges can never be part of the spanning tree.
	Rejected
)

// String ...
func (s EdgeState) String() string {
	switch s {
	case Basic:
		return "Basic"
	case Branch:
		return "Branch"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Node is the protocol state of one vertex. Only the owning Engine mutates
// it; Engine.Node returns copies.
type Node struct {
	ID         int
	Level      int
	FragmentID int
	State      NodeState
	FindCount  int
	BestEdge   int
	BestWeight int
	TestEdge   int
	InBranch   int
	Halted     bool
	Leader     int
}

func newNode(id int) Node {
	return Node{
		ID:         id,
		State:      Sleeping,
		BestEdge:   NoEdge,
		BestWeight: Infinity,
		TestEdge:   NoEdge,
		InBranch:   NoEdge,
		Leader:     NoLeader,
	}
}

package store

import (
	"bytes"

	"github.com/mosaicnetworks/ghs/src/trace"
	"github.com/ugorji/go/codec"
)

// EdgeResult is the final state of one adjacent edge.
type EdgeResult struct {
	Neighbor int    `json:"neighbor"`
	Weight   int    `json:"weight"`
	State    string `json:"state"`
}

// NodeResult is what a node ended a run with.
type NodeResult struct {
	ID         int          `json:"id"`
	Halted     bool         `json:"halted"`
	Leader     int          `json:"leader"`
	Level      int          `json:"level"`
	FragmentID int          `json:"fragment_id"`
	Levels     []int        `json:"levels"`
	Edges      []EdgeResult `json:"edges"`
	Sent       int          `json:"sent"`
	Received   int          `json:"received"`
	Deferred   int          `json:"deferred"`
	Error      string       `json:"error,omitempty"`
}

// Marshal ...
func (r *NodeResult) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(r); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (r *NodeResult) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(r)
}

// Store keeps the outcome of a run: one NodeResult per node and the trace
// events in emission order. It implements trace.Recorder.
type Store interface {
	SetResult(NodeResult) error
	GetResult(int) (NodeResult, error)
	Results() ([]NodeResult, error)
	AppendTrace(trace.Event) error
	Trace() ([]trace.Event, error)
	StorePath() string
	Close() error
}

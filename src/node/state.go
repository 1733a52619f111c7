package node

import (
	"sync/atomic"
)

// State captures the run state of a node actor: Created, Running, Flushing or
// Halted. It is distinct from the protocol state (Sleeping, Find, Found).
type State uint32

const (
	// Created is the initial state, before Run.
	Created State = iota
	// Running means the receive loop is active.
	Running
	// Flushing means the protocol halted and outstanding sends are being
	// waited upon.
	Flushing
	// Halted is terminal.
	Halted
)

// String ...
func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case Flushing:
		return "Flushing"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}

type state struct {
	state State
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

package net

import (
	"github.com/mosaicnetworks/ghs/src/protocol"
)

// Transport provides an interface for network transports to allow a node to
// exchange protocol messages with its neighbors.
type Transport interface {

	// LocalID is the id of the node that owns the transport
	LocalID() int

	// Send delivers msg to target asynchronously. It never blocks; the
	// returned future resolves once the message is in the target's mailbox.
	// Messages from one transport to one target arrive in the order they were
	// sent.
	Send(target int, msg protocol.Message) (*DeliveryFuture, error)

	// Poll reports whether an incoming message is available
	Poll() bool

	// Consume removes the next incoming message, if any
	Consume() (protocol.Message, bool)

	// Requeue puts a consumed message back at the end of the inbox
	Requeue(msg protocol.Message)

	// Pending is the number of messages waiting in the inbox
	Pending() int

	// Ready fires when a new message arrives
	Ready() <-chan struct{}

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}

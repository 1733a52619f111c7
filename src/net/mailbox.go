package net

import (
	"sync"

	"github.com/mosaicnetworks/ghs/src/protocol"
)

// Mailbox is the inbox of a node: a FIFO of messages with a non-blocking
// poll, and a Ready channel to wait for new messages without spinning.
type Mailbox struct {
	sync.Mutex
	queue   []protocol.Message
	readyCh chan struct{}
	closed  bool
}

// NewMailbox ...
func NewMailbox() *Mailbox {
	return &Mailbox{
		readyCh: make(chan struct{}, 1),
	}
}

// Put appends a message and signals Ready.
func (m *Mailbox) Put(msg protocol.Message) error {
	m.Lock()
	if m.closed {
		m.Unlock()
		return ErrMailboxClosed
	}
	m.queue = append(m.queue, msg)
	m.Unlock()

	select {
	case m.readyCh <- struct{}{}:
	default:
	}

	return nil
}

// Poll reports whether a message is available, without consuming it.
func (m *Mailbox) Poll() bool {
	return m.Len() > 0
}

// Get removes and returns the head of the queue.
func (m *Mailbox) Get() (protocol.Message, bool) {
	m.Lock()
	defer m.Unlock()

	if len(m.queue) == 0 {
		return protocol.Message{}, false
	}

	msg := m.queue[0]
	m.queue = m.queue[1:]

	return msg, true
}

// Requeue puts a message that could not be processed back at the tail of the
// queue, behind everything that was already waiting. Messages deferred one
// after the other keep the order in which they were consumed. Requeue does not
// signal Ready: nothing new has arrived.
func (m *Mailbox) Requeue(msg protocol.Message) {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return
	}

	m.queue = append(m.queue, msg)
}

// Len ...
func (m *Mailbox) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.queue)
}

// Ready receives a value after a Put. It may fire for a message that was
// already consumed, so readers must Poll again.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.readyCh
}

// Close rejects further Puts. Queued messages can still be consumed.
func (m *Mailbox) Close() {
	m.Lock()
	defer m.Unlock()
	m.closed = true
}

package net

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mosaicnetworks/ghs/src/protocol"
	"github.com/sirupsen/logrus"
)

type delivery struct {
	msg    protocol.Message
	future *DeliveryFuture
	at     time.Time
}

// link carries the messages of one ordered pair of nodes. Delivery times on a
// link never go backwards, which keeps the pair FIFO even with random
// latencies.
type link struct {
	sync.Mutex
	target  *InmemTransport
	queue   []delivery
	last    time.Time
	closed  bool
	wakeCh  chan struct{}
	closeCh chan struct{}
}

// InmemTransport Implements the Transport interface, to allow nodes to
// communicate in-memory without going over a network.
type InmemTransport struct {
	sync.RWMutex
	localID    int
	inbox      *Mailbox
	peers      map[int]*link
	maxLatency time.Duration
	rnd        *rand.Rand
	rndLock    sync.Mutex
	wg         sync.WaitGroup
	shutdown   bool
	logger     *logrus.Entry
}

// NewInmemTransport is used to initialize a new transport. With a zero
// maxLatency, messages are delivered before Send returns; otherwise each
// message is delayed by a random duration up to maxLatency drawn from seed.
func NewInmemTransport(id int, maxLatency time.Duration, seed int64, logger *logrus.Entry) *InmemTransport {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &InmemTransport{
		localID:    id,
		inbox:      NewMailbox(),
		peers:      make(map[int]*link),
		maxLatency: maxLatency,
		rnd:        rand.New(rand.NewSource(seed)),
		logger:     logger,
	}
}

// LocalID implements the Transport interface.
func (i *InmemTransport) LocalID() int {
	return i.localID
}

// Send implements the Transport interface.
func (i *InmemTransport) Send(target int, msg protocol.Message) (*DeliveryFuture, error) {
	i.RLock()
	l, ok := i.peers[target]
	shutdown := i.shutdown
	i.RUnlock()

	if shutdown {
		return nil, ErrTransportShutdown
	}
	if !ok {
		return nil, fmt.Errorf("failed to connect to peer: %d", target)
	}

	future := newDeliveryFuture()

	if i.maxLatency == 0 {
		future.respond(l.target.inbox.Put(msg))
		return future, nil
	}

	delay := i.latency()

	l.Lock()
	if l.closed {
		l.Unlock()
		future.respond(ErrTransportShutdown)
		return future, nil
	}
	at := time.Now().Add(delay)
	if at.Before(l.last) {
		at = l.last
	}
	l.last = at
	l.queue = append(l.queue, delivery{msg: msg, future: future, at: at})
	l.Unlock()

	select {
	case l.wakeCh <- struct{}{}:
	default:
	}

	return future, nil
}

func (i *InmemTransport) latency() time.Duration {
	i.rndLock.Lock()
	defer i.rndLock.Unlock()
	return time.Duration(i.rnd.Int63n(int64(i.maxLatency) + 1))
}

// Poll implements the Transport interface.
func (i *InmemTransport) Poll() bool {
	return i.inbox.Poll()
}

// Consume implements the Transport interface.
func (i *InmemTransport) Consume() (protocol.Message, bool) {
	return i.inbox.Get()
}

// Requeue implements the Transport interface.
func (i *InmemTransport) Requeue(msg protocol.Message) {
	i.inbox.Requeue(msg)
}

// Pending implements the Transport interface.
func (i *InmemTransport) Pending() int {
	return i.inbox.Len()
}

// Ready implements the Transport interface.
func (i *InmemTransport) Ready() <-chan struct{} {
	return i.inbox.Ready()
}

// Connect is used to connect this transport to another transport for
// a given peer id. This allows for local routing.
func (i *InmemTransport) Connect(peer int, t Transport) {
	trans := t.(*InmemTransport)

	l := &link{
		target:  trans,
		wakeCh:  make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}

	i.Lock()
	defer i.Unlock()

	if old, ok := i.peers[peer]; ok {
		old.close()
	}
	i.peers[peer] = l

	if i.maxLatency > 0 {
		i.wg.Add(1)
		go i.deliver(l)
	}
}

// deliver is the loop of a delayed link.
func (i *InmemTransport) deliver(l *link) {
	defer i.wg.Done()

	for {
		l.Lock()
		if len(l.queue) == 0 {
			l.Unlock()
			select {
			case <-l.wakeCh:
				continue
			case <-l.closeCh:
				l.fail(ErrTransportShutdown)
				return
			}
		}
		d := l.queue[0]
		l.Unlock()

		if wait := time.Until(d.at); wait > 0 {
			select {
			case <-time.After(wait):
			case <-l.closeCh:
				l.fail(ErrTransportShutdown)
				return
			}
		}

		l.Lock()
		l.queue = l.queue[1:]
		l.Unlock()

		err := l.target.inbox.Put(d.msg)
		if err != nil {
			i.logger.WithError(err).WithField("msg", d.msg.String()).Debug("Delivery")
		}
		d.future.respond(err)
	}
}

func (l *link) close() {
	l.Lock()
	defer l.Unlock()
	l.closed = true
	close(l.closeCh)
}

// fail resolves everything still queued on the link.
func (l *link) fail(err error) {
	l.Lock()
	defer l.Unlock()
	for _, d := range l.queue {
		d.future.respond(err)
	}
	l.queue = nil
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer int) {
	i.Lock()
	defer i.Unlock()
	if l, ok := i.peers[peer]; ok {
		l.close()
		delete(i.peers, peer)
	}
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	for _, l := range i.peers {
		l.close()
	}
	i.peers = make(map[int]*link)
}

// Close is used to permanently disable the transport. Undelivered messages
// fail with ErrTransportShutdown.
func (i *InmemTransport) Close() error {
	i.Lock()
	i.shutdown = true
	i.Unlock()

	i.DisconnectAll()
	i.wg.Wait()

	i.inbox.Close()

	return nil
}

package node

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mosaicnetworks/ghs/src/common"
	"github.com/mosaicnetworks/ghs/src/net"
	"github.com/mosaicnetworks/ghs/src/protocol"
	"github.com/mosaicnetworks/ghs/src/trace"
	"github.com/sirupsen/logrus"
)

// Stats counts the traffic of a node.
type Stats struct {
	Sent     int `json:"sent"`
	Received int `json:"received"`
	Deferred int `json:"deferred"`
}

// Node is the actor hosting one protocol Engine. It owns the engine and its
// transport, runs the receive loop, and drives the spontaneous wakeup.
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry
	id     int

	engine     *protocol.Engine
	engineLock sync.RWMutex

	trans     net.Transport
	scheduler *WakeupScheduler

	futures []common.TimedFuture
	sendErr error
	stats   Stats

	err    error
	doneCh chan struct{}

	start time.Time
}

// outbox is the protocol.Sender handed to the Engine.
type outbox struct {
	n *Node
}

func (o outbox) Send(to int, msg protocol.Message) {
	o.n.send(to, msg)
}

func (o outbox) Defer(msg protocol.Message) {
	o.n.stats.Deferred++
	o.n.trans.Requeue(msg)
}

// NewNode is a factory method that returns a Node instance. weights is the row
// of the adjacency matrix for id: index is the neighbor id, value is the edge
// weight, and 0 means no edge.
func NewNode(conf *Config,
	id int,
	weights []int,
	trans net.Transport,
	rnd *rand.Rand,
) (*Node, error) {

	logger := conf.Logger.WithField(trace.NodeField, id)

	node := &Node{
		conf:      conf,
		logger:    logger,
		id:        id,
		trans:     trans,
		scheduler: NewWakeupScheduler(conf, rnd),
		doneCh:    make(chan struct{}),
	}

	engine, err := protocol.NewEngine(id, weights, outbox{node}, logger)
	if err != nil {
		return nil, err
	}
	node.engine = engine

	return node, nil
}

// ID ...
func (n *Node) ID() int {
	return n.id
}

// GetState returns the run state of the node
func (n *Node) GetState() State {
	return n.getState()
}

// RunAsync calls Run as a separate thread
func (n *Node) RunAsync(ctx context.Context) {
	go n.Run(ctx)
}

// Run invokes the main loop of the node. It returns when the protocol has
// halted and every outgoing message has been delivered, or when ctx is done,
// or on the first error, which is then available through Err.
func (n *Node) Run(ctx context.Context) {
	defer close(n.doneCh)

	n.start = time.Now()
	n.setState(Running)
	n.logger.WithField("budget", n.scheduler.Budget()).Debug("Run")

	if err := n.loop(ctx); err != nil {
		n.logger.WithError(err).Error("Run loop")
		n.err = err
	}

	n.setState(Flushing)
	n.flush()

	n.logStats()
	n.setState(Halted)
}

func (n *Node) loop(ctx context.Context) error {
	deferrals := 0

	for !n.engine.Halted() {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, ok := n.trans.Consume()
		if !ok {
			deferrals = 0
			if n.engine.Sleeping() {
				if err := n.idle(ctx); err != nil {
					return err
				}
			} else {
				n.wait(ctx)
			}
			continue
		}

		if n.engine.Sleeping() && (msg.Type == protocol.Connect || msg.Type == protocol.Test) {
			trace.Emit(n.logger,
				fmt.Sprintf("AWAKENED by %d", msg.Source),
				fmt.Sprintf("Did %d flops, less than %d flop limit!", n.scheduler.Work(), n.scheduler.Budget()),
				"")
		}

		deferred := n.stats.Deferred
		if err := n.handle(msg); err != nil {
			return err
		}

		// Every queued message has been deferred since the last progress.
		// Nothing can change until a new message arrives.
		if n.stats.Deferred > deferred {
			deferrals++
			if deferrals >= n.trans.Pending() {
				n.wait(ctx)
				deferrals = 0
			}
		} else {
			deferrals = 0
		}
	}

	trace.Emit(n.logger, fmt.Sprintf("FINISHED with leader %d", n.engine.Leader()), "", "")

	return nil
}

func (n *Node) handle(msg protocol.Message) error {
	n.engineLock.Lock()
	defer n.engineLock.Unlock()

	n.stats.Received++
	if err := n.engine.Handle(msg); err != nil {
		return err
	}
	return n.sendErr
}

// idle does one tick of idle work and wakes the node up once the budget is
// exhausted and no message is waiting.
func (n *Node) idle(ctx context.Context) error {
	n.scheduler.Tick(ctx, n.trans.Ready())

	if !n.scheduler.Exhausted() || n.trans.Poll() {
		return nil
	}

	trace.Emit(n.logger,
		"SELF-AWAKENED",
		fmt.Sprintf("Did %d flops, more or equal than %d flop limit!", n.scheduler.Work(), n.scheduler.Budget()),
		"")

	n.engineLock.Lock()
	defer n.engineLock.Unlock()

	if err := n.engine.Wakeup(); err != nil {
		return err
	}
	return n.sendErr
}

// wait blocks until a new message arrives or ctx is done.
func (n *Node) wait(ctx context.Context) {
	select {
	case <-n.trans.Ready():
	case <-ctx.Done():
	}
}

func (n *Node) send(to int, msg protocol.Message) {
	future, err := n.trans.Send(to, msg)
	if err != nil {
		n.logger.WithError(err).WithField("to", to).Error("Send")
		if n.sendErr == nil {
			n.sendErr = err
		}
		return
	}
	n.stats.Sent++
	n.futures = append(n.futures, future)
}

// flush waits for every outstanding delivery. Deliveries to nodes that have
// already exited fail with ErrMailboxClosed; that is expected at the end of a
// run, since the last Terminate may reach a halted core node.
func (n *Node) flush() {
	for _, f := range n.futures {
		err := f.Wait(n.conf.FlushTimeout)
		switch err {
		case nil:
		case net.ErrMailboxClosed:
			n.logger.WithError(err).Debug("Flush")
		default:
			n.logger.WithError(err).Warn("Flush")
		}
	}
	n.futures = nil
}

func (n *Node) logStats() {
	stats := n.GetStats()

	n.logger.WithFields(logrus.Fields{
		"sent":     stats.Sent,
		"received": stats.Received,
		"deferred": stats.Deferred,
		"leader":   n.Leader(),
		"levels":   fmt.Sprint(n.LevelHistory()),
		"duration": time.Since(n.start).String(),
	}).Debug("Stats")
}

// Done is closed when Run returns.
func (n *Node) Done() <-chan struct{} {
	return n.doneCh
}

// Err is the error that stopped the node, if any. Only valid after Done.
func (n *Node) Err() error {
	return n.err
}

// GetStats ...
func (n *Node) GetStats() Stats {
	n.engineLock.RLock()
	defer n.engineLock.RUnlock()
	return n.stats
}

// Info returns a snapshot of the protocol state.
func (n *Node) Info() protocol.Node {
	n.engineLock.RLock()
	defer n.engineLock.RUnlock()
	return n.engine.Node()
}

// Edges returns a snapshot of the EdgeTable.
func (n *Node) Edges() []protocol.Edge {
	n.engineLock.RLock()
	defer n.engineLock.RUnlock()
	return n.engine.Edges()
}

// LevelHistory ...
func (n *Node) LevelHistory() []int {
	n.engineLock.RLock()
	defer n.engineLock.RUnlock()
	return n.engine.LevelHistory()
}

// Leader ...
func (n *Node) Leader() int {
	n.engineLock.RLock()
	defer n.engineLock.RUnlock()
	return n.engine.Leader()
}

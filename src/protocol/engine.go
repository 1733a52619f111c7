package protocol

import (
	"fmt"

	"github.com/mosaicnetworks/ghs/src/trace"
	"github.com/sirupsen/logrus"
)

// Sender carries the Engine's output. Send must not block; Defer places a
// message that cannot be processed yet at the tail of the node's own inbox.
type Sender interface {
	Send(to int, msg Message)
	Defer(msg Message)
}

// Engine executes the GHS algorithm for one node. It is not safe for
// concurrent use: the owning actor calls Wakeup and Handle sequentially, and
// each call runs to completion.
type Engine struct {
	node   Node
	edges  *EdgeTable
	out    Sender
	logger *logrus.Entry

	levels []int
}

// NewEngine creates the engine of node id from its weight vector.
func NewEngine(id int, weights []int, out Sender, logger *logrus.Entry) (*Engine, error) {
	edges, err := NewEdgeTable(id, weights)
	if err != nil {
		return nil, err
	}
	if err := edges.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &Engine{
		node:   newNode(id),
		edges:  edges,
		out:    out,
		logger: logger,
	}, nil
}

// ID ...
func (e *Engine) ID() int {
	return e.node.ID
}

// Node returns a copy of the protocol state.
func (e *Engine) Node() Node {
	return e.node
}

// Edges returns a copy of the EdgeTable entries.
func (e *Engine) Edges() []Edge {
	return e.edges.Edges()
}

// Sleeping ...
func (e *Engine) Sleeping() bool {
	return e.node.State == Sleeping
}

// Halted ...
func (e *Engine) Halted() bool {
	return e.node.Halted
}

// Leader ...
func (e *Engine) Leader() int {
	return e.node.Leader
}

// LevelHistory returns every level the node has taken, in order.
func (e *Engine) LevelHistory() []int {
	res := make([]int, len(e.levels))
	copy(res, e.levels)
	return res
}

/*******************************************************************************
Procedures
*******************************************************************************/

// Wakeup starts the node: the minimum-weight edge becomes a Branch and a
// level-0 Connect is sent over it. A node without edges is alone in its graph,
// so it is its own spanning tree and terminates immediately.
func (e *Engine) Wakeup() error {
	m, ok := e.edges.MinBasic()

	e.node.State = Found
	e.node.FindCount = 0
	if err := e.setLevel(0); err != nil {
		return err
	}

	if !ok {
		e.logger.Debug("No adjacent edges")
		e.node.Leader = e.node.ID
		e.node.Halted = true
		return nil
	}

	e.logger.WithField("edge", m.String()).Debug("Minimum adjacent edge")

	e.node.FragmentID = m.Weight
	if err := e.edges.mark(m, Branch); err != nil {
		return err
	}
	e.traceEdge("BRANCH", m.Neighbor)

	e.send(m.Neighbor, NewConnect(e.node.ID, e.node.Level))

	return nil
}

func (e *Engine) test() error {
	m, ok := e.edges.MinBasic()
	if !ok {
		e.node.TestEdge = NoEdge
		return e.report()
	}

	e.node.TestEdge = m.Neighbor
	e.send(m.Neighbor, NewTest(e.node.ID, e.node.Level, e.node.FragmentID))

	return nil
}

func (e *Engine) report() error {
	if e.node.FindCount != 0 || e.node.TestEdge != NoEdge {
		return nil
	}

	if e.node.InBranch == NoEdge {
		return e.violation("report without in-branch")
	}

	e.node.State = Found
	e.send(e.node.InBranch, NewReport(e.node.ID, e.node.BestWeight))

	return nil
}

func (e *Engine) changeRoot() error {
	if e.node.BestEdge == NoEdge {
		return e.violation("change-root without best-edge")
	}

	best, err := e.edges.Lookup(e.node.BestEdge)
	if err != nil {
		return err
	}

	if best.State == Branch {
		e.send(best.Neighbor, NewChangeRoot(e.node.ID))
		return nil
	}

	e.send(best.Neighbor, NewConnect(e.node.ID, e.node.Level))
	if err := e.edges.mark(best, Branch); err != nil {
		return err
	}
	e.traceEdge("BRANCH", best.Neighbor)

	return nil
}

/*******************************************************************************
Handlers
*******************************************************************************/

// Handle processes one incoming message. Messages reaching a halted node are
// ignored.
func (e *Engine) Handle(msg Message) error {
	if e.node.Halted {
		e.logger.WithField("msg", msg.String()).Debug("Ignoring message, node halted")
		return nil
	}

	if !msg.Type.Valid() {
		return NewError(UnknownMessage, e.node.ID,
			fmt.Sprintf("tag %d from %d", msg.Type, msg.Source))
	}

	j, err := e.edges.Lookup(msg.Source)
	if err != nil {
		return err
	}

	trace.Emit(e.logger,
		fmt.Sprintf("%s from %d", msg.Type, msg.Source),
		fmt.Sprintf("%d <-- %s -- %d", e.node.ID, msg.Type.label(), msg.Source),
		msg.Payload())

	switch msg.Type {
	case Connect:
		return e.handleConnect(j, msg)
	case Initiate:
		return e.handleInitiate(j, msg)
	case Test:
		return e.handleTest(j, msg)
	case Report:
		return e.handleReport(j, msg)
	case Accept:
		return e.handleAccept(j)
	case Reject:
		return e.handleReject(j)
	case ChangeRoot:
		return e.changeRoot()
	case Terminate:
		return e.handleTerminate(j, msg)
	default:
		return NewError(UnknownMessage, e.node.ID,
			fmt.Sprintf("tag %d from %d", msg.Type, msg.Source))
	}
}

func (e *Engine) handleConnect(j *Edge, msg Message) error {
	if e.node.State == Sleeping {
		if err := e.Wakeup(); err != nil {
			return err
		}
	}

	switch {
	case msg.Level < e.node.Level:
		// absorb the lower-level fragment
		if err := e.edges.mark(j, Branch); err != nil {
			return err
		}
		e.traceEdge("BRANCH", j.Neighbor)
		e.send(j.Neighbor, NewInitiate(e.node.ID, e.node.Level, e.node.FragmentID, e.node.State))
		if e.node.State == Find {
			e.node.FindCount++
		}
	case j.State == Basic:
		e.deferMsg(msg)
	default:
		// both fragments chose this edge: merge into a new fragment
		e.send(j.Neighbor, NewInitiate(e.node.ID, e.node.Level+1, j.Weight, Find))
	}

	return nil
}

func (e *Engine) handleInitiate(j *Edge, msg Message) error {
	if err := e.setLevel(msg.Level); err != nil {
		return err
	}
	e.node.FragmentID = msg.FragmentID
	e.node.State = msg.State
	e.node.InBranch = j.Neighbor
	e.node.BestEdge = NoEdge
	e.node.BestWeight = Infinity
	e.node.TestEdge = NoEdge

	for _, i := range e.edges.Branches() {
		if i == j.Neighbor {
			continue
		}
		e.send(i, NewInitiate(e.node.ID, msg.Level, msg.FragmentID, msg.State))
		if msg.State == Find {
			e.node.FindCount++
		}
	}

	if msg.State == Find {
		return e.test()
	}

	return nil
}

func (e *Engine) handleTest(j *Edge, msg Message) error {
	if e.node.State == Sleeping {
		if err := e.Wakeup(); err != nil {
			return err
		}
	}

	switch {
	case msg.Level > e.node.Level:
		e.deferMsg(msg)
	case msg.FragmentID != e.node.FragmentID:
		e.send(j.Neighbor, NewAccept(e.node.ID))
	default:
		if j.State == Basic {
			if err := e.edges.mark(j, Rejected); err != nil {
				return err
			}
			e.traceEdge("REJECTED", j.Neighbor)
		}
		if e.node.TestEdge != j.Neighbor {
			e.send(j.Neighbor, NewReject(e.node.ID))
		} else {
			return e.test()
		}
	}

	return nil
}

func (e *Engine) handleReport(j *Edge, msg Message) error {
	switch {
	case j.Neighbor != e.node.InBranch:
		e.node.FindCount--
		if e.node.FindCount < 0 {
			return e.violation(fmt.Sprintf("negative find-count after report from %d", j.Neighbor))
		}
		if msg.BestWeight < e.node.BestWeight {
			e.node.BestWeight = msg.BestWeight
			e.node.BestEdge = j.Neighbor
		}
		return e.report()
	case e.node.State == Find:
		e.deferMsg(msg)
	case msg.BestWeight > e.node.BestWeight:
		return e.changeRoot()
	case msg.BestWeight == e.node.BestWeight && e.node.BestWeight == Infinity:
		return e.terminate()
	}

	return nil
}

func (e *Engine) handleAccept(j *Edge) error {
	e.node.TestEdge = NoEdge
	if j.Weight < e.node.BestWeight {
		e.node.BestEdge = j.Neighbor
		e.node.BestWeight = j.Weight
	}
	return e.report()
}

func (e *Engine) handleReject(j *Edge) error {
	if j.State == Basic {
		if err := e.edges.mark(j, Rejected); err != nil {
			return err
		}
		e.traceEdge("REJECTED", j.Neighbor)
	}
	return e.test()
}

func (e *Engine) handleTerminate(j *Edge, msg Message) error {
	e.node.Leader = msg.Leader

	for _, i := range e.edges.Branches() {
		if i == j.Neighbor {
			continue
		}
		e.send(i, NewTerminate(e.node.ID, e.node.Leader))
	}

	e.node.Halted = true

	return nil
}

// terminate runs at a core node when both halves of the fragment reported no
// outgoing edge. The core edge is the one whose weight is the fragment id, and
// its lower endpoint is the leader.
func (e *Engine) terminate() error {
	leader := NoLeader
	for _, edge := range e.edges.Edges() {
		if edge.Weight == e.node.FragmentID {
			if edge.Neighbor < e.node.ID {
				leader = edge.Neighbor
			} else {
				leader = e.node.ID
			}
		}
	}

	if leader == NoLeader {
		return e.violation(fmt.Sprintf("no core edge with weight %d", e.node.FragmentID))
	}

	e.node.Halted = true
	e.node.Leader = leader

	for _, i := range e.edges.Branches() {
		e.send(i, NewTerminate(e.node.ID, leader))
	}

	return nil
}

/*******************************************************************************
Helpers
*******************************************************************************/

func (e *Engine) setLevel(level int) error {
	if len(e.levels) > 0 && level < e.node.Level {
		return e.violation(fmt.Sprintf("level going down from %d to %d", e.node.Level, level))
	}
	e.node.Level = level
	if len(e.levels) == 0 || e.levels[len(e.levels)-1] != level {
		e.levels = append(e.levels, level)
	}
	return nil
}

func (e *Engine) send(to int, msg Message) {
	trace.Emit(e.logger,
		fmt.Sprintf("%s to %d", msg.Type, to),
		fmt.Sprintf("%d -- %s --> %d", e.node.ID, msg.Type.label(), to),
		msg.Payload())
	e.out.Send(to, msg)
}

func (e *Engine) deferMsg(msg Message) {
	trace.Emit(e.logger,
		fmt.Sprintf("Place received %s message from %d at the end of queue!", msg.Type, msg.Source),
		"", "")
	e.out.Defer(msg)
}

func (e *Engine) traceEdge(state string, neighbor int) {
	trace.Emit(e.logger, fmt.Sprintf("%s to %d", state, neighbor), "", "")
}

func (e *Engine) violation(detail string) error {
	e.logger.WithFields(logrus.Fields{
		"state":       e.node.State.String(),
		"level":       e.node.Level,
		"fragment_id": e.node.FragmentID,
		"find_count":  e.node.FindCount,
		"test_edge":   e.node.TestEdge,
		"in_branch":   e.node.InBranch,
		"best_edge":   e.node.BestEdge,
		"best_weight": e.node.BestWeight,
	}).Error(detail)
	return NewError(ProtocolViolation, e.node.ID, detail)
}

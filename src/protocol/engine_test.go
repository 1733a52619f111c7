package protocol

import (
	"math/rand"
	"testing"

	"github.com/mosaicnetworks/ghs/src/common"
	"github.com/sirupsen/logrus"
)

type envelope struct {
	to  int
	msg Message
}

// recorder is a Sender that keeps everything the Engine produces.
type recorder struct {
	sent     []envelope
	deferred []Message
}

func (r *recorder) Send(to int, msg Message) {
	r.sent = append(r.sent, envelope{to, msg})
}

func (r *recorder) Defer(msg Message) {
	r.deferred = append(r.deferred, msg)
}

func (r *recorder) reset() {
	r.sent = nil
	r.deferred = nil
}

func newTestEngine(t *testing.T, id int, weights []int) (*Engine, *recorder) {
	rec := &recorder{}
	logger := common.NewTestEntry(t, logrus.DebugLevel)
	e, err := NewEngine(id, weights, rec, logger.WithField("node", id))
	if err != nil {
		t.Fatal(err)
	}
	return e, rec
}

func checkSent(t *testing.T, rec *recorder, expected ...envelope) {
	t.Helper()
	if len(rec.sent) != len(expected) {
		t.Fatalf("Sent messages should be %v, not %v", expected, rec.sent)
	}
	for i, exp := range expected {
		if rec.sent[i] != exp {
			t.Fatalf("Sent[%d] should be %v, not %v", i, exp, rec.sent[i])
		}
	}
}

// triangle: 0-1=3, 1-2=1, 0-2=2
var triangle = [][]int{
	{0, 3, 2},
	{3, 0, 1},
	{2, 1, 0},
}

// tenNodes has a minimum spanning tree of weight 48.
var tenNodes = func() [][]int {
	edges := [][3]int{
		{0, 1, 3}, {0, 5, 2}, {1, 2, 17}, {1, 3, 16}, {2, 3, 8}, {2, 8, 18},
		{3, 4, 11}, {3, 8, 4}, {4, 5, 1}, {4, 6, 6}, {4, 7, 5}, {4, 8, 10},
		{5, 6, 7}, {6, 7, 15}, {7, 8, 12}, {7, 9, 13}, {8, 9, 9},
	}
	m := make([][]int, 10)
	for i := range m {
		m[i] = make([]int, 10)
	}
	for _, e := range edges {
		m[e[0]][e[1]] = e[2]
		m[e[1]][e[0]] = e[2]
	}
	return m
}()

/*******************************************************************************
Procedures and handlers
*******************************************************************************/

func TestNewEngineInvalidWeights(t *testing.T) {
	cases := []struct {
		id      int
		weights []int
	}{
		{0, []int{0, -1}},
		{0, []int{0, 2, 2}},
		{1, []int{3, 5}},
	}

	for _, c := range cases {
		_, err := NewEngine(c.id, c.weights, &recorder{}, nil)
		if !Is(err, InvalidTopology) {
			t.Fatalf("NewEngine(%d, %v) should fail with InvalidTopology, not %v", c.id, c.weights, err)
		}
	}
}

func TestWakeup(t *testing.T) {
	e, rec := newTestEngine(t, 0, triangle[0])

	if !e.Sleeping() {
		t.Fatalf("Engine should start Sleeping")
	}

	if err := e.Wakeup(); err != nil {
		t.Fatal(err)
	}

	n := e.Node()
	if n.State != Found {
		t.Fatalf("State should be Found, not %s", n.State)
	}
	if n.Level != 0 {
		t.Fatalf("Level should be 0, not %d", n.Level)
	}
	if n.FragmentID != 2 {
		t.Fatalf("FragmentID should be 2, not %d", n.FragmentID)
	}

	j, _ := e.edges.Lookup(2)
	if j.State != Branch {
		t.Fatalf("Edge to 2 should be Branch, not %s", j.State)
	}

	checkSent(t, rec, envelope{2, NewConnect(0, 0)})
}

func TestWakeupIsolated(t *testing.T) {
	e, rec := newTestEngine(t, 0, []int{0})

	if err := e.Wakeup(); err != nil {
		t.Fatal(err)
	}

	if !e.Halted() {
		t.Fatalf("Isolated node should halt on wakeup")
	}
	if e.Leader() != 0 {
		t.Fatalf("Leader should be 0, not %d", e.Leader())
	}
	checkSent(t, rec)
}

func TestConnectWhileSleeping(t *testing.T) {
	e, rec := newTestEngine(t, 1, triangle[1])

	if err := e.Handle(NewConnect(2, 0)); err != nil {
		t.Fatal(err)
	}

	// the wakeup picks the same edge, so the fragments merge right away
	checkSent(t, rec,
		envelope{2, NewConnect(1, 0)},
		envelope{2, NewInitiate(1, 1, 1, Find)},
	)
}

func TestConnectDeferred(t *testing.T) {
	e, rec := newTestEngine(t, 0, triangle[0])
	if err := e.Wakeup(); err != nil {
		t.Fatal(err)
	}
	rec.reset()

	msg := NewConnect(1, 0)
	if err := e.Handle(msg); err != nil {
		t.Fatal(err)
	}

	checkSent(t, rec)
	if len(rec.deferred) != 1 || rec.deferred[0] != msg {
		t.Fatalf("Deferred should be [%v], not %v", msg, rec.deferred)
	}
}

// initiated returns node 1 of the triangle after it merged with node 2 into a
// level 1 fragment and started testing its edge to 0.
func initiated(t *testing.T) (*Engine, *recorder) {
	e, rec := newTestEngine(t, 1, triangle[1])
	if err := e.Wakeup(); err != nil {
		t.Fatal(err)
	}
	if err := e.Handle(NewInitiate(2, 1, 1, Find)); err != nil {
		t.Fatal(err)
	}

	n := e.Node()
	if n.Level != 1 || n.FragmentID != 1 || n.State != Find || n.InBranch != 2 {
		t.Fatalf("Unexpected state after Initiate: %+v", n)
	}
	if n.TestEdge != 0 {
		t.Fatalf("TestEdge should be 0, not %d", n.TestEdge)
	}
	checkSent(t, rec,
		envelope{2, NewConnect(1, 0)},
		envelope{0, NewTest(1, 1, 1)},
	)

	rec.reset()
	return e, rec
}

func TestConnectAbsorb(t *testing.T) {
	e, rec := initiated(t)

	if err := e.Handle(NewConnect(0, 0)); err != nil {
		t.Fatal(err)
	}

	checkSent(t, rec, envelope{0, NewInitiate(1, 1, 1, Find)})

	if fc := e.Node().FindCount; fc != 1 {
		t.Fatalf("FindCount should be 1, not %d", fc)
	}
	j, _ := e.edges.Lookup(0)
	if j.State != Branch {
		t.Fatalf("Edge to 0 should be Branch, not %s", j.State)
	}
}

func TestTestSameFragment(t *testing.T) {
	e, rec := initiated(t)

	if err := e.Handle(NewTest(0, 1, 1)); err != nil {
		t.Fatal(err)
	}

	j, _ := e.edges.Lookup(0)
	if j.State != Rejected {
		t.Fatalf("Edge to 0 should be Rejected, not %s", j.State)
	}

	// the rejected edge was the test edge, so the node moves on and, having
	// nothing left to test, reports
	checkSent(t, rec, envelope{2, NewReport(1, Infinity)})

	n := e.Node()
	if n.State != Found {
		t.Fatalf("State should be Found, not %s", n.State)
	}
	if n.TestEdge != NoEdge {
		t.Fatalf("TestEdge should be unset, not %d", n.TestEdge)
	}
}

func TestTestOtherFragment(t *testing.T) {
	e, rec := initiated(t)

	if err := e.Handle(NewTest(0, 0, 2)); err != nil {
		t.Fatal(err)
	}

	checkSent(t, rec, envelope{0, NewAccept(1)})
}

func TestTestDeferred(t *testing.T) {
	e, rec := initiated(t)

	msg := NewTest(0, 3, 2)
	if err := e.Handle(msg); err != nil {
		t.Fatal(err)
	}

	checkSent(t, rec)
	if len(rec.deferred) != 1 || rec.deferred[0] != msg {
		t.Fatalf("Deferred should be [%v], not %v", msg, rec.deferred)
	}
}

func TestAcceptReports(t *testing.T) {
	e, rec := initiated(t)

	if err := e.Handle(NewAccept(0)); err != nil {
		t.Fatal(err)
	}

	n := e.Node()
	if n.BestEdge != 0 || n.BestWeight != 3 {
		t.Fatalf("Best edge should be 0 with weight 3, not %d with %d", n.BestEdge, n.BestWeight)
	}
	checkSent(t, rec, envelope{2, NewReport(1, 3)})
}

func TestRejectRetests(t *testing.T) {
	e, rec := initiated(t)

	if err := e.Handle(NewReject(0)); err != nil {
		t.Fatal(err)
	}

	checkSent(t, rec, envelope{2, NewReport(1, Infinity)})
}

func TestReportFromCoreDeferred(t *testing.T) {
	e, rec := initiated(t)

	msg := NewReport(2, 5)
	if err := e.Handle(msg); err != nil {
		t.Fatal(err)
	}

	checkSent(t, rec)
	if len(rec.deferred) != 1 {
		t.Fatalf("Report from in-branch should be deferred while in Find")
	}
}

func TestReportChangeRoot(t *testing.T) {
	e, rec := initiated(t)

	if err := e.Handle(NewAccept(0)); err != nil {
		t.Fatal(err)
	}
	rec.reset()

	// the other half of the core has nothing better to offer
	if err := e.Handle(NewReport(2, Infinity)); err != nil {
		t.Fatal(err)
	}

	checkSent(t, rec, envelope{0, NewConnect(1, 1)})

	j, _ := e.edges.Lookup(0)
	if j.State != Branch {
		t.Fatalf("Edge to 0 should be Branch, not %s", j.State)
	}
}

func TestReportTerminates(t *testing.T) {
	e, rec := initiated(t)

	if err := e.Handle(NewReject(0)); err != nil {
		t.Fatal(err)
	}
	rec.reset()

	if err := e.Handle(NewReport(2, Infinity)); err != nil {
		t.Fatal(err)
	}

	if !e.Halted() {
		t.Fatalf("Node should be halted")
	}
	if e.Leader() != 1 {
		t.Fatalf("Leader should be 1, not %d", e.Leader())
	}
	checkSent(t, rec, envelope{2, NewTerminate(1, 1)})
}

func TestReportNegativeFindCount(t *testing.T) {
	e, _ := initiated(t)

	err := e.Handle(NewReport(0, 5))
	if !Is(err, ProtocolViolation) {
		t.Fatalf("Error should be ProtocolViolation, not %v", err)
	}
}

func TestInitiateLevelDown(t *testing.T) {
	e, _ := initiated(t)

	err := e.Handle(NewInitiate(2, 0, 1, Found))
	if !Is(err, ProtocolViolation) {
		t.Fatalf("Error should be ProtocolViolation, not %v", err)
	}
}

func TestTerminateForwards(t *testing.T) {
	e, rec := initiated(t)
	if err := e.Handle(NewConnect(0, 0)); err != nil {
		t.Fatal(err)
	}
	rec.reset()

	if err := e.Handle(NewTerminate(2, 1)); err != nil {
		t.Fatal(err)
	}

	checkSent(t, rec, envelope{0, NewTerminate(1, 1)})
	if !e.Halted() || e.Leader() != 1 {
		t.Fatalf("Node should be halted with leader 1, not %v with %d", e.Halted(), e.Leader())
	}

	// anything after that is ignored
	rec.reset()
	if err := e.Handle(NewConnect(0, 4)); err != nil {
		t.Fatal(err)
	}
	checkSent(t, rec)
}

func TestUnknownNeighbor(t *testing.T) {
	e, _ := newTestEngine(t, 0, triangle[0])

	err := e.Handle(NewConnect(7, 0))
	if !Is(err, EdgeNotFound) {
		t.Fatalf("Error should be EdgeNotFound, not %v", err)
	}
}

func TestUnknownMessage(t *testing.T) {
	e, _ := newTestEngine(t, 0, triangle[0])

	err := e.Handle(Message{Type: MessageType(42), Source: 1})
	if !Is(err, UnknownMessage) {
		t.Fatalf("Error should be UnknownMessage, not %v", err)
	}
}

/*******************************************************************************
Whole graph, single threaded
*******************************************************************************/

// simnet runs a set of engines in a single goroutine. Each node has one FIFO
// inbox; deferred messages go back to its tail.
type simnet struct {
	engines []*Engine
	inboxes [][]Message
	rnd     *rand.Rand
}

type simSender struct {
	net *simnet
	id  int
}

func (s *simSender) Send(to int, msg Message) {
	s.net.inboxes[to] = append(s.net.inboxes[to], msg)
}

func (s *simSender) Defer(msg Message) {
	s.net.inboxes[s.id] = append(s.net.inboxes[s.id], msg)
}

func newSimnet(t *testing.T, weights [][]int, seed int64) *simnet {
	net := &simnet{
		inboxes: make([][]Message, len(weights)),
		rnd:     rand.New(rand.NewSource(seed)),
	}
	logger := common.NewTestEntry(t, common.TestLogLevel)
	for id, w := range weights {
		e, err := NewEngine(id, w, &simSender{net, id}, logger.WithField("node", id))
		if err != nil {
			t.Fatal(err)
		}
		net.engines = append(net.engines, e)
	}
	return net
}

// run wakes the nodes listed in wake at random points and delivers messages
// to random nodes until every inbox is empty.
func (net *simnet) run(t *testing.T, wake []int) {
	pending := append([]int{}, wake...)

	for step := 0; step < 100000; step++ {
		if len(pending) > 0 && (net.rnd.Intn(4) == 0 || net.idle()) {
			id := pending[0]
			pending = pending[1:]
			if net.engines[id].Sleeping() {
				if err := net.engines[id].Wakeup(); err != nil {
					t.Fatal(err)
				}
			}
			continue
		}

		busy := []int{}
		for id, inbox := range net.inboxes {
			if len(inbox) > 0 {
				busy = append(busy, id)
			}
		}
		if len(busy) == 0 {
			return
		}

		id := busy[net.rnd.Intn(len(busy))]
		msg := net.inboxes[id][0]
		net.inboxes[id] = net.inboxes[id][1:]
		if err := net.engines[id].Handle(msg); err != nil {
			t.Fatal(err)
		}
	}

	t.Fatalf("Simulation did not settle")
}

func (net *simnet) idle() bool {
	for _, inbox := range net.inboxes {
		if len(inbox) > 0 {
			return false
		}
	}
	return true
}

// check verifies the outcome against the expected tree and returns the
// leader.
func (net *simnet) check(t *testing.T, mst map[[2]int]bool) int {
	t.Helper()

	leader := net.engines[0].Leader()
	fragment := net.engines[0].Node().FragmentID

	branches := map[[2]int]bool{}
	for _, e := range net.engines {
		n := e.Node()
		if !n.Halted {
			t.Fatalf("Node %d should be halted", n.ID)
		}
		if n.Leader != leader {
			t.Fatalf("Node %d leader should be %d, not %d", n.ID, leader, n.Leader)
		}
		for _, edge := range e.Edges() {
			if edge.State == Basic {
				t.Fatalf("Node %d edge %v should not be Basic", n.ID, edge)
			}
			other, _ := net.engines[edge.Neighbor].edges.Lookup(n.ID)
			if (edge.State == Branch) != (other.State == Branch) {
				t.Fatalf("Endpoints disagree on edge %d-%d", n.ID, edge.Neighbor)
			}
			if edge.State == Branch {
				branches[key(n.ID, edge.Neighbor)] = true
			}
			if edge.Weight == fragment && leader != min(n.ID, edge.Neighbor) {
				t.Fatalf("Leader should be the lower end of the core edge %d-%d, not %d",
					n.ID, edge.Neighbor, leader)
			}
		}

		levels := e.LevelHistory()
		for i := 1; i < len(levels); i++ {
			if levels[i] < levels[i-1] {
				t.Fatalf("Node %d levels should not decrease: %v", n.ID, levels)
			}
		}
	}

	if len(branches) != len(net.engines)-1 {
		t.Fatalf("There should be %d Branch edges, not %d", len(net.engines)-1, len(branches))
	}
	for k := range mst {
		if !branches[k] {
			t.Fatalf("Edge %v should be Branch", k)
		}
	}

	return leader
}

func key(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestTriangle(t *testing.T) {
	mst := map[[2]int]bool{key(1, 2): true, key(0, 2): true}

	wakes := [][]int{{0, 1, 2}, {2, 1, 0}, {0}, {1}, {2}}

	for seed := int64(0); seed < 20; seed++ {
		for _, wake := range wakes {
			net := newSimnet(t, triangle, seed)
			net.run(t, wake)
			net.check(t, mst)
		}
	}
}

func TestTenNodes(t *testing.T) {
	mst := map[[2]int]bool{
		key(4, 5): true, key(0, 5): true, key(0, 1): true,
		key(3, 8): true, key(4, 7): true, key(4, 6): true,
		key(2, 3): true, key(8, 9): true, key(4, 8): true,
	}

	all := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	for seed := int64(0); seed < 50; seed++ {
		net := newSimnet(t, tenNodes, seed)

		wake := append([]int{}, all...)
		net.rnd.Shuffle(len(wake), func(i, j int) { wake[i], wake[j] = wake[j], wake[i] })
		wake = wake[:1+net.rnd.Intn(len(wake))]

		net.run(t, wake)
		net.check(t, mst)

		weight := 0
		for _, e := range net.engines {
			for _, edge := range e.Edges() {
				if edge.State == Branch && e.ID() < edge.Neighbor {
					weight += edge.Weight
				}
			}
		}
		if weight != 48 {
			t.Fatalf("MST weight should be 48, not %d", weight)
		}
	}
}

func TestTwoNodes(t *testing.T) {
	net := newSimnet(t, [][]int{{0, 7}, {7, 0}}, 1)
	net.run(t, []int{1})

	if leader := net.check(t, map[[2]int]bool{key(0, 1): true}); leader != 0 {
		t.Fatalf("Leader should be 0, not %d", leader)
	}
}

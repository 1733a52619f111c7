package store

import (
	"fmt"
	"io/ioutil"
	"os"
	"testing"

	cm "github.com/mosaicnetworks/ghs/src/common"
	"github.com/mosaicnetworks/ghs/src/graph"
	"github.com/mosaicnetworks/ghs/src/trace"
)

func testResult(id int) NodeResult {
	return NodeResult{
		ID:         id,
		Halted:     true,
		Leader:     1,
		Level:      2,
		FragmentID: 9,
		Levels:     []int{0, 1, 2},
		Edges: []EdgeResult{
			{Neighbor: id + 1, Weight: 4, State: "Branch"},
			{Neighbor: id + 2, Weight: 7, State: "Rejected"},
		},
		Sent:     12,
		Received: 11,
		Deferred: 3,
	}
}

func testStore(t *testing.T, s Store) {
	for i := 3; i >= 0; i-- {
		if err := s.SetResult(testResult(i)); err != nil {
			t.Fatal(err)
		}
	}

	r, err := s.GetResult(2)
	if err != nil {
		t.Fatal(err)
	}
	if r.FragmentID != 9 || len(r.Edges) != 2 || r.Edges[1].State != "Rejected" {
		t.Fatalf("GetResult(2) returned %+v", r)
	}

	if _, err := s.GetResult(10); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("GetResult(10) should fail with KeyNotFound, not %v", err)
	}

	results, err := s.Results()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("Results should have 4 entries, not %d", len(results))
	}
	for i, r := range results {
		if r.ID != i {
			t.Fatalf("Results[%d] should be node %d, not %d", i, i, r.ID)
		}
	}

	count := 1000
	for i := 0; i < count; i++ {
		ev := trace.Event{Time: float64(i) / 1000, Node: i % 4, Tag: fmt.Sprintf("CONNECT to %d", i)}
		if err := s.AppendTrace(ev); err != nil {
			t.Fatal(err)
		}
	}

	events, err := s.Trace()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != count {
		t.Fatalf("Trace should have %d events, not %d", count, len(events))
	}
	for i, ev := range events {
		if ev.Tag != fmt.Sprintf("CONNECT to %d", i) {
			t.Fatalf("Trace[%d] should be 'CONNECT to %d', not '%s'", i, i, ev.Tag)
		}
	}
}

func TestInmemStore(t *testing.T) {
	s := NewInmemStore()
	testStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestBadgerStore(t *testing.T) {
	dir, err := ioutil.TempDir("", "ghs-badger")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s, err := NewBadgerStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)

	if s.StorePath() != dir {
		t.Fatalf("StorePath should be %s, not %s", dir, s.StorePath())
	}

	// buffered events must survive Close
	if err := s.AppendTrace(trace.Event{Tag: "FINISHED with leader 1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewBadgerStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	events, err := s.Trace()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1001 {
		t.Fatalf("Reloaded trace should have 1001 events, not %d", len(events))
	}
	if events[1000].Tag != "FINISHED with leader 1" {
		t.Fatalf("Last event should be 'FINISHED with leader 1', not '%s'", events[1000].Tag)
	}

	results, err := s.Results()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("Reloaded results should have 4 entries, not %d", len(results))
	}
}

func TestBranchEdges(t *testing.T) {
	results := []NodeResult{
		{ID: 0, Edges: []EdgeResult{
			{Neighbor: 1, Weight: 3, State: "Branch"},
			{Neighbor: 2, Weight: 7, State: "Rejected"},
		}},
		{ID: 1, Edges: []EdgeResult{
			{Neighbor: 0, Weight: 3, State: "Branch"},
			{Neighbor: 2, Weight: 1, State: "Branch"},
		}},
		{ID: 2, Edges: []EdgeResult{
			{Neighbor: 0, Weight: 7, State: "Rejected"},
			{Neighbor: 1, Weight: 1, State: "Branch"},
		}},
	}

	tree := BranchEdges(results)

	if len(tree) != 2 {
		t.Fatalf("tree should have 2 edges, not %d", len(tree))
	}
	if tree[0] != (graph.Edge{From: 1, To: 2, Weight: 1}) {
		t.Fatalf("first edge should be 1-2=1, not %s", tree[0])
	}
	if tree[1] != (graph.Edge{From: 0, To: 1, Weight: 3}) {
		t.Fatalf("second edge should be 0-1=3, not %s", tree[1])
	}
}

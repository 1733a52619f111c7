package ghs

import (
	"bufio"
	"context"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/ghs/src/common"
	"github.com/mosaicnetworks/ghs/src/config"
	"github.com/mosaicnetworks/ghs/src/graph"
	"github.com/mosaicnetworks/ghs/src/store"
	"github.com/mosaicnetworks/ghs/src/trace"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// SimulationSuite runs complete simulations on the fixtures.
type SimulationSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *SimulationSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *SimulationSuite) newSimulation(t *graph.Topology, seed int64) *Simulation {
	conf := config.NewTestConfig(s.T(), common.TestLogLevel)
	conf.Seed = seed

	sim := NewSimulation(conf)
	sim.Topology = t
	require.NoError(s.T(), sim.Init())

	return sim
}

func (s *SimulationSuite) run(t *graph.Topology, seed int64) *Result {
	sim := s.newSimulation(t, seed)
	defer sim.Close()

	res, err := sim.Run(s.ctx)
	require.NoError(s.T(), err)
	require.NoError(s.T(), res.Verify(t))

	return res
}

// TestTriangle: the MST is 1-2=1, 0-2=2 and the core edge 1-2 elects 1.
func (s *SimulationSuite) TestTriangle() {
	for seed := int64(0); seed < 5; seed++ {
		res := s.run(graph.Triangle(), seed)
		require.Equal(s.T(), 3, res.Weight)
		require.Equal(s.T(), 1, res.Leader, "leader is the lower end of the core edge")
	}
}

// TestTenNodes: the sample network has an MST of weight 48.
func (s *SimulationSuite) TestTenNodes() {
	for seed := int64(0); seed < 3; seed++ {
		res := s.run(graph.TenNodes(), seed)
		require.Equal(s.T(), 48, res.Weight)
		require.Len(s.T(), res.Tree, 9)
	}
}

func (s *SimulationSuite) TestShapes() {
	shapes := map[string]*graph.Topology{
		"path":     graph.Path(6),
		"ring":     graph.Ring(7),
		"star":     graph.Star(6),
		"complete": graph.Complete(6),
	}

	for name, t := range shapes {
		s.Run(name, func() {
			s.run(t, 1)
		})
	}
}

func (s *SimulationSuite) TestRandom() {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		t := graph.Random(8+i, 10, rnd)
		s.run(t, int64(i))
	}
}

// TestSingleNode: an isolated vertex is its own tree and leader.
func (s *SimulationSuite) TestSingleNode() {
	t, err := graph.NewTopology([][]int{{0}})
	require.NoError(s.T(), err)

	res := s.run(t, 0)
	require.Equal(s.T(), 0, res.Leader)
	require.Empty(s.T(), res.Tree)
	require.Equal(s.T(), 0, res.Messages)
}

func (s *SimulationSuite) TestLatency() {
	conf := config.NewTestConfig(s.T(), common.TestLogLevel)
	conf.MaxLatency = time.Millisecond

	sim := NewSimulation(conf)
	sim.Topology = graph.TenNodes()
	require.NoError(s.T(), sim.Init())
	defer sim.Close()

	res, err := sim.Run(s.ctx)
	require.NoError(s.T(), err)
	require.NoError(s.T(), res.Verify(sim.Topology))
	require.Equal(s.T(), 48, res.Weight)
}

// TestTraceInStore: every node logs its FINISHED event, and the results are
// stored.
func (s *SimulationSuite) TestTraceInStore() {
	sim := s.newSimulation(graph.TenNodes(), 3)
	defer sim.Close()

	_, err := sim.Run(s.ctx)
	require.NoError(s.T(), err)

	results, err := sim.Store.Results()
	require.NoError(s.T(), err)
	require.Len(s.T(), results, 10)

	events, err := sim.Store.Trace()
	require.NoError(s.T(), err)

	finished := map[int]bool{}
	for _, ev := range events {
		if strings.HasPrefix(ev.Tag, "FINISHED with leader") {
			finished[ev.Node] = true
		}
	}
	require.Len(s.T(), finished, 10)
}

func (s *SimulationSuite) TestCancelled() {
	sim := s.newSimulation(graph.TenNodes(), 0)
	defer sim.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	res, err := sim.Run(ctx)
	require.Error(s.T(), err)
	require.Nil(s.T(), res)
}

func TestSimulationSuite(t *testing.T) {
	suite.Run(t, new(SimulationSuite))
}

func TestInvalidTopology(t *testing.T) {
	conf := config.NewTestConfig(t, common.TestLogLevel)

	top, err := graph.FromEdges(4, []graph.Edge{{From: 0, To: 1, Weight: 1}, {From: 2, To: 3, Weight: 2}})
	require.NoError(t, err)

	sim := NewSimulation(conf)
	sim.Topology = top

	if err := sim.Init(); err == nil {
		t.Fatalf("Init should fail on a disconnected topology")
	}
}

func TestTopologyFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "ghs-sim")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "triangle.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("0 1 3\n1 2 1\n0 2 2\n"), 0644))

	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.Topology = path
	conf.Format = "edges"

	sim := NewSimulation(conf)
	require.NoError(t, sim.Init())
	defer sim.Close()

	if sim.Topology.N() != 3 {
		t.Fatalf("topology should have 3 nodes, not %d", sim.Topology.N())
	}

	res, err := sim.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Verify(sim.Topology))
}

// TestBadgerStore runs a simulation with a persistant store and a trace file,
// then reads both back.
func TestBadgerStore(t *testing.T) {
	dir, err := ioutil.TempDir("", "ghs-sim")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.SetDataDir(dir)
	conf.DatabaseDir = filepath.Join(dir, config.DefaultBadgerFile)
	conf.Store = true
	conf.TraceFile = config.DefaultTraceFile

	sim := NewSimulation(conf)
	sim.Topology = graph.TenNodes()
	require.NoError(t, sim.Init())

	res, err := sim.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Verify(sim.Topology))
	require.NoError(t, sim.Close())

	db, err := store.NewBadgerStore(conf.DatabaseDir, nil)
	require.NoError(t, err)
	defer db.Close()

	results, err := db.Results()
	require.NoError(t, err)
	if len(results) != 10 {
		t.Fatalf("store should have 10 results, not %d", len(results))
	}
	for i, r := range results {
		if r.Leader != res.Leader {
			t.Fatalf("results[%d].Leader should be %d, not %d", i, res.Leader, r.Leader)
		}
	}

	events, err := db.Trace()
	require.NoError(t, err)
	require.NotEmpty(t, events)

	f, err := os.Open(conf.TraceFilePath())
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, ok := trace.ParseLine(line); !ok {
			t.Fatalf("trace line should parse: %s", line)
		}
		lines++
	}
	require.NoError(t, scanner.Err())

	if lines != len(events) {
		t.Fatalf("trace file should have %d lines, not %d", len(events), lines)
	}
}

func TestVerifyDetectsWrongTree(t *testing.T) {
	top := graph.Triangle()

	res := &Result{
		Leader: 0,
		Nodes: []store.NodeResult{
			{ID: 0, Halted: true, Edges: []store.EdgeResult{
				{Neighbor: 1, Weight: 3, State: "Branch"},
				{Neighbor: 2, Weight: 2, State: "Branch"},
			}},
			{ID: 1, Halted: true, Edges: []store.EdgeResult{
				{Neighbor: 0, Weight: 3, State: "Branch"},
				{Neighbor: 2, Weight: 1, State: "Rejected"},
			}},
			{ID: 2, Halted: true, Edges: []store.EdgeResult{
				{Neighbor: 0, Weight: 2, State: "Branch"},
				{Neighbor: 1, Weight: 1, State: "Rejected"},
			}},
		},
	}
	res.Tree = store.BranchEdges(res.Nodes)
	res.Weight = 5

	if err := res.Verify(top); err == nil {
		t.Fatalf("Verify should reject a tree of weight 5")
	}
}

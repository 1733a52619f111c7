package ghs

import (
	"context"
	"math/rand"
	"time"

	"github.com/mosaicnetworks/ghs/src/config"
	"github.com/mosaicnetworks/ghs/src/graph"
	"github.com/mosaicnetworks/ghs/src/net"
	"github.com/mosaicnetworks/ghs/src/node"
	"github.com/mosaicnetworks/ghs/src/service"
	"github.com/mosaicnetworks/ghs/src/store"
	"github.com/mosaicnetworks/ghs/src/trace"
	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Simulation runs the GHS algorithm over a topology, one node actor per
// vertex, all connected by in-memory transports.
type Simulation struct {
	Config     *config.Config
	Topology   *graph.Topology
	Store      store.Store
	Transports []*net.InmemTransport
	Nodes      []*node.Node
	Service    *service.Service

	logger *logrus.Entry
	start  time.Time
}

// NewSimulation ...
func NewSimulation(conf *config.Config) *Simulation {
	return &Simulation{
		Config: conf,
	}
}

// Init loads the topology, unless one was already set, and prepares the
// store, the trace sinks, the transports, the nodes and the service.
func (s *Simulation) Init() error {
	s.logger = s.Config.Logger()
	s.start = time.Now()

	if err := s.initTopology(); err != nil {
		return err
	}

	if err := s.initStore(); err != nil {
		return err
	}

	s.initLogger()

	s.initTransports()

	if err := s.initNodes(); err != nil {
		return err
	}

	s.initService()

	return nil
}

func (s *Simulation) initTopology() error {
	if s.Topology == nil {
		if s.Config.Topology == "" {
			s.logger.Debug("No topology file, using the 10-node sample")
			s.Topology = graph.TenNodes()
		} else {
			format, err := graph.ParseFormat(s.Config.Format)
			if err != nil {
				return err
			}

			s.Topology, err = graph.LoadFile(s.Config.Topology, format)
			if err != nil {
				return err
			}
		}
	}

	if err := s.Topology.Validate(); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"nodes": s.Topology.N(),
		"edges": len(s.Topology.Edges()),
	}).Debug("Topology")

	return nil
}

func (s *Simulation) initStore() error {
	if !s.Config.Store {
		s.Store = store.NewInmemStore()

		s.logger.Debug("created new in-mem store")
		return nil
	}

	s.logger.WithField("path", s.Config.DatabaseDir).Debug("Attempting to load or create database")

	dbStore, err := store.NewBadgerStore(s.Config.DatabaseDir, s.storeLogger())
	if err != nil {
		return err
	}
	s.Store = dbStore

	return nil
}

// storeLogger returns a logger for the database that does not share the
// simulation logger, since trace hooks write to the database while holding the
// simulation logger's lock.
func (s *Simulation) storeLogger() *logrus.Entry {
	parent := s.logger.Logger

	logger := logrus.New()
	logger.Out = parent.Out
	logger.Level = config.LogLevel(s.Config.LogLevel)
	logger.Formatter = new(prefixed.TextFormatter)

	// badger reports every table and value log at info
	if logger.Level > logrus.WarnLevel {
		logger.Level = logrus.WarnLevel
	}

	return logger.WithField("prefix", "ghs")
}

// initLogger routes trace events to the store and, when configured, to the
// trace file.
func (s *Simulation) initLogger() {
	logger := s.logger.Logger

	logger.AddHook(trace.NewHook(s.Store, s.start))

	if path := s.Config.TraceFilePath(); path != "" {
		s.logger.WithField("path", path).Debug("Writing trace file")

		logger.AddHook(lfshook.NewHook(
			lfshook.PathMap{logrus.InfoLevel: path},
			&trace.Formatter{Start: s.start},
		))
	}
}

func (s *Simulation) initTransports() {
	n := s.Topology.N()
	seeds := rand.New(rand.NewSource(s.Config.Seed))

	s.Transports = make([]*net.InmemTransport, n)
	for i := 0; i < n; i++ {
		s.Transports[i] = net.NewInmemTransport(i,
			s.Config.MaxLatency,
			seeds.Int63(),
			s.logger.WithField(trace.NodeField, i),
		)
	}

	for _, e := range s.Topology.Edges() {
		s.Transports[e.From].Connect(e.To, s.Transports[e.To])
		s.Transports[e.To].Connect(e.From, s.Transports[e.From])
	}
}

func (s *Simulation) initNodes() error {
	n := s.Topology.N()

	// Node seeds come after the transport seeds of the same generator, so that
	// MaxLatency does not change the wakeup schedule.
	seeds := rand.New(rand.NewSource(s.Config.Seed))
	for i := 0; i < n; i++ {
		seeds.Int63()
	}

	nodeConf := node.NewConfig(
		s.Config.BudgetMin,
		s.Config.BudgetMax,
		s.Config.TickMin,
		s.Config.TickMax,
		s.Config.IdleUnit,
		s.Config.FlushTimeout,
		s.logger.Logger,
	)

	s.Nodes = make([]*node.Node, n)
	for i := 0; i < n; i++ {
		nd, err := node.NewNode(nodeConf,
			i,
			s.Topology.Weights(i),
			s.Transports[i],
			rand.New(rand.NewSource(seeds.Int63())),
		)
		if err != nil {
			return errors.Wrapf(err, "creating node %d", i)
		}
		s.Nodes[i] = nd
	}

	return nil
}

func (s *Simulation) initService() {
	if !s.Config.NoService {
		s.Service = service.NewService(s.Config.ServiceAddr, s.Store, s.Topology, s.logger)
	}
}

// Run starts every node and waits until all of them have returned. The result
// is stored before it is returned. A run that is cancelled, or that exceeds
// Config.RunTimeout, returns no result. When a node failed, the result is
// returned along with its error.
func (s *Simulation) Run(ctx context.Context) (*Result, error) {
	if s.Service != nil {
		go s.Service.Serve()
	}

	if s.Config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.RunTimeout)
		defer cancel()
	}

	begin := time.Now()

	for _, n := range s.Nodes {
		n.RunAsync(ctx)
	}
	for _, n := range s.Nodes {
		<-n.Done()
	}

	duration := time.Since(begin)

	for _, t := range s.Transports {
		if err := t.Close(); err != nil {
			s.logger.WithError(err).Warn("Closing transport")
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "simulation aborted")
	}

	res := newResult(s.Nodes, duration)

	for _, r := range res.Nodes {
		if err := s.Store.SetResult(r); err != nil {
			return nil, err
		}
	}

	for _, n := range s.Nodes {
		if err := n.Err(); err != nil {
			return res, errors.Wrapf(err, "node %d", n.ID())
		}
	}

	s.logger.WithFields(logrus.Fields{
		"leader":   res.Leader,
		"weight":   res.Weight,
		"messages": res.Messages,
		"duration": res.Duration.String(),
	}).Debug("Simulation finished")

	return res, nil
}

// Close releases the store.
func (s *Simulation) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

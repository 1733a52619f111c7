package service

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	cm "github.com/mosaicnetworks/ghs/src/common"
	"github.com/mosaicnetworks/ghs/src/graph"
	"github.com/mosaicnetworks/ghs/src/store"
	"github.com/sirupsen/logrus"
)

// MST compares the spanning tree found by the nodes with the reference one.
type MST struct {
	Edges     []graph.Edge `json:"edges"`
	Weight    int          `json:"weight"`
	Reference []graph.Edge `json:"reference"`
	RefWeight int          `json:"reference_weight"`
}

// Service ...
type Service struct {
	sync.Mutex

	bindAddress string
	store       store.Store
	topology    *graph.Topology
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, s store.Store, t *graph.Topology, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		store:       s,
		topology:    t,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

// registerHandlers registers the API handlers with the service's own ServeMux,
// so that several simulations can be served by the same process.
func (s *Service) registerHandlers() {
	s.logger.Debug("Registering GHS API handlers")
	s.mux.HandleFunc("/results", s.makeHandler(s.GetResults))
	s.mux.HandleFunc("/nodes/", s.makeHandler(s.GetNode))
	s.mux.HandleFunc("/mst", s.makeHandler(s.GetMST))
	s.mux.HandleFunc("/trace", s.makeHandler(s.GetTrace))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// ServeHTTP implements http.Handler
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving GHS API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetResults ...
func (s *Service) GetResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.Results()
	if err != nil {
		s.logger.WithError(err).Error("Retrieving results")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, results)
}

// GetNode ...
func (s *Service) GetNode(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Path[len("/nodes/"):]

	id, err := strconv.Atoi(param)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing node id parameter %s", param)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.store.GetResult(id)
	if err != nil {
		s.logger.WithError(err).Errorf("Retrieving node %d", id)
		if cm.IsStore(err, cm.KeyNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, result)
}

// GetMST ...
func (s *Service) GetMST(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.Results()
	if err != nil {
		s.logger.WithError(err).Error("Retrieving results")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	res := MST{Edges: store.BranchEdges(results)}
	for _, e := range res.Edges {
		res.Weight += e.Weight
	}

	if s.topology != nil {
		ref, weight, err := graph.Kruskal(s.topology)
		if err != nil {
			s.logger.WithError(err).Error("Computing reference MST")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		res.Reference = ref
		res.RefWeight = weight
	}

	writeJSON(w, res)
}

// GetTrace returns the trace events. With ?format=text, it returns the trace
// lines instead.
func (s *Service) GetTrace(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.Trace()
	if err != nil {
		s.logger.WithError(err).Error("Retrieving trace")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain")
		for _, ev := range events {
			w.Write([]byte(ev.String() + "\n"))
		}
		return
	}

	writeJSON(w, events)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(v)
}

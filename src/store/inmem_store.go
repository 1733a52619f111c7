package store

import (
	"sort"
	"strconv"
	"sync"

	cm "github.com/mosaicnetworks/ghs/src/common"
	"github.com/mosaicnetworks/ghs/src/trace"
)

// InmemStore implements the Store interface in memory. Nothing survives the
// process.
type InmemStore struct {
	sync.RWMutex
	results map[int]NodeResult
	trace   []trace.Event
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		results: make(map[int]NodeResult),
	}
}

// SetResult implements the Store interface.
func (s *InmemStore) SetResult(r NodeResult) error {
	s.Lock()
	defer s.Unlock()
	s.results[r.ID] = r
	return nil
}

// GetResult implements the Store interface.
func (s *InmemStore) GetResult(id int) (NodeResult, error) {
	s.RLock()
	defer s.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return NodeResult{}, cm.NewStoreErr("Result", cm.KeyNotFound, strconv.Itoa(id))
	}
	return r, nil
}

// Results implements the Store interface. Results are ordered by node id.
func (s *InmemStore) Results() ([]NodeResult, error) {
	s.RLock()
	defer s.RUnlock()

	res := make([]NodeResult, 0, len(s.results))
	for _, r := range s.results {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })

	return res, nil
}

// AppendTrace implements the Store interface.
func (s *InmemStore) AppendTrace(ev trace.Event) error {
	s.Lock()
	defer s.Unlock()
	s.trace = append(s.trace, ev)
	return nil
}

// Trace implements the Store interface.
func (s *InmemStore) Trace() ([]trace.Event, error) {
	s.RLock()
	defer s.RUnlock()
	res := make([]trace.Event, len(s.trace))
	copy(res, s.trace)
	return res, nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}

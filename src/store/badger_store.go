package store

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/ghs/src/common"
	"github.com/mosaicnetworks/ghs/src/trace"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	resultPrefix = "result"
	tracePrefix  = "trace"

	// traceBatch is the number of trace events buffered before they are
	// written to the database.
	traceBatch = 256
)

// BadgerStore implements the Store interface with a Badger database. Trace
// events are buffered and written in batches, as they arrive from a logging
// hook.
type BadgerStore struct {
	db   *badger.DB
	path string

	traceLock  sync.Mutex
	traceBuf   []trace.Event
	traceIndex int
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path. Trace events are appended after those already in the
// database.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening badger store at %s", path)
	}

	store := &BadgerStore{
		db:   handle,
		path: path,
	}

	count, err := store.dbCountTrace()
	if err != nil {
		handle.Close()
		return nil, err
	}
	store.traceIndex = count

	return store, nil
}

/*******************************************************************************
Keys
*******************************************************************************/

func resultKey(id int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", resultPrefix, id))
}

func traceKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%012d", tracePrefix, index))
}

/*******************************************************************************
Store Methods
*******************************************************************************/

// SetResult implements the Store interface.
func (s *BadgerStore) SetResult(r NodeResult) error {
	return s.dbSetResult(r)
}

// GetResult implements the Store interface.
func (s *BadgerStore) GetResult(id int) (NodeResult, error) {
	r, err := s.dbGetResult(id)
	return r, mapError(err, "Result", strconv.Itoa(id))
}

// Results implements the Store interface.
func (s *BadgerStore) Results() ([]NodeResult, error) {
	return s.dbResults()
}

// AppendTrace implements the Store interface.
func (s *BadgerStore) AppendTrace(ev trace.Event) error {
	s.traceLock.Lock()
	defer s.traceLock.Unlock()

	s.traceBuf = append(s.traceBuf, ev)
	if len(s.traceBuf) < traceBatch {
		return nil
	}
	return s.flushTrace()
}

// Trace implements the Store interface.
func (s *BadgerStore) Trace() ([]trace.Event, error) {
	s.traceLock.Lock()
	err := s.flushTrace()
	s.traceLock.Unlock()
	if err != nil {
		return nil, err
	}

	return s.dbTrace()
}

// StorePath returns the full path of the underlying Badger database directory.
func (s *BadgerStore) StorePath() string {
	return s.path
}

// Close flushes buffered trace events and closes the database.
func (s *BadgerStore) Close() error {
	s.traceLock.Lock()
	err := s.flushTrace()
	s.traceLock.Unlock()

	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// flushTrace must be called with traceLock held.
func (s *BadgerStore) flushTrace() error {
	if len(s.traceBuf) == 0 {
		return nil
	}
	if err := s.dbAppendTrace(s.traceIndex, s.traceBuf); err != nil {
		return err
	}
	s.traceIndex += len(s.traceBuf)
	s.traceBuf = nil
	return nil
}

/*******************************************************************************
DB Methods
*******************************************************************************/

func (s *BadgerStore) dbSetResult(r NodeResult) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	val, err := r.Marshal()
	if err != nil {
		return err
	}

	if err := tx.Set(resultKey(r.ID), val); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BadgerStore) dbGetResult(id int) (NodeResult, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return NodeResult{}, err
	}

	var r NodeResult
	if err := r.Unmarshal(data); err != nil {
		return NodeResult{}, err
	}

	return r, nil
}

func (s *BadgerStore) dbResults() ([]NodeResult, error) {
	res := []NodeResult{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(resultPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(data []byte) error {
				var r NodeResult
				if err := r.Unmarshal(data); err != nil {
					return err
				}
				res = append(res, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return res, err
}

func (s *BadgerStore) dbAppendTrace(start int, events []trace.Event) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	for i, ev := range events {
		val, err := ev.Marshal()
		if err != nil {
			return err
		}
		if err := tx.Set(traceKey(start+i), val); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *BadgerStore) dbTrace() ([]trace.Event, error) {
	res := []trace.Event{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(tracePrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(data []byte) error {
				var ev trace.Event
				if err := ev.Unmarshal(data); err != nil {
					return err
				}
				res = append(res, ev)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return res, err
}

func (s *BadgerStore) dbCountTrace() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(tracePrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func isDBKeyNotFound(err error) bool {
	return err != nil && err.Error() == badger.ErrKeyNotFound.Error()
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}

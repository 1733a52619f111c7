// Package store persists the outcome of a simulation run.
//
// A Store holds one NodeResult per node and the ordered trace events of the
// run. InmemStore keeps everything in memory; BadgerStore writes to a Badger
// database so that a run can be inspected after the process exits (see the
// trace command).
package store

// Package protocol implements the Gallager-Humblet-Spira algorithm for a
// single node.
//
// Each vertex of the graph owns an Engine, built from the vertex's weight
// vector. The Engine holds the node state (level, fragment id, search state,
// find-count, best and test edges, in-branch) and the EdgeTable, where every
// adjacent edge is Basic, Branch or Rejected. It reacts to the eight protocol
// messages:
//
//  CONNECT(level)                      join fragments over an edge
//  INITIATE(level, fragment id, state) broadcast a new fragment identity
//  TEST(level, fragment id)            probe an edge
//  ACCEPT / REJECT                     answer a probe
//  REPORT(best weight)                 convergecast the best outgoing edge
//  CHANGE_ROOT                         move the root towards the best edge
//  TERMINATE(leader)                   spread the leader and halt
//
// The Engine does no I/O of its own. Outgoing messages go through a Sender,
// which also takes messages the Engine cannot process yet (deferred messages)
// and puts them back in the node's inbox. Every significant event is logged as
// a trace entry (see package trace).
//
// When the algorithm terminates, the Branch edges of all the nodes form the
// minimum spanning tree of the graph, and every node agrees on the same
// leader: the lower endpoint of the core edge of the last fragment.
package protocol

// Package node hosts a protocol Engine in its own goroutine.
//
// A Node owns exactly one Engine and one Transport. Its receive loop is:
//
//  - consume the next message, if any, and hand it to the Engine, which runs
//    to completion;
//  - if there is no message and the Engine is still sleeping, do one tick of
//    idle work; once the idle budget is used up, wake the Engine up
//    spontaneously;
//  - if there is no message and the Engine is awake, block until a message
//    arrives.
//
// Messages the Engine defers go back to the tail of the inbox. When every
// queued message has been deferred in a row, the loop blocks until something
// new arrives instead of cycling through them.
//
// Once the Engine halts, the Node waits for all its outgoing deliveries
// (flush) and exits. No memory is shared between nodes; the accessors (Info,
// Edges, GetStats) return snapshots and are safe to call while the node runs.
package node

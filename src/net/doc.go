// Package net carries protocol messages between nodes.
//
// Every node owns a Transport. Sending is asynchronous and never blocks: Send
// returns a DeliveryFuture that resolves when the message has reached the
// target's Mailbox. Receiving is poll-based, so a node can interleave idle work
// with checking for messages, and Ready lets it sleep until something arrives.
//
// The only implementation is InmemTransport, which routes messages between
// transports of the same process. It guarantees FIFO order per ordered pair of
// nodes and no ordering across different senders. An optional maximum latency
// delays each message by a random amount, which shuffles the interleaving of
// senders while keeping every link FIFO.
//
// Mailbox also supports Requeue, used for deferred messages: the message goes
// back to the tail of the queue, behind everything already waiting, so the
// messages that follow it can still change the state of the node.
package net

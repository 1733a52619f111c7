package protocol

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrType classifies the fatal conditions a node can run into while
// executing the protocol.
type ErrType uint32

const (
	// EdgeNotFound means a message referenced a neighbor that is not in the
	// EdgeTable.
	EdgeNotFound ErrType = iota
	// UnknownMessage means a message carried a tag outside of the eight
	// protocol messages.
	UnknownMessage
	// ProtocolViolation means an internal invariant was broken, such as a
	// negative find-count or a decreasing level.
	ProtocolViolation
	// InvalidTopology means the weight vector handed to a node is malformed.
	InvalidTopology
)

// String ...
func (t ErrType) String() string {
	switch t {
	case EdgeNotFound:
		return "Edge Not Found"
	case UnknownMessage:
		return "Unknown Message"
	case ProtocolViolation:
		return "Protocol Violation"
	case InvalidTopology:
		return "Invalid Topology"
	default:
		return "Unknown"
	}
}

// Error is returned by the Engine. None of these errors are recoverable; the
// node that produced one stops running.
type Error struct {
	errType ErrType
	node    int
	detail  string
}

// NewError ...
func NewError(errType ErrType, node int, detail string) Error {
	return Error{
		errType: errType,
		node:    node,
		detail:  detail,
	}
}

// Error implements the error interface
func (e Error) Error() string {
	return fmt.Sprintf("node %d, %s, %s", e.node, e.errType, e.detail)
}

// Type returns the kind of error
func (e Error) Type() ErrType {
	return e.errType
}

// Is checks that an error, possibly wrapped, is a protocol Error of the given
// type.
func Is(err error, t ErrType) bool {
	pErr, ok := errors.Cause(err).(Error)
	return ok && pErr.errType == t
}

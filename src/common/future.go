package common

import "time"

// Future is used to represent an action that may occur in the future.
type Future interface {
	// Error blocks until the future arrives and then returns the error status
	// of the future.
	Error() error
}

// TimedFuture is a Future that can give up waiting.
type TimedFuture interface {
	Future

	// Wait is like Error but returns a timeout error if the future does not
	// arrive within the given duration. A zero timeout waits forever.
	Wait(timeout time.Duration) error
}

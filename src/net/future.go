package net

import (
	"time"

	"github.com/mosaicnetworks/ghs/src/common"
)

var _ common.TimedFuture = (*DeliveryFuture)(nil)

// DeliveryFuture resolves once a message has been placed in the target's
// mailbox, or failed to.
type DeliveryFuture struct {
	err       error
	errCh     chan error
	responded bool
}

func newDeliveryFuture() *DeliveryFuture {
	return &DeliveryFuture{
		errCh: make(chan error, 1),
	}
}

// Error blocks until the delivery completes and returns its status.
func (d *DeliveryFuture) Error() error {
	return d.Wait(0)
}

// Wait is like Error but gives up with ErrDeliveryTimeout after timeout. A zero
// timeout waits forever.
func (d *DeliveryFuture) Wait(timeout time.Duration) error {
	if d.responded {
		return d.err
	}

	var timer <-chan time.Time
	if timeout > 0 {
		timer = time.After(timeout)
	}

	select {
	case err := <-d.errCh:
		d.err = err
		d.responded = true
		return err
	case <-timer:
		return ErrDeliveryTimeout
	}
}

// respond must be called exactly once.
func (d *DeliveryFuture) respond(err error) {
	d.errCh <- err
}

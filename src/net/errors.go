package net

import "errors"

var (
	// ErrMailboxClosed is returned when delivering to a closed mailbox.
	ErrMailboxClosed = errors.New("mailbox closed")

	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrDeliveryTimeout is returned by DeliveryFuture.Wait.
	ErrDeliveryTimeout = errors.New("delivery timed out")
)

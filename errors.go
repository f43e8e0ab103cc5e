package onstomp

import "errors"

var (
	// ErrBrokerError occurs when the broker answers a handshake with an ERROR frame.
	ErrBrokerError = errors.New("onstomp: broker error")

	// ErrDuplicateReceipt occurs when a receipt callback is registered for a
	// receipt id that already has a pending callback.
	ErrDuplicateReceipt = errors.New("onstomp: duplicate receipt")

	// ErrDuplicateSubscription occurs when a subscription callback is registered
	// for an id that already has an active subscription.
	ErrDuplicateSubscription = errors.New("onstomp: duplicate subscription")

	// ErrFrame occurs when the reader returns any error during parsing of a STOMP frame.
	ErrFrame = errors.New("onstomp: invalid frame")

	// ErrMissingHeader occurs when a frame is missing a required header.
	ErrMissingHeader = errors.New("onstomp: missing required header")

	// ErrSessionClosed occurs when a frame is transmitted on a closed session
	// or connection.
	ErrSessionClosed = errors.New("onstomp: session closed")

	// ErrUnsupportedCommand occurs when a command is requested that the
	// negotiated protocol version does not include.  It is always raised before
	// any bytes are transmitted.
	ErrUnsupportedCommand = errors.New("onstomp: command not supported by protocol version")
)

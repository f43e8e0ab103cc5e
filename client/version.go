package client

import (
	"fmt"

	"github.com/disaster37/onstomp"
)

// Version is a STOMP protocol version as negotiated during the handshake.
type Version string

const (
	// V10 is STOMP 1.0.  It has no NACK, no STOMP command, and no heartbeats.
	V10 Version = "1.0"

	// V11 is STOMP 1.1.
	V11 Version = "1.1"

	// V12 is STOMP 1.2.
	V12 Version = "1.2"
)

// Known returns true for versions this package understands.
func (v Version) Known() bool {
	return v == V10 || v == V11 || v == V12
}

// Supports returns true if the version includes command.
func (v Version) Supports(command string) bool {
	switch command {
	case onstomp.CommandNack, onstomp.CommandStomp:
		return v != V10
	}
	return true
}

// SupportsHeartbeat returns true if the version includes heart-beating.
func (v Version) SupportsHeartbeat() bool {
	return v != V10
}

// AckHeaders returns the headers identifying a message in ACK and NACK frames.
//
// STOMP 1.0 requires only message-id.  STOMP 1.1 additionally requires the
// subscription id.  STOMP 1.2 collapsed both into a single id header whose
// value is the MESSAGE frame's ack header; callers pass that value as
// messageID.
func (v Version) AckHeaders(messageID, subscription string) (onstomp.Headers, error) {
	if messageID == "" {
		return nil, fmt.Errorf("%w: %v", onstomp.ErrMissingHeader, onstomp.HeaderMessageID)
	}
	switch v {
	case V11:
		if subscription == "" {
			return nil, fmt.Errorf("%w: %v", onstomp.ErrMissingHeader, onstomp.HeaderSubscription)
		}
		return onstomp.Headers{
			{Name: onstomp.HeaderMessageID, Value: messageID},
			{Name: onstomp.HeaderSubscription, Value: subscription},
		}, nil
	case V12:
		return onstomp.Headers{
			{Name: onstomp.HeaderID, Value: messageID},
		}, nil
	default:
		return onstomp.Headers{
			{Name: onstomp.HeaderMessageID, Value: messageID},
		}, nil
	}
}

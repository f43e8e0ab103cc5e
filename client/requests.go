package client

import (
	"github.com/disaster37/onstomp"
)

// The frame request interface: each method translates a verb into a frame via
// the Connection's version-aware builders, attaches a receipt header when a
// receipt callback was supplied, and hands the frame to Transmit.  Builder
// failures -- an unsupported verb for the negotiated version or a missing
// required field -- return before anything is queued.

// Send transmits body to dest.  headers may add or override application
// headers; receipt, when non-nil, is invoked once with the broker's RECEIPT.
func (s *Session) Send(dest string, body []byte, headers onstomp.Headers, receipt FrameFunc) error {
	f, err := s.conn.SendFrame(dest, body, headers)
	if err != nil {
		return err
	}
	f = withReceipt(f, receipt)
	return s.Transmit(f, Callbacks{Receipt: receipt})
}

// Publish transmits body to dest; it is Send under its common MQ name.
func (s *Session) Publish(dest string, body []byte, headers onstomp.Headers, receipt FrameFunc) error {
	return s.Send(dest, body, headers, receipt)
}

// Subscribe registers fn for MESSAGE frames from dest and transmits the
// SUBSCRIBE frame.  The subscription id is taken from headers when the caller
// chose one and generated from the reserved namespace otherwise; the id in
// effect is returned.
func (s *Session) Subscribe(dest string, fn FrameFunc, headers onstomp.Headers, receipt FrameFunc) (string, error) {
	id := headers.Get(onstomp.HeaderID)
	if id == "" {
		id = s.subscriptions.AutoID()
	}
	f, err := s.conn.SubscribeFrame(dest, id, headers)
	if err != nil {
		return "", err
	}
	f = withReceipt(f, receipt)
	if err = s.Transmit(f, Callbacks{Receipt: receipt, Subscription: fn}); err != nil {
		return "", err
	}
	return id, nil
}

// Unsubscribe transmits UNSUBSCRIBE for the subscription id and removes its
// callback.  A MESSAGE already in flight for id after this call is silently
// dropped by the registry; that race is expected.
func (s *Session) Unsubscribe(id string, headers onstomp.Headers, receipt FrameFunc) error {
	f, err := s.conn.UnsubscribeFrame(id, headers)
	if err != nil {
		return err
	}
	f = withReceipt(f, receipt)
	if err = s.Transmit(f, Callbacks{Receipt: receipt}); err != nil {
		return err
	}
	s.subscriptions.Remove(id)
	return nil
}

// UnsubscribeFrom is Unsubscribe taking the original SUBSCRIBE frame instead
// of the raw id.
func (s *Session) UnsubscribeFrom(subscribe onstomp.Frame, headers onstomp.Headers, receipt FrameFunc) error {
	return s.Unsubscribe(subscribe.Header(onstomp.HeaderID), headers, receipt)
}

// Begin opens transaction tx.
func (s *Session) Begin(tx string, headers onstomp.Headers, receipt FrameFunc) error {
	f, err := s.conn.BeginFrame(tx, headers)
	if err != nil {
		return err
	}
	return s.Transmit(withReceipt(f, receipt), Callbacks{Receipt: receipt})
}

// Commit commits transaction tx.
func (s *Session) Commit(tx string, headers onstomp.Headers, receipt FrameFunc) error {
	f, err := s.conn.CommitFrame(tx, headers)
	if err != nil {
		return err
	}
	return s.Transmit(withReceipt(f, receipt), Callbacks{Receipt: receipt})
}

// Abort rolls back transaction tx.
func (s *Session) Abort(tx string, headers onstomp.Headers, receipt FrameFunc) error {
	f, err := s.conn.AbortFrame(tx, headers)
	if err != nil {
		return err
	}
	return s.Transmit(withReceipt(f, receipt), Callbacks{Receipt: receipt})
}

// Ack acknowledges a MESSAGE frame.  The identifying headers are extracted
// from the frame; Ack(message) and AckID with the same identifiers produce
// identical ACK frames.
func (s *Session) Ack(message onstomp.Frame, headers onstomp.Headers, receipt FrameFunc) error {
	id, subscription := s.messageIdentifiers(message)
	return s.AckID(id, subscription, headers, receipt)
}

// AckID acknowledges a message by its raw identifiers.  Which identifiers are
// required depends on the negotiated version; see Version.AckHeaders.
func (s *Session) AckID(messageID, subscription string, headers onstomp.Headers, receipt FrameFunc) error {
	f, err := s.conn.AckFrame(messageID, subscription, headers)
	if err != nil {
		return err
	}
	return s.Transmit(withReceipt(f, receipt), Callbacks{Receipt: receipt})
}

// Nack rejects a MESSAGE frame.  STOMP 1.0 has no NACK; the call fails with
// onstomp.ErrUnsupportedCommand and nothing is written.
func (s *Session) Nack(message onstomp.Frame, headers onstomp.Headers, receipt FrameFunc) error {
	id, subscription := s.messageIdentifiers(message)
	return s.NackID(id, subscription, headers, receipt)
}

// NackID rejects a message by its raw identifiers.
func (s *Session) NackID(messageID, subscription string, headers onstomp.Headers, receipt FrameFunc) error {
	f, err := s.conn.NackFrame(messageID, subscription, headers)
	if err != nil {
		return err
	}
	return s.Transmit(withReceipt(f, receipt), Callbacks{Receipt: receipt})
}

// Beat transmits a heartbeat.  STOMP 1.0 has no heartbeats.
func (s *Session) Beat() error {
	f, err := s.conn.HeartbeatFrame()
	if err != nil {
		return err
	}
	return s.Transmit(f, Callbacks{})
}

// messageIdentifiers extracts the ack identifiers from a MESSAGE frame.  In
// STOMP 1.2 the MESSAGE's ack header is the identifier; earlier versions use
// message-id plus subscription.
func (s *Session) messageIdentifiers(message onstomp.Frame) (string, string) {
	if s.conn.Version() == V12 {
		if ack := message.Header(onstomp.HeaderAck); ack != "" {
			return ack, message.Header(onstomp.HeaderSubscription)
		}
	}
	return message.Header(onstomp.HeaderMessageID), message.Header(onstomp.HeaderSubscription)
}

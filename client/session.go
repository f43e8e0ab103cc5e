package client

import (
	"fmt"
	"sync"

	"github.com/disaster37/onstomp"
)

// State is the session lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
	Closed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Callbacks carries the optional callbacks registered when a frame is
// transmitted.
type Callbacks struct {
	// Receipt is invoked exactly once with the RECEIPT frame matching the
	// transmitted frame's receipt header.
	Receipt FrameFunc

	// Subscription is invoked with every MESSAGE frame matching the
	// transmitted SUBSCRIBE frame's id header, until unsubscribed.
	Subscription FrameFunc
}

// Session is a client-side STOMP session.
//
// A Session is assembled from explicitly constructed parts: the Connection
// building and queueing frames, the Processor moving bytes in the background,
// the EventBus observing traffic, and the two correlation registries.  The
// public API may be called from any goroutine; the registries and the state
// value each carry their own lock.
//
// Closing a session drops both registries without notifying abandoned
// callbacks; that is a documented limitation, not an accident.
type Session struct {
	// Logger!=nil means session information is logged to the provided Logger.
	Logger onstomp.Logger

	conn          *Connection
	proc          *Processor
	events        *EventBus
	receipts      *ReceiptRegistry
	subscriptions *SubscriptionRegistry

	mu        sync.Mutex
	state     State
	handshake []FrameFunc // transient callbacks awaiting CONNECTED or ERROR
}

// NewSession creates a Session over conn.
//
// The built-in correlation logic is installed on the event bus here: receipt
// and message routing as the first after-receive hook, and the automatic
// close after a flushed receipt-less DISCONNECT as the first after-transmit
// hook.  Hooks appended by the application run after them, in append order.
func NewSession(conn *Connection) *Session {
	s := &Session{
		Logger:        onstomp.NilLogger,
		conn:          conn,
		events:        &EventBus{},
		receipts:      &ReceiptRegistry{},
		subscriptions: &SubscriptionRegistry{},
		state:         Disconnected,
	}
	s.proc = NewProcessor(conn, s)
	s.events.AfterReceive(s.route)
	s.events.AfterTransmit(s.confirmDisconnect)
	return s
}

// Connection returns the session's connection.
func (s *Session) Connection() *Connection { return s.conn }

// Processor returns the session's background processor.
func (s *Session) Processor() *Processor { return s.proc }

// Events returns the session's event bus for appending hooks.
func (s *Session) Events() *EventBus { return s.events }

// Receipts returns the receipt registry; exposed so applications can opt in
// to a TTL or inspect pending counts.
func (s *Session) Receipts() *ReceiptRegistry { return s.receipts }

// Subscriptions returns the subscription registry.
func (s *Session) Subscriptions() *SubscriptionRegistry { return s.subscriptions }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Transmit registers any callbacks for f and hands it to the Connection.
//
// Registration happens before the before-transmit hooks fire and before any
// bytes move, so a broker reply can never arrive ahead of its callback.
// Transmit returns as soon as the frame is queued; a queueing failure (closed
// session) is returned synchronously and is never swallowed.  Actual delivery
// is observed via the after-transmit hooks.
func (s *Session) Transmit(f onstomp.Frame, cb Callbacks) error {
	if err := s.receipts.Add(f, cb.Receipt); err != nil {
		return err
	}
	if cb.Subscription != nil {
		if err := s.subscriptions.Add(f, cb.Subscription); err != nil {
			if cb.Receipt != nil {
				s.receipts.drop(f.Header(onstomp.HeaderReceipt))
			}
			return err
		}
	}
	s.events.FireBeforeTransmit(f)
	if err := s.conn.WriteFrameNonBlock(f); err != nil {
		// The frame never reached the queue; its callbacks must not linger
		// where a later dispatch or retry could trip over them.
		if cb.Receipt != nil {
			s.receipts.drop(f.Header(onstomp.HeaderReceipt))
		}
		if cb.Subscription != nil {
			s.subscriptions.Remove(f.Header(onstomp.HeaderID))
		}
		return err
	}
	return nil
}

// DispatchReceived is invoked by the Processor once per decoded inbound
// frame, in wire-arrival order, on the Processor goroutine.
func (s *Session) DispatchReceived(f onstomp.Frame) {
	s.events.FireBeforeReceive(f)
	s.events.FireAfterReceive(f)
}

// DispatchTransmitted is invoked by the Processor once a frame's bytes have
// been flushed to the transport, on the Processor goroutine.  This is
// distinct from Transmit returning, which only means queued.
func (s *Session) DispatchTransmitted(f onstomp.Frame) {
	s.events.FireAfterTransmit(f)
}

// route is the built-in after-receive hook correlating broker replies with
// the registries.
func (s *Session) route(f onstomp.Frame) {
	switch f.Command {
	case onstomp.CommandReceipt:
		s.receipts.Resolve(f.Header(onstomp.HeaderReceiptID), f)
	case onstomp.CommandMessage:
		s.subscriptions.Dispatch(f.Header(onstomp.HeaderSubscription), f)
	case onstomp.CommandConnected:
		if s.State() == Connecting {
			s.finishHandshake(f)
		}
	case onstomp.CommandError:
		if s.State() == Connecting {
			s.finishHandshake(f)
		}
	}
}

// confirmDisconnect is the built-in after-transmit hook closing the session
// once a DISCONNECT that requested no receipt has been flushed.  When a
// receipt was requested the caller owns the close.
func (s *Session) confirmDisconnect(f onstomp.Frame) {
	if f.Command == onstomp.CommandDisconnect && !f.Headers.Has(onstomp.HeaderReceipt) {
		_ = s.Close()
	}
}

// Connect performs the handshake: the CONNECT frame is written through the
// Connection, the broker's reply is read, the protocol version is taken from
// the CONNECTED frame, and the Processor is started.
//
// Optional await callbacks are invoked with the CONNECTED or ERROR reply
// before the corresponding event hooks fire.
//
// Calling Connect on a session that is already connected is a caller error
// with an undefined outcome; it is a precondition, not an enforced check.
func (s *Session) Connect(headers onstomp.Headers, await ...FrameFunc) error {
	s.setState(Connecting)
	s.mu.Lock()
	s.handshake = append(s.handshake, await...)
	s.mu.Unlock()
	//
	f := s.conn.ConnectFrame(headers)
	s.events.FireBeforeTransmit(f)
	var reply onstomp.Frame
	err := s.conn.writeFrame(f)
	if err == nil {
		// The handshake bypasses the writer goroutine, so CONNECT's
		// after-transmit dispatch happens here; observers see it like any
		// other flushed frame.
		s.DispatchTransmitted(f)
		reply, err = s.conn.readFrame()
	}
	if err != nil {
		s.setState(Disconnected)
		s.mu.Lock()
		s.handshake = nil
		s.mu.Unlock()
		return err
	}
	if err = s.finishHandshake(reply); err != nil {
		return err
	}
	s.proc.Start()
	s.Logger.Infof("session: connected version=%v session=%v",
		s.conn.Version(), reply.Header(onstomp.HeaderSession))
	return nil
}

// finishHandshake applies a CONNECTED or ERROR reply: state transition,
// pending-handshake callbacks, then the lifecycle hooks.
func (s *Session) finishHandshake(reply onstomp.Frame) error {
	s.mu.Lock()
	pending := s.handshake
	s.handshake = nil
	s.mu.Unlock()
	//
	switch reply.Command {
	case onstomp.CommandConnected:
		s.conn.SetVersion(negotiated(reply))
		s.setState(Connected)
		for _, fn := range pending {
			fn(reply)
		}
		s.events.FireConnected(reply)
		return nil
	case onstomp.CommandError:
		s.setState(Disconnected)
		for _, fn := range pending {
			fn(reply)
		}
		s.events.FireConnectionFailed(reply)
		return fmt.Errorf("%w: %v", onstomp.ErrBrokerError, reply.Header(onstomp.HeaderMessage))
	}
	s.setState(Disconnected)
	return fmt.Errorf("%w: unexpected %v during handshake", onstomp.ErrFrame, reply.Command)
}

// Disconnect transmits a DISCONNECT frame.  With a receipt callback the
// frame carries a receipt header and the session stays open until the caller
// closes it; without one the session closes itself once the frame has been
// flushed (see confirmDisconnect).
func (s *Session) Disconnect(headers onstomp.Headers, receipt FrameFunc) error {
	f := s.conn.DisconnectFrame(headers)
	f = withReceipt(f, receipt)
	s.setState(Disconnecting)
	return s.Transmit(f, Callbacks{Receipt: receipt})
}

// DisconnectWithFlush transmits DISCONNECT and then blocks the calling
// goroutine until the Processor reports every previously queued frame
// flushed.  The wait is on the drain, not on the DISCONNECT's receipt; it
// returns even if that receipt never arrives.
func (s *Session) DisconnectWithFlush(headers onstomp.Headers, receipt FrameFunc) error {
	if err := s.Disconnect(headers, receipt); err != nil {
		return err
	}
	s.proc.Join()
	return nil
}

// Close drops the connection handle and clears both registries.  Pending
// receipt and subscription callbacks are discarded without notification.
// The Processor is not stopped explicitly; its goroutines wind down as the
// closed transport drains.  Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	s.state = Closed
	s.mu.Unlock()
	//
	err := s.conn.Close()
	s.receipts.Clear()
	s.subscriptions.Clear()
	s.events.FireDisconnect()
	return err
}

// Shutdown closes the session and additionally stops the Processor, blocking
// until its goroutines have exited.
func (s *Session) Shutdown() error {
	err := s.Close()
	s.proc.Stop()
	return err
}

// withReceipt ensures a frame expecting a receipt callback carries a receipt
// header; caller-supplied headers win when present.
func withReceipt(f onstomp.Frame, receipt FrameFunc) onstomp.Frame {
	if receipt != nil && !f.Headers.Has(onstomp.HeaderReceipt) {
		f.Headers = f.Headers.Append(onstomp.HeaderReceipt, onstomp.ReceiptID())
	}
	return f
}

package client

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/disaster37/onstomp"
	"github.com/disaster37/onstomp/frames"
)

// AcceptVersions is the accept-version header value offered during the
// handshake.
const AcceptVersions = "1.0,1.1,1.2"

// Connection owns frame construction and writes for one STOMP link.
//
// Frames are constructed according to the negotiated protocol version; a verb
// the version lacks fails with onstomp.ErrUnsupportedCommand before any bytes
// are written.
//
// Writes are non-blocking: WriteFrameNonBlock appends to an unbounded queue
// that the Processor's writer goroutine drains.  A buffered channel is not
// enough here because a full buffer would block the caller.
type Connection struct {
	// Logger!=nil means connection information is logged to the provided Logger.
	Logger onstomp.Logger

	rw     io.ReadWriter
	parser *onstomp.Parser

	mu       sync.Mutex
	cond     *sync.Cond
	pending  *queue.Queue
	inflight bool
	closed   bool
	version  Version
}

// NewConnection wraps rw, which is typically a net.Conn, an onstomp.PipeEnd,
// or the WebSocket adapter from NewWebSocketRW.
//
// The version defaults to 1.0 until a handshake negotiates otherwise.
func NewConnection(rw io.ReadWriter) *Connection {
	c := &Connection{
		Logger:  onstomp.NilLogger,
		rw:      rw,
		parser:  onstomp.NewParser(rw),
		pending: queue.New(),
		version: V10,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Dial connects to a STOMP server at addr in the form "host:port".  A non-nil
// tlsConfig dials with TLS.
func Dial(addr string, tlsConfig *tls.Config) (*Connection, error) {
	var conn net.Conn
	var err error
	if tlsConfig != nil {
		conn, err = tls.Dial("tcp", addr, tlsConfig)
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	return NewConnection(conn), nil
}

// Version returns the protocol version currently in effect.
func (c *Connection) Version() Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// SetVersion records the version negotiated by the handshake.
func (c *Connection) SetVersion(v Version) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = v
}

// Connected returns true until Close is called.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close marks the connection closed, wakes any goroutine waiting on the
// queue, and closes the underlying transport when it is an io.Closer.
// Queued frames that were never flushed are dropped.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()
	//
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// WriteFrameNonBlock queues f for transmission and returns immediately.  The
// frame is written to the transport by the Processor.  Writing on a closed
// connection fails with onstomp.ErrSessionClosed.
func (c *Connection) WriteFrameNonBlock(f onstomp.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%w: write %v", onstomp.ErrSessionClosed, f.Command)
	}
	c.pending.Add(f)
	c.cond.Signal()
	return nil
}

// pop blocks until a frame is queued or the connection is closed.  The
// returned bool is false when the connection is closed; the writer goroutine
// uses that to exit.  A successful pop marks a write in flight until wrote is
// called.
func (c *Connection) pop() (onstomp.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pending.Length() == 0 && !c.closed {
		c.cond.Wait()
	}
	if c.closed {
		return onstomp.Frame{}, false
	}
	f := c.pending.Remove().(onstomp.Frame)
	c.inflight = true
	return f, true
}

// wrote clears the in-flight marker set by pop and wakes drain waiters when
// the queue is empty.
func (c *Connection) wrote() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight = false
	if c.pending.Length() == 0 {
		c.cond.Broadcast()
	}
}

// awaitDrain blocks until every queued frame has been flushed to the
// transport, or until the connection closes.
func (c *Connection) awaitDrain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.closed && (c.pending.Length() > 0 || c.inflight) {
		c.cond.Wait()
	}
}

// writeFrame writes f directly to the transport.  Callers are the writer
// goroutine and the handshake; they never overlap because the handshake
// completes before the Processor starts.
func (c *Connection) writeFrame(f onstomp.Frame) error {
	n, err := f.WriteTo(c.rw)
	if err == nil {
		c.Logger.Infof("connection: wrote %v %v byte(s)", f.Command, n)
	}
	return err
}

// readFrame parses the next inbound frame.  There is exactly one reader at
// any time: the handshake before Processor start, the reader goroutine after.
func (c *Connection) readFrame() (onstomp.Frame, error) {
	return c.parser.Frame()
}

// wakeReader unblocks a Read pending on the transport so the reader goroutine
// can observe a stop request.  Transports with CloseRead (net.TCPConn,
// onstomp.PipeEnd) use it; others fall back to a read deadline.
func (c *Connection) wakeReader() error {
	type readCloser interface {
		CloseRead() error
	}
	type readDeadliner interface {
		SetReadDeadline(time.Time) error
	}
	switch t := c.rw.(type) {
	case readCloser:
		return t.CloseRead()
	case readDeadliner:
		return t.SetReadDeadline(time.Now().Add(1 * time.Microsecond))
	}
	return nil
}

// ConnectFrame builds the CONNECT frame opening the handshake.  headers may
// carry login, passcode, host, heart-beat, or any application headers; the
// accept-version header is always set by this method.
func (c *Connection) ConnectFrame(headers onstomp.Headers) onstomp.Frame {
	f := onstomp.Frame{
		Command: onstomp.CommandConnect,
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderAcceptVersion, Value: AcceptVersions},
		},
	}
	f.Headers = f.Headers.Merge(headers)
	return f
}

// SendFrame builds a SEND frame for dest.
func (c *Connection) SendFrame(dest string, body []byte, headers onstomp.Headers) (onstomp.Frame, error) {
	if dest == "" {
		return onstomp.Frame{}, fmt.Errorf("%w: %v", onstomp.ErrMissingHeader, onstomp.HeaderDestination)
	}
	f := frames.Send(dest, body)
	f.Headers = f.Headers.Merge(headers)
	return f, nil
}

// SubscribeFrame builds a SUBSCRIBE frame for dest with subscription id.
func (c *Connection) SubscribeFrame(dest, id string, headers onstomp.Headers) (onstomp.Frame, error) {
	if dest == "" {
		return onstomp.Frame{}, fmt.Errorf("%w: %v", onstomp.ErrMissingHeader, onstomp.HeaderDestination)
	}
	if id == "" {
		return onstomp.Frame{}, fmt.Errorf("%w: %v", onstomp.ErrMissingHeader, onstomp.HeaderID)
	}
	f := frames.Subscribe(dest, "", id)
	f.Headers = f.Headers.Merge(headers)
	return f, nil
}

// UnsubscribeFrame builds an UNSUBSCRIBE frame for subscription id.
func (c *Connection) UnsubscribeFrame(id string, headers onstomp.Headers) (onstomp.Frame, error) {
	if id == "" {
		return onstomp.Frame{}, fmt.Errorf("%w: %v", onstomp.ErrMissingHeader, onstomp.HeaderID)
	}
	f := frames.Unsubscribe("", id)
	f.Headers = f.Headers.Merge(headers)
	return f, nil
}

// BeginFrame builds a BEGIN frame for transaction tx.
func (c *Connection) BeginFrame(tx string, headers onstomp.Headers) (onstomp.Frame, error) {
	return c.transactionFrame(onstomp.CommandBegin, tx, headers)
}

// CommitFrame builds a COMMIT frame for transaction tx.
func (c *Connection) CommitFrame(tx string, headers onstomp.Headers) (onstomp.Frame, error) {
	return c.transactionFrame(onstomp.CommandCommit, tx, headers)
}

// AbortFrame builds an ABORT frame for transaction tx.
func (c *Connection) AbortFrame(tx string, headers onstomp.Headers) (onstomp.Frame, error) {
	return c.transactionFrame(onstomp.CommandAbort, tx, headers)
}

func (c *Connection) transactionFrame(command onstomp.Command, tx string, headers onstomp.Headers) (onstomp.Frame, error) {
	if tx == "" {
		return onstomp.Frame{}, fmt.Errorf("%w: %v", onstomp.ErrMissingHeader, onstomp.HeaderTransaction)
	}
	f := frames.Transaction(command, tx)
	f.Headers = f.Headers.Merge(headers)
	return f, nil
}

// AckFrame builds an ACK frame identifying a message per the negotiated
// version's rules; see Version.AckHeaders.
func (c *Connection) AckFrame(messageID, subscription string, headers onstomp.Headers) (onstomp.Frame, error) {
	return c.ackFrame(onstomp.CommandAck, messageID, subscription, headers)
}

// NackFrame builds a NACK frame.  STOMP 1.0 has no NACK; requesting one fails
// with onstomp.ErrUnsupportedCommand and nothing is transmitted.
func (c *Connection) NackFrame(messageID, subscription string, headers onstomp.Headers) (onstomp.Frame, error) {
	return c.ackFrame(onstomp.CommandNack, messageID, subscription, headers)
}

func (c *Connection) ackFrame(command string, messageID, subscription string, headers onstomp.Headers) (onstomp.Frame, error) {
	version := c.Version()
	if !version.Supports(command) {
		return onstomp.Frame{}, fmt.Errorf("%w: %v in %v", onstomp.ErrUnsupportedCommand, command, version)
	}
	required, err := version.AckHeaders(messageID, subscription)
	if err != nil {
		return onstomp.Frame{}, err
	}
	f := frames.Ack(required)
	if command == onstomp.CommandNack {
		f = frames.Nack(required)
	}
	f.Headers = f.Headers.Merge(headers)
	return f, nil
}

// DisconnectFrame builds a DISCONNECT frame.
func (c *Connection) DisconnectFrame(headers onstomp.Headers) onstomp.Frame {
	f := frames.Disconnect()
	f.Headers = f.Headers.Merge(headers)
	return f
}

// HeartbeatFrame builds the heartbeat frame.  STOMP 1.0 has no heartbeats.
func (c *Connection) HeartbeatFrame() (onstomp.Frame, error) {
	if version := c.Version(); !version.SupportsHeartbeat() {
		return onstomp.Frame{}, fmt.Errorf("%w: heartbeat in %v", onstomp.ErrUnsupportedCommand, version)
	}
	return frames.Heartbeat(), nil
}

// negotiated extracts the protocol version from a CONNECTED frame.  A 1.0
// broker sends no version header.
func negotiated(connected onstomp.Frame) Version {
	v := Version(strings.TrimSpace(connected.Header(onstomp.HeaderVersion)))
	if !v.Known() {
		return V10
	}
	return v
}

package client_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/disaster37/onstomp"
	"github.com/disaster37/onstomp/client"
	"github.com/disaster37/onstomp/frames"
)

// broker is the far end of an onstomp.Pipe acting as a scripted STOMP broker.
//
// Pipe I/O is synchronous so the broker script must run on its own goroutine
// and consume frames in the exact order the session produces them.
type broker struct {
	t      *testing.T
	end    *onstomp.PipeEnd
	parser *onstomp.Parser
}

func newSessionPair(t *testing.T) (*client.Session, *broker) {
	local, remote := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	b := &broker{
		t:      t,
		end:    remote,
		parser: onstomp.NewParser(remote),
	}
	return sess, b
}

// read parses the next frame the session sent.
func (b *broker) read() onstomp.Frame {
	f, err := b.parser.Frame()
	if err != nil {
		b.t.Errorf("broker read: %v", err)
		return onstomp.Frame{}
	}
	return f
}

// write sends a frame to the session.
func (b *broker) write(f onstomp.Frame) {
	if _, err := f.WriteTo(b.end); err != nil {
		b.t.Errorf("broker write: %v", err)
	}
}

func waitFrame(t *testing.T, c <-chan onstomp.Frame) onstomp.Frame {
	t.Helper()
	select {
	case f := <-c:
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for frame")
	}
	return onstomp.Frame{}
}

func waitSignal(t *testing.T, c <-chan struct{}) {
	t.Helper()
	select {
	case <-c:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for signal")
	}
}

func TestSession_SubscribeAckReceiptScenario(t *testing.T) {
	// Full round trip: connect, subscribe with client acks, receive a
	// MESSAGE, ack it, resolve the ACK's receipt, flush-disconnect.
	chk := assert.New(t)
	sess, b := newSessionPair(t)
	//
	done := make(chan struct{})
	go func() {
		defer close(done)
		//
		f := b.read()
		chk.Equal(onstomp.CommandConnect, f.Command)
		chk.Equal(client.AcceptVersions, f.Header(onstomp.HeaderAcceptVersion))
		b.write(frames.Connected("sess-1", "1.1"))
		//
		f = b.read()
		chk.Equal(onstomp.CommandSubscribe, f.Command)
		chk.Equal("client", f.Header(onstomp.HeaderAck))
		id := f.Header(onstomp.HeaderID)
		chk.NotEmpty(id)
		b.write(frames.Message("/queue/a", id, "m-1", []byte("hello")))
		//
		f = b.read()
		chk.Equal(onstomp.CommandAck, f.Command)
		chk.Equal("m-1", f.Header(onstomp.HeaderMessageID))
		chk.Equal(id, f.Header(onstomp.HeaderSubscription))
		b.write(frames.Receipt(f.Header(onstomp.HeaderReceipt)))
		//
		f = b.read()
		chk.Equal(onstomp.CommandDisconnect, f.Command)
	}()
	//
	chk.NoError(sess.Connect(nil))
	chk.Equal(client.V11, sess.Connection().Version())
	chk.Equal(client.Connected, sess.State())
	//
	msgC := make(chan onstomp.Frame, 1)
	id, err := sess.Subscribe("/queue/a", func(f onstomp.Frame) {
		msgC <- f
	}, onstomp.Headers{}.Append(onstomp.HeaderAck, "client"), nil)
	chk.NoError(err)
	//
	msg := waitFrame(t, msgC)
	chk.Equal([]byte("hello"), msg.Body)
	chk.Equal(id, msg.Header(onstomp.HeaderSubscription))
	//
	receiptC := make(chan onstomp.Frame, 1)
	chk.NoError(sess.Ack(msg, nil, func(f onstomp.Frame) {
		receiptC <- f
	}))
	receipt := waitFrame(t, receiptC)
	chk.Equal(onstomp.CommandReceipt, receipt.Command)
	//
	chk.NoError(sess.DisconnectWithFlush(nil, nil))
	chk.Equal(client.Closed, sess.State())
	waitSignal(t, done)
}

func TestSession_DisconnectWithFlushDrainsQueue(t *testing.T) {
	// Every frame queued before DISCONNECT must be flushed, and its
	// after-transmit dispatch run, before DisconnectWithFlush returns.  The
	// broker reads slowly to keep the queue deep.
	chk := assert.New(t)
	sess, b := newSessionPair(t)
	//
	const sends = 20
	done := make(chan struct{})
	go func() {
		defer close(done)
		f := b.read()
		chk.Equal(onstomp.CommandConnect, f.Command)
		b.write(frames.Connected("sess-1", "1.1"))
		for {
			time.Sleep(2 * time.Millisecond)
			if f = b.read(); f.Command == onstomp.CommandDisconnect {
				return
			}
		}
	}()
	//
	var mu sync.Mutex
	var transmitted []string
	sess.Events().AfterTransmit(func(f onstomp.Frame) {
		mu.Lock()
		transmitted = append(transmitted, f.Command)
		mu.Unlock()
	})
	//
	chk.NoError(sess.Connect(nil))
	for n := 0; n < sends; n++ {
		chk.NoError(sess.Send("/queue/flush", []byte("payload"), nil, nil))
	}
	chk.NoError(sess.DisconnectWithFlush(nil, nil))
	//
	mu.Lock()
	got := make([]string, len(transmitted))
	copy(got, transmitted)
	mu.Unlock()
	chk.Len(got, sends+2)
	chk.Equal(onstomp.CommandConnect, got[0])
	for n := 1; n <= sends; n++ {
		chk.Equal(onstomp.CommandSend, got[n])
	}
	chk.Equal(onstomp.CommandDisconnect, got[sends+1])
	//
	// No receipt was requested for the DISCONNECT so the session closed
	// itself once the frame was flushed.
	chk.Equal(client.Closed, sess.State())
	waitSignal(t, done)
}

func TestSession_DisconnectWithFlushIgnoresMissingReceipt(t *testing.T) {
	// The flush wait is on the Processor drain, not on the DISCONNECT's own
	// RECEIPT; the broker here never sends one.
	chk := assert.New(t)
	sess, b := newSessionPair(t)
	//
	done := make(chan struct{})
	go func() {
		defer close(done)
		f := b.read()
		chk.Equal(onstomp.CommandConnect, f.Command)
		b.write(frames.Connected("sess-1", "1.1"))
		f = b.read()
		chk.Equal(onstomp.CommandDisconnect, f.Command)
		chk.NotEmpty(f.Header(onstomp.HeaderReceipt))
		// No RECEIPT is ever written.
	}()
	//
	chk.NoError(sess.Connect(nil))
	receiptCalls := int32(0)
	chk.NoError(sess.DisconnectWithFlush(nil, func(onstomp.Frame) {
		atomic.AddInt32(&receiptCalls, 1)
	}))
	//
	// A receipt was requested so the session does not close itself; the
	// caller owns the close.
	chk.Equal(client.Disconnecting, sess.State())
	chk.Equal(int32(0), atomic.LoadInt32(&receiptCalls))
	chk.NoError(sess.Shutdown())
	waitSignal(t, done)
}

func TestSession_CloseClearsRegistries(t *testing.T) {
	// After Close any dispatch referencing previously registered ids invokes
	// nothing; abandoned callbacks are dropped without notification.
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	//
	calls := 0
	send := onstomp.Frame{
		Command: onstomp.CommandSend,
		Headers: onstomp.Headers{
			{Name: onstomp.HeaderReceipt, Value: "r-1"},
		},
	}
	chk.NoError(sess.Transmit(send, client.Callbacks{Receipt: func(onstomp.Frame) { calls++ }}))
	subscribe := frames.Subscribe("/queue/a", "", "s-1")
	chk.NoError(sess.Transmit(subscribe, client.Callbacks{Subscription: func(onstomp.Frame) { calls++ }}))
	chk.Equal(1, sess.Receipts().Len())
	chk.Equal(1, sess.Subscriptions().Len())
	//
	chk.NoError(sess.Close())
	chk.Equal(client.Closed, sess.State())
	chk.Equal(0, sess.Receipts().Len())
	chk.Equal(0, sess.Subscriptions().Len())
	//
	sess.DispatchReceived(frames.Receipt("r-1"))
	sess.DispatchReceived(frames.Message("/queue/a", "s-1", "m-1", nil))
	chk.Equal(0, calls)
}

func TestSession_AutoSubscriptionIDsDistinct(t *testing.T) {
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	//
	id1, err := sess.Subscribe("/queue/a", func(onstomp.Frame) {}, nil, nil)
	chk.NoError(err)
	id2, err := sess.Subscribe("/queue/b", func(onstomp.Frame) {}, nil, nil)
	chk.NoError(err)
	chk.NotEqual(id1, id2)
	chk.Contains(id1, client.AutoIDPrefix)
	chk.Contains(id2, client.AutoIDPrefix)
	//
	// A caller-chosen id is honored as-is.
	id3, err := sess.Subscribe("/queue/c", func(onstomp.Frame) {}, onstomp.Headers{}.Append(onstomp.HeaderID, "mine"), nil)
	chk.NoError(err)
	chk.Equal("mine", id3)
}

func TestSession_AckFormsNormalize(t *testing.T) {
	// ack(message) and ack(messageID, subscription) must produce identical
	// ACK frames when the version requires both fields.
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	sess.Connection().SetVersion(client.V11)
	//
	var acks []onstomp.Frame
	sess.Events().BeforeTransmit(func(f onstomp.Frame) {
		if f.Command == onstomp.CommandAck {
			acks = append(acks, f)
		}
	})
	//
	msg := frames.Message("/queue/a", "s-1", "m-1", []byte("x"))
	chk.NoError(sess.Ack(msg, nil, nil))
	chk.NoError(sess.AckID("m-1", "s-1", nil, nil))
	chk.Len(acks, 2)
	chk.Equal(acks[0].Headers, acks[1].Headers)
	chk.Equal(onstomp.Headers{
		{Name: onstomp.HeaderMessageID, Value: "m-1"},
		{Name: onstomp.HeaderSubscription, Value: "s-1"},
	}, acks[0].Headers)
}

func TestSession_NackUnsupportedOn10(t *testing.T) {
	// STOMP 1.0 has no NACK: the call fails before transmission and nothing
	// reaches the event bus or the wire.
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	chk.Equal(client.V10, sess.Connection().Version())
	//
	writes := 0
	sess.Events().BeforeTransmit(func(onstomp.Frame) { writes++ })
	//
	msg := frames.Message("/queue/a", "s-1", "m-1", nil)
	chk.ErrorIs(sess.Nack(msg, nil, nil), onstomp.ErrUnsupportedCommand)
	chk.ErrorIs(sess.NackID("m-1", "s-1", nil, nil), onstomp.ErrUnsupportedCommand)
	chk.Equal(0, writes)
	//
	// The failure is not fatal; the session remains usable.
	chk.NoError(sess.AckID("m-1", "", nil, nil))
	chk.Equal(1, writes)
}

func TestSession_BeatVersionRules(t *testing.T) {
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	//
	chk.ErrorIs(sess.Beat(), onstomp.ErrUnsupportedCommand)
	sess.Connection().SetVersion(client.V11)
	chk.NoError(sess.Beat())
}

func TestSession_HandshakeRefused(t *testing.T) {
	chk := assert.New(t)
	sess, b := newSessionPair(t)
	//
	done := make(chan struct{})
	go func() {
		defer close(done)
		f := b.read()
		chk.Equal(onstomp.CommandConnect, f.Command)
		b.write(frames.Error("bad credentials", "", frames.Empty))
	}()
	//
	var failed, awaited onstomp.Frame
	sess.Events().OnConnectionFailed(func(f onstomp.Frame) { failed = f })
	err := sess.Connect(nil, func(f onstomp.Frame) { awaited = f })
	chk.ErrorIs(err, onstomp.ErrBrokerError)
	chk.Equal(client.Disconnected, sess.State())
	chk.Equal(onstomp.CommandError, failed.Command)
	chk.Equal(onstomp.CommandError, awaited.Command)
	waitSignal(t, done)
}

func TestSession_HandshakeCallbacks(t *testing.T) {
	chk := assert.New(t)
	sess, b := newSessionPair(t)
	//
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.read()
		b.write(frames.Connected("sess-9", "1.2"))
		f := b.read()
		chk.Equal(onstomp.CommandDisconnect, f.Command)
	}()
	//
	var connected, awaited onstomp.Frame
	sess.Events().OnConnected(func(f onstomp.Frame) { connected = f })
	chk.NoError(sess.Connect(nil, func(f onstomp.Frame) { awaited = f }))
	chk.Equal(onstomp.CommandConnected, connected.Command)
	chk.Equal(onstomp.CommandConnected, awaited.Command)
	chk.Equal(client.V12, sess.Connection().Version())
	chk.Equal("sess-9", connected.Header(onstomp.HeaderSession))
	//
	chk.NoError(sess.DisconnectWithFlush(nil, nil))
	waitSignal(t, done)
}

func TestSession_TransmitAfterCloseFails(t *testing.T) {
	// A write failure propagates synchronously to the caller; it is never
	// swallowed.
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	chk.NoError(sess.Close())
	chk.ErrorIs(sess.Send("/queue/a", []byte("x"), nil, nil), onstomp.ErrSessionClosed)
}

func TestSession_FailedTransmitRollsBackCallbacks(t *testing.T) {
	// A frame that never reaches the queue must not leave its callbacks
	// registered: a retry would hit the duplicate-receipt check and a later
	// dispatch would invoke a callback for a frame that was never sent.
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	chk.NoError(sess.Close())
	//
	calls := 0
	headers := onstomp.Headers{}.Append(onstomp.HeaderReceipt, "r-x")
	err := sess.Send("/queue/a", []byte("x"), headers, func(onstomp.Frame) { calls++ })
	chk.ErrorIs(err, onstomp.ErrSessionClosed)
	chk.Equal(0, sess.Receipts().Len())
	//
	// The retry fails the same way, not with ErrDuplicateReceipt.
	err = sess.Send("/queue/a", []byte("x"), headers, func(onstomp.Frame) { calls++ })
	chk.ErrorIs(err, onstomp.ErrSessionClosed)
	//
	subHeaders := onstomp.Headers{}.Append(onstomp.HeaderID, "s-x")
	_, err = sess.Subscribe("/queue/a", func(onstomp.Frame) { calls++ }, subHeaders, nil)
	chk.ErrorIs(err, onstomp.ErrSessionClosed)
	chk.Equal(0, sess.Subscriptions().Len())
	//
	sess.DispatchReceived(frames.Receipt("r-x"))
	sess.DispatchReceived(frames.Message("/queue/a", "s-x", "m-1", nil))
	chk.Equal(0, calls)
}

func TestSession_ConnectReachesAfterTransmitHooks(t *testing.T) {
	// The handshake writes CONNECT synchronously, bypassing the writer
	// goroutine; after-transmit observers must still see it.
	chk := assert.New(t)
	sess, b := newSessionPair(t)
	//
	done := make(chan struct{})
	go func() {
		defer close(done)
		f := b.read()
		chk.Equal(onstomp.CommandConnect, f.Command)
		b.write(frames.Connected("sess-1", "1.1"))
	}()
	//
	var transmitted []string
	sess.Events().AfterTransmit(func(f onstomp.Frame) {
		transmitted = append(transmitted, f.Command)
	})
	chk.NoError(sess.Connect(nil))
	chk.Equal([]string{onstomp.CommandConnect}, transmitted)
	waitSignal(t, done)
	chk.NoError(sess.Shutdown())
}

func TestSession_DisconnectWithFlushBeforeConnect(t *testing.T) {
	// Without a running Processor there is no writer to drain the queue; the
	// flush wait must return instead of blocking on frames nothing will flush.
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	//
	done := make(chan struct{})
	go func() {
		defer close(done)
		chk.NoError(sess.DisconnectWithFlush(nil, nil))
	}()
	waitSignal(t, done)
	chk.Equal(client.Disconnecting, sess.State())
}

func TestSession_DuplicateReceiptRejected(t *testing.T) {
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	//
	headers := onstomp.Headers{}.Append(onstomp.HeaderReceipt, "r-dupe")
	chk.NoError(sess.Send("/queue/a", []byte("one"), headers, func(onstomp.Frame) {}))
	err := sess.Send("/queue/a", []byte("two"), headers, func(onstomp.Frame) {})
	chk.ErrorIs(err, onstomp.ErrDuplicateReceipt)
	chk.Equal(1, sess.Receipts().Len())
}

func TestSession_UnsubscribeStopsDispatch(t *testing.T) {
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	//
	calls := 0
	id, err := sess.Subscribe("/queue/a", func(onstomp.Frame) { calls++ }, nil, nil)
	chk.NoError(err)
	sess.DispatchReceived(frames.Message("/queue/a", id, "m-1", nil))
	chk.Equal(1, calls)
	//
	chk.NoError(sess.Unsubscribe(id, nil, nil))
	sess.DispatchReceived(frames.Message("/queue/a", id, "m-2", nil))
	chk.Equal(1, calls)
}

func TestSession_ReceiveHookOrdering(t *testing.T) {
	// Before-receive hooks observe the frame before registry correlation,
	// after-receive hooks appended by the application run after it.
	chk := assert.New(t)
	local, _ := onstomp.Pipe()
	sess := client.NewSession(client.NewConnection(local))
	//
	var order []string
	sess.Events().BeforeReceive(func(onstomp.Frame) { order = append(order, "before") })
	sess.Events().AfterReceive(func(onstomp.Frame) { order = append(order, "after") })
	id, err := sess.Subscribe("/queue/a", func(onstomp.Frame) { order = append(order, "callback") }, nil, nil)
	chk.NoError(err)
	//
	sess.DispatchReceived(frames.Message("/queue/a", id, "m-1", nil))
	chk.Equal([]string{"before", "callback", "after"}, order)
}

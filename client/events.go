package client

import (
	"sync"

	"github.com/disaster37/onstomp"
)

// EventBus holds ordered lists of hooks observing the session's frame traffic
// and lifecycle.  Hooks are invoked synchronously in the order they were
// appended.
//
// Thread affinity is load-bearing: BeforeTransmit hooks run on whichever
// goroutine called Transmit, while receive hooks and AfterTransmit hooks run
// on the Processor goroutine once the frame has actually crossed the wire.
// Hook bodies touching shared state must account for running concurrently
// with caller goroutines.
type EventBus struct {
	mu sync.Mutex

	beforeTransmit   []FrameFunc
	afterTransmit    []FrameFunc
	beforeReceive    []FrameFunc
	afterReceive     []FrameFunc
	connected        []FrameFunc
	connectionFailed []FrameFunc
	disconnected     []func()
}

// BeforeTransmit appends fn to the hooks fired just before a frame is handed
// to the Connection; fn runs on the transmitting goroutine.
func (b *EventBus) BeforeTransmit(fn FrameFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeTransmit = append(b.beforeTransmit, fn)
}

// AfterTransmit appends fn to the hooks fired once a frame's bytes have been
// flushed to the transport; fn runs on the Processor goroutine.  Observers
// needing delivery confirmation belong here, not in BeforeTransmit.
func (b *EventBus) AfterTransmit(fn FrameFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.afterTransmit = append(b.afterTransmit, fn)
}

// BeforeReceive appends fn to the hooks fired for each inbound frame before
// registry correlation; fn runs on the Processor goroutine.
func (b *EventBus) BeforeReceive(fn FrameFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeReceive = append(b.beforeReceive, fn)
}

// AfterReceive appends fn to the hooks fired for each inbound frame after
// registry correlation; fn runs on the Processor goroutine.
func (b *EventBus) AfterReceive(fn FrameFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.afterReceive = append(b.afterReceive, fn)
}

// OnConnected appends fn to the hooks fired with the broker's CONNECTED frame
// when a handshake succeeds.
func (b *EventBus) OnConnected(fn FrameFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = append(b.connected, fn)
}

// OnConnectionFailed appends fn to the hooks fired with the broker's ERROR
// frame when a handshake is refused.
func (b *EventBus) OnConnectionFailed(fn FrameFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectionFailed = append(b.connectionFailed, fn)
}

// OnDisconnect appends fn to the hooks fired when the session closes.
func (b *EventBus) OnDisconnect(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, fn)
}

// fire invokes a snapshot of hooks taken under the lock so a hook appending
// another hook does not mutate the list mid-iteration.
func fire(b *EventBus, hooks *[]FrameFunc, f onstomp.Frame) {
	b.mu.Lock()
	snapshot := make([]FrameFunc, len(*hooks))
	copy(snapshot, *hooks)
	b.mu.Unlock()
	for _, fn := range snapshot {
		fn(f)
	}
}

// FireBeforeTransmit runs the before-transmit hooks with f.
func (b *EventBus) FireBeforeTransmit(f onstomp.Frame) { fire(b, &b.beforeTransmit, f) }

// FireAfterTransmit runs the after-transmit hooks with f.
func (b *EventBus) FireAfterTransmit(f onstomp.Frame) { fire(b, &b.afterTransmit, f) }

// FireBeforeReceive runs the before-receive hooks with f.
func (b *EventBus) FireBeforeReceive(f onstomp.Frame) { fire(b, &b.beforeReceive, f) }

// FireAfterReceive runs the after-receive hooks with f.
func (b *EventBus) FireAfterReceive(f onstomp.Frame) { fire(b, &b.afterReceive, f) }

// FireConnected runs the connection-established hooks with the CONNECTED frame.
func (b *EventBus) FireConnected(f onstomp.Frame) { fire(b, &b.connected, f) }

// FireConnectionFailed runs the connection-failed hooks with the ERROR frame.
func (b *EventBus) FireConnectionFailed(f onstomp.Frame) { fire(b, &b.connectionFailed, f) }

// FireDisconnect runs the disconnect hooks.
func (b *EventBus) FireDisconnect() {
	b.mu.Lock()
	snapshot := make([]func(), len(b.disconnected))
	copy(snapshot, b.disconnected)
	b.mu.Unlock()
	for _, fn := range snapshot {
		fn()
	}
}

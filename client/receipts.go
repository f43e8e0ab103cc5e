package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/disaster37/onstomp"
)

// FrameFunc is a callback receiving a frame.
type FrameFunc func(onstomp.Frame)

type receiptEntry struct {
	fn    FrameFunc
	timer *time.Timer
}

// ReceiptRegistry correlates receipt ids to one-shot callbacks.
//
// Add is called from arbitrary caller goroutines; Resolve runs on the
// Processor goroutine.  A single mutex covers both.
type ReceiptRegistry struct {
	// TTL>0 drops an entry that has not been resolved within TTL, exactly as
	// Clear drops it: silently.  The zero value keeps entries pending until
	// the session closes, which matches broker expectations but means an
	// abandoned callback is never told.
	TTL time.Duration

	mu      sync.Mutex
	pending map[string]receiptEntry
}

// Add stores fn keyed by f's receipt header.  Frames without a receipt header
// are ignored; the broker will never acknowledge them.  A receipt id that is
// already pending is rejected with onstomp.ErrDuplicateReceipt rather than
// silently replacing a callback.
func (r *ReceiptRegistry) Add(f onstomp.Frame, fn FrameFunc) error {
	id := f.Header(onstomp.HeaderReceipt)
	if id == "" || fn == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		r.pending = map[string]receiptEntry{}
	}
	if _, ok := r.pending[id]; ok {
		return fmt.Errorf("%w: %v", onstomp.ErrDuplicateReceipt, id)
	}
	entry := receiptEntry{fn: fn}
	if r.TTL > 0 {
		id := id
		entry.timer = time.AfterFunc(r.TTL, func() {
			r.drop(id)
		})
	}
	r.pending[id] = entry
	return nil
}

// Resolve pops the callback registered for id and invokes it with f.  Unknown
// ids are a silent no-op; brokers may send receipts nobody asked for.  The
// callback runs outside the registry lock.
func (r *ReceiptRegistry) Resolve(id string, f onstomp.Frame) {
	r.mu.Lock()
	entry, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	r.mu.Unlock()
	if ok {
		entry.fn(f)
	}
}

// Clear discards every pending entry without notifying its caller.
func (r *ReceiptRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.pending {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(r.pending, id)
	}
}

// Len returns the number of pending receipts.
func (r *ReceiptRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// drop removes id without invoking its callback; used by TTL expiry and by
// the session rolling back a failed registration.
func (r *ReceiptRegistry) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.pending[id]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(r.pending, id)
	}
}

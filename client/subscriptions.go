package client

import (
	"fmt"
	"sync"

	"github.com/disaster37/onstomp"
)

// AutoIDPrefix is the namespace reserved for generated subscription ids.
// Caller-chosen ids must not use this prefix; the generator's counter makes
// collisions within the namespace impossible for the life of the session.
const AutoIDPrefix = "auto-"

// SubscriptionRegistry correlates subscription ids to standing callbacks.
//
// Add and Remove are called from arbitrary caller goroutines; Dispatch runs
// on the Processor goroutine.  A single mutex covers all of them.
type SubscriptionRegistry struct {
	mu      sync.Mutex
	active  map[string]FrameFunc
	counter uint64
}

// AutoID returns the next generated subscription id.
func (r *SubscriptionRegistry) AutoID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return fmt.Sprintf("%v%v", AutoIDPrefix, r.counter)
}

// Add stores fn keyed by f's id header.  The id is required -- the frame
// request interface generates one when the caller omits it.  An id with an
// active callback is rejected with onstomp.ErrDuplicateSubscription.
func (r *SubscriptionRegistry) Add(f onstomp.Frame, fn FrameFunc) error {
	id := f.Header(onstomp.HeaderID)
	if id == "" {
		return fmt.Errorf("%w: %v", onstomp.ErrMissingHeader, onstomp.HeaderID)
	}
	if fn == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		r.active = map[string]FrameFunc{}
	}
	if _, ok := r.active[id]; ok {
		return fmt.Errorf("%w: %v", onstomp.ErrDuplicateSubscription, id)
	}
	r.active[id] = fn
	return nil
}

// Dispatch invokes the callback registered for id with message.  Unknown ids
// are a silent no-op: a MESSAGE racing an in-flight UNSUBSCRIBE is expected,
// not a fault.  The callback runs outside the registry lock.
func (r *SubscriptionRegistry) Dispatch(id string, message onstomp.Frame) {
	r.mu.Lock()
	fn, ok := r.active[id]
	r.mu.Unlock()
	if ok {
		fn(message)
	}
}

// Remove deletes the callback for id, if any.
func (r *SubscriptionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

// Clear discards every active subscription without notifying its caller.
func (r *SubscriptionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.active {
		delete(r.active, id)
	}
}

// Len returns the number of active subscriptions.
func (r *SubscriptionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

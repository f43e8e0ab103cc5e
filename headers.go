package onstomp

import "sort"

const (
	HeaderAcceptVersion = "accept-version"
	HeaderAck           = "ack"
	HeaderContentLength = "content-length"
	HeaderDestination   = "destination"
	HeaderHeartBeat     = "heart-beat"
	HeaderHost          = "host"
	HeaderID            = "id"
	HeaderLogin         = "login"
	HeaderMessage       = "message"
	HeaderMessageID     = "message-id"
	HeaderPasscode      = "passcode"
	HeaderReceipt       = "receipt"
	HeaderReceiptID     = "receipt-id"
	HeaderServer        = "server"
	HeaderSession       = "session"
	HeaderSubscription  = "subscription"
	HeaderTransaction   = "transaction"
	HeaderVersion       = "version"
)

// Header is a single name:value pair in a frame.
type Header struct {
	Name  string
	Value string
}

// Headers are the frame headers in wire order.
//
// Duplicate names are allowed; STOMP dictates the first occurrence wins when
// reading a value.  All values are strings -- any coercion from other types
// happens once, when the Headers value is constructed, never on access.
type Headers []Header

// HeadersFrom creates Headers from a plain map.  Keys are emitted in sorted
// order so the result is deterministic.
func HeadersFrom(m map[string]string) Headers {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := make(Headers, 0, len(keys))
	for _, k := range keys {
		h = append(h, Header{Name: k, Value: m[k]})
	}
	return h
}

// Index returns the position of the first header named name or -1.
func (h Headers) Index(name string) int {
	for i, pair := range h {
		if pair.Name == name {
			return i
		}
	}
	return -1
}

// Has returns true if a header named name exists.
func (h Headers) Has(name string) bool {
	return h.Index(name) != -1
}

// Get returns the value of the first header named name; missing headers
// return the empty string.
func (h Headers) Get(name string) string {
	if i := h.Index(name); i != -1 {
		return h[i].Value
	}
	return ""
}

// Append adds a header to the end of the list without inspecting existing
// entries; use it when duplicates are intended.
func (h Headers) Append(name, value string) Headers {
	return append(h, Header{Name: name, Value: value})
}

// Set replaces the first header named name and removes any later duplicates.
// If no such header exists the pair is appended.
func (h Headers) Set(name, value string) Headers {
	i := h.Index(name)
	if i == -1 {
		return append(h, Header{Name: name, Value: value})
	}
	h[i].Value = value
	next := h[:i+1]
	for _, pair := range h[i+1:] {
		if pair.Name == name {
			continue
		}
		next = append(next, pair)
	}
	return next
}

// Merge appends each pair from more whose name is not already present.
// Existing values are never overwritten; protocol-required headers set by
// frame constructors always win over caller extras.
func (h Headers) Merge(more Headers) Headers {
	for _, pair := range more {
		if h.Has(pair.Name) {
			continue
		}
		h = append(h, pair)
	}
	return h
}

// Clone returns a copy of h that shares no storage with the original.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	dupe := make(Headers, len(h))
	copy(dupe, h)
	return dupe
}

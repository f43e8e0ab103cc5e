package client

import (
	"io"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketRW adapts a websocket connection to the io.ReadWriter the
// Connection expects; each STOMP frame write becomes one binary message and
// reads stream the concatenated message payloads.
type WebSocketRW struct {
	ws *websocket.Conn

	// r is the reader for the websocket message currently being consumed.
	r io.Reader
}

// NewWebSocketRW wraps ws.
func NewWebSocketRW(ws *websocket.Conn) *WebSocketRW {
	return &WebSocketRW{ws: ws}
}

// DialWebSocket dials a STOMP-over-WebSocket endpoint, e.g.
// "ws://broker:15674/ws", and returns a Connection over it.
func DialWebSocket(url string) (*Connection, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return NewConnection(NewWebSocketRW(ws)), nil
}

// Read implements io.Reader across websocket message boundaries.
func (w *WebSocketRW) Read(b []byte) (int, error) {
	for {
		if w.r == nil {
			_, r, err := w.ws.NextReader()
			if err != nil {
				return 0, err
			}
			w.r = r
		}
		n, err := w.r.Read(b)
		if err == io.EOF {
			// Current message exhausted; move to the next one.
			w.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write implements io.Writer; the slice is sent as one binary message.
func (w *WebSocketRW) Write(b []byte) (int, error) {
	if err := w.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// SetReadDeadline lets the Processor wake a blocked Read during Stop.
func (w *WebSocketRW) SetReadDeadline(t time.Time) error {
	return w.ws.SetReadDeadline(t)
}

// Close implements io.Closer.
func (w *WebSocketRW) Close() error {
	_ = w.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.ws.Close()
}

// Package transport provides the peer variants a client can talk to a server
// through. Every variant implements Peer; the variant is chosen once, when
// the connection is dialed, and never changes for the life of the session.
package transport

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Send once the peer has been closed.
var ErrClosed = errors.New("transport: peer closed")

// DeliveryMode selects the delivery guarantee of a single message.
type DeliveryMode uint8

const (
	// Unreliable messages may be dropped or reordered. Used for
	// high-frequency data such as positions and pings.
	Unreliable DeliveryMode = iota
	// Reliable messages arrive exactly once, in order.
	Reliable
)

func (m DeliveryMode) String() string {
	if m == Reliable {
		return "reliable"
	}
	return "unreliable"
}

// Peer is a live session with one remote endpoint.
//
// OnMessage and OnClose callbacks run on the transport's own goroutine and
// must not block. Messages that arrive before OnMessage is registered are
// held and delivered on registration. OnClose fires at most once, and only
// when the remote side or the transport ends the session; a local Close
// does not fire it.
type Peer interface {
	Send(data []byte, mode DeliveryMode) error
	Close(reason DisconnectReason) error
	OnMessage(fn func(data []byte))
	OnClose(fn func(reason DisconnectReason))
}

const maxBacklog = 256

// hooks stores a peer's callbacks and enforces the delivery rules above.
type hooks struct {
	mu        sync.Mutex
	onMessage func([]byte)
	onClose   func(DisconnectReason)
	backlog   [][]byte

	closed   bool
	notify   bool // closed remotely; OnClose owed
	notified bool
	reason   DisconnectReason
}

func (h *hooks) setOnMessage(fn func([]byte)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMessage = fn
	for _, data := range h.backlog {
		fn(data)
	}
	h.backlog = nil
}

func (h *hooks) setOnClose(fn func(DisconnectReason)) {
	h.mu.Lock()
	h.onClose = fn
	owed := h.notify && !h.notified
	if owed {
		h.notified = true
	}
	reason := h.reason
	h.mu.Unlock()

	if owed {
		fn(reason)
	}
}

// deliver hands an inbound message to the registered handler.
func (h *hooks) deliver(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if h.onMessage == nil {
		if len(h.backlog) < maxBacklog {
			h.backlog = append(h.backlog, data)
		}
		return
	}
	h.onMessage(data)
}

// markClosed records the end of the session. remote selects whether OnClose
// is owed. It reports whether this call was the one that closed the peer.
func (h *hooks) markClosed(reason DisconnectReason, remote bool) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.closed = true
	h.reason = reason
	h.notify = remote
	fn := h.onClose
	if remote && fn != nil {
		h.notified = true
	}
	h.mu.Unlock()

	if remote && fn != nil {
		fn(reason)
	}
	return true
}

func (h *hooks) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Package connection owns the client's single live session with a server.
// It knows nothing about rounds or lobbies: it dials, sends, closes and
// buffers whatever the transport delivers until the update loop drains it.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/1ureka/roundlink/internal/signaling"
	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

// ErrNotConnected is returned by Send when there is no live session.
var ErrNotConnected = errors.New("connection: not connected")

// Dialer opens a peer for an endpoint.
type Dialer func(ctx context.Context, ep Endpoint) (transport.Peer, error)

// NewDialer returns the production dialer. The peer variant is chosen by the
// endpoint kind.
func NewDialer(iceServers []string) Dialer {
	return func(ctx context.Context, ep Endpoint) (transport.Peer, error) {
		switch ep.Kind {
		case KindWebSocket:
			return transport.DialWS(ctx, ep.Address)
		case KindWebRTC:
			return signaling.EstablishAsClient(ctx, ep.Address, iceServers)
		default:
			return nil, fmt.Errorf("connection: unsupported endpoint kind %v", ep.Kind)
		}
	}
}

// EventKind identifies a drained Event.
type EventKind uint8

const (
	EventMessage EventKind = iota + 1
	EventConnected
	EventConnectFailed
)

// Event is one entry of the pending inbox.
type Event struct {
	Kind     EventKind
	Data     []byte   // EventMessage
	Endpoint Endpoint // EventConnected, EventConnectFailed
	Err      error    // EventConnectFailed
}

type pending struct {
	event      Event
	disconnect *transport.DisconnectReason
}

// Manager is the connection lifecycle façade. Transport callbacks only
// append to the pending inbox; Drain applies it on the caller's goroutine.
type Manager struct {
	dial Dialer

	mu         sync.Mutex
	peer       transport.Peer
	endpoint   Endpoint
	generation uint64 // bumped per session; stale callbacks are ignored
	inbox      []pending
	dialing    bool

	onDisconnect func(transport.DisconnectReason)
}

// NewManager creates a manager that opens sessions through dial.
func NewManager(dial Dialer) *Manager {
	return &Manager{dial: dial}
}

// OnDisconnect registers the callback run by Drain when the session is lost.
func (m *Manager) OnDisconnect(fn func(transport.DisconnectReason)) {
	m.mu.Lock()
	m.onDisconnect = fn
	m.mu.Unlock()
}

// Connect dials ep and makes it the live session, closing any previous one.
// It blocks until the peer is ready or ctx ends.
func (m *Manager) Connect(ctx context.Context, ep Endpoint) error {
	m.Close(transport.Reason(transport.Generic, "reconnecting"))

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	peer, err := m.dial(ctx, ep)
	if err != nil {
		return fmt.Errorf("connect %s: %w", ep, err)
	}
	return m.attach(gen, ep, peer)
}

// ConnectAsync dials ep in the background. The outcome is queued as an
// EventConnected or EventConnectFailed and surfaces on the next Drain.
func (m *Manager) ConnectAsync(ctx context.Context, ep Endpoint) {
	m.Close(transport.Reason(transport.Generic, "reconnecting"))

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.dialing = true
	m.mu.Unlock()

	go func() {
		peer, err := m.dial(ctx, ep)
		if err == nil {
			err = m.attach(gen, ep, peer)
			if err == nil {
				return
			}
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.generation {
			return
		}
		m.dialing = false
		m.inbox = append(m.inbox, pending{event: Event{
			Kind: EventConnectFailed, Endpoint: ep, Err: fmt.Errorf("connect %s: %w", ep, err),
		}})
	}()
}

// attach installs peer as the live session unless a newer Connect or a
// Close has superseded the dial.
func (m *Manager) attach(gen uint64, ep Endpoint, peer transport.Peer) error {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		peer.Close(transport.Reason(transport.Generic, "superseded"))
		return errors.New("connection: dial superseded")
	}
	m.peer = peer
	m.endpoint = ep
	m.dialing = false
	m.inbox = append(m.inbox, pending{event: Event{Kind: EventConnected, Endpoint: ep}})
	m.mu.Unlock()

	peer.OnMessage(func(data []byte) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.generation {
			return
		}
		m.inbox = append(m.inbox, pending{event: Event{Kind: EventMessage, Data: data}})
	})
	peer.OnClose(func(reason transport.DisconnectReason) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.generation {
			return
		}
		m.peer = nil
		m.inbox = append(m.inbox, pending{disconnect: &reason})
	})

	util.LogInfo("connected to %s (%s)", ep, ep.Kind)
	return nil
}

// Send hands data to the live peer.
func (m *Manager) Send(data []byte, mode transport.DeliveryMode) error {
	m.mu.Lock()
	peer := m.peer
	m.mu.Unlock()

	if peer == nil {
		return ErrNotConnected
	}
	if err := peer.Send(data, mode); err != nil {
		return err
	}
	util.Stats.AddSent(len(data))
	return nil
}

// Close ends the live session, if any, and discards everything still
// pending. The disconnect callback does not run for a local close.
func (m *Manager) Close(reason transport.DisconnectReason) {
	m.mu.Lock()
	peer := m.peer
	m.peer = nil
	m.generation++
	m.dialing = false
	m.inbox = nil
	m.mu.Unlock()

	if peer != nil {
		util.LogInfo("closing connection: %s", reason)
		if err := peer.Close(reason); err != nil {
			util.LogDebug("close: %v", err)
		}
	}
}

// Connected reports whether a session is live.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peer != nil
}

// Dialing reports whether a ConnectAsync is still in flight.
func (m *Manager) Dialing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dialing
}

// Endpoint returns the endpoint of the current or last session.
func (m *Manager) Endpoint() Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint
}

func (m *Manager) superseded(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation != gen
}

// Drain applies everything queued since the last call, in arrival order.
// Messages and connect outcomes go to handle; a lost session goes to the
// OnDisconnect callback. Both run on the caller's goroutine.
func (m *Manager) Drain(handle func(Event)) {
	m.mu.Lock()
	queued := m.inbox
	m.inbox = nil
	gen := m.generation
	onDisconnect := m.onDisconnect
	m.mu.Unlock()

	for _, p := range queued {
		if m.superseded(gen) {
			// A handler closed or replaced the session; the rest is stale.
			return
		}
		if p.disconnect != nil {
			util.LogWarning("disconnected: %s", *p.disconnect)
			if onDisconnect != nil {
				onDisconnect(*p.disconnect)
			}
			continue
		}
		if p.event.Kind == EventMessage {
			util.Stats.AddRecv(len(p.event.Data))
		}
		handle(p.event)
	}
}

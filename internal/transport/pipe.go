package transport

import (
	"sync"
)

// PipePeer is one end of an in-memory peer pair. Messages sent on one end
// are delivered synchronously to the other end's OnMessage handler.
type PipePeer struct {
	hooks  hooks
	remote *PipePeer

	mu   sync.Mutex
	sent []SentMessage
}

// SentMessage records one message written to a PipePeer.
type SentMessage struct {
	Data []byte
	Mode DeliveryMode
}

var _ Peer = (*PipePeer)(nil)

// Pipe creates a linked pair of peers. Closing either end with a reason
// fires the other end's OnClose with that reason.
func Pipe() (client, server *PipePeer) {
	client = &PipePeer{}
	server = &PipePeer{}
	client.remote = server
	server.remote = client
	return client, server
}

func (p *PipePeer) Send(data []byte, mode DeliveryMode) error {
	if p.hooks.isClosed() {
		return ErrClosed
	}
	buf := append([]byte(nil), data...)

	p.mu.Lock()
	p.sent = append(p.sent, SentMessage{Data: buf, Mode: mode})
	p.mu.Unlock()

	p.remote.hooks.deliver(buf)
	return nil
}

func (p *PipePeer) Close(reason DisconnectReason) error {
	if p.hooks.markClosed(reason, false) {
		p.remote.hooks.markClosed(reason, true)
	}
	return nil
}

func (p *PipePeer) OnMessage(fn func([]byte)) { p.hooks.setOnMessage(fn) }

func (p *PipePeer) OnClose(fn func(DisconnectReason)) { p.hooks.setOnClose(fn) }

// Sent returns every message written to this end so far.
func (p *PipePeer) Sent() []SentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SentMessage(nil), p.sent...)
}

// Closed reports whether this end has been closed from either side.
func (p *PipePeer) Closed() bool { return p.hooks.isClosed() }

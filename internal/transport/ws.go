package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/1ureka/roundlink/internal/util"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 5 * time.Second
	maxCloseText = 123 // control frame payload limit minus the status code
)

// WSPeer is a Peer over a single WebSocket connection. WebSocket offers one
// ordered reliable stream, so both delivery modes share it.
type WSPeer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	hooks   hooks
}

var _ Peer = (*WSPeer)(nil)

// DialWS connects to a WebSocket server and starts reading from it.
func DialWS(ctx context.Context, url string) (*WSPeer, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WS server: %w", err)
	}
	return NewWSPeer(conn), nil
}

// NewWSPeer wraps an established connection and starts its read loop.
func NewWSPeer(conn *websocket.Conn) *WSPeer {
	p := &WSPeer{conn: conn}
	go p.readLoop()
	return p
}

func (p *WSPeer) readLoop() {
	for {
		typ, data, err := p.conn.ReadMessage()
		if err != nil {
			if p.hooks.markClosed(reasonFromReadError(err), true) {
				p.conn.Close()
			}
			return
		}
		if typ != websocket.BinaryMessage {
			util.LogDebug("ignoring non-binary WS message (type %d)", typ)
			continue
		}
		p.hooks.deliver(data)
	}
}

func reasonFromReadError(err error) DisconnectReason {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Text == "" {
			return Reason(Generic, "connection closed (code %d)", closeErr.Code)
		}
		return ParseDisconnectReason(closeErr.Text)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Reason(Timeout, "%v", err)
	}
	return Reason(Generic, "%v", err)
}

// Send writes data as one binary message. mode is ignored.
func (p *WSPeer) Send(data []byte, _ DeliveryMode) error {
	if p.hooks.isClosed() {
		return ErrClosed
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a close frame carrying the reason and closes the connection.
func (p *WSPeer) Close(reason DisconnectReason) error {
	if !p.hooks.markClosed(reason, false) {
		return nil
	}
	text := reason.Encode()
	if len(text) > maxCloseText {
		text = text[:maxCloseText]
	}

	p.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, text)
	err := p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	p.writeMu.Unlock()
	if err != nil {
		util.LogDebug("failed to send close frame: %v", err)
	}
	return p.conn.Close()
}

func (p *WSPeer) OnMessage(fn func([]byte)) { p.hooks.setOnMessage(fn) }

func (p *WSPeer) OnClose(fn func(DisconnectReason)) { p.hooks.setOnClose(fn) }

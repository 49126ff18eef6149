package signaling

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// subprotocol is offered during the upgrade so a server can tell signaling
// sockets apart from direct game sockets on the same path.
const subprotocol = "roundlink-signal"

var dialer = &websocket.Dialer{
	HandshakeTimeout: 10 * time.Second,
	Subprotocols:     []string{subprotocol},
}

// connect dials the server's signaling WebSocket.
func connect(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("signaling server refused the upgrade (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to connect to signaling server: %w", err)
	}
	return conn, nil
}

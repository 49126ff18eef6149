// Package signaling performs the WebSocket-based SDP/ICE exchange that brings
// up a WebRTC peer. The server offers; the client answers.
package signaling

import (
	"context"
	"fmt"

	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

// EstablishAsClient executes the full client-side signaling flow:
//  1. Connect to the server's signaling WebSocket
//  2. Create an RTCPeer
//  3. Answer the server's offer and trickle ICE candidates
//  4. Wait for every DataChannel to open
//  5. Close the WebSocket and return the ready peer
func EstablishAsClient(ctx context.Context, wsURL string, iceServers []string) (*transport.RTCPeer, error) {
	wsConn, err := connect(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer wsConn.Close()
	util.LogDebug("signaling WS connected: %s", wsURL)

	peer, err := transport.NewRTCPeer(ctx, iceServers)
	if err != nil {
		return nil, fmt.Errorf("failed to create RTC peer: %w", err)
	}

	s := &sender{peer: peer, conn: wsConn}
	r := &receiver{peer: peer, conn: wsConn, sender: s}

	peer.OnICECandidate(s.trickle)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.watch() // exits when wsConn is closed by the defer above
	}()

	select {
	case <-peer.Ready():
		util.LogDebug("WebRTC DataChannels established, closing signaling WS")
		return peer, nil

	case err := <-errCh:
		peer.Close(transport.Reason(transport.Generic, "signaling failed"))
		return nil, fmt.Errorf("signaling failed: %w", err)

	case <-ctx.Done():
		peer.Close(transport.Reason(transport.Timeout, "signaling cancelled"))
		return nil, ctx.Err()
	}
}

package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/roundlink/internal/transport"
)

// RejectedError is returned when the server refuses the connection during
// signaling, for example because it is full.
type RejectedError struct {
	Reason transport.DisconnectReason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("signaling: rejected by server: %s", e.Reason)
}

// receiver applies the server's signaling messages to the peer.
type receiver struct {
	peer   *transport.RTCPeer
	conn   *websocket.Conn
	sender *sender

	// Candidates that arrive before the offer are held until it is applied.
	offered bool
	early   []webrtc.ICECandidateInit
}

// watch reads until the connection fails or the server rejects us.
func (r *receiver) watch() error {
	for {
		var msg message
		if err := r.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read signaling message: %w", err)
		}

		switch msg.Type {
		case msgTypeOffer:
			if err := r.sender.answer(msg.SDP); err != nil {
				return err
			}
			r.offered = true
			for _, init := range r.early {
				if err := r.peer.AddICECandidate(init); err != nil {
					return err
				}
			}
			r.early = nil

		case msgTypeCandidate:
			var init webrtc.ICECandidateInit
			if err := json.Unmarshal([]byte(msg.Candidate), &init); err != nil {
				return fmt.Errorf("failed to parse ICE candidate: %w", err)
			}
			if !r.offered {
				r.early = append(r.early, init)
				continue
			}
			if err := r.peer.AddICECandidate(init); err != nil {
				return err
			}

		case msgTypeReject:
			return &RejectedError{Reason: transport.ParseDisconnectReason(msg.Reason)}
		}
	}
}

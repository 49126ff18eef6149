package signaling

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

// sender writes the client's half of the exchange. ICE callbacks fire on
// pion goroutines, so writes are serialized.
type sender struct {
	peer *transport.RTCPeer
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *sender) send(msg message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// answer applies the server's offer and replies with a local answer.
func (s *sender) answer(offer string) error {
	if err := s.peer.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer, SDP: offer,
	}); err != nil {
		return fmt.Errorf("failed to apply offer: %w", err)
	}

	answer, err := s.peer.CreateAnswer()
	if err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}
	if err := s.peer.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("failed to apply answer: %w", err)
	}
	return s.send(message{Type: msgTypeAnswer, SDP: answer.SDP})
}

// trickle forwards a local candidate. Once the channels are open the socket
// may already be gone, which is not worth reporting.
func (s *sender) trickle(c *webrtc.ICECandidate) {
	if c == nil {
		return
	}
	data, err := json.Marshal(c.ToJSON())
	if err != nil {
		return
	}
	if err := s.send(message{Type: msgTypeCandidate, Candidate: string(data)}); err != nil {
		select {
		case <-s.peer.Ready():
		default:
			util.LogDebug("failed to send ICE candidate: %v", err)
		}
	}
}

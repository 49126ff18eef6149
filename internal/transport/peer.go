package transport

import (
	"github.com/pion/webrtc/v4"
)

// Default STUN servers for ICE candidate gathering.
var stunServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// Pre-negotiated DataChannel ids. The server creates the same three
// channels, so neither side waits on OnDataChannel.
const (
	reliableChannelID   uint16 = 0
	unreliableChannelID uint16 = 1
	controlChannelID    uint16 = 2
)

// newPeerConnection creates a PeerConnection configured with the given ICE
// servers, or the default STUN servers when none are given.
func newPeerConnection(iceServers []string) (*webrtc.PeerConnection, error) {
	if len(iceServers) == 0 {
		iceServers = stunServers
	}
	config := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: iceServers},
		},
	}
	return webrtc.NewPeerConnection(config)
}

// newReliableChannel creates an ordered, fully reliable negotiated channel.
func newReliableChannel(pc *webrtc.PeerConnection, label string, id uint16) (*webrtc.DataChannel, error) {
	ordered := true
	negotiated := true

	return pc.CreateDataChannel(label, &webrtc.DataChannelInit{
		Ordered:    &ordered,
		Negotiated: &negotiated,
		ID:         &id,
	})
}

// newUnreliableChannel creates an unordered negotiated channel that never
// retransmits, so a lost message costs nothing and blocks nothing.
func newUnreliableChannel(pc *webrtc.PeerConnection, label string, id uint16) (*webrtc.DataChannel, error) {
	ordered := false
	negotiated := true
	retransmits := uint16(0)

	return pc.CreateDataChannel(label, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		Negotiated:     &negotiated,
		ID:             &id,
		MaxRetransmits: &retransmits,
	})
}

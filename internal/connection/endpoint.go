package connection

import (
	"fmt"
	"strings"
)

// EndpointKind selects the peer variant used to reach an endpoint.
type EndpointKind uint8

const (
	// KindWebSocket speaks the protocol directly over a WebSocket.
	KindWebSocket EndpointKind = iota + 1
	// KindWebRTC signals over a WebSocket, then moves to WebRTC DataChannels.
	KindWebRTC
)

func (k EndpointKind) String() string {
	switch k {
	case KindWebSocket:
		return "websocket"
	case KindWebRTC:
		return "webrtc"
	default:
		return fmt.Sprintf("EndpointKind(%d)", uint8(k))
	}
}

// Endpoint is an immutable descriptor of a reachable server.
type Endpoint struct {
	Kind    EndpointKind
	Address string // ws:// or wss:// URL; for KindWebRTC, the signaling URL
}

const rtcScheme = "rtc+"

// ParseEndpoint parses an endpoint string:
//
//	ws://host:port/path       direct WebSocket
//	wss://host/path           direct WebSocket over TLS
//	rtc+ws://host:port/path   WebRTC, signaled through the given WebSocket
//	rtc+wss://host/path       WebRTC, signaled over TLS
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	kind := KindWebSocket
	if strings.HasPrefix(s, rtcScheme) {
		kind = KindWebRTC
		s = strings.TrimPrefix(s, rtcScheme)
	}
	if !strings.HasPrefix(s, "ws://") && !strings.HasPrefix(s, "wss://") {
		return Endpoint{}, fmt.Errorf("unsupported endpoint %q: want ws://, wss://, rtc+ws:// or rtc+wss://", s)
	}
	if len(s) == len("ws://") || s == "wss://" {
		return Endpoint{}, fmt.Errorf("endpoint %q has no host", s)
	}
	return Endpoint{Kind: kind, Address: s}, nil
}

func (e Endpoint) String() string {
	if e.Kind == KindWebRTC {
		return rtcScheme + e.Address
	}
	return e.Address
}

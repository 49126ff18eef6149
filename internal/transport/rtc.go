package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/1ureka/roundlink/internal/util"
	"github.com/pion/webrtc/v4"
)

// RTCPeer is a Peer over a WebRTC PeerConnection with three pre-negotiated
// DataChannels: an ordered reliable channel, an unordered zero-retransmit
// channel and a reliable control channel that carries the disconnect reason.
//
// Its lifecycle is governed by the DataChannel states and the context passed
// at construction time.
type RTCPeer struct {
	pc         *webrtc.PeerConnection
	reliable   *webrtc.DataChannel
	unreliable *webrtc.DataChannel
	control    *webrtc.DataChannel

	reliableSender   *sender
	unreliableSender *sender
	openSignal       chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	hooks hooks

	mu      sync.RWMutex
	pcState webrtc.PeerConnectionState
}

var _ Peer = (*RTCPeer)(nil)

// NewRTCPeer creates an RTCPeer backed by a new PeerConnection. The caller
// performs signaling through the exposed methods and waits on Ready before
// treating the peer as connected.
func NewRTCPeer(ctx context.Context, iceServers []string) (*RTCPeer, error) {
	pc, err := newPeerConnection(iceServers)
	if err != nil {
		return nil, err
	}

	reliable, err := newReliableChannel(pc, "reliable", reliableChannelID)
	if err != nil {
		pc.Close()
		return nil, err
	}
	unreliable, err := newUnreliableChannel(pc, "unreliable", unreliableChannelID)
	if err != nil {
		pc.Close()
		return nil, err
	}
	control, err := newReliableChannel(pc, "control", controlChannelID)
	if err != nil {
		pc.Close()
		return nil, err
	}

	pCtx, pCancel := context.WithCancel(ctx)

	p := &RTCPeer{
		pc:         pc,
		reliable:   reliable,
		unreliable: unreliable,
		control:    control,
		openSignal: make(chan struct{}),
		ctx:        pCtx,
		cancel:     pCancel,
		pcState:    webrtc.PeerConnectionStateNew,
	}

	// Open gate: all three channels.
	var opened atomic.Int32
	for _, dc := range []*webrtc.DataChannel{reliable, unreliable, control} {
		dc.OnOpen(func() {
			if opened.Add(1) == 3 {
				close(p.openSignal)
			}
		})
	}

	onData := func(msg webrtc.DataChannelMessage) { p.hooks.deliver(msg.Data) }
	reliable.OnMessage(onData)
	unreliable.OnMessage(onData)

	control.OnMessage(func(msg webrtc.DataChannelMessage) {
		p.remoteClosed(ParseDisconnectReason(string(msg.Data)))
	})

	reliable.OnClose(func() {
		util.LogDebug("reliable DataChannel closed")
		p.remoteClosed(Reason(Generic, "data channel closed"))
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state.String())
		p.mu.Lock()
		p.pcState = state
		p.mu.Unlock()

		if state == webrtc.PeerConnectionStateFailed {
			p.remoteClosed(Reason(Timeout, "peer connection failed"))
		}
	})

	p.reliableSender = newSender(pCtx, reliable, p.openSignal, false)
	p.unreliableSender = newSender(pCtx, unreliable, p.openSignal, true)

	return p, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Ready returns a channel that is closed when every DataChannel is open.
func (p *RTCPeer) Ready() <-chan struct{} {
	return p.openSignal
}

// Done returns a channel that is closed when the peer is shut down.
func (p *RTCPeer) Done() <-chan struct{} {
	return p.ctx.Done()
}

// ConnectionState returns the last observed PeerConnection state.
func (p *RTCPeer) ConnectionState() webrtc.PeerConnectionState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pcState
}

// Close tells the remote side why the session ends, then shuts down the
// DataChannels and the PeerConnection.
func (p *RTCPeer) Close(reason DisconnectReason) error {
	if !p.hooks.markClosed(reason, false) {
		return nil
	}
	if p.control.ReadyState() == webrtc.DataChannelStateOpen {
		if err := p.control.SendText(reason.Encode()); err != nil {
			util.LogDebug("failed to send disconnect reason: %v", err)
		}
	}
	return p.shutdown()
}

func (p *RTCPeer) remoteClosed(reason DisconnectReason) {
	if p.hooks.markClosed(reason, true) {
		go p.shutdown()
	}
}

func (p *RTCPeer) shutdown() error {
	p.cancel()
	return errors.Join(
		p.reliable.Close(),
		p.unreliable.Close(),
		p.control.Close(),
		p.pc.Close(),
	)
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateAnswer generates an SDP answer.
func (p *RTCPeer) CreateAnswer() (webrtc.SessionDescription, error) {
	return p.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP.
func (p *RTCPeer) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return p.pc.SetLocalDescription(sdp)
}

// SetRemoteDescription applies the remote SDP.
func (p *RTCPeer) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(sdp)
}

// OnICECandidate registers a callback invoked whenever a new local ICE
// candidate is gathered. A nil candidate signals the end of gathering.
func (p *RTCPeer) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	p.pc.OnICECandidate(fn)
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (p *RTCPeer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

// Send enqueues a copy of data on the channel matching mode.
func (p *RTCPeer) Send(data []byte, mode DeliveryMode) error {
	if p.hooks.isClosed() {
		return ErrClosed
	}
	buf := append([]byte(nil), data...)
	if mode == Unreliable {
		return p.unreliableSender.send(p.ctx, buf)
	}
	return p.reliableSender.send(p.ctx, buf)
}

// OnMessage registers the inbound message callback for both data channels.
func (p *RTCPeer) OnMessage(fn func([]byte)) { p.hooks.setOnMessage(fn) }

// OnClose registers the callback fired when the remote side or the
// connection ends the session.
func (p *RTCPeer) OnClose(fn func(DisconnectReason)) { p.hooks.setOnClose(fn) }

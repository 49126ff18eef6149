package transport

import (
	"context"

	"github.com/1ureka/roundlink/internal/util"
	"github.com/pion/webrtc/v4"
)

const (
	highWaterMark  = 256 * 1024 // pause sending when bufferedAmount exceeds this
	lowWaterMark   = 64 * 1024  // resume sending when bufferedAmount drops below this
	sendBufferSize = 64         // outgoing message channel capacity
)

// sender is a goroutine-based writer that serializes all writes to a single
// DataChannel, adding open-gate and backpressure control.
type sender struct {
	label       string
	lossy       bool // drop instead of block when the inbox is full
	inbox       chan []byte
	drainSignal chan struct{}
}

// newSender creates a sender, wires the backpressure callbacks on dc, and
// starts the background loop. The loop exits when ctx is cancelled.
func newSender(ctx context.Context, dc *webrtc.DataChannel, openSignal <-chan struct{}, lossy bool) *sender {
	s := &sender{
		label:       dc.Label(),
		lossy:       lossy,
		inbox:       make(chan []byte, sendBufferSize),
		drainSignal: make(chan struct{}, 1),
	}

	dc.SetBufferedAmountLowThreshold(uint64(lowWaterMark))
	dc.OnBufferedAmountLow(func() {
		select {
		case s.drainSignal <- struct{}{}:
		default:
		}
	})

	go s.loop(ctx, dc, openSignal)

	return s
}

// loop is the single-writer goroutine. It waits for the channels to open,
// then drains the inbox with backpressure awareness.
func (s *sender) loop(ctx context.Context, dc *webrtc.DataChannel, openSignal <-chan struct{}) {
	select {
	case <-openSignal:
	case <-ctx.Done():
		return
	}

	for {
		select {
		case data := <-s.inbox:
			if dc.BufferedAmount() > uint64(highWaterMark) {
				if s.lossy {
					util.Stats.AddDropped()
					continue
				}
				select {
				case <-s.drainSignal:
				case <-ctx.Done():
					return
				}
			}

			if err := dc.Send(data); err != nil {
				util.LogError("failed to send on %s channel (%d bytes): %v", s.label, len(data), err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// send enqueues a message for transmission. Reliable senders block while
// the inbox is full; lossy senders drop the message instead.
func (s *sender) send(ctx context.Context, data []byte) error {
	if s.lossy {
		select {
		case s.inbox <- data:
		case <-ctx.Done():
			return ErrClosed
		default:
			util.Stats.AddDropped()
		}
		return nil
	}

	select {
	case s.inbox <- data:
		return nil
	case <-ctx.Done():
		return ErrClosed
	}
}

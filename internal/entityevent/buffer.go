// Package entityevent orders the server's entity events. Events travel in
// unreliable packets and may arrive late, twice or out of order; the buffer
// releases them strictly in id order.
package entityevent

import (
	"container/heap"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/util"
)

// maxBuffered bounds how many future events are held while waiting for a gap.
const maxBuffered = 1024

// Buffer reorders events of one round. It is owned by the update goroutine
// and needs no locking.
type Buffer struct {
	expected protocol.SequenceID
	started  bool
	buffer   eventHeap
	pending  map[protocol.SequenceID]bool
}

func NewBuffer() *Buffer {
	return &Buffer{pending: make(map[protocol.SequenceID]bool)}
}

// Reset forgets everything. The next event fed starts the stream.
func (b *Buffer) Reset() {
	b.started = false
	b.buffer = nil
	b.pending = make(map[protocol.SequenceID]bool)
}

// LastReceived is the newest id released in order, which the client
// acknowledges to the server. ok is false before the first event.
func (b *Buffer) LastReceived() (id protocol.SequenceID, ok bool) {
	return b.expected.Prev(), b.started
}

// Buffered returns the number of events waiting for a gap to fill.
func (b *Buffer) Buffered() int { return b.buffer.Len() }

// Feed processes an incoming event and returns all events that can now be
// released in id order. The first event ever fed is accepted as is.
func (b *Buffer) Feed(ev *protocol.EntityEvent) []*protocol.EntityEvent {
	if !b.started {
		b.started = true
		b.expected = ev.ID
	}

	if protocol.IsMoreRecent(b.expected, ev.ID) {
		util.LogDebug("entity event %d already applied (expected %d), ignoring", ev.ID, b.expected)
		return nil
	}

	if ev.ID != b.expected {
		// Future event; hold it unless it is a duplicate.
		if b.pending[ev.ID] {
			return nil
		}
		if b.buffer.Len() >= maxBuffered {
			util.LogWarning("entity event buffer full, dropping event %d", ev.ID)
			return nil
		}
		b.pending[ev.ID] = true
		heap.Push(&b.buffer, ev)
		return nil
	}

	result := []*protocol.EntityEvent{ev}
	b.expected = b.expected.Next()

	for b.buffer.Len() > 0 && b.buffer[0].ID == b.expected {
		next := heap.Pop(&b.buffer).(*protocol.EntityEvent)
		delete(b.pending, next.ID)
		result = append(result, next)
		b.expected = b.expected.Next()
	}

	return result
}

// ---------------------------------------------------------------------------
// eventHeap is a min-heap in freshness order.
// ---------------------------------------------------------------------------

type eventHeap []*protocol.EntityEvent

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return protocol.IsMoreRecent(h[j].ID, h[i].ID) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)        { *h = append(*h, x.(*protocol.EntityEvent)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

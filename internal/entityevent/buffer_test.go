package entityevent

import (
	"testing"

	"github.com/1ureka/roundlink/internal/protocol"
)

func ev(id protocol.SequenceID) *protocol.EntityEvent {
	return &protocol.EntityEvent{ID: id, EntityID: uint16(id)}
}

func ids(events []*protocol.EntityEvent) []protocol.SequenceID {
	out := make([]protocol.SequenceID, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestFeedReordersAcrossWrap(t *testing.T) {
	b := NewBuffer()

	var released []protocol.SequenceID
	for _, id := range []protocol.SequenceID{65534, 0, 1, 65535, 0, 2} {
		released = append(released, ids(b.Feed(ev(id)))...)
	}

	want := []protocol.SequenceID{65534, 65535, 0, 1, 2}
	if len(released) != len(want) {
		t.Fatalf("released %v, want %v", released, want)
	}
	for i := range want {
		if released[i] != want[i] {
			t.Fatalf("released %v, want %v", released, want)
		}
	}
	if last, ok := b.LastReceived(); !ok || last != 2 {
		t.Errorf("LastReceived() = %d, %v; want 2, true", last, ok)
	}
	if b.Buffered() != 0 {
		t.Errorf("Buffered() = %d after the gap closed", b.Buffered())
	}
}

func TestFeedDropsStaleAndDuplicates(t *testing.T) {
	b := NewBuffer()
	b.Feed(ev(10))
	b.Feed(ev(11))

	if got := b.Feed(ev(10)); got != nil {
		t.Errorf("stale event released: %v", ids(got))
	}
	b.Feed(ev(14))
	b.Feed(ev(14))
	if b.Buffered() != 1 {
		t.Errorf("Buffered() = %d, duplicate held twice", b.Buffered())
	}

	got := b.Feed(ev(12))
	if len(got) != 1 {
		t.Errorf("released %v before 13 arrived", ids(got))
	}
	got = b.Feed(ev(13))
	if len(got) != 2 || got[1].ID != 14 {
		t.Errorf("released %v, want [13 14]", ids(got))
	}
}

func TestResetStartsNewStream(t *testing.T) {
	b := NewBuffer()
	b.Feed(ev(100))
	b.Feed(ev(105))
	b.Reset()

	if _, ok := b.LastReceived(); ok {
		t.Error("LastReceived ok after Reset")
	}
	if got := b.Feed(ev(3)); len(got) != 1 {
		t.Errorf("first event after Reset not accepted: %v", ids(got))
	}
}

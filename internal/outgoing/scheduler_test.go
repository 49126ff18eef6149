package outgoing

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/transport"
)

type fakeSource struct {
	inRound bool
	round   RoundUpdate
}

func (f *fakeSource) InRound() bool { return f.inRound }

func (f *fakeSource) LobbyUpdate() LobbyUpdate {
	return LobbyUpdate{
		Sync:        protocol.ClientLobbySync{LobbyID: 3, LastRecvChatID: 1, ClientListID: 2},
		Preferences: protocol.Preferences{Name: "Kastner", Job: "captain", Team: "a"},
	}
}

func (f *fakeSource) RoundUpdate() RoundUpdate { return f.round }

type sentPacket struct {
	data []byte
	mode transport.DeliveryMode
}

type recorder struct{ packets []sentPacket }

func (r *recorder) send(data []byte, mode transport.DeliveryMode) error {
	r.packets = append(r.packets, sentPacket{append([]byte(nil), data...), mode})
	return nil
}

const (
	testMTU    = 1200
	testBudget = 1192
	testTick   = 150 * time.Millisecond
)

func newTestScheduler(src Source) (*Scheduler, *recorder, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	return NewScheduler(clock, testTick, testMTU, testBudget, src, rec.send), rec, clock
}

// lobbyChatIDs decodes a lobby update and returns its chat ids in order.
func lobbyChatIDs(t *testing.T, data []byte) []protocol.SequenceID {
	t.Helper()
	h, d, err := protocol.SplitClientMessage(data)
	if err != nil || h != protocol.ClientUpdateLobby {
		t.Fatalf("header = %v, err = %v", h, err)
	}
	var ids []protocol.SequenceID
	err = protocol.ReadSegments(d, func(tag protocol.LobbySegment, sd *protocol.Decoder) (protocol.SegmentAction, error) {
		if tag == protocol.LobbyChatMessage {
			m, err := protocol.DecodeChatMessage(sd)
			if err != nil {
				return protocol.StopReading, err
			}
			ids = append(ids, m.ID)
		}
		return protocol.Continue, nil
	})
	if err != nil {
		t.Fatalf("ReadSegments: %v", err)
	}
	return ids
}

func TestChatBatchingUnderMTU(t *testing.T) {
	s, rec, clock := newTestScheduler(&fakeSource{})

	const total = 10
	text := strings.Repeat("x", 190)
	for i := 0; i < total; i++ {
		s.Chat.Enqueue(protocol.ChatDefault, "Kastner", text)
	}

	if err := s.Update(); err != nil {
		t.Fatal(err)
	}
	first := lobbyChatIDs(t, rec.packets[0].data)
	if len(first) == 0 || len(first) >= total {
		t.Fatalf("first packet carried %d messages; want a proper prefix", len(first))
	}
	if len(rec.packets[0].data) > testBudget {
		t.Errorf("packet is %d bytes, budget %d", len(rec.packets[0].data), testBudget)
	}
	if rec.packets[0].mode != transport.Reliable {
		t.Error("chat-carrying packet not sent reliably")
	}

	// Same tick: nothing new is sent.
	s.Update()
	if len(rec.packets) != 1 {
		t.Fatalf("sent %d packets within one tick", len(rec.packets))
	}

	// Unacknowledged chat is resent.
	clock.Advance(testTick)
	s.Update()
	if resent := lobbyChatIDs(t, rec.packets[1].data); len(resent) != len(first) || resent[0] != first[0] {
		t.Errorf("resend = %v, want %v", resent, first)
	}

	// Once acknowledged, the next tick carries the remainder.
	var received []protocol.SequenceID
	received = append(received, first...)
	for tick := 0; len(received) < total && tick < 10; tick++ {
		s.Acknowledge(received[len(received)-1])
		clock.Advance(testTick)
		s.Update()
		received = append(received, lobbyChatIDs(t, rec.packets[len(rec.packets)-1].data)...)
	}

	if len(received) != total {
		t.Fatalf("received %v, want %d messages", received, total)
	}
	for i, id := range received {
		if id != protocol.SequenceID(i+1) {
			t.Fatalf("received %v: order broken or message duplicated", received)
		}
	}

	s.Acknowledge(total)
	clock.Advance(testTick)
	s.Update()
	last := rec.packets[len(rec.packets)-1]
	if ids := lobbyChatIDs(t, last.data); len(ids) != 0 {
		t.Errorf("acknowledged chat resent: %v", ids)
	}
	if last.mode != transport.Unreliable {
		t.Error("packet without chat sent reliably")
	}
}

func TestPruneIncludesAcknowledgedID(t *testing.T) {
	var q ChatQueue
	for i := 0; i < 4; i++ {
		q.Enqueue(protocol.ChatDefault, "a", "b")
	}
	if n := q.Prune(2); n != 2 {
		t.Errorf("Prune(2) dropped %d, want 2", n)
	}
	if q.Pending()[0].ID != 3 {
		t.Errorf("head = %d, want 3", q.Pending()[0].ID)
	}
	if n := q.Prune(1); n != 0 {
		t.Errorf("stale ack dropped %d messages", n)
	}
}

func TestChatTextIsCapped(t *testing.T) {
	var q ChatQueue
	m := q.Enqueue(protocol.ChatDefault, "a", strings.Repeat("é", MaxChatLength))
	if len(m.Text) > MaxChatLength {
		t.Errorf("text is %d bytes", len(m.Text))
	}
	if !strings.HasSuffix(m.Text, "é") {
		t.Error("text cut inside a rune")
	}
}

func TestOversizedPacketIsNotSent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	s := NewScheduler(clock, testTick, 16, 16, &fakeSource{}, rec.send)

	err := s.Update()
	if !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("Update() = %v, want ErrPacketTooLarge", err)
	}
	if len(rec.packets) != 0 {
		t.Error("oversized packet was sent")
	}
}

func TestRoundUpdateSegments(t *testing.T) {
	src := &fakeSource{
		inRound: true,
		round: RoundUpdate{
			Sync:   protocol.ClientRoundSync{LastRecvChatID: 4, HasEntityEvents: true, LastRecvEntityEventID: 9},
			Input:  &protocol.CharacterInput{Keys: 0x5, AimX: 1, AimY: -1},
			Camera: &protocol.Camera{X: 10, Y: 20},
		},
	}
	s, rec, _ := newTestScheduler(src)
	s.Chat.Enqueue(protocol.ChatTeam, "a", "hold the line")
	s.Events.Enqueue(7, []byte{1})
	s.Events.Enqueue(7, []byte{2})

	if err := s.Update(); err != nil {
		t.Fatal(err)
	}

	h, d, _ := protocol.SplitClientMessage(rec.packets[0].data)
	if h != protocol.ClientUpdateInGame {
		t.Fatalf("header = %v", h)
	}
	var tags []protocol.RoundSegment
	protocol.ReadSegments(d, func(tag protocol.RoundSegment, sd *protocol.Decoder) (protocol.SegmentAction, error) {
		tags = append(tags, tag)
		return protocol.Continue, nil
	})

	want := []protocol.RoundSegment{
		protocol.RoundSyncIDs, protocol.RoundCharacterInput, protocol.RoundCamera,
		protocol.RoundChatMessage, protocol.RoundEntityEvent, protocol.RoundEntityEvent,
	}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tags = %v, want %v", tags, want)
		}
	}
	if rec.packets[0].mode != transport.Reliable {
		t.Error("packet with events not sent reliably")
	}
	if s.Events.Len() != 0 {
		t.Errorf("%d sent events still queued", s.Events.Len())
	}
}

func TestEventsThatDoNotFitWait(t *testing.T) {
	s, rec, clock := newTestScheduler(&fakeSource{inRound: true})
	for i := 0; i < 20; i++ {
		s.Events.Enqueue(1, make([]byte, 100))
	}

	s.Update()
	h, d, _ := protocol.SplitClientMessage(rec.packets[0].data)
	if h != protocol.ClientUpdateInGame {
		t.Fatalf("header = %v", h)
	}
	var sent []protocol.SequenceID
	protocol.ReadSegments(d, func(tag protocol.RoundSegment, sd *protocol.Decoder) (protocol.SegmentAction, error) {
		if tag == protocol.RoundEntityEvent {
			ev, err := protocol.DecodeEntityEvent(sd)
			if err != nil {
				return protocol.StopReading, err
			}
			sent = append(sent, ev.ID)
		}
		return protocol.Continue, nil
	})

	if len(sent) == 0 || len(sent) == 20 {
		t.Fatalf("first packet carried %d events", len(sent))
	}
	if s.Events.Len() != 20-len(sent) {
		t.Errorf("queue holds %d, want %d", s.Events.Len(), 20-len(sent))
	}
	if next := s.Events.Pending()[0].ID; next != sent[len(sent)-1]+1 {
		t.Errorf("next queued event = %d after sending up to %d", next, sent[len(sent)-1])
	}

	clock.Advance(testTick)
	s.Update()
	if len(rec.packets) != 2 {
		t.Fatal("second tick sent nothing")
	}
}

// Package outgoing builds the client's periodic update packets. Once per
// tick it writes either a lobby update or an in-round update, fills the
// remaining room with queued chat, and hands the packet to the connection.
package outgoing

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

// ErrPacketTooLarge means a built packet exceeded the MTU. It is a bug in
// the builder, never a condition to recover from by truncating.
var ErrPacketTooLarge = errors.New("outgoing: packet exceeds MTU")

// LobbyUpdate is what the client reports while in the lobby.
type LobbyUpdate struct {
	Sync        protocol.ClientLobbySync
	Preferences protocol.Preferences
}

// RoundUpdate is what the client reports while in a round. Input and
// Camera are nil when the client controls no character.
type RoundUpdate struct {
	Sync   protocol.ClientRoundSync
	Input  *protocol.CharacterInput
	Camera *protocol.Camera
}

// Source supplies the state a tick's packet is built from.
type Source interface {
	// InRound reports whether the round is running and its view is shown.
	InRound() bool
	LobbyUpdate() LobbyUpdate
	RoundUpdate() RoundUpdate
}

// SendFunc delivers a finished packet.
type SendFunc func(data []byte, mode transport.DeliveryMode) error

// Scheduler builds and sends one update packet per tick interval.
type Scheduler struct {
	clock    clockwork.Clock
	interval time.Duration
	next     time.Time

	mtu    int
	budget int // mtu minus safety margin; the chat/event fill limit

	Chat   ChatQueue
	Events EventQueue
	ack    protocol.SequenceID
	acked  bool
	source Source
	send   SendFunc
	enc    *protocol.Encoder

	eventsWritten int
}

// NewScheduler creates a scheduler. budget is the byte limit up to which
// optional content is appended; mtu is the hard ceiling.
func NewScheduler(clock clockwork.Clock, interval time.Duration, mtu, budget int, source Source, send SendFunc) *Scheduler {
	return &Scheduler{
		clock:    clock,
		interval: interval,
		mtu:      mtu,
		budget:   budget,
		source:   source,
		send:     send,
		enc:      protocol.NewEncoder(),
	}
}

// Update sends a packet if the tick interval has elapsed since the last one.
func (s *Scheduler) Update() error {
	now := s.clock.Now()
	if now.Before(s.next) {
		return nil
	}
	s.next = now.Add(s.interval)
	return s.Flush()
}

// Acknowledge records the newest chat id the server has received.
func (s *Scheduler) Acknowledge(ack protocol.SequenceID) {
	if !s.acked || protocol.IsMoreRecent(ack, s.ack) {
		s.ack = ack
		s.acked = true
	}
}

// ResetSession clears chat and acknowledgement state for a new session.
func (s *Scheduler) ResetSession() {
	s.Chat.Reset()
	s.Events.Reset()
	s.ack = 0
	s.acked = false
	s.next = time.Time{}
}

// Flush prunes acknowledged chat, then builds and sends a packet now.
func (s *Scheduler) Flush() error {
	if s.acked {
		s.Chat.Prune(s.ack)
	}

	var (
		data []byte
		err  error
	)
	s.eventsWritten = 0
	if s.source.InRound() {
		data, err = s.BuildRound(s.source.RoundUpdate())
	} else {
		data, err = s.BuildLobby(s.source.LobbyUpdate())
	}
	if err != nil {
		return err
	}

	// Packets carrying chat or events go reliable; the rest may be lost.
	mode := transport.Unreliable
	if s.Chat.Len() > 0 || s.eventsWritten > 0 {
		mode = transport.Reliable
	}
	if err := s.send(data, mode); err != nil {
		return err
	}
	s.Events.drop(s.eventsWritten)
	return nil
}

// BuildLobby writes a lobby update packet.
func (s *Scheduler) BuildLobby(u LobbyUpdate) ([]byte, error) {
	s.enc.Reset()
	s.enc.WriteByte(byte(protocol.ClientUpdateLobby))
	w := protocol.NewSegmentWriter[protocol.LobbySegment](s.enc)

	if err := w.StartNewSegment(protocol.LobbySyncIDs); err != nil {
		return nil, err
	}
	u.Sync.Encode(s.enc)

	if err := w.StartNewSegment(protocol.LobbyPreferences); err != nil {
		return nil, err
	}
	u.Preferences.Encode(s.enc)

	if err := s.appendChat(w.Count, func() error { return w.StartNewSegment(protocol.LobbyChatMessage) }); err != nil {
		return nil, err
	}
	if err := w.Finish(); err != nil {
		return nil, err
	}
	return s.finish()
}

// BuildRound writes an in-round update packet. Queued entity events that
// fit after the chat are included and leave the queue once Flush has sent
// the packet.
func (s *Scheduler) BuildRound(u RoundUpdate) ([]byte, error) {
	s.enc.Reset()
	s.eventsWritten = 0
	s.enc.WriteByte(byte(protocol.ClientUpdateInGame))
	w := protocol.NewSegmentWriter[protocol.RoundSegment](s.enc)

	if err := w.StartNewSegment(protocol.RoundSyncIDs); err != nil {
		return nil, err
	}
	u.Sync.Encode(s.enc)

	if u.Input != nil {
		if err := w.StartNewSegment(protocol.RoundCharacterInput); err != nil {
			return nil, err
		}
		u.Input.Encode(s.enc)
	}
	if u.Camera != nil {
		if err := w.StartNewSegment(protocol.RoundCamera); err != nil {
			return nil, err
		}
		u.Camera.Encode(s.enc)
	}

	if err := s.appendChat(w.Count, func() error { return w.StartNewSegment(protocol.RoundChatMessage) }); err != nil {
		return nil, err
	}

	for _, ev := range s.Events.Pending() {
		if !s.fits(w.Count(), ev.EncodedSize()) {
			break
		}
		if err := w.StartNewSegment(protocol.RoundEntityEvent); err != nil {
			return nil, err
		}
		ev.Encode(s.enc)
		s.eventsWritten++
	}

	if err := w.Finish(); err != nil {
		return nil, err
	}
	return s.finish()
}

// appendChat appends queued chat in FIFO order while the next message still
// fits the budget. Messages are never split; what does not fit waits.
func (s *Scheduler) appendChat(count func() int, start func() error) error {
	for _, m := range s.Chat.Pending() {
		if !s.fits(count(), m.EncodedSize()) {
			break
		}
		if err := start(); err != nil {
			return err
		}
		m.Encode(s.enc)
	}
	return nil
}

func (s *Scheduler) fits(segments, payload int) bool {
	if segments >= 255 {
		return false
	}
	return s.enc.Len()+protocol.SegmentHeaderSize+payload <= s.budget
}

func (s *Scheduler) finish() ([]byte, error) {
	if s.enc.Len() > s.mtu {
		err := fmt.Errorf("%w: %d > %d bytes", ErrPacketTooLarge, s.enc.Len(), s.mtu)
		util.LogError("%v", err)
		return nil, err
	}
	return s.enc.Bytes(), nil
}

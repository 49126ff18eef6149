package protocol

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/1ureka/roundlink/internal/util"
)

// Segment table layout, following the packet header:
//
//	count:u8 | tag:u8 length:u16 payload[length] | tag:u8 length:u16 payload[length] | ...
//
// The count and each length are patched in when the writer closes them, so
// a reader always knows where the next segment starts.
const (
	SegmentHeaderSize = 3 // tag + length, paid by every segment
	maxSegments       = math.MaxUint8
	maxSegmentPayload = math.MaxUint16
)

// Framer errors.
var (
	ErrUnknownSegment   = errors.New("protocol: unknown segment tag")
	ErrTooManySegments  = errors.New("protocol: too many segments in one packet")
	ErrSegmentTooLarge  = errors.New("protocol: segment payload too large")
	ErrSegmentTableDone = errors.New("protocol: segment table already finished")
)

// SegmentTag is a closed per-packet-kind enumeration of segment tags.
// The zero value is never valid.
type SegmentTag interface {
	~uint8
	fmt.Stringer
	Valid() bool
}

// LobbySegment tags the segments of UPDATE_LOBBY packets.
type LobbySegment uint8

const (
	LobbyNone LobbySegment = iota
	LobbySyncIDs
	LobbyChatMessage
	LobbyClientList
	LobbyPreferences
	LobbyCampaign
)

func (s LobbySegment) Valid() bool { return s > LobbyNone && s <= LobbyCampaign }

func (s LobbySegment) String() string {
	switch s {
	case LobbySyncIDs:
		return "SyncIDs"
	case LobbyChatMessage:
		return "ChatMessage"
	case LobbyClientList:
		return "ClientList"
	case LobbyPreferences:
		return "Preferences"
	case LobbyCampaign:
		return "Campaign"
	default:
		return fmt.Sprintf("LobbySegment(%d)", uint8(s))
	}
}

// RoundSegment tags the segments of UPDATE_INGAME packets.
type RoundSegment uint8

const (
	RoundNone RoundSegment = iota
	RoundSyncIDs
	RoundChatMessage
	RoundClientList
	RoundCharacterInput
	RoundCamera
	RoundEntityEvent
	RoundEntityPosition
)

func (s RoundSegment) Valid() bool { return s > RoundNone && s <= RoundEntityPosition }

func (s RoundSegment) String() string {
	switch s {
	case RoundSyncIDs:
		return "SyncIDs"
	case RoundChatMessage:
		return "ChatMessage"
	case RoundClientList:
		return "ClientList"
	case RoundCharacterInput:
		return "CharacterInput"
	case RoundCamera:
		return "Camera"
	case RoundEntityEvent:
		return "EntityEvent"
	case RoundEntityPosition:
		return "EntityPosition"
	default:
		return fmt.Sprintf("RoundSegment(%d)", uint8(s))
	}
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// SegmentWriter writes a segment table into an Encoder. Callers open a
// segment with StartNewSegment, write its fields directly to the encoder,
// and call Finish once all segments are written.
type SegmentWriter[T SegmentTag] struct {
	enc      *Encoder
	countAt  int
	count    int
	openAt   int // offset of the open segment's length field, -1 if none
	finished bool
}

// NewSegmentWriter reserves the table header at the encoder's current position.
func NewSegmentWriter[T SegmentTag](enc *Encoder) *SegmentWriter[T] {
	w := &SegmentWriter[T]{enc: enc, countAt: enc.Len(), openAt: -1}
	enc.WriteByte(0)
	return w
}

// StartNewSegment closes the open segment, if any, and opens a new one.
func (w *SegmentWriter[T]) StartNewSegment(tag T) error {
	if w.finished {
		return ErrSegmentTableDone
	}
	if err := w.closeSegment(); err != nil {
		return err
	}
	if w.count >= maxSegments {
		return ErrTooManySegments
	}

	w.enc.WriteByte(byte(tag))
	w.openAt = w.enc.Len()
	w.enc.WriteUint16(0)
	w.count++
	return nil
}

// Count returns the number of segments started so far.
func (w *SegmentWriter[T]) Count() int { return w.count }

// Finish closes the open segment and patches the segment count.
func (w *SegmentWriter[T]) Finish() error {
	if w.finished {
		return ErrSegmentTableDone
	}
	if err := w.closeSegment(); err != nil {
		return err
	}
	w.enc.PatchByte(w.countAt, byte(w.count))
	w.finished = true
	return nil
}

func (w *SegmentWriter[T]) closeSegment() error {
	if w.openAt < 0 {
		return nil
	}
	size := w.enc.Len() - w.openAt - 2
	if size > maxSegmentPayload {
		return ErrSegmentTooLarge
	}
	w.enc.PatchUint16(w.openAt, uint16(size))
	w.openAt = -1
	return nil
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// SegmentAction tells ReadSegments whether to keep going.
type SegmentAction uint8

const (
	Continue SegmentAction = iota
	StopReading
)

// SegmentHandler consumes one segment. d is positioned at the segment's
// payload and bounded to it.
type SegmentHandler[T SegmentTag] func(tag T, d *Decoder) (SegmentAction, error)

// SegmentError describes a segment that could not be read. The rest of the
// packet is abandoned when one occurs.
type SegmentError struct {
	Tag      string   // failing segment's tag, or the raw byte if unknown
	Previous []string // tags successfully read before it, in order
	Position int      // cursor position within the segment table
	Err      error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("protocol: failed to read segment %s at position %d (previous: [%s]): %v",
		e.Tag, e.Position, strings.Join(e.Previous, ", "), e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// ReadSegments reads a segment table from d, invoking handle once per
// segment in order. A failing or unknown segment is logged with the tags
// read so far and returned as a *SegmentError; reading never resumes
// within the same packet.
func ReadSegments[T SegmentTag](d *Decoder, handle SegmentHandler[T]) error {
	base := d.Position()
	count, err := d.ReadByte()
	if err != nil {
		return fail(&SegmentError{Tag: "<table>", Position: 0, Err: err})
	}

	previous := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		start := d.Position() - base

		raw, err := d.ReadByte()
		if err != nil {
			return fail(&SegmentError{Tag: "<eof>", Previous: previous, Position: start, Err: err})
		}
		tag := T(raw)
		if !tag.Valid() {
			return fail(&SegmentError{Tag: tag.String(), Previous: previous, Position: start, Err: ErrUnknownSegment})
		}

		length, err := d.ReadUint16()
		if err != nil {
			return fail(&SegmentError{Tag: tag.String(), Previous: previous, Position: start, Err: err})
		}
		payload, err := d.ReadBytes(int(length))
		if err != nil {
			return fail(&SegmentError{Tag: tag.String(), Previous: previous, Position: start, Err: err})
		}

		sd := NewDecoder(payload)
		action, err := handle(tag, sd)
		if err != nil {
			return fail(&SegmentError{
				Tag:      tag.String(),
				Previous: previous,
				Position: start + SegmentHeaderSize + sd.Position(),
				Err:      err,
			})
		}

		previous = append(previous, tag.String())
		if action == StopReading {
			return nil
		}
	}

	return nil
}

func fail(err *SegmentError) error {
	util.LogError("%v", err)
	return err
}

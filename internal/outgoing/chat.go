package outgoing

import (
	"unicode/utf8"

	"github.com/1ureka/roundlink/internal/protocol"
)

// MaxChatLength caps the text of one chat message in bytes, so any single
// message fits an update packet.
const MaxChatLength = 200

// ChatQueue holds the client's own chat messages until the server
// acknowledges them. Messages are numbered from 1 in send order.
type ChatQueue struct {
	lastID protocol.SequenceID
	queue  []*protocol.ChatMessage
}

// Enqueue assigns the next id to a message and queues it. Text beyond
// MaxChatLength is cut at a rune boundary.
func (q *ChatQueue) Enqueue(kind protocol.ChatKind, sender, text string) *protocol.ChatMessage {
	text = truncate(text, MaxChatLength)
	q.lastID = q.lastID.Next()
	m := &protocol.ChatMessage{ID: q.lastID, Kind: kind, Sender: sender, Text: text}
	q.queue = append(q.queue, m)
	return m
}

// Prune drops every message the server has acknowledged, that is every
// message whose id is not fresher than ack. It returns how many it dropped.
func (q *ChatQueue) Prune(ack protocol.SequenceID) int {
	n := 0
	for n < len(q.queue) && !protocol.IsMoreRecent(q.queue[n].ID, ack) {
		n++
	}
	if n > 0 {
		q.queue = append(q.queue[:0], q.queue[n:]...)
	}
	return n
}

// Pending returns the unacknowledged messages in FIFO order.
func (q *ChatQueue) Pending() []*protocol.ChatMessage { return q.queue }

func (q *ChatQueue) Len() int { return len(q.queue) }

// LastID is the id of the newest queued or sent message.
func (q *ChatQueue) LastID() protocol.SequenceID { return q.lastID }

// Reset empties the queue and restarts numbering. Used when a new server
// session starts.
func (q *ChatQueue) Reset() {
	q.lastID = 0
	q.queue = nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

package outgoing

import "github.com/1ureka/roundlink/internal/protocol"

// EventQueue holds the client's own entity events until a packet carries
// them. Ids are assigned in enqueue order, starting at 1.
type EventQueue struct {
	lastID protocol.SequenceID
	queue  []*protocol.EntityEvent
}

// Enqueue assigns the next id to an event for entityID and queues it.
func (q *EventQueue) Enqueue(entityID uint16, data []byte) *protocol.EntityEvent {
	q.lastID = q.lastID.Next()
	ev := &protocol.EntityEvent{ID: q.lastID, EntityID: entityID, Data: data}
	q.queue = append(q.queue, ev)
	return ev
}

func (q *EventQueue) Pending() []*protocol.EntityEvent { return q.queue }

func (q *EventQueue) Len() int { return len(q.queue) }

func (q *EventQueue) Reset() {
	q.lastID = 0
	q.queue = nil
}

// drop removes the n oldest events.
func (q *EventQueue) drop(n int) {
	if n <= 0 {
		return
	}
	q.queue = append(q.queue[:0], q.queue[n:]...)
}

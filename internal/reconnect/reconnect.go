// Package reconnect decides what the client does after losing its
// connection, and runs the server-queue wait.
package reconnect

import (
	"fmt"
	"time"

	"github.com/1ureka/roundlink/internal/task"
	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

// Action is the response to a disconnect.
type Action uint8

const (
	// Teardown drops the session and returns to a safe screen.
	Teardown Action = iota
	// QueueWait keeps trying to join a full server until the user cancels.
	QueueWait
	// Reconnect rejoins at once, keeping verified content.
	Reconnect
)

func (a Action) String() string {
	switch a {
	case Teardown:
		return "teardown"
	case QueueWait:
		return "queue"
	case Reconnect:
		return "reconnect"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

// Classify picks the action for reason. A reconnect is only attempted
// when the client had been fully connected before.
func Classify(reason transport.DisconnectReason, wasConnected bool) Action {
	switch {
	case reason.Category == transport.ServerFull:
		return QueueWait
	case reason.Reconnectable() && wasConnected:
		return Reconnect
	default:
		return Teardown
	}
}

// UserMessage is what the user is shown after a teardown.
func UserMessage(reason transport.DisconnectReason) string {
	var base string
	switch reason.Category {
	case transport.Timeout:
		base = "The connection to the server timed out."
	case transport.ServerFull:
		base = "The server is full."
	case transport.EventSyncError:
		base = "Lost synchronization with the server."
	case transport.Kicked:
		base = "You were kicked from the server."
	case transport.Banned:
		base = "You are banned from this server."
	case transport.ServerShutdown:
		base = "The server was shut down."
	case transport.ServerCrashed:
		base = "The server crashed."
	default:
		base = "Disconnected from the server."
	}
	if reason.Message == "" {
		return base
	}
	return base + " " + reason.Message
}

// QueueTask rejoins a full server every Interval until the client is
// connected or the user stops waiting.
type QueueTask struct {
	Interval  time.Duration
	Connected func() bool
	Busy      func() bool // an attempt is in flight
	Retry     func()
	// Prompt opens the user's "stop waiting" choice on the first step. The
	// returned channel is closed if the user stops waiting; done is closed
	// once the task has ended and the choice no longer matters.
	Prompt   func(done <-chan struct{}) <-chan struct{}
	OnCancel func()

	next     *task.Deadline
	attempts int
	cancel   <-chan struct{}
	done     chan struct{}
}

func (q *QueueTask) Step(h *task.Handle) task.Status {
	status := q.step(h)
	if status == task.Done && q.done != nil {
		close(q.done)
		q.done = nil
	}
	return status
}

func (q *QueueTask) step(h *task.Handle) task.Status {
	if h.Canceled() {
		return task.Done
	}
	if q.Connected() {
		util.LogSuccess("left the server queue after %d attempts", q.attempts)
		return task.Done
	}
	if q.Prompt != nil && q.done == nil {
		q.done = make(chan struct{})
		q.cancel = q.Prompt(q.done)
	}
	select {
	case <-q.cancel:
		util.LogInfo("stopped waiting in the server queue")
		if q.OnCancel != nil {
			q.OnCancel()
		}
		return task.Done
	default:
	}

	if q.next == nil {
		q.next = h.Deadline(q.Interval)
	}
	if !q.next.Expired() || q.Busy() {
		return task.Running
	}
	q.attempts++
	util.LogInfo("server full, retrying (attempt %d)", q.attempts)
	q.Retry()
	q.next.Reset(q.Interval)
	return task.Running
}

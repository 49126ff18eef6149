// Package task runs the client's cooperative waiters. A task is stepped once
// per update tick on the update goroutine; it either keeps running or
// finishes. Tasks are keyed by ID and at most one task per ID exists.
package task

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/1ureka/roundlink/internal/util"
)

// ID names a kind of waiter.
type ID uint8

const (
	WaitForApproval ID = iota + 1
	QueueRetry
	StartRound
	EndRound
)

func (id ID) String() string {
	switch id {
	case WaitForApproval:
		return "WaitForApproval"
	case QueueRetry:
		return "QueueRetry"
	case StartRound:
		return "StartRound"
	case EndRound:
		return "EndRound"
	default:
		return fmt.Sprintf("ID(%d)", uint8(id))
	}
}

// Status is what a step returns.
type Status uint8

const (
	Running Status = iota
	Done
)

// Task is a resumable unit of work. Step must check h.Canceled at its
// resume point and finish promptly when it is set.
type Task interface {
	Step(h *Handle) Status
}

// Func adapts a plain function to Task.
type Func func(h *Handle) Status

func (f Func) Step(h *Handle) Status { return f(h) }

// Policy decides what Start does when a task with the same ID is running.
type Policy uint8

const (
	// IfIdle leaves the running task alone and does not start the new one.
	IfIdle Policy = iota
	// Restart cancels the running task, then starts the new one.
	Restart
)

// Handle is a task's view of its own execution.
type Handle struct {
	id       ID
	clock    clockwork.Clock
	started  time.Time
	canceled bool
}

func (h *Handle) ID() ID { return h.id }

// Canceled reports whether the task has been asked to stop.
func (h *Handle) Canceled() bool { return h.canceled }

func (h *Handle) Now() time.Time { return h.clock.Now() }

// Elapsed is the time since the task started.
func (h *Handle) Elapsed() time.Duration { return h.clock.Since(h.started) }

// Deadline returns a deadline d from now on the task's clock.
func (h *Handle) Deadline(d time.Duration) *Deadline {
	return NewDeadline(h.clock, d)
}

// Deadline is a wall-clock deadline checked at resume points.
type Deadline struct {
	clock clockwork.Clock
	at    time.Time
}

func NewDeadline(clock clockwork.Clock, d time.Duration) *Deadline {
	return &Deadline{clock: clock, at: clock.Now().Add(d)}
}

// Expired reports whether the deadline has passed.
func (d *Deadline) Expired() bool { return !d.clock.Now().Before(d.at) }

// Reset moves the deadline to d from now.
func (d *Deadline) Reset(dur time.Duration) { d.at = d.clock.Now().Add(dur) }

// Remaining is the time left, or zero once expired.
func (d *Deadline) Remaining() time.Duration {
	if r := d.at.Sub(d.clock.Now()); r > 0 {
		return r
	}
	return 0
}

type entry struct {
	task   Task
	handle *Handle
}

// Scheduler is the table of running tasks. It is not safe for concurrent
// use; every call happens on the update goroutine.
type Scheduler struct {
	clock clockwork.Clock
	tasks map[ID]*entry
	order []ID // start order, stepping order
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{clock: clock, tasks: make(map[ID]*entry)}
}

// Start registers t under id. It reports whether t was started.
func (s *Scheduler) Start(id ID, t Task, policy Policy) bool {
	if _, running := s.tasks[id]; running {
		if policy == IfIdle {
			util.LogDebug("task %s already running", id)
			return false
		}
		s.Cancel(id)
	}

	s.tasks[id] = &entry{
		task:   t,
		handle: &Handle{id: id, clock: s.clock, started: s.clock.Now()},
	}
	s.order = append(s.order, id)
	return true
}

// Cancel asks the task to stop. The task is stepped once more with
// Canceled set so it can release what it holds, then removed.
func (s *Scheduler) Cancel(id ID) {
	e, ok := s.tasks[id]
	if !ok {
		return
	}
	s.remove(id)
	e.handle.canceled = true
	e.task.Step(e.handle)
}

// CancelAll cancels every running task.
func (s *Scheduler) CancelAll() {
	for _, id := range append([]ID(nil), s.order...) {
		s.Cancel(id)
	}
}

// Running reports whether a task with id exists.
func (s *Scheduler) Running(id ID) bool {
	_, ok := s.tasks[id]
	return ok
}

// Len returns the number of running tasks.
func (s *Scheduler) Len() int { return len(s.tasks) }

// Step resumes every task once, in start order. Tasks started during this
// step first run on the next one.
func (s *Scheduler) Step() {
	snapshot := make([]*entry, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, s.tasks[id])
	}

	for _, e := range snapshot {
		id := e.handle.id
		if s.tasks[id] != e {
			continue // finished, canceled or replaced earlier this step
		}
		if e.task.Step(e.handle) == Done && s.tasks[id] == e {
			s.remove(id)
		}
	}
}

func (s *Scheduler) remove(id ID) {
	delete(s.tasks, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

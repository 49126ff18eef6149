package roundsync

import (
	"fmt"
	"time"

	"github.com/1ureka/roundlink/internal/task"
	"github.com/1ureka/roundlink/internal/util"
)

type startPhase uint8

const (
	phaseSave startPhase = iota
	phaseConstruct
	phaseFinalize
)

// startTask carries one attempt from STARTGAME to FINALIZE: it waits for
// the campaign save if one is needed, constructs the round, then keeps
// requesting FINALIZE until it arrives or the user gives up.
type startTask struct {
	e     *Engine
	setup RoundSetup
	phase startPhase

	saveDeadline *task.Deadline
	resend       *task.Deadline
	timeout      *task.Deadline
	answer       <-chan bool
	asking       chan struct{} // closed when the open question is moot
}

func (t *startTask) Step(h *task.Handle) task.Status {
	status := t.step(h)
	if status == task.Done {
		t.dismiss()
	}
	return status
}

func (t *startTask) dismiss() {
	if t.asking != nil {
		close(t.asking)
		t.asking = nil
	}
	t.answer = nil
}

func (t *startTask) step(h *task.Handle) task.Status {
	if h.Canceled() {
		return task.Done
	}
	e := t.e

	switch t.phase {
	case phaseSave:
		if c := t.setup.Campaign; c != nil && !e.campaign.HasSave(c.SaveID) {
			if t.saveDeadline == nil {
				util.LogInfo("waiting for campaign save %d", c.SaveID)
				t.saveDeadline = h.Deadline(e.timing.SaveWaitTimeout)
			}
			if t.saveDeadline.Expired() {
				e.fail(fmt.Errorf("%w %d after %s", ErrSaveTimeout, c.SaveID, e.timing.SaveWaitTimeout))
				return task.Done
			}
			return task.Running
		}
		t.phase = phaseConstruct
		fallthrough

	case phaseConstruct:
		if err := e.construct(t.setup); err != nil {
			e.fail(err)
			return task.Done
		}
		t.resend = h.Deadline(e.timing.FinalizeResendInterval)
		t.timeout = h.Deadline(e.timing.FinalizeTimeout)
		t.phase = phaseFinalize
		return task.Running

	default:
		if e.state != WaitingForFinalize {
			return task.Done
		}
		if t.resend.Expired() {
			e.requestFinalize()
			t.resend.Reset(e.timing.FinalizeResendInterval)
		}
		return t.checkTimeout(h)
	}
}

// checkTimeout escalates an overdue FINALIZE to the user. Resending goes
// on while the question is open.
func (t *startTask) checkTimeout(h *task.Handle) task.Status {
	e := t.e

	if t.answer != nil {
		select {
		case keep := <-t.answer:
			t.dismiss()
			if !keep {
				e.abandon()
				return task.Done
			}
			util.LogInfo("still waiting for round %d", e.roundID)
			t.timeout.Reset(e.timing.FinalizeTimeout)
		default:
		}
		return task.Running
	}

	if !t.timeout.Expired() {
		return task.Running
	}
	util.LogWarning("no STARTGAMEFINALIZE for round %d after %s", e.roundID, h.Elapsed().Round(time.Second))
	if e.prompt == nil {
		e.abandon()
		return task.Done
	}
	t.asking = make(chan struct{})
	t.answer = e.prompt.KeepWaiting(h.Elapsed(), t.asking)
	return task.Running
}

// endTask ends the world round, lingers for the end-of-round delay and
// returns to the lobby.
type endTask struct {
	e     *Engine
	delay *task.Deadline
}

func (t *endTask) Step(h *task.Handle) task.Status {
	if h.Canceled() {
		return task.Done
	}
	e := t.e

	if t.delay == nil {
		util.LogInfo("round %d ended", e.roundID)
		e.endRound()
		t.delay = h.Deadline(e.timing.EndRoundDelay)
	}
	if !t.delay.Expired() {
		return task.Running
	}
	if !e.state.Terminal() {
		e.setup = nil
		e.setState(NotStarted)
	}
	return task.Done
}

package roundsync

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/1ureka/roundlink/internal/campaign"
	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/task"
	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

const tracerName = "github.com/1ureka/roundlink/internal/roundsync"

// Timing holds the handshake deadlines.
type Timing struct {
	FinalizeResendInterval time.Duration
	FinalizeTimeout        time.Duration
	SaveWaitTimeout        time.Duration
	EndRoundDelay          time.Duration
}

// Options wires an Engine to its collaborators. Prompter may be nil, in
// which case a finalize timeout abandons the attempt.
type Options struct {
	Clock    clockwork.Clock
	Tasks    *task.Scheduler
	World    World
	Campaign *campaign.State
	Prompter Prompter
	Sender   Sender
	Timing   Timing
}

// Engine is the round synchronization state machine.
type Engine struct {
	clock    clockwork.Clock
	tasks    *task.Scheduler
	world    World
	campaign *campaign.State
	prompt   Prompter
	send     Sender
	timing   Timing
	tracer   trace.Tracer

	state   RoundInitState
	roundID uint32
	setup   *RoundSetup
	round   Round
	span    trace.Span
	err     error

	onState func(from, to RoundInitState)
	onFault func(*DesyncFault)
}

func NewEngine(opts Options) *Engine {
	return &Engine{
		clock:    opts.Clock,
		tasks:    opts.Tasks,
		world:    opts.World,
		campaign: opts.Campaign,
		prompt:   opts.Prompter,
		send:     opts.Sender,
		timing:   opts.Timing,
		tracer:   otel.Tracer(tracerName),
	}
}

// OnStateChange registers a callback run after every transition.
func (e *Engine) OnStateChange(fn func(from, to RoundInitState)) { e.onState = fn }

// OnDesync registers a callback run when FINALIZE fails an equality check,
// after the state has moved to Error.
func (e *Engine) OnDesync(fn func(*DesyncFault)) { e.onFault = fn }

func (e *Engine) State() RoundInitState { return e.state }

// RoundID is the id of the round being started or running.
func (e *Engine) RoundID() uint32 { return e.roundID }

// Round returns the constructed round, nil before construction.
func (e *Engine) Round() Round { return e.round }

// Setup returns the parameters of the current attempt, nil when idle.
func (e *Engine) Setup() *RoundSetup { return e.setup }

// Err is why the last attempt ended in Error or Interrupted.
func (e *Engine) Err() error { return e.err }

func (e *Engine) setState(to RoundInitState) {
	from := e.state
	if from == to {
		return
	}
	e.state = to
	util.LogDebug("round state %s -> %s", from, to)
	if e.onState != nil {
		e.onState(from, to)
	}
}

// ---------------------------------------------------------------------------
// Inbound
// ---------------------------------------------------------------------------

// HandleQuery answers QUERY_STARTGAME with whether the client could start
// the proposed round right now. It never changes state.
func (e *Engine) HandleQuery(q *protocol.QueryStartGame) bool {
	ready := e.ready(q)
	util.LogDebug("start query answered ready=%t (campaign=%t)", ready, q.IsCampaign)

	msg := protocol.NewClientMessage(protocol.ClientResponseQueryStartGame)
	msg.WriteBool(ready)
	e.sendReliable(msg)
	return ready
}

func (e *Engine) ready(q *protocol.QueryStartGame) bool {
	if q.IsCampaign {
		return e.campaign.Ready(q)
	}
	for _, ref := range []protocol.SubmarineRef{q.Submarine, q.Shuttle, q.EnemySubmarine} {
		if !ref.IsZero() && !e.world.HasSubmarine(ref) {
			return false
		}
	}
	return true
}

// HandleStartGame begins a start attempt. A STARTGAME for another round
// while one is starting or running drops the old one first.
func (e *Engine) HandleStartGame(m *protocol.StartGame) {
	switch {
	case e.state.Terminal():
		util.LogWarning("ignoring STARTGAME for round %d while %s", m.RoundID, e.state)
		return
	case e.state != NotStarted && m.RoundID == e.roundID:
		util.LogDebug("duplicate STARTGAME for round %d", m.RoundID)
		return
	case e.state != NotStarted:
		util.LogInfo("STARTGAME for round %d supersedes round %d", m.RoundID, e.roundID)
		e.tasks.Cancel(task.StartRound)
		e.tasks.Cancel(task.EndRound)
		e.endRound()
		e.finishSpan("superseded", nil)
		e.setState(NotStarted)
	}

	setup := setupFromStart(m)
	e.roundID = m.RoundID
	e.setup = &setup
	e.err = nil

	_, e.span = e.tracer.Start(context.Background(), "round.start", trace.WithAttributes(
		attribute.Int64("round.id", int64(m.RoundID)),
		attribute.Int64("round.seed", int64(m.Seed)),
		attribute.String("round.mode", m.ModeID),
		attribute.Bool("round.campaign", m.IsCampaign),
	))

	if setup.Campaign != nil {
		e.campaign.Join(setup.Campaign.CampaignID)
	}

	util.LogInfo("starting round %d (mode %q, seed %d)", m.RoundID, m.ModeID, m.Seed)
	e.setState(Starting)
	e.tasks.Start(task.StartRound, &startTask{e: e, setup: setup}, task.Restart)
}

// HandleFinalize applies STARTGAMEFINALIZE. It returns ErrRoundMismatch
// when the message is for another round, in which case the client has
// already asked for a fresh STARTGAME, or a *DesyncFault when the worlds
// differ. Outside WaitingForFinalize the message is ignored.
func (e *Engine) HandleFinalize(m *protocol.StartGameFinalize) error {
	if e.state != WaitingForFinalize {
		util.LogDebug("ignoring STARTGAMEFINALIZE for round %d while %s", m.RoundID, e.state)
		return nil
	}

	if m.RoundID != e.roundID {
		util.LogWarning("STARTGAMEFINALIZE for round %d, expected %d; requesting a new start", m.RoundID, e.roundID)
		e.tasks.Cancel(task.StartRound)
		e.endRound()
		e.finishSpan("round mismatch", ErrRoundMismatch)
		e.setState(NotStarted)
		e.sendReliable(protocol.NewClientMessage(protocol.ClientRequestStartGame))
		return ErrRoundMismatch
	}

	e.tasks.Cancel(task.StartRound)
	if e.round == nil {
		util.LogWarning("STARTGAMEFINALIZE for round %d with no round constructed; ignoring", m.RoundID)
		return nil
	}

	if fault := e.verify(m); fault != nil {
		util.Stats.AddDesync()
		util.LogError("%v (level seed %q)", fault, fault.LevelSeed)
		e.fail(fault)
		if e.onFault != nil {
			e.onFault(fault)
		}
		return fault
	}

	e.round.Preload(m.Preload)
	e.round.ApplyFinalize(m)
	AssignTeams(e.round.MainSubmarines())

	util.LogSuccess("round %d started", e.roundID)
	e.finishSpan("started", nil)
	e.setState(Started)
	return nil
}

func (e *Engine) verify(m *protocol.StartGameFinalize) *DesyncFault {
	fault := func(kind FaultKind, format string, args ...any) *DesyncFault {
		return &DesyncFault{
			Kind:      kind,
			RoundID:   e.roundID,
			LevelSeed: e.setup.LevelSeed,
			Detail:    fmt.Sprintf(format, args...),
		}
	}

	if local := e.round.SubmarineChecksum(); local != m.SubmarineChecksum {
		return fault(FaultGeometry, "submarine checksum local 0x%08x, server 0x%08x", local, m.SubmarineChecksum)
	}
	if local := e.round.MissionHashes(); !SameMissionSet(local, m.MissionHashes) {
		return fault(FaultMissions, "missions local %x, server %x", local, m.MissionHashes)
	}
	if detail, ok := CompareLevelStages(e.round.LevelStages(), m.LevelStages); !ok {
		return fault(FaultLevelStage, "%s", detail)
	}
	return nil
}

// HandleCancel aborts an in-flight start attempt on CANCEL_STARTGAME.
func (e *Engine) HandleCancel() {
	if !e.state.handshaking() {
		util.LogDebug("ignoring CANCEL_STARTGAME while %s", e.state)
		return
	}
	util.LogInfo("server canceled the start of round %d", e.roundID)
	e.tasks.Cancel(task.StartRound)
	e.endRound()
	e.finishSpan("canceled", nil)
	e.setup = nil
	e.setState(NotStarted)
}

// HandleEndGame starts the end-of-round teardown on ENDGAME.
func (e *Engine) HandleEndGame() {
	if e.state == NotStarted || e.state.Terminal() {
		util.LogDebug("ignoring ENDGAME while %s", e.state)
		return
	}
	e.tasks.Cancel(task.StartRound)
	if e.state.handshaking() {
		// A late STARTGAMEFINALIZE must find the handshake closed.
		util.LogInfo("round %d ended before it started", e.roundID)
		e.endRound()
		e.finishSpan("ended", nil)
		e.setup = nil
		e.setState(NotStarted)
		return
	}
	e.finishSpan("ended", nil)
	e.tasks.Start(task.EndRound, &endTask{e: e}, task.IfIdle)
}

// ---------------------------------------------------------------------------
// Local events
// ---------------------------------------------------------------------------

// Interrupt ends whatever is in progress because the connection was lost.
func (e *Engine) Interrupt(reason transport.DisconnectReason) {
	if e.state.Terminal() {
		return
	}
	util.LogWarning("round interrupted: %s", reason)
	e.tasks.Cancel(task.StartRound)
	e.tasks.Cancel(task.EndRound)
	e.endRound()
	e.err = fmt.Errorf("roundsync: disconnected: %s", reason)
	e.finishSpan("interrupted", e.err)
	e.setState(Interrupted)
}

// ReturnToLobby leaves Error or Interrupted once the user is back in the
// lobby.
func (e *Engine) ReturnToLobby() {
	if !e.state.Terminal() {
		return
	}
	e.setup = nil
	e.setState(NotStarted)
}

// OnSaveFinished records a completed campaign save transfer. A start
// attempt waiting for it proceeds on its next step.
func (e *Engine) OnSaveFinished(saveID protocol.SequenceID) {
	if e.campaign.ApplySave(saveID) {
		util.LogInfo("campaign save %d loaded", saveID)
	}
}

// ---------------------------------------------------------------------------
// Internals shared with the tasks
// ---------------------------------------------------------------------------

// construct resolves the submarines and builds the world round.
func (e *Engine) construct(setup RoundSetup) error {
	if setup.Campaign == nil {
		for _, ref := range []protocol.SubmarineRef{setup.Submarine, setup.Shuttle, setup.EnemySubmarine} {
			if !ref.IsZero() && !e.world.HasSubmarine(ref) {
				return fmt.Errorf("%w: %s (%s)", ErrSubmarineNotFound, ref.Name, ref.Hash)
			}
		}
	}

	round, err := e.world.ConstructRound(setup)
	if err != nil {
		return fmt.Errorf("roundsync: construct round %d: %w", setup.RoundID, err)
	}
	e.round = round
	e.setState(WaitingForFinalize)
	e.requestFinalize()
	return nil
}

func (e *Engine) requestFinalize() {
	msg := protocol.NewClientMessage(protocol.ClientRequestStartGameFinalize)
	msg.WriteUint32(e.roundID)
	e.sendReliable(msg)
}

// fail ends the attempt in Error. Callers outside a task cancel the
// StartRound task first.
func (e *Engine) fail(err error) {
	util.LogError("round %d failed to start: %v", e.roundID, err)
	e.endRound()
	e.err = err
	e.finishSpan("error", err)
	e.setState(Error)
}

// abandon ends the attempt at the user's request.
func (e *Engine) abandon() {
	util.LogWarning("gave up waiting for round %d", e.roundID)
	e.endRound()
	e.err = ErrAbandoned
	e.finishSpan("abandoned", ErrAbandoned)
	e.setState(Interrupted)
}

func (e *Engine) endRound() {
	if e.round == nil {
		return
	}
	e.world.EndRound()
	e.round = nil
}

func (e *Engine) finishSpan(outcome string, err error) {
	if e.span == nil {
		return
	}
	e.span.SetAttributes(attribute.String("round.outcome", outcome))
	if err != nil {
		e.span.RecordError(err)
		e.span.SetStatus(codes.Error, err.Error())
	} else {
		e.span.SetStatus(codes.Ok, "")
	}
	e.span.End()
	e.span = nil
}

func (e *Engine) sendReliable(msg *protocol.Encoder) {
	if err := e.send.Send(msg.Bytes(), transport.Reliable); err != nil {
		util.LogWarning("failed to send round message: %v", err)
	}
}

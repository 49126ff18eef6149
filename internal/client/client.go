// Package client ties the protocol engine together. GameClient owns the
// connection, the lobby and campaign replicas, the round synchronization
// engine, the outgoing update scheduler and the file receiver, and drives
// all of them from Update, which the host calls once per tick.
package client

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"

	"github.com/1ureka/roundlink/internal/campaign"
	"github.com/1ureka/roundlink/internal/config"
	"github.com/1ureka/roundlink/internal/connection"
	"github.com/1ureka/roundlink/internal/entityevent"
	"github.com/1ureka/roundlink/internal/filetransfer"
	"github.com/1ureka/roundlink/internal/lobby"
	"github.com/1ureka/roundlink/internal/outgoing"
	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/report"
	"github.com/1ureka/roundlink/internal/roundsync"
	"github.com/1ureka/roundlink/internal/task"
	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

// Screen is the UI the client switches between. Calls never block.
type Screen interface {
	ShowMainMenu()
	ShowLobby()
	ShowRound()
	ShowMessage(title, text string)
	// QueuePrompt shows a cancelable "waiting for a free slot" notice. The
	// returned channel is closed when the user cancels; done is closed when
	// the wait is over and the notice should go away.
	QueuePrompt(server string, done <-chan struct{}) <-chan struct{}
}

// Voice is the voice chat subsystem.
type Voice interface {
	Start(conn *connection.Manager)
	SendToServer()
	Dispose()
}

// Entities receives in-round entity state.
type Entities interface {
	ApplyEvent(ev *protocol.EntityEvent)
	ApplyPosition(p *protocol.EntityPosition)
}

// Options wires a GameClient. Voice and Entities may be nil.
type Options struct {
	Config      *config.Config
	Clock       clockwork.Clock
	Conn        *connection.Manager
	World       roundsync.World
	Prompter    roundsync.Prompter
	Screen      Screen
	Voice       Voice
	Entities    Entities
	Reports     *report.Writer
	ContentHash string // sent in the join request
}

type view uint8

const (
	viewMainMenu view = iota
	viewLobby
	viewRound
)

// GameClient is not safe for concurrent use. Everything but the transport
// callbacks inside Conn runs on the goroutine calling Update.
type GameClient struct {
	cfg      *config.Config
	conn     *connection.Manager
	tasks    *task.Scheduler
	engine   *roundsync.Engine
	lobby    *lobby.State
	campaign *campaign.State
	events   *entityevent.Buffer
	out      *outgoing.Scheduler
	files    *filetransfer.Receiver
	reports  *report.Writer

	screen      Screen
	voice       Voice
	entities    Entities
	contentHash string

	handlers map[protocol.ServerHeader]handler

	ctx             context.Context
	endpoint        connection.Endpoint
	approved        bool // JOIN_ACCEPTED received on the current session
	contentVerified bool
	view            view
	returnToLobby   bool
	saveRequested   bool

	input  *protocol.CharacterInput
	camera *protocol.Camera
}

func New(opts Options) *GameClient {
	c := &GameClient{
		cfg:         opts.Config,
		conn:        opts.Conn,
		tasks:       task.NewScheduler(opts.Clock),
		lobby:       lobby.New(),
		campaign:    campaign.New(),
		events:      entityevent.NewBuffer(),
		reports:     opts.Reports,
		screen:      opts.Screen,
		voice:       opts.Voice,
		entities:    opts.Entities,
		contentHash: opts.ContentHash,
		ctx:         context.Background(),
	}

	c.engine = roundsync.NewEngine(roundsync.Options{
		Clock:    opts.Clock,
		Tasks:    c.tasks,
		World:    opts.World,
		Campaign: c.campaign,
		Prompter: opts.Prompter,
		Sender:   c.conn,
		Timing: roundsync.Timing{
			FinalizeResendInterval: c.cfg.FinalizeResendInterval,
			FinalizeTimeout:        c.cfg.FinalizeTimeout,
			SaveWaitTimeout:        c.cfg.SaveWaitTimeout,
			EndRoundDelay:          c.cfg.EndRoundDelay,
		},
	})
	c.engine.OnStateChange(c.onRoundState)
	c.engine.OnDesync(c.onDesync)

	c.out = outgoing.NewScheduler(opts.Clock, c.cfg.TickInterval, c.cfg.MTU, c.cfg.ChatBudget(), c, c.conn.Send)

	c.files = filetransfer.NewReceiver(c.cfg.DownloadDir, c.conn)
	c.files.OnFinished(c.onFileFinished)
	c.files.OnTransferFailed(func(t *filetransfer.Transfer) {
		if t.Kind == protocol.FileCampaignSave {
			c.saveRequested = false
		}
		c.screen.ShowMessage("Download failed", t.FileName+": "+t.Err.Error())
	})

	c.conn.OnDisconnect(c.onDisconnect)
	c.handlers = c.handlerTable()
	return c
}

// Join starts connecting to ep. Progress surfaces through Update.
func (c *GameClient) Join(ctx context.Context, ep connection.Endpoint) {
	c.ctx = ctx
	c.endpoint = ep
	c.contentVerified = false
	if c.engine.State().Terminal() {
		c.engine.ReturnToLobby()
	}
	util.LogInfo("joining %s", ep)
	c.conn.ConnectAsync(ctx, ep)
}

// Leave closes the session at the user's request.
func (c *GameClient) Leave() {
	reason := transport.Reason(transport.Generic, "left the server")
	c.conn.Close(reason)
	c.teardown(reason, false)
}

// Update runs one tick: inbound messages, waiters, then the outgoing
// update.
func (c *GameClient) Update() {
	c.conn.Drain(c.handleEvent)
	c.tasks.Step()

	if c.returnToLobby {
		c.returnToLobby = false
		c.engine.ReturnToLobby()
		if c.approved {
			c.show(viewLobby)
		}
	}

	if !c.approved {
		return
	}
	if err := c.out.Update(); err != nil && !errors.Is(err, connection.ErrNotConnected) {
		util.LogWarning("update not sent: %v", err)
	}
	if c.voice != nil {
		c.voice.SendToServer()
	}
}

// RoundState is the state of the round handshake.
func (c *GameClient) RoundState() roundsync.RoundInitState { return c.engine.State() }

// Approved reports whether the server accepted the current session.
func (c *GameClient) Approved() bool { return c.approved }

func (c *GameClient) Lobby() *lobby.State { return c.lobby }

func (c *GameClient) Campaign() *campaign.State { return c.campaign }

func (c *GameClient) Files() *filetransfer.Receiver { return c.files }

func (c *GameClient) show(v view) {
	if c.view == v {
		return
	}
	c.view = v
	switch v {
	case viewMainMenu:
		c.screen.ShowMainMenu()
	case viewLobby:
		c.screen.ShowLobby()
	case viewRound:
		c.screen.ShowRound()
	}
}

// ---------------------------------------------------------------------------
// outgoing.Source
// ---------------------------------------------------------------------------

func (c *GameClient) InRound() bool {
	return c.engine.State() == roundsync.Started && c.view == viewRound
}

func (c *GameClient) LobbyUpdate() outgoing.LobbyUpdate {
	return outgoing.LobbyUpdate{
		Sync: protocol.ClientLobbySync{
			LobbyID:        c.lobby.LobbyID(),
			LastRecvChatID: c.lobby.Chat.LastReceived(),
			ClientListID:   c.lobby.Roster.ListID(),
			Campaign:       c.campaign.Pointer(),
		},
		Preferences: protocol.Preferences{
			Name: c.cfg.PlayerName,
			Job:  c.cfg.PreferredJob,
			Team: string(c.cfg.PreferredTeam),
		},
	}
}

func (c *GameClient) RoundUpdate() outgoing.RoundUpdate {
	lastEvent, hasEvents := c.events.LastReceived()
	return outgoing.RoundUpdate{
		Sync: protocol.ClientRoundSync{
			LastRecvChatID:        c.lobby.Chat.LastReceived(),
			HasEntityEvents:       hasEvents,
			LastRecvEntityEventID: lastEvent,
			ClientListID:          c.lobby.Roster.ListID(),
			Campaign:              c.campaign.Pointer(),
		},
		Input:  c.input,
		Camera: c.camera,
	}
}

// ---------------------------------------------------------------------------
// Collaborator callbacks
// ---------------------------------------------------------------------------

func (c *GameClient) onFileFinished(t *filetransfer.Transfer) {
	if t.Kind == protocol.FileCampaignSave {
		c.saveRequested = false
		c.engine.OnSaveFinished(t.SaveID)
	}
}

func (c *GameClient) onRoundState(from, to roundsync.RoundInitState) {
	switch to {
	case roundsync.Starting:
		c.events.Reset()
	case roundsync.Started:
		c.show(viewRound)
	case roundsync.NotStarted:
		if from == roundsync.Started && c.approved {
			c.show(viewLobby)
		}
	case roundsync.Error:
		var fault *roundsync.DesyncFault
		if errors.As(c.engine.Err(), &fault) {
			return // onDesync tears the session down
		}
		c.screen.ShowMessage("Failed to start the round", c.engine.Err().Error())
		c.returnToLobby = true
	case roundsync.Interrupted:
		if errors.Is(c.engine.Err(), roundsync.ErrAbandoned) {
			c.returnToLobby = true
		}
	}
}

package client

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/1ureka/roundlink/internal/connection"
	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/reconnect"
	"github.com/1ureka/roundlink/internal/roundsync"
	"github.com/1ureka/roundlink/internal/task"
	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

func (c *GameClient) handleEvent(ev connection.Event) {
	switch ev.Kind {
	case connection.EventConnected:
		c.onConnected()
	case connection.EventConnectFailed:
		c.onConnectFailed(ev.Err)
	case connection.EventMessage:
		c.dispatch(ev.Data)
	}
}

// onConnected starts a session on a fresh transport: per-session outgoing
// state is reset and the join request goes out.
func (c *GameClient) onConnected() {
	c.approved = false
	c.out.ResetSession()
	c.events.Reset()

	req := &protocol.JoinRequest{
		Name:            c.cfg.PlayerName,
		ProtocolVersion: protocol.Version,
		ContentHash:     c.contentHash,
		Nonce:           uuid.NewString(),
		ContentVerified: c.contentVerified,
	}
	msg := protocol.NewClientMessage(protocol.ClientJoinRequest)
	req.Encode(msg)
	if err := c.conn.Send(msg.Bytes(), transport.Reliable); err != nil {
		util.LogWarning("failed to send join request: %v", err)
		return
	}
	util.LogDebug("join request sent (content verified: %t)", c.contentVerified)

	c.tasks.Start(task.WaitForApproval, task.Func(c.waitForApproval()), task.Restart)
}

// waitForApproval fails the join when JOIN_ACCEPTED does not arrive within
// the connect timeout.
func (c *GameClient) waitForApproval() func(h *task.Handle) task.Status {
	var deadline *task.Deadline
	return func(h *task.Handle) task.Status {
		if h.Canceled() || c.approved {
			return task.Done
		}
		if deadline == nil {
			deadline = h.Deadline(c.cfg.ConnectTimeout)
		}
		if !deadline.Expired() {
			return task.Running
		}
		reason := transport.Reason(transport.Timeout, "no response to the join request")
		util.LogWarning("join timed out after %s", c.cfg.ConnectTimeout)
		c.conn.Close(reason)
		c.lost(reason)
		return task.Done
	}
}

func (c *GameClient) onConnectFailed(err error) {
	if c.tasks.Running(task.QueueRetry) {
		util.LogDebug("queued join attempt failed: %v", err)
		return
	}
	util.LogError("%v", err)
	c.teardown(transport.Reason(transport.Generic, "%v", err), true)
}

func (c *GameClient) onJoinAccepted(m *protocol.JoinAccepted) {
	if c.approved {
		util.LogDebug("duplicate JOIN_ACCEPTED")
		return
	}
	c.approved = true
	c.contentVerified = true
	c.lobby.ClientID = m.ClientID
	c.lobby.ServerName = m.ServerName
	c.lobby.Permissions = m.Permissions
	c.tasks.Cancel(task.WaitForApproval)
	c.tasks.Cancel(task.QueueRetry)

	util.LogSuccess("joined %q as client %d", m.ServerName, m.ClientID)
	if c.voice != nil {
		c.voice.Start(c.conn)
	}
	c.show(viewLobby)
}

func (c *GameClient) onDisconnect(reason transport.DisconnectReason) {
	c.lost(reason)
}

// lost applies the reconnection policy after the session ended.
func (c *GameClient) lost(reason transport.DisconnectReason) {
	wasConnected := c.approved
	c.approved = false

	action := reconnect.Classify(reason, wasConnected)
	util.LogInfo("session lost (%s): %s", reason, action)

	switch action {
	case reconnect.Reconnect:
		util.Stats.AddReconnect()
		c.tasks.Cancel(task.WaitForApproval)
		c.files.CancelAll()
		c.saveRequested = false
		c.engine.Interrupt(reason)
		c.engine.ReturnToLobby()
		c.lobby.ForceResync()
		c.conn.ConnectAsync(c.ctx, c.endpoint)

	case reconnect.QueueWait:
		c.tasks.Cancel(task.WaitForApproval)
		c.engine.Interrupt(reason)
		c.engine.ReturnToLobby()
		if c.tasks.Running(task.QueueRetry) {
			return
		}
		c.tasks.Start(task.QueueRetry, &reconnect.QueueTask{
			Interval:  c.cfg.QueueRetryInterval,
			Connected: func() bool { return c.approved },
			Busy:      func() bool { return c.conn.Dialing() || c.conn.Connected() },
			Retry:     func() { c.conn.ConnectAsync(c.ctx, c.endpoint) },
			Prompt: func(done <-chan struct{}) <-chan struct{} {
				return c.screen.QueuePrompt(c.endpoint.String(), done)
			},
			OnCancel: func() {
				reason := transport.Reason(transport.Generic, "stopped waiting for a free slot")
				c.conn.Close(reason)
				c.teardown(reason, false)
			},
		}, task.IfIdle)

	default:
		c.teardown(reason, true)
	}
}

// teardown drops everything tied to the session and returns to the main
// menu. notify shows the reason to the user.
func (c *GameClient) teardown(reason transport.DisconnectReason, notify bool) {
	c.approved = false
	c.contentVerified = false
	c.returnToLobby = false
	c.saveRequested = false

	c.files.CancelAll()
	if c.voice != nil {
		c.voice.Dispose()
	}
	c.tasks.CancelAll()
	c.engine.Interrupt(reason)

	c.lobby.Reset()
	c.campaign.Reset()
	c.events.Reset()
	c.out.ResetSession()
	c.input, c.camera = nil, nil

	c.show(viewMainMenu)
	if notify {
		c.screen.ShowMessage("Disconnected", reconnect.UserMessage(reason))
	}
}

// fatal handles a fault that ends the session: the report is written, the
// connection closed and the session torn down.
func (c *GameClient) fatal(kind string, header protocol.ServerHeader, err error, stack []byte, category transport.DisconnectCategory) {
	util.LogError("%s fault while handling %s: %v", kind, header, err)

	if c.reports != nil {
		r := c.faultReport(kind, err)
		r.Header = header.String()
		r.Stack = stack
		if _, werr := c.reports.Write(r); werr != nil {
			util.LogError("failed to write error report: %v", werr)
		}
	}

	reason := transport.Reason(category, "%v", err)
	c.conn.Close(reason)
	c.teardown(reason, true)
}

func (c *GameClient) onDesync(fault *roundsync.DesyncFault) {
	c.fatal("desync", protocol.ServerStartGameFinalize, fault, nil, transport.EventSyncError)
}

func (c *GameClient) recovered(header protocol.ServerHeader, v any, stack []byte) {
	c.fatal("dispatch", header, fmt.Errorf("panic: %v", v), stack, transport.Generic)
}

package client

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/report"
	"github.com/1ureka/roundlink/internal/roundsync"
	"github.com/1ureka/roundlink/internal/transport"
	"github.com/1ureka/roundlink/internal/util"
)

// handler applies the payload of one server message. A returned error
// means the payload was malformed; the message is dropped.
type handler func(d *protocol.Decoder) error

func (c *GameClient) handlerTable() map[protocol.ServerHeader]handler {
	return map[protocol.ServerHeader]handler{
		protocol.ServerPingRequest:       c.handlePing,
		protocol.ServerJoinAccepted:      c.handleJoinAccepted,
		protocol.ServerUpdateLobby:       c.handleLobbyUpdate,
		protocol.ServerUpdateInGame:      c.handleRoundUpdate,
		protocol.ServerQueryStartGame:    c.handleQuery,
		protocol.ServerStartGame:         c.handleStartGame,
		protocol.ServerStartGameFinalize: c.handleFinalize,
		protocol.ServerCancelStartGame:   func(*protocol.Decoder) error { c.engine.HandleCancel(); return nil },
		protocol.ServerEndGame:           func(*protocol.Decoder) error { c.engine.HandleEndGame(); return nil },
		protocol.ServerFileTransfer:      c.files.Handle,
		protocol.ServerPermissions:       c.handlePermissions,
		protocol.ServerChatMessage:       c.handleChat,
	}
}

// beforeApproval lists what the server may send before JOIN_ACCEPTED.
var beforeApproval = map[protocol.ServerHeader]bool{
	protocol.ServerPingRequest:  true,
	protocol.ServerJoinAccepted: true,
}

// dispatch is the boundary between the wire and the client's state. A
// panic below it ends the session with an error report instead of taking
// the process down.
func (c *GameClient) dispatch(data []byte) {
	header, d, err := protocol.SplitServerMessage(data)
	if err != nil {
		util.Stats.AddDropped()
		return
	}
	h, ok := c.handlers[header]
	if !ok {
		util.LogWarning("dropping message with unknown header %s", header)
		util.Stats.AddDropped()
		return
	}
	if !c.approved && !beforeApproval[header] {
		util.LogDebug("ignoring %s before the join was accepted", header)
		return
	}

	defer func() {
		if v := recover(); v != nil {
			c.recovered(header, v, debug.Stack())
		}
	}()

	if err := h(d); err != nil {
		var fault *roundsync.DesyncFault
		if errors.As(err, &fault) || errors.Is(err, roundsync.ErrRoundMismatch) {
			return
		}
		util.LogWarning("dropping malformed %s: %v", header, err)
		util.Stats.AddDropped()
	}
}

// faultReport collects what is known about the current round for a fault.
func (c *GameClient) faultReport(kind string, err error) report.Report {
	r := report.Report{
		Kind:    kind,
		Err:     err,
		RoundID: c.engine.RoundID(),
		Roster:  c.lobby.Roster.Clients(),
	}
	if setup := c.engine.Setup(); setup != nil {
		r.LevelSeed = setup.LevelSeed
	}
	return r
}

// ---------------------------------------------------------------------------
// Session messages
// ---------------------------------------------------------------------------

func (c *GameClient) handlePing(d *protocol.Decoder) error {
	payload, err := d.ReadBytes(d.Remaining())
	if err != nil {
		return err
	}
	msg := protocol.NewClientMessage(protocol.ClientPingResponse)
	msg.WriteBytes(payload)
	if err := c.conn.Send(msg.Bytes(), transport.Unreliable); err != nil {
		util.LogDebug("ping response not sent: %v", err)
	}
	return nil
}

func (c *GameClient) handleJoinAccepted(d *protocol.Decoder) error {
	m, err := protocol.DecodeJoinAccepted(d)
	if err != nil {
		return err
	}
	c.onJoinAccepted(m)
	return nil
}

func (c *GameClient) handlePermissions(d *protocol.Decoder) error {
	perms, err := d.ReadUint16()
	if err != nil {
		return err
	}
	c.lobby.Permissions = protocol.Permission(perms)
	util.LogDebug("permissions set to %016b", perms)
	return nil
}

// handleChat applies a chat line the server sent outside the update
// packets. It shares the id stream of the chat segments.
func (c *GameClient) handleChat(d *protocol.Decoder) error {
	return c.readChat(d)
}

// ---------------------------------------------------------------------------
// Update packets
// ---------------------------------------------------------------------------

func (c *GameClient) handleLobbyUpdate(d *protocol.Decoder) error {
	return protocol.ReadSegments(d, func(tag protocol.LobbySegment, sd *protocol.Decoder) (protocol.SegmentAction, error) {
		switch tag {
		case protocol.LobbySyncIDs:
			lobbyID, chatAck, hasData, err := protocol.DecodeServerLobbySyncHeader(sd)
			if err != nil {
				return protocol.Continue, err
			}
			c.out.Acknowledge(chatAck)
			if !hasData || !c.lobby.WantsLobbyData(lobbyID) {
				return protocol.Continue, nil
			}
			data, err := protocol.DecodeLobbyData(sd)
			if err != nil {
				return protocol.Continue, err
			}
			c.lobby.ApplyLobbyData(lobbyID, data)

		case protocol.LobbyChatMessage:
			return protocol.Continue, c.readChat(sd)

		case protocol.LobbyClientList:
			return protocol.Continue, c.readClientList(sd)

		case protocol.LobbyCampaign:
			u, err := protocol.DecodeCampaignUpdate(sd)
			if err != nil {
				return protocol.Continue, err
			}
			if c.campaign.ApplyUpdate(u) && !c.saveRequested {
				c.requestSave(u.SaveID)
			}

		default:
			return protocol.Continue, fmt.Errorf("segment %s is not sent by the server", tag)
		}
		return protocol.Continue, nil
	})
}

func (c *GameClient) handleRoundUpdate(d *protocol.Decoder) error {
	return protocol.ReadSegments(d, func(tag protocol.RoundSegment, sd *protocol.Decoder) (protocol.SegmentAction, error) {
		if c.engine.State() != roundsync.Started {
			util.LogDebug("round update while %s; skipping the rest", c.engine.State())
			return protocol.StopReading, nil
		}

		switch tag {
		case protocol.RoundSyncIDs:
			m, err := protocol.DecodeServerRoundSync(sd)
			if err != nil {
				return protocol.Continue, err
			}
			c.out.Acknowledge(m.LastRecvChatID)

		case protocol.RoundChatMessage:
			return protocol.Continue, c.readChat(sd)

		case protocol.RoundClientList:
			return protocol.Continue, c.readClientList(sd)

		case protocol.RoundEntityEvent:
			ev, err := protocol.DecodeEntityEvent(sd)
			if err != nil {
				return protocol.Continue, err
			}
			for _, ready := range c.events.Feed(ev) {
				if c.entities != nil {
					c.entities.ApplyEvent(ready)
				}
			}

		case protocol.RoundEntityPosition:
			p, err := protocol.DecodeEntityPosition(sd)
			if err != nil {
				return protocol.Continue, err
			}
			if c.entities != nil {
				c.entities.ApplyPosition(p)
			}

		default:
			return protocol.Continue, fmt.Errorf("segment %s is not sent by the server", tag)
		}
		return protocol.Continue, nil
	})
}

func (c *GameClient) readChat(d *protocol.Decoder) error {
	m, err := protocol.DecodeChatMessage(d)
	if err != nil {
		return err
	}
	c.lobby.Chat.Receive(m)
	return nil
}

func (c *GameClient) readClientList(d *protocol.Decoder) error {
	l, err := protocol.DecodeClientList(d)
	if err != nil {
		return err
	}
	c.lobby.Roster.Apply(l)
	return nil
}

// requestSave asks for the campaign save once; the flag clears when the
// transfer finishes or fails.
func (c *GameClient) requestSave(saveID protocol.SequenceID) {
	util.LogInfo("server holds campaign save %d; requesting it", saveID)
	if err := c.files.RequestFile(protocol.FileCampaignSave, "", ""); err != nil {
		util.LogWarning("failed to request campaign save: %v", err)
		return
	}
	c.saveRequested = true
}

// ---------------------------------------------------------------------------
// Round handshake
// ---------------------------------------------------------------------------

func (c *GameClient) handleQuery(d *protocol.Decoder) error {
	q, err := protocol.DecodeQueryStartGame(d)
	if err != nil {
		return err
	}
	c.engine.HandleQuery(q)
	return nil
}

func (c *GameClient) handleStartGame(d *protocol.Decoder) error {
	m, err := protocol.DecodeStartGame(d)
	if err != nil {
		return err
	}
	c.engine.HandleStartGame(m)
	return nil
}

func (c *GameClient) handleFinalize(d *protocol.Decoder) error {
	m, err := protocol.DecodeStartGameFinalize(d)
	if err != nil {
		return err
	}
	return c.engine.HandleFinalize(m)
}

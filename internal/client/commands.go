package client

import (
	"errors"
	"fmt"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/roundsync"
	"github.com/1ureka/roundlink/internal/transport"
)

var (
	// ErrNoPermission is returned for a server command the client's
	// permission mask does not allow.
	ErrNoPermission = errors.New("client: missing permission")
	// ErrNotInRound is returned for in-round actions outside a round.
	ErrNotInRound = errors.New("client: no round running")
	// ErrNotJoined is returned for actions that need an accepted session.
	ErrNotJoined = errors.New("client: not joined")
)

// SendChat queues a chat line. It goes out with the next update packets
// until the server acknowledges it.
func (c *GameClient) SendChat(kind protocol.ChatKind, text string) error {
	if !c.approved {
		return ErrNotJoined
	}
	c.out.Chat.Enqueue(kind, c.cfg.PlayerName, text)
	return nil
}

// QueueEntityEvent queues a state change of a client-controlled entity.
func (c *GameClient) QueueEntityEvent(entityID uint16, data []byte) error {
	if c.engine.State() != roundsync.Started {
		return ErrNotInRound
	}
	c.out.Events.Enqueue(entityID, data)
	return nil
}

// SetInput sets the controlled character's input reported each tick. nil
// means no character is controlled.
func (c *GameClient) SetInput(in *protocol.CharacterInput) { c.input = in }

// SetCamera sets the camera position reported each tick.
func (c *GameClient) SetCamera(cam *protocol.Camera) { c.camera = cam }

// SendServerCommand sends a permission-scoped command. It is refused
// locally when the client lacks perm.
func (c *GameClient) SendServerCommand(perm protocol.Permission, op uint8, payload []byte) error {
	if !c.approved {
		return ErrNotJoined
	}
	if !c.lobby.Permissions.Has(perm) {
		return fmt.Errorf("%w: %016b", ErrNoPermission, perm)
	}
	msg := protocol.NewClientMessage(protocol.ClientServerCommand)
	(&protocol.ServerCommand{Permission: perm, Op: op, Payload: payload}).Encode(msg)
	return c.conn.Send(msg.Bytes(), transport.Reliable)
}

// RequestFile asks the server for a file; progress is reported through
// the receiver's callbacks.
func (c *GameClient) RequestFile(kind protocol.FileKind, path, hash string) error {
	if !c.approved {
		return ErrNotJoined
	}
	return c.files.RequestFile(kind, path, hash)
}

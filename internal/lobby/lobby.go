// Package lobby holds the client's replica of lobby state: the lobby
// settings, the roster, inbound chat and the client's own permissions.
// Every stream is versioned with a sequence id; a snapshot is applied only
// when it is fresher than the last one, except the first of each stream.
package lobby

import (
	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/util"
)

// State is owned by the update goroutine.
type State struct {
	lobbyID  protocol.SequenceID
	hasLobby bool
	data     *protocol.LobbyData

	ClientID    uint8
	ServerName  string
	Permissions protocol.Permission

	Roster Roster
	Chat   Chat
}

func New() *State {
	return &State{}
}

// LobbyID returns the id of the last applied lobby settings.
func (s *State) LobbyID() protocol.SequenceID { return s.lobbyID }

// Data returns the last applied lobby settings, nil before the first.
func (s *State) Data() *protocol.LobbyData { return s.data }

// WantsLobbyData reports whether settings stamped lobbyID should be applied.
func (s *State) WantsLobbyData(lobbyID protocol.SequenceID) bool {
	return !s.hasLobby || protocol.IsMoreRecent(lobbyID, s.lobbyID)
}

// ApplyLobbyData applies settings stamped lobbyID if they are fresher.
func (s *State) ApplyLobbyData(lobbyID protocol.SequenceID, data *protocol.LobbyData) bool {
	if !s.WantsLobbyData(lobbyID) {
		return false
	}
	s.lobbyID = lobbyID
	s.hasLobby = true
	s.data = data
	util.LogDebug("lobby settings %d applied (submarine %q, mode %q)", lobbyID, data.Submarine.Name, data.ModeID)
	return true
}

// ForceResync steps the cached lobby id back by one, so the server sees the
// client as stale and resends the full lobby state.
func (s *State) ForceResync() {
	s.lobbyID = s.lobbyID.Prev()
}

// Reset clears everything tied to one server session. The next lobby
// settings are taken as the first of a new stream.
func (s *State) Reset() {
	s.lobbyID = 0
	s.hasLobby = false
	s.data = nil
	s.ClientID = 0
	s.ServerName = ""
	s.Permissions = 0
	s.Roster.Reset()
	s.Chat.Reset()
}

// Roster is the replicated list of participants. It is replaced wholesale.
type Roster struct {
	listID  protocol.SequenceID
	started bool
	clients []protocol.ClientRecord
}

// Apply replaces the roster with l if l is the first or a fresher snapshot.
func (r *Roster) Apply(l *protocol.ClientList) bool {
	if r.started && !protocol.IsMoreRecent(l.ListID, r.listID) {
		return false
	}
	r.listID = l.ListID
	r.started = true
	r.clients = append(r.clients[:0:0], l.Clients...)
	return true
}

// ListID is the id of the applied snapshot, echoed back to the server.
func (r *Roster) ListID() protocol.SequenceID { return r.listID }

// Clients returns a copy of the roster.
func (r *Roster) Clients() []protocol.ClientRecord {
	return append([]protocol.ClientRecord(nil), r.clients...)
}

// Find looks a participant up by id.
func (r *Roster) Find(id uint8) (protocol.ClientRecord, bool) {
	for _, c := range r.clients {
		if c.ID == id {
			return c, true
		}
	}
	return protocol.ClientRecord{}, false
}

func (r *Roster) Reset() {
	*r = Roster{}
}

const maxChatHistory = 100

// Chat tracks chat relayed by the server.
type Chat struct {
	lastID  protocol.SequenceID
	started bool
	history []protocol.ChatMessage
}

// Receive applies m if it is the first or fresher than the last one.
func (c *Chat) Receive(m *protocol.ChatMessage) bool {
	if c.started && !protocol.IsMoreRecent(m.ID, c.lastID) {
		return false
	}
	c.lastID = m.ID
	c.started = true
	c.history = append(c.history, *m)
	if len(c.history) > maxChatHistory {
		c.history = c.history[len(c.history)-maxChatHistory:]
	}
	return true
}

// LastReceived is the id acknowledged back to the server.
func (c *Chat) LastReceived() protocol.SequenceID { return c.lastID }

// History returns the retained messages, oldest first.
func (c *Chat) History() []protocol.ChatMessage {
	return append([]protocol.ChatMessage(nil), c.history...)
}

func (c *Chat) Reset() {
	*c = Chat{}
}

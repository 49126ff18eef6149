package lobby

import (
	"testing"

	"github.com/1ureka/roundlink/internal/protocol"
)

func TestRosterFirstSnapshotUnconditional(t *testing.T) {
	var r Roster
	// An id that is "older" than the zero value must still be taken first.
	if !r.Apply(&protocol.ClientList{ListID: 40000, Clients: []protocol.ClientRecord{{ID: 1, Name: "a"}}}) {
		t.Fatal("first snapshot rejected")
	}
	if r.Apply(&protocol.ClientList{ListID: 39999, Clients: nil}) {
		t.Error("stale snapshot applied")
	}
	if _, ok := r.Find(1); !ok {
		t.Error("stale snapshot mutated the roster")
	}

	if !r.Apply(&protocol.ClientList{ListID: 40001, Clients: []protocol.ClientRecord{{ID: 2, Name: "b"}}}) {
		t.Fatal("fresher snapshot rejected")
	}
	if _, ok := r.Find(1); ok {
		t.Error("roster was merged instead of replaced")
	}
	if r.ListID() != 40001 || len(r.Clients()) != 1 {
		t.Errorf("ListID() = %d, clients = %v", r.ListID(), r.Clients())
	}
}

func TestChatReceiveFreshness(t *testing.T) {
	var c Chat
	msgs := []protocol.SequenceID{5, 6, 6, 4, 8}
	var applied int
	for _, id := range msgs {
		if c.Receive(&protocol.ChatMessage{ID: id, Text: "x"}) {
			applied++
		}
	}
	if applied != 3 {
		t.Errorf("applied %d messages, want 3 (5, 6, 8)", applied)
	}
	if c.LastReceived() != 8 {
		t.Errorf("LastReceived() = %d, want 8", c.LastReceived())
	}
}

func TestLobbyDataAndForceResync(t *testing.T) {
	s := New()
	data := &protocol.LobbyData{ServerName: "srv", ModeID: "Sandbox"}

	if !s.ApplyLobbyData(7, data) {
		t.Fatal("first lobby data rejected")
	}
	if s.ApplyLobbyData(7, data) {
		t.Error("same lobby id applied twice")
	}

	s.ForceResync()
	if s.LobbyID() != 6 {
		t.Errorf("LobbyID() = %d after ForceResync, want 6", s.LobbyID())
	}
	if !s.WantsLobbyData(7) {
		t.Error("server's current lobby id not wanted after ForceResync")
	}

	s.lobbyID = 0
	s.ForceResync()
	if s.LobbyID() != 65535 {
		t.Errorf("ForceResync did not wrap: %d", s.LobbyID())
	}
}

func TestResetStartsNewLobbyStream(t *testing.T) {
	s := New()
	s.ApplyLobbyData(500, &protocol.LobbyData{ModeID: "sandbox"})
	s.Permissions = protocol.Permission(1)

	s.Reset()
	if s.Data() != nil || s.Permissions != 0 {
		t.Fatal("session state survived Reset")
	}
	if !s.ApplyLobbyData(1, &protocol.LobbyData{ModeID: "pvp"}) {
		t.Fatal("first lobby data after Reset rejected")
	}
	if s.LobbyID() != 1 || s.Data().ModeID != "pvp" {
		t.Errorf("lobby = %d %q, want 1 \"pvp\"", s.LobbyID(), s.Data().ModeID)
	}
}

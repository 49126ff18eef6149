// Package campaign tracks the client's replica of campaign progress: which
// campaign it is in, the newest save it holds and the update id of every
// independently versioned part of campaign state.
package campaign

import (
	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/util"
)

// State is owned by the update goroutine.
type State struct {
	id      uint8 // 0: not in a campaign
	saveID  protocol.SequenceID
	hasSave bool
	updates protocol.UpdateIDs
}

func New() *State {
	return &State{updates: make(protocol.UpdateIDs)}
}

// Active reports whether the client is in a campaign.
func (s *State) Active() bool { return s.id != 0 }

func (s *State) ID() uint8 { return s.id }

// LastSaveID returns the newest applied save id and whether any save has
// been applied.
func (s *State) LastSaveID() (protocol.SequenceID, bool) { return s.saveID, s.hasSave }

// UpdateID returns the last applied update id of flag.
func (s *State) UpdateID(flag protocol.CampaignFlag) (protocol.SequenceID, bool) {
	id, ok := s.updates[flag]
	return id, ok
}

// Join switches to campaign id. Progress of a different campaign is dropped.
func (s *State) Join(id uint8) {
	if id == s.id {
		return
	}
	util.LogInfo("joined campaign %d", id)
	s.Reset()
	s.id = id
}

// Reset forgets all campaign progress.
func (s *State) Reset() {
	s.id = 0
	s.saveID = 0
	s.hasSave = false
	s.updates = make(protocol.UpdateIDs)
}

// ApplySave records a newly loaded save. The first save is always taken;
// later ones only when fresher than the current one.
func (s *State) ApplySave(saveID protocol.SequenceID) bool {
	if s.hasSave && !protocol.IsMoreRecent(saveID, s.saveID) {
		util.LogDebug("ignoring stale campaign save %d (have %d)", saveID, s.saveID)
		return false
	}
	s.saveID = saveID
	s.hasSave = true
	return true
}

// HasSave reports whether the applied save is saveID or newer.
func (s *State) HasSave(saveID protocol.SequenceID) bool {
	return s.hasSave && protocol.IsMoreRecentOrEqual(s.saveID, saveID)
}

// ApplyUpdate applies the server's campaign segment. Each flag follows its
// own stream: the first id is taken, later ones only when fresher. It
// reports whether the server holds a save this client has not loaded yet.
func (s *State) ApplyUpdate(u *protocol.CampaignUpdate) (needSave bool) {
	s.Join(u.CampaignID)
	for flag, id := range u.UpdateIDs {
		cur, ok := s.updates[flag]
		if !ok || protocol.IsMoreRecent(id, cur) {
			s.updates[flag] = id
		}
	}
	return !s.HasSave(u.SaveID)
}

// Pointer is what the client tells the server about its save.
func (s *State) Pointer() protocol.CampaignPointer {
	if !s.hasSave {
		return protocol.CampaignPointer{CampaignID: s.id}
	}
	return protocol.CampaignPointer{CampaignID: s.id, SaveID: s.saveID}
}

// Ready evaluates a campaign start query: the campaign, the save and every
// flag's update id must equal the server's exactly.
func (s *State) Ready(q *protocol.QueryStartGame) bool {
	if q.CampaignID != s.id || !s.hasSave || q.SaveID != s.saveID {
		return false
	}
	if len(q.UpdateIDs) != len(s.updates) {
		return false
	}
	for flag, id := range q.UpdateIDs {
		if cur, ok := s.updates[flag]; !ok || cur != id {
			return false
		}
	}
	return true
}

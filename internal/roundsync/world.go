package roundsync

import (
	"time"

	"github.com/1ureka/roundlink/internal/protocol"
	"github.com/1ureka/roundlink/internal/transport"
)

// Team is a side of the round.
type Team uint8

const (
	TeamNone Team = iota
	TeamA
	TeamB
)

func (t Team) String() string {
	switch t {
	case TeamA:
		return "A"
	case TeamB:
		return "B"
	default:
		return "none"
	}
}

// CampaignRound carries the campaign fields of a STARTGAME.
type CampaignRound struct {
	CampaignID        uint8
	SaveID            protocol.SequenceID
	NextLocationIndex int32
	ConnectionIndex   int32
}

// RoundSetup is everything the world needs to generate the same round as
// the server.
type RoundSetup struct {
	RoundID   uint32
	Seed      int32
	LevelSeed string
	ModeID    string
	Flags     protocol.RoundFlags

	Submarine      protocol.SubmarineRef
	Shuttle        protocol.SubmarineRef
	EnemySubmarine protocol.SubmarineRef
	MissionHashes  []uint32

	Campaign *CampaignRound // nil outside campaigns
}

func setupFromStart(m *protocol.StartGame) RoundSetup {
	s := RoundSetup{
		RoundID:        m.RoundID,
		Seed:           m.Seed,
		LevelSeed:      m.LevelSeed,
		ModeID:         m.ModeID,
		Flags:          m.Flags,
		Submarine:      m.Submarine,
		Shuttle:        m.Shuttle,
		EnemySubmarine: m.EnemySubmarine,
		MissionHashes:  m.MissionHashes,
	}
	if m.IsCampaign {
		s.Campaign = &CampaignRound{
			CampaignID:        m.CampaignID,
			SaveID:            m.SaveID,
			NextLocationIndex: m.NextLocationIndex,
			ConnectionIndex:   m.ConnectionIndex,
		}
	}
	return s
}

// World constructs and ends rounds. It is implemented by the simulation.
type World interface {
	// HasSubmarine reports whether ref resolves to an intact local file.
	HasSubmarine(ref protocol.SubmarineRef) bool
	ConstructRound(setup RoundSetup) (Round, error)
	EndRound()
}

// Round is a constructed round as seen by the handshake.
type Round interface {
	SubmarineChecksum() uint32
	MissionHashes() []uint32
	LevelStages() map[string]uint32

	// MainSubmarines returns the player submarines in discovery order.
	MainSubmarines() []Submarine

	Preload(ids []string)
	// ApplyFinalize applies mission states, crew orders and perks.
	ApplyFinalize(m *protocol.StartGameFinalize)
}

// Submarine is the part of a submarine team assignment touches.
type Submarine interface {
	SetTeam(t Team)
	Docked() []Submarine
}

// Prompter asks the user whether to keep waiting for the server. The answer
// arrives on the returned channel: true keeps waiting, false abandons. done
// is closed when the question no longer applies, for example because
// STARTGAMEFINALIZE arrived while it was open.
type Prompter interface {
	KeepWaiting(waited time.Duration, done <-chan struct{}) <-chan bool
}

// Sender delivers packets to the server.
type Sender interface {
	Send(data []byte, mode transport.DeliveryMode) error
}

// AssignTeams gives the first main submarine team A and the second team B,
// and propagates each team to everything docked to it.
func AssignTeams(subs []Submarine) {
	seen := make(map[Submarine]bool)
	for i, sub := range subs {
		team := TeamNone
		switch i {
		case 0:
			team = TeamA
		case 1:
			team = TeamB
		}
		propagateTeam(sub, team, seen)
	}
}

func propagateTeam(sub Submarine, team Team, seen map[Submarine]bool) {
	if sub == nil || seen[sub] {
		return
	}
	seen[sub] = true
	sub.SetTeam(team)
	for _, d := range sub.Docked() {
		propagateTeam(d, team, seen)
	}
}

package roundsync

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Retryable and local failures of a start attempt.
var (
	// ErrRoundMismatch means FINALIZE was for another round; the server has
	// moved on and the client asks for a fresh STARTGAME.
	ErrRoundMismatch     = errors.New("roundsync: finalize is for another round")
	ErrSubmarineNotFound = errors.New("roundsync: submarine not found locally")
	ErrSaveTimeout       = errors.New("roundsync: timed out waiting for campaign save")
	ErrAbandoned         = errors.New("roundsync: round start abandoned")
)

// FaultKind names what the two machines disagreed on.
type FaultKind uint8

const (
	FaultGeometry FaultKind = iota + 1
	FaultMissions
	FaultLevelStage
)

func (k FaultKind) String() string {
	switch k {
	case FaultGeometry:
		return "geometry"
	case FaultMissions:
		return "missions"
	case FaultLevelStage:
		return "level stage"
	default:
		return fmt.Sprintf("FaultKind(%d)", uint8(k))
	}
}

// DesyncFault is a fatal equality mismatch during FINALIZE. The client
// and the server generated different worlds and the attempt cannot go on.
type DesyncFault struct {
	Kind      FaultKind
	RoundID   uint32
	LevelSeed string
	Detail    string
}

func (f *DesyncFault) Error() string {
	return fmt.Sprintf("roundsync: %s desync in round %d: %s", f.Kind, f.RoundID, f.Detail)
}

// SameMissionSet compares mission hashes as sets, ignoring order.
func SameMissionSet(local, remote []uint32) bool {
	if len(local) != len(remote) {
		return false
	}
	a := slices.Clone(local)
	b := slices.Clone(remote)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// CompareLevelStages requires both sides to hold the same stage keys with
// identical values. It returns a description of the first mismatch.
func CompareLevelStages(local, remote map[string]uint32) (string, bool) {
	keys := make([]string, 0, len(local)+len(remote))
	for k := range local {
		keys = append(keys, k)
	}
	for k := range remote {
		if _, ok := local[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		lv, lok := local[k]
		rv, rok := remote[k]
		switch {
		case !lok:
			return fmt.Sprintf("stage %q missing locally (server 0x%x)", k, rv), false
		case !rok:
			return fmt.Sprintf("stage %q missing on server (local 0x%x)", k, lv), false
		case lv != rv:
			return fmt.Sprintf("stage %q: local 0x%x, server 0x%x", k, lv, rv), false
		}
	}
	return "", true
}

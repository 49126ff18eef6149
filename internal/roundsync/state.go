// Package roundsync drives the round-start handshake: the optional query
// probe, STARTGAME, the STARTGAMEFINALIZE exchange with its equality checks,
// and the end-of-round teardown. It owns the client's RoundInitState.
//
// Every method runs on the update goroutine. Waiting is done by tasks in
// the shared task.Scheduler, stepped once per tick.
package roundsync

import "fmt"

// RoundInitState is where the client is in bringing up a round.
type RoundInitState uint8

const (
	NotStarted RoundInitState = iota
	Starting
	WaitingForFinalize
	Started
	Error
	Interrupted
)

var stateNames = [...]string{
	NotStarted:         "NotStarted",
	Starting:           "Starting",
	WaitingForFinalize: "WaitingForFinalize",
	Started:            "Started",
	Error:              "Error",
	Interrupted:        "Interrupted",
}

func (s RoundInitState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("RoundInitState(%d)", uint8(s))
}

// Terminal reports whether s ends an attempt. Only ReturnToLobby leaves a
// terminal state.
func (s RoundInitState) Terminal() bool {
	return s == Error || s == Interrupted
}

// handshaking reports whether a start attempt is in flight.
func (s RoundInitState) handshaking() bool {
	return s == Starting || s == WaitingForFinalize
}

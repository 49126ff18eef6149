package transport

import (
	"fmt"
	"strings"
)

// DisconnectCategory classifies why a session ended.
type DisconnectCategory uint8

const (
	Generic DisconnectCategory = iota
	Timeout
	ServerFull
	EventSyncError
	Kicked
	Banned
	ServerShutdown
	ServerCrashed
)

var categoryNames = [...]string{
	Generic:        "Generic",
	Timeout:        "Timeout",
	ServerFull:     "ServerFull",
	EventSyncError: "EventSyncError",
	Kicked:         "Kicked",
	Banned:         "Banned",
	ServerShutdown: "ServerShutdown",
	ServerCrashed:  "ServerCrashed",
}

func (c DisconnectCategory) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("DisconnectCategory(%d)", uint8(c))
}

// DisconnectReason is the structured reason carried by a close.
type DisconnectReason struct {
	Category DisconnectCategory
	Message  string
}

// Reason builds a DisconnectReason.
func Reason(c DisconnectCategory, format string, args ...any) DisconnectReason {
	return DisconnectReason{Category: c, Message: fmt.Sprintf(format, args...)}
}

// Reconnectable reports whether the client may rejoin automatically after
// losing the session for this reason.
func (r DisconnectReason) Reconnectable() bool {
	switch r.Category {
	case Timeout, EventSyncError, ServerCrashed:
		return true
	default:
		return false
	}
}

func (r DisconnectReason) String() string {
	if r.Message == "" {
		return r.Category.String()
	}
	return r.Category.String() + ": " + r.Message
}

// Encode renders the reason as the text of a close frame.
func (r DisconnectReason) Encode() string {
	return r.Category.String() + ";" + r.Message
}

// ParseDisconnectReason is the inverse of Encode. Text it does not
// recognize becomes a Generic reason carrying the whole text.
func ParseDisconnectReason(text string) DisconnectReason {
	name, msg, ok := strings.Cut(text, ";")
	if !ok {
		return DisconnectReason{Category: Generic, Message: text}
	}
	for c, n := range categoryNames {
		if n == name {
			return DisconnectReason{Category: DisconnectCategory(c), Message: msg}
		}
	}
	return DisconnectReason{Category: Generic, Message: text}
}

// Package protocol defines the wire format shared by the client and the
// server: packet headers, the segment table used by multiplexed update
// packets, message payloads and the wrapping sequence id comparator.
package protocol

import (
	"errors"
	"fmt"
)

// Version is sent in the join request; the server rejects mismatches.
const Version uint16 = 3

// ErrEmptyPacket is returned when a message carries no header byte.
var ErrEmptyPacket = errors.New("protocol: empty packet")

// ClientHeader is the first byte of every client → server message.
type ClientHeader uint8

const (
	ClientPingResponse ClientHeader = iota + 1
	ClientJoinRequest
	ClientUpdateLobby
	ClientUpdateInGame
	ClientResponseQueryStartGame
	ClientRequestStartGame
	ClientRequestStartGameFinalize
	ClientFileRequest
	ClientServerCommand
	ClientError
)

var clientHeaderNames = map[ClientHeader]string{
	ClientPingResponse:             "PING_RESPONSE",
	ClientJoinRequest:              "JOIN_REQUEST",
	ClientUpdateLobby:              "UPDATE_LOBBY",
	ClientUpdateInGame:             "UPDATE_INGAME",
	ClientResponseQueryStartGame:   "RESPONSE_QUERY_STARTGAME",
	ClientRequestStartGame:         "REQUEST_STARTGAME",
	ClientRequestStartGameFinalize: "REQUEST_STARTGAMEFINALIZE",
	ClientFileRequest:              "FILE_REQUEST",
	ClientServerCommand:            "SERVER_COMMAND",
	ClientError:                    "ERROR",
}

func (h ClientHeader) String() string {
	if name, ok := clientHeaderNames[h]; ok {
		return name
	}
	return fmt.Sprintf("ClientHeader(%d)", uint8(h))
}

// ServerHeader is the first byte of every server → client message.
type ServerHeader uint8

const (
	ServerPingRequest ServerHeader = iota + 1
	ServerJoinAccepted
	ServerUpdateLobby
	ServerUpdateInGame
	ServerQueryStartGame
	ServerStartGame
	ServerStartGameFinalize
	ServerCancelStartGame
	ServerEndGame
	ServerFileTransfer
	ServerPermissions
	ServerChatMessage
)

var serverHeaderNames = map[ServerHeader]string{
	ServerPingRequest:       "PING_REQUEST",
	ServerJoinAccepted:      "JOIN_ACCEPTED",
	ServerUpdateLobby:       "UPDATE_LOBBY",
	ServerUpdateInGame:      "UPDATE_INGAME",
	ServerQueryStartGame:    "QUERY_STARTGAME",
	ServerStartGame:         "STARTGAME",
	ServerStartGameFinalize: "STARTGAMEFINALIZE",
	ServerCancelStartGame:   "CANCEL_STARTGAME",
	ServerEndGame:           "ENDGAME",
	ServerFileTransfer:      "FILE_TRANSFER",
	ServerPermissions:       "PERMISSIONS",
	ServerChatMessage:       "CHAT_MESSAGE",
}

func (h ServerHeader) String() string {
	if name, ok := serverHeaderNames[h]; ok {
		return name
	}
	return fmt.Sprintf("ServerHeader(%d)", uint8(h))
}

// Valid reports whether h is a known server header.
func (h ServerHeader) Valid() bool {
	_, ok := serverHeaderNames[h]
	return ok
}

// NewClientMessage starts an encoder with the given header byte.
func NewClientMessage(h ClientHeader) *Encoder {
	e := NewEncoder()
	e.WriteByte(byte(h))
	return e
}

// NewServerMessage starts an encoder with the given header byte. The client
// never sends these; tests and local tooling use it to build server traffic.
func NewServerMessage(h ServerHeader) *Encoder {
	e := NewEncoder()
	e.WriteByte(byte(h))
	return e
}

// SplitServerMessage reads the header byte of an inbound message and returns
// a decoder positioned at the payload.
func SplitServerMessage(data []byte) (ServerHeader, *Decoder, error) {
	if len(data) == 0 {
		return 0, nil, ErrEmptyPacket
	}
	return ServerHeader(data[0]), NewDecoder(data[1:]), nil
}

// SplitClientMessage is the server-side counterpart of SplitServerMessage.
func SplitClientMessage(data []byte) (ClientHeader, *Decoder, error) {
	if len(data) == 0 {
		return 0, nil, ErrEmptyPacket
	}
	return ClientHeader(data[0]), NewDecoder(data[1:]), nil
}

// Package wire defines the socket protocol: event names and the JSON payload
// shapes exchanged with clients. It is dependency-free so both the gateway and
// session layers can build payloads without import cycles.
package wire

import "encoding/json"

// Inbound event names (client to server).
const (
	EventCreateRoom  = "createRoom"
	EventJoinRoom    = "joinRoom"
	EventSelectPiece = "selectPiece"
	EventMove        = "move"
)

// Outbound event names (server to client).
const (
	EventRoomCreated = "roomCreated"
	EventPlayerRole  = "playerRole"
	EventRoomState   = "roomState"
	EventGameStart   = "gameStart"
	EventLegalMoves  = "legalMoves"
	EventMovePlayed  = "move"
	EventInvalidMove = "invalidMove"
	EventGameOver    = "gameOver"
	EventPlayerLeft  = "playerLeft"
	EventError       = "error"
)

// Envelope is the inbound frame. Data stays raw until the event name selects
// a payload type; unknown or malformed frames are rejected at the gateway.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Frame is the outbound counterpart of Envelope.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

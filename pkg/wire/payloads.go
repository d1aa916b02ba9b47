package wire

// JoinRoom asks to join an existing room.
type JoinRoom struct {
	RoomID string `json:"roomId"`
}

// SelectPiece asks for the legal destinations of one square. Advisory only.
type SelectPiece struct {
	RoomID string `json:"roomId"`
	Square string `json:"square"`
}

// Move is a candidate move as submitted by a client.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// RoomCreated answers a createRoom request.
type RoomCreated struct {
	RoomID string `json:"roomId"`
}

// Player is one seated player as shown to clients.
type Player struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

// GameState is the position plus lifecycle status of a room's game.
type GameState struct {
	FEN    string `json:"fen"`
	Status string `json:"gameStatus"`
}

// RoomState resynchronizes one connection after a join or rejoin.
type RoomState struct {
	Game    GameState `json:"game"`
	Players []Player  `json:"players"`
}

// GameStart is broadcast when the second seat fills.
type GameStart struct {
	Players []Player `json:"players"`
	Status  string   `json:"gameStatus"`
	FEN     string   `json:"fen"`
}

// LegalMove is one legal destination from a queried square.
type LegalMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Piece     string `json:"piece"`
	Color     string `json:"color"`
	Captured  string `json:"captured,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

// LegalMoves answers a selectPiece request.
type LegalMoves struct {
	Square string      `json:"square"`
	Moves  []LegalMove `json:"moves"`
}

// MoveDetail describes an accepted move inside a MovePlayed broadcast.
type MoveDetail struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Color     string `json:"color"`
	Captured  string `json:"captured,omitempty"`
	SAN       string `json:"san,omitempty"`
}

// MovePlayed is broadcast after every accepted move.
type MovePlayed struct {
	Move   MoveDetail `json:"move"`
	FEN    string     `json:"fen"`
	Status string     `json:"gameStatus"`
}

// GameOver is broadcast when the position becomes terminal. Winner is
// "white", "black" or "draw".
type GameOver struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// PlayerLeft is broadcast when a seated player disconnects.
type PlayerLeft struct {
	Color  string `json:"color"`
	Status string `json:"gameStatus"`
}

// ErrorMessage is sent to a single connection on a protocol violation.
type ErrorMessage struct {
	Message string `json:"message"`
}

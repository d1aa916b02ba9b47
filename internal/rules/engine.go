// Package rules wraps the chess rules library behind an explicit accept/reject
// result type. It is pure and synchronous: callers pass a FEN position plus a
// candidate move and get back either the resulting position with move metadata
// or a rejection. No state is kept here.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Candidate is a move as submitted by a client.
type Candidate struct {
	From      string
	To        string
	Promotion string
}

// UCI renders the candidate in UCI form, e.g. "e2e4" or "e7e8q".
func (c Candidate) UCI() string {
	return strings.ToLower(strings.TrimSpace(c.From) + strings.TrimSpace(c.To) + strings.TrimSpace(c.Promotion))
}

// MoveInfo describes a move the engine accepted.
type MoveInfo struct {
	From      string
	To        string
	Promotion string
	Color     Color
	Captured  string // piece letter ("p", "n", ...), empty when nothing was taken
	SAN       string
	Check     bool
}

// Terminal reports whether the resulting position ended the game.
type Terminal struct {
	Over   bool
	Winner string // "white", "black" or "draw"
	Reason string // "checkmate", "stalemate", repetition/material draw names
}

// Result is the outcome of applying a candidate move to a position.
// Exactly one of Accepted / rejection applies; a rejected result carries
// no position change.
type Result struct {
	Accepted bool
	FEN      string
	Move     MoveInfo
	Terminal Terminal
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

// SideToMove derives the side to move from the position alone.
func SideToMove(fen string) (Color, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}
	return colorFrom(game.Position().Turn()), nil
}

// Apply validates the candidate against the position. Illegal or unparseable
// moves yield Result{Accepted: false}; an error is returned only when the
// position itself cannot be loaded.
func Apply(fen string, cand Candidate) (Result, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return Result{}, err
	}

	pos := game.Position()
	mover := colorFrom(pos.Turn())

	uci := cand.UCI()
	if uci == "" {
		return Result{}, nil
	}
	move, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return Result{}, nil
	}
	captured := capturedLetter(pos, move)
	san := nchess.AlgebraicNotation{}.Encode(pos, move)
	if err := game.Move(move, nil); err != nil {
		return Result{}, nil
	}

	res := Result{
		Accepted: true,
		FEN:      game.FEN(),
		Move: MoveInfo{
			From:      strings.ToLower(strings.TrimSpace(cand.From)),
			To:        strings.ToLower(strings.TrimSpace(cand.To)),
			Promotion: strings.ToLower(strings.TrimSpace(cand.Promotion)),
			Color:     mover,
			Captured:  captured,
			SAN:       san,
			Check:     move.HasTag(nchess.Check),
		},
	}
	res.Terminal = terminalFrom(game)
	return res, nil
}

// MovesFrom lists the legal moves that start on the given square. The result
// is advisory: authority stays with Apply.
func MovesFrom(fen, square string) ([]LegalMove, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}
	square = strings.ToLower(strings.TrimSpace(square))
	if square == "" {
		return nil, nil
	}

	pos := game.Position()
	board := pos.Board()
	mover := colorFrom(pos.Turn())

	var out []LegalMove
	for _, mv := range game.ValidMoves() {
		if mv.S1().String() != square {
			continue
		}
		captured := ""
		if mv.HasTag(nchess.EnPassant) {
			captured = pieceLetter(nchess.Pawn)
		} else if mv.HasTag(nchess.Capture) {
			captured = pieceLetter(board.Piece(mv.S2()).Type())
		}
		lm := LegalMove{
			From:     square,
			To:       mv.S2().String(),
			Piece:    pieceLetter(board.Piece(mv.S1()).Type()),
			Color:    string(mover),
			Captured: captured,
		}
		if p := mv.Promo(); p != nchess.NoPieceType {
			lm.Promotion = pieceLetter(p)
		}
		out = append(out, lm)
	}
	return out, nil
}

func gameFromFEN(fen string) (*nchess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return nchess.NewGame(), nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return nchess.NewGame(option), nil
}

func terminalFrom(game *nchess.Game) Terminal {
	outcome := game.Outcome()
	if outcome == nchess.NoOutcome {
		return Terminal{}
	}
	t := Terminal{Over: true, Reason: strings.ToLower(game.Method().String())}
	switch outcome {
	case nchess.WhiteWon:
		t.Winner = string(White)
	case nchess.BlackWon:
		t.Winner = string(Black)
	default:
		t.Winner = "draw"
	}
	return t
}

func capturedLetter(pos *nchess.Position, mv *nchess.Move) string {
	if mv.HasTag(nchess.EnPassant) {
		return pieceLetter(nchess.Pawn)
	}
	if !mv.HasTag(nchess.Capture) {
		return ""
	}
	return pieceLetter(pos.Board().Piece(mv.S2()).Type())
}

func pieceLetter(pt nchess.PieceType) string {
	switch pt {
	case nchess.Pawn:
		return "p"
	case nchess.Knight:
		return "n"
	case nchess.Bishop:
		return "b"
	case nchess.Rook:
		return "r"
	case nchess.Queen:
		return "q"
	case nchess.King:
		return "k"
	default:
		return ""
	}
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}

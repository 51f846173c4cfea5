// Package engine implements the chess rules kernel: move legality, check
// detection, game status and an undoable history of game states.
//
// The engine is synchronous and holds no locks. Callers that receive moves
// from several sources must serialize them before handing them over.
package engine

import (
	"fmt"
	"slices"
)

type Color int8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	}
	return "None"
}

// Opponent returns the other side. NoColor has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	}
	return NoColor
}

type Kind int8

const (
	Pawn Kind = iota + 1
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindNames = [...]string{
	Pawn:   "pawn",
	Rook:   "rook",
	Knight: "knight",
	Bishop: "bishop",
	Queen:  "queen",
	King:   "king",
}

func (k Kind) String() string {
	if k.valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int8(k))
}

func (k Kind) valid() bool { return k >= Pawn && k <= King }

// Square is a zero-based (file, rank) coordinate; file 0 is the a-file and
// rank 0 is White's back rank.
type Square struct {
	File, Rank int
}

func Sq(file, rank int) Square { return Square{File: file, Rank: rank} }

func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%c%d", 'a'+s.File, s.Rank+1)
}

// ParseSquare parses algebraic notation such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("square %q: want file and rank like e4", s)
	}
	sq := Sq(int(s[0]-'a'), int(s[1]-'1'))
	if !sq.Valid() {
		return Square{}, fmt.Errorf("square %q off the board", s)
	}
	return sq, nil
}

// mustValid panics on an out-of-range square. Coordinates outside the board
// are a programming error, not an illegal move.
func mustValid(squares ...Square) {
	for _, s := range squares {
		if !s.Valid() {
			panic(fmt.Sprintf("engine: square (%d,%d) out of range", s.File, s.Rank))
		}
	}
}

// Piece is an immutable value; moving produces a new Piece.
type Piece struct {
	Kind   Kind   `json:"type"`
	Color  Color  `json:"color"`
	Square Square `json:"position"`
}

func (p Piece) String() string {
	return fmt.Sprintf("%s %s %s", p.Color, p.Kind, p.Square)
}

type Move struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

func (m Move) String() string { return m.From.String() + "-" + m.To.String() }

type Status int8

const (
	Active Status = iota
	Check
	Checkmate
	Stalemate
)

var statusNames = [...]string{
	Active:    "active",
	Check:     "check",
	Checkmate: "checkmate",
	Stalemate: "stalemate",
}

func (s Status) String() string {
	if s >= Active && s <= Stalemate {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int8(s))
}

// Over reports whether no further moves can be played.
func (s Status) Over() bool { return s == Checkmate || s == Stalemate }

// GameState is one immutable snapshot of a game. Status and Winner are always
// derived from Position; they are recomputed on every transition and on load.
type GameState struct {
	Position Position `json:"position"`
	Status   Status   `json:"status"`
	Winner   Color    `json:"winner"`
	Moves    []Move   `json:"moveHistory"`
	Captured []Piece  `json:"capturedPieces"`
}

// Clone returns a deep copy that shares no slices with s.
func (s GameState) Clone() GameState {
	s.Position = s.Position.clone()
	s.Moves = slices.Clone(s.Moves)
	s.Captured = slices.Clone(s.Captured)
	return s
}

// LastMove returns the most recent move, if any.
func (s GameState) LastMove() (Move, bool) {
	if len(s.Moves) == 0 {
		return Move{}, false
	}
	return s.Moves[len(s.Moves)-1], true
}

package engine

import "slices"

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Position is the piece placement and the side to move. Piece order carries
// no meaning; at most one piece may occupy a square.
type Position struct {
	Pieces []Piece `json:"pieces"`
	Turn   Color   `json:"turn"`
}

// StartingPosition returns the standard 32-piece setup with White to move.
func StartingPosition() Position {
	pieces := make([]Piece, 0, 32)
	for file, kind := range backRank {
		pieces = append(pieces, Piece{Kind: kind, Color: White, Square: Sq(file, 0)})
	}
	for file := range 8 {
		pieces = append(pieces, Piece{Kind: Pawn, Color: White, Square: Sq(file, 1)})
	}
	for file, kind := range backRank {
		pieces = append(pieces, Piece{Kind: kind, Color: Black, Square: Sq(file, 7)})
	}
	for file := range 8 {
		pieces = append(pieces, Piece{Kind: Pawn, Color: Black, Square: Sq(file, 6)})
	}
	return Position{Pieces: pieces, Turn: White}
}

// At returns the piece on sq, if any.
func (p Position) At(sq Square) (Piece, bool) {
	if i := p.index(sq); i >= 0 {
		return p.Pieces[i], true
	}
	return Piece{}, false
}

func (p Position) occupied(sq Square) bool { return p.index(sq) >= 0 }

func (p Position) index(sq Square) int {
	for i, pc := range p.Pieces {
		if pc.Square == sq {
			return i
		}
	}
	return -1
}

// King returns the square of color's king. ok is false when there is none.
func (p Position) King(color Color) (sq Square, ok bool) {
	for _, pc := range p.Pieces {
		if pc.Kind == King && pc.Color == color {
			return pc.Square, true
		}
	}
	return Square{}, false
}

func (p Position) clone() Position {
	p.Pieces = slices.Clone(p.Pieces)
	return p
}

// play returns the position after moving the piece on from to to, and the
// captured piece if there was one. p is not modified. play trusts the
// caller to have checked legality.
func (p Position) play(from, to Square) (next Position, captured Piece, took bool) {
	next = Position{Pieces: make([]Piece, 0, len(p.Pieces)), Turn: p.Turn.Opponent()}
	for _, pc := range p.Pieces {
		switch pc.Square {
		case to:
			captured, took = pc, true
			continue
		case from:
			pc.Square = to
		}
		next.Pieces = append(next.Pieces, pc)
	}
	return next, captured, took
}

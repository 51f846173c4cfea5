package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	kings := []Piece{
		{Kind: King, Color: White, Square: Sq(4, 0)},
		{Kind: King, Color: Black, Square: Sq(4, 7)},
	}
	with := func(extra ...Piece) []Piece {
		return append(append([]Piece(nil), kings...), extra...)
	}
	manyPawns := func() []Piece {
		var pawns []Piece
		for i := range 16 {
			pawns = append(pawns, Piece{Kind: Pawn, Color: White, Square: Sq(i%8, 1+i/8)})
		}
		return with(pawns...)
	}

	tests := []struct {
		name    string
		pos     Position
		wantErr bool
	}{
		{"start", StartingPosition(), false},
		{"bare kings", Position{Pieces: with(), Turn: Black}, false},
		{"no side to move", Position{Pieces: with()}, true},
		{"off board", Position{Pieces: with(Piece{Kind: Rook, Color: White, Square: Sq(8, 0)}), Turn: White}, true},
		{"duplicate square", Position{Pieces: with(Piece{Kind: Rook, Color: Black, Square: Sq(4, 0)}), Turn: White}, true},
		{"unknown kind", Position{Pieces: with(Piece{Color: White, Square: Sq(0, 0)}), Turn: White}, true},
		{"no colour", Position{Pieces: with(Piece{Kind: Rook, Square: Sq(0, 0)}), Turn: White}, true},
		{"missing king", Position{Pieces: kings[:1], Turn: White}, true},
		{"extra king", Position{Pieces: with(Piece{Kind: King, Color: Black, Square: Sq(0, 7)}), Turn: White}, true},
		{"seventeen pieces", Position{Pieces: manyPawns(), Turn: White}, true},
		{"checking side to move", Position{Pieces: with(Piece{Kind: Rook, Color: White, Square: Sq(4, 3)}), Turn: Black}, false},
		{"opponent left in check", Position{Pieces: with(Piece{Kind: Rook, Color: White, Square: Sq(4, 3)}), Turn: White}, true},
		{"adjacent kings", Position{Pieces: []Piece{
			{Kind: King, Color: White, Square: Sq(4, 0)},
			{Kind: King, Color: Black, Square: Sq(4, 1)},
		}, Turn: White}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.pos)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPosition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package engine

import (
	"fmt"
	"strings"
)

// StartingFEN is the placement and side-to-move fields of the initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w"

var fenKinds = map[byte]Kind{
	'p': Pawn,
	'r': Rook,
	'n': Knight,
	'b': Bishop,
	'q': Queen,
	'k': King,
}

var fenLetters = [...]byte{
	Pawn:   'p',
	Rook:   'r',
	Knight: 'n',
	Bishop: 'b',
	Queen:  'q',
	King:   'k',
}

// ParseFEN reads the piece placement and active colour fields of a FEN
// string. Any further fields are ignored. The side to move defaults to White
// when absent. The result is validated.
func ParseFEN(fen string) (Position, error) {
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return Position{}, fmt.Errorf("%w: empty FEN", ErrInvalidPosition)
	}

	rows := strings.Split(fields[0], "/")
	if len(rows) != 8 {
		return Position{}, fmt.Errorf("%w: FEN has %d ranks", ErrInvalidPosition, len(rows))
	}

	var pos Position
	for i, row := range rows {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			kind, ok := fenKinds[lower(c)]
			if !ok {
				return Position{}, fmt.Errorf("%w: bad FEN character %q", ErrInvalidPosition, c)
			}
			if file > 7 {
				return Position{}, fmt.Errorf("%w: FEN rank %d too long", ErrInvalidPosition, rank+1)
			}
			color := White
			if c >= 'a' {
				color = Black
			}
			pos.Pieces = append(pos.Pieces, Piece{Kind: kind, Color: color, Square: Sq(file, rank)})
			file++
		}
		if file != 8 {
			return Position{}, fmt.Errorf("%w: FEN rank %d has %d files", ErrInvalidPosition, rank+1, file)
		}
	}

	pos.Turn = White
	if len(fields) > 1 {
		switch fields[1] {
		case "w":
		case "b":
			pos.Turn = Black
		default:
			return Position{}, fmt.Errorf("%w: bad side to move %q", ErrInvalidPosition, fields[1])
		}
	}

	if err := Validate(pos); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// FEN returns the placement and active colour fields for p.
func (p Position) FEN() string {
	var board [8][8]byte
	for _, pc := range p.Pieces {
		if !pc.Square.Valid() || !pc.Kind.valid() {
			continue
		}
		c := fenLetters[pc.Kind]
		if pc.Color == White {
			c -= 'a' - 'A'
		}
		board[pc.Square.Rank][pc.Square.File] = c
	}

	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := range 8 {
			c := board[rank][file]
			if c == 0 {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteByte(byte('0' + empty))
				empty = 0
			}
			b.WriteByte(c)
		}
		if empty > 0 {
			b.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			b.WriteByte('/')
		}
	}

	if p.Turn == Black {
		b.WriteString(" b")
	} else {
		b.WriteString(" w")
	}
	return b.String()
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

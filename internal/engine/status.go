package engine

import "slices"

// Evaluate classifies p from the point of view of the side to move. The
// winner of a checkmate is the side that just moved; every other status has
// no winner.
func Evaluate(p Position) (Status, Color) {
	inCheck := InCheck(p, p.Turn)
	canMove := hasLegalMove(p)

	switch {
	case inCheck && !canMove:
		return Checkmate, p.Turn.Opponent()
	case inCheck:
		return Check, NoColor
	case !canMove:
		return Stalemate, NoColor
	}
	return Active, NoColor
}

// NewGameState returns the state at the start of a game.
func NewGameState() GameState {
	return stateFor(StartingPosition(), []Move{}, []Piece{})
}

// stateFor builds a GameState whose status is derived from pos.
func stateFor(pos Position, moves []Move, captured []Piece) GameState {
	status, winner := Evaluate(pos)
	return GameState{
		Position: pos,
		Status:   status,
		Winner:   winner,
		Moves:    moves,
		Captured: captured,
	}
}

// next returns the state after the legal move from-to. s is not modified.
func (s GameState) next(from, to Square) GameState {
	pos, taken, took := s.Position.play(from, to)

	moves := make([]Move, len(s.Moves), len(s.Moves)+1)
	copy(moves, s.Moves)
	moves = append(moves, Move{From: from, To: to})

	captured := slices.Clone(s.Captured)
	if took {
		captured = append(captured, taken)
	}
	return stateFor(pos, moves, captured)
}

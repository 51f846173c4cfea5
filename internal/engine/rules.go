package engine

// geometryFunc reports whether pc may travel from its square to to under its
// kind's movement rules, ignoring whether the mover's king ends up attacked.
// Callers have already ruled out a zero move and a same-colour target.
type geometryFunc func(p Position, pc Piece, to Square, dx, dy int) bool

var geometry = [...]geometryFunc{
	Pawn:   pawnMove,
	Rook:   rookMove,
	Knight: knightMove,
	Bishop: bishopMove,
	Queen:  queenMove,
	King:   kingMove,
}

func pawnDirection(c Color) (direction, startRank int) {
	if c == Black {
		return -1, 6
	}
	return 1, 1
}

func pawnMove(p Position, pc Piece, to Square, dx, dy int) bool {
	direction, startRank := pawnDirection(pc.Color)

	if dx == 0 && !p.occupied(to) {
		if dy == direction {
			return true
		}
		if pc.Square.Rank == startRank && dy == 2*direction {
			return !p.occupied(Sq(pc.Square.File, pc.Square.Rank+direction))
		}
		return false
	}

	if abs(dx) == 1 && dy == direction {
		target, ok := p.At(to)
		return ok && target.Color != pc.Color
	}

	return false
}

func rookMove(p Position, pc Piece, to Square, dx, dy int) bool {
	if dx != 0 && dy != 0 {
		return false
	}
	return p.pathClear(pc.Square, to)
}

func knightMove(_ Position, _ Piece, _ Square, dx, dy int) bool {
	return (abs(dx) == 2 && abs(dy) == 1) || (abs(dx) == 1 && abs(dy) == 2)
}

func bishopMove(p Position, pc Piece, to Square, dx, dy int) bool {
	if abs(dx) != abs(dy) {
		return false
	}
	return p.pathClear(pc.Square, to)
}

func queenMove(p Position, pc Piece, to Square, dx, dy int) bool {
	return rookMove(p, pc, to, dx, dy) || bishopMove(p, pc, to, dx, dy)
}

func kingMove(_ Position, _ Piece, _ Square, dx, dy int) bool {
	return abs(dx) <= 1 && abs(dy) <= 1
}

// pathClear reports whether every square strictly between from and to is
// empty. from and to must share a rank, file or diagonal.
func (p Position) pathClear(from, to Square) bool {
	dx := sign(to.File - from.File)
	dy := sign(to.Rank - from.Rank)

	current := Sq(from.File+dx, from.Rank+dy)
	for current != to {
		if p.occupied(current) {
			return false
		}
		current.File += dx
		current.Rank += dy
	}
	return true
}

// reachable is the geometric layer: pc can reach to ignoring check.
func (p Position) reachable(pc Piece, to Square) bool {
	if !pc.Kind.valid() || pc.Square == to {
		return false
	}
	if target, ok := p.At(to); ok && target.Color == pc.Color {
		return false
	}
	return geometry[pc.Kind](p, pc, to, to.File-pc.Square.File, to.Rank-pc.Square.Rank)
}

// InCheck reports whether color's king is attacked by any opposing piece. A
// position without a king of that colour is never in check.
func InCheck(p Position, color Color) bool {
	king, ok := p.King(color)
	if !ok {
		return false
	}
	for _, pc := range p.Pieces {
		if pc.Color != color && p.reachable(pc, king) {
			return true
		}
	}
	return false
}

// IsLegal reports whether the side to move may play from-to in p: from holds
// one of its pieces, the piece can geometrically reach to, and the mover's
// king is not attacked afterwards.
func IsLegal(p Position, from, to Square) bool {
	mustValid(from, to)
	return p.legal(from, to)
}

func (p Position) legal(from, to Square) bool {
	pc, ok := p.At(from)
	if !ok || pc.Color != p.Turn {
		return false
	}
	if !p.reachable(pc, to) {
		return false
	}
	next, _, _ := p.play(from, to)
	return !InCheck(next, pc.Color)
}

// Play returns the position after the legal move m without touching p. ok is
// false when m is not legal.
func (p Position) Play(m Move) (next Position, ok bool) {
	mustValid(m.From, m.To)
	if !p.legal(m.From, m.To) {
		return p, false
	}
	next, _, _ = p.play(m.From, m.To)
	return next, true
}

// LegalMoves enumerates every legal move for the side to move.
func LegalMoves(p Position) []Move {
	var moves []Move
	for _, pc := range p.Pieces {
		if pc.Color != p.Turn {
			continue
		}
		for _, to := range allSquares {
			if p.legal(pc.Square, to) {
				moves = append(moves, Move{From: pc.Square, To: to})
			}
		}
	}
	return moves
}

func hasLegalMove(p Position) bool {
	for _, pc := range p.Pieces {
		if pc.Color != p.Turn {
			continue
		}
		for _, to := range allSquares {
			if p.legal(pc.Square, to) {
				return true
			}
		}
	}
	return false
}

var allSquares = func() []Square {
	squares := make([]Square, 0, 64)
	for rank := range 8 {
		for file := range 8 {
			squares = append(squares, Sq(file, rank))
		}
	}
	return squares
}()

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

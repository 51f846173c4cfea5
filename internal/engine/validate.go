package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPosition is wrapped by every error returned from Validate.
	ErrInvalidPosition = errors.New("invalid position")
)

// Validate checks the structural invariants of an externally supplied
// position: squares on the board, one piece per square, known kinds and
// colours, exactly one king per side, at most sixteen pieces per side, and a
// side to move whose opponent is not left in check.
//
// Validate does not check that the position is reachable from the starting
// position.
func Validate(p Position) error {
	if p.Turn != White && p.Turn != Black {
		return fmt.Errorf("%w: side to move %q", ErrInvalidPosition, p.Turn)
	}

	var (
		seen   [8][8]bool
		kings  [3]int
		counts [3]int
	)
	for _, pc := range p.Pieces {
		if !pc.Square.Valid() {
			return fmt.Errorf("%w: %s off the board at (%d,%d)", ErrInvalidPosition, pc.Kind, pc.Square.File, pc.Square.Rank)
		}
		if !pc.Kind.valid() {
			return fmt.Errorf("%w: unknown piece on %s", ErrInvalidPosition, pc.Square)
		}
		if pc.Color != White && pc.Color != Black {
			return fmt.Errorf("%w: piece on %s has no colour", ErrInvalidPosition, pc.Square)
		}
		if seen[pc.Square.File][pc.Square.Rank] {
			return fmt.Errorf("%w: two pieces on %s", ErrInvalidPosition, pc.Square)
		}
		seen[pc.Square.File][pc.Square.Rank] = true

		counts[pc.Color]++
		if pc.Kind == King {
			kings[pc.Color]++
		}
	}

	for _, c := range []Color{White, Black} {
		if kings[c] != 1 {
			return fmt.Errorf("%w: %s has %d kings", ErrInvalidPosition, c, kings[c])
		}
		if counts[c] > 16 {
			return fmt.Errorf("%w: %s has %d pieces", ErrInvalidPosition, c, counts[c])
		}
	}

	// The side that just moved cannot still be in check.
	if InCheck(p, p.Turn.Opponent()) {
		return fmt.Errorf("%w: %s is in check with %s to move", ErrInvalidPosition, p.Turn.Opponent(), p.Turn)
	}
	return nil
}

// Package opponent supplies moves for a computer-controlled side.
package opponent

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/imjasonh/chessd/internal/engine"
)

// A Mover picks the next move for the side to move in state. ok is false when
// there is nothing to play.
type Mover interface {
	Next(ctx context.Context, state engine.GameState) (m engine.Move, ok bool)
}

// Material values used to rank captures.
var values = map[engine.Kind]int{
	engine.Pawn:   1,
	engine.Knight: 3,
	engine.Bishop: 3,
	engine.Rook:   5,
	engine.Queen:  9,
}

// Random plays a uniformly random legal move.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a Random seeded from src, or from the runtime's random
// source when src is nil.
func NewRandom(src rand.Source) *Random {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Random{rng: rand.New(src)}
}

func (r *Random) Next(ctx context.Context, state engine.GameState) (engine.Move, bool) {
	if ctx.Err() != nil || state.Status.Over() {
		return engine.Move{}, false
	}
	moves := engine.LegalMoves(state.Position)
	if len(moves) == 0 {
		return engine.Move{}, false
	}
	return moves[r.intN(len(moves))], true
}

func (r *Random) intN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// Greedy takes the most valuable piece it can, preferring moves that give
// check among equals, and otherwise falls back to a random move.
type Greedy struct {
	Fallback *Random
}

func (g *Greedy) Next(ctx context.Context, state engine.GameState) (engine.Move, bool) {
	if ctx.Err() != nil || state.Status.Over() {
		return engine.Move{}, false
	}
	pos := state.Position

	var (
		best      engine.Move
		bestScore = 0
	)
	for _, m := range engine.LegalMoves(pos) {
		score := 0
		if target, ok := pos.At(m.To); ok {
			score = 10 * values[target.Kind]
		}
		if givesCheck(pos, m) {
			score++
		}
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	if bestScore > 0 {
		return best, true
	}

	fb := g.Fallback
	if fb == nil {
		fb = NewRandom(nil)
	}
	return fb.Next(ctx, state)
}

func givesCheck(pos engine.Position, m engine.Move) bool {
	next, ok := pos.Play(m)
	return ok && engine.InCheck(next, next.Turn)
}

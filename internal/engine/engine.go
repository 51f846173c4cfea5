package engine

import (
	"fmt"
)

// Engine owns one game: its current state and the undo/redo history.
// Construct one per game with New. An Engine is not safe for concurrent use.
type Engine struct {
	history History
}

// New returns an engine at the standard starting position.
func New() *Engine {
	return &Engine{history: newHistory(NewGameState())}
}

// State returns a copy of the current snapshot.
func (e *Engine) State() GameState { return e.history.current().Clone() }

// IsValidMove reports whether from-to is legal in the current position.
// Squares outside the board panic.
func (e *Engine) IsValidMove(from, to Square) bool {
	mustValid(from, to)
	cur := e.history.current()
	if cur.Status.Over() {
		return false
	}
	return cur.Position.legal(from, to)
}

// ApplyMove plays from-to if it is legal and reports whether it did. An
// illegal move leaves the engine unchanged. Playing a move discards any
// states that could have been redone.
func (e *Engine) ApplyMove(from, to Square) bool {
	if !e.IsValidMove(from, to) {
		return false
	}
	e.history.push(e.history.current().next(from, to))
	return true
}

// MovesFrom returns every legal destination for the piece on from.
func (e *Engine) MovesFrom(from Square) []Square {
	mustValid(from)
	var targets []Square
	for _, to := range allSquares {
		if e.IsValidMove(from, to) {
			targets = append(targets, to)
		}
	}
	return targets
}

// LegalMoves returns every legal move in the current position.
func (e *Engine) LegalMoves() []Move {
	cur := e.history.current()
	if cur.Status.Over() {
		return nil
	}
	return LegalMoves(cur.Position)
}

func (e *Engine) Undo() bool    { return e.history.undo() }
func (e *Engine) Redo() bool    { return e.history.redo() }
func (e *Engine) CanUndo() bool { return e.history.canUndo() }
func (e *Engine) CanRedo() bool { return e.history.canRedo() }

// Reset discards the whole history and starts a new game.
func (e *Engine) Reset() {
	e.history = newHistory(NewGameState())
}

// History returns a copy of the snapshot log.
func (e *Engine) History() History {
	return History{states: e.history.States(), cursor: e.history.cursor}
}

// Load installs s as the only snapshot, as when resuming a saved or remote
// game. The position is validated and the stored status and winner are
// replaced by values computed from the position.
func (e *Engine) Load(s GameState) error {
	loaded, err := prepare(s)
	if err != nil {
		return err
	}
	e.history = newHistory(loaded)
	return nil
}

// Restore installs a full snapshot log with the given cursor. Every snapshot
// is validated as in Load.
func (e *Engine) Restore(states []GameState, cursor int) error {
	if len(states) == 0 {
		return fmt.Errorf("%w: empty history", ErrInvalidPosition)
	}
	if cursor < 0 || cursor >= len(states) {
		return fmt.Errorf("%w: history cursor %d out of range [0,%d]", ErrInvalidPosition, cursor, len(states)-1)
	}
	h := History{states: make([]GameState, len(states)), cursor: cursor}
	for i, s := range states {
		loaded, err := prepare(s)
		if err != nil {
			return fmt.Errorf("snapshot %d: %w", i, err)
		}
		h.states[i] = loaded
	}
	e.history = h
	return nil
}

func prepare(s GameState) (GameState, error) {
	s = s.Clone()
	if err := Validate(s.Position); err != nil {
		return GameState{}, err
	}
	for _, m := range s.Moves {
		if !m.From.Valid() || !m.To.Valid() {
			return GameState{}, fmt.Errorf("%w: move log entry %s", ErrInvalidPosition, m)
		}
	}
	for _, pc := range s.Captured {
		if !pc.Kind.valid() || (pc.Color != White && pc.Color != Black) {
			return GameState{}, fmt.Errorf("%w: captured piece %v", ErrInvalidPosition, pc)
		}
	}
	s.Status, s.Winner = Evaluate(s.Position)
	return s, nil
}

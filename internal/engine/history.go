package engine

// History is a linear log of game-state snapshots with a cursor. Entries are
// never modified once appended; undo and redo only move the cursor. The
// cursor is always within [0, len-1].
type History struct {
	states []GameState
	cursor int
}

func newHistory(initial GameState) History {
	return History{states: []GameState{initial}}
}

func (h *History) current() GameState { return h.states[h.cursor] }

// push discards any redo branch beyond the cursor and appends s.
func (h *History) push(s GameState) {
	h.states = append(h.states[:h.cursor+1:h.cursor+1], s)
	h.cursor++
}

func (h *History) canUndo() bool { return h.cursor > 0 }

func (h *History) canRedo() bool { return h.cursor < len(h.states)-1 }

func (h *History) undo() bool {
	if !h.canUndo() {
		return false
	}
	h.cursor--
	return true
}

func (h *History) redo() bool {
	if !h.canRedo() {
		return false
	}
	h.cursor++
	return true
}

// Len is the number of snapshots, including the initial one.
func (h History) Len() int { return len(h.states) }

// Cursor is the index of the current snapshot.
func (h History) Cursor() int { return h.cursor }

// States returns copies of every snapshot, oldest first.
func (h History) States() []GameState {
	out := make([]GameState, len(h.states))
	for i, s := range h.states {
		out[i] = s.Clone()
	}
	return out
}

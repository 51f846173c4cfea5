// Package store persists games so they can be resumed after a restart or
// inspected over the HTTP API.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/imjasonh/chessd/internal/engine"
)

// ErrNotFound is returned by Get for an unknown game ID.
var ErrNotFound = errors.New("game not found")

// Record is everything needed to resume a game: the snapshot log and the
// cursor into it, plus who is playing.
type Record struct {
	ID        string             `json:"id"`
	Mode      string             `json:"mode"`
	White     string             `json:"white"`
	Black     string             `json:"black"`
	History   []engine.GameState `json:"history"`
	Cursor    int                `json:"cursor"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// State returns the snapshot under the cursor.
func (r Record) State() engine.GameState {
	if r.Cursor < 0 || r.Cursor >= len(r.History) {
		return engine.GameState{}
	}
	return r.History[r.Cursor]
}

func (r Record) validate() error {
	if r.ID == "" {
		return errors.New("record has no id")
	}
	if r.Cursor < 0 || r.Cursor >= len(r.History) {
		return fmt.Errorf("record %s: cursor %d outside history of %d", r.ID, r.Cursor, len(r.History))
	}
	return nil
}

// Summary is a one-line view of a stored game.
type Summary struct {
	ID        string        `json:"id"`
	Mode      string        `json:"mode"`
	White     string        `json:"white"`
	Black     string        `json:"black"`
	Status    engine.Status `json:"status"`
	Winner    engine.Color  `json:"winner"`
	Moves     int           `json:"moves"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func summarize(r Record) Summary {
	s := r.State()
	return Summary{
		ID:        r.ID,
		Mode:      r.Mode,
		White:     r.White,
		Black:     r.Black,
		Status:    s.Status,
		Winner:    s.Winner,
		Moves:     len(s.Moves),
		UpdatedAt: r.UpdatedAt,
	}
}

// Store saves and loads game records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save inserts or replaces the record with r.ID.
	Save(ctx context.Context, r Record) error
	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// List returns up to limit summaries, most recently updated first.
	List(ctx context.Context, limit int) ([]Summary, error)
	Close() error
}

type memory struct {
	mu    sync.RWMutex
	games map[string]Record
}

// NewMemory returns a Store that keeps records in process memory.
func NewMemory() Store {
	return &memory{games: make(map[string]Record)}
}

func (m *memory) Save(_ context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	r.History = cloneHistory(r.History)
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[r.ID] = r
	return nil
}

func (m *memory) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.games[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.History = cloneHistory(r.History)
	return r, nil
}

func (m *memory) List(_ context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	out := make([]Summary, 0, len(m.games))
	for _, r := range m.games {
		out = append(out, summarize(r))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memory) Close() error { return nil }

func cloneHistory(h []engine.GameState) []engine.GameState {
	out := slices.Clone(h)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/imjasonh/chessd/internal/engine"
)

// timeLayout has fixed-width fractions so updated_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

//go:embed migrations/*.sql
var migrations embed.FS

type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies any
// pending migrations.
func OpenSQLite(ctx context.Context, path string, logger *log.Logger) (Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// migrate applies migrations/*.sql in lexical order, recording each in
// _migrations so it runs once.
func migrate(ctx context.Context, db *sql.DB, logger *log.Logger) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			logger.Debug("migration already applied", "migration", f)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		text, err := migrations.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(text)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		logger.Info("migration applied", "migration", f)
	}
	return nil
}

func (s *sqliteStore) Save(ctx context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}

	state := r.State()
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	historyJSON, err := json.Marshal(r.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	winner := ""
	if state.Winner != engine.NoColor {
		winner = state.Winner.String()
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO games
            (id, mode, white_player, black_player, status, winner, game_state, history, cursor, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            mode=excluded.mode,
            white_player=excluded.white_player,
            black_player=excluded.black_player,
            status=excluded.status,
            winner=excluded.winner,
            game_state=excluded.game_state,
            history=excluded.history,
            cursor=excluded.cursor,
            updated_at=excluded.updated_at`,
		r.ID, r.Mode, r.White, r.Black, state.Status.String(), winner,
		string(stateJSON), string(historyJSON), r.Cursor, r.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", r.ID, err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (Record, error) {
	var (
		r           Record
		historyJSON string
		updated     string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT id, mode, white_player, black_player, history, cursor, updated_at
        FROM games WHERE id=?`, id,
	).Scan(&r.ID, &r.Mode, &r.White, &r.Black, &historyJSON, &r.Cursor, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get game %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &r.History); err != nil {
		return Record{}, fmt.Errorf("decode history of %s: %w", id, err)
	}
	if r.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Record{}, fmt.Errorf("decode updated_at of %s: %w", id, err)
	}
	return r, nil
}

func (s *sqliteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, mode, white_player, black_player, game_state, updated_at
        FROM games
        ORDER BY updated_at DESC, id ASC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Summary, 0, limit)
	for rows.Next() {
		var (
			sum       Summary
			stateJSON string
			updated   string
			state     engine.GameState
		)
		if err := rows.Scan(&sum.ID, &sum.Mode, &sum.White, &sum.Black, &stateJSON, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
			return nil, fmt.Errorf("decode state of %s: %w", sum.ID, err)
		}
		if sum.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
			return nil, fmt.Errorf("decode updated_at of %s: %w", sum.ID, err)
		}
		sum.Status, sum.Winner, sum.Moves = state.Status, state.Winner, len(state.Moves)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() error { return s.db.Close() }

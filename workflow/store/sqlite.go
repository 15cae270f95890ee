package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store. It writes to a single file with zero
// external setup, useful for local development and single-process
// deployments that want a paused run to survive a process restart.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path.
// Pass ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("workflow/store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("workflow/store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS paused_executions (
			execution_id TEXT PRIMARY KEY,
			state        TEXT NOT NULL,
			paused_at    TIMESTAMP NOT NULL,
			updated_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("workflow/store: create paused_executions: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SavePaused(ctx context.Context, executionID string, state PausedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("workflow/store: marshal paused state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO paused_executions (execution_id, state, paused_at)
		VALUES (?, ?, ?)
		ON CONFLICT(execution_id) DO UPDATE SET
			state = excluded.state,
			paused_at = excluded.paused_at,
			updated_at = CURRENT_TIMESTAMP
	`, executionID, data, state.PausedAt)
	if err != nil {
		return fmt.Errorf("workflow/store: save paused %s: %w", executionID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadPaused(ctx context.Context, executionID string) (PausedState, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM paused_executions WHERE execution_id = ?`, executionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return PausedState{}, ErrNotFound
	}
	if err != nil {
		return PausedState{}, fmt.Errorf("workflow/store: load paused %s: %w", executionID, err)
	}
	var state PausedState
	if err := json.Unmarshal(data, &state); err != nil {
		return PausedState{}, fmt.Errorf("workflow/store: unmarshal paused state: %w", err)
	}
	return state, nil
}

func (s *SQLiteStore) DeletePaused(ctx context.Context, executionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM paused_executions WHERE execution_id = ?`, executionID)
	if err != nil {
		return fmt.Errorf("workflow/store: delete paused %s: %w", executionID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

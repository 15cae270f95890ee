package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL-backed Store, for deployments that already run a
// MySQL cluster and want paused executions alongside their other state.
type MySQLStore struct {
	db  *sql.DB
	dsn string
}

// NewMySQLStore opens a connection pool against dsn and ensures the
// paused_executions table exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("workflow/store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	s := &MySQLStore{db: db, dsn: dsn}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS paused_executions (
			execution_id VARCHAR(255) PRIMARY KEY,
			state        JSON NOT NULL,
			paused_at    TIMESTAMP NOT NULL,
			updated_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)
	`
	if _, err := m.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("workflow/store: create paused_executions: %w", err)
	}
	return nil
}

func (m *MySQLStore) SavePaused(ctx context.Context, executionID string, state PausedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("workflow/store: marshal paused state: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO paused_executions (execution_id, state, paused_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE state = VALUES(state), paused_at = VALUES(paused_at)
	`, executionID, data, state.PausedAt)
	if err != nil {
		return fmt.Errorf("workflow/store: save paused %s: %w", executionID, err)
	}
	return nil
}

func (m *MySQLStore) LoadPaused(ctx context.Context, executionID string) (PausedState, error) {
	var data []byte
	err := m.db.QueryRowContext(ctx,
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

func (m *MySQLStore) DeletePaused(ctx context.Context, executionID string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM paused_executions WHERE execution_id = ?`, executionID)
	if err != nil {
		return fmt.Errorf("workflow/store: delete paused %s: %w", executionID, err)
	}
	return nil
}

func (m *MySQLStore) Close() error {
	return m.db.Close()
}

func (m *MySQLStore) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLStore) Stats() sql.DBStats {
	return m.db.Stats()
}

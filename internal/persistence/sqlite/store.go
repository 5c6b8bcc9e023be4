package sqlite

import (
	"context"
	"fmt"
)

// Store provides SQLite backed persistence for session aggregates.
type Store struct {
	pool *ConnectionPool
}

// Open returns a Store backed by the database at dsn.
func Open(dsn string) (*Store, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Pool exposes the connection pool, mainly for tests.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS facilities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		reference_url TEXT NOT NULL DEFAULT '',
		contact_name TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL REFERENCES facilities(id),
		purpose TEXT NOT NULL,
		response_deadline TEXT NOT NULL,
		presentation_date TEXT NOT NULL,
		proposed_slot_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS session_evaluators (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		invite_token TEXT NOT NULL UNIQUE,
		answered_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS candidate_slots (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		slot_date TEXT NOT NULL,
		slot_label TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		UNIQUE (session_id, slot_date, slot_label)
	)`,
	`CREATE TABLE IF NOT EXISTS evaluator_responses (
		session_evaluator_id TEXT NOT NULL REFERENCES session_evaluators(id) ON DELETE CASCADE,
		candidate_slot_id TEXT NOT NULL REFERENCES candidate_slots(id) ON DELETE CASCADE,
		choice TEXT NOT NULL CHECK (choice IN ('O', 'M', 'X')),
		PRIMARY KEY (session_evaluator_id, candidate_slot_id)
	)`,
	`CREATE TABLE IF NOT EXISTS facility_replies (
		session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
		selected_slot_id TEXT NOT NULL REFERENCES candidate_slots(id),
		note TEXT NOT NULL DEFAULT '',
		answered_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_evaluators_session ON session_evaluators(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_candidate_slots_session ON candidate_slots(session_id)`,
}

// Migrate creates the schema when it does not exist yet. Safe to call on
// every startup.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

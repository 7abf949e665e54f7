// Package postgres persists session history in PostgreSQL, for multi-node
// deployments sharing one history database.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/datalyst/session"
)

// DBPool is the subset of pgxpool.Pool the store needs; pgxmock implements
// it for tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements session.Store using PostgreSQL.
type PostgresStore struct {
	pool      DBPool
	tableName string
}

// PostgresOptions configuration for the Postgres connection.
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "history"
}

// NewPostgresStore creates a new Postgres-backed history store.
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "history"
	}
	return &PostgresStore{pool: pool, tableName: tableName}, nil
}

// NewPostgresStoreWithPool creates a store over an existing pool.
// Useful for testing with mocks.
func NewPostgresStoreWithPool(pool DBPool, tableName string) *PostgresStore {
	if tableName == "" {
		tableName = "history"
	}
	return &PostgresStore{pool: pool, tableName: tableName}
}

// InitSchema creates the history table if it doesn't exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			tab TEXT NOT NULL,
			seq INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer JSONB NOT NULL,
			code TEXT,
			model TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Save stores an entry.
func (s *PostgresStore) Save(ctx context.Context, entry *session.Entry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, tab, seq, question, answer, code, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			tab = EXCLUDED.tab,
			seq = EXCLUDED.seq,
			question = EXCLUDED.question,
			answer = EXCLUDED.answer,
			code = EXCLUDED.code,
			model = EXCLUDED.model,
			created_at = EXCLUDED.created_at
	`, s.tableName)

	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.SessionID,
		string(entry.Tab),
		entry.Seq,
		entry.Question,
		[]byte(entry.Answer),
		entry.Code,
		entry.Model,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// Load retrieves an entry by ID.
func (s *PostgresStore) Load(ctx context.Context, entryID string) (*session.Entry, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, tab, seq, question, answer, code, model, created_at
		FROM %s
		WHERE id = $1
	`, s.tableName)

	entry, err := scanEntry(s.pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", session.ErrEntryNotFound, entryID)
		}
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}
	return entry, nil
}

// List returns a session's entries in Seq order.
func (s *PostgresStore) List(ctx context.Context, sessionID string, tab session.Tab) ([]*session.Entry, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, tab, seq, question, answer, code, model, created_at
		FROM %s
		WHERE session_id = $1
	`, s.tableName)
	args := []any{sessionID}

	if tab != "" {
		query += " AND tab = $2"
		args = append(args, string(tab))
	}
	query += " ORDER BY tab ASC, seq ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*session.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}

// Delete removes an entry.
func (s *PostgresStore) Delete(ctx context.Context, entryID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, entryID); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// Clear removes all entries of a session.
func (s *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE session_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*session.Entry, error) {
	var entry session.Entry
	var tab string
	var answer []byte
	err := row.Scan(
		&entry.ID,
		&entry.SessionID,
		&tab,
		&entry.Seq,
		&entry.Question,
		&answer,
		&entry.Code,
		&entry.Model,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Tab = session.Tab(tab)
	entry.Answer = answer
	return &entry, nil
}

// Package sqlite persists session history in a SQLite database, for
// single-node deployments that need history to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/datalyst/session"
)

// SqliteStore implements session.Store using SQLite.
type SqliteStore struct {
	db        *sql.DB
	tableName string
}

// SqliteOptions configuration for the SQLite connection.
type SqliteOptions struct {
	Path      string
	TableName string // Default "history"
}

// NewSqliteStore opens (or creates) the database and ensures the schema.
func NewSqliteStore(opts SqliteOptions) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "history"
	}

	store := &SqliteStore{db: db, tableName: tableName}
	if err := store.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// InitSchema creates the history table if it doesn't exist.
func (s *SqliteStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			tab TEXT NOT NULL,
			seq INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			code TEXT,
			model TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// Save stores an entry.
func (s *SqliteStore) Save(ctx context.Context, entry *session.Entry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, tab, seq, question, answer, code, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			tab = excluded.tab,
			seq = excluded.seq,
			question = excluded.question,
			answer = excluded.answer,
			code = excluded.code,
			model = excluded.model,
			created_at = excluded.created_at
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.SessionID,
		string(entry.Tab),
		entry.Seq,
		entry.Question,
		string(entry.Answer),
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
func (s *SqliteStore) Load(ctx context.Context, entryID string) (*session.Entry, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, tab, seq, question, answer, code, model, created_at
		FROM %s
		WHERE id = ?
	`, s.tableName)

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, entryID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", session.ErrEntryNotFound, entryID)
		}
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}
	return entry, nil
}

// List returns a session's entries in Seq order.
func (s *SqliteStore) List(ctx context.Context, sessionID string, tab session.Tab) ([]*session.Entry, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, tab, seq, question, answer, code, model, created_at
		FROM %s
		WHERE session_id = ?
	`, s.tableName)
	args := []any{sessionID}

	if tab != "" {
		query += " AND tab = ?"
		args = append(args, string(tab))
	}
	query += " ORDER BY tab ASC, seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SqliteStore) Delete(ctx context.Context, entryID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, entryID); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// Clear removes all entries of a session.
func (s *SqliteStore) Clear(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE session_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*session.Entry, error) {
	var entry session.Entry
	var tab, answer string
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
	entry.Answer = []byte(answer)
	return &entry, nil
}

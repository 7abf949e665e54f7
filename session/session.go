// Package session manages analyst sessions and their question/answer
// history.
//
// A session is created per uploaded dataset and keeps the live frame in
// memory; each answered question is persisted as an Entry through a
// pluggable Store. Backends exist for memory, SQLite, Redis and PostgreSQL,
// mirroring the checkpoint-store layout this package grew out of.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/datalyst/dataset"
)

// Tab identifies which conversation tab an entry belongs to.
type Tab string

const (
	TabAnalysis      Tab = "analysis"
	TabVisualization Tab = "visualization"
	TabSummary       Tab = "summary"
)

// Valid reports whether the tab is one of the three known tabs.
func (t Tab) Valid() bool {
	switch t {
	case TabAnalysis, TabVisualization, TabSummary:
		return true
	}
	return false
}

var (
	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEntryNotFound is returned when an entry ID is unknown.
	ErrEntryNotFound = errors.New("entry not found")
)

// Entry is one answered question in a session's history.
type Entry struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Tab       Tab             `json:"tab"`
	Seq       int             `json:"seq"`
	Question  string          `json:"question"`
	Answer    json.RawMessage `json:"answer"`
	Code      string          `json:"code,omitempty"`
	Model     string          `json:"model,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store persists history entries.
type Store interface {
	// Save stores an entry.
	Save(ctx context.Context, entry *Entry) error

	// Load retrieves an entry by ID.
	Load(ctx context.Context, entryID string) (*Entry, error)

	// List returns a session's entries in Seq order. An empty tab returns
	// entries from all tabs.
	List(ctx context.Context, sessionID string, tab Tab) ([]*Entry, error)

	// Delete removes an entry.
	Delete(ctx context.Context, entryID string) error

	// Clear removes all entries of a session.
	Clear(ctx context.Context, sessionID string) error
}

// Session is a live analyst session holding the current frame. The frame,
// report and corrected flag may be replaced by a concurrent auto-correct,
// so they are read through Frame and Data rather than directly.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	frame     *dataset.Frame
	report    *dataset.Report
	corrected bool

	seq map[Tab]int
}

// Frame returns the session's current frame.
func (s *Session) Frame() *dataset.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Data returns the current frame, validation report and corrected flag as
// one consistent snapshot.
func (s *Session) Data() (*dataset.Frame, *dataset.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.report, s.corrected
}

// Manager owns live sessions and appends their history through a Store.
type Manager struct {
	store Store

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager over the given history store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session for the frame and runs the data-quality
// pass so the validation report is available immediately.
func (m *Manager) Create(frame *dataset.Frame) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		frame:     frame,
		report:    frame.Validate(),
		seq:       make(map[Tab]int),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the live session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// ReplaceFrame swaps the session's frame (after auto-correction) and
// refreshes its validation report.
func (m *Manager) ReplaceFrame(id string, frame *dataset.Frame, corrected bool) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.mu.Lock()
	s.frame = frame
	s.report = frame.Validate()
	s.corrected = corrected
	s.mu.Unlock()
	return s, nil
}

// Append records an answered question in the session's history. The answer
// payload is marshaled to JSON as-is.
func (m *Manager) Append(ctx context.Context, sessionID string, tab Tab, question string, answer any, code, model string) (*Entry, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.seq[tab]++
	seq := s.seq[tab]
	m.mu.Unlock()

	payload, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answer: %w", err)
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Tab:       tab,
		Seq:       seq,
		Question:  question,
		Answer:    payload,
		Code:      code,
		Model:     model,
		CreatedAt: time.Now(),
	}
	if err := m.store.Save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the session's entries for a tab in Seq order.
func (m *Manager) History(ctx context.Context, sessionID string, tab Tab) ([]*Entry, error) {
	if _, err := m.Get(sessionID); err != nil {
		return nil, err
	}
	return m.store.List(ctx, sessionID, tab)
}

// Entry loads a single history entry, checking it belongs to the session.
func (m *Manager) Entry(ctx context.Context, sessionID string, tab Tab, seq int) (*Entry, error) {
	entries, err := m.History(ctx, sessionID, tab)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Seq == seq {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s/%d", ErrEntryNotFound, sessionID, tab, seq)
}

// Reset drops the live session and clears all its persisted history. This
// is the back-to-upload action: the frame and every tab's history go away
// together.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return m.store.Clear(ctx, sessionID)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

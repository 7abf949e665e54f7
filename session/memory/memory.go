// Package memory provides an in-memory session history store, the default
// backend for single-process deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smallnest/datalyst/session"
)

// MemoryStore implements session.Store with a mutex-guarded map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*session.Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*session.Entry),
	}
}

// Save stores an entry, overwriting any previous entry with the same ID.
func (s *MemoryStore) Save(ctx context.Context, entry *session.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.entries[entry.ID] = &clone
	return nil
}

// Load retrieves an entry by ID.
func (s *MemoryStore) Load(ctx context.Context, entryID string) (*session.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrEntryNotFound, entryID)
	}
	clone := *entry
	return &clone, nil
}

// List returns a session's entries in Seq order.
func (s *MemoryStore) List(ctx context.Context, sessionID string, tab session.Tab) ([]*session.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*session.Entry
	for _, entry := range s.entries {
		if entry.SessionID != sessionID {
			continue
		}
		if tab != "" && entry.Tab != tab {
			continue
		}
		clone := *entry
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tab != out[j].Tab {
			return out[i].Tab < out[j].Tab
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// Delete removes an entry.
func (s *MemoryStore) Delete(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, entryID)
	return nil
}

// Clear removes all entries of a session.
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if entry.SessionID == sessionID {
			delete(s.entries, id)
		}
	}
	return nil
}

package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/smallnest/datalyst/session"
	"github.com/stretchr/testify/assert"
)

func newEntry(id, sessionID string, tab session.Tab, seq int) *session.Entry {
	return &session.Entry{
		ID:        id,
		SessionID: sessionID,
		Tab:       tab,
		Seq:       seq,
		Question:  "question " + id,
		Answer:    json.RawMessage(`{"text":"answer"}`),
		Model:     "mistral",
		CreatedAt: time.Now(),
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	e1 := newEntry("e-1", "s-1", session.TabAnalysis, 1)
	e2 := newEntry("e-2", "s-1", session.TabAnalysis, 2)
	e3 := newEntry("e-3", "s-1", session.TabVisualization, 1)
	e4 := newEntry("e-4", "s-2", session.TabAnalysis, 1)

	for _, e := range []*session.Entry{e2, e3, e1, e4} {
		assert.NoError(t, store.Save(ctx, e))
	}

	// Load
	loaded, err := store.Load(ctx, "e-1")
	assert.NoError(t, err)
	assert.Equal(t, e1.Question, loaded.Question)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrEntryNotFound)

	// List filters by session and tab, ordered by seq.
	entries, err := store.List(ctx, "s-1", session.TabAnalysis)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "e-1", entries[0].ID)
	assert.Equal(t, "e-2", entries[1].ID)

	// Empty tab returns all tabs.
	entries, err = store.List(ctx, "s-1", "")
	assert.NoError(t, err)
	assert.Len(t, entries, 3)

	// Delete
	assert.NoError(t, store.Delete(ctx, "e-2"))
	_, err = store.Load(ctx, "e-2")
	assert.ErrorIs(t, err, session.ErrEntryNotFound)

	// Clear leaves other sessions alone.
	assert.NoError(t, store.Clear(ctx, "s-1"))
	entries, err = store.List(ctx, "s-1", "")
	assert.NoError(t, err)
	assert.Len(t, entries, 0)

	entries, err = store.List(ctx, "s-2", "")
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemoryStore_SaveClones(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	e := newEntry("e-1", "s-1", session.TabSummary, 1)
	assert.NoError(t, store.Save(ctx, e))

	// Mutating the original must not affect the stored copy.
	e.Question = "changed"

	loaded, err := store.Load(ctx, "e-1")
	assert.NoError(t, err)
	assert.Equal(t, "question e-1", loaded.Question)
}

package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/corvid-review/corvid/internal/workflow"
)

// MemoryStore is an in-process Store used by tests and by the service
// wiring when no Postgres connection is configured. It
// round-trips through Encode/Decode just like PostgresStore so a bug in the
// tagged-value codec shows up in unit tests without a database.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]*Record{}}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, ws *workflow.WorkflowState) error {
	rec, err := Encode(ws)
	if err != nil {
		return fmt.Errorf("checkpoint: save %q: %w", ws.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[ws.ID] = rec
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, reviewID string) (*workflow.WorkflowState, error) {
	m.mu.Lock()
	rec, ok := m.records[reviewID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("checkpoint: %q not found", reviewID)
	}
	return Decode(rec)
}

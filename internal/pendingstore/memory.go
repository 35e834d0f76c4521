package pendingstore

import (
	"context"
	"sync"
	"time"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// MemoryStore is a thread-safe in-memory Store for tests and
// single-instance deployments, mirroring the external store's TTL
// semantics without a network dependency.
type MemoryStore struct {
	mu      sync.Mutex
	actions map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	action    models.PendingAction
	expiresAt time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		actions: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Put stores action with the given TTL.
func (s *MemoryStore) Put(ctx context.Context, action models.PendingAction, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[action.ConfirmationID] = memoryEntry{
		action:    action,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Take atomically reads and deletes the pending action for
// confirmationID, returning ErrNotFound if it is absent or expired.
func (s *MemoryStore) Take(ctx context.Context, confirmationID string) (models.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.actions[confirmationID]
	if !ok {
		return models.PendingAction{}, ErrNotFound
	}
	delete(s.actions, confirmationID)

	if s.now().After(entry.expiresAt) {
		return models.PendingAction{}, ErrNotFound
	}
	return entry.action, nil
}

// Len reports the number of entries currently held, including expired
// ones not yet reaped by a Take. Test-only introspection aid.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

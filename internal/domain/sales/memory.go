package sales

import (
	"context"
	"sort"
	"sync"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// MemoryStore is an in-process Store used by unit tests, matching the
// in-memory-fake pattern rather than standing up a live
// MongoDB instance for every test. Document ids are plain strings
// (24-hex-char ObjectIDs in production); MemoryStore orders them
// lexicographically, which matches ObjectID's byte ordering for
// fixed-width hex ids.
type MemoryStore struct {
	mu    sync.RWMutex
	deals map[string]Deal
}

// NewMemoryStore seeds a MemoryStore with the given rows.
func NewMemoryStore(seed ...Deal) *MemoryStore {
	m := &MemoryStore{deals: make(map[string]Deal, len(seed))}
	for _, d := range seed {
		m.deals[d.ID] = d
	}
	return m
}

func (m *MemoryStore) List(_ context.Context, _ models.SessionVariables, filter ListFilter) ([]Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Deal
	for _, d := range m.deals {
		if filter.Stage != "" && d.Stage != filter.Stage {
			continue
		}
		if filter.BeforeID != "" && d.ID >= filter.BeforeID {
			continue
		}
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if len(matched) > filter.Limit+1 {
		matched = matched[:filter.Limit+1]
	}
	return matched, nil
}

func (m *MemoryStore) Get(_ context.Context, _ models.SessionVariables, id string) (Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deals[id]
	if !ok {
		return Deal{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryStore) Close(_ context.Context, _ models.SessionVariables, id, stage string) (Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deals[id]
	if !ok {
		return Deal{}, ErrNotFound
	}
	if d.Stage == "won" || d.Stage == "lost" {
		return Deal{}, ErrAlreadyClosed
	}
	d.Stage = stage
	m.deals[id] = d
	return d, nil
}

func (m *MemoryStore) Delete(_ context.Context, _ models.SessionVariables, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deals[id]; !ok {
		return ErrNotFound
	}
	delete(m.deals, id)
	return nil
}

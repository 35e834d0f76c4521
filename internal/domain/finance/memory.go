package finance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// MemoryStore is an in-process Store used by unit tests.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]Invoice
}

// NewMemoryStore seeds a MemoryStore with the given rows.
func NewMemoryStore(seed ...Invoice) *MemoryStore {
	m := &MemoryStore{invoices: make(map[string]Invoice, len(seed))}
	for _, inv := range seed {
		m.invoices[inv.ID] = inv
	}
	return m
}

func (m *MemoryStore) List(_ context.Context, _ models.SessionVariables, filter ListFilter) ([]Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Invoice
	for _, inv := range m.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		matched = append(matched, inv)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].IssuedAt.Equal(matched[j].IssuedAt) {
			return matched[i].IssuedAt.After(matched[j].IssuedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	start := 0
	if filter.AfterID != "" {
		for i, inv := range matched {
			if inv.ID == filter.AfterID {
				start = i + 1
				break
			}
		}
	}
	end := start + filter.Limit + 1
	if end > len(matched) {
		end = len(matched)
	}
	if start > len(matched) {
		start = len(matched)
	}
	return matched[start:end], nil
}

func (m *MemoryStore) Get(_ context.Context, _ models.SessionVariables, id string) (Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *MemoryStore) Void(_ context.Context, _ models.SessionVariables, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if inv.Status == "void" {
		return ErrAlreadyVoid
	}
	now := time.Now().UTC()
	inv.Status = "void"
	inv.VoidedAt = &now
	inv.VoidReason = reason
	m.invoices[id] = inv
	return nil
}

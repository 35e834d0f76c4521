package hr

import (
	"context"
	"sort"
	"sync"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// MemoryStore is an in-process Store used by unit tests, matching the
// in-memory-fake pattern rather than standing up a live Postgres
// instance for every test.
type MemoryStore struct {
	mu        sync.RWMutex
	employees map[string]Employee
}

// NewMemoryStore seeds a MemoryStore with the given rows.
func NewMemoryStore(seed ...Employee) *MemoryStore {
	m := &MemoryStore{employees: make(map[string]Employee, len(seed))}
	for _, e := range seed {
		m.employees[e.ID] = e
	}
	return m
}

func (m *MemoryStore) List(_ context.Context, _ models.SessionVariables, filter ListFilter) ([]Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Employee
	for _, e := range m.employees {
		if filter.Department != "" && e.Department != filter.Department {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].HireDate.Equal(matched[j].HireDate) {
			return matched[i].HireDate.After(matched[j].HireDate)
		}
		return matched[i].ID > matched[j].ID
	})

	start := 0
	if filter.AfterID != "" {
		for i, e := range matched {
			if e.ID == filter.AfterID {
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

func (m *MemoryStore) Get(_ context.Context, _ models.SessionVariables, id string) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) Delete(_ context.Context, _ models.SessionVariables, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[id]; !ok {
		return ErrNotFound
	}
	delete(m.employees, id)
	return nil
}

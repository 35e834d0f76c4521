package support

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// MemoryStore is an in-process Store used by unit tests, matching the
// in-memory-fake pattern rather than standing up a live
// search index for every test. Search scores by a naive term-frequency
// count instead of FTS5's bm25, but preserves the same
// descending-(score, id) ordering and cursor contract as SQLiteStore.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]Ticket
}

// NewMemoryStore seeds a MemoryStore with the given rows.
func NewMemoryStore(seed ...Ticket) *MemoryStore {
	m := &MemoryStore{tickets: make(map[string]Ticket, len(seed))}
	for _, tk := range seed {
		m.tickets[tk.ID] = tk
	}
	return m
}

func (m *MemoryStore) List(_ context.Context, _ models.SessionVariables, filter ListFilter) ([]Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Ticket
	for _, tk := range m.tickets {
		if filter.Status != "" && tk.Status != filter.Status {
			continue
		}
		matched = append(matched, tk)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	start := 0
	if filter.AfterID != "" {
		for i, tk := range matched {
			if tk.ID == filter.AfterID {
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

func (m *MemoryStore) Search(_ context.Context, _ models.SessionVariables, filter SearchFilter) ([]SearchHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(filter.Query))
	var hits []SearchHit
	for _, tk := range m.tickets {
		if filter.Status != "" && tk.Status != filter.Status {
			continue
		}
		haystack := strings.ToLower(tk.Subject + " " + tk.Body)
		score := float64(strings.Count(haystack, needle))
		if needle == "" || score == 0 {
			continue
		}
		hits = append(hits, SearchHit{Ticket: tk, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ticket.ID > hits[j].Ticket.ID
	})

	start := 0
	if filter.AfterScore != nil && filter.AfterID != "" {
		for i, h := range hits {
			if h.Score == *filter.AfterScore && h.Ticket.ID == filter.AfterID {
				start = i + 1
				break
			}
		}
	}
	end := start + filter.Limit + 1
	if end > len(hits) {
		end = len(hits)
	}
	if start > len(hits) {
		start = len(hits)
	}
	return hits[start:end], nil
}

func (m *MemoryStore) Get(_ context.Context, _ models.SessionVariables, id string) (Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tk, ok := m.tickets[id]
	if !ok {
		return Ticket{}, ErrNotFound
	}
	return tk, nil
}

func (m *MemoryStore) Close(_ context.Context, _ models.SessionVariables, id string) (Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tk, ok := m.tickets[id]
	if !ok {
		return Ticket{}, ErrNotFound
	}
	if tk.Status == "closed" {
		return Ticket{}, ErrAlreadyClosed
	}
	tk.Status = "closed"
	m.tickets[id] = tk
	return tk, nil
}

func (m *MemoryStore) Delete(_ context.Context, _ models.SessionVariables, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(m.tickets, id)
	return nil
}

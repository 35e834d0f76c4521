package support

import (
	"context"
	"errors"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// ErrNotFound is returned when a ticket id does not exist.
var ErrNotFound = errors.New("support: ticket not found")

// ErrAlreadyClosed is returned when close_ticket targets a ticket
// whose status is already "closed".
var ErrAlreadyClosed = errors.New("support: ticket already closed")

// ListFilter narrows list_tickets by status and bounds the page via a
// relational-style keyset cursor on (createdAt, id).
type ListFilter struct {
	Status    string
	Limit     int
	AfterDate *string
	AfterID   string
}

// SearchFilter narrows search_tickets by a free-text query and bounds
// the page via the search-index cursor shape: the sort-value array
// (here, [score, id]) the index itself returned for the last result,
// consumed by a native "search after" equivalent rather than a
// relational WHERE clause.
type SearchFilter struct {
	Query      string
	Status     string
	Limit      int
	AfterScore *float64
	AfterID    string
}

// SearchHit pairs a Ticket with the relevance score the index assigned
// it.
type SearchHit struct {
	Ticket Ticket
	Score  float64
}

// Store is the Support Tool Server's backend contract. SQLiteStore is
// the production implementation (FTS5-backed); MemoryStore backs unit
// tests.
type Store interface {
	List(ctx context.Context, vars models.SessionVariables, filter ListFilter) ([]Ticket, error)
	Search(ctx context.Context, vars models.SessionVariables, filter SearchFilter) ([]SearchHit, error)
	Get(ctx context.Context, vars models.SessionVariables, id string) (Ticket, error)
	Close(ctx context.Context, vars models.SessionVariables, id string) (Ticket, error)
	Delete(ctx context.Context, vars models.SessionVariables, id string) error
}

package hr

import (
	"context"
	"errors"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// ErrNotFound is the storage sentinel: a domain store returns it for
// any missing-row lookup, and the tool layer translates it into the
// envelope's NOT_FOUND code.
var ErrNotFound = errors.New("hr: employee not found")

// ListFilter narrows list_employees by department and bounds the page
// via a keyset cursor on (hire_date, id), ordering newest-hired
// first with id as the tie-breaker.
type ListFilter struct {
	Department string
	Limit      int
	AfterDate  *string // RFC3339 hire_date of the cursor row, exclusive
	AfterID    string  // tie-breaker id of the cursor row
}

// Store is the HR Tool Server's backend contract. PostgresStore is the
// production implementation; MemoryStore backs unit tests. Every
// method takes the caller's session-variable bundle so the backend can
// apply row-level policy scoped to the single statement/transaction.
// Neither store filters rows by the caller's department; department
// is only an optional list filter chosen by the caller.
type Store interface {
	List(ctx context.Context, vars models.SessionVariables, filter ListFilter) ([]Employee, error)
	Get(ctx context.Context, vars models.SessionVariables, id string) (Employee, error)
	Delete(ctx context.Context, vars models.SessionVariables, id string) error
}

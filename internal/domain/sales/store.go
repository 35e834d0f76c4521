package sales

import (
	"context"
	"errors"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// ErrNotFound is returned when a deal id does not exist.
var ErrNotFound = errors.New("sales: deal not found")

// ErrAlreadyClosed is returned when close_deal targets a deal whose
// stage is already "won" or "lost".
var ErrAlreadyClosed = errors.New("sales: deal already closed")

// ListFilter narrows list_deals by stage and bounds the page via the
// document-store cursor shape: the primary object identifier,
// descending (`_id < last_id`), rather than a relational multi-column
// keyset.
type ListFilter struct {
	Stage    string
	Limit    int
	BeforeID string // last-returned document id, exclusive
}

// Store is the Sales Tool Server's backend contract. MongoStore is the
// production implementation; MemoryStore backs unit tests.
type Store interface {
	List(ctx context.Context, vars models.SessionVariables, filter ListFilter) ([]Deal, error)
	Get(ctx context.Context, vars models.SessionVariables, id string) (Deal, error)
	Close(ctx context.Context, vars models.SessionVariables, id, stage string) (Deal, error)
	Delete(ctx context.Context, vars models.SessionVariables, id string) error
}

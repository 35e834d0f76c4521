package finance

import (
	"context"
	"errors"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// ErrNotFound is returned when an invoice id does not exist.
var ErrNotFound = errors.New("finance: invoice not found")

// ErrAlreadyVoid is returned when void_invoice targets an invoice that
// is already voided — voiding is not idempotent by design (a second
// void attempt is a caller error, not a no-op).
var ErrAlreadyVoid = errors.New("finance: invoice already void")

// ListFilter narrows list_invoices by status and bounds the page via a
// keyset cursor on (issued_at, id), newest first.
type ListFilter struct {
	Status    string
	Limit     int
	AfterDate *string
	AfterID   string
}

// Store is the Finance Tool Server's backend contract.
type Store interface {
	List(ctx context.Context, vars models.SessionVariables, filter ListFilter) ([]Invoice, error)
	Get(ctx context.Context, vars models.SessionVariables, id string) (Invoice, error)
	Void(ctx context.Context, vars models.SessionVariables, id, reason string) error
}

// Package finance implements the Finance Tool Server: invoice lookups
// and void operations backed by Postgres.
package finance

import "time"

// Invoice is the domain entity behind list_invoices / get_invoice.
// Amount is redacted in the tool-facing view unless the caller holds
// an unmasking role (finance-write or executive).
type Invoice struct {
	ID         string
	Customer   string
	Amount     float64
	Currency   string
	Status     string // "open" | "paid" | "void"
	IssuedAt   time.Time
	DueAt      time.Time
	VoidedAt   *time.Time
	VoidReason string
}

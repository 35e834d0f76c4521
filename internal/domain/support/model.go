// Package support implements the Support Tool Server: ticket search
// and lifecycle operations backed by a search index (SQLite's FTS5
// extension stands in for a hosted search cluster in the reference
// configuration).
package support

import "time"

// Ticket is the domain entity behind search_tickets / list_tickets /
// get_ticket. ContactEmail and ContactPhone are redacted in the
// tool-facing view unless the caller holds an unmasking role
// (support-write or executive).
type Ticket struct {
	ID           string
	Subject      string
	Body         string
	Customer     string
	Status       string // "open" | "pending" | "closed"
	Priority     string // "low" | "normal" | "high" | "urgent"
	ContactEmail string
	ContactPhone string
	CreatedAt    time.Time
}

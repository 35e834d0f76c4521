// Package sales implements the Sales Tool Server: deal lookups and
// pipeline mutations backed by a document store (MongoDB in the
// reference configuration).
package sales

import "time"

// Deal is the domain entity behind list_deals / get_deal. Amount and
// ContactEmail are redacted in the tool-facing view unless the caller
// holds an unmasking role (sales-write or executive).
type Deal struct {
	ID                string
	Name              string
	Company           string
	Owner             string
	Stage             string // "prospecting" | "negotiation" | "won" | "lost"
	Amount            float64
	ContactEmail      string
	ExpectedCloseDate time.Time
	CreatedAt         time.Time
}

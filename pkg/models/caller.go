package models

import "time"

// CallerContext is the authenticated identity carried through a
// request. It is constructed once at request entry and passed by
// value to every downstream call — it is never mutated after
// construction and never stored in process-wide state.
type CallerContext struct {
	UserID      string
	DisplayName string
	Email       string
	Roles       RoleSet
	Department  string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	TokenID     string // unique per issuance; used for revocation lookups
}

// SessionVariables is the per-query bundle a Tool Server attaches to
// its backend connection before executing a statement or transaction,
// so that row-level access policies can evaluate it. Scope is a single
// backend statement/transaction; it must never outlive the request
// that produced it.
type SessionVariables struct {
	UserID     string
	Roles      string // comma-joined
	Email      string
	Department string
}

// SessionVariables derives the session-variable bundle for this caller.
func (c CallerContext) SessionVariables() SessionVariables {
	return SessionVariables{
		UserID:     c.UserID,
		Roles:      c.Roles.CommaJoined(),
		Email:      c.Email,
		Department: c.Department,
	}
}

// Expired reports whether the caller's credential has passed its
// expiry timestamp.
func (c CallerContext) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

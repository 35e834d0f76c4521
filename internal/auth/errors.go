package auth

import "errors"

var (
	// ErrAuthDisabled is returned when no signing secret/JWKS source has
	// been configured.
	ErrAuthDisabled = errors.New("auth: disabled")
	// ErrInvalidToken covers signature failure, malformed tokens, wrong
	// audience, and expiry — the credential is rejected identically in
	// all of these cases at the HTTP boundary (UNAUTHORIZED), though the
	// underlying cause remains distinguishable in logs.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrRevoked is returned when the token's identifier is present in
	// the revocation set.
	ErrRevoked = errors.New("auth: token revoked")
)

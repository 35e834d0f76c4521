package auth

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// devClaims is the HS256 claim shape used by the dev-mode signer. It
// mirrors what a real IdP would put on the token (roles, department,
// email) but is signed with a shared secret instead of the IdP's
// asymmetric keys — useful for local development and tests where
// standing up a JWKS endpoint is unwarranted.
type devClaims struct {
	Email      string   `json:"email,omitempty"`
	Name       string   `json:"name,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	Department string   `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// DevSigner issues and verifies HS256 tokens for local development and
// tests. Production deployments use IdentityProviderAdapter's JWKS
// verification instead.
type DevSigner struct {
	secret   []byte
	expiry   time.Duration
	issuer   string
	audience string
}

// NewDevSigner builds an HS256 signer/verifier with the given secret
// and default token expiry.
func NewDevSigner(secret string, expiry time.Duration, issuer, audience string) *DevSigner {
	return &DevSigner{secret: []byte(secret), expiry: expiry, issuer: issuer, audience: audience}
}

// Generate issues a signed token for the given caller, embedding roles
// and department so the round trip through Verify reconstructs an
// equivalent CallerContext.
func (s *DevSigner) Generate(caller models.CallerContext) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrAuthDisabled
	}
	if strings.TrimSpace(caller.UserID) == "" {
		return "", fmt.Errorf("auth: user id required")
	}

	now := time.Now()
	expiresAt := caller.ExpiresAt
	if expiresAt.IsZero() && s.expiry != 0 {
		expiresAt = now.Add(s.expiry)
	}

	roles := make([]string, len(caller.Roles))
	for i, r := range caller.Roles {
		roles[i] = string(r)
	}

	claims := devClaims{
		Email:      strings.TrimSpace(caller.Email),
		Name:       strings.TrimSpace(caller.DisplayName),
		Roles:      roles,
		Department: strings.TrimSpace(caller.Department),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  caller.UserID,
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       caller.TokenID,
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates an HS256 token and narrows it into a
// CallerContext. Audience is checked if configured.
func (s *DevSigner) Verify(tokenString string) (models.CallerContext, error) {
	if s == nil || len(s.secret) == 0 {
		return models.CallerContext{}, ErrAuthDisabled
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &devClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return models.CallerContext{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*devClaims)
	if !ok || !parsed.Valid {
		return models.CallerContext{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return models.CallerContext{}, ErrInvalidToken
	}
	if s.audience != "" && !slices.Contains(claims.RegisteredClaims.Audience, s.audience) {
		return models.CallerContext{}, ErrInvalidToken
	}

	var issuedAt, expiresAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return models.CallerContext{
		UserID:      claims.Subject,
		DisplayName: strings.TrimSpace(claims.Name),
		Email:       strings.TrimSpace(claims.Email),
		Roles:       models.ParseRoleSet(claims.Roles),
		Department:  strings.TrimSpace(claims.Department),
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
		TokenID:     claims.ID,
	}, nil
}

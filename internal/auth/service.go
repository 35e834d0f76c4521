package auth

import (
	"context"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// RevocationChecker answers whether a token identifier has been
// revoked. internal/revocation.Cache implements this.
type RevocationChecker interface {
	IsRevoked(tokenID string) bool
}

// Service performs the Gateway's full credential-verification
// sequence: parse, verify signature (refreshing the JWKS cache at most
// once to absorb key rotation), check audience/expiry, check
// revocation, and construct a CallerContext. Exactly one backing
// verifier is configured: idp (production, JWKS) or dev (HS256, local
// development/tests).
type Service struct {
	idp        *IdentityProviderAdapter
	dev        *DevSigner
	audience   string
	issuer     string
	revocation RevocationChecker
	now        func() time.Time
}

// NewService builds a Service. Exactly one of idp or dev should be
// non-nil; if both are, idp takes precedence.
func NewService(idp *IdentityProviderAdapter, dev *DevSigner, audience, issuer string, revocation RevocationChecker) *Service {
	return &Service{
		idp:        idp,
		dev:        dev,
		audience:   audience,
		issuer:     issuer,
		revocation: revocation,
		now:        time.Now,
	}
}

// Enabled reports whether the service has a configured verifier.
func (s *Service) Enabled() bool {
	return s != nil && (s.idp != nil || s.dev != nil)
}

// Verify runs the full verification sequence against a raw bearer token value
// (with or without the "Bearer " prefix already stripped) and returns
// the resulting CallerContext.
func (s *Service) Verify(ctx context.Context, bearerToken string) (models.CallerContext, error) {
	if s == nil || !s.Enabled() {
		return models.CallerContext{}, ErrAuthDisabled
	}
	token := strings.TrimSpace(bearerToken)
	token = strings.TrimPrefix(token, "Bearer ")
	token = strings.TrimPrefix(token, "bearer ")
	if token == "" {
		return models.CallerContext{}, ErrInvalidToken
	}

	var caller models.CallerContext
	var err error
	if s.idp != nil {
		caller, err = s.verifyJWKS(ctx, token)
	} else {
		caller, err = s.dev.Verify(token)
	}
	if err != nil {
		return models.CallerContext{}, err
	}

	if !caller.ExpiresAt.IsZero() && caller.Expired(s.now()) {
		return models.CallerContext{}, ErrInvalidToken
	}

	if s.revocation != nil && caller.TokenID != "" && s.revocation.IsRevoked(caller.TokenID) {
		return models.CallerContext{}, ErrRevoked
	}

	return caller, nil
}

// verifyJWKS verifies against the IdP's cached public keys, refreshing
// the cache once on a failed verification before declaring the token
// invalid (absorbs key rotation without per-request network calls).
func (s *Service) verifyJWKS(ctx context.Context, token string) (models.CallerContext, error) {
	keys, err := s.idp.Keys(ctx)
	if err != nil {
		return models.CallerContext{}, ErrInvalidToken
	}

	parsed, parseErr := s.parseJWKS(token, keys)
	if parseErr != nil {
		refreshed, refreshErr := s.idp.RefreshNow(ctx)
		if refreshErr != nil {
			return models.CallerContext{}, ErrInvalidToken
		}
		parsed, parseErr = s.parseJWKS(token, refreshed)
		if parseErr != nil {
			return models.CallerContext{}, ErrInvalidToken
		}
	}

	return claimsToCaller(parsed), nil
}

func (s *Service) parseJWKS(token string, keys jwk.Set) (jwt.Token, error) {
	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}
	return jwt.Parse([]byte(token), opts...)
}

func claimsToCaller(token jwt.Token) models.CallerContext {
	var roles []string
	if raw, ok := token.Get("roles"); ok {
		switch v := raw.(type) {
		case []string:
			roles = v
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					roles = append(roles, s)
				}
			}
		case string:
			roles = strings.Split(v, ",")
		}
	}

	email, _ := token.Get("email")
	name, _ := token.Get("name")
	department, _ := token.Get("department")

	emailStr, _ := email.(string)
	nameStr, _ := name.(string)
	departmentStr, _ := department.(string)

	return models.CallerContext{
		UserID:      token.Subject(),
		DisplayName: nameStr,
		Email:       emailStr,
		Roles:       models.ParseRoleSet(roles),
		Department:  departmentStr,
		IssuedAt:    token.IssuedAt(),
		ExpiresAt:   token.Expiration(),
		TokenID:     token.JwtID(),
	}
}

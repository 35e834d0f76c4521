package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// IdentityProviderAdapter is the thin in-process module that fetches
// and caches the IdP's public signing keys (JWKS). It does not itself
// validate credentials — that responsibility stays in Service so
// credential verification can be unit-tested in isolation from network
// access to the IdP.
type IdentityProviderAdapter struct {
	jwksURL string
	cache   *jwk.Cache
}

// NewIdentityProviderAdapter registers jwksURL with a background
// auto-refreshing cache and performs one synchronous fetch so
// misconfiguration surfaces at startup rather than on the first
// request.
func NewIdentityProviderAdapter(ctx context.Context, jwksURL string, minRefresh time.Duration) (*IdentityProviderAdapter, error) {
	if jwksURL == "" {
		return nil, fmt.Errorf("idp: jwksURL is required")
	}
	if minRefresh <= 0 {
		minRefresh = 15 * time.Minute
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(minRefresh)); err != nil {
		return nil, fmt.Errorf("idp: register jwks url: %w", err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("idp: initial jwks fetch: %w", err)
	}

	return &IdentityProviderAdapter{jwksURL: jwksURL, cache: cache}, nil
}

// Keys returns the cached key set, refreshing it in the background on
// its own schedule.
func (a *IdentityProviderAdapter) Keys(ctx context.Context) (jwk.Set, error) {
	return a.cache.Get(ctx, a.jwksURL)
}

// RefreshNow forces a synchronous re-fetch of the key set, bypassing
// the minimum refresh interval. The Gateway calls this at most once
// per failed verification to absorb key rotation without waiting out
// the normal refresh schedule.
func (a *IdentityProviderAdapter) RefreshNow(ctx context.Context) (jwk.Set, error) {
	return a.cache.Refresh(ctx, a.jwksURL)
}

// Package ratelimit implements the Gateway's per-caller token-bucket
// rate limiting.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// GatewayLimits holds the two named buckets the Gateway enforces per
// caller (rate.general / rate.query). Both are expressed as
// requests-per-minute, matching the configuration surface, and
// converted to rate.Limit (per-second) internally.
type GatewayLimits struct {
	GeneralPerMinute float64
	QueryPerMinute   float64
}

// DefaultGatewayLimits returns the stock per-caller limits.
func DefaultGatewayLimits() GatewayLimits {
	return GatewayLimits{GeneralPerMinute: 100, QueryPerMinute: 10}
}

// GatewayLimiter tracks a per-caller rate.Limiter pair using
// golang.org/x/time/rate. It is built for the Gateway's request path,
// where callers need an exact retry-after duration for the 429
// response rather than a boolean.
type GatewayLimiter struct {
	mu      sync.Mutex
	limits  GatewayLimits
	general map[string]*rate.Limiter
	query   map[string]*rate.Limiter
}

// NewGatewayLimiter builds a GatewayLimiter from the configured limits.
func NewGatewayLimiter(limits GatewayLimits) *GatewayLimiter {
	return &GatewayLimiter{
		limits:  limits,
		general: make(map[string]*rate.Limiter),
		query:   make(map[string]*rate.Limiter),
	}
}

// SetLimits atomically replaces the configured limits and discards
// every existing per-caller limiter, so each caller starts with a
// fresh bucket at the new rate on its next request.
// Called by the config hot-reload watcher when rate.* changes.
func (g *GatewayLimiter) SetLimits(limits GatewayLimits) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits = limits
	g.general = make(map[string]*rate.Limiter)
	g.query = make(map[string]*rate.Limiter)
}

func perMinute(rpm float64) rate.Limit {
	if rpm <= 0 {
		return rate.Inf
	}
	return rate.Limit(rpm / 60.0)
}

func (g *GatewayLimiter) limiterFor(table map[string]*rate.Limiter, key string, rpm float64) *rate.Limiter {
	if l, ok := table[key]; ok {
		return l
	}
	burst := int(rpm)
	if burst < 1 {
		burst = 1
	}
	l := rate.NewLimiter(perMinute(rpm), burst)
	table[key] = l
	return l
}

// AllowGeneral checks the rate.general bucket for callerID.
func (g *GatewayLimiter) AllowGeneral(callerID string) (bool, time.Duration) {
	return g.allow(g.general, callerID, g.limits.GeneralPerMinute)
}

// AllowQuery checks the rate.query bucket for callerID (applied in
// addition to AllowGeneral on the /query endpoint).
func (g *GatewayLimiter) AllowQuery(callerID string) (bool, time.Duration) {
	return g.allow(g.query, callerID, g.limits.QueryPerMinute)
}

func (g *GatewayLimiter) allow(table map[string]*rate.Limiter, key string, rpm float64) (bool, time.Duration) {
	g.mu.Lock()
	limiter := g.limiterFor(table, key, rpm)
	g.mu.Unlock()

	reservation := limiter.Reserve()
	if !reservation.OK() {
		return false, 0
	}
	delay := reservation.Delay()
	if delay > 0 {
		reservation.Cancel()
		return false, delay
	}
	return true, 0
}

// Package revocation implements the Gateway's in-process Revocation
// Cache Client: a background worker that polls the external
// key-value store for revoked token identifiers and answers lookups
// against an atomically-swapped in-memory set, never blocking request
// handling on the store.
package revocation

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanner is the subset of *redis.Client's SCAN behavior used by
// Cache, narrowed to a plain return so tests can substitute a fake
// store without a live Redis instance.
type scanner interface {
	scanKeys(ctx context.Context, cursor uint64, match string, count int64) (keys []string, next uint64, err error)
}

// redisScanner adapts a *redis.Client to scanner.
type redisScanner struct {
	client *redis.Client
}

func (r redisScanner) scanKeys(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	return r.client.Scan(ctx, cursor, match, count).Result()
}

// Set is the in-process, atomically-swapped set of revoked token ids.
// The zero value is an empty set.
type Set map[string]struct{}

// Contains reports whether id is present in the set. A nil Set (no
// refresh has ever succeeded) contains nothing.
func (s Set) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s[id]
	return ok
}

// Cache polls Redis for the set of revoked token identifiers on a
// fixed interval and serves constant-time lookups against the
// most-recently-loaded set. It implements auth.RevocationChecker.
type Cache struct {
	client    scanner
	keyPrefix string
	interval  time.Duration
	failOpen  bool
	logger    *slog.Logger
	current   atomic.Pointer[Set]
	lastGood  atomic.Int64 // unix nanos of the last successful refresh
	now       func() time.Time
}

// Config configures the cache.
type Config struct {
	// KeyPrefix is the Redis key prefix under which revoked token ids
	// are stored, e.g. "revoked:" for keys "revoked:<tokenID>".
	KeyPrefix string
	// SyncInterval is how often the background worker refreshes the
	// set. Defaults to 2s.
	SyncInterval time.Duration
	// FailOpen keeps serving lookups from the last-known set when the
	// store is unreachable. When false the cache fails secure instead:
	// once the set has gone stale (no successful refresh within three
	// sync intervals), every lookup reports revoked until the store
	// recovers.
	FailOpen bool
}

// New builds a Cache bound to client. It does not start polling until
// Run is called.
func New(client *redis.Client, cfg Config, logger *slog.Logger) *Cache {
	return newWithScanner(redisScanner{client: client}, cfg, logger)
}

func newWithScanner(client scanner, cfg Config, logger *slog.Logger) *Cache {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 2 * time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "revoked:"
	}
	c := &Cache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		interval:  cfg.SyncInterval,
		failOpen:  cfg.FailOpen,
		logger:    logger,
		now:       time.Now,
	}
	empty := Set{}
	c.current.Store(&empty)
	return c
}

// IsRevoked answers a lookup against the most recently loaded set.
// Satisfies auth.RevocationChecker.
func (c *Cache) IsRevoked(tokenID string) bool {
	if c == nil {
		return false
	}
	if !c.failOpen && c.stale() {
		return true
	}
	set := c.current.Load()
	if set == nil {
		return false
	}
	return (*set).Contains(tokenID)
}

// stale reports whether the set has missed three consecutive refresh
// windows. Only consulted in fail-secure mode; a cache that has never
// refreshed is stale by definition.
func (c *Cache) stale() bool {
	nanos := c.lastGood.Load()
	if nanos == 0 {
		return true
	}
	return c.now().Sub(time.Unix(0, nanos)) > 3*c.interval
}

// Run blocks, refreshing the set every interval until ctx is
// canceled. Callers should run it in its own goroutine. A failed
// refresh retains the prior set and logs a warning; with FailOpen
// false, lookups still report revoked once that set goes stale.
func (c *Cache) Run(ctx context.Context) {
	c.refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *Cache) refresh(ctx context.Context) {
	next, err := c.load(ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("revocation cache refresh failed, retaining last known set", "error", err)
		}
		return
	}
	c.current.Store(&next)
	c.lastGood.Store(c.now().UnixNano())
}

func (c *Cache) load(ctx context.Context) (Set, error) {
	next := make(Set)

	var cursor uint64
	pattern := c.keyPrefix + "*"
	for {
		keys, nextCursor, err := c.client.scanKeys(ctx, cursor, pattern, 500)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			id := key[len(c.keyPrefix):]
			if id != "" {
				next[id] = struct{}{}
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return next, nil
}

// LastRefresh returns the time of the last successful refresh. The
// zero Time means no refresh has yet succeeded.
func (c *Cache) LastRefresh() time.Time {
	nanos := c.lastGood.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

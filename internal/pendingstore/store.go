// Package pendingstore implements the Gateway's Pending Action Store
// client: an external key-value store holding confirmation
// envelopes keyed by a unique identifier, written on receipt of a
// pendingConfirmation response and read-and-deleted on approval.
package pendingstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// ErrNotFound is returned when a confirmation id has no pending
// action — either it never existed, was already consumed, or its TTL
// expired.
var ErrNotFound = errors.New("pendingstore: action not found or expired")

// Store persists pendingConfirmation envelopes with a bounded TTL.
// Writes use set-with-expire; Take is an atomic get-then-delete so two
// concurrent confirm requests for the same id can never both succeed.
type Store interface {
	Put(ctx context.Context, action models.PendingAction, ttl time.Duration) error
	Take(ctx context.Context, confirmationID string) (models.PendingAction, error)
}

const keyPrefix = "pending:"

// RedisStore is the production Store backed by Redis: keys are
// "pending:{uuid}", values
// are JSON-encoded PendingAction, writes use SET with expiry.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores action under its confirmation id with the given TTL.
func (s *RedisStore) Put(ctx context.Context, action models.PendingAction, ttl time.Duration) error {
	if action.ConfirmationID == "" {
		return fmt.Errorf("pendingstore: confirmation id is required")
	}
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("pendingstore: marshal action: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+action.ConfirmationID, payload, ttl).Err()
}

// Take atomically reads and deletes the pending action for
// confirmationID. Uses GETDEL so a retried or racing confirm request
// for the same id observes ErrNotFound rather than double-executing.
func (s *RedisStore) Take(ctx context.Context, confirmationID string) (models.PendingAction, error) {
	raw, err := s.client.GetDel(ctx, keyPrefix+confirmationID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.PendingAction{}, ErrNotFound
		}
		return models.PendingAction{}, fmt.Errorf("pendingstore: get action: %w", err)
	}

	var action models.PendingAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return models.PendingAction{}, fmt.Errorf("pendingstore: unmarshal action: %w", err)
	}
	return action, nil
}

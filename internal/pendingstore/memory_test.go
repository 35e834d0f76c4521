package pendingstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

func TestMemoryStore_PutAndTake(t *testing.T) {
	store := NewMemoryStore()
	action := models.PendingAction{
		ConfirmationID: "conf-1",
		ActionTag:      "delete_employee",
		Server:         "hr",
		OriginatorID:   "user-1",
		CreatedAt:      time.Now(),
		Payload:        []byte(`{"employeeId":"e-1"}`),
	}

	require.NoError(t, store.Put(context.Background(), action, 5*time.Minute))

	got, err := store.Take(context.Background(), "conf-1")
	require.NoError(t, err)
	assert.Equal(t, action.ConfirmationID, got.ConfirmationID)
	assert.Equal(t, action.ActionTag, got.ActionTag)
	assert.Equal(t, action.OriginatorID, got.OriginatorID)
}

func TestMemoryStore_TakeIsOneShot(t *testing.T) {
	store := NewMemoryStore()
	action := models.PendingAction{ConfirmationID: "conf-2", OriginatorID: "user-1"}
	require.NoError(t, store.Put(context.Background(), action, time.Minute))

	_, err := store.Take(context.Background(), "conf-2")
	require.NoError(t, err)

	_, err = store.Take(context.Background(), "conf-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TakeMissingReturnsNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Take(context.Background(), "never-existed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ExpiredEntryIsNotFound(t *testing.T) {
	store := NewMemoryStore()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	action := models.PendingAction{ConfirmationID: "conf-3", OriginatorID: "user-1"}
	require.NoError(t, store.Put(context.Background(), action, time.Minute))

	store.now = func() time.Time { return fixed.Add(2 * time.Minute) }

	_, err := store.Take(context.Background(), "conf-3")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

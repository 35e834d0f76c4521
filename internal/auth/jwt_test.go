package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

func TestDevSignerRoundTrip(t *testing.T) {
	signer := NewDevSigner("test-secret", time.Hour, "tamshai-idp", "tamshai-clients")

	caller := models.CallerContext{
		UserID:      "user-1",
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
		Roles:       models.RoleSet{models.RoleHRRead, models.RoleManager},
		Department:  "engineering",
		TokenID:     "tok-1",
	}

	token, err := signer.Generate(caller)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, caller.UserID, got.UserID)
	assert.Equal(t, caller.Email, got.Email)
	assert.Equal(t, caller.Department, got.Department)
	assert.True(t, got.Roles.Has(models.RoleHRRead))
	assert.True(t, got.Roles.Has(models.RoleManager))
	assert.Equal(t, "tok-1", got.TokenID)
	assert.False(t, got.ExpiresAt.IsZero())
}

func TestDevSignerRejectsWrongAudience(t *testing.T) {
	signer := NewDevSigner("test-secret", time.Hour, "tamshai-idp", "tamshai-clients")
	other := NewDevSigner("test-secret", time.Hour, "tamshai-idp", "other-clients")

	caller := models.CallerContext{UserID: "user-1"}
	token, err := signer.Generate(caller)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDevSignerRejectsExpired(t *testing.T) {
	signer := NewDevSigner("test-secret", -time.Hour, "iss", "")
	token, err := signer.Generate(models.CallerContext{UserID: "user-1"})
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type fakeRevocation struct {
	revoked map[string]bool
}

func (f *fakeRevocation) IsRevoked(tokenID string) bool {
	return f.revoked[tokenID]
}

func TestServiceRejectsRevokedToken(t *testing.T) {
	signer := NewDevSigner("test-secret", time.Hour, "iss", "aud")
	revocation := &fakeRevocation{revoked: map[string]bool{"tok-1": true}}
	service := NewService(nil, signer, "aud", "iss", revocation)

	token, err := signer.Generate(models.CallerContext{UserID: "user-1", TokenID: "tok-1"})
	require.NoError(t, err)

	_, err = service.Verify(context.Background(), "Bearer "+token)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestServiceAcceptsValidToken(t *testing.T) {
	signer := NewDevSigner("test-secret", time.Hour, "iss", "aud")
	revocation := &fakeRevocation{revoked: map[string]bool{}}
	service := NewService(nil, signer, "aud", "iss", revocation)

	token, err := signer.Generate(models.CallerContext{UserID: "user-1", TokenID: "tok-2"})
	require.NoError(t, err)

	caller, err := service.Verify(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", caller.UserID)
}

func TestServiceDisabledWithoutVerifier(t *testing.T) {
	service := NewService(nil, nil, "", "", nil)
	assert.False(t, service.Enabled())
	_, err := service.Verify(context.Background(), "Bearer x")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	tokens := NewTokens("secret")
	userID := uuid.New()

	access, refresh, err := tokens.GenerateTokens("waiter", userID, "sid-1")
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "waiter", claims.Role)
	assert.Equal(t, "sid-1", claims.SessionID)

	_, err = tokens.ValidateToken(refresh)
	assert.Error(t, err, "refresh tokens are not accepted as access tokens")
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	access, _, err := NewTokens("one").GenerateTokens("admin", uuid.New(), "sid")
	require.NoError(t, err)

	_, err = NewTokens("two").ValidateToken(access)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	tokens := NewTokens("secret")
	issued := time.Now().Add(-time.Hour)
	tokens.now = func() time.Time { return issued }
	access, _, err := tokens.GenerateTokens("admin", uuid.New(), "sid")
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.ValidateToken(access)
	assert.Error(t, err)
}

func TestRefreshTokensKeepsSession(t *testing.T) {
	tokens := NewTokens("secret")
	userID := uuid.New()
	access, refresh, err := tokens.GenerateTokens("cashier", userID, "sid-9")
	require.NoError(t, err)

	claims, newAccess, newRefresh, err := tokens.RefreshTokens(refresh)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.NotEmpty(t, newRefresh)

	got, err := tokens.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, "sid-9", got.SessionID)
	assert.Equal(t, "cashier", got.Role)

	_, _, _, err = tokens.RefreshTokens(access)
	assert.Error(t, err)
}

package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbit/support-platform/internal/auth"
	"github.com/flowbit/support-platform/internal/core/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	token, err := tm.GenerateToken(userID, "tenant-a", domain.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	tm := auth.NewTokenManager("secret-one", time.Hour)
	other := auth.NewTokenManager("secret-two", time.Hour)

	token, err := tm.GenerateToken(uuid.New(), "tenant-a", domain.RoleUser)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", -time.Minute)

	token, err := tm.GenerateToken(uuid.New(), "tenant-a", domain.RoleUser)
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_Garbage(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	_, err := tm.ValidateToken("not.a.token")
	assert.Error(t, err)
}

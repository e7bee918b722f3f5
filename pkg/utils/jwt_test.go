package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", "future-self-api")

	token, err := m.GenerateToken("user-1", "alice@example.com", "authenticated", time.Hour)
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
	assert.Equal(t, "future-self-api", claims.Issuer)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("test-secret", "future-self-api")

	token, err := m.GenerateToken("user-1", "", "", -time.Hour)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	m := NewJWTManager("test-secret", "future-self-api")
	other := NewJWTManager("other-secret", "future-self-api")

	token, err := m.GenerateToken("user-1", "", "", time.Hour)
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_MissingSubject(t *testing.T) {
	m := NewJWTManager("test-secret", "future-self-api")

	token, err := m.GenerateToken("", "", "", time.Hour)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewTokenManager("secret", "engagement-hub", time.Hour)
	require.NoError(t, err)

	id := uuid.New()
	token, err := m.GenerateToken(id, RoleOperator)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.RecipientID)
	assert.True(t, claims.IsOperator())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestValidateTokenRejects(t *testing.T) {
	m, err := NewTokenManager("secret", "engagement-hub", time.Hour)
	require.NoError(t, err)
	id := uuid.New()

	t.Run("expired", func(t *testing.T) {
		past, err := NewTokenManager("secret", "engagement-hub", time.Minute)
		require.NoError(t, err)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := past.GenerateToken(id, "")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenManager("other", "engagement-hub", time.Hour)
		require.NoError(t, err)
		token, err := other.GenerateToken(id, "")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenManager("secret", "someone-else", time.Hour)
		require.NoError(t, err)
		token, err := other.GenerateToken(id, "")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("non uuid subject", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "engagement-hub",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", "x", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

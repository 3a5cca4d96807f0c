package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "placeclaim/pkg/domain-errors"
)

func TestValidateToken(t *testing.T) {
	v := NewValidator("test-signing-key", "placeclaim", "placeclaim-api")
	userID := uuid.New()

	t.Run("round trips identity", func(t *testing.T) {
		token, err := v.GenerateAccessToken(userID, "owner@example.com", time.Minute)
		require.NoError(t, err)

		claims, err := v.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, "owner@example.com", claims.Email)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		token, err := v.GenerateAccessToken(userID, "", -time.Minute)
		require.NoError(t, err)

		_, err = v.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("foreign signing key is rejected", func(t *testing.T) {
		other := NewValidator("another-key", "placeclaim", "placeclaim-api")
		token, err := other.GenerateAccessToken(userID, "", time.Minute)
		require.NoError(t, err)

		_, err = v.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong audience is rejected", func(t *testing.T) {
		other := NewValidator("test-signing-key", "placeclaim", "someone-else")
		token, err := other.GenerateAccessToken(userID, "", time.Minute)
		require.NoError(t, err)

		_, err = v.ValidateToken(token)
		assert.Error(t, err)
	})
}

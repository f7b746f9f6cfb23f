package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-access-secret-at-least-32-chars!",
		RefreshSecret:          "test-refresh-secret-at-least-32-char!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "invoicehub-test",
		MaxRefreshCount:        2,
	})
}

func TestJWTService_GenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()

	pair, err := svc.GenerateTokenPair(GenerateTokenInput{UserID: userID, Username: "alice"})
	require.NoError(t, err)
	require.NotNil(t, pair)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID, "access token must carry a JTI")

	refreshClaims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refreshClaims.TokenType)
	assert.Equal(t, 0, refreshClaims.RefreshCount)
}

func TestJWTService_ValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()

	t.Run("rejects garbage token", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects refresh token as access token", func(t *testing.T) {
		pair, err := svc.GenerateTokenPair(GenerateTokenInput{UserID: uuid.New(), Username: "bob"})
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(pair.RefreshToken)
		assert.Error(t, err)
	})

	t.Run("rejects token signed with other secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                 "another-secret-that-is-also-32-chars",
			AccessTokenExpiration:  time.Minute,
			RefreshTokenExpiration: time.Hour,
			Issuer:                 "other",
			MaxRefreshCount:        1,
		})
		pair, err := other.GenerateTokenPair(GenerateTokenInput{UserID: uuid.New(), Username: "eve"})
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:                 "test-access-secret-at-least-32-chars!",
			AccessTokenExpiration:  -time.Minute,
			RefreshTokenExpiration: time.Hour,
			Issuer:                 "invoicehub-test",
			MaxRefreshCount:        1,
		})
		pair, err := expired.GenerateTokenPair(GenerateTokenInput{UserID: uuid.New(), Username: "old"})
		require.NoError(t, err)

		_, err = expired.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestJWTService_RefreshTokenPair(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()

	pair, err := svc.GenerateTokenPair(GenerateTokenInput{UserID: userID, Username: "alice"})
	require.NoError(t, err)

	t.Run("issues new pair with incremented refresh count", func(t *testing.T) {
		newPair, err := svc.RefreshTokenPair(pair.RefreshToken, "alice")
		require.NoError(t, err)

		claims, err := svc.ValidateRefreshToken(newPair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, 1, claims.RefreshCount)

		accessClaims, err := svc.ValidateAccessToken(newPair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), accessClaims.UserID)
	})

	t.Run("fails after max refresh count", func(t *testing.T) {
		current := pair.RefreshToken
		for i := 0; i < 2; i++ {
			newPair, err := svc.RefreshTokenPair(current, "alice")
			require.NoError(t, err)
			current = newPair.RefreshToken
		}

		_, err := svc.RefreshTokenPair(current, "alice")
		assert.ErrorIs(t, err, ErrMaxRefreshExceeded)
	})

	t.Run("rejects access token as refresh token", func(t *testing.T) {
		_, err := svc.RefreshTokenPair(pair.AccessToken, "alice")
		assert.Error(t, err)
	})
}

func TestClaims_GetRemainingTTL(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(GenerateTokenInput{UserID: uuid.New(), Username: "ttl"})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	ttl := claims.GetRemainingTTL()
	assert.Greater(t, ttl, 14*time.Minute)
	assert.LessOrEqual(t, ttl, 15*time.Minute)
}

func TestInMemoryTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	bl := NewInMemoryTokenBlacklist()

	t.Run("blacklists a JTI until TTL elapses", func(t *testing.T) {
		require.NoError(t, bl.AddToBlacklist(ctx, "jti-1", time.Minute))

		blacklisted, err := bl.IsBlacklisted(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, blacklisted)

		blacklisted, err = bl.IsBlacklisted(ctx, "jti-unknown")
		require.NoError(t, err)
		assert.False(t, blacklisted)
	})

	t.Run("expired entries are dropped", func(t *testing.T) {
		require.NoError(t, bl.AddToBlacklist(ctx, "jti-2", -time.Second))

		blacklisted, err := bl.IsBlacklisted(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, blacklisted)
	})

	t.Run("user-wide invalidation rejects earlier tokens", func(t *testing.T) {
		issuedBefore := time.Now().Add(-time.Minute)
		require.NoError(t, bl.AddUserTokensToBlacklist(ctx, "user-1", time.Hour))

		invalid, err := bl.IsUserTokenInvalidated(ctx, "user-1", issuedBefore)
		require.NoError(t, err)
		assert.True(t, invalid)

		invalid, err = bl.IsUserTokenInvalidated(ctx, "user-1", time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, invalid)

		invalid, err = bl.IsUserTokenInvalidated(ctx, "user-other", issuedBefore)
		require.NoError(t, err)
		assert.False(t, invalid)
	})
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/infrastructure/auth"
	"github.com/invoicehub/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T) *auth.JWTService {
	t.Helper()
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "middleware-test-secret-32-characters",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "invoicehub-test",
		MaxRefreshCount:        5,
	})
}

func setupTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/api/v1/invoices", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetJWTUserID(c)})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestJWTAuthMiddleware(t *testing.T) {
	svc := newTestJWTService(t)

	t.Run("allows skip paths without token", func(t *testing.T) {
		r := setupTestRouter(JWTAuthMiddleware(svc))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects missing authorization header", func(t *testing.T) {
		r := setupTestRouter(JWTAuthMiddleware(svc))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_TOKEN")
	})

	t.Run("rejects malformed authorization header", func(t *testing.T) {
		r := setupTestRouter(JWTAuthMiddleware(svc))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
		req.Header.Set("Authorization", "Basic abc123")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("accepts valid token and exposes user identity", func(t *testing.T) {
		r := setupTestRouter(JWTAuthMiddleware(svc))

		userID := uuid.New()
		pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{UserID: userID, Username: "alice"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("rejects refresh token on protected route", func(t *testing.T) {
		r := setupTestRouter(JWTAuthMiddleware(svc))

		pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{UserID: uuid.New(), Username: "bob"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects blacklisted token", func(t *testing.T) {
		blacklist := auth.NewInMemoryTokenBlacklist()
		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = blacklist
		r := setupTestRouter(JWTAuthMiddlewareWithConfig(cfg))

		pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{UserID: uuid.New(), Username: "carol"})
		require.NoError(t, err)

		claims, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		require.NoError(t, blacklist.AddToBlacklist(context.Background(), claims.ID, time.Hour))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_TOKEN_REVOKED")
	})
}

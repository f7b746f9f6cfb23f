package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/identity"
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/invoicehub/backend/internal/infrastructure/auth"
	"github.com/invoicehub/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "auth-service-test-secret-32-chars!!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "invoicehub-test",
		MaxRefreshCount:        5,
	})
}

func newTestUser(t *testing.T) *identity.User {
	t.Helper()
	user, err := identity.NewUser("alice", "alice@example.com", "correct-horse-battery")
	require.NoError(t, err)
	return user
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, newTestJWTService(), nil, nil)

		repo.On("ExistsByUsername", ctx, "alice").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

		resp, err := svc.Register(ctx, RegisterRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "correct-horse-battery",
		})

		require.NoError(t, err)
		assert.Equal(t, "alice", resp.Username)
		assert.Equal(t, string(identity.UserStatusActive), resp.Status)
	})

	t.Run("rejects taken username", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, newTestJWTService(), nil, nil)

		repo.On("ExistsByUsername", ctx, "alice").Return(true, nil)

		resp, err := svc.Register(ctx, RegisterRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "correct-horse-battery",
		})

		assert.Nil(t, resp)
		assert.True(t, shared.IsDomainError(err, "USERNAME_TAKEN"))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues tokens on valid credentials", func(t *testing.T) {
		repo := new(MockUserRepository)
		jwtSvc := newTestJWTService()
		svc := NewAuthService(repo, jwtSvc, nil, nil)
		user := newTestUser(t)

		repo.On("FindByUsername", ctx, "alice").Return(user, nil)
		repo.On("Save", ctx, user).Return(nil)

		resp, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "correct-horse-battery"})

		require.NoError(t, err)
		assert.NotEmpty(t, resp.Tokens.AccessToken)
		assert.NotEmpty(t, resp.Tokens.RefreshToken)
		assert.Equal(t, "alice", resp.User.Username)
		assert.NotNil(t, user.LastLoginAt)

		claims, err := jwtSvc.ValidateAccessToken(resp.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
	})

	t.Run("same error for unknown user and wrong password", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, newTestJWTService(), nil, nil)
		user := newTestUser(t)

		repo.On("FindByUsername", ctx, "nobody").Return(nil, shared.ErrNotFound)
		repo.On("FindByUsername", ctx, "alice").Return(user, nil)
		repo.On("Save", ctx, user).Return(nil)

		_, errUnknown := svc.Login(ctx, LoginRequest{Username: "nobody", Password: "whatever"})
		_, errWrongPw := svc.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})

		assert.True(t, shared.IsDomainError(errUnknown, "INVALID_CREDENTIALS"))
		assert.True(t, shared.IsDomainError(errWrongPw, "INVALID_CREDENTIALS"))
		assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
	})

	t.Run("locks account after repeated failures", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, newTestJWTService(), nil, nil)
		user := newTestUser(t)

		repo.On("FindByUsername", ctx, "alice").Return(user, nil)
		repo.On("Save", ctx, user).Return(nil)

		for i := 0; i < 5; i++ {
			_, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
			assert.True(t, shared.IsDomainError(err, "INVALID_CREDENTIALS"))
		}

		_, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "correct-horse-battery"})
		assert.True(t, shared.IsDomainError(err, "ACCOUNT_LOCKED"))
	})

	t.Run("rejects deactivated account", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, newTestJWTService(), nil, nil)
		user := newTestUser(t)
		user.Deactivate()

		repo.On("FindByUsername", ctx, "alice").Return(user, nil)

		_, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "correct-horse-battery"})
		assert.True(t, shared.IsDomainError(err, "ACCOUNT_DEACTIVATED"))
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("exchanges refresh token for a new pair", func(t *testing.T) {
		repo := new(MockUserRepository)
		jwtSvc := newTestJWTService()
		svc := NewAuthService(repo, jwtSvc, nil, nil)
		user := newTestUser(t)

		pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID, Username: user.Username})
		require.NoError(t, err)

		repo.On("FindByID", ctx, user.ID).Return(user, nil)

		resp, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: pair.RefreshToken})

		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEqual(t, pair.RefreshToken, resp.RefreshToken)
	})

	t.Run("rejects garbage refresh token", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, newTestJWTService(), nil, nil)

		resp, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: "not-a-token"})

		assert.Nil(t, resp)
		assert.True(t, shared.IsDomainError(err, "INVALID_TOKEN"))
	})

	t.Run("rejects blacklisted refresh token", func(t *testing.T) {
		repo := new(MockUserRepository)
		jwtSvc := newTestJWTService()
		blacklist := auth.NewInMemoryTokenBlacklist()
		svc := NewAuthService(repo, jwtSvc, blacklist, nil)
		user := newTestUser(t)

		pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID, Username: user.Username})
		require.NoError(t, err)

		claims, err := jwtSvc.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		require.NoError(t, blacklist.AddToBlacklist(ctx, claims.ID, time.Hour))

		resp, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: pair.RefreshToken})

		assert.Nil(t, resp)
		assert.True(t, shared.IsDomainError(err, "TOKEN_REVOKED"))
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes the access token for its remaining lifetime", func(t *testing.T) {
		repo := new(MockUserRepository)
		jwtSvc := newTestJWTService()
		blacklist := auth.NewInMemoryTokenBlacklist()
		svc := NewAuthService(repo, jwtSvc, blacklist, nil)
		user := newTestUser(t)

		pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID, Username: user.Username})
		require.NoError(t, err)

		claims, err := jwtSvc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, claims))

		blacklisted, err := blacklist.IsBlacklisted(ctx, claims.ID)
		require.NoError(t, err)
		assert.True(t, blacklisted)
	})

	t.Run("is a no-op without a blacklist", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, newTestJWTService(), nil, nil)

		assert.NoError(t, svc.Logout(ctx, nil))
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("changes password and invalidates outstanding tokens", func(t *testing.T) {
		repo := new(MockUserRepository)
		jwtSvc := newTestJWTService()
		blacklist := auth.NewInMemoryTokenBlacklist()
		svc := NewAuthService(repo, jwtSvc, blacklist, nil)
		user := newTestUser(t)
		issuedAt := time.Now().Add(-time.Minute)

		repo.On("FindByID", ctx, user.ID).Return(user, nil)
		repo.On("Save", ctx, user).Return(nil)

		err := svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{
			OldPassword: "correct-horse-battery",
			NewPassword: "staple-gun-tactics",
		})

		require.NoError(t, err)
		assert.True(t, user.VerifyPassword("staple-gun-tactics"))

		invalidated, err := blacklist.IsUserTokenInvalidated(ctx, user.ID.String(), issuedAt)
		require.NoError(t, err)
		assert.True(t, invalidated)
	})

	t.Run("rejects wrong current password", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, newTestJWTService(), nil, nil)
		user := newTestUser(t)

		repo.On("FindByID", ctx, user.ID).Return(user, nil)

		err := svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{
			OldPassword: "wrong",
			NewPassword: "staple-gun-tactics",
		})

		assert.True(t, shared.IsDomainError(err, "INVALID_CREDENTIALS"))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

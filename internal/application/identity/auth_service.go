package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/identity"
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/invoicehub/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthService handles registration, login and session lifecycle
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService. The blacklist is optional; without
// one, logout only takes effect when the token expires.
func NewAuthService(userRepo identity.UserRepository, jwtService *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	taken, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, shared.NewDomainError("USERNAME_TAKEN", "Username is already taken")
	}

	user, err := identity.NewUser(req.Username, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)

	response := ToUserResponse(user)
	return &response, nil
}

// Login authenticates a user and issues a token pair.
// Unknown usernames and wrong passwords answer with the same error so the
// endpoint cannot be used to probe for accounts.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, err
	}

	if err := user.CanLogin(); err != nil {
		return nil, err
	}

	if !user.VerifyPassword(req.Password) {
		user.RecordLoginFailure()
		if saveErr := s.userRepo.Save(ctx, user); saveErr != nil {
			s.logger.Error("Failed to record login failure",
				zap.String("user_id", user.ID.String()),
				zap.Error(saveErr),
			)
		}
		return nil, invalidCredentials()
	}

	user.RecordLoginSuccess()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))

	return &LoginResponse{
		User:   ToUserResponse(user),
		Tokens: toTokenResponse(pair),
	}, nil
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	if s.blacklist != nil && claims.ID != "" {
		blacklisted, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("Failed to check refresh token blacklist", zap.Error(err))
		} else if blacklisted {
			return nil, shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
		}
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, mapTokenError(auth.ErrInvalidClaims)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, mapTokenError(auth.ErrInvalidToken)
		}
		return nil, err
	}

	if err := user.CanLogin(); err != nil {
		return nil, err
	}

	pair, err := s.jwtService.RefreshTokenPair(req.RefreshToken, user.Username)
	if err != nil {
		return nil, mapTokenError(err)
	}

	response := toTokenResponse(pair)
	return &response, nil
}

// Logout revokes the presented access token for its remaining lifetime
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil || claims == nil || claims.ID == "" {
		return nil
	}

	ttl := claims.GetRemainingTTL()
	if ttl <= 0 {
		return nil
	}

	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, ttl); err != nil {
		return err
	}

	s.logger.Info("User logged out", zap.String("user_id", claims.UserID))
	return nil
}

// GetCurrentUser returns the authenticated user's profile
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	response := ToUserResponse(user)
	return &response, nil
}

// ChangePassword verifies the current password and replaces it.
// All outstanding tokens for the user are invalidated.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.ChangePassword(req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return err
	}

	if s.blacklist != nil {
		ttl := s.jwtService.GetRefreshTokenExpiration()
		if err := s.blacklist.AddUserTokensToBlacklist(ctx, userID.String(), ttl); err != nil {
			s.logger.Error("Failed to invalidate user tokens after password change",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Password changed", zap.String("user_id", userID.String()))
	return nil
}

func toTokenResponse(pair *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresAt:    pair.AccessTokenExpiresAt,
	}
}

func invalidCredentials() error {
	return shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
}

// mapTokenError converts auth package errors into domain errors the HTTP
// layer knows how to render
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("MAX_REFRESH_EXCEEDED", "Session expired, please log in again")
	default:
		return shared.NewDomainError("INVALID_TOKEN", "Invalid token")
	}
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/config"
	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/repository"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

const invalidCredentials = "Invalid username or password"

// AuthService issues session claims for staff logins.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Logger      *zap.Logger
}

// LoginResult is a signed-in user with the token that carries its claim.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    deps.UserRepo,
		sessions: deps.SessionRepo,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		logger:   logger,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login checks credentials and issues a role and branch bearing token.
// Logging in is allowed outside operating hours; the gate handles that.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized(invalidCredentials)
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	token, claims, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	expiresAt := claims.ExpiresAt.Time

	session := domain.Session{
		ID:        claims.ID,
		UserID:    user.ID,
		Role:      user.Role,
		BranchID:  user.BranchID,
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Track(ctx, session); err != nil {
		s.logger.Warn("failed to track session", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout forgets the session so it no longer pins its branch.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal) error {
	return s.sessions.Release(ctx, domain.Session{
		ID:       principal.SessionID,
		UserID:   principal.UserID,
		Role:     principal.Role,
		BranchID: principal.BranchID,
	})
}

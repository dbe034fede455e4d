package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/auth"
	"github.com/deskline/ticket-sync/internal/config"
	"github.com/deskline/ticket-sync/internal/domain"
	"github.com/deskline/ticket-sync/internal/repository"
	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

// AuthService handles login for the dev Ticket Service.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// TokenManager exposes the manager for the auth middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// SeedUsers creates or refreshes the configured dev accounts.
func (s *AuthService) SeedUsers(ctx context.Context, users []config.DevUser) error {
	for _, dev := range users {
		role := domain.UserRole(strings.ToLower(dev.Role))
		if role != domain.UserRoleAdmin {
			role = domain.UserRoleUser
		}
		hash, err := auth.HashPassword(dev.Password, s.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", dev.Username, err)
		}
		user := &domain.User{Username: dev.Username, PasswordHash: hash, Role: role, IsActive: true}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", dev.Username, err)
		}
		s.logger.Info("seeded user", zap.String("username", user.Username), zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	}
	return nil
}

// Login authenticates a user and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("Incorrect username or password")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, err
	}
	if !user.IsActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("Inactive user")
	}
	token, exp, err := s.tokenMgr.GenerateToken(*user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

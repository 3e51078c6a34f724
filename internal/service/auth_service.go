// Package service holds the application services behind the HTTP handlers:
// authentication, user administration and bootstrap seeding.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"letterflow/internal/auth"
	"letterflow/internal/config"
	"letterflow/internal/models"
	"letterflow/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is deactivated")
)

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthService handles login, token refresh and password changes.
type AuthService struct {
	users     *repository.UserRepository
	tokens    *auth.Service
	expiresIn time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, tokens *auth.Service, expiresIn time.Duration) *AuthService {
	return &AuthService{users: users, tokens: tokens, expiresIn: expiresIn}
}

// Login verifies the credentials and issues a token pair. Deactivated
// accounts fail with ErrAccountDisabled even on a correct password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if err := s.tokens.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, nil, ErrAccountDisabled
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}

	return user, pair, nil
}

// Refresh validates a refresh token and issues a fresh token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if !user.Active {
		return nil, nil, ErrAccountDisabled
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.tokens.VerifyPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.tokens.HashPassword(next)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, userID, hash)
}

// EnsureBootstrapAdmin seeds the configured admin account when the user table
// is empty, so a fresh deployment has a way in.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	if cfg.AdminEmail == "" {
		return nil
	}

	count, err := s.users.CountAll(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := s.tokens.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		ID:           uuid.NewString(),
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Active:       true,
	}

	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	slog.Info("Seeded bootstrap admin account", "email", cfg.AdminEmail)
	return nil
}

func (s *AuthService) issueTokens(user *models.User) (*TokenPair, error) {
	accessToken, _, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	refreshToken, _, err := s.tokens.GenerateRefreshToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.expiresIn.Seconds()),
	}, nil
}

package service

import (
	"context"
	"log/slog"

	"github.com/splitkaro/splitkaro/internal/auth"
	"github.com/splitkaro/splitkaro/internal/models"
	"github.com/splitkaro/splitkaro/internal/storage"
)

// AuthService handles registration, login, and user lookups.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
		logger:        logger,
	}
}

// Register creates a new user account and returns the user plus a session
// token.
func (s *AuthService) Register(ctx context.Context, handle, displayName, password string) (*models.User, string, error) {
	s.logger.Info("Register request", "handle", handle)

	user, err := s.authenticator.Register(ctx, handle, displayName, password)
	if err != nil {
		s.logger.Error("Registration failed", "handle", handle, "error", err)
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	s.logger.Info("User registered", "user_id", user.ID, "handle", user.Handle)
	return user, token, nil
}

// Login authenticates a user and returns the user plus a session token.
func (s *AuthService) Login(ctx context.Context, handle, password string) (*models.User, string, error) {
	s.logger.Info("Login request", "handle", handle)

	if handle == "" || password == "" {
		return nil, "", auth.ErrInvalidCredentials
	}

	user, err := s.authenticator.Authenticate(ctx, handle, password)
	if err != nil {
		s.logger.Warn("Login failed", "handle", handle, "error", err)
		return nil, "", auth.ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	s.logger.Info("User logged in", "user_id", user.ID, "handle", user.Handle)
	return user, token, nil
}

// GetUser fetches a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// ListUsers returns all registered users ordered by handle.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.store.ListUsers(ctx)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/splitkaro/splitkaro/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid handle or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrHandleExists       = errors.New("handle already registered")
	ErrInvalidHandle      = errors.New("handle must be 2-32 characters of letters, digits, or underscores")
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{2,32}$`)

// UserStorage defines the interface for user persistence operations.
// This allows the authenticator to be independent of the storage implementation.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage UserStorage
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage: storage,
	}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new user account with a hashed password.
func (a *PasswordAuthenticator) Register(ctx context.Context, handle, displayName, credential string) (*models.User, error) {
	if !handlePattern.MatchString(handle) {
		return nil, ErrInvalidHandle
	}
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	existingUser, err := a.storage.GetUserByHandle(ctx, handle)
	if err == nil && existingUser != nil {
		return nil, ErrHandleExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(handle, displayName, string(hashedPassword))

	if err := a.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies the handle and password, returning the user if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, handle, credential string) (*models.User, error) {
	user, err := a.storage.GetUserByHandle(ctx, handle)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

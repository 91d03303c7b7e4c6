package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered participant.
//
// A user is created once per distinct external identity and never deleted.
// Only the display fields are mutable after creation.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Handle is the unique short name used to refer to the user in expenses
	// (e.g. "alice"). Handles come from the external chat identity.
	Handle string

	// DisplayName is the optional human-readable name of the user.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	// Never serialized to API responses.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the user was registered.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last display-field change.
	UpdatedAt int64
}

// NewUser creates a user with a generated ID and timestamps.
func NewUser(handle, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Handle:       handle,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/splitkaro/splitkaro/internal/models"
)

// ErrNotFound is wrapped by store implementations when a referenced entity
// does not exist. Callers check with errors.Is.
var ErrNotFound = errors.New("not found")

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	// CreateUser persists a new user. The user's ID must already be set.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID. Returns nil, nil if not found.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByHandle retrieves a user by handle. Returns nil, nil if not found.
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)

	// GetUsersByIDs retrieves multiple users keyed by ID. Missing users are
	// omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// ListUsers returns all users ordered by handle.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// UpdateUser updates a user's display fields.
	UpdateUser(ctx context.Context, user *models.User) error

	// CreateGroup persists a new group, assigning ID and CreatedAt.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups returns all groups.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// AddGroupMembers adds users to a group, ignoring existing memberships.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error

	// RemoveGroupMember removes one explicit membership.
	RemoveGroupMember(ctx context.Context, groupID, userID string) error

	// ListGroupMembers returns the membership rows for a group.
	ListGroupMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error)

	// IsMember reports whether the user is an explicit member of the group.
	IsMember(ctx context.Context, groupID, userID string) (bool, error)

	// CreateExpense persists an expense and its splits in one transaction,
	// assigning IDs and CreatedAt.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByGroup returns a group's expenses with splits, newest
	// first. limit <= 0 means no limit.
	ListExpensesByGroup(ctx context.Context, groupID string, limit, offset int) ([]*models.Expense, error)

	// ListExpensesByUser returns the expenses in a group that the user holds
	// a split in, newest first. limit <= 0 means no limit.
	ListExpensesByUser(ctx context.Context, userID, groupID string, limit int) ([]*models.Expense, error)

	// DeleteExpense removes an expense; its splits cascade.
	DeleteExpense(ctx context.Context, expenseID string) error

	// SettleSplit marks a single split as settled.
	SettleSplit(ctx context.Context, splitID string) error

	// CreateSettlement persists a settlement, assigning ID and CreatedAt.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlementsByGroup returns a group's settlements, newest first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// DeleteSettlement removes a settlement by ID.
	DeleteSettlement(ctx context.Context, settlementID string) error

	// Close releases any resources held by the store.
	Close() error
}

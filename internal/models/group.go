package models

// Group represents a set of users who share expenses.
//
// Membership is tracked by GroupMember rows, not by a collection on the group
// itself. A user must be a member of a group before appearing in that group's
// expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Goa Trip").
	Name string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// GroupMember is the membership relation between a user and a group.
// Membership grows monotonically; rows are removed only on an explicit
// left/removed signal, never as a side effect of other operations.
type GroupMember struct {
	GroupID string
	UserID  string

	// JoinedAt is the Unix timestamp when the user joined the group.
	JoinedAt int64
}

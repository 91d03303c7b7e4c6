package models

// Expense represents a single recorded financial event belonging to a group.
// It is immutable once created; deletion cascades to its splits.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Amount is the total expense amount. Always positive.
	Amount float64

	// Description is optional free text about what the expense was for.
	Description string

	// CreatedBy is the user ID of who recorded the expense.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// Splits is the per-participant breakdown. The sum of OwedAmount across
	// splits equals Amount within the 0.01 tolerance.
	Splits []Split
}

// Split is one participant's paid/owed breakdown for an expense.
// It exists only as a child of exactly one expense, and its user must be a
// member of the expense's group at creation time.
type Split struct {
	// ID is the unique identifier for the split (UUID format).
	ID string

	// ExpenseID is the owning expense.
	ExpenseID string

	// UserID is the participant this split belongs to.
	UserID string

	// PaidAmount is what this participant physically paid toward the expense.
	PaidAmount float64

	// OwedAmount is this participant's share of the total. Shares are always
	// equal across participants; only paid amounts vary.
	OwedAmount float64

	// Settled marks the split as manually settled.
	Settled bool
}

// Package ledger implements the expense ledger engine: split derivation for
// new expenses, net and pairwise balance calculation, and greedy debt
// simplification. Everything here is pure computation over in-memory data;
// persistence and membership lookups belong to the caller.
package ledger

import (
	"math"

	"github.com/splitkaro/splitkaro/internal/models"
)

// Tolerance is the absolute threshold under which an amount is treated as
// zero. All comparisons to zero in this package use it; amounts are rounded to
// two decimal places only at presentation boundaries, never here.
const Tolerance = 0.01

// ParticipantInput is one participant's contribution to a new expense, as
// handed over by the parsing front end.
type ParticipantInput struct {
	UserID string

	// Paid is the amount this participant physically paid, or nil when the
	// message did not specify one. Required for unequal splits.
	Paid *float64
}

// ExpenseInput is a candidate expense to be validated and recorded.
type ExpenseInput struct {
	// Total is the full expense amount. Must be positive.
	Total float64

	// Participants are the users sharing the expense. At least two, distinct.
	Participants []ParticipantInput

	// EqualSplit is true when nobody specified individual paid amounts.
	// Note the asymmetry: owed shares are ALWAYS equal (total / count);
	// "unequal" refers only to who physically paid.
	EqualSplit bool

	// Description is optional free text.
	Description string
}

// BuildSplits validates in and derives the per-participant splits.
//
// For an equal split every participant effectively contributes their share:
// paid = owed = total / count. For an unequal split owed stays total / count
// while paid is taken from the input, and the paid amounts must sum to the
// total within Tolerance.
//
// Returns a *ValidationError when the input violates an invariant. Membership
// of participants in the group is the caller's check (see ParticipantNotMember).
func BuildSplits(in ExpenseInput) ([]models.Split, error) {
	if in.Total <= 0 {
		return nil, validationErrorf(CodeNonPositiveAmount, "amount must be positive, got %.2f", in.Total)
	}
	if len(in.Participants) < 2 {
		return nil, validationErrorf(CodeInsufficientParticipants, "at least 2 participants required, got %d", len(in.Participants))
	}

	seen := make(map[string]bool, len(in.Participants))
	for _, p := range in.Participants {
		if seen[p.UserID] {
			return nil, validationErrorf(CodeDuplicateParticipant, "participant %s listed more than once", p.UserID)
		}
		seen[p.UserID] = true
	}

	if !in.EqualSplit {
		var missing []string
		totalPaid := 0.0
		for _, p := range in.Participants {
			if p.Paid == nil {
				missing = append(missing, p.UserID)
				continue
			}
			totalPaid += *p.Paid
		}
		if len(missing) > 0 {
			return nil, validationErrorf(CodeMissingPaidAmount,
				"for an unequal split every participant must specify how much they paid; missing for %d participant(s)", len(missing))
		}
		if math.Abs(totalPaid-in.Total) > Tolerance {
			return nil, validationErrorf(CodeAmountMismatch,
				"individual amounts (%.2f) don't add up to total (%.2f)", totalPaid, in.Total)
		}
	}

	equalShare := in.Total / float64(len(in.Participants))

	splits := make([]models.Split, len(in.Participants))
	for i, p := range in.Participants {
		paid := equalShare
		if !in.EqualSplit {
			paid = *p.Paid
		}
		splits[i] = models.Split{
			UserID:     p.UserID,
			PaidAmount: paid,
			OwedAmount: equalShare,
		}
	}
	return splits, nil
}

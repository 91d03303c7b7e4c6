package ledger

import (
	"math"

	"github.com/splitkaro/splitkaro/internal/models"
)

// NetBalance returns userID's aggregate (paid - owed) across the given
// expenses. Positive means the user is owed money overall; negative means the
// user owes money. This is the authoritative quantity the simplifier consumes.
func NetBalance(userID string, expenses []models.Expense) float64 {
	balance := 0.0
	for _, expense := range expenses {
		for _, split := range expense.Splits {
			if split.UserID == userID {
				balance += split.PaidAmount - split.OwedAmount
			}
		}
	}
	return balance
}

// NetBalances returns the net balance of every participant across the given
// expenses. Users appear in the result only if they hold at least one split.
func NetBalances(expenses []models.Expense) map[string]float64 {
	balances := make(map[string]float64)
	for _, expense := range expenses {
		for _, split := range expense.Splits {
			balances[split.UserID] += split.PaidAmount - split.OwedAmount
		}
	}
	return balances
}

// PairwiseBalances approximates how userID's net position distributes over the
// other people they've shared expenses with. For each expense the user
// participated in, the user's net contribution (paid - owed) is split evenly
// across the other participantCount-1 co-participants and accumulated per
// co-participant. Entries whose accumulated magnitude is within Tolerance are
// dropped as settled.
//
// This is an even-split approximation, not an exact debt graph: it ignores how
// much each co-participant individually paid or owed, so it can misattribute
// direction in expenses with more than two participants and skewed payments.
// Callers needing exact pairwise ledgers should use NetBalance and Simplify
// instead; the formula is kept as-is for behavioral compatibility.
func PairwiseBalances(userID string, expenses []models.Expense) map[string]float64 {
	balances := make(map[string]float64)
	for _, expense := range expenses {
		var mine *models.Split
		for i := range expense.Splits {
			if expense.Splits[i].UserID == userID {
				mine = &expense.Splits[i]
				break
			}
		}
		if mine == nil || len(expense.Splits) < 2 {
			continue
		}

		net := mine.PaidAmount - mine.OwedAmount
		share := net / float64(len(expense.Splits)-1)
		for _, other := range expense.Splits {
			if other.UserID != userID {
				balances[other.UserID] += share
			}
		}
	}

	for other, balance := range balances {
		if math.Abs(balance) <= Tolerance {
			delete(balances, other)
		}
	}
	return balances
}

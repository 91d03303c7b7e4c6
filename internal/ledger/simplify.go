package ledger

import "sort"

// Transaction is one debtor-to-creditor payment in a settlement plan.
type Transaction struct {
	From   string // user ID of who pays
	To     string // user ID of who receives
	Amount float64
}

// Simplify converts a set of net balances into an ordered settlement plan
// using greedy largest-first matching.
//
// Users with balance > Tolerance become creditors, balance < -Tolerance become
// debtors (magnitude stored positive). Both lists are sorted descending by
// amount, ties broken by user ID ascending so that identical input always
// yields the identical ordered plan. Two cursors then walk the lists, settling
// min(debtor remaining, creditor remaining) at each step; a cursor advances
// once its remaining amount drops below Tolerance.
//
// Largest-first matching is a strong practical heuristic but is not proven to
// produce the theoretical minimum number of transactions for every balance
// distribution. Do not "fix" it without sign-off: its exact output is part of
// the contract.
//
// An empty or fully-settled balance map yields an empty plan.
func Simplify(balances map[string]float64) []Transaction {
	type party struct {
		userID string
		amount float64
	}

	// Map iteration order is randomized, so build a deterministic base order
	// before the stable sort.
	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var creditors, debtors []party
	for _, id := range ids {
		balance := balances[id]
		switch {
		case balance > Tolerance:
			creditors = append(creditors, party{userID: id, amount: balance})
		case balance < -Tolerance:
			debtors = append(debtors, party{userID: id, amount: -balance})
		}
	}

	sort.SliceStable(creditors, func(a, b int) bool { return creditors[a].amount > creditors[b].amount })
	sort.SliceStable(debtors, func(a, b int) bool { return debtors[a].amount > debtors[b].amount })

	var transactions []Transaction
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := debtor.amount
		if creditor.amount < amount {
			amount = creditor.amount
		}

		if amount > Tolerance {
			transactions = append(transactions, Transaction{
				From:   debtor.userID,
				To:     creditor.userID,
				Amount: amount,
			})
		}

		debtor.amount -= amount
		creditor.amount -= amount

		if debtor.amount < Tolerance {
			i++
		}
		if creditor.amount < Tolerance {
			j++
		}
	}

	return transactions
}

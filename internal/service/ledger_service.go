// Package service wires the ledger engine to storage and enforces the
// cross-entity rules the engine itself stays agnostic of: group existence,
// membership checks, and per-group write serialization.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/splitkaro/splitkaro/internal/ledger"
	"github.com/splitkaro/splitkaro/internal/models"
	"github.com/splitkaro/splitkaro/internal/storage"
)

// LedgerService implements expense recording, balance queries, and debt
// simplification for groups.
type LedgerService struct {
	store storage.Store
	locks *groupLocks
}

// NewLedgerService creates a new LedgerService with the given storage backend.
func NewLedgerService(store storage.Store) *LedgerService {
	return &LedgerService{
		store: store,
		locks: newGroupLocks(),
	}
}

// RecordExpenseInput is a request to record one expense against a group.
type RecordExpenseInput struct {
	GroupID      string
	CreatedBy    string
	Description  string
	Total        float64
	EqualSplit   bool
	Participants []ledger.ParticipantInput
}

// RecordExpense validates the input against the group's membership, derives
// splits, and persists the expense. Writes to the same group are serialized;
// validation errors surface as *ledger.ValidationError.
func (s *LedgerService) RecordExpense(ctx context.Context, in RecordExpenseInput) (*models.Expense, error) {
	// The lock covers the whole read-validate-write sequence so that
	// concurrent calls against one group see each other's writes.
	unlock := s.locks.Lock(in.GroupID)
	defer unlock()

	if _, err := s.store.GetGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	// Membership is checked before split math so the error names the first
	// offending participant rather than a derived amount problem.
	for _, p := range in.Participants {
		ok, err := s.store.IsMember(ctx, in.GroupID, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if !ok {
			return nil, ledger.ParticipantNotMember(p.UserID)
		}
	}

	splits, err := ledger.BuildSplits(ledger.ExpenseInput{
		Total:        in.Total,
		Participants: in.Participants,
		EqualSplit:   in.EqualSplit,
		Description:  in.Description,
	})
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     in.GroupID,
		Amount:      in.Total,
		Description: in.Description,
		CreatedBy:   in.CreatedBy,
		Splits:      splits,
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("RecordExpense failed", "group_id", in.GroupID, "error", err)
		return nil, err
	}

	slog.Info("Expense recorded",
		"expense_id", expense.ID,
		"group_id", in.GroupID,
		"amount", in.Total,
		"participants", len(splits),
	)
	return expense, nil
}

// GetExpense retrieves one expense with its splits.
func (s *LedgerService) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	return s.store.GetExpense(ctx, expenseID)
}

// ListGroupExpenses returns a group's expenses, newest first.
func (s *LedgerService) ListGroupExpenses(ctx context.Context, groupID string, limit, offset int) ([]*models.Expense, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListExpensesByGroup(ctx, groupID, limit, offset)
}

// ListUserExpenses returns the expenses in a group the user participates in.
func (s *LedgerService) ListUserExpenses(ctx context.Context, userID, groupID string, limit int) ([]*models.Expense, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListExpensesByUser(ctx, userID, groupID, limit)
}

// DeleteExpense removes an expense and its splits.
func (s *LedgerService) DeleteExpense(ctx context.Context, expenseID string) error {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(expense.GroupID)
	defer unlock()

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return err
	}
	slog.Info("Expense deleted", "expense_id", expenseID, "group_id", expense.GroupID)
	return nil
}

// SettleSplit marks one split as manually settled.
func (s *LedgerService) SettleSplit(ctx context.Context, splitID string) error {
	return s.store.SettleSplit(ctx, splitID)
}

// NetBalance returns the user's net position across a group's expense splits:
// positive means the group owes the user.
func (s *LedgerService) NetBalance(ctx context.Context, userID, groupID string) (float64, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return 0, err
	}
	expenses, err := s.groupExpenses(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return ledger.NetBalance(userID, expenses), nil
}

// PairwiseBalances returns the user's per-counterparty breakdown within a
// group. Positive values are owed TO the user.
func (s *LedgerService) PairwiseBalances(ctx context.Context, userID, groupID string) (map[string]float64, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	expenses, err := s.groupExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return ledger.PairwiseBalances(userID, expenses), nil
}

// MemberBalance is one group member's aggregate position.
type MemberBalance struct {
	UserID     string
	Handle     string
	NetBalance float64
	TotalPaid  float64
	TotalOwed  float64
}

// GroupBalances computes every member's net position in a group, with
// recorded settlements netted out. Results are ordered by handle.
func (s *LedgerService) GroupBalances(ctx context.Context, groupID string) ([]MemberBalance, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	expenses, err := s.groupExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}

	net := ledger.NetBalances(expenses)
	paid := make(map[string]float64)
	owed := make(map[string]float64)
	for _, expense := range expenses {
		for _, split := range expense.Splits {
			paid[split.UserID] += split.PaidAmount
			owed[split.UserID] += split.OwedAmount
		}
	}

	if err := s.applySettlements(ctx, groupID, net); err != nil {
		return nil, err
	}

	// Members with no activity still appear, at zero.
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
		if _, ok := net[m.UserID]; !ok {
			net[m.UserID] = 0
		}
	}
	for id := range net {
		found := false
		for _, known := range ids {
			if known == id {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, id)
		}
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	balances := make([]MemberBalance, 0, len(ids))
	for _, id := range ids {
		balance := MemberBalance{
			UserID:     id,
			Handle:     id,
			NetBalance: net[id],
			TotalPaid:  paid[id],
			TotalOwed:  owed[id],
		}
		if user, ok := users[id]; ok {
			balance.Handle = user.Handle
		}
		balances = append(balances, balance)
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Handle < balances[j].Handle
	})

	return balances, nil
}

// PlannedPayment is one step of a settlement plan with handles resolved for
// display.
type PlannedPayment struct {
	FromUserID string
	FromHandle string
	ToUserID   string
	ToHandle   string
	Amount     float64
}

// SimplifyGroup produces the greedy settlement plan for a group's current
// balances, with recorded settlements netted out.
func (s *LedgerService) SimplifyGroup(ctx context.Context, groupID string) ([]PlannedPayment, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	expenses, err := s.groupExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}

	net := ledger.NetBalances(expenses)
	if err := s.applySettlements(ctx, groupID, net); err != nil {
		return nil, err
	}

	plan := ledger.Simplify(net)
	if len(plan) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(plan)*2)
	for _, txn := range plan {
		ids = append(ids, txn.From, txn.To)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	handle := func(id string) string {
		if user, ok := users[id]; ok {
			return user.Handle
		}
		return id
	}

	payments := make([]PlannedPayment, len(plan))
	for i, txn := range plan {
		payments[i] = PlannedPayment{
			FromUserID: txn.From,
			FromHandle: handle(txn.From),
			ToUserID:   txn.To,
			ToHandle:   handle(txn.To),
			Amount:     txn.Amount,
		}
	}
	return payments, nil
}

// RecordSettlementInput is a request to record a direct repayment between two
// group members.
type RecordSettlementInput struct {
	GroupID    string
	FromUserID string
	ToUserID   string
	Amount     float64
	CreatedBy  string
	Note       string
}

// RecordSettlement records a repayment from one member to another. Subsequent
// balance and simplification queries net it out.
func (s *LedgerService) RecordSettlement(ctx context.Context, in RecordSettlementInput) (*models.Settlement, error) {
	unlock := s.locks.Lock(in.GroupID)
	defer unlock()

	if _, err := s.store.GetGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, &ledger.ValidationError{
			Code:    ledger.CodeNonPositiveAmount,
			Message: fmt.Sprintf("settlement amount must be positive, got %.2f", in.Amount),
		}
	}
	if in.FromUserID == in.ToUserID {
		return nil, &ledger.ValidationError{
			Code:    ledger.CodeInsufficientParticipants,
			Message: "settlement requires two distinct users",
		}
	}
	for _, userID := range []string{in.FromUserID, in.ToUserID} {
		ok, err := s.store.IsMember(ctx, in.GroupID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if !ok {
			return nil, ledger.ParticipantNotMember(userID)
		}
	}

	settlement := &models.Settlement{
		GroupID:    in.GroupID,
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Amount:     in.Amount,
		CreatedBy:  in.CreatedBy,
		Note:       in.Note,
	}

	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Error("RecordSettlement failed", "group_id", in.GroupID, "error", err)
		return nil, err
	}

	slog.Info("Settlement recorded",
		"settlement_id", settlement.ID,
		"group_id", in.GroupID,
		"amount", in.Amount,
	)
	return settlement, nil
}

// ListSettlements returns a group's recorded settlements, newest first.
func (s *LedgerService) ListSettlements(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListSettlementsByGroup(ctx, groupID)
}

// DeleteSettlement removes a recorded settlement.
func (s *LedgerService) DeleteSettlement(ctx context.Context, settlementID string) error {
	return s.store.DeleteSettlement(ctx, settlementID)
}

// GroupSummary aggregates a group's state for a single overview response.
type GroupSummary struct {
	Group        *models.Group
	Members      []*models.User
	ExpenseCount int
	TotalSpent   float64
	Balances     []MemberBalance
	Payments     []PlannedPayment
}

// Summary builds a full overview of one group: membership, totals, balances,
// and the current settlement plan.
func (s *LedgerService) Summary(ctx context.Context, groupID string) (*GroupSummary, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	memberRows, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(memberRows))
	for i, m := range memberRows {
		ids[i] = m.UserID
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	members := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := users[id]; ok {
			members = append(members, user)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Handle < members[j].Handle
	})

	expenses, err := s.groupExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}
	totalSpent := 0.0
	for _, expense := range expenses {
		totalSpent += expense.Amount
	}

	balances, err := s.GroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	payments, err := s.SimplifyGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return &GroupSummary{
		Group:        group,
		Members:      members,
		ExpenseCount: len(expenses),
		TotalSpent:   totalSpent,
		Balances:     balances,
		Payments:     payments,
	}, nil
}

// groupExpenses loads all of a group's expenses as values for the engine.
func (s *LedgerService) groupExpenses(ctx context.Context, groupID string) ([]models.Expense, error) {
	stored, err := s.store.ListExpensesByGroup(ctx, groupID, 0, 0)
	if err != nil {
		return nil, err
	}
	expenses := make([]models.Expense, len(stored))
	for i, expense := range stored {
		expenses[i] = *expense
	}
	return expenses, nil
}

// applySettlements nets recorded settlements into the balance map: a payment
// from a debtor raises their balance and lowers the receiver's claim.
func (s *LedgerService) applySettlements(ctx context.Context, groupID string, net map[string]float64) error {
	settlements, err := s.store.ListSettlementsByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	for _, settlement := range settlements {
		net[settlement.FromUserID] += settlement.Amount
		net[settlement.ToUserID] -= settlement.Amount
	}
	return nil
}

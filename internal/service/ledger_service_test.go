package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/splitkaro/splitkaro/internal/ledger"
)

func paid(v float64) *float64 { return &v }

func TestRecordExpense_EqualSplit(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Roommates", users["alice"], users["bob"], users["charlie"])
	svc := NewLedgerService(store)

	expense, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:     group.ID,
		CreatedBy:   users["alice"].ID,
		Description: "groceries",
		Total:       300,
		EqualSplit:  true,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID},
			{UserID: users["bob"].ID},
			{UserID: users["charlie"].ID},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	if expense.ID == "" {
		t.Error("expected expense ID to be assigned")
	}
	if len(expense.Splits) != 3 {
		t.Fatalf("expected 3 splits, got %d", len(expense.Splits))
	}
	for _, split := range expense.Splits {
		if math.Abs(split.OwedAmount-100) > 0.01 {
			t.Errorf("owed = %v, want 100", split.OwedAmount)
		}
		if math.Abs(split.PaidAmount-100) > 0.01 {
			t.Errorf("paid = %v, want 100", split.PaidAmount)
		}
	}
}

func TestRecordExpense_UnequalSplit(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Trip", users["alice"], users["bob"])
	svc := NewLedgerService(store)

	expense, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:   group.ID,
		CreatedBy: users["alice"].ID,
		Total:     500,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID, Paid: paid(500)},
			{UserID: users["bob"].ID, Paid: paid(0)},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	// Owed shares stay equal regardless of who paid
	for _, split := range expense.Splits {
		if math.Abs(split.OwedAmount-250) > 0.01 {
			t.Errorf("owed = %v, want 250", split.OwedAmount)
		}
	}
}

func TestRecordExpense_NonMemberParticipant(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	// charlie is not in this group
	group := createTestGroup(t, store, "Pair", users["alice"], users["bob"])
	svc := NewLedgerService(store)

	_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:    group.ID,
		CreatedBy:  users["alice"].ID,
		Total:      100,
		EqualSplit: true,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID},
			{UserID: users["charlie"].ID},
		},
	})

	var validationErr *ledger.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Code != ledger.CodeParticipantNotMember {
		t.Errorf("code = %s, want %s", validationErr.Code, ledger.CodeParticipantNotMember)
	}
}

func TestRecordExpense_ValidationBeforePersistence(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Pair", users["alice"], users["bob"])
	svc := NewLedgerService(store)

	_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:   group.ID,
		CreatedBy: users["alice"].ID,
		Total:     500,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID, Paid: paid(200)},
			{UserID: users["bob"].ID, Paid: paid(250)},
		},
	})

	var validationErr *ledger.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Code != ledger.CodeAmountMismatch {
		t.Errorf("code = %s, want %s", validationErr.Code, ledger.CodeAmountMismatch)
	}

	// Nothing may have been written
	expenses, err := store.ListExpensesByGroup(context.Background(), group.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListExpensesByGroup failed: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("expected no persisted expenses, got %d", len(expenses))
	}
}

func TestNetBalance(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Trip", users["alice"], users["bob"])
	svc := NewLedgerService(store)

	_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:   group.ID,
		CreatedBy: users["alice"].ID,
		Total:     400,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID, Paid: paid(400)},
			{UserID: users["bob"].ID, Paid: paid(0)},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	aliceNet, err := svc.NetBalance(context.Background(), users["alice"].ID, group.ID)
	if err != nil {
		t.Fatalf("NetBalance failed: %v", err)
	}
	if math.Abs(aliceNet-200) > 0.01 {
		t.Errorf("alice net = %v, want 200", aliceNet)
	}

	bobNet, err := svc.NetBalance(context.Background(), users["bob"].ID, group.ID)
	if err != nil {
		t.Fatalf("NetBalance failed: %v", err)
	}
	if math.Abs(bobNet-(-200)) > 0.01 {
		t.Errorf("bob net = %v, want -200", bobNet)
	}
}

func TestPairwiseBalances(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Flat", users["alice"], users["bob"], users["charlie"])
	svc := NewLedgerService(store)

	_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:   group.ID,
		CreatedBy: users["alice"].ID,
		Total:     300,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID, Paid: paid(300)},
			{UserID: users["bob"].ID, Paid: paid(0)},
			{UserID: users["charlie"].ID, Paid: paid(0)},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	pairwise, err := svc.PairwiseBalances(context.Background(), users["alice"].ID, group.ID)
	if err != nil {
		t.Fatalf("PairwiseBalances failed: %v", err)
	}
	if len(pairwise) != 2 {
		t.Fatalf("expected 2 counterparties, got %d", len(pairwise))
	}
	for _, counterparty := range []string{users["bob"].ID, users["charlie"].ID} {
		if math.Abs(pairwise[counterparty]-100) > 0.01 {
			t.Errorf("pairwise[%s] = %v, want 100", counterparty, pairwise[counterparty])
		}
	}
}

func TestGroupBalances_SettlementsNetOut(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Trip", users["alice"], users["bob"])
	svc := NewLedgerService(store)

	_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:   group.ID,
		CreatedBy: users["alice"].ID,
		Total:     400,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID, Paid: paid(400)},
			{UserID: users["bob"].ID, Paid: paid(0)},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	_, err = svc.RecordSettlement(context.Background(), RecordSettlementInput{
		GroupID:    group.ID,
		FromUserID: users["bob"].ID,
		ToUserID:   users["alice"].ID,
		Amount:     200,
		CreatedBy:  users["bob"].ID,
	})
	if err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}

	balances, err := svc.GroupBalances(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	// Ordered by handle: alice, bob
	if balances[0].Handle != "alice" || math.Abs(balances[0].NetBalance) > 0.01 {
		t.Errorf("alice balance = %+v, want net 0", balances[0])
	}
	if balances[1].Handle != "bob" || math.Abs(balances[1].NetBalance) > 0.01 {
		t.Errorf("bob balance = %+v, want net 0", balances[1])
	}
	// Paid/owed keep reporting the underlying expense activity
	if math.Abs(balances[0].TotalPaid-400) > 0.01 {
		t.Errorf("alice total paid = %v, want 400", balances[0].TotalPaid)
	}
}

func TestGroupBalances_InactiveMemberAtZero(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Flat", users["alice"], users["bob"], users["charlie"])
	svc := NewLedgerService(store)

	_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:    group.ID,
		CreatedBy:  users["alice"].ID,
		Total:      100,
		EqualSplit: true,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID},
			{UserID: users["bob"].ID},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	balances, err := svc.GroupBalances(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(balances))
	}
	if balances[2].Handle != "charlie" || math.Abs(balances[2].NetBalance) > 0.01 {
		t.Errorf("charlie balance = %+v, want net 0", balances[2])
	}
}

func TestSimplifyGroup(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Flat", users["alice"], users["bob"], users["charlie"])
	svc := NewLedgerService(store)

	// alice fronts 150 for herself and bob, bob fronts 90 for himself and charlie
	_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:   group.ID,
		CreatedBy: users["alice"].ID,
		Total:     150,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID, Paid: paid(150)},
			{UserID: users["bob"].ID, Paid: paid(0)},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}
	_, err = svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:   group.ID,
		CreatedBy: users["bob"].ID,
		Total:     90,
		Participants: []ledger.ParticipantInput{
			{UserID: users["bob"].ID, Paid: paid(90)},
			{UserID: users["charlie"].ID, Paid: paid(0)},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	payments, err := svc.SimplifyGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("SimplifyGroup failed: %v", err)
	}

	// Net: alice +75, bob -30, charlie -45
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
	if payments[0].FromHandle != "charlie" || payments[0].ToHandle != "alice" || math.Abs(payments[0].Amount-45) > 0.01 {
		t.Errorf("payment[0] = %+v, want charlie -> alice 45", payments[0])
	}
	if payments[1].FromHandle != "bob" || payments[1].ToHandle != "alice" || math.Abs(payments[1].Amount-30) > 0.01 {
		t.Errorf("payment[1] = %+v, want bob -> alice 30", payments[1])
	}
}

func TestSimplifyGroup_AllSettled(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Even", users["alice"], users["bob"])
	svc := NewLedgerService(store)

	_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:    group.ID,
		CreatedBy:  users["alice"].ID,
		Total:      80,
		EqualSplit: true,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID},
			{UserID: users["bob"].ID},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	payments, err := svc.SimplifyGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("SimplifyGroup failed: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("expected empty plan, got %+v", payments)
	}
}

func TestRecordSettlement_Validation(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Pair", users["alice"], users["bob"])
	svc := NewLedgerService(store)

	tests := []struct {
		name     string
		input    RecordSettlementInput
		wantCode string
	}{
		{
			name: "non-positive amount",
			input: RecordSettlementInput{
				GroupID: group.ID, FromUserID: users["bob"].ID, ToUserID: users["alice"].ID, Amount: 0,
			},
			wantCode: ledger.CodeNonPositiveAmount,
		},
		{
			name: "same user",
			input: RecordSettlementInput{
				GroupID: group.ID, FromUserID: users["alice"].ID, ToUserID: users["alice"].ID, Amount: 50,
			},
			wantCode: ledger.CodeInsufficientParticipants,
		},
		{
			name: "non-member",
			input: RecordSettlementInput{
				GroupID: group.ID, FromUserID: users["charlie"].ID, ToUserID: users["alice"].ID, Amount: 50,
			},
			wantCode: ledger.CodeParticipantNotMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordSettlement(context.Background(), tt.input)
			var validationErr *ledger.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", validationErr.Code, tt.wantCode)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Holiday", users["alice"], users["bob"])
	svc := NewLedgerService(store)

	_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
		GroupID:   group.ID,
		CreatedBy: users["alice"].ID,
		Total:     120,
		Participants: []ledger.ParticipantInput{
			{UserID: users["alice"].ID, Paid: paid(120)},
			{UserID: users["bob"].ID, Paid: paid(0)},
		},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	summary, err := svc.Summary(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if summary.Group.ID != group.ID {
		t.Errorf("group ID = %s, want %s", summary.Group.ID, group.ID)
	}
	if len(summary.Members) != 2 {
		t.Errorf("expected 2 members, got %d", len(summary.Members))
	}
	if summary.ExpenseCount != 1 {
		t.Errorf("expense count = %d, want 1", summary.ExpenseCount)
	}
	if math.Abs(summary.TotalSpent-120) > 0.01 {
		t.Errorf("total spent = %v, want 120", summary.TotalSpent)
	}
	if len(summary.Payments) != 1 {
		t.Fatalf("expected 1 planned payment, got %d", len(summary.Payments))
	}
	if summary.Payments[0].FromHandle != "bob" || math.Abs(summary.Payments[0].Amount-60) > 0.01 {
		t.Errorf("payment = %+v, want bob -> alice 60", summary.Payments[0])
	}
}

func TestRecordExpense_ConcurrentWritesSerialize(t *testing.T) {
	store, users, cleanup := setupTestStore(t)
	defer cleanup()

	group := createTestGroup(t, store, "Busy", users["alice"], users["bob"])
	svc := NewLedgerService(store)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordExpense(context.Background(), RecordExpenseInput{
				GroupID:    group.ID,
				CreatedBy:  users["alice"].ID,
				Total:      10,
				EqualSplit: true,
				Participants: []ledger.ParticipantInput{
					{UserID: users["alice"].ID},
					{UserID: users["bob"].ID},
				},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent RecordExpense failed: %v", err)
		}
	}

	expenses, err := store.ListExpensesByGroup(context.Background(), group.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListExpensesByGroup failed: %v", err)
	}
	if len(expenses) != writers {
		t.Errorf("expected %d expenses, got %d", writers, len(expenses))
	}

	net, err := svc.NetBalance(context.Background(), users["alice"].ID, group.ID)
	if err != nil {
		t.Fatalf("NetBalance failed: %v", err)
	}
	if math.Abs(net) > 0.01 {
		t.Errorf("alice net = %v, want 0 after equal splits", net)
	}
}

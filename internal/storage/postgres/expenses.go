package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/splitkaro/splitkaro/internal/models"
	"github.com/splitkaro/splitkaro/internal/storage"
)

// CreateExpense persists an expense and its splits in one transaction.
func (s *PostgresStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var description any
	if expense.Description != "" {
		description = expense.Description
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO expenses (id, group_id, amount, description, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		expense.ID, expense.GroupID, expense.Amount, description, expense.CreatedBy, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range expense.Splits {
		split := &expense.Splits[i]
		if split.ID == "" {
			split.ID = uuid.New().String()
		}
		split.ExpenseID = expense.ID

		_, err = tx.Exec(ctx,
			"INSERT INTO splits (id, expense_id, user_id, paid_amount, owed_amount, is_settled) VALUES ($1, $2, $3, $4, $5, $6)",
			split.ID, split.ExpenseID, split.UserID, split.PaidAmount, split.OwedAmount, split.Settled,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense by ID, including its splits.
func (s *PostgresStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	var description *string
	err := s.pool.QueryRow(ctx,
		"SELECT id, group_id, amount, description, created_by, created_at FROM expenses WHERE id = $1",
		expenseID,
	).Scan(&expense.ID, &expense.GroupID, &expense.Amount, &description, &expense.CreatedBy, &expense.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if description != nil {
		expense.Description = *description
	}

	splits, err := s.loadSplits(ctx, expense.ID)
	if err != nil {
		return nil, err
	}
	expense.Splits = splits

	return expense, nil
}

// ListExpensesByGroup returns a group's expenses with splits, newest first.
func (s *PostgresStore) ListExpensesByGroup(ctx context.Context, groupID string, limit, offset int) ([]*models.Expense, error) {
	query := "SELECT id, group_id, amount, description, created_by, created_at FROM expenses WHERE group_id = $1 ORDER BY created_at DESC, id"
	args := []any{groupID}
	if limit > 0 {
		query += " LIMIT $2 OFFSET $3"
		args = append(args, limit, offset)
	}

	return s.queryExpenses(ctx, query, args...)
}

// ListExpensesByUser returns the expenses in a group the user holds a split in.
func (s *PostgresStore) ListExpensesByUser(ctx context.Context, userID, groupID string, limit int) ([]*models.Expense, error) {
	query := `
		SELECT e.id, e.group_id, e.amount, e.description, e.created_by, e.created_at
		FROM expenses e
		JOIN splits sp ON sp.expense_id = e.id
		WHERE sp.user_id = $1 AND e.group_id = $2
		ORDER BY e.created_at DESC, e.id`
	args := []any{userID, groupID}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	return s.queryExpenses(ctx, query, args...)
}

func (s *PostgresStore) queryExpenses(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense := &models.Expense{}
		var description *string
		if err := rows.Scan(&expense.ID, &expense.GroupID, &expense.Amount, &description, &expense.CreatedBy, &expense.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if description != nil {
			expense.Description = *description
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		splits, err := s.loadSplits(ctx, expense.ID)
		if err != nil {
			return nil, err
		}
		expense.Splits = splits
	}

	return expenses, nil
}

func (s *PostgresStore) loadSplits(ctx context.Context, expenseID string) ([]models.Split, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, expense_id, user_id, paid_amount, owed_amount, is_settled FROM splits WHERE expense_id = $1 ORDER BY user_id",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []models.Split
	for rows.Next() {
		var split models.Split
		if err := rows.Scan(&split.ID, &split.ExpenseID, &split.UserID, &split.PaidAmount, &split.OwedAmount, &split.Settled); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return splits, nil
}

// DeleteExpense removes an expense; foreign keys cascade the deletion to its splits.
func (s *PostgresStore) DeleteExpense(ctx context.Context, expenseID string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM expenses WHERE id = $1", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

// SettleSplit marks a single split as settled.
func (s *PostgresStore) SettleSplit(ctx context.Context, splitID string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE splits SET is_settled = TRUE WHERE id = $1", splitID)
	if err != nil {
		return fmt.Errorf("failed to settle split: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("split %s: %w", splitID, storage.ErrNotFound)
	}
	return nil
}

package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rthakur/expenso/internal/models"
)

// AddExpense persists a new expense. Amounts are stored as decimal text,
// never floats, so sums stay exact.
func (s *SQLiteStore) AddExpense(ctx context.Context, e *models.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = now()
	}

	var groupID any
	if e.GroupID != "" {
		groupID = e.GroupID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, group_id, date, amount, category, subcategory, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, groupID, e.Date, e.Amount.String(), e.Category, e.Subcategory, e.Note, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

// ListExpenses returns the user's expenses in the inclusive date range,
// newest first with ID as the tie-break for same-day entries.
func (s *SQLiteStore) ListExpenses(ctx context.Context, userID, startDate, endDate string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(group_id, ''), date, amount, category, subcategory, note, created_at
		FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC, id DESC`,
		userID, startDate, endDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e := &models.Expense{}
		var amount string
		if err := rows.Scan(&e.ID, &e.UserID, &e.GroupID, &e.Date, &amount, &e.Category, &e.Subcategory, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored amount %q: %w", amount, err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

// DeleteExpense hard-deletes the expense if userID owns it. The owner
// condition is part of the statement so a non-owner delete is
// indistinguishable from a missing row.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?",
		expenseID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rthakur/expenso/internal/errs"
	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/storage"
)

// ExpenseService is the per-user expense ledger: append, range query,
// category summary, and owner-scoped delete.
type ExpenseService struct {
	expenses storage.ExpenseStore
}

// NewExpenseService creates an ExpenseService over the given store.
func NewExpenseService(expenses storage.ExpenseStore) *ExpenseService {
	return &ExpenseService{expenses: expenses}
}

// AddExpenseInput carries the fields of a new expense.
type AddExpenseInput struct {
	Date        string
	Amount      decimal.Decimal
	Category    string
	Subcategory string
	Note        string
}

// Add appends a new expense to the user's ledger and returns it.
func (s *ExpenseService) Add(ctx context.Context, userID string, in AddExpenseInput) (*models.Expense, error) {
	if err := validateDate(in.Date, "date"); err != nil {
		return nil, err
	}
	if in.Amount.IsNegative() {
		return nil, errs.Validation("amount must not be negative")
	}
	if in.Category == "" {
		return nil, errs.Validation("category is required")
	}

	e := &models.Expense{
		UserID:      userID,
		Date:        in.Date,
		Amount:      in.Amount,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		Note:        in.Note,
	}
	if err := s.expenses.AddExpense(ctx, e); err != nil {
		slog.Error("add expense failed", "user_id", userID, "error", err)
		return nil, errs.Store(err)
	}
	return e, nil
}

// List returns the user's expenses with date in the inclusive range
// [startDate, endDate], newest first.
func (s *ExpenseService) List(ctx context.Context, userID, startDate, endDate string) ([]*models.Expense, error) {
	if err := validateDate(startDate, "start_date"); err != nil {
		return nil, err
	}
	if err := validateDate(endDate, "end_date"); err != nil {
		return nil, err
	}

	expenses, err := s.expenses.ListExpenses(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, errs.Store(err)
	}
	return expenses, nil
}

// Summarize groups the user's expenses in the date range by category,
// reporting total amount and count per category sorted by total
// descending. A non-empty category restricts the summary to it.
func (s *ExpenseService) Summarize(ctx context.Context, userID, startDate, endDate, category string) ([]models.CategorySummary, error) {
	expenses, err := s.List(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*models.CategorySummary)
	for _, e := range expenses {
		if category != "" && e.Category != category {
			continue
		}
		sum, ok := totals[e.Category]
		if !ok {
			sum = &models.CategorySummary{Category: e.Category, TotalAmount: decimal.Zero}
			totals[e.Category] = sum
		}
		sum.TotalAmount = sum.TotalAmount.Add(e.Amount)
		sum.Count++
	}

	out := make([]models.CategorySummary, 0, len(totals))
	for _, sum := range totals {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalAmount.Equal(out[j].TotalAmount) {
			return out[i].TotalAmount.GreaterThan(out[j].TotalAmount)
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Delete removes one of the user's own expenses. Deleting a record that
// does not exist or belongs to someone else reports not-found.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) error {
	if err := validateID(expenseID, "expense"); err != nil {
		return err
	}

	ok, err := s.expenses.DeleteExpense(ctx, expenseID, userID)
	if err != nil {
		return errs.Store(err)
	}
	if !ok {
		return errs.NotFound("expense not found or access denied")
	}
	return nil
}

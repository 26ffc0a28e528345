package models

import "github.com/shopspring/decimal"

// Expense is a single ledger entry. Expenses are append-only: they are
// never mutated, and only their owner may delete them.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// UserID is the owner of the expense.
	UserID string

	// GroupID optionally links the expense to a group. Empty for
	// personal expenses.
	GroupID string

	// Date is the calendar date in zero-padded "YYYY-MM-DD" form.
	// Range queries compare dates lexicographically, which only works
	// because the form is zero-padded.
	Date string

	// Amount is the non-negative expense amount.
	Amount decimal.Decimal

	// Category is the spending category (required).
	Category string

	// Subcategory is an optional finer-grained category.
	Subcategory string

	// Note is optional free text.
	Note string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// CategorySummary aggregates expenses of one category over a date range.
type CategorySummary struct {
	Category    string
	TotalAmount decimal.Decimal
	Count       int
}

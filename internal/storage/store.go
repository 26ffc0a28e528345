// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/rthakur/expenso/internal/models"
)

// ErrDuplicate is returned by writes that collide with a uniqueness
// constraint: a second active membership for the same (group, user) pair,
// or a second user with the same email. Implementations translate their
// backend's constraint error into this sentinel so callers never match on
// driver message text.
var ErrDuplicate = errors.New("duplicate record")

// UserStore is the identity lookup surface. Users are created by the auth
// gateway and read-only everywhere else.
type UserStore interface {
	// CreateUser persists a new user. The email must be unique.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns the user with the given email, or nil if
	// no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns the user with the given ID, or nil if no such
	// user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns the users for the given IDs, keyed by ID.
	// Missing users are omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore holds group identity, metadata, and the soft-delete flag.
type GroupStore interface {
	// CreateGroup persists a new group together with its first membership
	// in one transaction. Missing IDs and timestamps are populated.
	CreateGroup(ctx context.Context, group *models.Group, first *models.Membership) error

	// GetGroup returns the group with the given ID regardless of its
	// active flag, or nil if no such group exists.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// ListActiveGroupsByIDs returns the active groups among the given IDs.
	ListActiveGroupsByIDs(ctx context.Context, ids []string) ([]*models.Group, error)

	// UpdateGroup sets the given fields (nil means leave unchanged) and
	// bumps updated_at. Returns false if the group does not exist.
	UpdateGroup(ctx context.Context, id string, name, description *string, updatedAt int64) (bool, error)

	// DeactivateGroup soft-deletes the group. Returns false if the group
	// was already inactive or does not exist.
	DeactivateGroup(ctx context.Context, id string, updatedAt int64) (bool, error)
}

// MembershipStore holds the (group, user, role, active) facts.
type MembershipStore interface {
	// AddMember inserts a new active membership. At most one active
	// membership may exist per (group, user) pair; a second insert fails.
	AddMember(ctx context.Context, m *models.Membership) error

	// GetActiveMembership returns the active membership for the pair,
	// or nil if there is none.
	GetActiveMembership(ctx context.Context, groupID, userID string) (*models.Membership, error)

	// ListActiveMembers returns all active memberships of a group.
	ListActiveMembers(ctx context.Context, groupID string) ([]*models.Membership, error)

	// ListActiveMembershipsByUser returns all active memberships of a user.
	ListActiveMembershipsByUser(ctx context.Context, userID string) ([]*models.Membership, error)

	// CountActiveAdmins counts active admin memberships of a group.
	CountActiveAdmins(ctx context.Context, groupID string) (int, error)

	// CountActiveMembers counts all active memberships of a group.
	CountActiveMembers(ctx context.Context, groupID string) (int, error)

	// DeactivateMemberGuarded deactivates the pair's active membership,
	// but only if doing so leaves the group with at least one active
	// admin. The admin-count condition and the write are a single
	// conditional update, never a read-then-write pair. Returns false
	// when nothing was deactivated, either because no active membership
	// exists or because the member is the last admin; callers
	// re-classify by re-reading the membership.
	DeactivateMemberGuarded(ctx context.Context, groupID, userID string, leftAt int64) (bool, error)

	// DeactivateGroupMembers deactivates every active membership of a
	// group. Used as the cascade step after DeactivateGroup.
	DeactivateGroupMembers(ctx context.Context, groupID string, leftAt int64) error
}

// ExpenseStore holds the append-only expense ledger.
type ExpenseStore interface {
	// AddExpense persists a new expense. Missing ID and timestamp are
	// populated.
	AddExpense(ctx context.Context, e *models.Expense) error

	// ListExpenses returns the user's expenses with date in the inclusive
	// range [startDate, endDate], ordered by date descending then ID
	// descending.
	ListExpenses(ctx context.Context, userID, startDate, endDate string) ([]*models.Expense, error)

	// DeleteExpense removes the expense if it belongs to userID.
	// Returns false if no owned expense matched.
	DeleteExpense(ctx context.Context, expenseID, userID string) (bool, error)
}

// Store is the full persistence surface wired into the server.
// This abstraction allows swapping storage backends without changing the
// service layer, and substituting fakes in tests.
type Store interface {
	UserStore
	GroupStore
	MembershipStore
	ExpenseStore

	// Setup idempotently ensures the schema and indexes exist and
	// verifies the store accepts writes. Safe to call repeatedly.
	Setup(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

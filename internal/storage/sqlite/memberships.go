package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/storage"
)

const membershipColumns = "id, group_id, user_id, role, is_active, joined_at, COALESCE(left_at, 0)"

// AddMember inserts a new active membership. The partial unique index on
// (group_id, user_id) WHERE is_active = 1 rejects a second active row for
// the same pair, which closes the concurrent double-add race.
func (s *SQLiteStore) AddMember(ctx context.Context, m *models.Membership) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.JoinedAt == 0 {
		m.JoinedAt = now()
	}
	m.IsActive = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (id, group_id, user_id, role, is_active, joined_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
		m.ID, m.GroupID, m.UserID, string(m.Role), m.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: active membership exists for this pair", storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}

// GetActiveMembership returns the pair's active membership, or nil.
func (s *SQLiteStore) GetActiveMembership(ctx context.Context, groupID, userID string) (*models.Membership, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+membershipColumns+`
		FROM group_members
		WHERE group_id = ? AND user_id = ? AND is_active = 1`,
		groupID, userID,
	)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// ListActiveMembers returns all active memberships of a group, ordered by
// join time for a stable roster.
func (s *SQLiteStore) ListActiveMembers(ctx context.Context, groupID string) ([]*models.Membership, error) {
	return s.listMemberships(ctx, "group_id = ? AND is_active = 1", groupID)
}

// ListActiveMembershipsByUser returns all active memberships of a user.
func (s *SQLiteStore) ListActiveMembershipsByUser(ctx context.Context, userID string) ([]*models.Membership, error) {
	return s.listMemberships(ctx, "user_id = ? AND is_active = 1", userID)
}

func (s *SQLiteStore) listMemberships(ctx context.Context, where string, arg any) ([]*models.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+membershipColumns+`
		FROM group_members WHERE `+where+`
		ORDER BY joined_at, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var members []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}
	return members, nil
}

// CountActiveAdmins counts active admin memberships of a group.
func (s *SQLiteStore) CountActiveAdmins(ctx context.Context, groupID string) (int, error) {
	return s.countMembers(ctx, "group_id = ? AND role = 'admin' AND is_active = 1", groupID)
}

// CountActiveMembers counts all active memberships of a group.
func (s *SQLiteStore) CountActiveMembers(ctx context.Context, groupID string) (int, error) {
	return s.countMembers(ctx, "group_id = ? AND is_active = 1", groupID)
}

func (s *SQLiteStore) countMembers(ctx context.Context, where string, arg any) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM group_members WHERE "+where, arg,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return n, nil
}

// DeactivateMemberGuarded deactivates the pair's active membership unless
// the member is the group's last active admin.
//
// The admin-count condition lives inside the UPDATE's WHERE clause, so
// the check and the write commit atomically: two concurrent removals of a
// two-admin group cannot both pass the guard, because whichever statement
// runs second re-evaluates the subquery against the first one's result.
func (s *SQLiteStore) DeactivateMemberGuarded(ctx context.Context, groupID, userID string, leftAt int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE group_members
		SET is_active = 0, left_at = ?
		WHERE group_id = ? AND user_id = ? AND is_active = 1
		  AND (role <> 'admin'
		       OR (SELECT COUNT(*) FROM group_members
		           WHERE group_id = ? AND role = 'admin' AND is_active = 1) > 1)`,
		leftAt, groupID, userID, groupID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate membership: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// DeactivateGroupMembers deactivates every active membership of a group.
// This is the cascade step of group deletion and runs after the group
// flag flip; the guard above does not apply because the group itself is
// already inactive.
func (s *SQLiteStore) DeactivateGroupMembers(ctx context.Context, groupID string, leftAt int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE group_members SET is_active = 0, left_at = ?
		WHERE group_id = ? AND is_active = 1`, leftAt, groupID)
	if err != nil {
		return fmt.Errorf("failed to deactivate group memberships: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMembership(row scannable) (*models.Membership, error) {
	m := &models.Membership{}
	var role string
	var active int
	if err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &role, &active, &m.JoinedAt, &m.LeftAt); err != nil {
		return nil, err
	}
	m.Role = models.Role(role)
	m.IsActive = active == 1
	return m, nil
}

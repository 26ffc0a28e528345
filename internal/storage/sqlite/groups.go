package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rthakur/expenso/internal/models"
)

// CreateGroup persists a new group and its first membership in a single
// transaction. The group insert is issued before the membership insert;
// that ordering is part of the storage contract.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group, first *models.Membership) error {
	ts := now()
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = ts
		group.UpdatedAt = ts
	}
	group.IsActive = true

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO groups (id, name, description, group_type, created_by, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		group.ID, group.Name, group.Description, string(group.Type), group.CreatedBy, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if first != nil {
		if first.ID == "" {
			first.ID = uuid.New().String()
		}
		if first.JoinedAt == 0 {
			first.JoinedAt = ts
		}
		first.GroupID = group.ID
		first.IsActive = true

		_, err = tx.ExecContext(ctx, `
			INSERT INTO group_members (id, group_id, user_id, role, is_active, joined_at)
			VALUES (?, ?, ?, ?, 1, ?)`,
			first.ID, first.GroupID, first.UserID, string(first.Role), first.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert first membership: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID regardless of its active flag.
// Returns nil when not found.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	group := &models.Group{}
	var groupType string
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, group_type, created_by, is_active, created_at, updated_at
		FROM groups WHERE id = ?`, id,
	).Scan(&group.ID, &group.Name, &group.Description, &groupType, &group.CreatedBy, &active, &group.CreatedAt, &group.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.Type = models.GroupType(groupType)
	group.IsActive = active == 1
	return group, nil
}

// ListActiveGroupsByIDs returns the active groups among the given IDs.
// Inactive groups are filtered here, not by the caller: readers treat
// the group flag as authoritative even when a crashed cascade left
// memberships behind.
func (s *SQLiteStore) ListActiveGroupsByIDs(ctx context.Context, ids []string) ([]*models.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimPrefix(strings.Repeat(", ?", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, group_type, created_by, is_active, created_at, updated_at
		FROM groups WHERE is_active = 1 AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		var groupType string
		var active int
		if err := rows.Scan(&group.ID, &group.Name, &group.Description, &groupType, &group.CreatedBy, &active, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		group.Type = models.GroupType(groupType)
		group.IsActive = active == 1
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}

// UpdateGroup sets the supplied fields and bumps updated_at.
// Returns false if the group does not exist.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, id string, name, description *string, updatedAt int64) (bool, error) {
	set := "updated_at = ?"
	args := []any{updatedAt}
	if name != nil {
		set += ", name = ?"
		args = append(args, *name)
	}
	if description != nil {
		set += ", description = ?"
		args = append(args, *description)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE groups SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return false, fmt.Errorf("failed to update group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// DeactivateGroup soft-deletes the group. The is_active condition makes
// re-running on an already-deleted group a reported no-op.
func (s *SQLiteStore) DeactivateGroup(ctx context.Context, id string, updatedAt int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE groups SET is_active = 0, updated_at = ?
		WHERE id = ? AND is_active = 1`, updatedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

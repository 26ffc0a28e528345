// Package authz derives yes/no authorization decisions from current group
// and membership state. The engine only reads; it never mutates anything.
//
// Every predicate fails closed: a lookup error, a malformed identifier, or
// an inactive record all yield false (or zero for counts), never an error
// that could be misread as "authorized".
package authz

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/storage"
)

// Engine answers authorization questions for the lifecycle managers.
type Engine struct {
	groups  storage.GroupStore
	members storage.MembershipStore
}

// New creates an Engine reading from the given stores.
func New(groups storage.GroupStore, members storage.MembershipStore) *Engine {
	return &Engine{groups: groups, members: members}
}

// IsMember reports whether userID has an active membership in groupID.
func (e *Engine) IsMember(ctx context.Context, userID, groupID string) bool {
	m := e.activeMembership(ctx, userID, groupID)
	return m != nil
}

// IsAdmin reports whether userID has an active admin membership in groupID.
func (e *Engine) IsAdmin(ctx context.Context, userID, groupID string) bool {
	m := e.activeMembership(ctx, userID, groupID)
	return m != nil && m.Role == models.RoleAdmin
}

// CanModifyGroup reports whether userID may update or delete the group.
func (e *Engine) CanModifyGroup(ctx context.Context, userID, groupID string) bool {
	return e.IsAdmin(ctx, userID, groupID)
}

// CanAddMembers reports whether userID may add members to the group.
func (e *Engine) CanAddMembers(ctx context.Context, userID, groupID string) bool {
	return e.IsAdmin(ctx, userID, groupID)
}

// CanRemoveMembers reports whether userID may remove members from the group.
func (e *Engine) CanRemoveMembers(ctx context.Context, userID, groupID string) bool {
	return e.IsAdmin(ctx, userID, groupID)
}

// GroupExists reports whether an active group with this ID exists.
func (e *Engine) GroupExists(ctx context.Context, groupID string) bool {
	if uuid.Validate(groupID) != nil {
		return false
	}
	group, err := e.groups.GetGroup(ctx, groupID)
	if err != nil {
		slog.Warn("authz group lookup failed", "group_id", groupID, "error", err)
		return false
	}
	return group != nil && group.IsActive
}

// AdminCount returns the number of active admin memberships, or 0 on any
// lookup failure.
func (e *Engine) AdminCount(ctx context.Context, groupID string) int {
	if uuid.Validate(groupID) != nil {
		return 0
	}
	n, err := e.members.CountActiveAdmins(ctx, groupID)
	if err != nil {
		slog.Warn("authz admin count failed", "group_id", groupID, "error", err)
		return 0
	}
	return n
}

func (e *Engine) activeMembership(ctx context.Context, userID, groupID string) *models.Membership {
	if uuid.Validate(userID) != nil || uuid.Validate(groupID) != nil {
		return nil
	}
	m, err := e.members.GetActiveMembership(ctx, groupID, userID)
	if err != nil {
		slog.Warn("authz membership lookup failed", "group_id", groupID, "user_id", userID, "error", err)
		return nil
	}
	return m
}

package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/rthakur/expenso/internal/authz"
	"github.com/rthakur/expenso/internal/errs"
	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/storage"
)

// GroupService is the group lifecycle manager: create, read, update,
// soft-delete, and list. It enforces personal-group immutability and the
// group-before-memberships cascade order on delete.
type GroupService struct {
	groups  storage.GroupStore
	members storage.MembershipStore
	users   storage.UserStore
	authz   *authz.Engine
}

// NewGroupService creates a GroupService with the given collaborators.
func NewGroupService(groups storage.GroupStore, members storage.MembershipStore, users storage.UserStore, az *authz.Engine) *GroupService {
	return &GroupService{groups: groups, members: members, users: users, authz: az}
}

// Create makes a new shared group with the creator as its first admin.
// The group insert and the admin membership insert are one transaction.
func (s *GroupService) Create(ctx context.Context, userID, name, description string) (*models.Group, error) {
	name, err := validateGroupName(name)
	if err != nil {
		return nil, err
	}
	description, err = validateGroupDescription(description)
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:        name,
		Description: description,
		Type:        models.GroupTypeShared,
		CreatedBy:   userID,
	}
	first := &models.Membership{
		UserID: userID,
		Role:   models.RoleAdmin,
	}

	if err := s.groups.CreateGroup(ctx, group, first); err != nil {
		slog.Error("create group failed", "user_id", userID, "error", err)
		return nil, errs.Store(err)
	}

	slog.Info("group created", "group_id", group.ID, "name", group.Name, "created_by", userID)
	return group, nil
}

// List returns all active groups the user belongs to, each enriched with
// its member count and the caller's role. Shared groups sort before
// personal ones, newest first within each kind, mirroring the sort key
// (group_type != personal, created_at) descending.
func (s *GroupService) List(ctx context.Context, userID string) ([]*models.GroupSummary, error) {
	memberships, err := s.members.ListActiveMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, errs.Store(err)
	}
	if len(memberships) == 0 {
		return []*models.GroupSummary{}, nil
	}

	ids := make([]string, len(memberships))
	roles := make(map[string]models.Role, len(memberships))
	for i, m := range memberships {
		ids[i] = m.GroupID
		roles[m.GroupID] = m.Role
	}

	groups, err := s.groups.ListActiveGroupsByIDs(ctx, ids)
	if err != nil {
		return nil, errs.Store(err)
	}

	summaries := make([]*models.GroupSummary, 0, len(groups))
	for _, g := range groups {
		count, err := s.members.CountActiveMembers(ctx, g.ID)
		if err != nil {
			return nil, errs.Store(err)
		}
		role, ok := roles[g.ID]
		if !ok {
			role = models.RoleMember
		}
		summaries = append(summaries, &models.GroupSummary{
			Group:       *g,
			MemberCount: count,
			YourRole:    role,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		si := summaries[i].Type != models.GroupTypePersonal
		sj := summaries[j].Type != models.GroupTypePersonal
		if si != sj {
			return si
		}
		return summaries[i].CreatedAt > summaries[j].CreatedAt
	})

	return summaries, nil
}

// Get returns the group with its full roster. The caller must be an
// active member. The roster sorts admins first, then by join time.
func (s *GroupService) Get(ctx context.Context, userID, groupID string) (*models.GroupDetails, error) {
	if err := validateID(groupID, "group"); err != nil {
		return nil, err
	}
	if !s.authz.IsMember(ctx, userID, groupID) {
		return nil, errs.Unauthorized("you are not a member of this group")
	}

	group, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	members, err := loadRoster(ctx, s.members, s.users, groupID, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(members, func(i, j int) bool {
		ai := members[i].Role == models.RoleAdmin
		aj := members[j].Role == models.RoleAdmin
		if ai != aj {
			return ai
		}
		return members[i].JoinedAt < members[j].JoinedAt
	})

	details := &models.GroupDetails{
		Group:       *group,
		Members:     members,
		MemberCount: len(members),
		YourRole:    models.RoleMember,
	}
	for _, m := range members {
		if m.IsYou {
			details.YourRole = m.Role
		}
	}
	return details, nil
}

// Update changes the group's name and/or description. Only admins may
// update; personal groups are immutable; a no-op update is an error.
func (s *GroupService) Update(ctx context.Context, userID, groupID string, name, description *string) (*models.Group, error) {
	if err := validateID(groupID, "group"); err != nil {
		return nil, err
	}
	if !s.authz.CanModifyGroup(ctx, userID, groupID) {
		return nil, errs.Unauthorized("only admins can update group details")
	}

	group, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Type == models.GroupTypePersonal {
		return nil, errs.Invariant("personal groups cannot be updated")
	}

	if name != nil {
		trimmed, err := validateGroupName(*name)
		if err != nil {
			return nil, err
		}
		name = &trimmed
	}
	if description != nil {
		trimmed, err := validateGroupDescription(*description)
		if err != nil {
			return nil, err
		}
		description = &trimmed
	}

	changed := (name != nil && *name != group.Name) ||
		(description != nil && *description != group.Description)
	if !changed {
		return nil, errs.Validation("no changes made")
	}

	now := time.Now().Unix()
	ok, err := s.groups.UpdateGroup(ctx, groupID, name, description, now)
	if err != nil {
		return nil, errs.Store(err)
	}
	if !ok {
		return nil, errs.NotFound("group not found")
	}

	updated, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, errs.Store(err)
	}
	slog.Info("group updated", "group_id", groupID, "user_id", userID)
	return updated, nil
}

// Delete soft-deletes the group and then deactivates its memberships, in
// that order. The ordering is the contract: if the cascade is interrupted,
// readers still treat the inactive group flag as authoritative.
func (s *GroupService) Delete(ctx context.Context, userID, groupID string) error {
	if err := validateID(groupID, "group"); err != nil {
		return err
	}
	if !s.authz.CanModifyGroup(ctx, userID, groupID) {
		return errs.Unauthorized("only admins can delete groups")
	}

	group, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.Type == models.GroupTypePersonal {
		return errs.Invariant("personal groups cannot be deleted")
	}

	now := time.Now().Unix()
	ok, err := s.groups.DeactivateGroup(ctx, groupID, now)
	if err != nil {
		return errs.Store(err)
	}
	if !ok {
		// Lost a race with a concurrent delete; the group is already gone.
		return errs.NotFound("group not found")
	}

	if err := s.members.DeactivateGroupMembers(ctx, groupID, now); err != nil {
		// The group flag is already flipped, which readers treat as
		// authoritative, so surface the failure without rolling back.
		slog.Error("membership cascade failed after group deactivation", "group_id", groupID, "error", err)
		return errs.Store(err)
	}

	slog.Info("group deleted", "group_id", groupID, "name", group.Name, "user_id", userID)
	return nil
}

// activeGroup fetches a group and requires it to exist and be active.
func (s *GroupService) activeGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, errs.Store(err)
	}
	if group == nil || !group.IsActive {
		return nil, errs.NotFound("group not found")
	}
	return group, nil
}

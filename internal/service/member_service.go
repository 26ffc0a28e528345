package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rthakur/expenso/internal/authz"
	"github.com/rthakur/expenso/internal/errs"
	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/storage"
)

// MemberService is the membership lifecycle manager: add, remove, leave,
// and list. It owns the last-admin protection invariant: a shared group
// with at least one active admin can never be left without one through
// any accepted remove or leave.
type MemberService struct {
	groups  storage.GroupStore
	members storage.MembershipStore
	users   storage.UserStore
	authz   *authz.Engine
}

// NewMemberService creates a MemberService with the given collaborators.
func NewMemberService(groups storage.GroupStore, members storage.MembershipStore, users storage.UserStore, az *authz.Engine) *MemberService {
	return &MemberService{groups: groups, members: members, users: users, authz: az}
}

// Add adds the user identified by email to the group. Only admins may add
// members; the target must exist and not already be an active member.
func (s *MemberService) Add(ctx context.Context, actorID, groupID, email string, role models.Role) (*models.Member, error) {
	if err := validateID(groupID, "group"); err != nil {
		return nil, err
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, errs.Validation("valid email address required")
	}
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, errs.Validation("role must be %q or %q", models.RoleAdmin, models.RoleMember)
	}

	if !s.authz.CanAddMembers(ctx, actorID, groupID) {
		return nil, errs.Unauthorized("only admins can add members")
	}
	if !s.authz.GroupExists(ctx, groupID) {
		return nil, errs.NotFound("group not found")
	}

	target, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, errs.Store(err)
	}
	if target == nil {
		return nil, errs.NotFound("user with email %q not found", email)
	}

	existing, err := s.members.GetActiveMembership(ctx, groupID, target.ID)
	if err != nil {
		return nil, errs.Store(err)
	}
	if existing != nil {
		return nil, errs.Invariant("user is already a member of this group")
	}

	m := &models.Membership{
		GroupID: groupID,
		UserID:  target.ID,
		Role:    role,
	}
	if err := s.members.AddMember(ctx, m); err != nil {
		// A concurrent add can slip past the read above; the partial
		// unique index turns it into a duplicate here.
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errs.Invariant("user is already a member of this group")
		}
		return nil, errs.Store(err)
	}

	slog.Info("member added", "group_id", groupID, "user_id", target.ID, "role", role, "added_by", actorID)
	return &models.Member{
		UserID:      target.ID,
		Email:       target.Email,
		DisplayName: target.DisplayName,
		Role:        role,
		JoinedAt:    m.JoinedAt,
	}, nil
}

// Remove deactivates another member's membership. Admins cannot remove
// themselves (they leave instead), and the group's last active admin can
// never be removed.
func (s *MemberService) Remove(ctx context.Context, actorID, groupID, targetUserID string) error {
	if err := validateID(groupID, "group"); err != nil {
		return err
	}
	if err := validateID(targetUserID, "member"); err != nil {
		return err
	}

	if !s.authz.CanRemoveMembers(ctx, actorID, groupID) {
		return errs.Unauthorized("only admins can remove members")
	}
	if targetUserID == actorID {
		return errs.Validation("cannot remove yourself; use leave_group instead")
	}

	target, err := s.members.GetActiveMembership(ctx, groupID, targetUserID)
	if err != nil {
		return errs.Store(err)
	}
	if target == nil {
		return errs.NotFound("member not found in this group")
	}

	if err := s.deactivateGuarded(ctx, groupID, targetUserID,
		"cannot remove the last admin; promote another member first"); err != nil {
		return err
	}

	slog.Info("member removed", "group_id", groupID, "user_id", targetUserID, "removed_by", actorID)
	return nil
}

// Leave deactivates the actor's own membership. Personal groups cannot be
// left, and the last active admin of a shared group must promote another
// member or delete the group first.
func (s *MemberService) Leave(ctx context.Context, actorID, groupID string) error {
	if err := validateID(groupID, "group"); err != nil {
		return err
	}

	m, err := s.members.GetActiveMembership(ctx, groupID, actorID)
	if err != nil {
		return errs.Store(err)
	}
	if m == nil {
		return errs.NotFound("you are not a member of this group")
	}

	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return errs.Store(err)
	}
	// An inactive group is authoritative even when an interrupted delete
	// cascade left this membership behind.
	if group == nil || !group.IsActive {
		return errs.NotFound("group not found")
	}
	if group.Type == models.GroupTypePersonal {
		return errs.Invariant("personal groups cannot be left")
	}

	if err := s.deactivateGuarded(ctx, groupID, actorID,
		"cannot leave as the last admin; promote another member or delete the group"); err != nil {
		return err
	}

	slog.Info("member left", "group_id", groupID, "user_id", actorID)
	return nil
}

// List returns the group's roster with the caller's entry flagged,
// admins first and then alphabetically by display name.
func (s *MemberService) List(ctx context.Context, actorID, groupID string) ([]models.Member, error) {
	if err := validateID(groupID, "group"); err != nil {
		return nil, err
	}
	if !s.authz.IsMember(ctx, actorID, groupID) {
		return nil, errs.Unauthorized("you are not a member of this group")
	}

	roster, err := loadRoster(ctx, s.members, s.users, groupID, actorID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(roster, func(i, j int) bool {
		ai := roster[i].Role == models.RoleAdmin
		aj := roster[j].Role == models.RoleAdmin
		if ai != aj {
			return ai
		}
		return roster[i].DisplayName < roster[j].DisplayName
	})
	return roster, nil
}

// deactivateGuarded runs the atomic conditional deactivation and
// re-classifies a failed guard: either the membership went inactive in
// the meantime (not found) or the member is the last admin (invariant).
func (s *MemberService) deactivateGuarded(ctx context.Context, groupID, userID, lastAdminMsg string) error {
	ok, err := s.members.DeactivateMemberGuarded(ctx, groupID, userID, time.Now().Unix())
	if err != nil {
		return errs.Store(err)
	}
	if ok {
		return nil
	}

	current, err := s.members.GetActiveMembership(ctx, groupID, userID)
	if err != nil {
		return errs.Store(err)
	}
	if current == nil {
		return errs.NotFound("member not found in this group")
	}
	return errs.Invariant("%s", lastAdminMsg)
}

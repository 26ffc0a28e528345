package service

import (
	"context"

	"github.com/rthakur/expenso/internal/errs"
	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/storage"
)

// loadRoster joins a group's active memberships with user identities and
// marks the caller's own entry. Memberships whose user record is missing
// still appear, with empty identity fields.
func loadRoster(ctx context.Context, members storage.MembershipStore, users storage.UserStore, groupID, callerID string) ([]models.Member, error) {
	memberships, err := members.ListActiveMembers(ctx, groupID)
	if err != nil {
		return nil, errs.Store(err)
	}

	ids := make([]string, len(memberships))
	for i, m := range memberships {
		ids[i] = m.UserID
	}
	userMap, err := users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, errs.Store(err)
	}

	roster := make([]models.Member, 0, len(memberships))
	for _, m := range memberships {
		entry := models.Member{
			UserID:   m.UserID,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
			IsYou:    m.UserID == callerID,
		}
		if u, ok := userMap[m.UserID]; ok {
			entry.Email = u.Email
			entry.DisplayName = u.DisplayName
		}
		roster = append(roster, entry)
	}
	return roster, nil
}

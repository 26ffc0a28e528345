package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "expenso-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *SQLiteStore, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to seed user %s: %v", email, err)
	}
	return user
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Setup is idempotent", func(t *testing.T) {
		if err := store.Setup(ctx); err != nil {
			t.Fatalf("Second Setup failed: %v", err)
		}
	})

	t.Run("CreateUser and lookups", func(t *testing.T) {
		user := seedUser(t, store, "alice@example.com", "Alice")

		if user.ID == "" {
			t.Error("Expected user ID to be generated")
		}
		if user.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if byEmail == nil || byEmail.ID != user.ID {
			t.Errorf("GetUserByEmail returned wrong user: %+v", byEmail)
		}

		byID, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if byID == nil || byID.Email != user.Email {
			t.Errorf("GetUserByID returned wrong user: %+v", byID)
		}
	})

	t.Run("CreateUser reports a duplicate email as ErrDuplicate", func(t *testing.T) {
		dup := models.NewUser("alice@example.com", "Other Alice", "hash")
		err := store.CreateUser(ctx, dup)
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("Duplicate email error = %v, want storage.ErrDuplicate", err)
		}
	})

	t.Run("GetUserByEmail returns nil for unknown email", func(t *testing.T) {
		user, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if user != nil {
			t.Errorf("Expected nil user, got %+v", user)
		}
	})

	t.Run("GetUsersByIDs omits missing users", func(t *testing.T) {
		u1 := seedUser(t, store, "bob@example.com", "Bob")
		u2 := seedUser(t, store, "carol@example.com", "Carol")

		users, err := store.GetUsersByIDs(ctx, []string{u1.ID, u2.ID, uuid.New().String()})
		if err != nil {
			t.Fatalf("GetUsersByIDs failed: %v", err)
		}
		if len(users) != 2 {
			t.Errorf("Expected 2 users, got %d", len(users))
		}
		if users[u1.ID] == nil || users[u1.ID].DisplayName != "Bob" {
			t.Errorf("Missing or wrong entry for u1: %+v", users[u1.ID])
		}
	})

	t.Run("CreateGroup persists group and first membership together", func(t *testing.T) {
		owner := seedUser(t, store, "dave@example.com", "Dave")
		group := &models.Group{
			Name:      "Trip",
			Type:      models.GroupTypeShared,
			CreatedBy: owner.ID,
		}
		first := &models.Membership{UserID: owner.ID, Role: models.RoleAdmin}

		if err := store.CreateGroup(ctx, group, first); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" || first.ID == "" {
			t.Error("Expected IDs to be generated")
		}
		if first.GroupID != group.ID {
			t.Errorf("First membership group mismatch: got %s, want %s", first.GroupID, group.ID)
		}

		m, err := store.GetActiveMembership(ctx, group.ID, owner.ID)
		if err != nil {
			t.Fatalf("GetActiveMembership failed: %v", err)
		}
		if m == nil || m.Role != models.RoleAdmin {
			t.Errorf("Expected active admin membership, got %+v", m)
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got == nil || !got.IsActive || got.Name != "Trip" {
			t.Errorf("Unexpected group: %+v", got)
		}
	})

	t.Run("GetGroup returns nil for unknown ID", func(t *testing.T) {
		got, err := store.GetGroup(ctx, uuid.New().String())
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil group, got %+v", got)
		}
	})

	t.Run("UpdateGroup sets only supplied fields", func(t *testing.T) {
		owner := seedUser(t, store, "erin@example.com", "Erin")
		group := &models.Group{Name: "Before", Description: "keep", Type: models.GroupTypeShared, CreatedBy: owner.ID}
		if err := store.CreateGroup(ctx, group, &models.Membership{UserID: owner.ID, Role: models.RoleAdmin}); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		name := "After"
		ok, err := store.UpdateGroup(ctx, group.ID, &name, nil, group.UpdatedAt+10)
		if err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		if !ok {
			t.Fatal("Expected update to report a matched row")
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "After" {
			t.Errorf("Name not updated: %s", got.Name)
		}
		if got.Description != "keep" {
			t.Errorf("Description changed unexpectedly: %s", got.Description)
		}
		if got.UpdatedAt != group.UpdatedAt+10 {
			t.Errorf("UpdatedAt not bumped: %d", got.UpdatedAt)
		}

		ok, err = store.UpdateGroup(ctx, uuid.New().String(), &name, nil, 1)
		if err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		if ok {
			t.Error("Expected no match for unknown group")
		}
	})

	t.Run("DeactivateGroup is a reported no-op the second time", func(t *testing.T) {
		owner := seedUser(t, store, "frank@example.com", "Frank")
		group := &models.Group{Name: "Doomed", Type: models.GroupTypeShared, CreatedBy: owner.ID}
		if err := store.CreateGroup(ctx, group, &models.Membership{UserID: owner.ID, Role: models.RoleAdmin}); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		ok, err := store.DeactivateGroup(ctx, group.ID, now())
		if err != nil {
			t.Fatalf("DeactivateGroup failed: %v", err)
		}
		if !ok {
			t.Fatal("Expected first deactivation to match")
		}

		ok, err = store.DeactivateGroup(ctx, group.ID, now())
		if err != nil {
			t.Fatalf("DeactivateGroup failed: %v", err)
		}
		if ok {
			t.Error("Expected second deactivation to be a no-op")
		}

		got, _ := store.GetGroup(ctx, group.ID)
		if got == nil || got.IsActive {
			t.Errorf("Expected inactive group, got %+v", got)
		}
	})

	t.Run("ListActiveGroupsByIDs filters inactive groups", func(t *testing.T) {
		owner := seedUser(t, store, "gina@example.com", "Gina")
		active := &models.Group{Name: "Active", Type: models.GroupTypeShared, CreatedBy: owner.ID}
		gone := &models.Group{Name: "Gone", Type: models.GroupTypeShared, CreatedBy: owner.ID}
		for _, g := range []*models.Group{active, gone} {
			if err := store.CreateGroup(ctx, g, &models.Membership{UserID: owner.ID, Role: models.RoleAdmin}); err != nil {
				t.Fatalf("CreateGroup failed: %v", err)
			}
		}
		if _, err := store.DeactivateGroup(ctx, gone.ID, now()); err != nil {
			t.Fatalf("DeactivateGroup failed: %v", err)
		}

		groups, err := store.ListActiveGroupsByIDs(ctx, []string{active.ID, gone.ID})
		if err != nil {
			t.Fatalf("ListActiveGroupsByIDs failed: %v", err)
		}
		if len(groups) != 1 || groups[0].ID != active.ID {
			t.Errorf("Expected only the active group, got %d groups", len(groups))
		}
	})
}

func TestMemberships(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	newGroup := func(t *testing.T, adminID string) *models.Group {
		t.Helper()
		group := &models.Group{Name: "G", Type: models.GroupTypeShared, CreatedBy: adminID}
		if err := store.CreateGroup(ctx, group, &models.Membership{UserID: adminID, Role: models.RoleAdmin}); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		return group
	}

	t.Run("Active pair uniqueness", func(t *testing.T) {
		admin := seedUser(t, store, "u1@example.com", "U1")
		other := seedUser(t, store, "u2@example.com", "U2")
		group := newGroup(t, admin.ID)

		if err := store.AddMember(ctx, &models.Membership{GroupID: group.ID, UserID: other.ID, Role: models.RoleMember}); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}

		err := store.AddMember(ctx, &models.Membership{GroupID: group.ID, UserID: other.ID, Role: models.RoleMember})
		if err == nil {
			t.Fatal("Expected second active membership insert to fail")
		}
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("Duplicate insert error = %v, want storage.ErrDuplicate", err)
		}

		// Deactivating frees the pair for a fresh membership record.
		ok, err := store.DeactivateMemberGuarded(ctx, group.ID, other.ID, now())
		if err != nil || !ok {
			t.Fatalf("DeactivateMemberGuarded failed: ok=%v err=%v", ok, err)
		}
		if err := store.AddMember(ctx, &models.Membership{GroupID: group.ID, UserID: other.ID, Role: models.RoleMember}); err != nil {
			t.Fatalf("Re-add after deactivation failed: %v", err)
		}
	})

	t.Run("Guard refuses the last admin", func(t *testing.T) {
		admin := seedUser(t, store, "u3@example.com", "U3")
		group := newGroup(t, admin.ID)

		ok, err := store.DeactivateMemberGuarded(ctx, group.ID, admin.ID, now())
		if err != nil {
			t.Fatalf("DeactivateMemberGuarded failed: %v", err)
		}
		if ok {
			t.Error("Expected guard to refuse the last admin")
		}

		m, err := store.GetActiveMembership(ctx, group.ID, admin.ID)
		if err != nil {
			t.Fatalf("GetActiveMembership failed: %v", err)
		}
		if m == nil {
			t.Error("Expected admin membership to remain active")
		}
	})

	t.Run("Guard passes a non-last admin and plain member", func(t *testing.T) {
		a1 := seedUser(t, store, "u4@example.com", "U4")
		a2 := seedUser(t, store, "u5@example.com", "U5")
		member := seedUser(t, store, "u6@example.com", "U6")
		group := newGroup(t, a1.ID)
		if err := store.AddMember(ctx, &models.Membership{GroupID: group.ID, UserID: a2.ID, Role: models.RoleAdmin}); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		if err := store.AddMember(ctx, &models.Membership{GroupID: group.ID, UserID: member.ID, Role: models.RoleMember}); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}

		ok, err := store.DeactivateMemberGuarded(ctx, group.ID, member.ID, now())
		if err != nil || !ok {
			t.Fatalf("Member deactivation failed: ok=%v err=%v", ok, err)
		}

		ok, err = store.DeactivateMemberGuarded(ctx, group.ID, a2.ID, now())
		if err != nil || !ok {
			t.Fatalf("Second admin deactivation failed: ok=%v err=%v", ok, err)
		}

		// a1 is now the last admin and must be refused.
		ok, err = store.DeactivateMemberGuarded(ctx, group.ID, a1.ID, now())
		if err != nil {
			t.Fatalf("DeactivateMemberGuarded failed: %v", err)
		}
		if ok {
			t.Error("Expected guard to refuse the now-last admin")
		}
	})

	t.Run("Concurrent admin departures leave exactly one admin", func(t *testing.T) {
		a1 := seedUser(t, store, "u7@example.com", "U7")
		a2 := seedUser(t, store, "u8@example.com", "U8")
		group := newGroup(t, a1.ID)
		if err := store.AddMember(ctx, &models.Membership{GroupID: group.ID, UserID: a2.ID, Role: models.RoleAdmin}); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}

		results := make([]bool, 2)
		var wg sync.WaitGroup
		for i, id := range []string{a1.ID, a2.ID} {
			wg.Add(1)
			go func(i int, userID string) {
				defer wg.Done()
				ok, err := store.DeactivateMemberGuarded(ctx, group.ID, userID, now())
				if err != nil {
					t.Errorf("DeactivateMemberGuarded failed: %v", err)
					return
				}
				results[i] = ok
			}(i, id)
		}
		wg.Wait()

		succeeded := 0
		for _, ok := range results {
			if ok {
				succeeded++
			}
		}
		if succeeded != 1 {
			t.Errorf("Expected exactly one departure to pass the guard, got %d", succeeded)
		}

		admins, err := store.CountActiveAdmins(ctx, group.ID)
		if err != nil {
			t.Fatalf("CountActiveAdmins failed: %v", err)
		}
		if admins != 1 {
			t.Errorf("Expected 1 active admin left, got %d", admins)
		}
	})

	t.Run("Counts and lists track active rows only", func(t *testing.T) {
		admin := seedUser(t, store, "u9@example.com", "U9")
		m1 := seedUser(t, store, "u10@example.com", "U10")
		m2 := seedUser(t, store, "u11@example.com", "U11")
		group := newGroup(t, admin.ID)
		for _, u := range []*models.User{m1, m2} {
			if err := store.AddMember(ctx, &models.Membership{GroupID: group.ID, UserID: u.ID, Role: models.RoleMember}); err != nil {
				t.Fatalf("AddMember failed: %v", err)
			}
		}

		total, err := store.CountActiveMembers(ctx, group.ID)
		if err != nil || total != 3 {
			t.Fatalf("CountActiveMembers = %d, %v; want 3", total, err)
		}
		admins, err := store.CountActiveAdmins(ctx, group.ID)
		if err != nil || admins != 1 {
			t.Fatalf("CountActiveAdmins = %d, %v; want 1", admins, err)
		}

		if ok, err := store.DeactivateMemberGuarded(ctx, group.ID, m1.ID, now()); err != nil || !ok {
			t.Fatalf("DeactivateMemberGuarded failed: ok=%v err=%v", ok, err)
		}

		members, err := store.ListActiveMembers(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListActiveMembers failed: %v", err)
		}
		if len(members) != 2 {
			t.Errorf("Expected 2 active members, got %d", len(members))
		}
		for _, m := range members {
			if m.UserID == m1.ID {
				t.Error("Deactivated member still listed")
			}
		}

		byUser, err := store.ListActiveMembershipsByUser(ctx, m1.ID)
		if err != nil {
			t.Fatalf("ListActiveMembershipsByUser failed: %v", err)
		}
		if len(byUser) != 0 {
			t.Errorf("Expected no active memberships for removed user, got %d", len(byUser))
		}
	})

	t.Run("DeactivateGroupMembers cascades past the admin guard", func(t *testing.T) {
		admin := seedUser(t, store, "u12@example.com", "U12")
		member := seedUser(t, store, "u13@example.com", "U13")
		group := newGroup(t, admin.ID)
		if err := store.AddMember(ctx, &models.Membership{GroupID: group.ID, UserID: member.ID, Role: models.RoleMember}); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}

		if err := store.DeactivateGroupMembers(ctx, group.ID, now()); err != nil {
			t.Fatalf("DeactivateGroupMembers failed: %v", err)
		}

		total, err := store.CountActiveMembers(ctx, group.ID)
		if err != nil {
			t.Fatalf("CountActiveMembers failed: %v", err)
		}
		if total != 0 {
			t.Errorf("Expected 0 active members after cascade, got %d", total)
		}
	})
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := seedUser(t, store, "spender@example.com", "Spender")
	other := seedUser(t, store, "other@example.com", "Other")

	add := func(t *testing.T, userID, date, amount, category string) *models.Expense {
		t.Helper()
		e := &models.Expense{
			UserID:   userID,
			Date:     date,
			Amount:   decimal.RequireFromString(amount),
			Category: category,
		}
		if err := store.AddExpense(ctx, e); err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		return e
	}

	t.Run("ListExpenses applies the inclusive date range", func(t *testing.T) {
		add(t, user.ID, "2026-03-01", "10.50", "food")
		add(t, user.ID, "2026-03-15", "20.25", "food")
		add(t, user.ID, "2026-04-01", "5.00", "transport")
		add(t, other.ID, "2026-03-10", "99.99", "food")

		got, err := store.ListExpenses(ctx, user.ID, "2026-03-01", "2026-03-31")
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 expenses, got %d", len(got))
		}
		// Newest first.
		if got[0].Date != "2026-03-15" || got[1].Date != "2026-03-01" {
			t.Errorf("Wrong order: %s, %s", got[0].Date, got[1].Date)
		}
		if !got[0].Amount.Equal(decimal.RequireFromString("20.25")) {
			t.Errorf("Amount round-trip mismatch: %s", got[0].Amount)
		}
	})

	t.Run("DeleteExpense is owner scoped", func(t *testing.T) {
		e := add(t, user.ID, "2026-05-01", "7.00", "misc")

		ok, err := store.DeleteExpense(ctx, e.ID, other.ID)
		if err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if ok {
			t.Error("Expected non-owner delete to match nothing")
		}

		ok, err = store.DeleteExpense(ctx, e.ID, user.ID)
		if err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if !ok {
			t.Error("Expected owner delete to match")
		}

		ok, err = store.DeleteExpense(ctx, e.ID, user.ID)
		if err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if ok {
			t.Error("Expected repeat delete to match nothing")
		}
	})
}

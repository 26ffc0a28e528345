package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rthakur/expenso/internal/authz"
	"github.com/rthakur/expenso/internal/errs"
	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/storage/sqlite"
)

type testEnv struct {
	store    *sqlite.SQLiteStore
	groups   *GroupService
	members  *MemberService
	expenses *ExpenseService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "expenso-svc-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := authz.New(store, store)
	return &testEnv{
		store:    store,
		groups:   NewGroupService(store, store, store, engine),
		members:  NewMemberService(store, store, store, engine),
		expenses: NewExpenseService(store),
	}
}

func (env *testEnv) user(t *testing.T, email, name string) *models.User {
	t.Helper()
	u := models.NewUser(email, name, "hash")
	if err := env.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return u
}

// personalGroup seeds the single-member group a user arrives with after the
// account migration. These are never created through the API, so tests
// insert them at the storage layer.
func (env *testEnv) personalGroup(t *testing.T, owner *models.User) *models.Group {
	t.Helper()
	g := &models.Group{
		Name:      "Personal",
		Type:      models.GroupTypePersonal,
		CreatedBy: owner.ID,
	}
	first := &models.Membership{UserID: owner.ID, Role: models.RoleAdmin}
	if err := env.store.CreateGroup(context.Background(), g, first); err != nil {
		t.Fatalf("failed to seed personal group: %v", err)
	}
	return g
}

func wantKind(t *testing.T, err error, kind errs.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if got := errs.KindOf(err); got != kind {
		t.Fatalf("expected %v error, got %v: %v", kind, got, err)
	}
}

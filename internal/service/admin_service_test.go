package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stepstunner/api/internal/apperr"
	"stepstunner/api/internal/ids"
	"stepstunner/api/internal/models"
)

type adminFixture struct {
	svc      *AdminService
	users    *fakeUserStore
	sessions *fakeSessionStore
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	svc := NewAdminService(users, sessions, &fakeActivityStore{}, nil, zerolog.Nop())
	return &adminFixture{svc: svc, users: users, sessions: sessions}
}

func (f *adminFixture) seedUser(t *testing.T, name string, role models.UserRole) models.User {
	t.Helper()

	user := models.User{
		ID:     ids.New(),
		Name:   name,
		Email:  name + "@example.com",
		Role:   role,
		Active: true,
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestAdminUpdateUserRole(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "admin", models.UserRoleAdmin)
	target := f.seedUser(t, "shopper", models.UserRoleUser)

	role := models.UserRoleAdmin
	updated, err := f.svc.UpdateUser(ctx, admin.ID, target.ID, UpdateUserInput{Role: &role})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != models.UserRoleAdmin {
		t.Fatalf("role = %q", updated.Role)
	}

	bogus := models.UserRole("owner")
	_, err = f.svc.UpdateUser(ctx, admin.ID, target.ID, UpdateUserInput{Role: &bogus})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation for unknown role", apperr.KindOf(err))
	}
}

func TestAdminDeactivationRevokesSessions(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "admin", models.UserRoleAdmin)
	target := f.seedUser(t, "shopper", models.UserRoleUser)

	session := models.Session{ID: ids.New(), UserID: target.ID, ExpiresAt: time.Now().Add(time.Hour)}
	if err := f.sessions.Create(ctx, session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	active := false
	updated, err := f.svc.UpdateUser(ctx, admin.ID, target.ID, UpdateUserInput{Active: &active})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Active {
		t.Fatal("user still active")
	}
	if f.sessions.count() != 0 {
		t.Fatal("sessions survived deactivation")
	}
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	f := newAdminFixture(t)
	admin := f.seedUser(t, "admin", models.UserRoleAdmin)

	err := f.svc.DeleteUser(context.Background(), admin.ID, admin.ID)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.KindOf(err))
	}
	if _, err := f.users.GetByID(context.Background(), admin.ID); err != nil {
		t.Fatal("admin account was deleted")
	}
}

func TestAdminDeleteUser(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "admin", models.UserRoleAdmin)
	target := f.seedUser(t, "shopper", models.UserRoleUser)

	session := models.Session{ID: ids.New(), UserID: target.ID, ExpiresAt: time.Now().Add(time.Hour)}
	if err := f.sessions.Create(ctx, session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	if err := f.svc.DeleteUser(ctx, admin.ID, target.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := f.users.GetByID(ctx, target.ID); err == nil {
		t.Fatal("user still present")
	}
	if f.sessions.count() != 0 {
		t.Fatal("sessions survived deletion")
	}

	err := f.svc.DeleteUser(ctx, admin.ID, "missing")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("kind = %v, want not found", apperr.KindOf(err))
	}
}

func TestAdminSearchUsers(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedUser(t, "admin", models.UserRoleAdmin)
	f.seedUser(t, "asha", models.UserRoleUser)
	f.seedUser(t, "bibek", models.UserRoleUser)

	_, total, err := f.svc.SearchUsers(ctx, "", 1, 20)
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}

	users, total, err := f.svc.SearchUsers(ctx, "asha", 1, 20)
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if total != 1 || len(users) != 1 || users[0].Name != "asha" {
		t.Fatalf("filtered result = %d/%d", len(users), total)
	}
}

package user

import (
	"context"
	"errors"
	"testing"

	"bodega.org/internal/auth"
	"bodega.org/internal/inventory"
)

func newTestService(t *testing.T) (*Service, *inventory.InMemory) {
	t.Helper()
	store := inventory.NewInMemory()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestCreateHashesPassword(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.Create(context.Background(), CreateInput{
		Username: "jdoe",
		Password: "password123",
		Name:     "J. Doe",
		Email:    "JDOE@Example.com",
		Role:     "FOREMAN",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.PasswordHash == "password123" || got.PasswordHash == "" {
		t.Fatalf("password stored unprotected")
	}
	if err := auth.VerifyPassword(got.PasswordHash, "password123"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
	if got.Email != "jdoe@example.com" {
		t.Fatalf("email not normalized: %s", got.Email)
	}
	if got.Status != inventory.UserStatusActive {
		t.Fatalf("expected default ACTIVE status, got %s", got.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing username", CreateInput{Password: "pw", Email: "a@b.c", Role: "ADMIN"}},
		{"missing password", CreateInput{Username: "u", Email: "a@b.c", Role: "ADMIN"}},
		{"bad email", CreateInput{Username: "u", Password: "pw", Email: "not-an-email", Role: "ADMIN"}},
		{"bad role", CreateInput{Username: "u", Password: "pw", Email: "a@b.c", Role: "OVERLORD"}},
		{"bad status", CreateInput{Username: "u", Password: "pw", Email: "a@b.c", Role: "ADMIN", Status: "FROZEN"}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.in); !errors.Is(err, inventory.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	in := CreateInput{Username: "jdoe", Password: "pw", Email: "a@b.c", Role: "FOREMAN"}
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, in); !errors.Is(err, inventory.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateRehashesPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateInput{Username: "jdoe", Password: "old-pw", Email: "a@b.c", Role: "FOREMAN"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	oldHash := created.PasswordHash

	pw := "new-pw"
	role := "PURCHASER"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Password: &pw, Role: &role})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PasswordHash == oldHash {
		t.Fatalf("password hash unchanged")
	}
	if err := auth.VerifyPassword(updated.PasswordHash, "new-pw"); err != nil {
		t.Fatalf("new hash does not verify: %v", err)
	}
	if updated.Role != inventory.RolePurchaser {
		t.Fatalf("role not applied: %s", updated.Role)
	}
}

func TestDeleteHidesUser(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateInput{Username: "jdoe", Password: "pw", Email: "a@b.c", Role: "FOREMAN"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("deleted user still visible: %v", err)
	}
	if _, err := store.Users().FindByUsername(ctx, "jdoe"); !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("deleted user still resolvable by username: %v", err)
	}
	// The username is free again for a new account.
	if _, err := svc.Create(ctx, CreateInput{Username: "jdoe", Password: "pw", Email: "a@b.c", Role: "FOREMAN"}); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestSearchFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seed := []CreateInput{
		{Username: "admin", Password: "pw", Name: "Administrator", Email: "admin@b.c", Role: "ADMIN"},
		{Username: "wh1", Password: "pw", Name: "Warehouse One", Email: "wh1@b.c", Role: "WAREHOUSE_MANAGER"},
		{Username: "wh2", Password: "pw", Name: "Warehouse Two", Email: "wh2@b.c", Role: "WAREHOUSE_MANAGER", Status: "INACTIVE"},
	}
	for _, in := range seed {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("seed %s: %v", in.Username, err)
		}
	}

	rows, meta, err := svc.Search(ctx, inventory.UserFilter{Role: inventory.RoleWarehouseManager})
	if err != nil {
		t.Fatalf("search by role: %v", err)
	}
	if meta.Total != 2 || len(rows) != 2 {
		t.Fatalf("unexpected role filter result: meta=%+v rows=%d", meta, len(rows))
	}

	rows, _, err = svc.Search(ctx, inventory.UserFilter{Role: inventory.RoleWarehouseManager, Status: "INACTIVE"})
	if err != nil {
		t.Fatalf("search by role+status: %v", err)
	}
	if len(rows) != 1 || rows[0].Username != "wh2" {
		t.Fatalf("unexpected status filter result: %d", len(rows))
	}

	rows, _, err = svc.Search(ctx, inventory.UserFilter{Search: "warehouse one"})
	if err != nil {
		t.Fatalf("search by name: %v", err)
	}
	if len(rows) != 1 || rows[0].Username != "wh1" {
		t.Fatalf("unexpected substring result: %d", len(rows))
	}
}

package location

import (
	"context"
	"errors"
	"testing"

	"bodega.org/internal/auth"
	"bodega.org/internal/inventory"
)

type fixture struct {
	svc   *Service
	store *inventory.InMemory
	admin *inventory.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inventory.NewInMemory()
	svc, err := NewService(store, auth.NewPermissions(store))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	admin := addUser(t, store, "admin", inventory.RoleAdmin)
	return &fixture{svc: svc, store: store, admin: admin}
}

func addUser(t *testing.T, store inventory.Store, username string, role inventory.Role) *inventory.User {
	t.Helper()
	u := &inventory.User{
		Username:     username,
		PasswordHash: "x",
		Name:         username,
		Email:        username + "@example.com",
		Role:         role,
		Status:       inventory.UserStatusActive,
	}
	if err := store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func TestCreateRequiresPermission(t *testing.T) {
	f := newFixture(t)
	foreman := addUser(t, f.store, "foreman", inventory.RoleForeman)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, foreman.ID, CreateInput{Name: "Yard", Type: "SITE"}); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	whManager := addUser(t, f.store, "wh", inventory.RoleWarehouseManager)
	loc, err := f.svc.Create(ctx, whManager.ID, CreateInput{Name: "Yard", Type: "warehouse"})
	if err != nil {
		t.Fatalf("warehouse manager create: %v", err)
	}
	if loc.Type != inventory.LocationWarehouse || loc.Status != inventory.LocationStatusActive {
		t.Fatalf("unexpected location: %+v", loc)
	}
}

func TestCreateValidatesManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.admin.ID, CreateInput{Name: "Yard", Type: "SITE", ManagerID: "missing"})
	if !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing manager, got %v", err)
	}

	manager := addUser(t, f.store, "mgr", inventory.RoleSiteManager)
	loc, err := f.svc.Create(ctx, f.admin.ID, CreateInput{Name: "Yard", Type: "SITE", ManagerID: manager.ID})
	if err != nil {
		t.Fatalf("create with manager: %v", err)
	}
	if loc.ManagerID != manager.ID {
		t.Fatalf("manager not set: %+v", loc)
	}
}

func TestUpdateGatedByManagerRelationship(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := addUser(t, f.store, "mgr", inventory.RoleSiteManager)
	other := addUser(t, f.store, "other", inventory.RoleSiteManager)
	loc, err := f.svc.Create(ctx, f.admin.ID, CreateInput{Name: "Site A", Type: "SITE", ManagerID: manager.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Site A (renamed)"
	if _, err := f.svc.Update(ctx, other.ID, loc.ID, UpdateInput{Name: &name}); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("unrelated manager should be forbidden, got %v", err)
	}
	updated, err := f.svc.Update(ctx, manager.ID, loc.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("assigned manager update: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("name not applied: %+v", updated)
	}
}

func TestDeleteSoftDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc, err := f.svc.Create(ctx, f.admin.ID, CreateInput{Name: "Site A", Type: "SITE"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Delete(ctx, f.admin.ID, loc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, loc.ID); !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("deleted location still visible: %v", err)
	}
	// A second delete resolves to not-found, not an error class of its own.
	if err := f.svc.Delete(ctx, f.admin.ID, loc.ID); !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestAssignAndUnassignUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	worker := addUser(t, f.store, "worker", inventory.RoleForeman)
	loc, err := f.svc.Create(ctx, f.admin.ID, CreateInput{Name: "Site A", Type: "SITE"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.svc.AssignUser(ctx, f.admin.ID, loc.ID, worker.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(got.AssignedUserIDs) != 1 || got.AssignedUserIDs[0] != worker.ID {
		t.Fatalf("assignment missing: %+v", got)
	}

	if _, err := f.svc.AssignUser(ctx, f.admin.ID, loc.ID, worker.ID); !errors.Is(err, inventory.ErrConflict) {
		t.Fatalf("duplicate assignment: expected ErrConflict, got %v", err)
	}

	if _, err := f.svc.UnassignUser(ctx, f.admin.ID, loc.ID, worker.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if _, err := f.svc.UnassignUser(ctx, f.admin.ID, loc.ID, worker.ID); !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("unassign absent user: expected ErrNotFound, got %v", err)
	}
}

func TestSetManagerReplacesRelationship(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := addUser(t, f.store, "first", inventory.RoleSiteManager)
	second := addUser(t, f.store, "second", inventory.RoleSiteManager)
	loc, err := f.svc.Create(ctx, f.admin.ID, CreateInput{Name: "Site A", Type: "SITE", ManagerID: first.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.svc.SetManager(ctx, f.admin.ID, loc.ID, second.ID)
	if err != nil {
		t.Fatalf("set manager: %v", err)
	}
	if got.ManagerID != second.ID {
		t.Fatalf("manager not replaced: %+v", got)
	}

	// Clearing leaves the location manager-less.
	got, err = f.svc.SetManager(ctx, f.admin.ID, loc.ID, "")
	if err != nil {
		t.Fatalf("clear manager: %v", err)
	}
	if got.ManagerID != "" {
		t.Fatalf("manager not cleared: %+v", got)
	}
}

func TestSearchFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := addUser(t, f.store, "mgr", inventory.RoleWarehouseManager)
	if _, err := f.svc.Create(ctx, f.admin.ID, CreateInput{Name: "Central Warehouse Manila", Type: "WAREHOUSE", ManagerID: mgr.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.admin.ID, CreateInput{Name: "BGC Construction Site", Type: "SITE"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	rows, meta, err := f.svc.Search(ctx, inventory.LocationFilter{Type: inventory.LocationWarehouse})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if meta.Total != 1 || len(rows) != 1 || rows[0].Name != "Central Warehouse Manila" {
		t.Fatalf("unexpected result: meta=%+v rows=%d", meta, len(rows))
	}

	hasManager := false
	rows, _, err = f.svc.Search(ctx, inventory.LocationFilter{HasManager: &hasManager})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "BGC Construction Site" {
		t.Fatalf("unexpected manager-less result: %d", len(rows))
	}
}

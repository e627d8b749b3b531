package auth

import (
	"context"
	"errors"

	"bodega.org/internal/inventory"
)

// Allowed-role sets per operation. Kept as explicit closed sets so a new role
// grants nothing until it is added here.
var (
	locationCreatorRoles = map[inventory.Role]struct{}{
		inventory.RoleAdmin:            {},
		inventory.RoleWarehouseManager: {},
	}
	itemEditorRoles = map[inventory.Role]struct{}{
		inventory.RoleAdmin:            {},
		inventory.RoleWarehouseManager: {},
		inventory.RoleInventoryMaster:  {},
	}
)

// Permissions decides whether an actor may perform a mutating operation.
// Every decision is re-derived from current persisted state: the actor's role
// and the manager relationship are read from the store on each call, never
// from token claims, and never cached.
type Permissions struct {
	store inventory.Store
}

// NewPermissions constructs the permission engine over the given store.
func NewPermissions(store inventory.Store) *Permissions {
	return &Permissions{store: store}
}

// actor resolves the acting user. A missing or soft-deleted actor produces
// (nil, false) rather than an error: absence of rights, not a failure.
func (p *Permissions) actor(ctx context.Context, actorID string) (*inventory.User, bool, error) {
	user, err := p.store.Users().Find(ctx, actorID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

// CanManageLocation reports whether the actor may mutate the given location:
// ADMIN always, otherwise only the location's directly assigned manager.
// There is no hierarchy; managing site A grants nothing over site B.
func (p *Permissions) CanManageLocation(ctx context.Context, actorID, locationID string) (bool, error) {
	actor, ok, err := p.actor(ctx, actorID)
	if err != nil || !ok {
		return false, err
	}
	if actor.Role == inventory.RoleAdmin {
		return true, nil
	}
	location, err := p.store.Locations().Find(ctx, locationID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return location.ManagerID == actorID, nil
}

// CanManageAnyWarehouse reports whether the actor is ADMIN, or holds the
// WAREHOUSE_MANAGER role and manages at least one non-deleted warehouse.
func (p *Permissions) CanManageAnyWarehouse(ctx context.Context, actorID string) (bool, error) {
	return p.canManageAnyOfType(ctx, actorID, inventory.RoleWarehouseManager, inventory.LocationWarehouse)
}

// CanManageAnySite reports whether the actor is ADMIN, or holds the
// SITE_MANAGER role and manages at least one non-deleted site.
func (p *Permissions) CanManageAnySite(ctx context.Context, actorID string) (bool, error) {
	return p.canManageAnyOfType(ctx, actorID, inventory.RoleSiteManager, inventory.LocationSite)
}

func (p *Permissions) canManageAnyOfType(ctx context.Context, actorID string, managerRole inventory.Role, t inventory.LocationType) (bool, error) {
	actor, ok, err := p.actor(ctx, actorID)
	if err != nil || !ok {
		return false, err
	}
	if actor.Role == inventory.RoleAdmin {
		return true, nil
	}
	if actor.Role != managerRole {
		return false, nil
	}
	count, err := p.store.Locations().CountManaged(ctx, actorID, t)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CanCreateLocation reports whether the actor may originate new locations.
// Site managers only manage locations assigned to them.
func (p *Permissions) CanCreateLocation(ctx context.Context, actorID string) (bool, error) {
	return p.hasRoleIn(ctx, actorID, locationCreatorRoles)
}

// CanManageItems reports whether the actor may create or mutate stock items.
func (p *Permissions) CanManageItems(ctx context.Context, actorID string) (bool, error) {
	return p.hasRoleIn(ctx, actorID, itemEditorRoles)
}

func (p *Permissions) hasRoleIn(ctx context.Context, actorID string, allowed map[inventory.Role]struct{}) (bool, error) {
	actor, ok, err := p.actor(ctx, actorID)
	if err != nil || !ok {
		return false, err
	}
	_, granted := allowed[actor.Role]
	return granted, nil
}

// Package location implements warehouse/site administration. Every mutating
// operation is gated by the permission engine against the actor's current
// persisted role and manager relationship.
package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bodega.org/internal/auth"
	"bodega.org/internal/inventory"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Service provides location administration operations.
type Service struct {
	store inventory.Store
	perms *auth.Permissions
	now   func() time.Time
}

// NewService constructs the location service.
func NewService(store inventory.Store, perms *auth.Permissions) (*Service, error) {
	if store == nil {
		return nil, errors.New("location: store is required")
	}
	if perms == nil {
		return nil, errors.New("location: permission engine is required")
	}
	return &Service{store: store, perms: perms, now: time.Now}, nil
}

// CreateInput carries the fields for a new location.
type CreateInput struct {
	Name      string
	Type      string
	Status    string
	ManagerID string
}

// Create registers a new location. Only ADMIN and WAREHOUSE_MANAGER actors may
// originate locations; a designated manager must exist and not be deleted.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*inventory.Location, error) {
	allowed, err := s.perms.CanCreateLocation(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: you do not have permission to create locations", auth.ErrForbidden)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: location name is required", inventory.ErrInvalidInput)
	}
	locationType, err := inventory.ParseLocationType(in.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inventory.ErrInvalidInput, err)
	}
	status, err := parseStatus(in.Status)
	if err != nil {
		return nil, err
	}

	managerID := strings.TrimSpace(in.ManagerID)
	if managerID != "" {
		if _, err := s.store.Users().Find(ctx, managerID); err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				return nil, fmt.Errorf("%w: user %s (to be manager) not found", inventory.ErrNotFound, managerID)
			}
			return nil, err
		}
	}

	l := &inventory.Location{
		Name:      name,
		Type:      locationType,
		Status:    status,
		ManagerID: managerID,
	}
	if err := s.store.Locations().Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns a location by id, excluding soft-deleted rows.
func (s *Service) Get(ctx context.Context, id string) (*inventory.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: location id is required", inventory.ErrInvalidInput)
	}
	return s.store.Locations().Find(ctx, id)
}

// List returns all active locations ordered by name.
func (s *Service) List(ctx context.Context) ([]*inventory.Location, error) {
	return s.store.Locations().List(ctx)
}

// ListByType returns active locations of the given type.
func (s *Service) ListByType(ctx context.Context, raw string) ([]*inventory.Location, error) {
	t, err := inventory.ParseLocationType(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inventory.ErrInvalidInput, err)
	}
	return s.store.Locations().ListByType(ctx, t)
}

// ListByStatus returns active locations with the given status.
func (s *Service) ListByStatus(ctx context.Context, raw string) ([]*inventory.Location, error) {
	status, err := parseStatus(raw)
	if err != nil {
		return nil, err
	}
	return s.store.Locations().ListByStatus(ctx, status)
}

// Search returns a filtered page of locations plus paging bookkeeping.
func (s *Service) Search(ctx context.Context, f inventory.LocationFilter) ([]*inventory.Location, inventory.PageMeta, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	locations, total, err := s.store.Locations().Search(ctx, f)
	if err != nil {
		return nil, inventory.PageMeta{}, err
	}
	return locations, inventory.NewPageMeta(f.Page, f.Limit, total), nil
}

// UpdateInput carries the mutable fields; nil means "leave unchanged".
type UpdateInput struct {
	Name      *string
	Type      *string
	Status    *string
	ManagerID *string
}

// Update applies a partial update, gated by CanManageLocation.
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (*inventory.Location, error) {
	if err := s.requireManage(ctx, actorID, id); err != nil {
		return nil, err
	}
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: location name is required", inventory.ErrInvalidInput)
		}
		l.Name = name
	}
	if in.Type != nil {
		t, err := inventory.ParseLocationType(*in.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", inventory.ErrInvalidInput, err)
		}
		l.Type = t
	}
	if in.Status != nil {
		status, err := parseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		l.Status = status
	}
	if in.ManagerID != nil {
		managerID := strings.TrimSpace(*in.ManagerID)
		if managerID != "" {
			if _, err := s.store.Users().Find(ctx, managerID); err != nil {
				if errors.Is(err, inventory.ErrNotFound) {
					return nil, fmt.Errorf("%w: user %s (to be manager) not found", inventory.ErrNotFound, managerID)
				}
				return nil, err
			}
		}
		l.ManagerID = managerID
	}
	if err := s.store.Locations().Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Delete soft-deletes the location, gated by CanManageLocation.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if err := s.requireManage(ctx, actorID, id); err != nil {
		return err
	}
	return s.store.Locations().SoftDelete(ctx, id, s.now())
}

// SetManager replaces the location's single manager. Concurrent
// reassignment is last write wins.
func (s *Service) SetManager(ctx context.Context, actorID, locationID, managerID string) (*inventory.Location, error) {
	if err := s.requireManage(ctx, actorID, locationID); err != nil {
		return nil, err
	}
	managerID = strings.TrimSpace(managerID)
	if managerID != "" {
		if _, err := s.store.Users().Find(ctx, managerID); err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				return nil, fmt.Errorf("%w: user %s (to be manager) not found", inventory.ErrNotFound, managerID)
			}
			return nil, err
		}
	}
	if err := s.store.Locations().SetManager(ctx, locationID, managerID); err != nil {
		return nil, err
	}
	return s.Get(ctx, locationID)
}

// AssignUser attaches a user to the location's workforce. Duplicate
// assignments are rejected.
func (s *Service) AssignUser(ctx context.Context, actorID, locationID, userID string) (*inventory.Location, error) {
	if err := s.requireManage(ctx, actorID, locationID); err != nil {
		return nil, err
	}
	if _, err := s.store.Users().Find(ctx, userID); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s to assign not found", inventory.ErrNotFound, userID)
		}
		return nil, err
	}
	assigned, err := s.store.Locations().IsAssigned(ctx, locationID, userID)
	if err != nil {
		return nil, err
	}
	if assigned {
		return nil, fmt.Errorf("%w: user %s is already assigned to this location", inventory.ErrConflict, userID)
	}
	if err := s.store.Locations().AssignUser(ctx, locationID, userID); err != nil {
		return nil, err
	}
	return s.Get(ctx, locationID)
}

// UnassignUser detaches a user from the location's workforce. The user must
// currently be assigned.
func (s *Service) UnassignUser(ctx context.Context, actorID, locationID, userID string) (*inventory.Location, error) {
	if err := s.requireManage(ctx, actorID, locationID); err != nil {
		return nil, err
	}
	if _, err := s.store.Users().Find(ctx, userID); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s not found", inventory.ErrNotFound, userID)
		}
		return nil, err
	}
	assigned, err := s.store.Locations().IsAssigned(ctx, locationID, userID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, fmt.Errorf("%w: user %s is not assigned to location %s", inventory.ErrNotFound, userID, locationID)
	}
	if err := s.store.Locations().UnassignUser(ctx, locationID, userID); err != nil {
		return nil, err
	}
	return s.Get(ctx, locationID)
}

// requireManage checks CanManageLocation before touching the target,
// surfacing NotFound for a missing location only after the actor is cleared.
func (s *Service) requireManage(ctx context.Context, actorID, locationID string) error {
	allowed, err := s.perms.CanManageLocation(ctx, actorID, locationID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: you do not have permission to manage this location", auth.ErrForbidden)
	}
	if _, err := s.store.Locations().Find(ctx, locationID); err != nil {
		return err
	}
	return nil
}

func parseStatus(raw string) (string, error) {
	status := strings.ToUpper(strings.TrimSpace(raw))
	if status == "" {
		return inventory.LocationStatusActive, nil
	}
	switch status {
	case inventory.LocationStatusActive, inventory.LocationStatusInactive, inventory.LocationStatusUnderMaintenance:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unsupported status %s", inventory.ErrInvalidInput, raw)
	}
}

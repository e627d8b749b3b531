// Package user implements account administration over the inventory store:
// creation with password hashing, filtered listing, updates and soft deletes.
package user

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

// Service provides user administration operations.
type Service struct {
	store inventory.Store
	now   func() time.Time
}

// NewService constructs the user service.
func NewService(store inventory.Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("user: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Username   string
	Password   string
	Name       string
	Email      string
	Role       string
	Status     string
	LocationID string
}

// Create registers a new user with a freshly hashed password.
func (s *Service) Create(ctx context.Context, in CreateInput) (*inventory.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", inventory.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%w: password is required", inventory.ErrInvalidInput)
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", inventory.ErrInvalidInput)
	}
	role, err := inventory.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inventory.ErrInvalidInput, err)
	}
	status := strings.ToUpper(strings.TrimSpace(in.Status))
	if status == "" {
		status = inventory.UserStatusActive
	}
	if status != inventory.UserStatusActive && status != inventory.UserStatusInactive {
		return nil, fmt.Errorf("%w: unsupported status %s", inventory.ErrInvalidInput, in.Status)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &inventory.User{
		Username:     username,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Role:         role,
		Status:       status,
		LocationID:   strings.TrimSpace(in.LocationID),
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns a user by id, excluding soft-deleted rows.
func (s *Service) Get(ctx context.Context, id string) (*inventory.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", inventory.ErrInvalidInput)
	}
	return s.store.Users().Find(ctx, id)
}

// List returns all active users.
func (s *Service) List(ctx context.Context) ([]*inventory.User, error) {
	return s.store.Users().List(ctx)
}

// Search returns a filtered page of users plus paging bookkeeping.
func (s *Service) Search(ctx context.Context, f inventory.UserFilter) ([]*inventory.User, inventory.PageMeta, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	users, total, err := s.store.Users().Search(ctx, f)
	if err != nil {
		return nil, inventory.PageMeta{}, err
	}
	return users, inventory.NewPageMeta(f.Page, f.Limit, total), nil
}

// UpdateInput carries the mutable fields; nil means "leave unchanged".
type UpdateInput struct {
	Username   *string
	Password   *string
	Name       *string
	Email      *string
	Role       *string
	Status     *string
	LocationID *string
}

// Update applies a partial update, re-hashing the password when it changes.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*inventory.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: username is required", inventory.ErrInvalidInput)
		}
		u.Username = username
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(strings.TrimSpace(*in.Password))
		if err != nil {
			return nil, fmt.Errorf("%w: password is required", inventory.ErrInvalidInput)
		}
		u.PasswordHash = hash
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*in.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", inventory.ErrInvalidInput)
		}
		u.Email = email
	}
	if in.Role != nil {
		role, err := inventory.ParseRole(*in.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", inventory.ErrInvalidInput, err)
		}
		u.Role = role
	}
	if in.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*in.Status))
		if status != inventory.UserStatusActive && status != inventory.UserStatusInactive {
			return nil, fmt.Errorf("%w: unsupported status %s", inventory.ErrInvalidInput, *in.Status)
		}
		u.Status = status
	}
	if in.LocationID != nil {
		u.LocationID = strings.TrimSpace(*in.LocationID)
	}
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete soft-deletes the user. The row stays for referential integrity but
// never authenticates or appears in listings again. A user still managing
// live locations cannot be deleted; the manager slot must be released first.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user id is required", inventory.ErrInvalidInput)
	}
	for _, t := range []inventory.LocationType{inventory.LocationWarehouse, inventory.LocationSite} {
		n, err := s.store.Locations().CountManaged(ctx, id, t)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: cannot delete user managing active locations", inventory.ErrInvalidInput)
		}
	}
	return s.store.Users().SoftDelete(ctx, id, s.now())
}

// ManagedLocations returns the live locations the user directly manages.
func (s *Service) ManagedLocations(ctx context.Context, id string) ([]*inventory.Location, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	locations, _, err := s.store.Locations().Search(ctx, inventory.LocationFilter{
		ManagerID: id,
		Page:      1,
		Limit:     maxPageLimit,
	})
	return locations, err
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

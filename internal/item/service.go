// Package item implements the stock item catalog. Item codes are unique
// among non-deleted rows; mutation is limited to inventory-keeping roles.
package item

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

// Service provides stock item operations.
type Service struct {
	store inventory.Store
	perms *auth.Permissions
	now   func() time.Time
}

// NewService constructs the item service.
func NewService(store inventory.Store, perms *auth.Permissions) (*Service, error) {
	if store == nil {
		return nil, errors.New("item: store is required")
	}
	if perms == nil {
		return nil, errors.New("item: permission engine is required")
	}
	return &Service{store: store, perms: perms, now: time.Now}, nil
}

// CreateInput carries the fields for a new item.
type CreateInput struct {
	Code              string
	Description       string
	UnitOfMeasurement string
	Status            string
}

// Create registers a new item definition.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*inventory.Item, error) {
	if err := s.requireEditor(ctx, actorID); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: item code is required", inventory.ErrInvalidInput)
	}
	status, err := parseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Items().FindByCode(ctx, code); err == nil {
		return nil, fmt.Errorf("%w: item with code %q already exists", inventory.ErrConflict, code)
	} else if !errors.Is(err, inventory.ErrNotFound) {
		return nil, err
	}
	i := &inventory.Item{
		Code:              code,
		Description:       strings.TrimSpace(in.Description),
		UnitOfMeasurement: strings.TrimSpace(in.UnitOfMeasurement),
		Status:            status,
	}
	if err := s.store.Items().Create(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// Get returns an item by id, excluding soft-deleted rows.
func (s *Service) Get(ctx context.Context, id string) (*inventory.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: item id is required", inventory.ErrInvalidInput)
	}
	return s.store.Items().Find(ctx, id)
}

// List returns all active items ordered by code.
func (s *Service) List(ctx context.Context) ([]*inventory.Item, error) {
	return s.store.Items().List(ctx)
}

// Search returns a filtered page of items plus paging bookkeeping.
func (s *Service) Search(ctx context.Context, f inventory.ItemFilter) ([]*inventory.Item, inventory.PageMeta, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	items, total, err := s.store.Items().Search(ctx, f)
	if err != nil {
		return nil, inventory.PageMeta{}, err
	}
	return items, inventory.NewPageMeta(f.Page, f.Limit, total), nil
}

// UpdateInput carries the mutable fields; nil means "leave unchanged".
type UpdateInput struct {
	Code              *string
	Description       *string
	UnitOfMeasurement *string
	Status            *string
}

// Update applies a partial update, re-checking code uniqueness when the code
// changes.
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (*inventory.Item, error) {
	if err := s.requireEditor(ctx, actorID); err != nil {
		return nil, err
	}
	i, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Code != nil {
		code := strings.TrimSpace(*in.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: item code is required", inventory.ErrInvalidInput)
		}
		if code != i.Code {
			if existing, err := s.store.Items().FindByCode(ctx, code); err == nil && existing.ID != i.ID {
				return nil, fmt.Errorf("%w: item with code %q already exists", inventory.ErrConflict, code)
			} else if err != nil && !errors.Is(err, inventory.ErrNotFound) {
				return nil, err
			}
		}
		i.Code = code
	}
	if in.Description != nil {
		i.Description = strings.TrimSpace(*in.Description)
	}
	if in.UnitOfMeasurement != nil {
		i.UnitOfMeasurement = strings.TrimSpace(*in.UnitOfMeasurement)
	}
	if in.Status != nil {
		status, err := parseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		i.Status = status
	}
	if err := s.store.Items().Update(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// Delete soft-deletes the item.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if err := s.requireEditor(ctx, actorID); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: item id is required", inventory.ErrInvalidInput)
	}
	return s.store.Items().SoftDelete(ctx, id, s.now())
}

func (s *Service) requireEditor(ctx context.Context, actorID string) error {
	allowed, err := s.perms.CanManageItems(ctx, actorID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: you do not have permission to manage items", auth.ErrForbidden)
	}
	return nil
}

func parseStatus(raw string) (string, error) {
	status := strings.ToUpper(strings.TrimSpace(raw))
	if status == "" {
		return inventory.ItemStatusActive, nil
	}
	switch status {
	case inventory.ItemStatusActive, inventory.ItemStatusDiscontinued:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unsupported status %s", inventory.ErrInvalidInput, raw)
	}
}

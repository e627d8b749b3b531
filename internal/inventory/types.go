package inventory

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("inventory: not found")
	ErrConflict     = errors.New("inventory: resource conflict")
	ErrInvalidInput = errors.New("inventory: invalid input")
)

// Role is the closed set of global roles a user can hold.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleWarehouseManager Role = "WAREHOUSE_MANAGER"
	RoleSiteManager      Role = "SITE_MANAGER"
	RoleInventoryMaster  Role = "INVENTORY_MASTER"
	RolePurchaser        Role = "PURCHASER"
	RoleAccounting       Role = "ACCOUNTING"
	RoleForeman          Role = "FOREMAN"
)

var allRoles = map[Role]struct{}{
	RoleAdmin:            {},
	RoleWarehouseManager: {},
	RoleSiteManager:      {},
	RoleInventoryMaster:  {},
	RolePurchaser:        {},
	RoleAccounting:       {},
	RoleForeman:          {},
}

// ParseRole validates and normalizes a role string.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := allRoles[role]; !ok {
		return "", errors.New("unknown role " + raw)
	}
	return role, nil
}

// LocationType distinguishes storage warehouses from construction sites.
type LocationType string

const (
	LocationWarehouse LocationType = "WAREHOUSE"
	LocationSite      LocationType = "SITE"
)

// ParseLocationType validates and normalizes a location type string.
func ParseLocationType(raw string) (LocationType, error) {
	t := LocationType(strings.ToUpper(strings.TrimSpace(raw)))
	if t != LocationWarehouse && t != LocationSite {
		return "", errors.New("unknown location type " + raw)
	}
	return t, nil
}

const (
	UserStatusActive   = "ACTIVE"
	UserStatusInactive = "INACTIVE"

	LocationStatusActive           = "ACTIVE"
	LocationStatusInactive         = "INACTIVE"
	LocationStatusUnderMaintenance = "UNDER_MAINTENANCE"

	ItemStatusActive       = "ACTIVE"
	ItemStatusDiscontinued = "DISCONTINUED"
)

// User is an operator account. PasswordHash never leaves the process boundary;
// handlers serialize the Sanitized form only.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	Status       string     `json:"status"`
	LocationID   string     `json:"location_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

// Deleted reports whether the user has been soft-deleted.
func (u *User) Deleted() bool { return u.DeletedAt != nil }

// SanitizedUser is the outward representation of a user.
type SanitizedUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Status     string `json:"status"`
	LocationID string `json:"location_id,omitempty"`
}

// Sanitize strips credentials and bookkeeping fields.
func (u *User) Sanitize() SanitizedUser {
	return SanitizedUser{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Status:     u.Status,
		LocationID: u.LocationID,
	}
}

// Location is a warehouse or a site. ManagerID is the single designated
// managing user; the permission engine treats it as a direct equality check.
type Location struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Type            LocationType `json:"type"`
	Status          string       `json:"status"`
	ManagerID       string       `json:"manager_id,omitempty"`
	AssignedUserIDs []string     `json:"assigned_user_ids,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	DeletedAt       *time.Time   `json:"-"`
}

// Deleted reports whether the location has been soft-deleted.
func (l *Location) Deleted() bool { return l.DeletedAt != nil }

// Item is a stock item definition, identified business-wise by its code.
type Item struct {
	ID                string     `json:"id"`
	Code              string     `json:"code"`
	Description       string     `json:"description"`
	UnitOfMeasurement string     `json:"unit_of_measurement"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"-"`
}

// Deleted reports whether the item has been soft-deleted.
func (i *Item) Deleted() bool { return i.DeletedAt != nil }

// PageMeta describes one page of a filtered listing.
type PageMeta struct {
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	Total           int  `json:"total"`
	TotalPages      int  `json:"total_pages"`
	HasNextPage     bool `json:"has_next_page"`
	HasPreviousPage bool `json:"has_previous_page"`
}

// NewPageMeta computes paging bookkeeping for a result set of total rows.
func NewPageMeta(page, limit, total int) PageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return PageMeta{
		Page:            page,
		Limit:           limit,
		Total:           total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

package inventory

import (
	"context"
	"time"
)

// Store describes persistence operations required by the services. All reads
// exclude soft-deleted rows; deletion is always a soft delete.
type Store interface {
	Users() UserStore
	Locations() LocationStore
	Items() ItemStore
}

// UserFilter narrows a paginated user listing. Zero values mean "any".
type UserFilter struct {
	Search     string
	Role       Role
	Status     string
	LocationID string
	Page       int
	Limit      int
}

// UserStore manages user rows.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Search(ctx context.Context, f UserFilter) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// LocationFilter narrows a paginated location listing.
type LocationFilter struct {
	Search     string
	Type       LocationType
	Status     string
	ManagerID  string
	HasManager *bool
	Page       int
	Limit      int
}

// LocationStore manages location rows and their user relationships.
type LocationStore interface {
	Create(ctx context.Context, l *Location) error
	Find(ctx context.Context, id string) (*Location, error)
	List(ctx context.Context) ([]*Location, error)
	ListByType(ctx context.Context, t LocationType) ([]*Location, error)
	ListByStatus(ctx context.Context, status string) ([]*Location, error)
	Search(ctx context.Context, f LocationFilter) ([]*Location, int, error)
	Update(ctx context.Context, l *Location) error
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// SetManager replaces the location's single manager; empty clears it.
	SetManager(ctx context.Context, locationID, managerID string) error
	AssignUser(ctx context.Context, locationID, userID string) error
	UnassignUser(ctx context.Context, locationID, userID string) error
	IsAssigned(ctx context.Context, locationID, userID string) (bool, error)

	// CountManaged returns how many non-deleted locations of type t the user
	// manages directly.
	CountManaged(ctx context.Context, managerID string, t LocationType) (int, error)
}

// ItemFilter narrows a paginated item listing.
type ItemFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// ItemStore manages stock item rows.
type ItemStore interface {
	Create(ctx context.Context, i *Item) error
	Find(ctx context.Context, id string) (*Item, error)
	FindByCode(ctx context.Context, code string) (*Item, error)
	List(ctx context.Context) ([]*Item, error)
	Search(ctx context.Context, f ItemFilter) ([]*Item, int, error)
	Update(ctx context.Context, i *Item) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

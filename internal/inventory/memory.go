package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bodega.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. It backs the
// httpapi tests and local demos; production deployments use the pg store.
type InMemory struct {
	mu        sync.RWMutex
	users     map[string]*User
	locations map[string]*Location
	items     map[string]*Item
	now       func() time.Time
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:     make(map[string]*User),
		locations: make(map[string]*Location),
		items:     make(map[string]*Item),
		now:       time.Now,
	}
}

func (s *InMemory) Users() UserStore         { return (*memUsers)(s) }
func (s *InMemory) Locations() LocationStore { return (*memLocations)(s) }
func (s *InMemory) Items() ItemStore         { return (*memItems)(s) }

func matchSubstr(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func paginate[T any](rows []T, page, limit int) ([]T, int) {
	total := len(rows)
	if limit <= 0 {
		return rows, total
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return nil, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return rows[start:end], total
}

// Users --------------------------------------------------------------------

type memUsers InMemory

func (s *memUsers) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if !existing.Deleted() && existing.Username == u.Username {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || u.Deleted() {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if !u.Deleted() && u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUsers) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, u := range s.users {
		if u.Deleted() {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *memUsers) Search(ctx context.Context, f UserFilter) ([]*User, int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	var filtered []*User
	for _, u := range all {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.LocationID != "" && u.LocationID != f.LocationID {
			continue
		}
		if !matchSubstr(u.Username, f.Search) && !matchSubstr(u.Name, f.Search) && !matchSubstr(u.Email, f.Search) {
			continue
		}
		filtered = append(filtered, u)
	}
	page, total := paginate(filtered, f.Page, f.Limit)
	return page, total, nil
}

func (s *memUsers) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok || existing.Deleted() {
		return ErrNotFound
	}
	for _, other := range s.users {
		if other.ID != u.ID && !other.Deleted() && other.Username == u.Username {
			return ErrConflict
		}
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.now().UTC()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUsers) SoftDelete(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.Deleted() {
		return ErrNotFound
	}
	at = at.UTC()
	u.DeletedAt = &at
	u.UpdatedAt = at
	return nil
}

// Locations ----------------------------------------------------------------

type memLocations InMemory

func (s *memLocations) Create(ctx context.Context, l *Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = ids.New()
	}
	now := s.now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	cp := *l
	cp.AssignedUserIDs = append([]string(nil), l.AssignedUserIDs...)
	s.locations[l.ID] = &cp
	return nil
}

func (s *memLocations) get(id string) (*Location, bool) {
	l, ok := s.locations[id]
	if !ok || l.Deleted() {
		return nil, false
	}
	return l, true
}

func (s *memLocations) Find(ctx context.Context, id string) (*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	cp.AssignedUserIDs = append([]string(nil), l.AssignedUserIDs...)
	return &cp, nil
}

func (s *memLocations) list(match func(*Location) bool) []*Location {
	var out []*Location
	for _, l := range s.locations {
		if l.Deleted() || !match(l) {
			continue
		}
		cp := *l
		cp.AssignedUserIDs = append([]string(nil), l.AssignedUserIDs...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *memLocations) List(ctx context.Context) ([]*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(*Location) bool { return true }), nil
}

func (s *memLocations) ListByType(ctx context.Context, t LocationType) ([]*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(l *Location) bool { return l.Type == t }), nil
}

func (s *memLocations) ListByStatus(ctx context.Context, status string) ([]*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(l *Location) bool { return l.Status == status }), nil
}

func (s *memLocations) Search(ctx context.Context, f LocationFilter) ([]*Location, int, error) {
	s.mu.RLock()
	rows := s.list(func(l *Location) bool {
		if f.Type != "" && l.Type != f.Type {
			return false
		}
		if f.Status != "" && l.Status != f.Status {
			return false
		}
		if f.ManagerID != "" && l.ManagerID != f.ManagerID {
			return false
		}
		if f.HasManager != nil && *f.HasManager != (l.ManagerID != "") {
			return false
		}
		return matchSubstr(l.Name, f.Search)
	})
	s.mu.RUnlock()
	page, total := paginate(rows, f.Page, f.Limit)
	return page, total, nil
}

func (s *memLocations) Update(ctx context.Context, l *Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.get(l.ID)
	if !ok {
		return ErrNotFound
	}
	l.CreatedAt = existing.CreatedAt
	l.AssignedUserIDs = append([]string(nil), existing.AssignedUserIDs...)
	l.UpdatedAt = s.now().UTC()
	cp := *l
	s.locations[l.ID] = &cp
	return nil
}

func (s *memLocations) SoftDelete(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.get(id)
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	l.DeletedAt = &at
	l.UpdatedAt = at
	return nil
}

func (s *memLocations) SetManager(ctx context.Context, locationID, managerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.get(locationID)
	if !ok {
		return ErrNotFound
	}
	l.ManagerID = managerID
	l.UpdatedAt = s.now().UTC()
	return nil
}

func (s *memLocations) AssignUser(ctx context.Context, locationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.get(locationID)
	if !ok {
		return ErrNotFound
	}
	for _, id := range l.AssignedUserIDs {
		if id == userID {
			return ErrConflict
		}
	}
	l.AssignedUserIDs = append(l.AssignedUserIDs, userID)
	l.UpdatedAt = s.now().UTC()
	return nil
}

func (s *memLocations) UnassignUser(ctx context.Context, locationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.get(locationID)
	if !ok {
		return ErrNotFound
	}
	for i, id := range l.AssignedUserIDs {
		if id == userID {
			l.AssignedUserIDs = append(l.AssignedUserIDs[:i], l.AssignedUserIDs[i+1:]...)
			l.UpdatedAt = s.now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (s *memLocations) IsAssigned(ctx context.Context, locationID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.get(locationID)
	if !ok {
		return false, ErrNotFound
	}
	for _, id := range l.AssignedUserIDs {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memLocations) CountManaged(ctx context.Context, managerID string, t LocationType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, l := range s.locations {
		if !l.Deleted() && l.ManagerID == managerID && l.Type == t {
			count++
		}
	}
	return count, nil
}

// Items --------------------------------------------------------------------

type memItems InMemory

func (s *memItems) Create(ctx context.Context, i *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if !existing.Deleted() && existing.Code == i.Code {
			return ErrConflict
		}
	}
	if i.ID == "" {
		i.ID = ids.New()
	}
	now := s.now().UTC()
	i.CreatedAt = now
	i.UpdatedAt = now
	cp := *i
	s.items[i.ID] = &cp
	return nil
}

func (s *memItems) Find(ctx context.Context, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.items[id]
	if !ok || i.Deleted() {
		return nil, ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (s *memItems) FindByCode(ctx context.Context, code string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.items {
		if !i.Deleted() && i.Code == code {
			cp := *i
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memItems) List(ctx context.Context) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Item
	for _, i := range s.items {
		if i.Deleted() {
			continue
		}
		cp := *i
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Code < out[b].Code })
	return out, nil
}

func (s *memItems) Search(ctx context.Context, f ItemFilter) ([]*Item, int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	var filtered []*Item
	for _, i := range all {
		if f.Status != "" && i.Status != f.Status {
			continue
		}
		if !matchSubstr(i.Code, f.Search) && !matchSubstr(i.Description, f.Search) {
			continue
		}
		filtered = append(filtered, i)
	}
	page, total := paginate(filtered, f.Page, f.Limit)
	return page, total, nil
}

func (s *memItems) Update(ctx context.Context, i *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[i.ID]
	if !ok || existing.Deleted() {
		return ErrNotFound
	}
	for _, other := range s.items {
		if other.ID != i.ID && !other.Deleted() && other.Code == i.Code {
			return ErrConflict
		}
	}
	i.CreatedAt = existing.CreatedAt
	i.UpdatedAt = s.now().UTC()
	cp := *i
	s.items[i.ID] = &cp
	return nil
}

func (s *memItems) SoftDelete(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.items[id]
	if !ok || i.Deleted() {
		return ErrNotFound
	}
	at = at.UTC()
	i.DeletedAt = &at
	i.UpdatedAt = at
	return nil
}

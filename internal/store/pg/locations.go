package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bodega.org/internal/ids"
	"bodega.org/internal/inventory"
)

type locationStore Store

const locationColumns = `id, name, type, status, manager_id, created_at, updated_at, deleted_at`

func scanLocation(row interface{ Scan(...any) error }) (*inventory.Location, error) {
	var (
		l         inventory.Location
		managerID sql.NullString
		deletedAt sql.NullTime
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Type, &l.Status, &managerID,
		&l.CreatedAt, &l.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	l.ManagerID = stringOrEmpty(managerID)
	l.DeletedAt = timePtr(deletedAt)
	return &l, nil
}

func (s *locationStore) Create(ctx context.Context, l *inventory.Location) error {
	if l.ID == "" {
		l.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into locations (id, name, type, status, manager_id)
		values ($1, $2, $3, $4, $5)
		returning created_at, updated_at
	`, l.ID, l.Name, l.Type, l.Status, nullIfEmpty(l.ManagerID)).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *locationStore) Find(ctx context.Context, id string) (*inventory.Location, error) {
	l, err := scanLocation(s.db.QueryRowContext(ctx, `
		select `+locationColumns+` from locations
		where id = $1 and deleted_at is null
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachAssignments(ctx, []*inventory.Location{l}); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *locationStore) List(ctx context.Context) ([]*inventory.Location, error) {
	return s.query(ctx, `
		select `+locationColumns+` from locations
		where deleted_at is null
		order by name
	`)
}

func (s *locationStore) ListByType(ctx context.Context, t inventory.LocationType) ([]*inventory.Location, error) {
	return s.query(ctx, `
		select `+locationColumns+` from locations
		where type = $1 and deleted_at is null
		order by name
	`, t)
}

func (s *locationStore) ListByStatus(ctx context.Context, status string) ([]*inventory.Location, error) {
	return s.query(ctx, `
		select `+locationColumns+` from locations
		where status = $1 and deleted_at is null
		order by name
	`, status)
}

func (s *locationStore) Search(ctx context.Context, f inventory.LocationFilter) ([]*inventory.Location, int, error) {
	where := []string{"deleted_at is null"}
	var args []any
	idx := 1
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, fmt.Sprintf("name ilike $%d", idx))
		args = append(args, "%"+q+"%")
		idx++
	}
	if f.Type != "" {
		where = append(where, fmt.Sprintf("type = $%d", idx))
		args = append(args, f.Type)
		idx++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.ManagerID != "" {
		where = append(where, fmt.Sprintf("manager_id = $%d", idx))
		args = append(args, f.ManagerID)
		idx++
	}
	if f.HasManager != nil {
		if *f.HasManager {
			where = append(where, "manager_id is not null")
		} else {
			where = append(where, "manager_id is null")
		}
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from locations where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	locations, err := s.query(ctx, fmt.Sprintf(`
		select %s from locations where %s
		order by name
		limit $%d offset $%d
	`, locationColumns, cond, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	return locations, total, nil
}

func (s *locationStore) Update(ctx context.Context, l *inventory.Location) error {
	err := s.db.QueryRowContext(ctx, `
		update locations
		set name = $2, type = $3, status = $4, manager_id = $5, updated_at = now()
		where id = $1 and deleted_at is null
		returning updated_at
	`, l.ID, l.Name, l.Type, l.Status, nullIfEmpty(l.ManagerID)).Scan(&l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.ErrNotFound
	}
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *locationStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update locations set deleted_at = $2, updated_at = $2
		where id = $1 and deleted_at is null
	`, id, at.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func (s *locationStore) SetManager(ctx context.Context, locationID, managerID string) error {
	res, err := s.db.ExecContext(ctx, `
		update locations set manager_id = $2, updated_at = now()
		where id = $1 and deleted_at is null
	`, locationID, nullIfEmpty(managerID))
	if err != nil {
		return mapWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func (s *locationStore) AssignUser(ctx context.Context, locationID, userID string) error {
	if _, err := s.db.ExecContext(ctx, `
		insert into location_users (location_id, user_id)
		values ($1, $2)
	`, locationID, userID); err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *locationStore) UnassignUser(ctx context.Context, locationID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from location_users where location_id = $1 and user_id = $2
	`, locationID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func (s *locationStore) IsAssigned(ctx context.Context, locationID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(
			select 1 from location_users where location_id = $1 and user_id = $2
		)
	`, locationID, userID).Scan(&exists)
	return exists, err
}

func (s *locationStore) CountManaged(ctx context.Context, managerID string, t inventory.LocationType) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from locations
		where manager_id = $1 and type = $2 and deleted_at is null
	`, managerID, t).Scan(&count)
	return count, err
}

func (s *locationStore) query(ctx context.Context, q string, args ...any) ([]*inventory.Location, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*inventory.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachAssignments(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachAssignments fills AssignedUserIDs for the given locations in one query.
func (s *locationStore) attachAssignments(ctx context.Context, locations []*inventory.Location) error {
	if len(locations) == 0 {
		return nil
	}
	locationIDs := make([]string, 0, len(locations))
	byID := make(map[string]*inventory.Location, len(locations))
	for _, l := range locations {
		locationIDs = append(locationIDs, l.ID)
		byID[l.ID] = l
	}
	rows, err := s.db.QueryContext(ctx, `
		select location_id, user_id from location_users
		where location_id = any($1)
		order by assigned_at
	`, locationIDs)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var locationID, userID string
		if err := rows.Scan(&locationID, &userID); err != nil {
			return err
		}
		if l, ok := byID[locationID]; ok {
			l.AssignedUserIDs = append(l.AssignedUserIDs, userID)
		}
	}
	return rows.Err()
}

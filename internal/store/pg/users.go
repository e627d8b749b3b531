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

type userStore Store

const userColumns = `id, username, password_hash, name, email, role, status, location_id, created_at, updated_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*inventory.User, error) {
	var (
		u          inventory.User
		locationID sql.NullString
		deletedAt  sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Email,
		&u.Role, &u.Status, &locationID, &u.CreatedAt, &u.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	u.LocationID = stringOrEmpty(locationID)
	u.DeletedAt = timePtr(deletedAt)
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *inventory.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into users (id, username, password_hash, name, email, role, status, location_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning created_at, updated_at
	`, u.ID, u.Username, u.PasswordHash, u.Name, u.Email, u.Role, u.Status,
		nullIfEmpty(u.LocationID)).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*inventory.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+` from users
		where id = $1 and deleted_at is null
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	return u, err
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*inventory.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+` from users
		where username = $1 and deleted_at is null
	`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	return u, err
}

func (s *userStore) List(ctx context.Context) ([]*inventory.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+userColumns+` from users
		where deleted_at is null
		order by username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *userStore) Search(ctx context.Context, f inventory.UserFilter) ([]*inventory.User, int, error) {
	where := []string{"deleted_at is null"}
	var args []any
	idx := 1
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, fmt.Sprintf("(username ilike $%d or name ilike $%d or email ilike $%d)", idx, idx, idx))
		args = append(args, "%"+q+"%")
		idx++
	}
	if f.Role != "" {
		where = append(where, fmt.Sprintf("role = $%d", idx))
		args = append(args, f.Role)
		idx++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.LocationID != "" {
		where = append(where, fmt.Sprintf("location_id = $%d", idx))
		args = append(args, f.LocationID)
		idx++
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select %s from users where %s
		order by username
		limit $%d offset $%d
	`, userColumns, cond, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *userStore) Update(ctx context.Context, u *inventory.User) error {
	err := s.db.QueryRowContext(ctx, `
		update users
		set username = $2, password_hash = $3, name = $4, email = $5,
		    role = $6, status = $7, location_id = $8, updated_at = now()
		where id = $1 and deleted_at is null
		returning updated_at
	`, u.ID, u.Username, u.PasswordHash, u.Name, u.Email, u.Role, u.Status,
		nullIfEmpty(u.LocationID)).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.ErrNotFound
	}
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *userStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update users set deleted_at = $2, updated_at = $2
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

func collectUsers(rows *sql.Rows) ([]*inventory.User, error) {
	var result []*inventory.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

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

type itemStore Store

const itemColumns = `id, code, description, unit_of_measurement, status, created_at, updated_at, deleted_at`

func scanItem(row interface{ Scan(...any) error }) (*inventory.Item, error) {
	var (
		i         inventory.Item
		deletedAt sql.NullTime
	)
	if err := row.Scan(&i.ID, &i.Code, &i.Description, &i.UnitOfMeasurement,
		&i.Status, &i.CreatedAt, &i.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	i.DeletedAt = timePtr(deletedAt)
	return &i, nil
}

func (s *itemStore) Create(ctx context.Context, i *inventory.Item) error {
	if i.ID == "" {
		i.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into items (id, code, description, unit_of_measurement, status)
		values ($1, $2, $3, $4, $5)
		returning created_at, updated_at
	`, i.ID, i.Code, i.Description, i.UnitOfMeasurement, i.Status).Scan(&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *itemStore) Find(ctx context.Context, id string) (*inventory.Item, error) {
	i, err := scanItem(s.db.QueryRowContext(ctx, `
		select `+itemColumns+` from items
		where id = $1 and deleted_at is null
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	return i, err
}

func (s *itemStore) FindByCode(ctx context.Context, code string) (*inventory.Item, error) {
	i, err := scanItem(s.db.QueryRowContext(ctx, `
		select `+itemColumns+` from items
		where code = $1 and deleted_at is null
	`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	return i, err
}

func (s *itemStore) List(ctx context.Context) ([]*inventory.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+itemColumns+` from items
		where deleted_at is null
		order by code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (s *itemStore) Search(ctx context.Context, f inventory.ItemFilter) ([]*inventory.Item, int, error) {
	where := []string{"deleted_at is null"}
	var args []any
	idx := 1
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, fmt.Sprintf("(code ilike $%d or description ilike $%d)", idx, idx))
		args = append(args, "%"+q+"%")
		idx++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from items where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select %s from items where %s
		order by code
		limit $%d offset $%d
	`, itemColumns, cond, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *itemStore) Update(ctx context.Context, i *inventory.Item) error {
	err := s.db.QueryRowContext(ctx, `
		update items
		set code = $2, description = $3, unit_of_measurement = $4, status = $5, updated_at = now()
		where id = $1 and deleted_at is null
		returning updated_at
	`, i.ID, i.Code, i.Description, i.UnitOfMeasurement, i.Status).Scan(&i.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.ErrNotFound
	}
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *itemStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update items set deleted_at = $2, updated_at = $2
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

func collectItems(rows *sql.Rows) ([]*inventory.Item, error) {
	var result []*inventory.Item
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

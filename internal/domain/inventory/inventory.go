// Package inventory manages the demo item catalog backed by SQLite.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidItem  = errors.New("invalid item")
)

type Item struct {
	ID          int64
	Name        string
	Description *string
	Price       float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateItemInput struct {
	Name        string
	Description *string
	Price       float64
}

type UpdateItemInput struct {
	Name        *string
	Description *string
	Price       *float64
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, created_at, updated_at
		FROM item
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, created_at, updated_at
		FROM item
		WHERE id = ?
	`, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrItemNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

func (s *Service) Create(ctx context.Context, in CreateItemInput) (*Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidItem)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO item (name, description, price)
		VALUES (?, ?, ?)
	`, name, in.Description, in.Price)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateItemInput) (*Item, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidItem)
		}
		current.Name = name
	}
	if in.Description != nil {
		current.Description = in.Description
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, fmt.Errorf("%w: price must be positive", ErrInvalidItem)
		}
		current.Price = *in.Price
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE item
		SET name = ?, description = ?, price = ?, updated_at = datetime('now')
		WHERE id = ?
	`, current.Name, current.Description, current.Price, id)
	if err != nil {
		return nil, fmt.Errorf("update item %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM item WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrItemNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		createdAt string
		updatedAt string
	)
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Price, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	item.CreatedAt = parseSQLiteTime(createdAt)
	item.UpdatedAt = parseSQLiteTime(updatedAt)
	return &item, nil
}

// parseSQLiteTime handles the datetime('now') text format. A zero time is
// returned for unparseable values rather than failing the whole query.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Package menu provides the catalog of menu items and its PostgreSQL repository.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("menu item not found")
	ErrInvalid  = errors.New("invalid menu item")
)

type Query struct {
	Q             string
	Category      string
	OnlyAvailable bool
	Limit         int
	Offset        int
}

type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Item, error)
	List(ctx context.Context, q Query) ([]Item, error)
	Update(ctx context.Context, id string, req UpdateItemRequest) (*Item, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Validate checks the rules shared by create and update.
func Validate(it *Item) error {
	switch {
	case strings.TrimSpace(it.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case !it.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalid)
	case it.Stock < 0:
		return fmt.Errorf("%w: stock must be non-negative", ErrInvalid)
	}
	return nil
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const itemColumns = `id, name, description, category, price::text, stock, unlimited_stock, available, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Category, &it.Price,
		&it.Stock, &it.Unlimited, &it.Available, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PGRepo) Create(ctx context.Context, it *Item) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.db.QueryRow(ctx, `
		INSERT INTO menu_items (id, name, description, category, price, stock, unlimited_stock, available, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
		RETURNING created_at, updated_at
	`, it.ID, it.Name, it.Description, it.Category, it.Price.String(), it.Stock, it.Unlimited, it.Available).
		Scan(&it.CreatedAt, &it.UpdatedAt)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	it, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return it, err
}

// GetMany loads the given ids in one query, keyed by canonical id. Unknown
// and malformed ids are simply absent from the map.
func (r *PGRepo) GetMany(ctx context.Context, ids []string) (map[string]*Item, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			valid = append(valid, u.String())
		}
	}
	out := make(map[string]*Item, len(valid))
	if len(valid) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM menu_items
		WHERE ($1 = '' OR name ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%')
		  AND ($2 = '' OR category = $2)
		  AND (NOT $3 OR available)
		ORDER BY category, name
		LIMIT $4 OFFSET $5
	`, strings.TrimSpace(q.Q), strings.TrimSpace(q.Category), q.OnlyAvailable, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// Update writes only the fields present in req. Stock is decremented
// concurrently by order confirmation, so a PATCH that leaves it out must not
// write it back.
func (r *PGRepo) Update(ctx context.Context, id string, req UpdateItemRequest) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var price *string
	if req.Price != nil {
		p := req.Price.String()
		price = &p
	}
	it, err := scanItem(r.db.QueryRow(ctx, `
		UPDATE menu_items
		SET name            = COALESCE($2, name),
		    description     = COALESCE($3, description),
		    category        = COALESCE($4, category),
		    price           = COALESCE($5::numeric, price),
		    stock           = COALESCE($6, stock),
		    unlimited_stock = COALESCE($7, unlimited_stock),
		    available       = COALESCE($8, available),
		    updated_at      = NOW()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, req.Name, req.Description, req.Category, price, req.Stock, req.Unlimited, req.Available))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return it, err
}

func (r *PGRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM menu_items WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

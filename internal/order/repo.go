package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Filter struct {
	Status Status
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Tx is the set of writes that must commit together.
type Tx interface {
	// Insert stores o with its items and assigns o.InvoiceNo from the per-day sequence.
	Insert(ctx context.Context, o *Order, items []Item) error
	// Lock loads the order and holds it until the transaction ends.
	Lock(ctx context.Context, id string) (*Order, []Item, error)
	// TakeStock decrements a menu item's stock, failing instead of going negative.
	TakeStock(ctx context.Context, menuItemID string, qty int) error
	ReturnStock(ctx context.Context, menuItemID string, qty int) error
	SetStatus(ctx context.Context, o *Order, s Status) error
}

type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetByID(ctx context.Context, id string) (*Order, []Item, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	CreatedAfter(ctx context.Context, t time.Time) ([]Order, error)
	UpdatedAfter(ctx context.Context, t time.Time) ([]Order, error)
	Stats(ctx context.Context, from, to time.Time, topN int) (*Stats, error)
}

type PGRepo struct {
	db     *pgxpool.Pool
	loc    *time.Location
	prefix string
}

func NewPGRepo(db *pgxpool.Pool, loc *time.Location, invoicePrefix string) *PGRepo {
	return &PGRepo{db: db, loc: loc, prefix: invoicePrefix}
}

const orderColumns = `id, invoice_no, user_id, customer_name, walk_in, payment_method, status, total::text, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.InvoiceNo, &o.UserID, &o.CustomerName, &o.WalkIn,
		&o.PaymentMethod, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryOrders(ctx context.Context, q querier, sql string, args ...any) ([]Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func queryItems(ctx context.Context, q querier, orderID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
    SELECT id, order_id, COALESCE(menu_item_id::text, ''), name, price::text, quantity
    FROM order_items WHERE order_id=$1
    ORDER BY name
  `, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx, loc: r.loc, prefix: r.prefix}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ErrOrderNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	items, err := queryItems(ctx, r.db, id)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (r *PGRepo) List(ctx context.Context, f Filter) ([]Order, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return queryOrders(ctx, r.db, `
    SELECT `+orderColumns+`
    FROM orders
    WHERE ($1 = '' OR status = $1)
      AND ($2 = '' OR user_id::text = $2)
      AND ($3::timestamptz IS NULL OR created_at >= $3)
      AND ($4::timestamptz IS NULL OR created_at < $4)
    ORDER BY created_at DESC LIMIT $5 OFFSET $6
  `, string(f.Status), f.UserID, nullTime(f.From), nullTime(f.To), limit, offset)
}

func (r *PGRepo) CreatedAfter(ctx context.Context, t time.Time) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return queryOrders(ctx, r.db, `
    SELECT `+orderColumns+` FROM orders
    WHERE created_at > $1 ORDER BY created_at
  `, t)
}

func (r *PGRepo) UpdatedAfter(ctx context.Context, t time.Time) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return queryOrders(ctx, r.db, `
    SELECT `+orderColumns+` FROM orders
    WHERE updated_at > $1 ORDER BY updated_at
  `, t)
}

// Stats counts orders created in [from, to). Revenue and item sales only
// include orders that have been paid. topN <= 0 returns every item.
func (r *PGRepo) Stats(ctx context.Context, from, to time.Time, topN int) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	st := &Stats{From: from, To: to, TopItems: []ItemSales{}}
	if err := r.db.QueryRow(ctx, `
    SELECT
      COUNT(*) FILTER (WHERE status <> 'cancelled'),
      COUNT(*) FILTER (WHERE status = 'pending'),
      COUNT(*) FILTER (WHERE status = 'cancelled'),
      COUNT(*) FILTER (WHERE walk_in AND status <> 'cancelled'),
      COALESCE(SUM(total) FILTER (WHERE status = ANY($3)), 0)::text
    FROM orders
    WHERE created_at >= $1 AND created_at < $2
  `, from, to, settledStatuses()).Scan(&st.Orders, &st.Pending, &st.Cancelled, &st.WalkIn, &st.Revenue); err != nil {
		return nil, err
	}

	var limit any
	if topN > 0 {
		limit = topN
	}
	rows, err := r.db.Query(ctx, `
    SELECT oi.name, SUM(oi.quantity), SUM(oi.price * oi.quantity)::text
    FROM order_items oi
    JOIN orders o ON o.id = oi.order_id
    WHERE o.created_at >= $1 AND o.created_at < $2 AND o.status = ANY($3)
    GROUP BY oi.name
    ORDER BY SUM(oi.quantity) DESC, oi.name
    LIMIT $4
  `, from, to, settledStatuses(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s ItemSales
		if err := rows.Scan(&s.Name, &s.Quantity, &s.Revenue); err != nil {
			return nil, err
		}
		st.TopItems = append(st.TopItems, s)
	}
	return st, rows.Err()
}

type pgTx struct {
	tx     pgx.Tx
	loc    *time.Location
	prefix string
}

func (t *pgTx) Insert(ctx context.Context, o *Order, items []Item) error {
	day := BusinessDay(o.CreatedAt, t.loc)

	// The counter row stays locked until commit, so concurrent checkouts on
	// the same day are handed distinct numbers.
	var seq int
	if err := t.tx.QueryRow(ctx, `
    INSERT INTO invoice_counters (day, last_seq) VALUES ($1, 1)
    ON CONFLICT (day) DO UPDATE SET last_seq = invoice_counters.last_seq + 1
    RETURNING last_seq
  `, time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)).Scan(&seq); err != nil {
		return fmt.Errorf("allocate invoice number: %w", err)
	}
	o.InvoiceNo = FormatInvoice(t.prefix, day, seq)

	if _, err := t.tx.Exec(ctx, `
    INSERT INTO orders (id, invoice_no, user_id, customer_name, walk_in, payment_method, status, total, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
  `, o.ID, o.InvoiceNo, o.UserID, o.CustomerName, o.WalkIn, string(o.PaymentMethod), string(o.Status),
		o.Total.String(), o.CreatedAt); err != nil {
		return err
	}
	o.UpdatedAt = o.CreatedAt

	for i := range items {
		it := &items[i]
		it.OrderID = o.ID
		if _, err := t.tx.Exec(ctx, `
      INSERT INTO order_items (id, order_id, menu_item_id, name, price, quantity)
      VALUES ($1,$2,$3,$4,$5,$6)
    `, it.ID, o.ID, it.MenuItemID, it.Name, it.Price.String(), it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) Lock(ctx context.Context, id string) (*Order, []Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ErrOrderNotFound
	}
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	items, err := queryItems(ctx, t.tx, id)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func (t *pgTx) TakeStock(ctx context.Context, menuItemID string, qty int) error {
	if menuItemID == "" {
		return ErrItemGone
	}
	tag, err := t.tx.Exec(ctx, `
    UPDATE menu_items
    SET stock = CASE WHEN unlimited_stock THEN stock ELSE stock - $2 END,
        updated_at = NOW()
    WHERE id = $1 AND (unlimited_stock OR stock >= $2)
  `, menuItemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var name string
	var left int
	err = t.tx.QueryRow(ctx, `SELECT name, stock FROM menu_items WHERE id=$1`, menuItemID).Scan(&name, &left)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrItemGone, menuItemID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w for %q: requested %d, %d left", ErrInsufficientStock, name, qty, left)
}

func (t *pgTx) ReturnStock(ctx context.Context, menuItemID string, qty int) error {
	if menuItemID == "" {
		return nil
	}
	_, err := t.tx.Exec(ctx, `
    UPDATE menu_items SET stock = stock + $2, updated_at = NOW()
    WHERE id = $1 AND NOT unlimited_stock
  `, menuItemID, qty)
	return err
}

func (t *pgTx) SetStatus(ctx context.Context, o *Order, s Status) error {
	var updated time.Time
	err := t.tx.QueryRow(ctx, `
    UPDATE orders SET status = $2, updated_at = clock_timestamp()
    WHERE id = $1
    RETURNING updated_at
  `, o.ID, string(s)).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	o.Status = s
	o.UpdatedAt = updated
	return nil
}

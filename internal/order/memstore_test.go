package order

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/canteen/internal/menu"
)

//
// ===== IN-MEMORY STORE (implements Repository, Tx and Catalog) =====
//
// One mutex serialises transactions; a failed transaction restores the
// snapshot taken when it began.

type memStore struct {
	mu       sync.Mutex
	loc      *time.Location
	prefix   string
	menu     map[string]*menu.Item
	orders   map[string]*Order
	items    map[string][]Item
	seq      map[string]int
	failTake map[string]error
}

func newMemStore(loc *time.Location) *memStore {
	return &memStore{
		loc:      loc,
		prefix:   "CAN",
		menu:     map[string]*menu.Item{},
		orders:   map[string]*Order{},
		items:    map[string][]Item{},
		seq:      map[string]int{},
		failTake: map[string]error{},
	}
}

func (m *memStore) addItem(id, name, price string, stock int, unlimited, available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menu[id] = &menu.Item{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Unlimited: unlimited,
		Available: available,
	}
}

func (m *memStore) stockOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.menu[id].Stock
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memSnapshot struct {
	menu   map[string]menu.Item
	orders map[string]Order
	items  map[string][]Item
	seq    map[string]int
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		menu:   map[string]menu.Item{},
		orders: map[string]Order{},
		items:  map[string][]Item{},
		seq:    map[string]int{},
	}
	for k, v := range m.menu {
		s.menu[k] = *v
	}
	for k, v := range m.orders {
		s.orders[k] = *v
	}
	for k, v := range m.items {
		s.items[k] = append([]Item(nil), v...)
	}
	for k, v := range m.seq {
		s.seq[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.menu = map[string]*menu.Item{}
	for k, v := range s.menu {
		v := v
		m.menu[k] = &v
	}
	m.orders = map[string]*Order{}
	for k, v := range s.orders {
		v := v
		m.orders[k] = &v
	}
	m.items = s.items
	m.seq = s.seq
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(memTx{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Order, []Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, append([]Item(nil), m.items[id]...), nil
}

func (m *memStore) List(ctx context.Context, f Filter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Order{}
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.UserID != "" && (o.UserID == nil || *o.UserID != f.UserID) {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNo > out[j].InvoiceNo })
	return out, nil
}

func (m *memStore) CreatedAfter(ctx context.Context, t time.Time) ([]Order, error) {
	return nil, nil
}

func (m *memStore) UpdatedAfter(ctx context.Context, t time.Time) ([]Order, error) {
	return nil, nil
}

func (m *memStore) Stats(ctx context.Context, from, to time.Time, topN int) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &Stats{From: from, To: to, Revenue: decimal.Zero}
	for _, o := range m.orders {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		switch {
		case o.Status == StatusCancelled:
			st.Cancelled++
			continue
		case o.Status == StatusPending:
			st.Pending++
		case o.Status.Settled():
			st.Revenue = st.Revenue.Add(o.Total)
		}
		st.Orders++
	}
	return st, nil
}

func (m *memStore) GetMany(ctx context.Context, ids []string) (map[string]*menu.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]*menu.Item{}
	for _, id := range ids {
		if it, ok := m.menu[id]; ok {
			cp := *it
			out[id] = &cp
		}
	}
	return out, nil
}

type memTx struct{ m *memStore }

// Insert mirrors pgTx.Insert: the invoice_counters upsert bumps last_seq for
// the business day and the UNIQUE invoice_no constraint rejects a reuse.
func (t memTx) Insert(ctx context.Context, o *Order, items []Item) error {
	day := BusinessDay(o.CreatedAt, t.m.loc)
	key := day.Format("2006-01-02")
	t.m.seq[key]++
	o.InvoiceNo = FormatInvoice(t.m.prefix, day, t.m.seq[key])
	for _, ex := range t.m.orders {
		if ex.InvoiceNo == o.InvoiceNo {
			return fmt.Errorf("duplicate invoice %s", o.InvoiceNo)
		}
	}
	for i := range items {
		items[i].OrderID = o.ID
	}
	cp := *o
	t.m.orders[o.ID] = &cp
	t.m.items[o.ID] = append([]Item(nil), items...)
	return nil
}

func (t memTx) Lock(ctx context.Context, id string) (*Order, []Item, error) {
	o, ok := t.m.orders[id]
	if !ok {
		return nil, nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, append([]Item(nil), t.m.items[id]...), nil
}

// TakeStock mirrors the predicate of pgTx.TakeStock:
//
//	UPDATE menu_items ... WHERE id = $1 AND (unlimited_stock OR stock >= $2)
//
// a missing row is ErrItemGone, an unmatched predicate is ErrInsufficientStock.
// repo_pg_test.go runs the same cases against PostgreSQL.
func (t memTx) TakeStock(ctx context.Context, id string, qty int) error {
	if err := t.m.failTake[id]; err != nil {
		return err
	}
	it, ok := t.m.menu[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemGone, id)
	}
	if it.Unlimited {
		return nil
	}
	if it.Stock < qty {
		return fmt.Errorf("%w for %q: requested %d, %d left", ErrInsufficientStock, it.Name, qty, it.Stock)
	}
	it.Stock -= qty
	return nil
}

func (t memTx) ReturnStock(ctx context.Context, id string, qty int) error {
	if it, ok := t.m.menu[id]; ok && !it.Unlimited {
		it.Stock += qty
	}
	return nil
}

func (t memTx) SetStatus(ctx context.Context, o *Order, s Status) error {
	cur, ok := t.m.orders[o.ID]
	if !ok {
		return ErrOrderNotFound
	}
	cur.Status = s
	cur.UpdatedAt = cur.UpdatedAt.Add(time.Second)
	o.Status, o.UpdatedAt = cur.Status, cur.UpdatedAt
	return nil
}

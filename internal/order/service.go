package order

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/canteen/internal/menu"
	"github.com/MikeMC777/canteen/internal/payment"
	"github.com/MikeMC777/canteen/internal/requestid"
)

// Catalog is the read side of the menu the workflow prices carts against.
type Catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]*menu.Item, error)
}

// Notifier hears about orders after their transaction has committed.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order)
	OrderUpdated(ctx context.Context, o *Order)
}

type nopNotifier struct{}

func (nopNotifier) OrderCreated(context.Context, *Order) {}
func (nopNotifier) OrderUpdated(context.Context, *Order) {}

type Service struct {
	repo    Repository
	catalog Catalog
	notify  Notifier
	loc     *time.Location
	now     func() time.Time
}

func NewService(repo Repository, catalog Catalog, notify Notifier, loc *time.Location) *Service {
	if notify == nil {
		notify = nopNotifier{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, catalog: catalog, notify: notify, loc: loc, now: time.Now}
}

// PlaceOrder turns a customer's cart into a pending UPI order. Stock is checked
// but not taken; that happens in ConfirmPayment.
func (s *Service) PlaceOrder(ctx context.Context, c Caller, lines []CartLine, pay payment.Config) (*Checkout, error) {
	if !c.Authenticated() {
		return nil, ErrUnauthenticated
	}
	items, total, err := s.price(ctx, lines)
	if err != nil {
		return nil, err
	}
	if pay.PayeeID == "" {
		return nil, ErrPaymentUnavailable
	}

	uid := c.UserID
	o := s.newOrder(total)
	o.UserID = &uid
	o.PaymentMethod = MethodUPI

	if err := s.repo.InTx(ctx, func(tx Tx) error {
		return tx.Insert(ctx, o, items)
	}); err != nil {
		return nil, err
	}
	log.Printf("[order] rid=%s placed %s total=%s user=%s", requestid.From(ctx), o.InvoiceNo, o.Total.StringFixed(2), uid)
	s.notify.OrderCreated(ctx, o)

	return s.checkout(o, items, pay)
}

// PlaceWalkIn records a counter sale. Cash sales are settled on the spot: the
// order is written as paid and stock is taken in the same transaction.
func (s *Service) PlaceWalkIn(ctx context.Context, c Caller, req WalkInRequest, pay payment.Config) (*Checkout, error) {
	if !c.IsAdmin {
		return nil, ErrForbidden
	}
	if req.PaymentMethod != MethodCash && req.PaymentMethod != MethodUPI {
		return nil, ErrBadMethod
	}
	items, total, err := s.price(ctx, Lines(req.Items))
	if err != nil {
		return nil, err
	}
	if req.PaymentMethod == MethodUPI && pay.PayeeID == "" {
		return nil, ErrPaymentUnavailable
	}

	o := s.newOrder(total)
	o.WalkIn = true
	o.CustomerName = strings.TrimSpace(req.CustomerName)
	o.PaymentMethod = req.PaymentMethod
	if req.PaymentMethod == MethodCash {
		o.Status = StatusPaid
	}

	if err := s.repo.InTx(ctx, func(tx Tx) error {
		if err := tx.Insert(ctx, o, items); err != nil {
			return err
		}
		if o.Status.Settled() {
			return takeStock(ctx, tx, items)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	log.Printf("[order] rid=%s walk-in %s method=%s total=%s", requestid.From(ctx), o.InvoiceNo, o.PaymentMethod, o.Total.StringFixed(2))
	s.notify.OrderCreated(ctx, o)

	return s.checkout(o, items, pay)
}

// ConfirmPayment marks a pending order paid and takes its stock, all or nothing.
// A second confirmation fails with ErrNotPending and changes nothing.
func (s *Service) ConfirmPayment(ctx context.Context, c Caller, id string) (*Order, error) {
	if !c.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var o *Order
	err := s.repo.InTx(ctx, func(tx Tx) error {
		cur, items, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(c, cur); err != nil {
			return err
		}
		if cur.Status != StatusPending {
			return fmt.Errorf("%w: %s is %s", ErrNotPending, cur.InvoiceNo, cur.Status)
		}
		if err := takeStock(ctx, tx, items); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, cur, StatusPaid); err != nil {
			return err
		}
		o = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[order] rid=%s paid %s", requestid.From(ctx), o.InvoiceNo)
	s.notify.OrderUpdated(ctx, o)
	return o, nil
}

// UpdateStatus lets an admin move an order to any status. Stock follows the
// change: entering a settled status takes it, leaving one returns it.
// Completed and cancelled orders are closed.
func (s *Service) UpdateStatus(ctx context.Context, c Caller, id string, to Status) (*Order, error) {
	if !c.IsAdmin {
		return nil, ErrForbidden
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrBadStatus, to)
	}
	var o *Order
	err := s.repo.InTx(ctx, func(tx Tx) error {
		cur, items, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		from := cur.Status
		if from == to {
			o = cur
			return nil
		}
		if from.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrFinal, cur.InvoiceNo, from)
		}
		switch {
		case !from.Settled() && to.Settled():
			err = takeStock(ctx, tx, items)
		case from.Settled() && !to.Settled():
			err = returnStock(ctx, tx, items)
		}
		if err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, cur, to); err != nil {
			return err
		}
		o = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[order] rid=%s %s -> %s", requestid.From(ctx), o.InvoiceNo, o.Status)
	s.notify.OrderUpdated(ctx, o)
	return o, nil
}

// Get returns an order to its owner or to an admin.
func (s *Service) Get(ctx context.Context, c Caller, id string) (*Order, []Item, error) {
	if !c.Authenticated() {
		return nil, nil, ErrUnauthenticated
	}
	o, items, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(c, o); err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func (s *Service) ListMine(ctx context.Context, c Caller, limit, offset int) ([]Order, error) {
	if !c.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return s.repo.List(ctx, Filter{UserID: c.UserID, Limit: limit, Offset: offset})
}

func (s *Service) List(ctx context.Context, c Caller, f Filter) ([]Order, error) {
	if !c.IsAdmin {
		return nil, ErrForbidden
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrBadStatus, f.Status)
	}
	return s.repo.List(ctx, f)
}

// Dashboard summarises the business day containing day.
func (s *Service) Dashboard(ctx context.Context, c Caller, day time.Time, topN int) (*Stats, error) {
	if !c.IsAdmin {
		return nil, ErrForbidden
	}
	from := BusinessDay(day, s.loc)
	return s.repo.Stats(ctx, from, from.AddDate(0, 0, 1), topN)
}

// Today is the current business day in the service's timezone.
func (s *Service) Today() time.Time { return BusinessDay(s.now(), s.loc) }

func (s *Service) Location() *time.Location { return s.loc }

func authorize(c Caller, o *Order) error {
	if c.IsAdmin {
		return nil
	}
	if o.WalkIn || o.UserID == nil || *o.UserID != c.UserID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) newOrder(total decimal.Decimal) *Order {
	now := s.now().UTC()
	return &Order{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Total:     total,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// price validates the cart against the catalog and snapshots names and prices.
// Lines for the same item are merged so the stock check sees the full quantity.
func (s *Service) price(ctx context.Context, lines []CartLine) ([]Item, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, ErrEmptyCart
	}
	qty := make(map[string]int, len(lines))
	var ids []string
	for _, l := range lines {
		id := strings.TrimSpace(l.MenuItemID)
		if id == "" {
			return nil, decimal.Zero, fmt.Errorf("%w: menu_item_id is required", ErrValidation)
		}
		// catalog ids come back in canonical lowercase form
		if u, err := uuid.Parse(id); err == nil {
			id = u.String()
		}
		if l.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w (item %s, got %d)", ErrBadQuantity, id, l.Quantity)
		}
		if _, seen := qty[id]; !seen {
			ids = append(ids, id)
		}
		qty[id] += l.Quantity
	}

	found, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	items := make([]Item, 0, len(ids))
	total := decimal.Zero
	for _, id := range ids {
		mi, ok := found[id]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		n := qty[id]
		if !mi.Available {
			return nil, decimal.Zero, fmt.Errorf("%w: %q", ErrUnavailable, mi.Name)
		}
		if !mi.HasStock(n) {
			return nil, decimal.Zero, fmt.Errorf("%w for %q: requested %d, %d left", ErrInsufficientStock, mi.Name, n, mi.Stock)
		}
		it := Item{
			ID:         uuid.NewString(),
			MenuItemID: mi.ID,
			Name:       mi.Name,
			Price:      mi.Price,
			Quantity:   n,
		}
		total = total.Add(it.LineTotal())
		items = append(items, it)
	}
	return items, total, nil
}

func (s *Service) checkout(o *Order, items []Item, pay payment.Config) (*Checkout, error) {
	out := &Checkout{
		Order: o,
		Items: items,
		Payment: payment.Payload{
			Method: string(o.PaymentMethod),
			Amount: o.Total.StringFixed(2),
			Note:   o.InvoiceNo,
		},
	}
	if o.PaymentMethod == MethodUPI {
		uri, err := payment.UPIURI(pay, o.Total, o.InvoiceNo)
		if err != nil {
			return nil, err
		}
		out.Payment.URI = uri
		out.Payment.QRPath = "/orders/" + o.ID + "/qr.png"
	}
	return out, nil
}

// stockByItem sums quantities per menu item in id order, so concurrent
// transactions lock menu rows in the same sequence.
func stockByItem(items []Item) ([]string, map[string]int) {
	qty := make(map[string]int, len(items))
	for _, it := range items {
		qty[it.MenuItemID] += it.Quantity
	}
	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, qty
}

func takeStock(ctx context.Context, tx Tx, items []Item) error {
	ids, qty := stockByItem(items)
	for _, id := range ids {
		if err := tx.TakeStock(ctx, id, qty[id]); err != nil {
			return err
		}
	}
	return nil
}

func returnStock(ctx context.Context, tx Tx, items []Item) error {
	ids, qty := stockByItem(items)
	for _, id := range ids {
		if err := tx.ReturnStock(ctx, id, qty[id]); err != nil {
			return err
		}
	}
	return nil
}

package order

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/canteen/internal/payment"
)

var (
	ist      = time.FixedZone("IST", 5*3600+1800)
	upi      = payment.Config{PayeeID: "canteen@okaxis", PayeeName: "Campus Canteen"}
	customer = Caller{UserID: "user-1"}
	other    = Caller{UserID: "user-2"}
	admin    = Caller{UserID: "admin-1", IsAdmin: true}
)

func init() {
	log.SetOutput(io.Discard)
}

type recorder struct {
	mu      sync.Mutex
	created []string
	updated []string
}

func (r *recorder) OrderCreated(_ context.Context, o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, o.InvoiceNo)
}

func (r *recorder) OrderUpdated(_ context.Context, o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, string(o.Status))
}

func newTestService(t *testing.T) (*Service, *memStore, *recorder) {
	t.Helper()
	store := newMemStore(ist)
	store.addItem("item-a", "Masala Dosa", "50", 3, false, true)
	rec := &recorder{}
	svc := NewService(store, store, rec, ist)
	clock := time.Date(2026, 10, 18, 9, 30, 0, 0, ist)
	svc.now = func() time.Time { return clock }
	return svc, store, rec
}

func cart(pairs ...any) []CartLine {
	var out []CartLine
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, CartLine{MenuItemID: pairs[i].(string), Quantity: pairs[i+1].(int)})
	}
	return out
}

func TestPlaceOrder_TotalStatusAndInvoice(t *testing.T) {
	svc, store, rec := newTestService(t)

	co, err := svc.PlaceOrder(context.Background(), customer, cart("item-a", 2), upi)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	o := co.Order
	if !o.Total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total=%s, want 100", o.Total)
	}
	if o.Status != StatusPending {
		t.Fatalf("status=%s, want pending", o.Status)
	}
	if o.InvoiceNo != "CAN-20261018-0001" {
		t.Fatalf("invoice=%s", o.InvoiceNo)
	}
	if o.UserID == nil || *o.UserID != customer.UserID || o.WalkIn {
		t.Fatalf("ownership wrong: %+v", o)
	}

	sum := decimal.Zero
	for _, it := range co.Items {
		sum = sum.Add(it.LineTotal())
	}
	if !sum.Equal(o.Total) {
		t.Fatalf("line sum=%s, total=%s", sum, o.Total)
	}
	if store.stockOf("item-a") != 3 {
		t.Fatalf("placing an order must not take stock, stock=%d", store.stockOf("item-a"))
	}
	if !strings.Contains(co.Payment.URI, "tn=CAN-20261018-0001") || !strings.Contains(co.Payment.URI, "am=100.00") {
		t.Fatalf("payment uri=%s", co.Payment.URI)
	}
	if len(rec.created) != 1 {
		t.Fatalf("notifier saw %d creations", len(rec.created))
	}
}

func TestPlaceOrder_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		caller Caller
		lines  []CartLine
		pay    payment.Config
		want   error
	}{
		{"anonymous", Caller{}, cart("item-a", 1), upi, ErrUnauthorized},
		{"empty cart", customer, nil, upi, ErrEmptyCart},
		{"zero quantity", customer, cart("item-a", 0), upi, ErrValidation},
		{"negative quantity", customer, cart("item-a", -1), upi, ErrBadQuantity},
		{"unknown item", customer, cart("nope", 1), upi, ErrNotFound},
		{"unavailable item", customer, cart("item-off", 1), upi, ErrUnavailable},
		{"sold out", customer, cart("item-zero", 1), upi, ErrInsufficientStock},
		{"more than stock", customer, cart("item-a", 4), upi, ErrConflict},
		{"one bad line fails the cart", customer, cart("item-a", 1, "item-zero", 1), upi, ErrInsufficientStock},
		{"duplicate lines are summed", customer, cart("item-a", 2, "item-a", 2), upi, ErrInsufficientStock},
		{"upi not configured", customer, cart("item-a", 1), payment.Config{}, ErrPaymentUnavailable},
		{"empty cart checked before payee", customer, nil, payment.Config{}, ErrEmptyCart},
		{"bad quantity checked before payee", customer, cart("item-a", 0), payment.Config{}, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			store.addItem("item-off", "Idli", "30", 10, false, false)
			store.addItem("item-zero", "Vada", "20", 0, false, true)

			_, err := svc.PlaceOrder(context.Background(), tc.caller, tc.lines, tc.pay)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v, want %v", err, tc.want)
			}
			if n := store.orderCount(); n != 0 {
				t.Fatalf("%d orders persisted after rejection", n)
			}
		})
	}
}

func TestPlaceOrder_ItemIDCaseInsensitive(t *testing.T) {
	svc, store, _ := newTestService(t)
	const id = "4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"
	store.addItem(id, "Paneer Roll", "70", 5, false, true)

	co, err := svc.PlaceOrder(context.Background(), customer, cart(strings.ToUpper(id), 1, " "+id+" ", 1), upi)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if len(co.Items) != 1 || co.Items[0].MenuItemID != id || co.Items[0].Quantity != 2 {
		t.Fatalf("items=%+v, want one line of 2 for %s", co.Items, id)
	}
}

func TestPlaceWalkIn_CartCheckedBeforePayee(t *testing.T) {
	svc, _, _ := newTestService(t)
	req := WalkInRequest{PaymentMethod: MethodUPI}
	if _, err := svc.PlaceWalkIn(context.Background(), admin, req, payment.Config{}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("err=%v, want empty cart", err)
	}
}

func TestPlaceOrder_ErrorNamesTheItem(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addItem("item-zero", "Vada", "20", 0, false, true)

	_, err := svc.PlaceOrder(context.Background(), customer, cart("item-zero", 1), upi)
	if err == nil || !strings.Contains(err.Error(), "Vada") {
		t.Fatalf("error should name the item: %v", err)
	}
}

func TestPlaceOrder_UnlimitedStockIgnoresCount(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addItem("item-tea", "Tea", "10", 0, true, true)

	co, err := svc.PlaceOrder(context.Background(), customer, cart("item-tea", 5), upi)
	if err != nil {
		t.Fatalf("unlimited item rejected: %v", err)
	}
	if _, err := svc.ConfirmPayment(context.Background(), customer, co.Order.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := store.stockOf("item-tea"); got != 0 {
		t.Fatalf("unlimited stock changed to %d", got)
	}
}

func TestConfirmPayment_TakesStockOnce(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()

	co, err := svc.PlaceOrder(ctx, customer, cart("item-a", 2), upi)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	o, err := svc.ConfirmPayment(ctx, customer, co.Order.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if o.Status != StatusPaid {
		t.Fatalf("status=%s, want paid", o.Status)
	}
	if got := store.stockOf("item-a"); got != 1 {
		t.Fatalf("stock=%d, want 1", got)
	}

	_, err = svc.ConfirmPayment(ctx, customer, co.Order.ID)
	if !errors.Is(err, ErrNotPending) {
		t.Fatalf("second confirm err=%v, want ErrNotPending", err)
	}
	if got := store.stockOf("item-a"); got != 1 {
		t.Fatalf("second confirm changed stock to %d", got)
	}
	if len(rec.updated) != 1 {
		t.Fatalf("notifier saw %d updates, want 1", len(rec.updated))
	}
}

func TestConfirmPayment_RevalidatesStock(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.PlaceOrder(ctx, customer, cart("item-a", 2), upi)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.PlaceOrder(ctx, other, cart("item-a", 2), upi)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, c := range []struct {
		caller Caller
		id     string
	}{{customer, first.Order.ID}, {other, second.Order.ID}} {
		wg.Add(1)
		go func(i int, caller Caller, id string) {
			defer wg.Done()
			_, errs[i] = svc.ConfirmPayment(ctx, caller, id)
		}(i, c.caller, c.id)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("ok=%d conflicts=%d, want 1 and 1", ok, conflicts)
	}
	if got := store.stockOf("item-a"); got != 1 {
		t.Fatalf("stock=%d, want 1", got)
	}
}

func TestConfirmPayment_AllOrNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.addItem("item-b", "Filter Coffee", "20", 5, false, true)
	ctx := context.Background()

	co, err := svc.PlaceOrder(ctx, customer, cart("item-a", 1, "item-b", 1), upi)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	store.failTake["item-b"] = errors.New("connection reset")

	if _, err := svc.ConfirmPayment(ctx, customer, co.Order.ID); err == nil {
		t.Fatalf("confirm should fail")
	}
	if got := store.stockOf("item-a"); got != 3 {
		t.Fatalf("item-a stock=%d after aborted confirm, want 3", got)
	}
	o, _, _ := store.GetByID(ctx, co.Order.ID)
	if o.Status != StatusPending {
		t.Fatalf("status=%s after aborted confirm, want pending", o.Status)
	}
}

func TestConfirmPayment_Authorization(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	co, err := svc.PlaceOrder(ctx, customer, cart("item-a", 1), upi)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := svc.ConfirmPayment(ctx, Caller{}, co.Order.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous err=%v", err)
	}
	if _, err := svc.ConfirmPayment(ctx, other, co.Order.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger err=%v", err)
	}
	if _, err := svc.ConfirmPayment(ctx, customer, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err=%v", err)
	}
	if _, err := svc.ConfirmPayment(ctx, admin, co.Order.ID); err != nil {
		t.Fatalf("admin confirm: %v", err)
	}
}

func TestOrderItems_KeepPriceAtTimeOfOrder(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	co, err := svc.PlaceOrder(ctx, customer, cart("item-a", 2), upi)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	store.addItem("item-a", "Mysore Masala Dosa", "75", 3, false, true)

	o, items, err := svc.Get(ctx, customer, co.Order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Masala Dosa" || !items[0].Price.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("snapshot drifted: %+v", items)
	}
	if !o.Total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total drifted: %s", o.Total)
	}
	if _, _, err := svc.Get(ctx, other, co.Order.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger read err=%v", err)
	}
}

func TestInvoiceNumbers_SequentialPerDay(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var got []string
	for i := 0; i < 3; i++ {
		co, err := svc.PlaceOrder(ctx, customer, cart("item-a", 1), upi)
		if err != nil {
			t.Fatalf("PlaceOrder #%d: %v", i, err)
		}
		got = append(got, co.Order.InvoiceNo)
	}
	want := []string{"CAN-20261018-0001", "CAN-20261018-0002", "CAN-20261018-0003"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("invoice #%d=%s, want %s", i, got[i], want[i])
		}
	}

	// 00:10 local on the next day; still the 18th in UTC.
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 0, 10, 0, 0, ist) }
	co, err := svc.PlaceOrder(ctx, customer, cart("item-a", 1), upi)
	if err != nil {
		t.Fatalf("PlaceOrder next day: %v", err)
	}
	if co.Order.InvoiceNo != "CAN-20261019-0001" {
		t.Fatalf("next day invoice=%s", co.Order.InvoiceNo)
	}
}

func TestPlaceWalkIn(t *testing.T) {
	ctx := context.Background()

	t.Run("cash is settled immediately", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		co, err := svc.PlaceWalkIn(ctx, admin, WalkInRequest{
			Items:         []CreateOrderItem{{MenuItemID: "item-a", Quantity: 2}},
			PaymentMethod: MethodCash,
			CustomerName:  " Table 4 ",
		}, payment.Config{})
		if err != nil {
			t.Fatalf("walk-in: %v", err)
		}
		if co.Order.Status != StatusPaid || !co.Order.WalkIn || co.Order.UserID != nil {
			t.Fatalf("unexpected order: %+v", co.Order)
		}
		if co.Order.CustomerName != "Table 4" {
			t.Fatalf("customer name=%q", co.Order.CustomerName)
		}
		if co.Payment.URI != "" {
			t.Fatalf("cash sale must not carry a upi link")
		}
		if got := store.stockOf("item-a"); got != 1 {
			t.Fatalf("stock=%d, want 1", got)
		}
	})

	t.Run("cash beyond stock is rejected", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		_, err := svc.PlaceWalkIn(ctx, admin, WalkInRequest{
			Items:         []CreateOrderItem{{MenuItemID: "item-a", Quantity: 4}},
			PaymentMethod: MethodCash,
		}, payment.Config{})
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("err=%v", err)
		}
		if store.orderCount() != 0 || store.stockOf("item-a") != 3 {
			t.Fatalf("rejected walk-in left state behind")
		}
	})

	t.Run("upi waits for confirmation by an admin", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		co, err := svc.PlaceWalkIn(ctx, admin, WalkInRequest{
			Items:         []CreateOrderItem{{MenuItemID: "item-a", Quantity: 1}},
			PaymentMethod: MethodUPI,
		}, upi)
		if err != nil {
			t.Fatalf("walk-in: %v", err)
		}
		if co.Order.Status != StatusPending || co.Payment.URI == "" {
			t.Fatalf("upi walk-in: %+v %+v", co.Order, co.Payment)
		}
		if store.stockOf("item-a") != 3 {
			t.Fatalf("pending walk-in took stock")
		}
		if _, err := svc.ConfirmPayment(ctx, customer, co.Order.ID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("customer confirmed a walk-in: %v", err)
		}
		if _, err := svc.ConfirmPayment(ctx, admin, co.Order.ID); err != nil {
			t.Fatalf("admin confirm: %v", err)
		}
		if store.stockOf("item-a") != 2 {
			t.Fatalf("stock=%d, want 2", store.stockOf("item-a"))
		}
	})

	t.Run("admins only and known methods only", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		req := WalkInRequest{Items: []CreateOrderItem{{MenuItemID: "item-a", Quantity: 1}}, PaymentMethod: MethodCash}
		if _, err := svc.PlaceWalkIn(ctx, customer, req, upi); !errors.Is(err, ErrForbidden) {
			t.Fatalf("customer err=%v", err)
		}
		req.PaymentMethod = "card"
		if _, err := svc.PlaceWalkIn(ctx, admin, req, upi); !errors.Is(err, ErrBadMethod) {
			t.Fatalf("card err=%v", err)
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	co, err := svc.PlaceOrder(ctx, customer, cart("item-a", 2), upi)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	id := co.Order.ID

	if _, err := svc.UpdateStatus(ctx, customer, id, StatusReady); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer err=%v", err)
	}
	if _, err := svc.UpdateStatus(ctx, admin, id, "eaten"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad status err=%v", err)
	}

	steps := []struct {
		to    Status
		stock int
	}{
		{StatusPreparing, 1}, // skipping paid still takes stock
		{StatusReady, 1},
		{StatusPending, 3}, // leaving a settled status returns it
		{StatusPaid, 1},
		{StatusCancelled, 3},
	}
	for _, st := range steps {
		o, err := svc.UpdateStatus(ctx, admin, id, st.to)
		if err != nil {
			t.Fatalf("-> %s: %v", st.to, err)
		}
		if o.Status != st.to {
			t.Fatalf("status=%s, want %s", o.Status, st.to)
		}
		if got := store.stockOf("item-a"); got != st.stock {
			t.Fatalf("after %s stock=%d, want %d", st.to, got, st.stock)
		}
	}

	if _, err := svc.UpdateStatus(ctx, admin, id, StatusPaid); !errors.Is(err, ErrFinal) {
		t.Fatalf("reopening cancelled order err=%v", err)
	}
	if got := store.stockOf("item-a"); got != 3 {
		t.Fatalf("stock=%d after rejected reopen", got)
	}
}

func TestUpdateStatus_SettleFailsWithoutStock(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	co, err := svc.PlaceOrder(ctx, customer, cart("item-a", 3), upi)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := svc.PlaceWalkIn(ctx, admin, WalkInRequest{
		Items:         []CreateOrderItem{{MenuItemID: "item-a", Quantity: 1}},
		PaymentMethod: MethodCash,
	}, upi); err != nil {
		t.Fatalf("walk-in: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, admin, co.Order.ID, StatusCompleted); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err=%v, want ErrInsufficientStock", err)
	}
	if got := store.stockOf("item-a"); got != 2 {
		t.Fatalf("stock=%d, want 2", got)
	}
}

func TestDashboard(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	co, _ := svc.PlaceOrder(ctx, customer, cart("item-a", 1), upi)
	if _, err := svc.ConfirmPayment(ctx, customer, co.Order.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.PlaceOrder(ctx, customer, cart("item-a", 1), upi); err != nil {
		t.Fatalf("second order: %v", err)
	}

	if _, err := svc.Dashboard(ctx, customer, svc.Today(), 5); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer err=%v", err)
	}
	st, err := svc.Dashboard(ctx, admin, svc.Today(), 5)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if st.Orders != 2 || st.Pending != 1 || !st.Revenue.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("stats=%+v", st)
	}
	if !st.From.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, ist)) {
		t.Fatalf("from=%s", st.From)
	}
}

func TestFormatInvoice(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, ist)
	cases := map[int]string{
		1:     "CAN-20260105-0001",
		7:     "CAN-20260105-0007",
		1234:  "CAN-20260105-1234",
		12345: "CAN-20260105-12345",
	}
	for seq, want := range cases {
		if got := FormatInvoice("CAN", day, seq); got != want {
			t.Fatalf("seq %d: %s, want %s", seq, got, want)
		}
	}
}

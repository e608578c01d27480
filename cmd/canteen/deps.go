package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen/internal/httpx"
	"github.com/MikeMC777/canteen/internal/order"
	"github.com/MikeMC777/canteen/internal/payment"
	"github.com/MikeMC777/canteen/internal/settings"
	"github.com/MikeMC777/canteen/internal/user"
)

// orderAPI is what the HTTP layer needs from *order.Service.
type orderAPI interface {
	PlaceOrder(ctx context.Context, c order.Caller, lines []order.CartLine, pay payment.Config) (*order.Checkout, error)
	PlaceWalkIn(ctx context.Context, c order.Caller, req order.WalkInRequest, pay payment.Config) (*order.Checkout, error)
	ConfirmPayment(ctx context.Context, c order.Caller, id string) (*order.Order, error)
	UpdateStatus(ctx context.Context, c order.Caller, id string, to order.Status) (*order.Order, error)
	Get(ctx context.Context, c order.Caller, id string) (*order.Order, []order.Item, error)
	ListMine(ctx context.Context, c order.Caller, limit, offset int) ([]order.Order, error)
	List(ctx context.Context, c order.Caller, f order.Filter) ([]order.Order, error)
	Dashboard(ctx context.Context, c order.Caller, day time.Time, topN int) (*order.Stats, error)
	Today() time.Time
	Location() *time.Location
}

// accountAPI is what the HTTP layer needs from *user.Service.
type accountAPI interface {
	Register(ctx context.Context, in user.RegisterRequest) (*user.User, error)
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	Get(ctx context.Context, id string) (*user.User, error)
	List(ctx context.Context, limit, offset int) ([]user.User, error)
	UpdateFlags(ctx context.Context, actorID, id string, in user.FlagsRequest) (*user.User, error)
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// dayParam reads ?date=YYYY-MM-DD in the business timezone, defaulting to today.
func dayParam(c *gin.Context, svc orderAPI) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return svc.Today(), true
	}
	d, err := time.ParseInLocation("2006-01-02", raw, svc.Location())
	if err != nil {
		httpx.BadRequest(c, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func paymentConfig(ctx context.Context, st settings.Repository) (payment.Config, error) {
	vals, err := st.Load(ctx)
	if err != nil {
		return payment.Config{}, err
	}
	return payment.ConfigFrom(vals), nil
}

func parseSize(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 64 {
		n = 64
	}
	if n > 1024 {
		n = 1024
	}
	return n, nil
}

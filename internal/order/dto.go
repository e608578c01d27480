package order

import "github.com/MikeMC777/canteen/internal/payment"

// CreateOrderItem is one cart line.
// swagger:model CreateOrderItem
type CreateOrderItem struct {
	MenuItemID string `json:"menu_item_id" binding:"required" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	Quantity   int    `json:"quantity"     example:"2"`
}

// CreateOrderRequest is the storefront checkout payload.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	Items []CreateOrderItem `json:"items"`
}

// WalkInRequest is the point-of-sale payload.
// swagger:model WalkInRequest
type WalkInRequest struct {
	Items         []CreateOrderItem `json:"items"`
	PaymentMethod PaymentMethod     `json:"payment_method" example:"cash"`
	CustomerName  string            `json:"customer_name"  example:"Table 4"`
}

// UpdateStatusRequest payload of an admin status change.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required" example:"preparing"`
}

// Checkout is returned after an order is placed.
// swagger:model Checkout
type Checkout struct {
	Order   *Order          `json:"order"`
	Items   []Item          `json:"items"`
	Payment payment.Payload `json:"payment"`
}

func Lines(in []CreateOrderItem) []CartLine {
	out := make([]CartLine, 0, len(in))
	for _, it := range in {
		out = append(out, CartLine{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}
	return out
}

package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	// Unlimited exempts the item from stock checks and decrements.
	Unlimited bool      `json:"unlimited_stock"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasStock reports whether qty units can be sold right now.
func (it *Item) HasStock(qty int) bool {
	return it.Unlimited || it.Stock >= qty
}

// ListResponse represents the paginated response of menu items.
// swagger:model
type ListResponse struct {
	Q        string `json:"q,omitempty"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
	Items    []Item `json:"items"`
}

// CreateItemRequest payload of creation.
// swagger:model CreateItemRequest
type CreateItemRequest struct {
	Name        string          `json:"name"        binding:"required" example:"Masala Dosa"`
	Description string          `json:"description" example:"With sambar and chutney"`
	Category    string          `json:"category"    example:"South Indian"`
	Price       decimal.Decimal `json:"price"       binding:"required" swaggertype:"string" example:"60.00"`
	Stock       int             `json:"stock"       binding:"gte=0" example:"25"`
	Unlimited   bool            `json:"unlimited_stock"`
	Available   *bool           `json:"available"`
}

// UpdateItemRequest payload of partial update. Omitted fields are left unchanged.
// swagger:model UpdateItemRequest
type UpdateItemRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string"`
	Stock       *int             `json:"stock"`
	Unlimited   *bool            `json:"unlimited_stock"`
	Available   *bool            `json:"available"`
}

// Apply copies the present fields of req onto it.
func (req UpdateItemRequest) Apply(it *Item) {
	if req.Name != nil {
		it.Name = *req.Name
	}
	if req.Description != nil {
		it.Description = *req.Description
	}
	if req.Category != nil {
		it.Category = *req.Category
	}
	if req.Price != nil {
		it.Price = *req.Price
	}
	if req.Stock != nil {
		it.Stock = *req.Stock
	}
	if req.Unlimited != nil {
		it.Unlimited = *req.Unlimited
	}
	if req.Available != nil {
		it.Available = *req.Available
	}
}

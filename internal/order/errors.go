package order

import "errors"

// Error kinds. Every error returned by Service wraps exactly one of these, or
// is a storage failure.
var (
	ErrValidation   = errors.New("invalid request")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func kinded(kind error, msg string) error { return &kindError{kind: kind, msg: msg} }

var (
	ErrEmptyCart          = kinded(ErrValidation, "cart is empty")
	ErrBadQuantity        = kinded(ErrValidation, "quantity must be a positive integer")
	ErrBadStatus          = kinded(ErrValidation, "unknown order status")
	ErrBadMethod          = kinded(ErrValidation, "payment method must be upi or cash")
	ErrOrderNotFound      = kinded(ErrNotFound, "order not found")
	ErrItemNotFound       = kinded(ErrNotFound, "menu item not found")
	ErrUnauthenticated    = kinded(ErrUnauthorized, "unauthorized")
	ErrForbidden          = kinded(ErrUnauthorized, "unauthorized")
	ErrUnavailable        = kinded(ErrConflict, "menu item is not available")
	ErrInsufficientStock  = kinded(ErrConflict, "insufficient stock")
	ErrItemGone           = kinded(ErrConflict, "menu item no longer exists")
	ErrNotPending         = kinded(ErrConflict, "order is not pending")
	ErrFinal              = kinded(ErrConflict, "order is already closed")
	ErrPaymentUnavailable = kinded(ErrConflict, "upi payments are not configured")
)

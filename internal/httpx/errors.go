package httpx

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen/internal/menu"
	"github.com/MikeMC777/canteen/internal/order"
	"github.com/MikeMC777/canteen/internal/report"
	"github.com/MikeMC777/canteen/internal/requestid"
	"github.com/MikeMC777/canteen/internal/settings"
	"github.com/MikeMC777/canteen/internal/user"
)

// ErrorBody is the envelope of every failed request.
// swagger:model ErrorBody
type ErrorBody struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error"   example:"insufficient stock"`
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, order.ErrValidation),
		errors.Is(err, menu.ErrInvalid),
		errors.Is(err, settings.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrUnauthenticated),
		errors.Is(err, user.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, order.ErrUnauthorized),
		errors.Is(err, user.ErrInactive),
		errors.Is(err, user.ErrSelfDemotion):
		return http.StatusForbidden
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, menu.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrConflict),
		errors.Is(err, user.ErrAlreadyExist),
		errors.Is(err, report.ErrMailNotConfigured):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Fail aborts the request with the error envelope. Storage failures are
// logged and reported without detail.
func Fail(c *gin.Context, err error) {
	code := Status(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Printf("[http] rid=%s %s %s: %v", requestid.From(c.Request.Context()), c.Request.Method, c.Request.URL.Path, err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, ErrorBody{Success: false, Error: msg})
}

// BadRequest reports a payload that could not be bound.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Success: false, Error: msg})
}

// OK writes the success envelope around data.
func OK(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

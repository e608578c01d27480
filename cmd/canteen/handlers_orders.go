package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen/internal/auth"
	"github.com/MikeMC777/canteen/internal/httpx"
	"github.com/MikeMC777/canteen/internal/order"
	"github.com/MikeMC777/canteen/internal/payment"
	"github.com/MikeMC777/canteen/internal/settings"
)

type orderDetail struct {
	Order *order.Order `json:"order"`
	Items []order.Item `json:"items"`
}

// createOrderHandler godoc
// @Summary      Check out the cart
// @Description  Prices the cart, reserves an invoice number and returns the UPI payment link.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        body  body      order.CreateOrderRequest  true  "cart"
// @Success      201   {object}  order.Checkout
// @Failure      400   {object}  httpx.ErrorBody
// @Failure      404   {object}  httpx.ErrorBody
// @Failure      409   {object}  httpx.ErrorBody
// @Router       /orders [post]
func createOrderHandler(svc orderAPI, st settings.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid payload: "+err.Error())
			return
		}
		pay, err := paymentConfig(c.Request.Context(), st)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		co, err := svc.PlaceOrder(c.Request.Context(), auth.CallerFrom(c), order.Lines(req.Items), pay)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, co)
	}
}

// @Summary  My orders
// @Tags     orders
// @Produce  json
// @Param    limit   query     int  false  "page size"  default(50)
// @Param    offset  query     int  false  "offset"     default(0)
// @Success  200     {array}   order.Order
// @Router   /orders [get]
func listMyOrdersHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		list, err := svc.ListMine(c.Request.Context(), auth.CallerFrom(c), limit, offset)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, list)
	}
}

// @Summary  Order with its items
// @Tags     orders
// @Produce  json
// @Param    id   path      string  true  "order id"
// @Success  200  {object}  orderDetail
// @Failure  403  {object}  httpx.ErrorBody
// @Failure  404  {object}  httpx.ErrorBody
// @Router   /orders/{id} [get]
func getOrderHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := svc.Get(c.Request.Context(), auth.CallerFrom(c), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, orderDetail{Order: o, Items: items})
	}
}

// confirmPaymentHandler godoc
// @Summary      Confirm payment
// @Description  Marks a pending order paid and takes its stock. Fails with 409 if it is no longer pending or stock ran out.
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "order id"
// @Success      200  {object}  order.Order
// @Failure      403  {object}  httpx.ErrorBody
// @Failure      409  {object}  httpx.ErrorBody
// @Router       /orders/{id}/confirm [post]
func confirmPaymentHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.ConfirmPayment(c.Request.Context(), auth.CallerFrom(c), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, o)
	}
}

// @Summary  UPI QR code for a pending order
// @Tags     orders
// @Produce  png
// @Param    id    path   string  true   "order id"
// @Param    size  query  int     false  "pixels"  default(256)
// @Success  200
// @Failure  409  {object}  httpx.ErrorBody
// @Router   /orders/{id}/qr.png [get]
func orderQRHandler(svc orderAPI, st settings.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, _, err := svc.Get(c.Request.Context(), auth.CallerFrom(c), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if o.PaymentMethod != order.MethodUPI || o.Status != order.StatusPending {
			httpx.Fail(c, order.ErrNotPending)
			return
		}
		pay, err := paymentConfig(c.Request.Context(), st)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		uri, err := payment.UPIURI(pay, o.Total, o.InvoiceNo)
		if err != nil {
			httpx.Fail(c, order.ErrPaymentUnavailable)
			return
		}
		size := 256
		if s, ok := c.GetQuery("size"); ok {
			if n, err := parseSize(s); err == nil {
				size = n
			}
		}
		png, err := payment.QRPNG(uri, size)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	}
}

package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen/internal/auth"
	"github.com/MikeMC777/canteen/internal/httpx"
	"github.com/MikeMC777/canteen/internal/order"
	"github.com/MikeMC777/canteen/internal/report"
	"github.com/MikeMC777/canteen/internal/settings"
	"github.com/MikeMC777/canteen/internal/user"
)

// walkInHandler godoc
// @Summary      Record a counter sale
// @Description  Cash sales are stored as paid and take stock immediately; UPI sales wait for confirmation.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      order.WalkInRequest  true  "sale"
// @Success      201   {object}  order.Checkout
// @Failure      400   {object}  httpx.ErrorBody
// @Failure      409   {object}  httpx.ErrorBody
// @Router       /admin/orders/walk-in [post]
func walkInHandler(svc orderAPI, st settings.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.WalkInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid payload: "+err.Error())
			return
		}
		pay, err := paymentConfig(c.Request.Context(), st)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		co, err := svc.PlaceWalkIn(c.Request.Context(), auth.CallerFrom(c), req, pay)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, co)
	}
}

// @Summary  All orders
// @Tags     admin
// @Produce  json
// @Param    status  query     string  false  "status filter"
// @Param    date    query     string  false  "business day YYYY-MM-DD"
// @Param    limit   query     int     false  "page size"  default(50)
// @Param    offset  query     int     false  "offset"     default(0)
// @Success  200     {array}   order.Order
// @Router   /admin/orders [get]
func adminListOrdersHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		f := order.Filter{Status: order.Status(c.Query("status")), Limit: limit, Offset: offset}
		if c.Query("date") != "" {
			day, ok := dayParam(c, svc)
			if !ok {
				return
			}
			f.From = order.BusinessDay(day, svc.Location())
			f.To = f.From.AddDate(0, 0, 1)
		}
		list, err := svc.List(c.Request.Context(), auth.CallerFrom(c), f)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, list)
	}
}

// @Summary  Change an order's status
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    id    path      string                     true  "order id"
// @Param    body  body      order.UpdateStatusRequest  true  "new status"
// @Success  200   {object}  order.Order
// @Failure  400   {object}  httpx.ErrorBody
// @Failure  409   {object}  httpx.ErrorBody
// @Router   /admin/orders/{id}/status [put]
func updateStatusHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid payload: "+err.Error())
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), auth.CallerFrom(c), c.Param("id"), req.Status)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, o)
	}
}

// @Summary  Sales summary for a day
// @Tags     admin
// @Produce  json
// @Param    date  query     string  false  "business day YYYY-MM-DD, default today"
// @Param    top   query     int     false  "number of top items"  default(5)
// @Success  200   {object}  order.Stats
// @Router   /admin/dashboard [get]
func dashboardHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		day, ok := dayParam(c, svc)
		if !ok {
			return
		}
		top, err := strconv.Atoi(c.DefaultQuery("top", "5"))
		if err != nil || top <= 0 {
			top = 5
		}
		st, err := svc.Dashboard(c.Request.Context(), auth.CallerFrom(c), day, top)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, st)
	}
}

// @Summary  Accounts
// @Tags     admin
// @Produce  json
// @Success  200  {array}  user.User
// @Router   /admin/users [get]
func listUsersHandler(users accountAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		list, err := users.List(c.Request.Context(), limit, offset)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, list)
	}
}

// @Summary  Grant or revoke admin and access
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    id    path      string             true  "user id"
// @Param    body  body      user.FlagsRequest  true  "flags"
// @Success  200   {object}  user.User
// @Failure  403   {object}  httpx.ErrorBody
// @Router   /admin/users/{id} [patch]
func updateUserFlagsHandler(users accountAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.FlagsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid payload: "+err.Error())
			return
		}
		u, err := users.UpdateFlags(c.Request.Context(), auth.CallerFrom(c).UserID, c.Param("id"), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, u)
	}
}

// @Summary  Current settings, secrets masked
// @Tags     admin
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /admin/settings [get]
func getSettingsHandler(st settings.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		vals, err := st.Load(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, vals.Redacted())
	}
}

// @Summary  Update settings
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    body  body      map[string]string  true  "keys to set"
// @Success  200   {object}  map[string]string
// @Failure  400   {object}  httpx.ErrorBody
// @Router   /admin/settings [put]
func putSettingsHandler(st settings.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in map[string]string
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.BadRequest(c, "invalid payload: "+err.Error())
			return
		}
		// the masked password echoed back by the UI means "unchanged"
		if in[settings.KeySMTPPassword] == "********" {
			delete(in, settings.KeySMTPPassword)
		}
		if err := settings.Validate(in); err != nil {
			httpx.Fail(c, err)
			return
		}
		if err := st.Save(c.Request.Context(), in); err != nil {
			httpx.Fail(c, err)
			return
		}
		vals, err := st.Load(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, vals.Redacted())
	}
}

// @Summary  Download the daily sales workbook
// @Tags     admin
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param    date  query  string  false  "business day YYYY-MM-DD, default today"
// @Success  200
// @Router   /admin/reports/daily.xlsx [get]
func dailyReportHandler(svc orderAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		day, ok := dayParam(c, svc)
		if !ok {
			return
		}
		d, err := report.Collect(c.Request.Context(), svc, auth.CallerFrom(c), day)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		raw, err := report.Bytes(d)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+d.Filename()+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", raw)
	}
}

// @Summary  Email the daily sales workbook to the report recipient
// @Tags     admin
// @Produce  json
// @Param    date  query     string  false  "business day YYYY-MM-DD, default today"
// @Success  202   {object}  map[string]string
// @Failure  409   {object}  httpx.ErrorBody
// @Router   /admin/reports/daily/email [post]
func emailReportHandler(svc orderAPI, st settings.Repository, mailer *report.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		day, ok := dayParam(c, svc)
		if !ok {
			return
		}
		vals, err := st.Load(c.Request.Context())
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		cfg := report.MailConfigFrom(vals)
		d, err := report.Collect(c.Request.Context(), svc, auth.CallerFrom(c), day)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		raw, err := report.Bytes(d)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if err := mailer.SendDaily(c.Request.Context(), cfg, d, raw); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusAccepted, gin.H{"sent_to": cfg.To, "file": d.Filename()})
	}
}

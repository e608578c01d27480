package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/canteen/internal/auth"
	"github.com/MikeMC777/canteen/internal/httpx"
	"github.com/MikeMC777/canteen/internal/menu"
)

// listMenuHandler godoc
// @Summary      List menu items
// @Description  The storefront sees available items only; admins see everything.
// @Tags         menu
// @Produce      json
// @Param        q         query     string  false  "search in name and description"
// @Param        category  query     string  false  "category"
// @Param        limit     query     int     false  "page size"  default(50)
// @Param        offset    query     int     false  "offset"     default(0)
// @Success      200       {object}  menu.ListResponse
// @Router       /menu [get]
// @Router       /admin/menu [get]
func listMenuHandler(repo menu.Repository, onlyAvailable bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		q := menu.Query{
			Q:             c.Query("q"),
			Category:      c.Query("category"),
			OnlyAvailable: onlyAvailable,
			Limit:         limit,
			Offset:        offset,
		}
		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, menu.ListResponse{Q: q.Q, Category: q.Category, Limit: limit, Offset: offset, Items: items})
	}
}

// @Summary  Get a menu item
// @Tags     menu
// @Produce  json
// @Param    id   path      string  true  "menu item id"
// @Success  200  {object}  menu.Item
// @Failure  404  {object}  httpx.ErrorBody
// @Router   /menu/{id} [get]
func getMenuItemHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		it, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if !it.Available && !auth.CallerFrom(c).IsAdmin {
			httpx.Fail(c, menu.ErrNotFound)
			return
		}
		httpx.OK(c, http.StatusOK, it)
	}
}

// @Summary  Add a menu item
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    body  body      menu.CreateItemRequest  true  "item"
// @Success  201   {object}  menu.Item
// @Failure  400   {object}  httpx.ErrorBody
// @Router   /admin/menu [post]
func createMenuItemHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req menu.CreateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid payload: "+err.Error())
			return
		}
		it := &menu.Item{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Category:    req.Category,
			Price:       req.Price,
			Stock:       req.Stock,
			Unlimited:   req.Unlimited,
			Available:   req.Available == nil || *req.Available,
		}
		if err := menu.Validate(it); err != nil {
			httpx.Fail(c, err)
			return
		}
		if err := repo.Create(c.Request.Context(), it); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, it)
	}
}

// @Summary  Edit a menu item
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    id    path      string                  true  "menu item id"
// @Param    body  body      menu.UpdateItemRequest  true  "fields to change"
// @Success  200   {object}  menu.Item
// @Failure  400   {object}  httpx.ErrorBody
// @Failure  404   {object}  httpx.ErrorBody
// @Router   /admin/menu/{id} [patch]
func updateMenuItemHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req menu.UpdateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid payload: "+err.Error())
			return
		}
		cur, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		// validate the merged view; only the sent fields are written
		req.Apply(cur)
		if err := menu.Validate(cur); err != nil {
			httpx.Fail(c, err)
			return
		}
		it, err := repo.Update(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, it)
	}
}

// @Summary  Remove a menu item
// @Tags     admin
// @Param    id   path  string  true  "menu item id"
// @Success  204  "no content"
// @Failure  404  {object}  httpx.ErrorBody
// @Router   /admin/menu/{id} [delete]
func deleteMenuItemHandler(repo menu.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if !ok {
			httpx.Fail(c, menu.ErrNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

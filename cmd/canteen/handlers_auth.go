package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen/internal/auth"
	"github.com/MikeMC777/canteen/internal/httpx"
	"github.com/MikeMC777/canteen/internal/user"
)

type sessionResponse struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

// registerHandler godoc
// @Summary      Create a customer account and sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      user.RegisterRequest  true  "account"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  httpx.ErrorBody
// @Failure      409   {object}  httpx.ErrorBody
// @Router       /auth/register [post]
func registerHandler(users accountAPI, sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid payload: "+err.Error())
			return
		}
		u, err := users.Register(c.Request.Context(), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		startSession(c, sessions, u, http.StatusCreated)
	}
}

// loginHandler godoc
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      user.LoginRequest  true  "credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  httpx.ErrorBody
// @Router       /auth/login [post]
func loginHandler(users accountAPI, sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "invalid payload: "+err.Error())
			return
		}
		u, err := users.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		startSession(c, sessions, u, http.StatusOK)
	}
}

func startSession(c *gin.Context, sessions *auth.Sessions, u *user.User, code int) {
	tok, err := sessions.Issue(u)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	sessions.SetCookie(c, tok)
	httpx.OK(c, code, sessionResponse{User: u, Token: tok})
}

// @Summary  Sign out
// @Tags     auth
// @Success  204  "no content"
// @Router   /auth/logout [post]
func logoutHandler(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions.ClearCookie(c)
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Current account
// @Tags     auth
// @Produce  json
// @Success  200  {object}  user.User
// @Failure  401  {object}  httpx.ErrorBody
// @Router   /auth/me [get]
func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, _ := auth.UserFrom(c)
		httpx.OK(c, http.StatusOK, u)
	}
}

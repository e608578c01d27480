package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen/internal/httpx"
	"github.com/MikeMC777/canteen/internal/order"
	"github.com/MikeMC777/canteen/internal/user"
)

const (
	ctxCaller = "caller"
	ctxUser   = "user"
)

// UserLoader is the part of the user service Identify needs.
type UserLoader interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

// Identify resolves the session, if any, and stores the caller. The account is
// reloaded so a disabled or demoted user loses access immediately. Requests
// without a valid session continue as anonymous.
func Identify(s *Sessions, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFrom(c)
		if raw == "" {
			c.Next()
			return
		}
		claims, err := s.Parse(raw)
		if err != nil {
			c.Next()
			return
		}
		u, err := users.Get(c.Request.Context(), claims.UserID)
		if err != nil || !u.IsActive {
			c.Next()
			return
		}
		c.Set(ctxUser, u)
		c.Set(ctxCaller, order.Caller{UserID: u.ID, IsAdmin: u.IsAdmin})
		c.Next()
	}
}

// CallerFrom returns the identity stored by Identify, or the anonymous caller.
func CallerFrom(c *gin.Context) order.Caller {
	if v, ok := c.Get(ctxCaller); ok {
		if caller, ok := v.(order.Caller); ok {
			return caller
		}
	}
	return order.Caller{}
}

// UserFrom returns the account loaded by Identify.
func UserFrom(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerFrom(c).Authenticated() {
			httpx.Fail(c, order.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerFrom(c)
		switch {
		case !caller.Authenticated():
			httpx.Fail(c, order.ErrUnauthenticated)
			return
		case !caller.IsAdmin:
			httpx.Fail(c, order.ErrForbidden)
			return
		}
		c.Next()
	}
}

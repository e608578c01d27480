package httpx

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MikeMC777/canteen/internal/requestid"
)

const HeaderRequestID = "X-Request-ID"

// RequestID tags each request with an id, reusing the client's X-Request-ID
// when it is a reasonable token. The id travels on the request context, where
// the order workflow and the event publisher read it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if rid == "" || len(rid) > 64 || strings.ContainsAny(rid, " \t\r\n") {
			rid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(requestid.With(c.Request.Context(), rid))
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

// Logger writes one access line per request once the handlers have run.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		line := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			line += "?" + q
		}
		msg := ""
		if len(c.Errors) > 0 {
			msg = " err=" + c.Errors.String()
		}
		log.Printf("[http] rid=%s %s %s status=%d size=%d dur=%s ip=%s%s",
			requestid.From(c.Request.Context()), c.Request.Method, line,
			c.Writer.Status(), c.Writer.Size(), time.Since(start).Round(time.Microsecond), c.ClientIP(), msg)
	}
}

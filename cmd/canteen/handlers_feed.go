package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/canteen/internal/feed"
	"github.com/MikeMC777/canteen/internal/requestid"
)

// feedHandler godoc
// @Summary      Live order events
// @Description  Server-Sent Events stream: connected, then new_order and order_update as they are seen.
// @Tags         admin
// @Produce      text/event-stream
// @Success      200
// @Router       /admin/feed [get]
func feedHandler(p *feed.Poller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		ctx := c.Request.Context()
		rid := requestid.From(ctx)
		log.Printf("[feed] rid=%s subscriber connected", rid)
		err := p.Run(ctx, func(ev feed.Event) error {
			c.SSEvent(ev.Type, ev)
			c.Writer.Flush()
			return ctx.Err()
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("[feed] rid=%s stream ended: %v", rid, err)
		}
		log.Printf("[feed] rid=%s subscriber gone", rid)
	}
}

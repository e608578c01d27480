// Package feed turns periodic order queries into a stream of typed events for
// the admin dashboard. It polls; a change that straddles two polls may be
// reported late or not at all.
package feed

import (
	"context"
	"log"
	"time"

	"github.com/MikeMC777/canteen/internal/order"
)

const (
	EventConnected   = "connected"
	EventNewOrder    = "new_order"
	EventOrderUpdate = "order_update"
)

type Event struct {
	Type  string       `json:"type"`
	At    time.Time    `json:"at"`
	Order *order.Order `json:"order,omitempty"`
}

// Source is the read side of the order store the feed polls.
type Source interface {
	CreatedAfter(ctx context.Context, t time.Time) ([]order.Order, error)
	UpdatedAfter(ctx context.Context, t time.Time) ([]order.Order, error)
}

type Poller struct {
	src      Source
	interval time.Duration
	window   time.Duration
	now      func() time.Time
}

func NewPoller(src Source, interval, window time.Duration) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if window < interval {
		window = interval
	}
	return &Poller{src: src, interval: interval, window: window, now: time.Now}
}

type seenKey struct {
	id      string
	updated int64
}

// cursor is the per-connection state. Nothing survives the connection.
type cursor struct {
	p         *Poller
	start     time.Time
	watermark time.Time
	seen      map[seenKey]time.Time
}

func (p *Poller) open() *cursor {
	now := p.now()
	return &cursor{p: p, start: now, watermark: now, seen: map[seenKey]time.Time{}}
}

// Run emits a connected event, then polls until ctx is done or emit fails.
func (p *Poller) Run(ctx context.Context, emit func(Event) error) error {
	cur := p.open()
	if err := emit(Event{Type: EventConnected, At: cur.start}); err != nil {
		return err
	}
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := cur.tick(ctx, emit); err != nil {
				return err
			}
		}
	}
}

// tick reports orders created since the watermark, then orders updated inside
// the trailing window that were not created in this tick. Each (id,
// updated_at) pair is reported once per connection.
func (c *cursor) tick(ctx context.Context, emit func(Event) error) error {
	now := c.p.now()

	created, err := c.p.src.CreatedAfter(ctx, c.watermark)
	if err != nil {
		log.Printf("[feed] poll new orders: %v", err)
		return nil
	}
	fresh := make(map[string]bool, len(created))
	for i := range created {
		o := &created[i]
		fresh[o.ID] = true
		c.seen[seenKey{o.ID, o.UpdatedAt.UnixNano()}] = o.UpdatedAt
		if o.CreatedAt.After(c.watermark) {
			c.watermark = o.CreatedAt
		}
		if err := emit(Event{Type: EventNewOrder, At: now, Order: o}); err != nil {
			return err
		}
	}

	since := now.Add(-c.p.window)
	if since.Before(c.start) {
		since = c.start
	}
	updated, err := c.p.src.UpdatedAfter(ctx, since)
	if err != nil {
		log.Printf("[feed] poll updates: %v", err)
		return nil
	}
	for i := range updated {
		o := &updated[i]
		key := seenKey{o.ID, o.UpdatedAt.UnixNano()}
		if fresh[o.ID] {
			continue
		}
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = o.UpdatedAt
		if err := emit(Event{Type: EventOrderUpdate, At: now, Order: o}); err != nil {
			return err
		}
	}

	for k, at := range c.seen {
		if at.Before(since) {
			delete(c.seen, k)
		}
	}
	return nil
}

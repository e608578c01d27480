// Package events publishes order lifecycle events to RabbitMQ so other
// services (kitchen display, receipt printer) can react without polling.
package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/MikeMC777/canteen/internal/feed"
	"github.com/MikeMC777/canteen/internal/order"
	"github.com/MikeMC777/canteen/internal/requestid"
)

const (
	Exchange       = "canteen.orders"
	KeyOrderNew    = "order.new"
	KeyOrderUpdate = "order.update"
)

// Publisher implements order.Notifier on a topic exchange. Publish failures
// are logged and never fail the request that caused them.
type Publisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	now  func() time.Time
}

func Connect(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	err = ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	log.Printf("[events] connected, publishing to %s", Exchange)
	return &Publisher{conn: conn, ch: ch, now: time.Now}, nil
}

func (p *Publisher) OrderCreated(ctx context.Context, o *order.Order) {
	p.publish(ctx, KeyOrderNew, feed.EventNewOrder, o)
}

func (p *Publisher) OrderUpdated(ctx context.Context, o *order.Order) {
	p.publish(ctx, KeyOrderUpdate, feed.EventOrderUpdate, o)
}

// message renders o with the same event shape the live feed streams. The
// request id that caused the change becomes the correlation id.
func message(ctx context.Context, typ string, o *order.Order, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(feed.Event{Type: typ, At: at, Order: o})
	if err != nil {
		return amqp.Publishing{}, err
	}
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    o.ID + "@" + o.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Timestamp:    at,
		Type:         typ,
		Body:         body,
	}
	if rid := requestid.From(ctx); rid != "-" {
		msg.CorrelationId = rid
	}
	return msg, nil
}

func (p *Publisher) publish(ctx context.Context, key, typ string, o *order.Order) {
	msg, err := message(ctx, typ, o, p.now())
	if err != nil {
		log.Printf("[events] rid=%s encode %s: %v", requestid.From(ctx), o.InvoiceNo, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, Exchange, key, false, false, msg); err != nil {
		log.Printf("[events] rid=%s publish %s %s: %v", requestid.From(ctx), key, o.InvoiceNo, err)
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

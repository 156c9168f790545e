// Package queue_publisher publishes domain events to RabbitMQ.  Errors
// are logged and returned so callers can ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/car-rental-backoffice/internal/queue"
	"github.com/iliyamo/car-rental-backoffice/internal/sweeper"
)

// Publisher sends events through the default exchange, one durable queue
// per event type.  It dials per publish: event volume here is low and a
// fresh connection avoids tracking broker state across requests.  It also
// satisfies the expiration sweep's notifier interface.
type Publisher struct {
	url string
}

// New returns a Publisher for the given broker URL; an empty URL falls
// back to the environment / local default.
func New(url string) *Publisher {
	if url == "" {
		url = q.BrokerURL()
	}
	return &Publisher{url: url}
}

// PublishReservationConfirmed publishes to the reservation.confirmed queue.
func (p *Publisher) PublishReservationConfirmed(ctx context.Context, event q.ReservationConfirmedEvent) error {
	return p.publish(ctx, q.ReservationConfirmedQueue, event)
}

// PublishReservationExpired publishes to the reservation.expired queue.
func (p *Publisher) PublishReservationExpired(ctx context.Context, event q.ReservationExpiredEvent) error {
	return p.publish(ctx, q.ReservationExpiredQueue, event)
}

// PublishEntityChanged publishes to the entity.changed queue consumed by
// the cache invalidator.
func (p *Publisher) PublishEntityChanged(ctx context.Context, event q.EntityChangedEvent) error {
	return p.publish(ctx, q.EntityChangedQueue, event)
}

// ReservationExpired adapts a sweep transition into a broker event.
// Publish failures are logged only; the sweep already committed.
func (p *Publisher) ReservationExpired(ctx context.Context, exp sweeper.Expired) {
	_ = p.PublishReservationExpired(ctx, q.ReservationExpiredEvent{
		ReservationID: exp.ID,
		CustomerName:  exp.CustomerName,
		Deadline:      exp.Deadline.UTC().Format(time.RFC3339),
		ExpiredAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

// EntitiesChanged signals the cache invalidator that listings for the
// named entities are stale.  One event per entity.
func (p *Publisher) EntitiesChanged(ctx context.Context, entities ...string) {
	for _, entity := range entities {
		_ = p.PublishEntityChanged(ctx, q.EntityChangedEvent{
			Entity:    entity,
			Action:    "expired",
			Source:    "sweeper",
			ChangedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// publish declares the durable queue (idempotent) and sends one
// persistent JSON message.  Never panics; any error is logged and
// returned so the caller can choose to ignore it.
func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}

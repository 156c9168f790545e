// Package cache contains the realtime invalidator: a broker consumer
// that drops cached HTTP listings when their underlying entities change
// outside the regular request flow (expiration sweeps most of all).
// Without it a swept reservation would keep showing as active until the
// response cache TTL ran out.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	q "github.com/iliyamo/car-rental-backoffice/internal/queue"
)

// Invalidator consumes entity.changed events and deletes the matching
// response-cache keys.  Keys are grouped as <prefix>:<entity>:<hash>, so
// one event clears exactly the listings of the entities it names.
type Invalidator struct {
	rdb    *redis.Client
	prefix string
}

// NewInvalidator returns an Invalidator over the given Redis client and
// cache key prefix.
func NewInvalidator(rdb *redis.Client, prefix string) *Invalidator {
	return &Invalidator{rdb: rdb, prefix: prefix}
}

// Start connects to RabbitMQ, declares the durable entity.changed queue
// and consumes it until the process exits.  Runs a reconnect loop with
// exponential backoff, mirroring the notification consumer.
func (inv *Invalidator) Start() error {
	url := q.BrokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("cache-invalidator: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := inv.consumeLoop(conn); err != nil {
			log.Printf("cache-invalidator: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func (inv *Invalidator) consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(q.EntityChangedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(q.EntityChangedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := inv.handle(d.Body); err != nil {
			log.Printf("cache-invalidator: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (inv *Invalidator) handle(body []byte) error {
	var ev q.EntityChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := inv.dropEntity(ctx, ev.Entity)
	if err != nil {
		return fmt.Errorf("drop %s: %w", ev.Entity, err)
	}
	if n > 0 {
		log.Printf("cache-invalidator: dropped %d cached response(s) for %s (action=%s source=%s)", n, ev.Entity, ev.Action, ev.Source)
	}
	return nil
}

// dropEntity SCANs and deletes all cache keys under one entity segment.
// SCAN over a bounded namespace keeps this from blocking Redis the way
// KEYS would.
func (inv *Invalidator) dropEntity(ctx context.Context, entity string) (int, error) {
	pattern := fmt.Sprintf("%s:%s:*", inv.prefix, entity)
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := inv.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := inv.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

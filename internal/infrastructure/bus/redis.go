package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// RedisBus implements Publisher and Subscriber over Redis pub/sub.
// Events are published to the channel named by their routing key, so
// subscribers can pattern-match on room classes. Delivery is
// at-least-once from the consumer's point of view: a reconnect replays
// nothing but the consumer re-subscribes and keeps going.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBus creates a Redis-backed event bus
func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

// Publish emits one event to its own room channel
func (b *RedisBus) Publish(ctx context.Context, event entities.DomainEvent) error {
	if event.Room == "" {
		return fmt.Errorf("domain event %s has no routing key", event.Type)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode domain event: %w", err)
	}
	if err := b.client.Publish(ctx, event.Room, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish domain event: %w", err)
	}
	return nil
}

// Subscribe pattern-subscribes and pumps decoded events into the
// returned channel until ctx is cancelled. Receive errors trigger a
// re-subscribe with exponential backoff.
func (b *RedisBus) Subscribe(ctx context.Context, patterns ...string) (<-chan entities.DomainEvent, error) {
	if len(patterns) == 0 {
		patterns = RoomPatterns
	}

	out := make(chan entities.DomainEvent, 64)
	go func() {
		defer close(out)
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 500 * time.Millisecond
		bo.MaxInterval = 30 * time.Second
		bo.MaxElapsedTime = 0 // keep reconnecting for the process lifetime

		for {
			if ctx.Err() != nil {
				return
			}
			if err := b.consume(ctx, patterns, out); err != nil {
				if ctx.Err() != nil {
					return
				}
				wait := bo.NextBackOff()
				if b.logger != nil {
					b.logger.Warn("event bus subscription dropped, reconnecting",
						zap.Error(err),
						zap.Duration("backoff", wait),
					)
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
				continue
			}
			bo.Reset()
		}
	}()
	return out, nil
}

func (b *RedisBus) consume(ctx context.Context, patterns []string, out chan<- entities.DomainEvent) error {
	pubsub := b.client.PSubscribe(ctx, patterns...)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("pubsub channel closed")
			}
			var event entities.DomainEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				if b.logger != nil {
					b.logger.Warn("discarding undecodable bus message",
						zap.String("channel", msg.Channel),
						zap.Error(err),
					)
				}
				continue
			}
			// The room the event claims must be the channel it arrived
			// on; a mismatch would let an event escape its scope.
			if event.Room != msg.Channel {
				if b.logger != nil {
					b.logger.Warn("discarding event with mismatched routing key",
						zap.String("channel", msg.Channel),
						zap.String("room", event.Room),
					)
				}
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- event:
			}
		}
	}
}

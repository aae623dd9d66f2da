package realtime

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dispatchcrew/airdispatch/internal/infrastructure/bus"
)

// Consumer is the single bus subscription a gateway process runs. It
// forwards each event to the registry, which fans out only to sessions
// subscribed to the event's room.
type Consumer struct {
	subscriber bus.Subscriber
	registry   *Registry
	logger     *zap.Logger
}

// NewConsumer constructs the fanout consumer
func NewConsumer(subscriber bus.Subscriber, registry *Registry, logger *zap.Logger) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		registry:   registry,
		logger:     logger,
	}
}

// Run consumes until ctx is cancelled. A dropped subscription is
// re-established with backoff; events published during the gap are
// lost, which is acceptable for a notification feed.
func (c *Consumer) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && c.logger != nil {
			c.logger.Warn("event subscription dropped, reconnecting", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	events, err := c.subscriber.Subscribe(ctx, bus.RoomPatterns...)
	if err != nil {
		return err
	}

	for event := range events {
		delivered := c.registry.Broadcast(event)
		if c.logger != nil {
			c.logger.Debug("event fanned out",
				zap.String("event_type", event.Type),
				zap.String("room", event.Room),
				zap.Int("delivered", delivered),
			)
		}
	}
	return nil
}

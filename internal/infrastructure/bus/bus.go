// Package bus carries domain events between the engine and the
// realtime gateway. The routing key of an event is the room it targets
// and nothing else; fan-out beyond that room is a gateway bug.
package bus

import (
	"context"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// Publisher emits domain events onto the bus
type Publisher interface {
	Publish(ctx context.Context, event entities.DomainEvent) error
}

// Subscriber consumes domain events matching routing-key patterns.
// The returned channel closes when ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, patterns ...string) (<-chan entities.DomainEvent, error)
}

// RoomPatterns are the routing-key patterns one gateway process
// consumes: every tenant-scoped room class.
var RoomPatterns = []string{"org:*", "channel:*", "incident:*", "admin:*"}

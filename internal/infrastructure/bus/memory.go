package bus

import (
	"context"
	"path"
	"sync"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// MemoryBus is an in-process Publisher/Subscriber used by tests and
// single-node runs without Redis.
type MemoryBus struct {
	mu   sync.Mutex
	subs []*memorySub
}

type memorySub struct {
	patterns []string
	ch       chan entities.DomainEvent
	done     <-chan struct{}
}

// NewMemoryBus creates an in-process event bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Publish delivers the event to every matching subscriber
func (b *MemoryBus) Publish(ctx context.Context, event entities.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if !sub.matches(event.Room) {
			continue
		}
		select {
		case sub.ch <- event:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a pattern subscription bound to ctx
func (b *MemoryBus) Subscribe(ctx context.Context, patterns ...string) (<-chan entities.DomainEvent, error) {
	if len(patterns) == 0 {
		patterns = RoomPatterns
	}
	sub := &memorySub{
		patterns: patterns,
		ch:       make(chan entities.DomainEvent, 64),
		done:     ctx.Done(),
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(sub.ch)
	}()
	return sub.ch, nil
}

func (s *memorySub) matches(room string) bool {
	for _, p := range s.patterns {
		if ok, _ := path.Match(p, room); ok {
			return true
		}
	}
	return false
}

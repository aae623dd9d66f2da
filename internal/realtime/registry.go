package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/cache"
)

const (
	sessionKeyPrefix = "rt:session:"
	sessionTTL       = 5 * time.Minute
)

// conn is the send side of one websocket connection. The gateway's
// writer goroutine drains the channel; Broadcast never blocks on a
// slow client.
type conn struct {
	session *entities.Session
	send    chan entities.DomainEvent
}

// Registry tracks live connections on this instance and mirrors
// session metadata into the shared cache so any instance can answer
// liveness queries.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*conn
	store  cache.Store
	logger *zap.Logger
}

// NewRegistry constructs a session registry backed by the given cache
func NewRegistry(store cache.Store, logger *zap.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*conn),
		store:  store,
		logger: logger,
	}
}

// Add registers a connection and mirrors its session. The returned
// channel is the connection's outbound event feed.
func (r *Registry) Add(ctx context.Context, session *entities.Session) chan entities.DomainEvent {
	c := &conn{
		session: session,
		send:    make(chan entities.DomainEvent, 64),
	}

	r.mu.Lock()
	r.conns[session.ID] = c
	r.mu.Unlock()

	r.mirror(ctx, session)
	return c.send
}

// Remove tears down a connection and removes the cache mirror. The
// send channel is closed here so the writer goroutine exits.
func (r *Registry) Remove(ctx context.Context, sessionID string) {
	r.mu.Lock()
	c, ok := r.conns[sessionID]
	if ok {
		delete(r.conns, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	close(c.send)

	if err := r.store.Delete(ctx, sessionKeyPrefix+sessionID); err != nil && r.logger != nil {
		r.logger.Warn("failed to delete session mirror",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// AddRoom subscribes the session to a room and refreshes the mirror
func (r *Registry) AddRoom(ctx context.Context, sessionID, room string) error {
	r.mu.Lock()
	c, ok := r.conns[sessionID]
	if ok {
		c.session.JoinRoom(room)
	}
	r.mu.Unlock()

	if !ok {
		return entities.ErrSessionNotFound
	}
	r.mirror(ctx, c.session)
	return nil
}

// RemoveRoom unsubscribes the session from a room
func (r *Registry) RemoveRoom(ctx context.Context, sessionID, room string) error {
	r.mu.Lock()
	c, ok := r.conns[sessionID]
	if ok {
		c.session.LeaveRoom(room)
	}
	r.mu.Unlock()

	if !ok {
		return entities.ErrSessionNotFound
	}
	r.mirror(ctx, c.session)
	return nil
}

// Lookup resolves a session by id. Local connections win; otherwise
// the shared cache is consulted so sessions on other instances are
// visible.
func (r *Registry) Lookup(ctx context.Context, sessionID string) (*entities.Session, error) {
	r.mu.RLock()
	c, ok := r.conns[sessionID]
	r.mu.RUnlock()
	if ok {
		return c.session, nil
	}

	raw, found, err := r.store.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.ErrSessionNotFound
	}
	var session entities.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Count returns the number of connections on this instance
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast delivers an event to every local session subscribed to the
// event's room. Sessions whose buffers are full are skipped rather
// than blocking the fanout loop.
func (r *Registry) Broadcast(event entities.DomainEvent) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, c := range r.conns {
		if !AuthorizeEvent(c.session, event) {
			continue
		}
		select {
		case c.send <- event:
			delivered++
		default:
			if r.logger != nil {
				r.logger.Warn("dropping event for slow session",
					zap.String("session_id", c.session.ID),
					zap.String("event_type", event.Type),
				)
			}
		}
	}
	return delivered
}

func (r *Registry) mirror(ctx context.Context, session *entities.Session) {
	raw, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := r.store.Set(ctx, sessionKeyPrefix+session.ID, string(raw), sessionTTL); err != nil && r.logger != nil {
		r.logger.Warn("failed to mirror session",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}

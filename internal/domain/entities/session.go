package entities

import (
	"time"

	"github.com/google/uuid"
)

// Session is the ephemeral state of one realtime connection. It lives
// in the in-process registry and is mirrored into the shared cache so
// other instances can observe liveness; it is never persisted.
type Session struct {
	ID          string    `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Roles       []string  `json:"roles"`
	ConnectedAt time.Time `json:"connected_at"`
	Rooms       []string  `json:"rooms"`
}

// NewSession creates a session for an authenticated connection
func NewSession(userID, tenantID uuid.UUID, roles []string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		TenantID:    tenantID,
		Roles:       roles,
		ConnectedAt: time.Now(),
	}
}

// HasRole reports whether the session holds the given role
func (s *Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// InRoom reports whether the session is subscribed to the room
func (s *Session) InRoom(room string) bool {
	for _, r := range s.Rooms {
		if r == room {
			return true
		}
	}
	return false
}

// JoinRoom adds the room to the subscription set (idempotent)
func (s *Session) JoinRoom(room string) {
	if !s.InRoom(room) {
		s.Rooms = append(s.Rooms, room)
	}
}

// LeaveRoom removes the room from the subscription set
func (s *Session) LeaveRoom(room string) {
	for i, r := range s.Rooms {
		if r == room {
			s.Rooms = append(s.Rooms[:i], s.Rooms[i+1:]...)
			return
		}
	}
}

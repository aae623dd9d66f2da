package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Domain event types emitted by the engine
const (
	EventTransmissionCompleted = "transmission.completed"
	EventTransmissionFailed    = "transmission.failed"
	EventExecutionPending      = "execution.pending_approval"
	EventExecutionExecuted     = "execution.executed"
	EventExecutionRejected     = "execution.rejected"
	EventExecutionFailed       = "execution.failed"
	EventIncidentCreated       = "incident.created"
)

// DomainEvent is a typed state-change notification. Room doubles as the
// event-bus routing key and is the only scope the event may reach.
type DomainEvent struct {
	Type       string                 `json:"type"`
	TenantID   uuid.UUID              `json:"tenant_id"`
	ResourceID string                 `json:"resource_id"`
	Room       string                 `json:"room"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// NewDomainEvent builds an event routed to the given room
func NewDomainEvent(eventType string, tenantID uuid.UUID, resourceID, room string, attrs map[string]interface{}) DomainEvent {
	return DomainEvent{
		Type:       eventType,
		TenantID:   tenantID,
		ResourceID: resourceID,
		Room:       room,
		Attributes: attrs,
		Timestamp:  time.Now().UTC(),
	}
}

// Routing key / room identifier builders. The key format is shared
// verbatim between the event bus and the gateway room names.

// OrgRoom is the tenant-wide room every connection auto-joins
func OrgRoom(tenantID uuid.UUID) string {
	return fmt.Sprintf("org:%s", tenantID)
}

// ChannelRoom scopes events to a single radio channel
func ChannelRoom(tenantID, channelID uuid.UUID) string {
	return fmt.Sprintf("channel:%s:%s", tenantID, channelID)
}

// IncidentRoom scopes events to a single incident
func IncidentRoom(tenantID uuid.UUID, incidentID string) string {
	return fmt.Sprintf("incident:%s:%s", tenantID, incidentID)
}

// AdminRoom carries tenant administration events
func AdminRoom(tenantID uuid.UUID) string {
	return fmt.Sprintf("admin:%s", tenantID)
}

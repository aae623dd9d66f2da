// Package repositories declares the persistence interfaces consumed by
// the usecase layer. GORM implementations live in adapter/repository;
// tests substitute in-memory fakes.
package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// ChannelRepository manages per-tenant radio source configuration
type ChannelRepository interface {
	Create(ctx context.Context, channel *entities.Channel) error
	Update(ctx context.Context, channel *entities.Channel) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entities.Channel, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]entities.Channel, error)
	ListActiveBySourceType(ctx context.Context, sourceType entities.ChannelSourceType) ([]entities.Channel, error)
}

// TransmissionFilter narrows transmission listings
type TransmissionFilter struct {
	ChannelID *uuid.UUID
	Status    entities.TransmissionStatus
	Priority  entities.Priority
	Limit     int
}

// TransmissionRepository manages annotated transmission records
type TransmissionRepository interface {
	Create(ctx context.Context, tm *entities.Transmission) error
	Update(ctx context.Context, tm *entities.Transmission) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Transmission, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filter TransmissionFilter) ([]entities.Transmission, error)
	AppendTags(ctx context.Context, id uuid.UUID, tags []string) error
	LinkIncident(ctx context.Context, id uuid.UUID, incidentID string) error
	AppendTaskIDs(ctx context.Context, id uuid.UUID, taskIDs []string) error
}

// PolicyRepository manages condition/action rule definitions
type PolicyRepository interface {
	Create(ctx context.Context, policy *entities.Policy) error
	Update(ctx context.Context, policy *entities.Policy) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entities.Policy, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]entities.Policy, error)
	// ListActiveByTenant returns active policies ordered ascending by
	// priority, ties broken by creation order.
	ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]entities.Policy, error)
	TouchLastTriggered(ctx context.Context, id uuid.UUID) error
}

// ExecutionFilter narrows execution listings
type ExecutionFilter struct {
	Status         entities.ExecutionStatus
	PolicyID       *uuid.UUID
	TransmissionID *uuid.UUID
	Limit          int
}

// ExecutionRepository manages policy execution audit records
type ExecutionRepository interface {
	Create(ctx context.Context, exec *entities.PolicyExecution) error
	Update(ctx context.Context, exec *entities.PolicyExecution) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.PolicyExecution, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filter ExecutionFilter) ([]entities.PolicyExecution, error)
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
)

// ExecutionRepository implements the execution repository interface
// using GORM
type ExecutionRepository struct {
	db *gorm.DB
}

// NewExecutionRepository creates a new execution repository
func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Create creates a new policy execution record
func (r *ExecutionRepository) Create(ctx context.Context, exec *entities.PolicyExecution) error {
	if exec == nil {
		return errors.New("execution cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(exec).Error; err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}
	return nil
}

// Update saves the current state of an execution
func (r *ExecutionRepository) Update(ctx context.Context, exec *entities.PolicyExecution) error {
	if exec == nil {
		return errors.New("execution cannot be nil")
	}
	if err := r.db.WithContext(ctx).
		Model(&entities.PolicyExecution{}).
		Where("id = ?", exec.ID).
		Save(exec).Error; err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}
	return nil
}

// FindByID retrieves an execution by ID
func (r *ExecutionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.PolicyExecution, error) {
	var exec entities.PolicyExecution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&exec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("failed to find execution by ID: %w", err)
	}
	return &exec, nil
}

// ListByTenant lists executions for a tenant, newest first
func (r *ExecutionRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter repositories.ExecutionFilter) ([]entities.PolicyExecution, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PolicyID != nil {
		query = query.Where("policy_id = ?", *filter.PolicyID)
	}
	if filter.TransmissionID != nil {
		query = query.Where("transmission_id = ?", *filter.TransmissionID)
	}
	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}

	var execs []entities.PolicyExecution
	if err := query.Order("created_at DESC").Limit(limit).Find(&execs).Error; err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return execs, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// PolicyRepository implements the policy repository interface using GORM
type PolicyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// Create creates a new policy
func (r *PolicyRepository) Create(ctx context.Context, policy *entities.Policy) error {
	if policy == nil {
		return errors.New("policy cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(policy).Error; err != nil {
		return fmt.Errorf("failed to create policy: %w", err)
	}
	return nil
}

// Update saves policy edits (including soft-deactivation)
func (r *PolicyRepository) Update(ctx context.Context, policy *entities.Policy) error {
	if policy == nil {
		return errors.New("policy cannot be nil")
	}
	if err := r.db.WithContext(ctx).Save(policy).Error; err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	return nil
}

// FindByID finds a policy scoped to a tenant
func (r *PolicyRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entities.Policy, error) {
	var policy entities.Policy
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&policy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to find policy by ID: %w", err)
	}
	return &policy, nil
}

// ListByTenant lists all policies of a tenant including inactive ones
func (r *PolicyRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]entities.Policy, error) {
	var policies []entities.Policy
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("priority ASC, created_at ASC").
		Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

// ListActiveByTenant lists active policies in evaluation order:
// priority ascending, ties broken by creation order
func (r *PolicyRepository) ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]entities.Policy, error) {
	var policies []entities.Policy
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("priority ASC, created_at ASC").
		Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("failed to list active policies: %w", err)
	}
	return policies, nil
}

// TouchLastTriggered records the trigger time of the latest match
func (r *PolicyRepository) TouchLastTriggered(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.Policy{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_triggered_at": now,
			"updated_at":        now,
		}).Error
}

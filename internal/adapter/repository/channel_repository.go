package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// ChannelRepository implements the channel repository interface using GORM
type ChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create creates a new channel
func (r *ChannelRepository) Create(ctx context.Context, channel *entities.Channel) error {
	if err := r.db.WithContext(ctx).Create(channel).Error; err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

// Update saves channel edits
func (r *ChannelRepository) Update(ctx context.Context, channel *entities.Channel) error {
	if err := r.db.WithContext(ctx).Save(channel).Error; err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	return nil
}

// FindByID finds a channel scoped to a tenant
func (r *ChannelRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entities.Channel, error) {
	var channel entities.Channel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrUnknownChannel
		}
		return nil, fmt.Errorf("failed to find channel by ID: %w", err)
	}
	return &channel, nil
}

// ListByTenant lists all channels of a tenant, newest first
func (r *ChannelRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]entities.Channel, error) {
	var channels []entities.Channel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// ListActiveBySourceType lists active channels of one source type
// across tenants, used by the polling scheduler
func (r *ChannelRepository) ListActiveBySourceType(ctx context.Context, sourceType entities.ChannelSourceType) ([]entities.Channel, error) {
	var channels []entities.Channel
	if err := r.db.WithContext(ctx).
		Where("source_type = ? AND active = ?", sourceType, true).
		Order("created_at ASC").
		Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels by source type: %w", err)
	}
	return channels, nil
}

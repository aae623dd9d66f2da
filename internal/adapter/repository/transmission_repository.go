package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
)

// TransmissionRepository implements the transmission repository
// interface using GORM
type TransmissionRepository struct {
	db *gorm.DB
}

// NewTransmissionRepository creates a new transmission repository
func NewTransmissionRepository(db *gorm.DB) *TransmissionRepository {
	return &TransmissionRepository{db: db}
}

// Create creates a new transmission
func (r *TransmissionRepository) Create(ctx context.Context, tm *entities.Transmission) error {
	if tm == nil {
		return errors.New("transmission cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(tm).Error; err != nil {
		return fmt.Errorf("failed to create transmission: %w", err)
	}
	return nil
}

// Update saves the current state of a transmission
func (r *TransmissionRepository) Update(ctx context.Context, tm *entities.Transmission) error {
	if tm == nil {
		return errors.New("transmission cannot be nil")
	}
	if err := r.db.WithContext(ctx).
		Model(&entities.Transmission{}).
		Where("id = ?", tm.ID).
		Save(tm).Error; err != nil {
		return fmt.Errorf("failed to update transmission: %w", err)
	}
	return nil
}

// FindByID retrieves a transmission by ID
func (r *TransmissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Transmission, error) {
	var tm entities.Transmission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrTransmissionNotFound
		}
		return nil, fmt.Errorf("failed to find transmission by ID: %w", err)
	}
	return &tm, nil
}

// ListByTenant lists transmissions for a tenant, newest first
func (r *TransmissionRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter repositories.TransmissionFilter) ([]entities.Transmission, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.ChannelID != nil {
		query = query.Where("channel_id = ?", *filter.ChannelID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}

	var tms []entities.Transmission
	if err := query.Order("created_at DESC").Limit(limit).Find(&tms).Error; err != nil {
		return nil, fmt.Errorf("failed to list transmissions: %w", err)
	}
	return tms, nil
}

// AppendTags adds tags to a transmission without duplicates. The merge
// happens inside one UPDATE so concurrent appends never overwrite each
// other.
func (r *TransmissionRepository) AppendTags(ctx context.Context, id uuid.UUID, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	payload, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	result := r.db.WithContext(ctx).
		Model(&entities.Transmission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tags": gorm.Expr(
				`(SELECT COALESCE(jsonb_agg(DISTINCT elem), '[]'::jsonb)
				    FROM jsonb_array_elements(tags || ?::jsonb) AS t(elem))`,
				string(payload)),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to append tags: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.ErrTransmissionNotFound
	}
	return nil
}

// LinkIncident records the incident created from this transmission
func (r *TransmissionRepository) LinkIncident(ctx context.Context, id uuid.UUID, incidentID string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Transmission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"incident_id": incidentID,
			"updated_at":  time.Now(),
		}).Error
}

// AppendTaskIDs records tasks created from this transmission. Uses a
// jsonb concat in place so concurrent appends both land.
func (r *TransmissionRepository) AppendTaskIDs(ctx context.Context, id uuid.UUID, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	payload, err := json.Marshal(taskIDs)
	if err != nil {
		return fmt.Errorf("failed to encode task ids: %w", err)
	}
	result := r.db.WithContext(ctx).
		Model(&entities.Transmission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"task_ids":   gorm.Expr("task_ids || ?::jsonb", string(payload)),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to append task ids: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.ErrTransmissionNotFound
	}
	return nil
}

package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChannelSourceType represents how audio reaches a channel
type ChannelSourceType string

const (
	ChannelSourceSignaling  ChannelSourceType = "signaling"   // Trunked signaling protocol feed
	ChannelSourceHTTPPush   ChannelSourceType = "http_push"   // Remote recorder pushes segments to our API
	ChannelSourceFileDrop   ChannelSourceType = "file_drop"   // Shared directory / object-store drop
	ChannelSourcePollingAPI ChannelSourceType = "polling_api" // We poll a remote endpoint on a schedule
)

// Channel represents one configured radio source for a tenant.
// Channels are edited in place and deactivated, never hard-deleted.
type Channel struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     uuid.UUID         `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Name         string            `json:"name" gorm:"type:varchar(255);not null"`
	Talkgroup    string            `json:"talkgroup" gorm:"type:varchar(100)"`
	SourceType   ChannelSourceType `json:"source_type" gorm:"type:varchar(30);not null"`
	SourceConfig datatypes.JSON    `json:"source_config" gorm:"type:jsonb;default:'{}'"`
	Active       bool              `json:"active" gorm:"not null;default:true;index"`
	CreatedAt    time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Channel
func (Channel) TableName() string {
	return "channels"
}

// NewChannel creates a new active channel
func NewChannel(tenantID uuid.UUID, name, talkgroup string, sourceType ChannelSourceType, sourceConfig datatypes.JSON) *Channel {
	return &Channel{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         name,
		Talkgroup:    talkgroup,
		SourceType:   sourceType,
		SourceConfig: sourceConfig,
		Active:       true,
	}
}

// Deactivate marks the channel inactive
func (c *Channel) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now()
}

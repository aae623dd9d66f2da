// Package channel holds request/response shapes for channel endpoints
package channel

import (
	"encoding/json"
	"time"
)

// CreateChannelRequest is the body of POST /channels
type CreateChannelRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Talkgroup    string          `json:"talkgroup" validate:"max=100"`
	SourceType   string          `json:"source_type" validate:"required,oneof=signaling http_push file_drop polling_api"`
	SourceConfig json.RawMessage `json:"source_config,omitempty"`
}

// UpdateChannelRequest is the body of PUT /channels/:id
type UpdateChannelRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Talkgroup    string          `json:"talkgroup" validate:"max=100"`
	SourceConfig json.RawMessage `json:"source_config,omitempty"`
}

// ChannelResponse is the wire shape of a channel
type ChannelResponse struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	Name         string          `json:"name"`
	Talkgroup    string          `json:"talkgroup,omitempty"`
	SourceType   string          `json:"source_type"`
	SourceConfig json.RawMessage `json:"source_config,omitempty"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ChannelListResponse wraps a channel listing
type ChannelListResponse struct {
	Channels []ChannelResponse `json:"channels"`
	Total    int               `json:"total"`
}

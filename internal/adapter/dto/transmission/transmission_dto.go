// Package transmission holds request/response shapes for transmission
// endpoints
package transmission

import (
	"time"
)

// IngestRequest is the body of POST /transmissions
type IngestRequest struct {
	ChannelID string    `json:"channel_id" validate:"required,uuid"`
	AudioRef  string    `json:"audio_ref" validate:"required"`
	StartedAt time.Time `json:"started_at" validate:"required"`
	EndedAt   time.Time `json:"ended_at" validate:"required"`
}

// ListRequest holds the query parameters of GET /transmissions
type ListRequest struct {
	ChannelID string `query:"channel_id"`
	Status    string `query:"status"`
	Priority  string `query:"priority" validate:"priority"`
	Limit     int    `query:"limit"`
}

// TransmissionResponse is the wire shape of a transmission
type TransmissionResponse struct {
	ID                   string              `json:"id"`
	ChannelID            string              `json:"channel_id"`
	TenantID             string              `json:"tenant_id"`
	StartedAt            time.Time           `json:"started_at"`
	EndedAt              time.Time           `json:"ended_at"`
	AudioRef             string              `json:"audio_ref"`
	AudioURL             string              `json:"audio_url,omitempty"`
	Transcript           *string             `json:"transcript,omitempty"`
	TranscriptConfidence float64             `json:"transcript_confidence"`
	LanguageCode         string              `json:"language_code,omitempty"`
	Entities             map[string][]string `json:"entities"`
	Intent               string              `json:"intent,omitempty"`
	Priority             string              `json:"priority"`
	Tags                 []string            `json:"tags"`
	Status               string              `json:"status"`
	IncidentID           *string             `json:"incident_id,omitempty"`
	TaskIDs              []string            `json:"task_ids,omitempty"`
	ErrorMessage         *string             `json:"error_message,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// TransmissionListResponse wraps a transmission listing
type TransmissionListResponse struct {
	Transmissions []TransmissionResponse `json:"transmissions"`
	Total         int                    `json:"total"`
}

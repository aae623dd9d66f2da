package entities

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransmissionStatus represents the processing stage of a transmission
type TransmissionStatus string

const (
	TransmissionStatusPending      TransmissionStatus = "pending"      // Created, waiting for transcription
	TransmissionStatusTranscribing TransmissionStatus = "transcribing" // Speech-to-text in progress
	TransmissionStatusAnalyzing    TransmissionStatus = "analyzing"    // Entity/intent extraction in progress
	TransmissionStatusComplete     TransmissionStatus = "complete"     // Fully annotated, policies evaluated
	TransmissionStatusFailed       TransmissionStatus = "failed"       // A collaborator faulted; error recorded
)

// statusRank orders statuses so they can only advance forward.
var statusRank = map[TransmissionStatus]int{
	TransmissionStatusPending:      0,
	TransmissionStatusTranscribing: 1,
	TransmissionStatusAnalyzing:    2,
	TransmissionStatusComplete:     3,
	TransmissionStatusFailed:       3,
}

// IsTerminal reports whether the status is final
func (s TransmissionStatus) IsTerminal() bool {
	return s == TransmissionStatusComplete || s == TransmissionStatusFailed
}

// CanAdvanceTo reports whether a transition to next is a forward move
func (s TransmissionStatus) CanAdvanceTo(next TransmissionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// Priority represents dispatch urgency of a transmission
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityNormal   Priority = "NORMAL"
	PriorityLow      Priority = "LOW"
)

// Rank returns a numeric urgency for ordering comparisons, higher is more urgent
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	}
	return -1
}

// IsValid reports whether p is a known priority
func (p Priority) IsValid() bool {
	return p.Rank() >= 0
}

// EntityMap maps an extracted entity category to its values, e.g.
// {"units": ["12"], "codes": ["CODE 3"]}
type EntityMap map[string][]string

// Scan implements sql.Scanner interface for GORM
func (m *EntityMap) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer interface for GORM
func (m EntityMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(EntityMap{})
	}
	return json.Marshal(m)
}

// StringList is a JSONB-backed list of strings (tags, task ids)
type StringList []string

// Scan implements sql.Scanner interface for GORM
func (l *StringList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer interface for GORM
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(l))
}

// Contains reports whether the list holds v
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

// Transmission is one ingested radio audio segment plus derived annotations.
// Records are append-only; status only moves forward.
type Transmission struct {
	ID                   uuid.UUID          `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ChannelID            uuid.UUID          `json:"channel_id" gorm:"type:uuid;not null;index"`
	TenantID             uuid.UUID          `json:"tenant_id" gorm:"type:uuid;not null;index"`
	StartedAt            time.Time          `json:"started_at" gorm:"not null"`
	EndedAt              time.Time          `json:"ended_at" gorm:"not null"`
	AudioRef             string             `json:"audio_ref" gorm:"type:text;not null"`
	Transcript           *string            `json:"transcript,omitempty" gorm:"type:text"`
	TranscriptConfidence float64            `json:"transcript_confidence" gorm:"type:double precision;default:0"`
	LanguageCode         string             `json:"language_code" gorm:"type:varchar(10)"`
	Entities             EntityMap          `json:"entities" gorm:"type:jsonb;default:'{}'"`
	Intent               string             `json:"intent" gorm:"type:varchar(100)"`
	Priority             Priority           `json:"priority" gorm:"type:varchar(10);not null;default:'NORMAL';index"`
	Tags                 StringList         `json:"tags" gorm:"type:jsonb;default:'[]'"`
	Status               TransmissionStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	IncidentID           *string            `json:"incident_id,omitempty" gorm:"type:varchar(255)"`
	TaskIDs              StringList         `json:"task_ids" gorm:"type:jsonb;default:'[]'"`
	ErrorMessage         *string            `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt            time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt            time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Transmission
func (Transmission) TableName() string {
	return "transmissions"
}

// NewTransmission creates a pending transmission for a channel
func NewTransmission(channelID, tenantID uuid.UUID, audioRef string, startedAt, endedAt time.Time) *Transmission {
	return &Transmission{
		ID:        uuid.New(),
		ChannelID: channelID,
		TenantID:  tenantID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		AudioRef:  audioRef,
		Priority:  PriorityNormal,
		Status:    TransmissionStatusPending,
	}
}

// MarkTranscribing advances the record into the transcription stage
func (t *Transmission) MarkTranscribing() error {
	if !t.Status.CanAdvanceTo(TransmissionStatusTranscribing) {
		return ErrStatusRegression
	}
	t.Status = TransmissionStatusTranscribing
	t.UpdatedAt = time.Now()
	return nil
}

// SetTranscript stores the transcription collaborator result
func (t *Transmission) SetTranscript(text string, confidence float64, languageCode string) {
	t.Transcript = &text
	t.TranscriptConfidence = confidence
	t.LanguageCode = languageCode
	t.UpdatedAt = time.Now()
}

// MarkAnalyzing advances the record into the extraction stage
func (t *Transmission) MarkAnalyzing() error {
	if !t.Status.CanAdvanceTo(TransmissionStatusAnalyzing) {
		return ErrStatusRegression
	}
	t.Status = TransmissionStatusAnalyzing
	t.UpdatedAt = time.Now()
	return nil
}

// SetAnnotations stores the extraction collaborator result
func (t *Transmission) SetAnnotations(entities EntityMap, intent string, priority Priority, tags []string) {
	t.Entities = entities
	t.Intent = intent
	if priority.IsValid() {
		t.Priority = priority
	}
	for _, tag := range tags {
		if !t.Tags.Contains(tag) {
			t.Tags = append(t.Tags, tag)
		}
	}
	t.UpdatedAt = time.Now()
}

// MarkComplete finalizes the record
func (t *Transmission) MarkComplete() error {
	if !t.Status.CanAdvanceTo(TransmissionStatusComplete) {
		return ErrStatusRegression
	}
	t.Status = TransmissionStatusComplete
	t.UpdatedAt = time.Now()
	return nil
}

// MarkFailed records a collaborator fault and freezes the record
func (t *Transmission) MarkFailed(msg string) {
	t.Status = TransmissionStatusFailed
	t.ErrorMessage = &msg
	t.UpdatedAt = time.Now()
}

// ResetForRetry moves a failed transmission back to pending for an
// operator-triggered rerun. Annotations from the failed run are kept,
// the error is cleared.
func (t *Transmission) ResetForRetry() error {
	if t.Status != TransmissionStatusFailed {
		return ErrStatusRegression
	}
	t.Status = TransmissionStatusPending
	t.ErrorMessage = nil
	t.UpdatedAt = time.Now()
	return nil
}

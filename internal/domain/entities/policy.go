package entities

import (
	"time"

	"github.com/google/uuid"
)

// PolicyMode represents the operating mode of a policy
type PolicyMode string

const (
	PolicyModeMonitorOnly PolicyMode = "monitor_only" // Record matches, run no actions
	PolicyModeHITL        PolicyMode = "hitl"         // Halt for human approval before actions run
	PolicyModeAutonomous  PolicyMode = "autonomous"   // Run actions immediately on match
)

// IsValid reports whether m is a known operating mode
func (m PolicyMode) IsValid() bool {
	return m == PolicyModeMonitorOnly || m == PolicyModeHITL || m == PolicyModeAutonomous
}

// Policy is a tenant-defined condition/action automation rule.
// Policies are soft-deactivated, never hard-deleted, so that past
// PolicyExecutions keep a valid audit trail.
type Policy struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID        uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Name            string     `json:"name" gorm:"type:varchar(255);not null"`
	Description     string     `json:"description" gorm:"type:text"`
	Conditions      Condition  `json:"conditions" gorm:"type:jsonb;serializer:json;not null"`
	Actions         ActionList `json:"actions" gorm:"type:jsonb;default:'[]'"`
	Active          bool       `json:"active" gorm:"not null;default:true;index"`
	Priority        int        `json:"priority" gorm:"not null;default:100;index"` // ascending evaluation order
	Mode            PolicyMode `json:"mode" gorm:"type:varchar(20);not null;default:'monitor_only'"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Policy
func (Policy) TableName() string {
	return "policies"
}

// NewPolicy creates a new active policy
func NewPolicy(tenantID uuid.UUID, name string, conditions Condition, actions ActionList, mode PolicyMode, priority int) *Policy {
	return &Policy{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       name,
		Conditions: conditions,
		Actions:    actions,
		Active:     true,
		Priority:   priority,
		Mode:       mode,
	}
}

// Deactivate soft-deletes the policy
func (p *Policy) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now()
}

// Touch records the trigger time of the latest match
func (p *Policy) Touch() {
	now := time.Now()
	p.LastTriggeredAt = &now
	p.UpdatedAt = now
}

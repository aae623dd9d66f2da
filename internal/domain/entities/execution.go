package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ExecutionStatus represents the outcome state of a policy match
type ExecutionStatus string

const (
	ExecutionStatusPendingApproval ExecutionStatus = "pending_approval" // hitl only
	ExecutionStatusRunning         ExecutionStatus = "running"          // resolution in progress
	ExecutionStatusExecuted        ExecutionStatus = "executed"
	ExecutionStatusRejected        ExecutionStatus = "rejected"
	ExecutionStatusFailed          ExecutionStatus = "failed"
)

// IsTerminal reports whether the status is final. Terminal executions
// are never mutated again.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusExecuted || s == ExecutionStatusRejected || s == ExecutionStatusFailed
}

// PolicyExecution records one policy match against one transmission,
// with a snapshot of the matched conditions and action list so later
// policy edits cannot rewrite the audit trail. Immutable once terminal.
type PolicyExecution struct {
	ID               uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PolicyID         uuid.UUID       `json:"policy_id" gorm:"type:uuid;not null;index"`
	TransmissionID   uuid.UUID       `json:"transmission_id" gorm:"type:uuid;not null;index"`
	TenantID         uuid.UUID       `json:"tenant_id" gorm:"type:uuid;not null;index"`
	MatchedSnapshot  datatypes.JSON  `json:"matched_snapshot" gorm:"type:jsonb;default:'{}'"`
	Actions          ActionList      `json:"actions" gorm:"type:jsonb;default:'[]'"`
	Mode             PolicyMode      `json:"mode" gorm:"type:varchar(20);not null"`
	Status           ExecutionStatus `json:"status" gorm:"type:varchar(30);not null;index"`
	RequiresApproval bool            `json:"requires_approval" gorm:"not null;default:false"`
	ApproverID       *uuid.UUID      `json:"approver_id,omitempty" gorm:"type:uuid"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	ApprovalNotes    *string         `json:"approval_notes,omitempty" gorm:"type:text"`
	IncidentID       *string         `json:"incident_id,omitempty" gorm:"type:varchar(255)"`
	TaskIDs          StringList      `json:"task_ids" gorm:"type:jsonb;default:'[]'"`
	ActionsExecuted  StringList      `json:"actions_executed" gorm:"type:jsonb;default:'[]'"`
	ErrorMessage     *string         `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for PolicyExecution
func (PolicyExecution) TableName() string {
	return "policy_executions"
}

// NewPolicyExecution materializes a policy match. Only hitl mode ever
// requires approval; the other modes start running and reach a
// terminal status only once resolution finishes, so a reader never
// sees "executed" before the actions have actually run.
func NewPolicyExecution(policy *Policy, transmissionID uuid.UUID, matchedSnapshot datatypes.JSON) *PolicyExecution {
	e := &PolicyExecution{
		ID:               uuid.New(),
		PolicyID:         policy.ID,
		TransmissionID:   transmissionID,
		TenantID:         policy.TenantID,
		MatchedSnapshot:  matchedSnapshot,
		Actions:          policy.Actions,
		Mode:             policy.Mode,
		RequiresApproval: policy.Mode == PolicyModeHITL,
	}
	if policy.Mode == PolicyModeHITL {
		e.Status = ExecutionStatusPendingApproval
	} else {
		e.Status = ExecutionStatusRunning
	}
	return e
}

// SetApproval records who resolved a pending execution
func (e *PolicyExecution) SetApproval(approverID uuid.UUID, notes string) {
	now := time.Now()
	e.ApproverID = &approverID
	e.ApprovedAt = &now
	if notes != "" {
		e.ApprovalNotes = &notes
	}
	e.UpdatedAt = now
}

// MarkRunning moves an approved execution into resolution
func (e *PolicyExecution) MarkRunning() {
	e.Status = ExecutionStatusRunning
	e.UpdatedAt = time.Now()
}

// MarkExecuted finalizes a fully successful execution
func (e *PolicyExecution) MarkExecuted() {
	e.Status = ExecutionStatusExecuted
	e.UpdatedAt = time.Now()
}

// MarkRejected finalizes a rejected execution; no actions ran
func (e *PolicyExecution) MarkRejected() {
	e.Status = ExecutionStatusRejected
	e.UpdatedAt = time.Now()
}

// MarkFailed finalizes a partially or fully failed execution. Actions
// that completed before the fault stay recorded in ActionsExecuted.
func (e *PolicyExecution) MarkFailed(msg string) {
	e.Status = ExecutionStatusFailed
	e.ErrorMessage = &msg
	e.UpdatedAt = time.Now()
}

// RecordActionDone appends one completed action to the audit list
func (e *PolicyExecution) RecordActionDone(t ActionType) {
	e.ActionsExecuted = append(e.ActionsExecuted, string(t))
	e.UpdatedAt = time.Now()
}

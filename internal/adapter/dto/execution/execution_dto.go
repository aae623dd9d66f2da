// Package execution holds request/response shapes for policy execution
// endpoints
package execution

import (
	"encoding/json"
	"time"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// ApproveRequest is the optional body of POST /executions/:id/approve
type ApproveRequest struct {
	Notes string `json:"notes"`
}

// RejectRequest is the optional body of POST /executions/:id/reject
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ListRequest holds the query parameters of GET /executions
type ListRequest struct {
	Status         string `query:"status"`
	PolicyID       string `query:"policy_id"`
	TransmissionID string `query:"transmission_id"`
	Limit          int    `query:"limit"`
}

// ExecutionResponse is the wire shape of a policy execution. The
// matched snapshot is the field view the policy matched against,
// frozen at evaluation time.
type ExecutionResponse struct {
	ID               string              `json:"id"`
	TenantID         string              `json:"tenant_id"`
	PolicyID         string              `json:"policy_id"`
	TransmissionID   string              `json:"transmission_id"`
	Mode             string              `json:"mode"`
	Status           string              `json:"status"`
	RequiresApproval bool                `json:"requires_approval"`
	MatchedSnapshot  json.RawMessage     `json:"matched_snapshot,omitempty"`
	Actions          entities.ActionList `json:"actions"`
	ActionsExecuted  []string            `json:"actions_executed,omitempty"`
	IncidentID       *string             `json:"incident_id,omitempty"`
	TaskIDs          []string            `json:"task_ids,omitempty"`
	ApproverID       *string             `json:"approver_id,omitempty"`
	ApprovedAt       *time.Time          `json:"approved_at,omitempty"`
	ApprovalNotes    *string             `json:"approval_notes,omitempty"`
	ErrorMessage     *string             `json:"error_message,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// ExecutionListResponse wraps an execution listing
type ExecutionListResponse struct {
	Executions []ExecutionResponse `json:"executions"`
	Total      int                 `json:"total"`
}

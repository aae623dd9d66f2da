// Package policy holds request/response shapes for policy endpoints
package policy

import (
	"time"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// CreatePolicyRequest is the body of POST /policies
type CreatePolicyRequest struct {
	Name        string              `json:"name" validate:"required,max=255"`
	Description string              `json:"description"`
	Conditions  entities.Condition  `json:"conditions" validate:"required"`
	Actions     entities.ActionList `json:"actions"`
	Mode        string              `json:"mode" validate:"required,oneof=monitor_only hitl autonomous"`
	Priority    int                 `json:"priority"`
}

// UpdatePolicyRequest is the body of PUT /policies/:id
type UpdatePolicyRequest struct {
	Name        string              `json:"name" validate:"required,max=255"`
	Description string              `json:"description"`
	Conditions  entities.Condition  `json:"conditions" validate:"required"`
	Actions     entities.ActionList `json:"actions"`
	Mode        string              `json:"mode" validate:"required,oneof=monitor_only hitl autonomous"`
	Priority    int                 `json:"priority"`
}

// PolicyResponse is the wire shape of a policy
type PolicyResponse struct {
	ID              string              `json:"id"`
	TenantID        string              `json:"tenant_id"`
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	Conditions      entities.Condition  `json:"conditions"`
	Actions         entities.ActionList `json:"actions"`
	Active          bool                `json:"active"`
	Priority        int                 `json:"priority"`
	Mode            string              `json:"mode"`
	LastTriggeredAt *time.Time          `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// PolicyListResponse wraps a policy listing
type PolicyListResponse struct {
	Policies []PolicyResponse `json:"policies"`
	Total    int              `json:"total"`
}

package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	policyDTO "github.com/dispatchcrew/airdispatch/internal/adapter/dto/policy"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
)

// Policy handles policy HTTP requests
type Policy struct {
	policyRepo repositories.PolicyRepository
	logger     *zap.Logger
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(policyRepo repositories.PolicyRepository, logger *zap.Logger) *Policy {
	return &Policy{
		policyRepo: policyRepo,
		logger:     logger,
	}
}

// CreatePolicy handles POST /policies
func (h *Policy) CreatePolicy(c echo.Context) error {
	var req policyDTO.CreatePolicyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}
	if err := req.Conditions.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_conditions",
			"message": err.Error(),
		})
	}
	if err := req.Actions.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_actions",
			"message": err.Error(),
		})
	}

	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	priority := req.Priority
	if priority == 0 {
		priority = 100
	}

	policy := entities.NewPolicy(tenantID, req.Name, req.Conditions, req.Actions,
		entities.PolicyMode(req.Mode), priority)
	policy.Description = req.Description

	if err := h.policyRepo.Create(c.Request().Context(), policy); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusCreated, toPolicyResponse(policy))
}

// GetPolicy handles GET /policies/:id
func (h *Policy) GetPolicy(c echo.Context) error {
	policyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_policy_id",
			"message": "policy ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	policy, err := h.policyRepo.FindByID(c.Request().Context(), tenantID, policyID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, toPolicyResponse(policy))
}

// ListPolicies handles GET /policies
func (h *Policy) ListPolicies(c echo.Context) error {
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	policies, err := h.policyRepo.ListByTenant(c.Request().Context(), tenantID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp := policyDTO.PolicyListResponse{
		Policies: make([]policyDTO.PolicyResponse, 0, len(policies)),
		Total:    len(policies),
	}
	for i := range policies {
		resp.Policies = append(resp.Policies, toPolicyResponse(&policies[i]))
	}
	return HandleSuccess(h.logger, c, http.StatusOK, resp)
}

// UpdatePolicy handles PUT /policies/:id. Edits do not touch past
// executions; those hold their own snapshot.
func (h *Policy) UpdatePolicy(c echo.Context) error {
	policyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_policy_id",
			"message": "policy ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	var req policyDTO.UpdatePolicyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}
	if err := req.Conditions.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_conditions",
			"message": err.Error(),
		})
	}
	if err := req.Actions.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_actions",
			"message": err.Error(),
		})
	}

	policy, err := h.policyRepo.FindByID(c.Request().Context(), tenantID, policyID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	policy.Name = req.Name
	policy.Description = req.Description
	policy.Conditions = req.Conditions
	policy.Actions = req.Actions
	policy.Mode = entities.PolicyMode(req.Mode)
	if req.Priority != 0 {
		policy.Priority = req.Priority
	}

	if err := h.policyRepo.Update(c.Request().Context(), policy); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, toPolicyResponse(policy))
}

// DeactivatePolicy handles DELETE /policies/:id. Soft-deactivation
// keeps the execution audit trail pointing at a real policy.
func (h *Policy) DeactivatePolicy(c echo.Context) error {
	policyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_policy_id",
			"message": "policy ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	policy, err := h.policyRepo.FindByID(c.Request().Context(), tenantID, policyID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	policy.Deactivate()
	if err := h.policyRepo.Update(c.Request().Context(), policy); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, toPolicyResponse(policy))
}

func toPolicyResponse(policy *entities.Policy) policyDTO.PolicyResponse {
	return policyDTO.PolicyResponse{
		ID:              policy.ID.String(),
		TenantID:        policy.TenantID.String(),
		Name:            policy.Name,
		Description:     policy.Description,
		Conditions:      policy.Conditions,
		Actions:         policy.Actions,
		Active:          policy.Active,
		Priority:        policy.Priority,
		Mode:            string(policy.Mode),
		LastTriggeredAt: policy.LastTriggeredAt,
		CreatedAt:       policy.CreatedAt,
		UpdatedAt:       policy.UpdatedAt,
	}
}

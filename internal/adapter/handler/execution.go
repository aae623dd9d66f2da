package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	executionDTO "github.com/dispatchcrew/airdispatch/internal/adapter/dto/execution"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
	"github.com/dispatchcrew/airdispatch/internal/usecase/approval"
)

// Execution handles policy execution HTTP requests
type Execution struct {
	approvalService *approval.Service
	execRepo        repositories.ExecutionRepository
	logger          *zap.Logger
}

// NewExecutionHandler creates a new execution handler
func NewExecutionHandler(approvalService *approval.Service, execRepo repositories.ExecutionRepository, logger *zap.Logger) *Execution {
	return &Execution{
		approvalService: approvalService,
		execRepo:        execRepo,
		logger:          logger,
	}
}

// GetExecution handles GET /executions/:id
func (h *Execution) GetExecution(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_execution_id",
			"message": "execution ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	exec, err := h.execRepo.FindByID(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if exec.TenantID != tenantID {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error":   "execution_not_found",
			"message": "execution not found",
		})
	}
	return HandleSuccess(h.logger, c, http.StatusOK, toExecutionResponse(exec))
}

// ListExecutions handles GET /executions
func (h *Execution) ListExecutions(c echo.Context) error {
	var req executionDTO.ListRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
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

	filter := repositories.ExecutionFilter{
		Status: entities.ExecutionStatus(req.Status),
		Limit:  req.Limit,
	}
	if req.PolicyID != "" {
		policyID, err := uuid.Parse(req.PolicyID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "invalid_policy_id",
				"message": "policy ID must be a valid UUID",
			})
		}
		filter.PolicyID = &policyID
	}
	if req.TransmissionID != "" {
		transmissionID, err := uuid.Parse(req.TransmissionID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "invalid_transmission_id",
				"message": "transmission ID must be a valid UUID",
			})
		}
		filter.TransmissionID = &transmissionID
	}

	executions, err := h.execRepo.ListByTenant(c.Request().Context(), tenantID, filter)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp := executionDTO.ExecutionListResponse{
		Executions: make([]executionDTO.ExecutionResponse, 0, len(executions)),
		Total:      len(executions),
	}
	for i := range executions {
		resp.Executions = append(resp.Executions, toExecutionResponse(&executions[i]))
	}
	return HandleSuccess(h.logger, c, http.StatusOK, resp)
}

// ApproveExecution handles POST /executions/:id/approve. Approval is
// only valid from pending_approval; a repeat approve returns a
// conflict and runs nothing.
func (h *Execution) ApproveExecution(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_execution_id",
			"message": "execution ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}
	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	var req executionDTO.ApproveRequest
	if err := c.Bind(&req); err != nil {
		req.Notes = ""
	}

	exec, err := h.approvalService.Approve(c.Request().Context(), tenantID, id, userID, req.Notes)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, toExecutionResponse(exec))
}

// RejectExecution handles POST /executions/:id/reject
func (h *Execution) RejectExecution(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_execution_id",
			"message": "execution ID must be a valid UUID",
		})
	}
	tenantID, ok := c.Get("tenant_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}
	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
	}

	var req executionDTO.RejectRequest
	if err := c.Bind(&req); err != nil {
		req.Reason = ""
	}

	exec, err := h.approvalService.Reject(c.Request().Context(), tenantID, id, userID, req.Reason)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, toExecutionResponse(exec))
}

func toExecutionResponse(exec *entities.PolicyExecution) executionDTO.ExecutionResponse {
	resp := executionDTO.ExecutionResponse{
		ID:               exec.ID.String(),
		TenantID:         exec.TenantID.String(),
		PolicyID:         exec.PolicyID.String(),
		TransmissionID:   exec.TransmissionID.String(),
		Mode:             string(exec.Mode),
		Status:           string(exec.Status),
		RequiresApproval: exec.RequiresApproval,
		MatchedSnapshot:  []byte(exec.MatchedSnapshot),
		Actions:          exec.Actions,
		ActionsExecuted:  exec.ActionsExecuted,
		IncidentID:       exec.IncidentID,
		TaskIDs:          exec.TaskIDs,
		ApprovedAt:       exec.ApprovedAt,
		ApprovalNotes:    exec.ApprovalNotes,
		ErrorMessage:     exec.ErrorMessage,
		CreatedAt:        exec.CreatedAt,
		UpdatedAt:        exec.UpdatedAt,
	}
	if exec.ApproverID != nil {
		s := exec.ApproverID.String()
		resp.ApproverID = &s
	}
	return resp
}

// Package approval resolves policy executions: it owns the
// pending_approval state machine and the ordered action runner shared
// by the autonomous and hitl paths.
package approval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/dispatchcrew/airdispatch/errors"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/bus"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/external/dispatch"
)

// IncidentCreator creates incidents in the external back-end
type IncidentCreator interface {
	CreateIncident(ctx context.Context, req dispatch.IncidentRequest) (string, error)
}

// TaskCreator creates tasks in the external back-end
type TaskCreator interface {
	CreateTask(ctx context.Context, req dispatch.TaskRequest) (string, error)
}

// Notifier delivers notify actions
type Notifier interface {
	Notify(ctx context.Context, channel, message string) (string, error)
}

// Service drives executions to their terminal state
type Service struct {
	execRepo  repositories.ExecutionRepository
	tmRepo    repositories.TransmissionRepository
	incidents IncidentCreator
	tasks     TaskCreator
	notifier  Notifier
	publisher bus.Publisher
	logger    *zap.Logger
}

// NewService constructs the approval service
func NewService(
	execRepo repositories.ExecutionRepository,
	tmRepo repositories.TransmissionRepository,
	incidents IncidentCreator,
	tasks TaskCreator,
	notifier Notifier,
	publisher bus.Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		execRepo:  execRepo,
		tmRepo:    tmRepo,
		incidents: incidents,
		tasks:     tasks,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// Resolve takes a freshly materialized execution to its first state.
// monitor_only records the match and stops; autonomous runs the
// actions immediately; hitl announces the pending approval and waits
// for an operator.
func (s *Service) Resolve(ctx context.Context, exec *entities.PolicyExecution, tm *entities.Transmission) error {
	switch exec.Mode {
	case entities.PolicyModeMonitorOnly:
		exec.MarkExecuted()
		if err := s.execRepo.Update(ctx, exec); err != nil {
			return err
		}
		s.publish(ctx, entities.EventExecutionExecuted, exec, map[string]interface{}{
			"mode": string(exec.Mode),
		})
		return nil

	case entities.PolicyModeAutonomous:
		return s.runActions(ctx, exec, tm)

	case entities.PolicyModeHITL:
		s.publish(ctx, entities.EventExecutionPending, exec, map[string]interface{}{
			"policy_id":       exec.PolicyID.String(),
			"transmission_id": exec.TransmissionID.String(),
		})
		return nil
	}
	return fmt.Errorf("%w: %s", entities.ErrInvalidPolicyMode, exec.Mode)
}

// Approve resolves a pending hitl execution by running its snapshotted
// actions. Calling it on a terminal execution fails with an invalid
// state transition and runs nothing, which makes blind client retries
// safe.
func (s *Service) Approve(ctx context.Context, tenantID, executionID, approverID uuid.UUID, notes string) (*entities.PolicyExecution, error) {
	exec, err := s.execRepo.FindByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if exec.TenantID != tenantID {
		return nil, apperrors.ErrNotFound("execution")
	}
	if exec.Status != entities.ExecutionStatusPendingApproval {
		return nil, apperrors.ErrInvalidStateTransition(string(exec.Status)).
			WithDetail("execution_id", executionID.String())
	}

	tm, err := s.tmRepo.FindByID(ctx, exec.TransmissionID)
	if err != nil {
		return nil, err
	}

	exec.SetApproval(approverID, notes)
	exec.MarkRunning()
	// Persisting the running status before the actions start makes a
	// concurrent second approval fail the pending check above.
	if err := s.execRepo.Update(ctx, exec); err != nil {
		return nil, err
	}
	if err := s.runActions(ctx, exec, tm); err != nil {
		return exec, err
	}

	if s.logger != nil {
		s.logger.Info("execution approved",
			zap.String("execution_id", exec.ID.String()),
			zap.String("approver_id", approverID.String()),
		)
	}
	return exec, nil
}

// Reject resolves a pending hitl execution without running anything
func (s *Service) Reject(ctx context.Context, tenantID, executionID, rejectorID uuid.UUID, reason string) (*entities.PolicyExecution, error) {
	exec, err := s.execRepo.FindByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if exec.TenantID != tenantID {
		return nil, apperrors.ErrNotFound("execution")
	}
	if exec.Status != entities.ExecutionStatusPendingApproval {
		return nil, apperrors.ErrInvalidStateTransition(string(exec.Status)).
			WithDetail("execution_id", executionID.String())
	}

	exec.SetApproval(rejectorID, reason)
	exec.MarkRejected()
	if err := s.execRepo.Update(ctx, exec); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("execution rejected",
			zap.String("execution_id", exec.ID.String()),
			zap.String("rejector_id", rejectorID.String()),
			zap.String("reason", reason),
		)
	}
	s.publish(ctx, entities.EventExecutionRejected, exec, map[string]interface{}{
		"reason": reason,
	})
	return exec, nil
}

// publish emits an execution lifecycle event to the tenant org room
func (s *Service) publish(ctx context.Context, eventType string, exec *entities.PolicyExecution, attrs map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	event := entities.NewDomainEvent(eventType, exec.TenantID, exec.ID.String(),
		entities.OrgRoom(exec.TenantID), attrs)
	if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.Error("failed to publish execution event",
			zap.String("event_type", eventType),
			zap.String("execution_id", exec.ID.String()),
			zap.Error(err),
		)
	}
}

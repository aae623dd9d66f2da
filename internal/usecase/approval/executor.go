package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/dispatchcrew/airdispatch/errors"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/external/dispatch"
)

// runActions executes the snapshotted action list in declared order.
// A fault at action N stops the remaining actions but does not roll
// back actions 1..N-1; their effects (an incident that pages someone)
// are left applied and recorded in ActionsExecuted. Nothing here
// retries: duplicate side effects are worse than a failed execution an
// operator can inspect.
func (s *Service) runActions(ctx context.Context, exec *entities.PolicyExecution, tm *entities.Transmission) error {
	for _, action := range exec.Actions {
		if err := s.runAction(ctx, exec, tm, action); err != nil {
			msg := fmt.Sprintf("action %s failed: %v", action.Type, err)
			if errors.Is(err, context.DeadlineExceeded) {
				msg = fmt.Sprintf("action %s timed out", action.Type)
			}
			exec.MarkFailed(msg)
			if updateErr := s.execRepo.Update(ctx, exec); updateErr != nil && s.logger != nil {
				s.logger.Error("failed to persist failed execution",
					zap.String("execution_id", exec.ID.String()),
					zap.Error(updateErr),
				)
			}
			if s.logger != nil {
				s.logger.Error("action execution fault",
					zap.String("execution_id", exec.ID.String()),
					zap.String("action", string(action.Type)),
					zap.Strings("actions_executed", exec.ActionsExecuted),
					zap.Error(err),
				)
			}
			s.publish(ctx, entities.EventExecutionFailed, exec, map[string]interface{}{
				"error":            msg,
				"actions_executed": []string(exec.ActionsExecuted),
			})
			return apperrors.ErrActionExecutionFault(string(action.Type), err)
		}
		exec.RecordActionDone(action.Type)
	}

	exec.MarkExecuted()
	if err := s.execRepo.Update(ctx, exec); err != nil {
		return err
	}
	s.publish(ctx, entities.EventExecutionExecuted, exec, map[string]interface{}{
		"mode":             string(exec.Mode),
		"actions_executed": []string(exec.ActionsExecuted),
		"incident_id":      exec.IncidentID,
		"task_ids":         []string(exec.TaskIDs),
	})
	return nil
}

// runAction dispatches one action variant. The switch is exhaustive
// over the closed ActionType set.
func (s *Service) runAction(ctx context.Context, exec *entities.PolicyExecution, tm *entities.Transmission, action entities.Action) error {
	switch action.Type {
	case entities.ActionCreateIncident:
		if action.Incident == nil {
			return fmt.Errorf("create_incident action missing payload")
		}
		if s.incidents == nil {
			return fmt.Errorf("incident collaborator not configured")
		}
		incidentID, err := s.incidents.CreateIncident(ctx, dispatch.IncidentRequest{
			TenantID:       exec.TenantID,
			TransmissionID: tm.ID,
			Title:          s.renderTemplate(action.Incident.Title, tm),
			Severity:       action.Incident.Severity,
		})
		if err != nil {
			return err
		}
		exec.IncidentID = &incidentID
		if err := s.tmRepo.LinkIncident(ctx, tm.ID, incidentID); err != nil {
			return err
		}
		if s.publisher != nil {
			event := entities.NewDomainEvent(entities.EventIncidentCreated, exec.TenantID, incidentID,
				entities.IncidentRoom(exec.TenantID, incidentID), map[string]interface{}{
					"transmission_id": tm.ID.String(),
					"execution_id":    exec.ID.String(),
				})
			if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
				s.logger.Error("failed to publish incident event", zap.Error(err))
			}
		}
		return nil

	case entities.ActionCreateTask:
		if action.Task == nil {
			return fmt.Errorf("create_task action missing payload")
		}
		if s.tasks == nil {
			return fmt.Errorf("task collaborator not configured")
		}
		req := dispatch.TaskRequest{
			TenantID:       exec.TenantID,
			TransmissionID: tm.ID,
			Title:          s.renderTemplate(action.Task.Title, tm),
			Assignee:       action.Task.Assignee,
		}
		if exec.IncidentID != nil {
			req.IncidentID = *exec.IncidentID
		}
		taskID, err := s.tasks.CreateTask(ctx, req)
		if err != nil {
			return err
		}
		exec.TaskIDs = append(exec.TaskIDs, taskID)
		return s.tmRepo.AppendTaskIDs(ctx, tm.ID, []string{taskID})

	case entities.ActionNotify:
		if action.Notify == nil {
			return fmt.Errorf("notify action missing payload")
		}
		if s.notifier == nil {
			return fmt.Errorf("notify collaborator not configured")
		}
		_, err := s.notifier.Notify(ctx, action.Notify.Channel, s.renderTemplate(action.Notify.Message, tm))
		return err

	case entities.ActionTagTransmission:
		if action.Tag == nil {
			return fmt.Errorf("tag_transmission action missing payload")
		}
		// Local mutation only, no collaborator involved.
		return s.tmRepo.AppendTags(ctx, tm.ID, action.Tag.Tags)
	}
	return fmt.Errorf("unknown action type %q", action.Type)
}

// renderTemplate substitutes transmission fields into action text.
// Supported placeholders: {transcript}, {priority}, {intent},
// {channel_id}, {transmission_id}.
func (s *Service) renderTemplate(text string, tm *entities.Transmission) string {
	transcript := ""
	if tm.Transcript != nil {
		transcript = *tm.Transcript
	}
	r := strings.NewReplacer(
		"{transcript}", transcript,
		"{priority}", string(tm.Priority),
		"{intent}", tm.Intent,
		"{channel_id}", tm.ChannelID.String(),
		"{transmission_id}", tm.ID.String(),
	)
	return r.Replace(text)
}

package approval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/dispatchcrew/airdispatch/errors"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/bus"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/external/dispatch"
)

type memExecRepo struct {
	execs map[uuid.UUID]*entities.PolicyExecution
}

func newMemExecRepo() *memExecRepo {
	return &memExecRepo{execs: map[uuid.UUID]*entities.PolicyExecution{}}
}

func (r *memExecRepo) Create(ctx context.Context, e *entities.PolicyExecution) error {
	r.execs[e.ID] = e
	return nil
}
func (r *memExecRepo) Update(ctx context.Context, e *entities.PolicyExecution) error {
	r.execs[e.ID] = e
	return nil
}
func (r *memExecRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.PolicyExecution, error) {
	e, ok := r.execs[id]
	if !ok {
		return nil, entities.ErrExecutionNotFound
	}
	return e, nil
}
func (r *memExecRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter repositories.ExecutionFilter) ([]entities.PolicyExecution, error) {
	return nil, nil
}

type memTmRepo struct {
	tms map[uuid.UUID]*entities.Transmission
}

func newMemTmRepo() *memTmRepo {
	return &memTmRepo{tms: map[uuid.UUID]*entities.Transmission{}}
}

func (r *memTmRepo) Create(ctx context.Context, tm *entities.Transmission) error {
	r.tms[tm.ID] = tm
	return nil
}
func (r *memTmRepo) Update(ctx context.Context, tm *entities.Transmission) error {
	r.tms[tm.ID] = tm
	return nil
}
func (r *memTmRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Transmission, error) {
	tm, ok := r.tms[id]
	if !ok {
		return nil, entities.ErrTransmissionNotFound
	}
	return tm, nil
}
func (r *memTmRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter repositories.TransmissionFilter) ([]entities.Transmission, error) {
	return nil, nil
}
func (r *memTmRepo) AppendTags(ctx context.Context, id uuid.UUID, tags []string) error {
	tm, ok := r.tms[id]
	if !ok {
		return entities.ErrTransmissionNotFound
	}
	tm.Tags = append(tm.Tags, tags...)
	return nil
}
func (r *memTmRepo) LinkIncident(ctx context.Context, id uuid.UUID, incidentID string) error {
	tm, ok := r.tms[id]
	if !ok {
		return entities.ErrTransmissionNotFound
	}
	tm.IncidentID = &incidentID
	return nil
}
func (r *memTmRepo) AppendTaskIDs(ctx context.Context, id uuid.UUID, taskIDs []string) error {
	tm, ok := r.tms[id]
	if !ok {
		return entities.ErrTransmissionNotFound
	}
	tm.TaskIDs = append(tm.TaskIDs, taskIDs...)
	return nil
}

type fakeDispatch struct {
	incidents   int
	tasks       int
	incidentErr error
	taskErr     error
}

func (f *fakeDispatch) CreateIncident(ctx context.Context, req dispatch.IncidentRequest) (string, error) {
	if f.incidentErr != nil {
		return "", f.incidentErr
	}
	f.incidents++
	return fmt.Sprintf("INC-%d", f.incidents), nil
}
func (f *fakeDispatch) CreateTask(ctx context.Context, req dispatch.TaskRequest) (string, error) {
	if f.taskErr != nil {
		return "", f.taskErr
	}
	f.tasks++
	return fmt.Sprintf("TASK-%d", f.tasks), nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Notify(ctx context.Context, channel, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.messages = append(f.messages, message)
	return "msg-1", nil
}

func testSetup() (*Service, *memExecRepo, *memTmRepo, *fakeDispatch, *fakeNotifier, *bus.MemoryBus) {
	execRepo := newMemExecRepo()
	tmRepo := newMemTmRepo()
	dsp := &fakeDispatch{}
	notifier := &fakeNotifier{}
	eventBus := bus.NewMemoryBus()
	svc := NewService(execRepo, tmRepo, dsp, dsp, notifier, eventBus, nil)
	return svc, execRepo, tmRepo, dsp, notifier, eventBus
}

func nowMinus(seconds int) time.Time {
	return time.Now().UTC().Add(-time.Duration(seconds) * time.Second)
}

func testTransmission(tenantID uuid.UUID) *entities.Transmission {
	transcript := "unit 12 requesting backup, code 3"
	tm := entities.NewTransmission(uuid.New(), tenantID, "s3://audio/seg.wav", nowMinus(30), nowMinus(20))
	tm.Transcript = &transcript
	tm.Intent = "request_backup"
	tm.Priority = entities.PriorityCritical
	tm.Status = entities.TransmissionStatusComplete
	return tm
}

func testExecution(tenantID uuid.UUID, mode entities.PolicyMode, tmID uuid.UUID, actions entities.ActionList) *entities.PolicyExecution {
	p := entities.NewPolicy(tenantID, "test policy",
		entities.Literal("intent", entities.OpEqual, "request_backup"),
		actions, mode, 10)
	return entities.NewPolicyExecution(p, tmID, []byte(`{}`))
}

func TestResolveMonitorOnlyRunsNoActions(t *testing.T) {
	svc, execRepo, tmRepo, dsp, notifier, _ := testSetup()
	tenantID := uuid.New()
	tm := testTransmission(tenantID)
	tmRepo.Create(context.Background(), tm)

	exec := testExecution(tenantID, entities.PolicyModeMonitorOnly, tm.ID, entities.ActionList{
		{Type: entities.ActionCreateIncident, Incident: &entities.IncidentParams{Title: "t"}},
	})
	execRepo.Create(context.Background(), exec)

	if err := svc.Resolve(context.Background(), exec, tm); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if exec.Status != entities.ExecutionStatusExecuted {
		t.Fatalf("expected executed, got %s", exec.Status)
	}
	if dsp.incidents != 0 || len(notifier.messages) != 0 {
		t.Fatal("monitor_only must not run actions")
	}
}

func TestResolveAutonomousRunsActionsInOrder(t *testing.T) {
	svc, execRepo, tmRepo, dsp, notifier, _ := testSetup()
	tenantID := uuid.New()
	tm := testTransmission(tenantID)
	tmRepo.Create(context.Background(), tm)

	exec := testExecution(tenantID, entities.PolicyModeAutonomous, tm.ID, entities.ActionList{
		{Type: entities.ActionCreateIncident, Incident: &entities.IncidentParams{Title: "backup for {intent}"}},
		{Type: entities.ActionCreateTask, Task: &entities.TaskParams{Title: "review"}},
		{Type: entities.ActionNotify, Notify: &entities.NotifyParams{Channel: "#dispatch", Message: "{priority} call"}},
		{Type: entities.ActionTagTransmission, Tag: &entities.TagParams{Tags: []string{"escalated"}}},
	})
	execRepo.Create(context.Background(), exec)

	if err := svc.Resolve(context.Background(), exec, tm); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if exec.Status != entities.ExecutionStatusExecuted {
		t.Fatalf("expected executed, got %s", exec.Status)
	}
	if len(exec.ActionsExecuted) != 4 {
		t.Fatalf("expected 4 recorded actions, got %d", len(exec.ActionsExecuted))
	}
	if dsp.incidents != 1 || dsp.tasks != 1 {
		t.Fatalf("expected one incident and one task, got %d/%d", dsp.incidents, dsp.tasks)
	}
	if exec.IncidentID == nil || *exec.IncidentID != "INC-1" {
		t.Fatalf("incident id not recorded: %v", exec.IncidentID)
	}
	if tm.IncidentID == nil || *tm.IncidentID != "INC-1" {
		t.Fatal("transmission not linked to incident")
	}
	if len(tm.TaskIDs) != 1 || tm.TaskIDs[0] != "TASK-1" {
		t.Fatalf("task ids not appended: %v", tm.TaskIDs)
	}
	if len(notifier.messages) != 1 || notifier.messages[0] != "CRITICAL call" {
		t.Fatalf("notify template not rendered: %v", notifier.messages)
	}
	if len(tm.Tags) == 0 || tm.Tags[len(tm.Tags)-1] != "escalated" {
		t.Fatalf("tags not appended: %v", tm.Tags)
	}
}

func TestResolvePartialFailureKeepsCompletedActions(t *testing.T) {
	svc, execRepo, tmRepo, dsp, _, _ := testSetup()
	tenantID := uuid.New()
	tm := testTransmission(tenantID)
	tmRepo.Create(context.Background(), tm)

	dsp.taskErr = errors.New("dispatch back-end down")

	exec := testExecution(tenantID, entities.PolicyModeAutonomous, tm.ID, entities.ActionList{
		{Type: entities.ActionCreateIncident, Incident: &entities.IncidentParams{Title: "t"}},
		{Type: entities.ActionCreateTask, Task: &entities.TaskParams{Title: "review"}},
		{Type: entities.ActionNotify, Notify: &entities.NotifyParams{Channel: "#dispatch", Message: "m"}},
	})
	execRepo.Create(context.Background(), exec)

	err := svc.Resolve(context.Background(), exec, tm)
	if err == nil {
		t.Fatal("expected action fault")
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrorCode_ACTION_EXECUTION_FAULT {
		t.Fatalf("expected action execution fault, got %v", err)
	}

	if exec.Status != entities.ExecutionStatusFailed {
		t.Fatalf("expected failed, got %s", exec.Status)
	}
	// The incident created before the fault stays applied and recorded.
	if len(exec.ActionsExecuted) != 1 || exec.ActionsExecuted[0] != string(entities.ActionCreateIncident) {
		t.Fatalf("expected one recorded action, got %v", exec.ActionsExecuted)
	}
	if tm.IncidentID == nil {
		t.Fatal("completed incident action was rolled back")
	}
	if exec.ErrorMessage == nil {
		t.Fatal("failure reason not recorded")
	}
}

func TestApproveRunsActionsOnce(t *testing.T) {
	svc, execRepo, tmRepo, dsp, _, _ := testSetup()
	tenantID := uuid.New()
	approver := uuid.New()
	tm := testTransmission(tenantID)
	tmRepo.Create(context.Background(), tm)

	exec := testExecution(tenantID, entities.PolicyModeHITL, tm.ID, entities.ActionList{
		{Type: entities.ActionCreateIncident, Incident: &entities.IncidentParams{Title: "critical backup"}},
	})
	execRepo.Create(context.Background(), exec)

	if exec.Status != entities.ExecutionStatusPendingApproval {
		t.Fatalf("hitl execution must start pending, got %s", exec.Status)
	}

	got, err := svc.Approve(context.Background(), tenantID, exec.ID, approver, "looks right")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if got.Status != entities.ExecutionStatusExecuted {
		t.Fatalf("expected executed, got %s", got.Status)
	}
	if got.IncidentID == nil {
		t.Fatal("approved execution missing incident id")
	}
	if got.ApproverID == nil || *got.ApproverID != approver {
		t.Fatal("approver not recorded")
	}
	if dsp.incidents != 1 {
		t.Fatalf("expected 1 incident, got %d", dsp.incidents)
	}

	// A second approve is a state-transition conflict and runs nothing.
	_, err = svc.Approve(context.Background(), tenantID, exec.ID, approver, "")
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrorCode_INVALID_STATE_TRANSITION {
		t.Fatalf("expected invalid state transition, got %v", err)
	}
	if dsp.incidents != 1 {
		t.Fatal("double approve ran actions twice")
	}
}

func TestRejectRunsNothing(t *testing.T) {
	svc, execRepo, tmRepo, dsp, _, _ := testSetup()
	tenantID := uuid.New()
	tm := testTransmission(tenantID)
	tmRepo.Create(context.Background(), tm)

	exec := testExecution(tenantID, entities.PolicyModeHITL, tm.ID, entities.ActionList{
		{Type: entities.ActionCreateIncident, Incident: &entities.IncidentParams{Title: "t"}},
	})
	execRepo.Create(context.Background(), exec)

	got, err := svc.Reject(context.Background(), tenantID, exec.ID, uuid.New(), "false positive")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if got.Status != entities.ExecutionStatusRejected {
		t.Fatalf("expected rejected, got %s", got.Status)
	}
	if dsp.incidents != 0 {
		t.Fatal("reject must not run actions")
	}

	// Approving after reject is also a conflict.
	_, err = svc.Approve(context.Background(), tenantID, exec.ID, uuid.New(), "")
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrorCode_INVALID_STATE_TRANSITION {
		t.Fatalf("expected invalid state transition, got %v", err)
	}
}

func TestApproveWrongTenantIsNotFound(t *testing.T) {
	svc, execRepo, tmRepo, _, _, _ := testSetup()
	tenantID := uuid.New()
	tm := testTransmission(tenantID)
	tmRepo.Create(context.Background(), tm)

	exec := testExecution(tenantID, entities.PolicyModeHITL, tm.ID, entities.ActionList{
		{Type: entities.ActionNotify, Notify: &entities.NotifyParams{Channel: "#x", Message: "m"}},
	})
	execRepo.Create(context.Background(), exec)

	_, err := svc.Approve(context.Background(), uuid.New(), exec.ID, uuid.New(), "")
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrorCode_NOT_FOUND {
		t.Fatalf("expected not found for foreign tenant, got %v", err)
	}
}

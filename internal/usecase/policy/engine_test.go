package policy

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
)

type fakePolicyRepo struct {
	policies  []entities.Policy
	touched   []uuid.UUID
	listErr   error
	touchErrs map[uuid.UUID]error
}

func (f *fakePolicyRepo) Create(ctx context.Context, p *entities.Policy) error { return nil }
func (f *fakePolicyRepo) Update(ctx context.Context, p *entities.Policy) error { return nil }
func (f *fakePolicyRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entities.Policy, error) {
	for i := range f.policies {
		if f.policies[i].ID == id {
			return &f.policies[i], nil
		}
	}
	return nil, entities.ErrPolicyNotFound
}
func (f *fakePolicyRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]entities.Policy, error) {
	return f.policies, nil
}
func (f *fakePolicyRepo) ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]entities.Policy, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.policies, nil
}
func (f *fakePolicyRepo) TouchLastTriggered(ctx context.Context, id uuid.UUID) error {
	f.touched = append(f.touched, id)
	if f.touchErrs != nil {
		return f.touchErrs[id]
	}
	return nil
}

type fakeExecRepo struct {
	created []*entities.PolicyExecution
	updated []*entities.PolicyExecution
}

func (f *fakeExecRepo) Create(ctx context.Context, e *entities.PolicyExecution) error {
	f.created = append(f.created, e)
	return nil
}
func (f *fakeExecRepo) Update(ctx context.Context, e *entities.PolicyExecution) error {
	f.updated = append(f.updated, e)
	return nil
}
func (f *fakeExecRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.PolicyExecution, error) {
	for _, e := range f.created {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, entities.ErrExecutionNotFound
}
func (f *fakeExecRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter repositories.ExecutionFilter) ([]entities.PolicyExecution, error) {
	return nil, nil
}

type recordingResolver struct {
	resolved []*entities.PolicyExecution
}

func (r *recordingResolver) Resolve(ctx context.Context, exec *entities.PolicyExecution, tm *entities.Transmission) error {
	r.resolved = append(r.resolved, exec)
	return nil
}

func newTestPolicy(tenantID uuid.UUID, name string, cond entities.Condition, mode entities.PolicyMode, priority int) entities.Policy {
	p := entities.NewPolicy(tenantID, name, cond, entities.ActionList{
		{Type: entities.ActionTagTransmission, Tag: &entities.TagParams{Tags: []string{"auto"}}},
	}, mode, priority)
	return *p
}

func TestEngineFiresEveryMatchingPolicy(t *testing.T) {
	tm := sampleTransmission()

	policyRepo := &fakePolicyRepo{policies: []entities.Policy{
		newTestPolicy(tm.TenantID, "backup watch",
			entities.Literal("intent", entities.OpEqual, "request_backup"),
			entities.PolicyModeMonitorOnly, 10),
		newTestPolicy(tm.TenantID, "high priority watch",
			entities.Literal("priority", entities.OpGreaterEq, "HIGH"),
			entities.PolicyModeHITL, 20),
		newTestPolicy(tm.TenantID, "medical watch",
			entities.Literal("intent", entities.OpEqual, "medical"),
			entities.PolicyModeAutonomous, 30),
	}}
	execRepo := &fakeExecRepo{}
	resolver := &recordingResolver{}

	engine := NewEngine(policyRepo, execRepo, resolver, nil)
	if err := engine.EvaluateTransmission(context.Background(), tm); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	// Two of three policies match; there is no first-match-wins.
	if len(execRepo.created) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(execRepo.created))
	}
	if len(resolver.resolved) != 2 {
		t.Fatalf("expected 2 resolutions, got %d", len(resolver.resolved))
	}
	if len(policyRepo.touched) != 2 {
		t.Fatalf("expected 2 trigger touches, got %d", len(policyRepo.touched))
	}
}

func TestEngineIsolatesEvaluationErrors(t *testing.T) {
	tm := sampleTransmission()

	policyRepo := &fakePolicyRepo{policies: []entities.Policy{
		newTestPolicy(tm.TenantID, "broken policy",
			entities.Literal("no_such_field", entities.OpEqual, "x"),
			entities.PolicyModeAutonomous, 10),
		newTestPolicy(tm.TenantID, "working policy",
			entities.Literal("intent", entities.OpEqual, "request_backup"),
			entities.PolicyModeMonitorOnly, 20),
	}}
	execRepo := &fakeExecRepo{}
	resolver := &recordingResolver{}

	engine := NewEngine(policyRepo, execRepo, resolver, nil)
	if err := engine.EvaluateTransmission(context.Background(), tm); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	// The broken policy is skipped; the working one still fires.
	if len(execRepo.created) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execRepo.created))
	}
	if execRepo.created[0].PolicyID != policyRepo.policies[1].ID {
		t.Fatal("wrong policy fired")
	}
}

func TestEngineApprovalInvariant(t *testing.T) {
	tm := sampleTransmission()
	cond := entities.Literal("intent", entities.OpEqual, "request_backup")

	policyRepo := &fakePolicyRepo{policies: []entities.Policy{
		newTestPolicy(tm.TenantID, "monitor", cond, entities.PolicyModeMonitorOnly, 10),
		newTestPolicy(tm.TenantID, "hitl", cond, entities.PolicyModeHITL, 20),
		newTestPolicy(tm.TenantID, "auto", cond, entities.PolicyModeAutonomous, 30),
	}}
	execRepo := &fakeExecRepo{}
	resolver := &recordingResolver{}

	engine := NewEngine(policyRepo, execRepo, resolver, nil)
	if err := engine.EvaluateTransmission(context.Background(), tm); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if len(execRepo.created) != 3 {
		t.Fatalf("expected 3 executions, got %d", len(execRepo.created))
	}

	for _, exec := range execRepo.created {
		wantApproval := exec.Mode == entities.PolicyModeHITL
		if exec.RequiresApproval != wantApproval {
			t.Fatalf("mode %s: requires_approval=%v", exec.Mode, exec.RequiresApproval)
		}
		if wantApproval && exec.Status != entities.ExecutionStatusPendingApproval {
			t.Fatalf("hitl execution not pending, got %s", exec.Status)
		}
		if !wantApproval && exec.Status != entities.ExecutionStatusRunning {
			t.Fatalf("mode %s must be created running, got %s", exec.Mode, exec.Status)
		}
		// Nothing has run yet, so the persisted record must not be
		// terminal at creation.
		if !wantApproval && exec.Status.IsTerminal() {
			t.Fatalf("mode %s persisted terminal before resolution", exec.Mode)
		}
	}
}

func TestEngineSnapshotSurvivesPolicyEdit(t *testing.T) {
	tm := sampleTransmission()

	p := newTestPolicy(tm.TenantID, "watch",
		entities.Literal("intent", entities.OpEqual, "request_backup"),
		entities.PolicyModeAutonomous, 10)
	policyRepo := &fakePolicyRepo{policies: []entities.Policy{p}}
	execRepo := &fakeExecRepo{}
	resolver := &recordingResolver{}

	engine := NewEngine(policyRepo, execRepo, resolver, nil)
	if err := engine.EvaluateTransmission(context.Background(), tm); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	exec := execRepo.created[0]
	originalActions := len(exec.Actions)

	// Edit the live policy after the match.
	policyRepo.policies[0].Actions = append(policyRepo.policies[0].Actions,
		entities.Action{Type: entities.ActionNotify, Notify: &entities.NotifyParams{Channel: "#x", Message: "m"}})

	if len(exec.Actions) != originalActions {
		t.Fatal("execution action snapshot changed after policy edit")
	}
	if len(exec.MatchedSnapshot) == 0 {
		t.Fatal("execution missing matched snapshot")
	}
}

package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
)

// Resolver takes a freshly created PolicyExecution to its first
// resolution: record-only for monitor_only, immediate action run for
// autonomous, pending announcement for hitl. Implemented by the
// approval service.
type Resolver interface {
	Resolve(ctx context.Context, exec *entities.PolicyExecution, tm *entities.Transmission) error
}

// Engine matches completed transmissions against active policies.
// Every policy is evaluated independently; there is no
// first-match-wins short-circuit because several automations may
// legitimately apply to one transmission.
type Engine struct {
	policyRepo repositories.PolicyRepository
	execRepo   repositories.ExecutionRepository
	resolver   Resolver
	logger     *zap.Logger
}

// NewEngine constructs the policy engine
func NewEngine(
	policyRepo repositories.PolicyRepository,
	execRepo repositories.ExecutionRepository,
	resolver Resolver,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		policyRepo: policyRepo,
		execRepo:   execRepo,
		resolver:   resolver,
		logger:     logger,
	}
}

// EvaluateTransmission runs every active policy of the transmission's
// tenant against it, in priority order. A policy whose condition tree
// cannot be evaluated is logged and skipped; it never aborts the rest.
func (e *Engine) EvaluateTransmission(ctx context.Context, tm *entities.Transmission) error {
	policies, err := e.policyRepo.ListActiveByTenant(ctx, tm.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load active policies: %w", err)
	}

	matches := 0
	for i := range policies {
		p := &policies[i]
		matched, snapshot, evalErr := evaluate(p.Conditions, tm)
		if evalErr != nil {
			// Evaluation faults are isolated per policy.
			if e.logger != nil {
				e.logger.Error("policy evaluation failed",
					zap.String("policy_id", p.ID.String()),
					zap.String("transmission_id", tm.ID.String()),
					zap.Error(evalErr),
				)
			}
			continue
		}
		if !matched {
			continue
		}
		matches++
		if err := e.materializeMatch(ctx, p, tm, snapshot); err != nil {
			return err
		}
	}

	if e.logger != nil {
		e.logger.Info("transmission evaluated against policies",
			zap.String("transmission_id", tm.ID.String()),
			zap.Int("policies", len(policies)),
			zap.Int("matches", matches),
		)
	}
	return nil
}

// materializeMatch snapshots the match into a PolicyExecution and
// hands it to the resolver. The snapshot protects the audit trail from
// later policy edits.
func (e *Engine) materializeMatch(ctx context.Context, p *entities.Policy, tm *entities.Transmission, snapshot map[string]interface{}) error {
	snapJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode match snapshot: %w", err)
	}

	exec := entities.NewPolicyExecution(p, tm.ID, datatypes.JSON(snapJSON))
	if err := e.execRepo.Create(ctx, exec); err != nil {
		return fmt.Errorf("failed to create execution for policy %s: %w", p.ID, err)
	}
	if err := e.policyRepo.TouchLastTriggered(ctx, p.ID); err != nil && e.logger != nil {
		e.logger.Warn("failed to record policy trigger time",
			zap.String("policy_id", p.ID.String()),
			zap.Error(err),
		)
	}

	if e.logger != nil {
		e.logger.Info("policy matched transmission",
			zap.String("policy_id", p.ID.String()),
			zap.String("policy_name", p.Name),
			zap.String("transmission_id", tm.ID.String()),
			zap.String("mode", string(p.Mode)),
			zap.String("execution_id", exec.ID.String()),
		)
	}

	return e.resolver.Resolve(ctx, exec, tm)
}

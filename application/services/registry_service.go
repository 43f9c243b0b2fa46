package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
)

// RegistryService manages the supporting records hanging off an intent:
// assumptions, risks and tasks. They share a shape (create, list by intent,
// guarded status change) so one service covers all three.
type RegistryService struct {
	assumptions ports.AssumptionRepository
	risks       ports.RiskRepository
	tasks       ports.TaskRepository
	intents     ports.IntentRepository
	logger      *zap.Logger
}

// NewRegistryService creates a new registry service.
func NewRegistryService(
	assumptions ports.AssumptionRepository,
	risks ports.RiskRepository,
	tasks ports.TaskRepository,
	intents ports.IntentRepository,
	logger *zap.Logger,
) *RegistryService {
	return &RegistryService{
		assumptions: assumptions,
		risks:       risks,
		tasks:       tasks,
		intents:     intents,
		logger:      logger,
	}
}

// CreateAssumption records an assumption against an intent. origin says
// whether a human stated it or an accepted AI proposal materialized it.
func (s *RegistryService) CreateAssumption(ctx context.Context, tenantID, intentID, statement string, confidence *float64, origin entities.Origin, expiryHint string) (*entities.Assumption, error) {
	if _, err := s.intents.GetByID(ctx, tenantID, intentID); err != nil {
		return nil, err
	}

	assumption, err := entities.NewAssumption(tenantID, intentID, statement, confidence, origin, expiryHint)
	if err != nil {
		return nil, err
	}

	if err := s.storeAssumption(ctx, assumption); err != nil {
		return nil, err
	}
	return assumption, nil
}

// storeAssumption persists an already-validated assumption. Proposal
// acceptance uses it directly when materializing.
func (s *RegistryService) storeAssumption(ctx context.Context, assumption *entities.Assumption) error {
	if err := s.assumptions.Save(ctx, assumption); err != nil {
		return fmt.Errorf("failed to save assumption: %w", err)
	}

	s.logger.Info("assumption recorded",
		zap.String("assumptionId", assumption.ID()),
		zap.String("intentId", assumption.IntentID()),
		zap.String("tenantId", assumption.TenantID()),
		zap.String("origin", string(assumption.CreatedFrom())),
	)
	return nil
}

// GetAssumption returns a single assumption scoped to the tenant.
func (s *RegistryService) GetAssumption(ctx context.Context, tenantID, assumptionID string) (*entities.Assumption, error) {
	return s.assumptions.GetByID(ctx, tenantID, assumptionID)
}

// ListAssumptions returns an intent's assumptions in creation order.
func (s *RegistryService) ListAssumptions(ctx context.Context, tenantID, intentID string) ([]*entities.Assumption, error) {
	return s.assumptions.ListByIntent(ctx, tenantID, intentID)
}

// InvalidateAssumption flips an active assumption to invalidated. The write
// is conditional on the assumption still being active.
func (s *RegistryService) InvalidateAssumption(ctx context.Context, tenantID, assumptionID string) (*entities.Assumption, error) {
	assumption, err := s.assumptions.GetByID(ctx, tenantID, assumptionID)
	if err != nil {
		return nil, err
	}

	expectedStatus := assumption.Status()
	if err := assumption.Invalidate(); err != nil {
		return nil, err
	}

	if err := s.assumptions.Update(ctx, assumption, expectedStatus); err != nil {
		return nil, fmt.Errorf("failed to invalidate assumption: %w", err)
	}

	s.logger.Info("assumption invalidated",
		zap.String("assumptionId", assumptionID),
		zap.String("tenantId", tenantID),
	)
	return assumption, nil
}

// CreateRisk records a risk against an intent. Severity and likelihood may
// be left empty for an ungraded risk.
func (s *RegistryService) CreateRisk(ctx context.Context, tenantID, intentID, statement string, severity entities.RiskSeverity, likelihood entities.RiskLikelihood, origin entities.Origin, mitigationNotes string) (*entities.Risk, error) {
	if _, err := s.intents.GetByID(ctx, tenantID, intentID); err != nil {
		return nil, err
	}

	risk, err := entities.NewRisk(tenantID, intentID, statement, severity, likelihood, origin, mitigationNotes)
	if err != nil {
		return nil, err
	}

	if err := s.storeRisk(ctx, risk); err != nil {
		return nil, err
	}
	return risk, nil
}

// storeRisk persists an already-validated risk. Proposal acceptance uses it
// directly when materializing.
func (s *RegistryService) storeRisk(ctx context.Context, risk *entities.Risk) error {
	if err := s.risks.Save(ctx, risk); err != nil {
		return fmt.Errorf("failed to save risk: %w", err)
	}

	s.logger.Info("risk recorded",
		zap.String("riskId", risk.ID()),
		zap.String("intentId", risk.IntentID()),
		zap.String("tenantId", risk.TenantID()),
		zap.String("severity", string(risk.Severity())),
		zap.String("origin", string(risk.CreatedFrom())),
	)
	return nil
}

// GetRisk returns a single risk scoped to the tenant.
func (s *RegistryService) GetRisk(ctx context.Context, tenantID, riskID string) (*entities.Risk, error) {
	return s.risks.GetByID(ctx, tenantID, riskID)
}

// ListRisks returns an intent's risks in creation order.
func (s *RegistryService) ListRisks(ctx context.Context, tenantID, intentID string) ([]*entities.Risk, error) {
	return s.risks.ListByIntent(ctx, tenantID, intentID)
}

// ResolveRisk closes out an active risk as mitigated or accepted.
func (s *RegistryService) ResolveRisk(ctx context.Context, tenantID, riskID string, target entities.RiskStatus, mitigationNotes string) (*entities.Risk, error) {
	risk, err := s.risks.GetByID(ctx, tenantID, riskID)
	if err != nil {
		return nil, err
	}

	expectedStatus := risk.Status()
	if err := risk.Resolve(target, mitigationNotes); err != nil {
		return nil, err
	}

	if err := s.risks.Update(ctx, risk, expectedStatus); err != nil {
		return nil, fmt.Errorf("failed to resolve risk: %w", err)
	}

	s.logger.Info("risk resolved",
		zap.String("riskId", riskID),
		zap.String("tenantId", tenantID),
		zap.String("resolution", string(target)),
	)
	return risk, nil
}

// CreateTask records an execution task under an intent, optionally tied to
// the decision that motivated it.
func (s *RegistryService) CreateTask(ctx context.Context, tenantID, intentID, decisionID, title, description, owner string, sla *time.Time, externalSystemRef string) (*entities.Task, error) {
	if _, err := s.intents.GetByID(ctx, tenantID, intentID); err != nil {
		return nil, err
	}

	task, err := entities.NewTask(tenantID, intentID, decisionID, title, description, owner, sla, externalSystemRef)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	s.logger.Info("task created",
		zap.String("taskId", task.ID()),
		zap.String("intentId", intentID),
		zap.String("tenantId", tenantID),
		zap.String("owner", owner),
	)
	return task, nil
}

// GetTask returns a single task scoped to the tenant.
func (s *RegistryService) GetTask(ctx context.Context, tenantID, taskID string) (*entities.Task, error) {
	return s.tasks.GetByID(ctx, tenantID, taskID)
}

// ListTasks returns an intent's tasks in creation order.
func (s *RegistryService) ListTasks(ctx context.Context, tenantID, intentID string) ([]*entities.Task, error) {
	return s.tasks.ListByIntent(ctx, tenantID, intentID)
}

// UpdateTaskStatus moves a task through its workflow. Illegal moves fail
// with the allowed set for the current status.
func (s *RegistryService) UpdateTaskStatus(ctx context.Context, tenantID, taskID string, target entities.TaskStatus) (*entities.Task, error) {
	task, err := s.tasks.GetByID(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}

	expectedStatus := task.Status()
	if err := task.UpdateStatus(target); err != nil {
		return nil, err
	}

	if err := s.tasks.Update(ctx, task, expectedStatus); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.logger.Info("task status updated",
		zap.String("taskId", taskID),
		zap.String("tenantId", tenantID),
		zap.String("status", string(target)),
	)
	return task, nil
}

// ReassignTask hands a task to a new owner.
func (s *RegistryService) ReassignTask(ctx context.Context, tenantID, taskID, owner string) (*entities.Task, error) {
	task, err := s.tasks.GetByID(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}

	task.Reassign(owner)
	if err := s.tasks.Update(ctx, task, task.Status()); err != nil {
		return nil, fmt.Errorf("failed to reassign task: %w", err)
	}
	return task, nil
}

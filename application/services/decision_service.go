package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/domain/events"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// DecisionService owns the append-only decision ledger. Entries are only
// ever committed or superseded; nothing is edited or deleted, so the ledger
// stays a faithful history of what was decided and when.
type DecisionService struct {
	decisions ports.DecisionRepository
	intents   ports.IntentRepository
	publisher ports.EventPublisher
	ai        ports.AIService
	logger    *zap.Logger
}

// NewDecisionService creates a new decision service.
func NewDecisionService(
	decisions ports.DecisionRepository,
	intents ports.IntentRepository,
	publisher ports.EventPublisher,
	ai ports.AIService,
	logger *zap.Logger,
) *DecisionService {
	return &DecisionService{
		decisions: decisions,
		intents:   intents,
		publisher: publisher,
		ai:        ai,
		logger:    logger,
	}
}

// Commit appends a new active decision to an intent's ledger. The caller is
// recorded as the human approver. The mirror to the memory service and the
// decision.committed event are best effort and never roll a commit back.
func (s *DecisionService) Commit(ctx context.Context, tenantID, userID, intentID string, draft entities.DecisionDraft) (*entities.Decision, error) {
	if _, err := s.intents.GetByID(ctx, tenantID, intentID); err != nil {
		return nil, err
	}

	decision, err := entities.NewDecision(tenantID, intentID, userID, draft)
	if err != nil {
		return nil, err
	}

	if err := s.commitPrepared(ctx, decision); err != nil {
		return nil, err
	}
	return decision, nil
}

// commitPrepared persists an already-validated decision and fires the
// commit side effects. Proposal acceptance uses it to materialize approved
// decision proposals without re-running the intent check.
func (s *DecisionService) commitPrepared(ctx context.Context, decision *entities.Decision) error {
	if err := s.decisions.Save(ctx, decision); err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}

	s.logger.Info("decision committed",
		zap.String("decisionId", decision.ID()),
		zap.String("intentId", decision.IntentID()),
		zap.String("tenantId", decision.TenantID()),
		zap.String("approver", decision.HumanApprover()),
	)

	s.mirrorToMemory(decision)

	event := events.NewDecisionCommitted(decision.ID(), decision.TenantID(), decision.IntentID(), decision.FinalChoice(), decision.HumanApprover(), decision.DecisionTimestamp())
	dispatch(s.logger, "publish decision.committed", func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	})
	return nil
}

// Supersede retires an active decision and commits its replacement in one
// atomic step. The replacement carries a supersedes marker pointing at the
// original, so the chain is reconstructable from the ledger alone. Returns
// the updated original and the replacement.
func (s *DecisionService) Supersede(ctx context.Context, tenantID, userID, decisionID string, draft entities.DecisionDraft) (*entities.Decision, *entities.Decision, error) {
	original, err := s.decisions.GetByID(ctx, tenantID, decisionID)
	if err != nil {
		return nil, nil, err
	}
	if !original.IsActive() {
		return nil, nil, errors.NewAlreadySupersededError(decisionID)
	}

	inputs := make([]string, 0, len(draft.AIInputsReferenced)+1)
	inputs = append(inputs, draft.AIInputsReferenced...)
	draft.AIInputsReferenced = append(inputs, entities.SupersedesMarker(decisionID))

	replacement, err := entities.NewDecision(tenantID, original.IntentID(), userID, draft)
	if err != nil {
		return nil, nil, err
	}

	if err := original.MarkSuperseded(); err != nil {
		return nil, nil, err
	}

	// The repository re-validates that the original is still active at
	// write time; a conflict means another supersede won the race.
	if err := s.decisions.Supersede(ctx, original, replacement); err != nil {
		if errors.IsType(err, errors.ErrorTypeConflict) {
			return nil, nil, errors.NewAlreadySupersededError(decisionID)
		}
		return nil, nil, fmt.Errorf("failed to supersede decision: %w", err)
	}

	s.logger.Info("decision superseded",
		zap.String("originalId", original.ID()),
		zap.String("replacementId", replacement.ID()),
		zap.String("intentId", original.IntentID()),
		zap.String("tenantId", tenantID),
	)

	s.mirrorToMemory(replacement)

	superseded := events.NewDecisionSuperseded(original.ID(), replacement.ID(), tenantID, original.IntentID(), userID, time.Now().UTC())
	committed := events.NewDecisionCommitted(replacement.ID(), tenantID, replacement.IntentID(), replacement.FinalChoice(), userID, replacement.DecisionTimestamp())
	dispatch(s.logger, "publish decision.superseded", func(ctx context.Context) error {
		return s.publisher.PublishBatch(ctx, []events.DomainEvent{superseded, committed})
	})

	return original, replacement, nil
}

// Get returns a single decision scoped to the tenant.
func (s *DecisionService) Get(ctx context.Context, tenantID, decisionID string) (*entities.Decision, error) {
	return s.decisions.GetByID(ctx, tenantID, decisionID)
}

// ListByIntent returns every decision on an intent, newest first.
func (s *DecisionService) ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Decision, error) {
	decisions, err := s.decisions.ListByIntent(ctx, tenantID, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	reverseDecisions(decisions)
	return decisions, nil
}

// GetLedger returns an intent's full decision history in commit order,
// superseded entries included.
func (s *DecisionService) GetLedger(ctx context.Context, tenantID, intentID string) ([]*entities.Decision, error) {
	decisions, err := s.decisions.ListByIntent(ctx, tenantID, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return decisions, nil
}

// GetActiveByIntent returns only the decisions still in force, newest first.
func (s *DecisionService) GetActiveByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Decision, error) {
	decisions, err := s.decisions.ListActiveByIntent(ctx, tenantID, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active decisions: %w", err)
	}
	reverseDecisions(decisions)
	return decisions, nil
}

// mirrorToMemory pushes a committed decision into the memory service so
// later context lookups can surface it. Best effort.
func (s *DecisionService) mirrorToMemory(decision *entities.Decision) {
	title := decision.DecisionStatement()
	content := formatDecisionMemory(decision)
	intentID := decision.IntentID()

	dispatch(s.logger, "mirror decision to memory", func(ctx context.Context) error {
		return s.ai.StoreMemory(ctx, intentID, title, content)
	})
}

func formatDecisionMemory(d *entities.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Decision: %s\n", d.DecisionStatement())
	fmt.Fprintf(&b, "Chosen: %s\n", d.FinalChoice())
	if options := d.OptionsConsidered(); len(options) > 0 {
		fmt.Fprintf(&b, "Options considered: %s\n", strings.Join(options, "; "))
	}
	fmt.Fprintf(&b, "Approved by: %s\n", d.HumanApprover())
	if d.RevisitCondition() != "" {
		fmt.Fprintf(&b, "Revisit when: %s\n", d.RevisitCondition())
	}
	return b.String()
}

// Repositories hand decisions back in commit order; views that want newest
// first flip in place.
func reverseDecisions(decisions []*entities.Decision) {
	for i, j := 0, len(decisions)-1; i < j; i, j = i+1, j-1 {
		decisions[i], decisions[j] = decisions[j], decisions[i]
	}
}

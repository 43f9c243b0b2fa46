package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/domain/events"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// ProposalService runs the human review queue for AI-suggested records.
// Every proposal is reviewed exactly once; acceptance is the only path that
// turns AI output into a real decision, assumption or risk.
type ProposalService struct {
	proposals ports.ProposalRepository
	intents   ports.IntentRepository
	decisions *DecisionService
	registry  *RegistryService
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewProposalService creates a new proposal service.
func NewProposalService(
	proposals ports.ProposalRepository,
	intents ports.IntentRepository,
	decisions *DecisionService,
	registry *RegistryService,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ProposalService {
	return &ProposalService{
		proposals: proposals,
		intents:   intents,
		decisions: decisions,
		registry:  registry,
		publisher: publisher,
		logger:    logger,
	}
}

// proposalPayload is the structured form a proposal's content may carry.
// Content that is not JSON is treated as a bare statement; nothing here is
// validated at submission time, only interpreted on acceptance.
type proposalPayload struct {
	Statement         string   `json:"statement"`
	Context           string   `json:"context,omitempty"`
	OptionsConsidered []string `json:"optionsConsidered,omitempty"`
	FinalChoice       string   `json:"finalChoice,omitempty"`
	RevisitCondition  string   `json:"revisitCondition,omitempty"`
	ExpiryHint        string   `json:"expiryHint,omitempty"`
	Severity          string   `json:"severity,omitempty"`
	Likelihood        string   `json:"likelihood,omitempty"`
	MitigationNotes   string   `json:"mitigationNotes,omitempty"`
}

func parsePayload(content string) proposalPayload {
	var payload proposalPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil || payload.Statement == "" {
		return proposalPayload{Statement: content}
	}
	return payload
}

// Submit enqueues a pending proposal for human review. intentID may be
// empty when the suggestion precedes any intent.
func (s *ProposalService) Submit(ctx context.Context, tenantID, intentID string, proposalType entities.ProposalType, content, promptTemplateID, modelUsed string, confidence *float64) (*entities.Proposal, error) {
	proposal, err := entities.NewProposal(tenantID, intentID, proposalType, content, promptTemplateID, modelUsed, confidence)
	if err != nil {
		return nil, err
	}

	if err := s.proposals.Save(ctx, proposal); err != nil {
		return nil, fmt.Errorf("failed to save proposal: %w", err)
	}

	s.logger.Info("proposal submitted",
		zap.String("proposalId", proposal.ID()),
		zap.String("tenantId", tenantID),
		zap.String("proposalType", string(proposalType)),
		zap.String("modelUsed", modelUsed),
	)

	event := events.NewProposalSubmitted(proposal.ID(), tenantID, intentID, string(proposalType), modelUsed, proposal.CreatedAt())
	dispatch(s.logger, "publish proposal.submitted", func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	})

	return proposal, nil
}

// Get returns a single proposal scoped to the tenant.
func (s *ProposalService) Get(ctx context.Context, tenantID, proposalID string) (*entities.Proposal, error) {
	return s.proposals.GetByID(ctx, tenantID, proposalID)
}

// List returns the tenant's proposals, oldest first, optionally filtered by
// status and intent.
func (s *ProposalService) List(ctx context.Context, tenantID string, filter ports.ProposalFilter) ([]*entities.Proposal, error) {
	return s.proposals.List(ctx, tenantID, filter)
}

// AcceptResult reports what acceptance produced: the reviewed proposal and
// the id of the record it materialized, empty for question proposals.
type AcceptResult struct {
	Proposal       *entities.Proposal
	MaterializedID string
}

// Accept approves a pending proposal and materializes the record it
// describes: decision proposals land in the ledger with the reviewer as
// approver, assumption and risk proposals become AI-origin records, and
// question proposals materialize nothing. bindIntentID optionally attaches
// a free-floating proposal to an intent at review time.
func (s *ProposalService) Accept(ctx context.Context, tenantID, reviewerID, proposalID, bindIntentID string) (*AcceptResult, error) {
	proposal, err := s.proposals.GetByID(ctx, tenantID, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status() != entities.ProposalStatusPending {
		return nil, errors.NewAlreadyReviewedError(proposalID, string(proposal.Status()))
	}

	intentID := proposal.IntentID()
	if bindIntentID != "" {
		intentID = bindIntentID
	}

	// Build the materialized record up front so anything wrong with the
	// payload is caught before the proposal's status changes.
	materialize, err := s.prepareMaterialization(ctx, proposal, reviewerID, intentID)
	if err != nil {
		return nil, err
	}

	if err := s.review(ctx, proposal, entities.ProposalStatusAccepted, reviewerID); err != nil {
		return nil, err
	}

	materializedID, err := materialize(ctx)
	if err != nil {
		// The review already stands; surface the failure rather than
		// pretend the record exists.
		s.logger.Error("accepted proposal failed to materialize",
			zap.String("proposalId", proposalID),
			zap.String("tenantId", tenantID),
			zap.Error(err),
		)
		return nil, err
	}

	s.publishReviewed(proposal, intentID, materializedID)
	return &AcceptResult{Proposal: proposal, MaterializedID: materializedID}, nil
}

// Reject closes a pending proposal without creating anything.
func (s *ProposalService) Reject(ctx context.Context, tenantID, reviewerID, proposalID string) (*entities.Proposal, error) {
	return s.close(ctx, tenantID, reviewerID, proposalID, entities.ProposalStatusRejected)
}

// Park shelves a pending proposal for later without creating anything.
// Parked is terminal like the others; re-opening means resubmitting.
func (s *ProposalService) Park(ctx context.Context, tenantID, reviewerID, proposalID string) (*entities.Proposal, error) {
	return s.close(ctx, tenantID, reviewerID, proposalID, entities.ProposalStatusParked)
}

func (s *ProposalService) close(ctx context.Context, tenantID, reviewerID, proposalID string, target entities.ProposalStatus) (*entities.Proposal, error) {
	proposal, err := s.proposals.GetByID(ctx, tenantID, proposalID)
	if err != nil {
		return nil, err
	}

	if err := s.review(ctx, proposal, target, reviewerID); err != nil {
		return nil, err
	}

	s.publishReviewed(proposal, proposal.IntentID(), "")
	return proposal, nil
}

// review flips the proposal to its terminal status. The write is
// conditional on the proposal still being pending, so exactly one reviewer
// wins; the loser learns the status that beat them.
func (s *ProposalService) review(ctx context.Context, proposal *entities.Proposal, target entities.ProposalStatus, reviewerID string) error {
	if err := proposal.Review(target, reviewerID, time.Now()); err != nil {
		return err
	}

	if err := s.proposals.Update(ctx, proposal, entities.ProposalStatusPending); err != nil {
		if errors.IsType(err, errors.ErrorTypeConflict) {
			current, fetchErr := s.proposals.GetByID(ctx, proposal.TenantID(), proposal.ID())
			if fetchErr != nil {
				return errors.NewAlreadyReviewedError(proposal.ID(), "unknown")
			}
			return errors.NewAlreadyReviewedError(proposal.ID(), string(current.Status()))
		}
		return fmt.Errorf("failed to record review: %w", err)
	}

	s.logger.Info("proposal reviewed",
		zap.String("proposalId", proposal.ID()),
		zap.String("tenantId", proposal.TenantID()),
		zap.String("outcome", string(target)),
		zap.String("reviewedBy", reviewerID),
	)
	return nil
}

// prepareMaterialization validates the proposal's payload against its type
// and returns the deferred write that creates the record. Question
// proposals return a no-op.
func (s *ProposalService) prepareMaterialization(ctx context.Context, proposal *entities.Proposal, reviewerID, intentID string) (func(context.Context) (string, error), error) {
	if proposal.ProposalType() == entities.ProposalTypeQuestion {
		return func(context.Context) (string, error) { return "", nil }, nil
	}

	if intentID == "" {
		return nil, errors.NewValidationError(fmt.Sprintf("a %s proposal must be attached to an intent before acceptance", proposal.ProposalType()))
	}
	if _, err := s.intents.GetByID(ctx, proposal.TenantID(), intentID); err != nil {
		return nil, err
	}

	payload := parsePayload(proposal.Content())

	switch proposal.ProposalType() {
	case entities.ProposalTypeDecision:
		finalChoice := payload.FinalChoice
		if finalChoice == "" {
			finalChoice = payload.Statement
		}
		draft := entities.DecisionDraft{
			DecisionStatement:  payload.Statement,
			OptionsConsidered:  payload.OptionsConsidered,
			FinalChoice:        finalChoice,
			AIInputsReferenced: []string{"proposal:" + proposal.ID()},
			RevisitCondition:   payload.RevisitCondition,
		}
		decision, err := entities.NewDecision(proposal.TenantID(), intentID, reviewerID, draft)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (string, error) {
			return decision.ID(), s.decisions.commitPrepared(ctx, decision)
		}, nil

	case entities.ProposalTypeAssumption:
		assumption, err := entities.NewAssumption(proposal.TenantID(), intentID, payload.Statement, proposal.Confidence(), entities.OriginAI, payload.ExpiryHint)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (string, error) {
			return assumption.ID(), s.registry.storeAssumption(ctx, assumption)
		}, nil

	case entities.ProposalTypeRisk:
		risk, err := entities.NewRisk(proposal.TenantID(), intentID, payload.Statement, entities.RiskSeverity(payload.Severity), entities.RiskLikelihood(payload.Likelihood), entities.OriginAI, payload.MitigationNotes)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (string, error) {
			return risk.ID(), s.registry.storeRisk(ctx, risk)
		}, nil

	default:
		return nil, errors.NewValidationError("unknown proposal type: " + string(proposal.ProposalType()))
	}
}

func (s *ProposalService) publishReviewed(proposal *entities.Proposal, intentID, materializedID string) {
	event := events.NewProposalReviewed(
		proposal.ID(), proposal.TenantID(), intentID,
		string(proposal.Status()), proposal.ReviewedBy(), materializedID,
		time.Now().UTC(),
	)
	dispatch(s.logger, "publish proposal.reviewed", func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	})
}

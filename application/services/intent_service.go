package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/domain/events"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

const (
	// maxTransitionAttempts bounds the optimistic retry loop on version
	// conflicts. Legality is re-checked against fresh state each attempt.
	maxTransitionAttempts = 3
	transitionRetryDelay  = 50 * time.Millisecond
)

// IntentService manages the intent lifecycle: creation, state transitions,
// review bookkeeping and memory-backed context lookups.
type IntentService struct {
	intents   ports.IntentRepository
	publisher ports.EventPublisher
	ai        ports.AIService
	logger    *zap.Logger
}

// NewIntentService creates a new intent service.
func NewIntentService(intents ports.IntentRepository, publisher ports.EventPublisher, ai ports.AIService, logger *zap.Logger) *IntentService {
	return &IntentService{
		intents:   intents,
		publisher: publisher,
		ai:        ai,
		logger:    logger,
	}
}

// Create registers a new intent in the research state.
func (s *IntentService) Create(ctx context.Context, tenantID, userID, title, description string, visibility entities.VisibilityScope) (*entities.Intent, error) {
	intent, err := entities.NewIntent(tenantID, userID, title, description, visibility)
	if err != nil {
		return nil, err
	}

	if err := s.intents.Save(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to save intent: %w", err)
	}

	s.logger.Info("intent created",
		zap.String("intentId", intent.ID()),
		zap.String("tenantId", tenantID),
		zap.String("state", string(intent.CurrentState())),
	)

	event := events.NewIntentCreated(intent.ID(), tenantID, intent.Title(), userID, intent.CreatedAt())
	dispatch(s.logger, "publish intent.created", func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	})

	return intent, nil
}

// Get returns a single intent scoped to the tenant.
func (s *IntentService) Get(ctx context.Context, tenantID, intentID string) (*entities.Intent, error) {
	return s.intents.GetByID(ctx, tenantID, intentID)
}

// List returns the tenant's intents, optionally filtered by lifecycle state.
// stateFilter is the raw query value; empty means no filter.
func (s *IntentService) List(ctx context.Context, tenantID, stateFilter string) ([]*entities.Intent, error) {
	if stateFilter == "" {
		return s.intents.ListByTenant(ctx, tenantID)
	}

	state, err := entities.ParseIntentState(stateFilter)
	if err != nil {
		return nil, err
	}
	return s.intents.ListByState(ctx, tenantID, state)
}

// Transition moves an intent to the target lifecycle state. Illegal moves
// fail with the allowed set for the current state; version conflicts are
// retried against fresh state so concurrent transitions serialize cleanly.
func (s *IntentService) Transition(ctx context.Context, tenantID, intentID, userID string, target entities.IntentState) (*entities.Intent, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		intent, err := s.intents.GetByID(ctx, tenantID, intentID)
		if err != nil {
			return nil, err
		}

		fromState := intent.CurrentState()
		expectedVersion := intent.Version()
		if err := intent.TransitionTo(target, time.Now()); err != nil {
			return nil, err
		}

		if err := s.intents.Update(ctx, intent, expectedVersion); err != nil {
			if errors.IsType(err, errors.ErrorTypeConflict) {
				s.logger.Debug("intent transition lost a version race, retrying",
					zap.String("intentId", intentID),
					zap.Int("attempt", attempt+1),
				)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(transitionRetryDelay * time.Duration(attempt+1)):
				}
				continue
			}
			return nil, fmt.Errorf("failed to persist transition: %w", err)
		}

		s.logger.Info("intent transitioned",
			zap.String("intentId", intentID),
			zap.String("tenantId", tenantID),
			zap.String("from", string(fromState)),
			zap.String("to", string(target)),
		)

		event := events.NewIntentTransitioned(intentID, tenantID, string(fromState), string(target), userID, time.Now().UTC())
		dispatch(s.logger, "publish intent.transitioned", func(ctx context.Context) error {
			return s.publisher.Publish(ctx, event)
		})

		return intent, nil
	}

	return nil, errors.NewConflictError("intent is being modified concurrently, retry later")
}

// MarkReviewed stamps the intent with a fresh human-review timestamp. It is
// idempotent and legal in every state, including archived.
func (s *IntentService) MarkReviewed(ctx context.Context, tenantID, intentID string) (*entities.Intent, error) {
	intent, err := s.intents.GetByID(ctx, tenantID, intentID)
	if err != nil {
		return nil, err
	}

	expectedVersion := intent.Version()
	intent.MarkReviewed(time.Now())

	if err := s.intents.Update(ctx, intent, expectedVersion); err != nil {
		return nil, fmt.Errorf("failed to record review: %w", err)
	}

	s.logger.Debug("intent reviewed",
		zap.String("intentId", intentID),
		zap.String("tenantId", tenantID),
	)
	return intent, nil
}

// SetConfidence records the team's confidence level for an intent.
func (s *IntentService) SetConfidence(ctx context.Context, tenantID, intentID string, level float64) (*entities.Intent, error) {
	intent, err := s.intents.GetByID(ctx, tenantID, intentID)
	if err != nil {
		return nil, err
	}

	expectedVersion := intent.Version()
	if err := intent.SetConfidence(level); err != nil {
		return nil, err
	}

	if err := s.intents.Update(ctx, intent, expectedVersion); err != nil {
		return nil, fmt.Errorf("failed to save confidence: %w", err)
	}
	return intent, nil
}

// GetContext asks the memory service for context relevant to the intent.
// When no memory backend is configured the answer is empty, never an error.
func (s *IntentService) GetContext(ctx context.Context, tenantID, intentID, query string) (string, error) {
	if _, err := s.intents.GetByID(ctx, tenantID, intentID); err != nil {
		return "", err
	}

	answer, err := s.ai.GetContext(ctx, query, intentID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch context: %w", err)
	}
	return answer, nil
}

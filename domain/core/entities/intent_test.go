package entities_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

func createTestIntent(t *testing.T) *entities.Intent {
	t.Helper()
	intent, err := entities.NewIntent("tenant-1", "user-1", "Migrate billing", "", entities.VisibilityTeam)
	require.NoError(t, err)
	return intent
}

func TestIntent_Creation(t *testing.T) {
	// Act
	intent, err := entities.NewIntent("tenant-1", "user-1", "Migrate billing", "move off legacy", entities.VisibilityPrivate)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, intent)
	assert.Equal(t, entities.StateResearch, intent.CurrentState())
	assert.Equal(t, "tenant-1", intent.TenantID())
	assert.Equal(t, "user-1", intent.CreatedBy())
	assert.Equal(t, entities.VisibilityPrivate, intent.VisibilityScope())
	assert.Nil(t, intent.LastHumanReviewedAt())
}

func TestIntent_CreationDefaultsToTeamVisibility(t *testing.T) {
	intent, err := entities.NewIntent("tenant-1", "user-1", "Migrate billing", "", "")

	assert.NoError(t, err)
	assert.Equal(t, entities.VisibilityTeam, intent.VisibilityScope())
}

func TestIntent_CreationRequiresTitle(t *testing.T) {
	_, err := entities.NewIntent("tenant-1", "user-1", "", "", entities.VisibilityTeam)

	assert.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestIntent_TransitionTable(t *testing.T) {
	cases := []struct {
		from    entities.IntentState
		to      entities.IntentState
		allowed bool
	}{
		{entities.StateResearch, entities.StatePlanning, true},
		{entities.StateResearch, entities.StateArchived, true},
		{entities.StateResearch, entities.StateExecution, false},
		{entities.StateResearch, entities.StateResearch, false},
		{entities.StatePlanning, entities.StateResearch, true},
		{entities.StatePlanning, entities.StateExecution, true},
		{entities.StatePlanning, entities.StateArchived, true},
		{entities.StatePlanning, entities.StatePlanning, false},
		{entities.StateExecution, entities.StatePlanning, true},
		{entities.StateExecution, entities.StateArchived, true},
		{entities.StateExecution, entities.StateResearch, false},
		{entities.StateExecution, entities.StateExecution, false},
		{entities.StateArchived, entities.StateResearch, false},
		{entities.StateArchived, entities.StatePlanning, false},
		{entities.StateArchived, entities.StateExecution, false},
		{entities.StateArchived, entities.StateArchived, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, entities.CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestIntent_TransitionSetsReviewTimestampAndVersion(t *testing.T) {
	// Arrange
	intent := createTestIntent(t)
	before := intent.Version()

	// Act
	err := intent.TransitionTo(entities.StatePlanning, time.Now())

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, entities.StatePlanning, intent.CurrentState())
	assert.NotNil(t, intent.LastHumanReviewedAt())
	assert.Equal(t, before+1, intent.Version())
}

func TestIntent_IllegalTransitionNamesAllowedSet(t *testing.T) {
	// Arrange
	intent := createTestIntent(t)

	// Act: execution is not reachable from research
	err := intent.TransitionTo(entities.StateExecution, time.Now())

	// Assert
	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err))
	appErr := errors.GetAppError(err)
	assert.Equal(t, "research", appErr.Details["currentState"])
	assert.Equal(t, "execution", appErr.Details["attemptedState"])
	assert.ElementsMatch(t, []string{"planning", "archived"}, appErr.Details["allowedStates"])
	// State must be untouched after a failed transition.
	assert.Equal(t, entities.StateResearch, intent.CurrentState())
}

func TestIntent_ArchivedIsAbsorbing(t *testing.T) {
	// Arrange: research -> planning -> archived
	intent := createTestIntent(t)
	require.NoError(t, intent.TransitionTo(entities.StatePlanning, time.Now()))
	require.NoError(t, intent.TransitionTo(entities.StateArchived, time.Now()))

	// Act
	err := intent.TransitionTo(entities.StateExecution, time.Now())

	// Assert: the failure reports an empty allowed set
	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err))
	appErr := errors.GetAppError(err)
	assert.Equal(t, []string{}, appErr.Details["allowedStates"])
	assert.Equal(t, entities.StateArchived, intent.CurrentState())
}

func TestIntent_MarkReviewedDoesNotChangeState(t *testing.T) {
	// Arrange
	intent := createTestIntent(t)
	require.NoError(t, intent.TransitionTo(entities.StateArchived, time.Now()))

	// Act: reviewing an archived intent is legal and repeatable
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	intent.MarkReviewed(first)
	intent.MarkReviewed(second)

	// Assert
	assert.Equal(t, entities.StateArchived, intent.CurrentState())
	require.NotNil(t, intent.LastHumanReviewedAt())
	assert.Equal(t, second, *intent.LastHumanReviewedAt())
}

func TestIntent_SetConfidenceBounds(t *testing.T) {
	intent := createTestIntent(t)

	assert.Error(t, intent.SetConfidence(1.2))
	assert.Error(t, intent.SetConfidence(-0.1))
	assert.NoError(t, intent.SetConfidence(0.85))
	require.NotNil(t, intent.ConfidenceLevel())
	assert.Equal(t, 0.85, *intent.ConfidenceLevel())
}

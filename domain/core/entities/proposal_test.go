package entities_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

func createTestProposal(t *testing.T) *entities.Proposal {
	t.Helper()
	confidence := 0.72
	proposal, err := entities.NewProposal(
		"tenant-1", "intent-1",
		entities.ProposalTypeRisk,
		`{"statement":"vendor API may be rate limited"}`,
		"tmpl-risk-v2", "gpt-4o", &confidence,
	)
	require.NoError(t, err)
	return proposal
}

func TestProposal_StartsPending(t *testing.T) {
	proposal := createTestProposal(t)

	assert.Equal(t, entities.ProposalStatusPending, proposal.Status())
	assert.Empty(t, proposal.ReviewedBy())
	assert.Nil(t, proposal.ReviewedAt())
}

func TestProposal_IntentIDMayBeEmpty(t *testing.T) {
	// Idea-stage proposals can precede any intent.
	proposal, err := entities.NewProposal("tenant-1", "", entities.ProposalTypeQuestion, "should we do this at all?", "", "", nil)

	require.NoError(t, err)
	assert.Empty(t, proposal.IntentID())
}

func TestProposal_ReviewHappensExactlyOnce(t *testing.T) {
	// Arrange
	proposal := createTestProposal(t)
	reviewTime := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

	// Act: first review wins
	err := proposal.Review(entities.ProposalStatusRejected, "user-2", reviewTime)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, entities.ProposalStatusRejected, proposal.Status())
	assert.Equal(t, "user-2", proposal.ReviewedBy())
	require.NotNil(t, proposal.ReviewedAt())
	assert.Equal(t, reviewTime, *proposal.ReviewedAt())

	// Act: every later attempt fails deterministically
	err = proposal.Review(entities.ProposalStatusAccepted, "user-3", time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyReviewed(err))
	appErr := errors.GetAppError(err)
	assert.Equal(t, "rejected", appErr.Details["currentStatus"])

	// Assert: the original review outcome is preserved
	assert.Equal(t, entities.ProposalStatusRejected, proposal.Status())
	assert.Equal(t, "user-2", proposal.ReviewedBy())
	assert.Equal(t, reviewTime, *proposal.ReviewedAt())
}

func TestProposal_ParkIsTerminal(t *testing.T) {
	proposal := createTestProposal(t)
	require.NoError(t, proposal.Review(entities.ProposalStatusParked, "user-2", time.Now()))

	err := proposal.Review(entities.ProposalStatusAccepted, "user-2", time.Now())
	assert.True(t, errors.IsAlreadyReviewed(err))
}

func TestProposal_ReviewTargetMustBeTerminal(t *testing.T) {
	proposal := createTestProposal(t)

	err := proposal.Review(entities.ProposalStatusPending, "user-2", time.Now())
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, entities.ProposalStatusPending, proposal.Status())
}

func TestProposal_ConfidenceBounds(t *testing.T) {
	tooHigh := 1.5
	_, err := entities.NewProposal("tenant-1", "", entities.ProposalTypeDecision, "{}", "", "", &tooHigh)
	assert.True(t, errors.IsValidation(err))
}

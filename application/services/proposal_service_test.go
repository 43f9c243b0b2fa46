package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

func submitTestProposal(t *testing.T, env *testEnv, intentID string, proposalType entities.ProposalType, content string) *entities.Proposal {
	t.Helper()
	confidence := 0.8
	proposal, err := env.proposalSvc.Submit(context.Background(), testTenant, intentID, proposalType, content, "extract-proposals/v1", "test-model", &confidence)
	require.NoError(t, err)
	return proposal
}

func TestProposalService_Submit_StartsPending(t *testing.T) {
	// Arrange
	env := newTestEnv(t)

	// Act: no intent attached, which is legal at submission time
	proposal := submitTestProposal(t, env, "", entities.ProposalTypeQuestion, "Should the migration pause during the freeze?")

	// Assert
	assert.Equal(t, entities.ProposalStatusPending, proposal.Status())
	assert.Empty(t, proposal.IntentID())
	assert.Empty(t, proposal.ReviewedBy())
	assert.Nil(t, proposal.ReviewedAt())

	assert.Eventually(t, func() bool {
		return env.publisher.has("proposal.submitted")
	}, time.Second, 10*time.Millisecond)
}

func TestProposalService_ReviewHappensExactlyOnce(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	proposal := submitTestProposal(t, env, "", entities.ProposalTypeQuestion, "Is the vendor contract renewable?")

	// Act: first review wins
	rejected, err := env.proposalSvc.Reject(ctx, testTenant, "reviewer-1", proposal.ID())
	require.NoError(t, err)

	// A second review of any kind must fail and name what happened.
	_, err = env.proposalSvc.Park(ctx, testTenant, "reviewer-2", proposal.ID())

	// Assert
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyReviewed(err))
	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "rejected", appErr.Details["currentStatus"])

	// The first review's bookkeeping is untouched.
	stored, err := env.proposalSvc.Get(ctx, testTenant, proposal.ID())
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalStatusRejected, stored.Status())
	assert.Equal(t, "reviewer-1", stored.ReviewedBy())
	require.NotNil(t, stored.ReviewedAt())
	assert.Equal(t, rejected.ReviewedAt().Unix(), stored.ReviewedAt().Unix())
}

func TestProposalService_Park_IsTerminal(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	proposal := submitTestProposal(t, env, "", entities.ProposalTypeQuestion, "Can we defer the audit?")

	// Act
	parked, err := env.proposalSvc.Park(ctx, testTenant, testUser, proposal.ID())
	require.NoError(t, err)
	_, again := env.proposalSvc.Accept(ctx, testTenant, testUser, proposal.ID(), "")

	// Assert: parked is terminal, not a second pending state
	assert.Equal(t, entities.ProposalStatusParked, parked.Status())
	assert.True(t, errors.IsAlreadyReviewed(again))
}

func TestProposalService_Accept_DecisionLandsInLedger(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	content := `{"statement":"Adopt SQS for the job queue","optionsConsidered":["SQS","RabbitMQ"],"finalChoice":"SQS"}`
	proposal := submitTestProposal(t, env, intent.ID(), entities.ProposalTypeDecision, content)

	// Act
	result, err := env.proposalSvc.Accept(ctx, testTenant, "reviewer-9", proposal.ID(), "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalStatusAccepted, result.Proposal.Status())
	require.NotEmpty(t, result.MaterializedID)

	decision, err := env.decisionSvc.Get(ctx, testTenant, result.MaterializedID)
	require.NoError(t, err)
	assert.Equal(t, "reviewer-9", decision.HumanApprover(), "the reviewer approves the materialized decision")
	assert.Equal(t, "Adopt SQS for the job queue", decision.DecisionStatement())
	assert.Equal(t, "SQS", decision.FinalChoice())
	assert.Equal(t, []string{"SQS", "RabbitMQ"}, decision.OptionsConsidered())
	assert.Contains(t, decision.AIInputsReferenced(), "proposal:"+proposal.ID())

	// Exactly one ledger entry came out of the acceptance.
	ledger, err := env.decisionSvc.GetLedger(ctx, testTenant, intent.ID())
	require.NoError(t, err)
	assert.Len(t, ledger, 1)

	assert.Eventually(t, func() bool {
		return env.publisher.has("proposal.reviewed") && env.publisher.has("decision.committed")
	}, time.Second, 10*time.Millisecond)
}

func TestProposalService_Accept_PlainTextContentBecomesStatement(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	proposal := submitTestProposal(t, env, intent.ID(), entities.ProposalTypeDecision, "Standardize on Go 1.23 for all services")

	// Act
	result, err := env.proposalSvc.Accept(ctx, testTenant, testUser, proposal.ID(), "")

	// Assert: statement doubles as the final choice
	require.NoError(t, err)
	decision, err := env.decisionSvc.Get(ctx, testTenant, result.MaterializedID)
	require.NoError(t, err)
	assert.Equal(t, "Standardize on Go 1.23 for all services", decision.DecisionStatement())
	assert.Equal(t, "Standardize on Go 1.23 for all services", decision.FinalChoice())
}

func TestProposalService_Accept_AssumptionIsAIOrigin(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	proposal := submitTestProposal(t, env, intent.ID(), entities.ProposalTypeAssumption, "The vendor API stays on v2 through 2026")

	// Act
	result, err := env.proposalSvc.Accept(ctx, testTenant, testUser, proposal.ID(), "")

	// Assert
	require.NoError(t, err)
	assumption, err := env.registrySvc.GetAssumption(ctx, testTenant, result.MaterializedID)
	require.NoError(t, err)
	assert.Equal(t, entities.OriginAI, assumption.CreatedFrom())
	assert.Equal(t, "The vendor API stays on v2 through 2026", assumption.Statement())
	require.NotNil(t, assumption.ConfidenceLevel())
	assert.InDelta(t, 0.8, *assumption.ConfidenceLevel(), 1e-9)
}

func TestProposalService_Accept_RiskIsAIOrigin(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	content := `{"statement":"Data export may exceed the maintenance window","severity":"high","likelihood":"medium"}`
	proposal := submitTestProposal(t, env, intent.ID(), entities.ProposalTypeRisk, content)

	// Act
	result, err := env.proposalSvc.Accept(ctx, testTenant, testUser, proposal.ID(), "")

	// Assert
	require.NoError(t, err)
	risk, err := env.registrySvc.GetRisk(ctx, testTenant, result.MaterializedID)
	require.NoError(t, err)
	assert.Equal(t, entities.OriginAI, risk.CreatedFrom())
	assert.Equal(t, entities.SeverityHigh, risk.Severity())
	assert.Equal(t, entities.LikelihoodMedium, risk.Likelihood())
}

func TestProposalService_Accept_QuestionMaterializesNothing(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	proposal := submitTestProposal(t, env, intent.ID(), entities.ProposalTypeQuestion, "Who owns the rollback plan?")

	// Act
	result, err := env.proposalSvc.Accept(ctx, testTenant, testUser, proposal.ID(), "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalStatusAccepted, result.Proposal.Status())
	assert.Empty(t, result.MaterializedID)

	ledger, err := env.decisionSvc.GetLedger(ctx, testTenant, intent.ID())
	require.NoError(t, err)
	assert.Empty(t, ledger)
	assumptions, err := env.registrySvc.ListAssumptions(ctx, testTenant, intent.ID())
	require.NoError(t, err)
	assert.Empty(t, assumptions)
}

func TestProposalService_Accept_BindsFreeFloatingProposal(t *testing.T) {
	// Arrange: submitted before any intent existed
	env := newTestEnv(t)
	ctx := context.Background()
	proposal := submitTestProposal(t, env, "", entities.ProposalTypeAssumption, "Budget holds through Q4")
	intent := createTestIntent(t, env)

	// Act: the reviewer attaches it at review time
	result, err := env.proposalSvc.Accept(ctx, testTenant, testUser, proposal.ID(), intent.ID())

	// Assert
	require.NoError(t, err)
	assumption, err := env.registrySvc.GetAssumption(ctx, testTenant, result.MaterializedID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID(), assumption.IntentID())
}

func TestProposalService_Accept_NonQuestionRequiresIntent(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	proposal := submitTestProposal(t, env, "", entities.ProposalTypeDecision, "Pick a CDN")

	// Act: no intent on the proposal and none bound at review
	_, err := env.proposalSvc.Accept(ctx, testTenant, testUser, proposal.ID(), "")

	// Assert: it stays pending so it can be accepted properly later
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	stored, getErr := env.proposalSvc.Get(ctx, testTenant, proposal.ID())
	require.NoError(t, getErr)
	assert.Equal(t, entities.ProposalStatusPending, stored.Status())
}

func TestProposalService_Accept_UnknownBoundIntent(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	proposal := submitTestProposal(t, env, "", entities.ProposalTypeRisk, "Nobody reviewed the schema change")

	// Act
	_, err := env.proposalSvc.Accept(context.Background(), testTenant, testUser, proposal.ID(), "intent-missing")

	// Assert
	assert.True(t, errors.IsNotFound(err))
}

func TestProposalService_Review_UnknownProposal(t *testing.T) {
	// Arrange
	env := newTestEnv(t)

	// Act
	_, err := env.proposalSvc.Reject(context.Background(), testTenant, testUser, "proposal-missing")

	// Assert
	assert.True(t, errors.IsNotFound(err))
}

func TestProposalService_List_Filters(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	pending := submitTestProposal(t, env, intent.ID(), entities.ProposalTypeQuestion, "Open question one")
	other := submitTestProposal(t, env, "", entities.ProposalTypeQuestion, "Open question two")
	_, err := env.proposalSvc.Reject(ctx, testTenant, testUser, other.ID())
	require.NoError(t, err)

	// Act
	pendingOnly, err := env.proposalSvc.List(ctx, testTenant, ports.ProposalFilter{Status: entities.ProposalStatusPending})
	require.NoError(t, err)
	byIntent, err := env.proposalSvc.List(ctx, testTenant, ports.ProposalFilter{IntentID: intent.ID()})
	require.NoError(t, err)
	all, err := env.proposalSvc.List(ctx, testTenant, ports.ProposalFilter{})
	require.NoError(t, err)

	// Assert
	require.Len(t, pendingOnly, 1)
	assert.Equal(t, pending.ID(), pendingOnly[0].ID())
	require.Len(t, byIntent, 1)
	assert.Equal(t, pending.ID(), byIntent[0].ID())
	assert.Len(t, all, 2)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

func TestRegistryService_Assumptions_Lifecycle(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	confidence := 0.6

	// Act
	assumption, err := env.registrySvc.CreateAssumption(ctx, testTenant, intent.ID(), "Load stays flat through the migration", &confidence, entities.OriginHuman, "revisit after launch")
	require.NoError(t, err)
	invalidated, err := env.registrySvc.InvalidateAssumption(ctx, testTenant, assumption.ID())
	require.NoError(t, err)
	_, again := env.registrySvc.InvalidateAssumption(ctx, testTenant, assumption.ID())

	// Assert
	assert.Equal(t, entities.OriginHuman, assumption.CreatedFrom())
	assert.Equal(t, entities.AssumptionStatusInvalidated, invalidated.Status())
	assert.True(t, errors.IsConflict(again), "invalidation is one-way")

	listed, err := env.registrySvc.ListAssumptions(ctx, testTenant, intent.ID())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, entities.AssumptionStatusInvalidated, listed[0].Status())
}

func TestRegistryService_CreateAssumption_UnknownIntent(t *testing.T) {
	// Arrange
	env := newTestEnv(t)

	// Act
	_, err := env.registrySvc.CreateAssumption(context.Background(), testTenant, "intent-missing", "anything", nil, entities.OriginHuman, "")

	// Assert
	assert.True(t, errors.IsNotFound(err))
}

func TestRegistryService_Risks_ResolveOnce(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)

	risk, err := env.registrySvc.CreateRisk(ctx, testTenant, intent.ID(), "Schema change may lock the table", entities.SeverityHigh, entities.LikelihoodLow, entities.OriginHuman, "")
	require.NoError(t, err)

	// Act
	resolved, err := env.registrySvc.ResolveRisk(ctx, testTenant, risk.ID(), entities.RiskStatusMitigated, "run the change online with gh-ost")
	require.NoError(t, err)
	_, again := env.registrySvc.ResolveRisk(ctx, testTenant, risk.ID(), entities.RiskStatusAccepted, "")

	// Assert
	assert.Equal(t, entities.RiskStatusMitigated, resolved.Status())
	assert.Equal(t, "run the change online with gh-ost", resolved.MitigationNotes())
	assert.Error(t, again, "resolution is terminal")
}

func TestRegistryService_CreateRisk_UngradedIsLegal(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	intent := createTestIntent(t, env)

	// Act: no severity or likelihood yet
	risk, err := env.registrySvc.CreateRisk(context.Background(), testTenant, intent.ID(), "Unclear data ownership", "", "", entities.OriginHuman, "")

	// Assert
	require.NoError(t, err)
	assert.Empty(t, risk.Severity())
	assert.Empty(t, risk.Likelihood())
	assert.Equal(t, entities.RiskStatusActive, risk.Status())
}

func TestRegistryService_Tasks_WorkflowGuards(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	decision := commitTestDecision(t, env, intent.ID(), "Ship the importer", "Build in-house")
	sla := time.Now().Add(72 * time.Hour)

	task, err := env.registrySvc.CreateTask(ctx, testTenant, intent.ID(), decision.ID(), "Write the importer", "CSV to ledger import", "user-2", &sla, "JIRA-4411")
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusPending, task.Status())

	// Act: pending -> in_progress -> completed
	_, err = env.registrySvc.UpdateTaskStatus(ctx, testTenant, task.ID(), entities.TaskStatusInProgress)
	require.NoError(t, err)
	completed, err := env.registrySvc.UpdateTaskStatus(ctx, testTenant, task.ID(), entities.TaskStatusCompleted)
	require.NoError(t, err)

	// A completed task cannot move again.
	_, reopened := env.registrySvc.UpdateTaskStatus(ctx, testTenant, task.ID(), entities.TaskStatusInProgress)

	// Assert
	assert.Equal(t, entities.TaskStatusCompleted, completed.Status())
	require.Error(t, reopened)
	assert.True(t, errors.IsInvalidTransition(reopened))
}

func TestRegistryService_Tasks_PendingCannotComplete(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	task, err := env.registrySvc.CreateTask(ctx, testTenant, intent.ID(), "", "Draft the runbook", "", "user-2", nil, "")
	require.NoError(t, err)

	// Act
	_, err = env.registrySvc.UpdateTaskStatus(ctx, testTenant, task.ID(), entities.TaskStatusCompleted)

	// Assert
	assert.True(t, errors.IsInvalidTransition(err))
}

func TestRegistryService_ReassignTask(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	intent := createTestIntent(t, env)
	task, err := env.registrySvc.CreateTask(ctx, testTenant, intent.ID(), "", "Review access policy", "", "user-2", nil, "")
	require.NoError(t, err)

	// Act
	updated, err := env.registrySvc.ReassignTask(ctx, testTenant, task.ID(), "user-3")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-3", updated.Owner())

	stored, err := env.registrySvc.GetTask(ctx, testTenant, task.ID())
	require.NoError(t, err)
	assert.Equal(t, "user-3", stored.Owner())
}

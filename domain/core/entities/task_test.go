package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

func createTestTask(t *testing.T) *entities.Task {
	t.Helper()
	task, err := entities.NewTask("tenant-1", "intent-1", "", "Provision cluster", "", "user-4", nil, "JIRA-812")
	require.NoError(t, err)
	return task
}

func TestTask_StartsPending(t *testing.T) {
	task := createTestTask(t)

	assert.Equal(t, entities.TaskStatusPending, task.Status())
	assert.Equal(t, "JIRA-812", task.ExternalSystemRef())
}

func TestTask_BlockedWorkCanResume(t *testing.T) {
	task := createTestTask(t)

	require.NoError(t, task.UpdateStatus(entities.TaskStatusInProgress))
	require.NoError(t, task.UpdateStatus(entities.TaskStatusBlocked))
	require.NoError(t, task.UpdateStatus(entities.TaskStatusInProgress))
	require.NoError(t, task.UpdateStatus(entities.TaskStatusCompleted))
}

func TestTask_CompletedIsTerminal(t *testing.T) {
	// Arrange
	task := createTestTask(t)
	require.NoError(t, task.UpdateStatus(entities.TaskStatusInProgress))
	require.NoError(t, task.UpdateStatus(entities.TaskStatusCompleted))

	// Act
	err := task.UpdateStatus(entities.TaskStatusInProgress)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.IsInvalidTransition(err))
	appErr := errors.GetAppError(err)
	assert.Equal(t, []string{}, appErr.Details["allowedStates"])
}

func TestTask_CannotCompleteFromPending(t *testing.T) {
	task := createTestTask(t)

	err := task.UpdateStatus(entities.TaskStatusCompleted)
	assert.True(t, errors.IsInvalidTransition(err))
	assert.Equal(t, entities.TaskStatusPending, task.Status())
}

package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// TaskStatus is the execution status of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// taskTransitions allows blocked work to resume; completed and cancelled
// are terminal.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusInProgress, TaskStatusBlocked, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusBlocked, TaskStatusCancelled},
	TaskStatusBlocked:    {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusCompleted:  {},
	TaskStatusCancelled:  {},
}

// Task is an actionable unit of work under an intent, optionally hanging
// off the decision that caused it.
type Task struct {
	id                string
	tenantID          string
	intentID          string
	decisionID        string
	title             string
	description       string
	owner             string
	status            TaskStatus
	sla               *time.Time
	externalSystemRef string
	createdAt         time.Time
}

// NewTask creates a pending task.
func NewTask(tenantID, intentID, decisionID, title, description, owner string, sla *time.Time, externalSystemRef string) (*Task, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant id is required")
	}
	if intentID == "" {
		return nil, errors.NewValidationError("intent id is required")
	}
	if title == "" {
		return nil, errors.NewValidationError("task title is required")
	}

	return &Task{
		id:                uuid.New().String(),
		tenantID:          tenantID,
		intentID:          intentID,
		decisionID:        decisionID,
		title:             title,
		description:       description,
		owner:             owner,
		status:            TaskStatusPending,
		sla:               sla,
		externalSystemRef: externalSystemRef,
		createdAt:         time.Now().UTC(),
	}, nil
}

// ReconstructTask rebuilds a task from persistence.
func ReconstructTask(
	id, tenantID, intentID, decisionID, title, description, owner string,
	status TaskStatus,
	sla *time.Time,
	externalSystemRef string,
	createdAt time.Time,
) *Task {
	return &Task{
		id:                id,
		tenantID:          tenantID,
		intentID:          intentID,
		decisionID:        decisionID,
		title:             title,
		description:       description,
		owner:             owner,
		status:            status,
		sla:               sla,
		externalSystemRef: externalSystemRef,
		createdAt:         createdAt,
	}
}

func (t *Task) ID() string                { return t.id }
func (t *Task) TenantID() string          { return t.tenantID }
func (t *Task) IntentID() string          { return t.intentID }
func (t *Task) DecisionID() string        { return t.decisionID }
func (t *Task) Title() string             { return t.title }
func (t *Task) Description() string       { return t.description }
func (t *Task) Owner() string             { return t.owner }
func (t *Task) Status() TaskStatus        { return t.status }
func (t *Task) ExternalSystemRef() string { return t.externalSystemRef }
func (t *Task) CreatedAt() time.Time      { return t.createdAt }

// SLA returns the due timestamp, nil if the task has none.
func (t *Task) SLA() *time.Time {
	if t.sla == nil {
		return nil
	}
	d := *t.sla
	return &d
}

// UpdateStatus moves the task along its status table.
func (t *Task) UpdateStatus(target TaskStatus) error {
	if _, known := taskTransitions[target]; !known {
		return errors.NewValidationError("unknown task status: " + string(target))
	}
	for _, next := range taskTransitions[t.status] {
		if next == target {
			t.status = target
			return nil
		}
	}
	allowedStrs := make([]string, 0, len(taskTransitions[t.status]))
	for _, s := range taskTransitions[t.status] {
		allowedStrs = append(allowedStrs, string(s))
	}
	return errors.NewInvalidTransitionError(string(t.status), string(target), allowedStrs)
}

// Reassign hands the task to a new owner.
func (t *Task) Reassign(owner string) {
	t.owner = owner
}

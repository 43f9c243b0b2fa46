package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// TaskRepository is the DynamoDB ports.TaskRepository.
type TaskRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a DynamoDB-backed task repository.
func NewTaskRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{client: client, tableName: tableName, logger: logger}
}

type taskRecord struct {
	PK                string `dynamodbav:"PK"`
	SK                string `dynamodbav:"SK"`
	GSI2PK            string `dynamodbav:"GSI2PK"`
	GSI2SK            string `dynamodbav:"GSI2SK"`
	EntityType        string `dynamodbav:"EntityType"`
	TaskID            string `dynamodbav:"TaskID"`
	TenantID          string `dynamodbav:"TenantID"`
	IntentID          string `dynamodbav:"IntentID"`
	DecisionID        string `dynamodbav:"DecisionID,omitempty"`
	Title             string `dynamodbav:"Title"`
	Description       string `dynamodbav:"Description,omitempty"`
	Owner             string `dynamodbav:"Owner,omitempty"`
	Status            string `dynamodbav:"Status"`
	SLA               string `dynamodbav:"SLA,omitempty"`
	ExternalSystemRef string `dynamodbav:"ExternalSystemRef,omitempty"`
	CreatedAt         string `dynamodbav:"CreatedAt"`
}

func taskToRecord(task *entities.Task) taskRecord {
	rec := taskRecord{
		PK:                fmt.Sprintf("INTENT#%s", task.IntentID()),
		SK:                fmt.Sprintf("TASK#%s#%s", timestampKey(task.CreatedAt()), task.ID()),
		GSI2PK:            fmt.Sprintf("TASK#%s", task.ID()),
		GSI2SK:            gsiMetadataSK,
		EntityType:        "TASK",
		TaskID:            task.ID(),
		TenantID:          task.TenantID(),
		IntentID:          task.IntentID(),
		DecisionID:        task.DecisionID(),
		Title:             task.Title(),
		Description:       task.Description(),
		Owner:             task.Owner(),
		Status:            string(task.Status()),
		ExternalSystemRef: task.ExternalSystemRef(),
		CreatedAt:         timestampKey(task.CreatedAt()),
	}
	if sla := task.SLA(); sla != nil {
		rec.SLA = timestampKey(*sla)
	}
	return rec
}

func (rec taskRecord) toEntity() (*entities.Task, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse task CreatedAt: %w", err)
	}
	var sla *time.Time
	if rec.SLA != "" {
		t, err := time.Parse(time.RFC3339Nano, rec.SLA)
		if err != nil {
			return nil, fmt.Errorf("failed to parse task SLA: %w", err)
		}
		sla = &t
	}
	return entities.ReconstructTask(
		rec.TaskID, rec.TenantID, rec.IntentID, rec.DecisionID,
		rec.Title, rec.Description, rec.Owner,
		entities.TaskStatus(rec.Status), sla, rec.ExternalSystemRef, createdAt,
	), nil
}

// Save writes a fresh task.
func (r *TaskRepository) Save(ctx context.Context, task *entities.Task) error {
	av, err := attributevalue.MarshalMap(taskToRecord(task))
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return translateError("save task", err)
	}

	r.logger.Debug("task saved",
		zap.String("taskId", task.ID()),
		zap.String("intentId", task.IntentID()),
	)
	return nil
}

// GetByID looks a task up through GSI2 and verifies tenant ownership.
func (r *TaskRepository) GetByID(ctx context.Context, tenantID, taskID string) (*entities.Task, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(fmt.Sprintf("TASK#%s", taskID))).
		And(expression.Key("GSI2SK").Equal(expression.Value(gsiMetadataSK)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(gsi2Name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, translateError("get task", err)
	}
	if len(result.Items) == 0 {
		return nil, apperrors.NewNotFoundError("task", taskID)
	}

	var rec taskRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if rec.TenantID != tenantID {
		return nil, apperrors.NewNotFoundError("task", taskID)
	}
	return rec.toEntity()
}

// ListByIntent returns the intent's tasks, oldest first.
func (r *TaskRepository) ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Task, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("INTENT#%s", intentID))).
		And(expression.Key("SK").BeginsWith("TASK#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	})
	if err != nil {
		return nil, translateError("query tasks", err)
	}

	tasks := make([]*entities.Task, 0, len(items))
	for _, item := range items {
		var rec taskRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			r.logger.Warn("failed to unmarshal task item", zap.Error(err))
			continue
		}
		if rec.TenantID != tenantID {
			continue
		}
		task, err := rec.toEntity()
		if err != nil {
			r.logger.Warn("failed to reconstruct task",
				zap.String("taskId", rec.TaskID), zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Update rewrites the task, conditional on the stored status still being
// the one the caller read.
func (r *TaskRepository) Update(ctx context.Context, task *entities.Task, expectedStatus entities.TaskStatus) error {
	av, err := attributevalue.MarshalMap(taskToRecord(task))
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	cond := expression.Name("Status").Equal(expression.Value(string(expectedStatus)))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return apperrors.NewConflictError("task status changed concurrently")
		}
		return translateError("update task", err)
	}

	r.logger.Debug("task updated",
		zap.String("taskId", task.ID()),
		zap.String("status", string(task.Status())),
	)
	return nil
}

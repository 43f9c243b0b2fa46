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

// AssumptionRepository is the DynamoDB ports.AssumptionRepository.
type AssumptionRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.AssumptionRepository = (*AssumptionRepository)(nil)

// NewAssumptionRepository creates a DynamoDB-backed assumption repository.
func NewAssumptionRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *AssumptionRepository {
	return &AssumptionRepository{client: client, tableName: tableName, logger: logger}
}

type assumptionRecord struct {
	PK              string   `dynamodbav:"PK"`
	SK              string   `dynamodbav:"SK"`
	GSI2PK          string   `dynamodbav:"GSI2PK"`
	GSI2SK          string   `dynamodbav:"GSI2SK"`
	EntityType      string   `dynamodbav:"EntityType"`
	AssumptionID    string   `dynamodbav:"AssumptionID"`
	TenantID        string   `dynamodbav:"TenantID"`
	IntentID        string   `dynamodbav:"IntentID"`
	Statement       string   `dynamodbav:"Statement"`
	ConfidenceLevel *float64 `dynamodbav:"ConfidenceLevel,omitempty"`
	CreatedFrom     string   `dynamodbav:"CreatedFrom"`
	CreatedAt       string   `dynamodbav:"CreatedAt"`
	ExpiryHint      string   `dynamodbav:"ExpiryHint,omitempty"`
	Status          string   `dynamodbav:"Status"`
}

func assumptionToRecord(a *entities.Assumption) assumptionRecord {
	return assumptionRecord{
		PK:              fmt.Sprintf("INTENT#%s", a.IntentID()),
		SK:              fmt.Sprintf("ASSUMPTION#%s#%s", timestampKey(a.CreatedAt()), a.ID()),
		GSI2PK:          fmt.Sprintf("ASSUMPTION#%s", a.ID()),
		GSI2SK:          gsiMetadataSK,
		EntityType:      "ASSUMPTION",
		AssumptionID:    a.ID(),
		TenantID:        a.TenantID(),
		IntentID:        a.IntentID(),
		Statement:       a.Statement(),
		ConfidenceLevel: a.ConfidenceLevel(),
		CreatedFrom:     string(a.CreatedFrom()),
		CreatedAt:       timestampKey(a.CreatedAt()),
		ExpiryHint:      a.ExpiryHint(),
		Status:          string(a.Status()),
	}
}

func (rec assumptionRecord) toEntity() (*entities.Assumption, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse assumption CreatedAt: %w", err)
	}
	return entities.ReconstructAssumption(
		rec.AssumptionID, rec.TenantID, rec.IntentID, rec.Statement,
		rec.ConfidenceLevel, entities.Origin(rec.CreatedFrom), createdAt,
		rec.ExpiryHint, entities.AssumptionStatus(rec.Status),
	), nil
}

// Save writes a fresh assumption.
func (r *AssumptionRepository) Save(ctx context.Context, assumption *entities.Assumption) error {
	av, err := attributevalue.MarshalMap(assumptionToRecord(assumption))
	if err != nil {
		return fmt.Errorf("failed to marshal assumption: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return translateError("save assumption", err)
	}

	r.logger.Debug("assumption saved",
		zap.String("assumptionId", assumption.ID()),
		zap.String("intentId", assumption.IntentID()),
	)
	return nil
}

// GetByID looks an assumption up through GSI2 and verifies tenant ownership.
func (r *AssumptionRepository) GetByID(ctx context.Context, tenantID, assumptionID string) (*entities.Assumption, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(fmt.Sprintf("ASSUMPTION#%s", assumptionID))).
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
		return nil, translateError("get assumption", err)
	}
	if len(result.Items) == 0 {
		return nil, apperrors.NewNotFoundError("assumption", assumptionID)
	}

	var rec assumptionRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assumption: %w", err)
	}
	if rec.TenantID != tenantID {
		return nil, apperrors.NewNotFoundError("assumption", assumptionID)
	}
	return rec.toEntity()
}

// ListByIntent returns the intent's assumptions, oldest first.
func (r *AssumptionRepository) ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Assumption, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("INTENT#%s", intentID))).
		And(expression.Key("SK").BeginsWith("ASSUMPTION#"))
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
		return nil, translateError("query assumptions", err)
	}

	assumptions := make([]*entities.Assumption, 0, len(items))
	for _, item := range items {
		var rec assumptionRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			r.logger.Warn("failed to unmarshal assumption item", zap.Error(err))
			continue
		}
		if rec.TenantID != tenantID {
			continue
		}
		assumption, err := rec.toEntity()
		if err != nil {
			r.logger.Warn("failed to reconstruct assumption",
				zap.String("assumptionId", rec.AssumptionID), zap.Error(err))
			continue
		}
		assumptions = append(assumptions, assumption)
	}
	return assumptions, nil
}

// Update rewrites the assumption, conditional on the stored status still
// being the one the caller read, so the single status flip cannot race.
func (r *AssumptionRepository) Update(ctx context.Context, assumption *entities.Assumption, expectedStatus entities.AssumptionStatus) error {
	av, err := attributevalue.MarshalMap(assumptionToRecord(assumption))
	if err != nil {
		return fmt.Errorf("failed to marshal assumption: %w", err)
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
			return apperrors.NewConflictError("assumption status changed concurrently")
		}
		return translateError("update assumption", err)
	}

	r.logger.Debug("assumption updated",
		zap.String("assumptionId", assumption.ID()),
		zap.String("status", string(assumption.Status())),
	)
	return nil
}

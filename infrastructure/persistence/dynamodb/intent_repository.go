package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// IntentRepository is the DynamoDB ports.IntentRepository.
type IntentRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.IntentRepository = (*IntentRepository)(nil)

// NewIntentRepository creates a DynamoDB-backed intent repository.
func NewIntentRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *IntentRepository {
	return &IntentRepository{client: client, tableName: tableName, logger: logger}
}

// intentRecord is the single-table item for an intent.
type intentRecord struct {
	PK                  string   `dynamodbav:"PK"`
	SK                  string   `dynamodbav:"SK"`
	EntityType          string   `dynamodbav:"EntityType"`
	IntentID            string   `dynamodbav:"IntentID"`
	TenantID            string   `dynamodbav:"TenantID"`
	Title               string   `dynamodbav:"Title"`
	Description         string   `dynamodbav:"Description,omitempty"`
	CurrentState        string   `dynamodbav:"CurrentState"`
	CreatedBy           string   `dynamodbav:"CreatedBy"`
	CreatedAt           string   `dynamodbav:"CreatedAt"`
	LastHumanReviewedAt string   `dynamodbav:"LastHumanReviewedAt,omitempty"`
	ConfidenceLevel     *float64 `dynamodbav:"ConfidenceLevel,omitempty"`
	VisibilityScope     string   `dynamodbav:"VisibilityScope"`
	Version             int      `dynamodbav:"Version"`
}

func intentKey(tenantID, intentID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("TENANT#%s", tenantID)},
		"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("INTENT#%s", intentID)},
	}
}

func intentToRecord(intent *entities.Intent) intentRecord {
	rec := intentRecord{
		PK:              fmt.Sprintf("TENANT#%s", intent.TenantID()),
		SK:              fmt.Sprintf("INTENT#%s", intent.ID()),
		EntityType:      "INTENT",
		IntentID:        intent.ID(),
		TenantID:        intent.TenantID(),
		Title:           intent.Title(),
		Description:     intent.Description(),
		CurrentState:    string(intent.CurrentState()),
		CreatedBy:       intent.CreatedBy(),
		CreatedAt:       timestampKey(intent.CreatedAt()),
		ConfidenceLevel: intent.ConfidenceLevel(),
		VisibilityScope: string(intent.VisibilityScope()),
		Version:         intent.Version(),
	}
	if reviewed := intent.LastHumanReviewedAt(); reviewed != nil {
		rec.LastHumanReviewedAt = timestampKey(*reviewed)
	}
	return rec
}

func (rec intentRecord) toEntity() (*entities.Intent, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intent CreatedAt: %w", err)
	}
	var reviewedAt *time.Time
	if rec.LastHumanReviewedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, rec.LastHumanReviewedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse intent LastHumanReviewedAt: %w", err)
		}
		reviewedAt = &t
	}
	return entities.ReconstructIntent(
		rec.IntentID, rec.TenantID, rec.Title, rec.Description,
		entities.IntentState(rec.CurrentState), rec.CreatedBy, createdAt,
		reviewedAt, rec.ConfidenceLevel,
		entities.VisibilityScope(rec.VisibilityScope), rec.Version,
	), nil
}

// Save writes a fresh intent. The condition refuses to clobber an existing
// row with the same key.
func (r *IntentRepository) Save(ctx context.Context, intent *entities.Intent) error {
	av, err := attributevalue.MarshalMap(intentToRecord(intent))
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	cond := expression.Name("PK").AttributeNotExists()
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
			return apperrors.NewConflictError("intent already exists")
		}
		return translateError("save intent", err)
	}

	r.logger.Debug("intent saved",
		zap.String("intentId", intent.ID()),
		zap.String("tenantId", intent.TenantID()),
	)
	return nil
}

// GetByID fetches one intent. The key embeds the tenant, so another
// tenant's intent is indistinguishable from a missing one.
func (r *IntentRepository) GetByID(ctx context.Context, tenantID, intentID string) (*entities.Intent, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       intentKey(tenantID, intentID),
	})
	if err != nil {
		return nil, translateError("get intent", err)
	}
	if result.Item == nil {
		return nil, apperrors.NewNotFoundError("intent", intentID)
	}

	var rec intentRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
	}
	return rec.toEntity()
}

// ListByTenant returns every intent in the tenant, oldest first.
func (r *IntentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*entities.Intent, error) {
	expr, err := intentListExpression(tenantID, nil)
	if err != nil {
		return nil, err
	}
	return r.queryIntents(ctx, expr)
}

// ListByState returns the tenant's intents currently in the given state.
func (r *IntentRepository) ListByState(ctx context.Context, tenantID string, state entities.IntentState) ([]*entities.Intent, error) {
	filter := expression.Name("CurrentState").Equal(expression.Value(string(state)))
	expr, err := intentListExpression(tenantID, &filter)
	if err != nil {
		return nil, err
	}
	return r.queryIntents(ctx, expr)
}

func intentListExpression(tenantID string, filter *expression.ConditionBuilder) (expression.Expression, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("TENANT#%s", tenantID))).
		And(expression.Key("SK").BeginsWith("INTENT#"))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build expression: %w", err)
	}
	return expr, nil
}

func (r *IntentRepository) queryIntents(ctx context.Context, expr expression.Expression) ([]*entities.Intent, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, translateError("query intents", err)
	}

	intents := make([]*entities.Intent, 0, len(items))
	for _, item := range items {
		var rec intentRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			r.logger.Warn("failed to unmarshal intent item", zap.Error(err))
			continue
		}
		intent, err := rec.toEntity()
		if err != nil {
			r.logger.Warn("failed to reconstruct intent",
				zap.String("intentId", rec.IntentID), zap.Error(err))
			continue
		}
		intents = append(intents, intent)
	}

	// The intent sort key is the id, not a timestamp, so order here.
	sort.SliceStable(intents, func(i, j int) bool {
		return intents[i].CreatedAt().Before(intents[j].CreatedAt())
	})
	return intents, nil
}

// Update rewrites the intent, conditional on the stored version still being
// the one the caller read. Losing that race is a Conflict.
func (r *IntentRepository) Update(ctx context.Context, intent *entities.Intent, expectedVersion int) error {
	av, err := attributevalue.MarshalMap(intentToRecord(intent))
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	cond := expression.Name("Version").Equal(expression.Value(expectedVersion))
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
			return apperrors.NewConflictError("intent was modified concurrently")
		}
		return translateError("update intent", err)
	}

	r.logger.Debug("intent updated",
		zap.String("intentId", intent.ID()),
		zap.Int("version", intent.Version()),
	)
	return nil
}

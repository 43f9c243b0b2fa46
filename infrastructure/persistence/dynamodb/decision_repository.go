package dynamodb

import (
	"context"
	"fmt"
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

// DecisionRepository is the DynamoDB ports.DecisionRepository. Ledger rows
// sort under their intent by decision timestamp, so queries come back
// chronological without any client-side ordering.
type DecisionRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.DecisionRepository = (*DecisionRepository)(nil)

// NewDecisionRepository creates a DynamoDB-backed decision repository.
func NewDecisionRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *DecisionRepository {
	return &DecisionRepository{client: client, tableName: tableName, logger: logger}
}

// decisionRecord is the single-table item for one ledger entry. Options and
// AI inputs marshal as lists, so their order survives storage.
type decisionRecord struct {
	PK                 string   `dynamodbav:"PK"`
	SK                 string   `dynamodbav:"SK"`
	GSI2PK             string   `dynamodbav:"GSI2PK"`
	GSI2SK             string   `dynamodbav:"GSI2SK"`
	EntityType         string   `dynamodbav:"EntityType"`
	DecisionID         string   `dynamodbav:"DecisionID"`
	TenantID           string   `dynamodbav:"TenantID"`
	IntentID           string   `dynamodbav:"IntentID"`
	DecisionStatement  string   `dynamodbav:"DecisionStatement"`
	OptionsConsidered  []string `dynamodbav:"OptionsConsidered,omitempty"`
	FinalChoice        string   `dynamodbav:"FinalChoice"`
	HumanApprover      string   `dynamodbav:"HumanApprover"`
	AIInputsReferenced []string `dynamodbav:"AIInputsReferenced,omitempty"`
	DecisionTimestamp  string   `dynamodbav:"DecisionTimestamp"`
	RevisitCondition   string   `dynamodbav:"RevisitCondition,omitempty"`
	Status             string   `dynamodbav:"Status"`
}

func decisionSK(d *entities.Decision) string {
	return fmt.Sprintf("DECISION#%s#%s", timestampKey(d.DecisionTimestamp()), d.ID())
}

func decisionToRecord(d *entities.Decision) decisionRecord {
	return decisionRecord{
		PK:                 fmt.Sprintf("INTENT#%s", d.IntentID()),
		SK:                 decisionSK(d),
		GSI2PK:             fmt.Sprintf("DECISION#%s", d.ID()),
		GSI2SK:             gsiMetadataSK,
		EntityType:         "DECISION",
		DecisionID:         d.ID(),
		TenantID:           d.TenantID(),
		IntentID:           d.IntentID(),
		DecisionStatement:  d.DecisionStatement(),
		OptionsConsidered:  d.OptionsConsidered(),
		FinalChoice:        d.FinalChoice(),
		HumanApprover:      d.HumanApprover(),
		AIInputsReferenced: d.AIInputsReferenced(),
		DecisionTimestamp:  timestampKey(d.DecisionTimestamp()),
		RevisitCondition:   d.RevisitCondition(),
		Status:             string(d.Status()),
	}
}

func (rec decisionRecord) toEntity() (*entities.Decision, error) {
	ts, err := time.Parse(time.RFC3339Nano, rec.DecisionTimestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DecisionTimestamp: %w", err)
	}
	return entities.ReconstructDecision(
		rec.DecisionID, rec.TenantID, rec.IntentID, rec.DecisionStatement,
		rec.OptionsConsidered, rec.FinalChoice, rec.HumanApprover,
		rec.AIInputsReferenced, ts, rec.RevisitCondition,
		entities.DecisionStatus(rec.Status),
	), nil
}

// Save appends one committed decision to the ledger.
func (r *DecisionRepository) Save(ctx context.Context, decision *entities.Decision) error {
	av, err := attributevalue.MarshalMap(decisionToRecord(decision))
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return translateError("save decision", err)
	}

	r.logger.Debug("decision saved",
		zap.String("decisionId", decision.ID()),
		zap.String("intentId", decision.IntentID()),
	)
	return nil
}

// GetByID looks a decision up through GSI2 and verifies tenant ownership.
func (r *DecisionRepository) GetByID(ctx context.Context, tenantID, decisionID string) (*entities.Decision, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(fmt.Sprintf("DECISION#%s", decisionID))).
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
		return nil, translateError("get decision", err)
	}
	if len(result.Items) == 0 {
		return nil, apperrors.NewNotFoundError("decision", decisionID)
	}

	var rec decisionRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decision: %w", err)
	}
	if rec.TenantID != tenantID {
		return nil, apperrors.NewNotFoundError("decision", decisionID)
	}
	return rec.toEntity()
}

// ListByIntent returns the intent's full ledger, oldest first, superseded
// entries included.
func (r *DecisionRepository) ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Decision, error) {
	expr, err := decisionListExpression(intentID, nil)
	if err != nil {
		return nil, err
	}
	return r.queryDecisions(ctx, tenantID, expr)
}

// ListActiveByIntent returns only the entries still standing, oldest first.
func (r *DecisionRepository) ListActiveByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Decision, error) {
	filter := expression.Name("Status").Equal(expression.Value(string(entities.DecisionStatusActive)))
	expr, err := decisionListExpression(intentID, &filter)
	if err != nil {
		return nil, err
	}
	return r.queryDecisions(ctx, tenantID, expr)
}

func decisionListExpression(intentID string, filter *expression.ConditionBuilder) (expression.Expression, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("INTENT#%s", intentID))).
		And(expression.Key("SK").BeginsWith("DECISION#"))
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

func (r *DecisionRepository) queryDecisions(ctx context.Context, tenantID string, expr expression.Expression) ([]*entities.Decision, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	})
	if err != nil {
		return nil, translateError("query decisions", err)
	}

	decisions := make([]*entities.Decision, 0, len(items))
	for _, item := range items {
		var rec decisionRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			r.logger.Warn("failed to unmarshal decision item", zap.Error(err))
			continue
		}
		// The intent id is caller-supplied, so its rows are only trusted
		// after the tenant attribute matches.
		if rec.TenantID != tenantID {
			continue
		}
		decision, err := rec.toEntity()
		if err != nil {
			r.logger.Warn("failed to reconstruct decision",
				zap.String("decisionId", rec.DecisionID), zap.Error(err))
			continue
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}

// Supersede writes the status flip on the original and the replacement row
// as one transaction. The condition re-validates at write time that the
// original is still active; losing that race is a Conflict and neither
// write lands.
func (r *DecisionRepository) Supersede(ctx context.Context, original, replacement *entities.Decision) error {
	replacementItem, err := attributevalue.MarshalMap(decisionToRecord(replacement))
	if err != nil {
		return fmt.Errorf("failed to marshal replacement decision: %w", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName: aws.String(r.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("INTENT#%s", original.IntentID())},
						"SK": &types.AttributeValueMemberS{Value: decisionSK(original)},
					},
					UpdateExpression:    aws.String("SET #status = :superseded"),
					ConditionExpression: aws.String("#status = :active"),
					ExpressionAttributeNames: map[string]string{
						"#status": "Status",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":superseded": &types.AttributeValueMemberS{Value: string(entities.DecisionStatusSuperseded)},
						":active":     &types.AttributeValueMemberS{Value: string(entities.DecisionStatusActive)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(r.tableName),
					Item:      replacementItem,
				},
			},
		},
	})
	if err != nil {
		if isTransactionConditionFailed(err) {
			return apperrors.NewConflictError("decision is no longer active")
		}
		return translateError("supersede decision", err)
	}

	r.logger.Debug("decision superseded",
		zap.String("decisionId", original.ID()),
		zap.String("replacementId", replacement.ID()),
	)
	return nil
}

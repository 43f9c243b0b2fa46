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

// RiskRepository is the DynamoDB ports.RiskRepository.
type RiskRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.RiskRepository = (*RiskRepository)(nil)

// NewRiskRepository creates a DynamoDB-backed risk repository.
func NewRiskRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *RiskRepository {
	return &RiskRepository{client: client, tableName: tableName, logger: logger}
}

type riskRecord struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	GSI2PK          string `dynamodbav:"GSI2PK"`
	GSI2SK          string `dynamodbav:"GSI2SK"`
	EntityType      string `dynamodbav:"EntityType"`
	RiskID          string `dynamodbav:"RiskID"`
	TenantID        string `dynamodbav:"TenantID"`
	IntentID        string `dynamodbav:"IntentID"`
	Statement       string `dynamodbav:"Statement"`
	Severity        string `dynamodbav:"Severity,omitempty"`
	Likelihood      string `dynamodbav:"Likelihood,omitempty"`
	CreatedFrom     string `dynamodbav:"CreatedFrom"`
	MitigationNotes string `dynamodbav:"MitigationNotes,omitempty"`
	CreatedAt       string `dynamodbav:"CreatedAt"`
	Status          string `dynamodbav:"Status"`
}

func riskToRecord(risk *entities.Risk) riskRecord {
	return riskRecord{
		PK:              fmt.Sprintf("INTENT#%s", risk.IntentID()),
		SK:              fmt.Sprintf("RISK#%s#%s", timestampKey(risk.CreatedAt()), risk.ID()),
		GSI2PK:          fmt.Sprintf("RISK#%s", risk.ID()),
		GSI2SK:          gsiMetadataSK,
		EntityType:      "RISK",
		RiskID:          risk.ID(),
		TenantID:        risk.TenantID(),
		IntentID:        risk.IntentID(),
		Statement:       risk.Statement(),
		Severity:        string(risk.Severity()),
		Likelihood:      string(risk.Likelihood()),
		CreatedFrom:     string(risk.CreatedFrom()),
		MitigationNotes: risk.MitigationNotes(),
		CreatedAt:       timestampKey(risk.CreatedAt()),
		Status:          string(risk.Status()),
	}
}

func (rec riskRecord) toEntity() (*entities.Risk, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse risk CreatedAt: %w", err)
	}
	return entities.ReconstructRisk(
		rec.RiskID, rec.TenantID, rec.IntentID, rec.Statement,
		entities.RiskSeverity(rec.Severity), entities.RiskLikelihood(rec.Likelihood),
		entities.Origin(rec.CreatedFrom), rec.MitigationNotes, createdAt,
		entities.RiskStatus(rec.Status),
	), nil
}

// Save writes a fresh risk.
func (r *RiskRepository) Save(ctx context.Context, risk *entities.Risk) error {
	av, err := attributevalue.MarshalMap(riskToRecord(risk))
	if err != nil {
		return fmt.Errorf("failed to marshal risk: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return translateError("save risk", err)
	}

	r.logger.Debug("risk saved",
		zap.String("riskId", risk.ID()),
		zap.String("intentId", risk.IntentID()),
	)
	return nil
}

// GetByID looks a risk up through GSI2 and verifies tenant ownership.
func (r *RiskRepository) GetByID(ctx context.Context, tenantID, riskID string) (*entities.Risk, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(fmt.Sprintf("RISK#%s", riskID))).
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
		return nil, translateError("get risk", err)
	}
	if len(result.Items) == 0 {
		return nil, apperrors.NewNotFoundError("risk", riskID)
	}

	var rec riskRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal risk: %w", err)
	}
	if rec.TenantID != tenantID {
		return nil, apperrors.NewNotFoundError("risk", riskID)
	}
	return rec.toEntity()
}

// ListByIntent returns the intent's risks, oldest first.
func (r *RiskRepository) ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Risk, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("INTENT#%s", intentID))).
		And(expression.Key("SK").BeginsWith("RISK#"))
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
		return nil, translateError("query risks", err)
	}

	risks := make([]*entities.Risk, 0, len(items))
	for _, item := range items {
		var rec riskRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			r.logger.Warn("failed to unmarshal risk item", zap.Error(err))
			continue
		}
		if rec.TenantID != tenantID {
			continue
		}
		risk, err := rec.toEntity()
		if err != nil {
			r.logger.Warn("failed to reconstruct risk",
				zap.String("riskId", rec.RiskID), zap.Error(err))
			continue
		}
		risks = append(risks, risk)
	}
	return risks, nil
}

// Update rewrites the risk, conditional on the stored status still being
// the one the caller read.
func (r *RiskRepository) Update(ctx context.Context, risk *entities.Risk, expectedStatus entities.RiskStatus) error {
	av, err := attributevalue.MarshalMap(riskToRecord(risk))
	if err != nil {
		return fmt.Errorf("failed to marshal risk: %w", err)
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
			return apperrors.NewConflictError("risk status changed concurrently")
		}
		return translateError("update risk", err)
	}

	r.logger.Debug("risk updated",
		zap.String("riskId", risk.ID()),
		zap.String("status", string(risk.Status())),
	)
	return nil
}

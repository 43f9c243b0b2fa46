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

// ProposalRepository is the DynamoDB ports.ProposalRepository. GSI1 groups
// proposals by tenant and status, which serves the review-queue listing;
// GSI2 serves lookup by id. Review flips re-key GSI1 automatically because
// the status sits inside the GSI1 partition key and updates rewrite the row.
type ProposalRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.ProposalRepository = (*ProposalRepository)(nil)

// NewProposalRepository creates a DynamoDB-backed proposal repository.
func NewProposalRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *ProposalRepository {
	return &ProposalRepository{client: client, tableName: tableName, logger: logger}
}

type proposalRecord struct {
	PK               string   `dynamodbav:"PK"`
	SK               string   `dynamodbav:"SK"`
	GSI1PK           string   `dynamodbav:"GSI1PK"`
	GSI1SK           string   `dynamodbav:"GSI1SK"`
	GSI2PK           string   `dynamodbav:"GSI2PK"`
	GSI2SK           string   `dynamodbav:"GSI2SK"`
	EntityType       string   `dynamodbav:"EntityType"`
	ProposalID       string   `dynamodbav:"ProposalID"`
	TenantID         string   `dynamodbav:"TenantID"`
	IntentID         string   `dynamodbav:"IntentID,omitempty"`
	ProposalType     string   `dynamodbav:"ProposalType"`
	Content          string   `dynamodbav:"Content"`
	PromptTemplateID string   `dynamodbav:"PromptTemplateID,omitempty"`
	ModelUsed        string   `dynamodbav:"ModelUsed,omitempty"`
	Confidence       *float64 `dynamodbav:"Confidence,omitempty"`
	Status           string   `dynamodbav:"Status"`
	ReviewedBy       string   `dynamodbav:"ReviewedBy,omitempty"`
	ReviewedAt       string   `dynamodbav:"ReviewedAt,omitempty"`
	CreatedAt        string   `dynamodbav:"CreatedAt"`
}

func proposalSK(p *entities.Proposal) string {
	return fmt.Sprintf("PROPOSAL#%s#%s", timestampKey(p.CreatedAt()), p.ID())
}

func proposalToRecord(p *entities.Proposal) proposalRecord {
	sk := proposalSK(p)
	rec := proposalRecord{
		PK:               fmt.Sprintf("TENANT#%s", p.TenantID()),
		SK:               sk,
		GSI1PK:           fmt.Sprintf("TENANT#%s#PSTATUS#%s", p.TenantID(), p.Status()),
		GSI1SK:           sk,
		GSI2PK:           fmt.Sprintf("PROPOSAL#%s", p.ID()),
		GSI2SK:           gsiMetadataSK,
		EntityType:       "PROPOSAL",
		ProposalID:       p.ID(),
		TenantID:         p.TenantID(),
		IntentID:         p.IntentID(),
		ProposalType:     string(p.ProposalType()),
		Content:          p.Content(),
		PromptTemplateID: p.PromptTemplateID(),
		ModelUsed:        p.ModelUsed(),
		Confidence:       p.Confidence(),
		Status:           string(p.Status()),
		ReviewedBy:       p.ReviewedBy(),
		CreatedAt:        timestampKey(p.CreatedAt()),
	}
	if reviewedAt := p.ReviewedAt(); reviewedAt != nil {
		rec.ReviewedAt = timestampKey(*reviewedAt)
	}
	return rec
}

func (rec proposalRecord) toEntity() (*entities.Proposal, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proposal CreatedAt: %w", err)
	}
	var reviewedAt *time.Time
	if rec.ReviewedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, rec.ReviewedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proposal ReviewedAt: %w", err)
		}
		reviewedAt = &t
	}
	return entities.ReconstructProposal(
		rec.ProposalID, rec.TenantID, rec.IntentID,
		entities.ProposalType(rec.ProposalType), rec.Content,
		rec.PromptTemplateID, rec.ModelUsed, rec.Confidence,
		entities.ProposalStatus(rec.Status), rec.ReviewedBy, reviewedAt, createdAt,
	), nil
}

// Save writes a fresh pending proposal.
func (r *ProposalRepository) Save(ctx context.Context, proposal *entities.Proposal) error {
	av, err := attributevalue.MarshalMap(proposalToRecord(proposal))
	if err != nil {
		return fmt.Errorf("failed to marshal proposal: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return translateError("save proposal", err)
	}

	r.logger.Debug("proposal saved",
		zap.String("proposalId", proposal.ID()),
		zap.String("proposalType", string(proposal.ProposalType())),
	)
	return nil
}

// GetByID looks a proposal up through GSI2 and verifies tenant ownership.
func (r *ProposalRepository) GetByID(ctx context.Context, tenantID, proposalID string) (*entities.Proposal, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(fmt.Sprintf("PROPOSAL#%s", proposalID))).
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
		return nil, translateError("get proposal", err)
	}
	if len(result.Items) == 0 {
		return nil, apperrors.NewNotFoundError("proposal", proposalID)
	}

	var rec proposalRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proposal: %w", err)
	}
	if rec.TenantID != tenantID {
		return nil, apperrors.NewNotFoundError("proposal", proposalID)
	}
	return rec.toEntity()
}

// List returns the tenant's proposals, oldest first. A status filter routes
// through GSI1; an intent filter applies as a filter expression either way.
func (r *ProposalRepository) List(ctx context.Context, tenantID string, filter ports.ProposalFilter) ([]*entities.Proposal, error) {
	var keyCond expression.KeyConditionBuilder
	var indexName *string
	if filter.Status != "" {
		keyCond = expression.Key("GSI1PK").Equal(expression.Value(
			fmt.Sprintf("TENANT#%s#PSTATUS#%s", tenantID, filter.Status)))
		indexName = aws.String(gsi1Name)
	} else {
		keyCond = expression.Key("PK").Equal(expression.Value(fmt.Sprintf("TENANT#%s", tenantID))).
			And(expression.Key("SK").BeginsWith("PROPOSAL#"))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter.IntentID != "" {
		builder = builder.WithFilter(expression.Name("IntentID").Equal(expression.Value(filter.IntentID)))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 indexName,
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	})
	if err != nil {
		return nil, translateError("query proposals", err)
	}

	proposals := make([]*entities.Proposal, 0, len(items))
	for _, item := range items {
		var rec proposalRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			r.logger.Warn("failed to unmarshal proposal item", zap.Error(err))
			continue
		}
		proposal, err := rec.toEntity()
		if err != nil {
			r.logger.Warn("failed to reconstruct proposal",
				zap.String("proposalId", rec.ProposalID), zap.Error(err))
			continue
		}
		proposals = append(proposals, proposal)
	}
	return proposals, nil
}

// Update rewrites the proposal, conditional on the stored status still
// being the one the caller read. Review targets pending, so exactly one
// reviewer can win; the loser gets a Conflict.
func (r *ProposalRepository) Update(ctx context.Context, proposal *entities.Proposal, expectedStatus entities.ProposalStatus) error {
	av, err := attributevalue.MarshalMap(proposalToRecord(proposal))
	if err != nil {
		return fmt.Errorf("failed to marshal proposal: %w", err)
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
			return apperrors.NewConflictError("proposal was reviewed concurrently")
		}
		return translateError("update proposal", err)
	}

	r.logger.Debug("proposal updated",
		zap.String("proposalId", proposal.ID()),
		zap.String("status", string(proposal.Status())),
	)
	return nil
}

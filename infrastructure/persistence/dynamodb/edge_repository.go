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
	"github.com/DoozHub/dooz-pm-suite/domain/core/valueobjects"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// batchWriteLimit is DynamoDB's cap on items per BatchWriteItem call.
const batchWriteLimit = 25

// EdgeRepository is the DynamoDB ports.EdgeRepository. GSI1 indexes edges
// by source node, GSI2 by target node; both carry a timestamped sort key so
// per-node listings come back chronological.
type EdgeRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.EdgeRepository = (*EdgeRepository)(nil)

// NewEdgeRepository creates a DynamoDB-backed edge repository.
func NewEdgeRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *EdgeRepository {
	return &EdgeRepository{client: client, tableName: tableName, logger: logger}
}

type edgeRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK"`
	GSI2SK     string `dynamodbav:"GSI2SK"`
	EntityType string `dynamodbav:"EntityType"`
	EdgeID     string `dynamodbav:"EdgeID"`
	TenantID   string `dynamodbav:"TenantID"`
	SourceID   string `dynamodbav:"SourceID"`
	SourceType string `dynamodbav:"SourceType"`
	TargetID   string `dynamodbav:"TargetID"`
	TargetType string `dynamodbav:"TargetType"`
	EdgeType   string `dynamodbav:"EdgeType"`
	CreatedBy  string `dynamodbav:"CreatedBy"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func edgeKey(tenantID, edgeID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("TENANT#%s", tenantID)},
		"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("EDGE#%s", edgeID)},
	}
}

func edgeToRecord(edge *entities.Edge) edgeRecord {
	indexSK := fmt.Sprintf("EDGE#%s#%s", timestampKey(edge.CreatedAt()), edge.ID())
	return edgeRecord{
		PK:         fmt.Sprintf("TENANT#%s", edge.TenantID()),
		SK:         fmt.Sprintf("EDGE#%s", edge.ID()),
		GSI1PK:     fmt.Sprintf("NODE#%s", edge.Source().ID()),
		GSI1SK:     indexSK,
		GSI2PK:     fmt.Sprintf("NODE#%s", edge.Target().ID()),
		GSI2SK:     indexSK,
		EntityType: "EDGE",
		EdgeID:     edge.ID(),
		TenantID:   edge.TenantID(),
		SourceID:   edge.Source().ID(),
		SourceType: string(edge.Source().Type()),
		TargetID:   edge.Target().ID(),
		TargetType: string(edge.Target().Type()),
		EdgeType:   string(edge.EdgeType()),
		CreatedBy:  edge.CreatedBy(),
		CreatedAt:  timestampKey(edge.CreatedAt()),
	}
}

func (rec edgeRecord) toEntity() (*entities.Edge, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edge CreatedAt: %w", err)
	}
	source, err := valueobjects.NewNodeRef(rec.SourceID, valueobjects.NodeType(rec.SourceType))
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild edge source: %w", err)
	}
	target, err := valueobjects.NewNodeRef(rec.TargetID, valueobjects.NodeType(rec.TargetType))
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild edge target: %w", err)
	}
	return entities.ReconstructEdge(
		rec.EdgeID, rec.TenantID, source, target,
		entities.EdgeType(rec.EdgeType), rec.CreatedBy, createdAt,
	), nil
}

// Save writes an edge. Edges are never deduplicated, so this is a plain put.
func (r *EdgeRepository) Save(ctx context.Context, edge *entities.Edge) error {
	av, err := attributevalue.MarshalMap(edgeToRecord(edge))
	if err != nil {
		return fmt.Errorf("failed to marshal edge: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return translateError("save edge", err)
	}

	r.logger.Debug("edge saved",
		zap.String("edgeId", edge.ID()),
		zap.String("edgeType", string(edge.EdgeType())),
	)
	return nil
}

// GetByID fetches one edge. The key embeds the tenant.
func (r *EdgeRepository) GetByID(ctx context.Context, tenantID, edgeID string) (*entities.Edge, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       edgeKey(tenantID, edgeID),
	})
	if err != nil {
		return nil, translateError("get edge", err)
	}
	if result.Item == nil {
		return nil, apperrors.NewNotFoundError("edge", edgeID)
	}

	var rec edgeRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
	}
	return rec.toEntity()
}

// GetBySource returns edges leaving the node, oldest first.
func (r *EdgeRepository) GetBySource(ctx context.Context, tenantID, nodeID string) ([]*entities.Edge, error) {
	return r.queryNodeIndex(ctx, gsi1Name, "GSI1PK", tenantID, nodeID)
}

// GetByTarget returns edges arriving at the node, oldest first.
func (r *EdgeRepository) GetByTarget(ctx context.Context, tenantID, nodeID string) ([]*entities.Edge, error) {
	return r.queryNodeIndex(ctx, gsi2Name, "GSI2PK", tenantID, nodeID)
}

func (r *EdgeRepository) queryNodeIndex(ctx context.Context, indexName, pkAttr, tenantID, nodeID string) ([]*entities.Edge, error) {
	keyCond := expression.Key(pkAttr).Equal(expression.Value(fmt.Sprintf("NODE#%s", nodeID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	})
	if err != nil {
		return nil, translateError("query edges by node", err)
	}
	return r.collectEdges(items, tenantID), nil
}

// ListByType returns the tenant's edges of one type, oldest first.
func (r *EdgeRepository) ListByType(ctx context.Context, tenantID string, edgeType entities.EdgeType) ([]*entities.Edge, error) {
	filter := expression.Name("EdgeType").Equal(expression.Value(string(edgeType)))
	return r.queryTenantEdges(ctx, tenantID, &filter)
}

// ListByTenant returns every edge in the tenant.
func (r *EdgeRepository) ListByTenant(ctx context.Context, tenantID string) ([]*entities.Edge, error) {
	return r.queryTenantEdges(ctx, tenantID, nil)
}

func (r *EdgeRepository) queryTenantEdges(ctx context.Context, tenantID string, filter *expression.ConditionBuilder) ([]*entities.Edge, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("TENANT#%s", tenantID))).
		And(expression.Key("SK").BeginsWith("EDGE#"))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, translateError("query edges", err)
	}
	return r.collectEdges(items, tenantID), nil
}

func (r *EdgeRepository) collectEdges(items []map[string]types.AttributeValue, tenantID string) []*entities.Edge {
	edges := make([]*entities.Edge, 0, len(items))
	for _, item := range items {
		var rec edgeRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			r.logger.Warn("failed to unmarshal edge item", zap.Error(err))
			continue
		}
		if rec.TenantID != tenantID {
			continue
		}
		edge, err := rec.toEntity()
		if err != nil {
			r.logger.Warn("failed to reconstruct edge",
				zap.String("edgeId", rec.EdgeID), zap.Error(err))
			continue
		}
		edges = append(edges, edge)
	}
	return edges
}

// Delete removes one edge. The condition makes a missing edge a NotFound
// instead of a silent no-op.
func (r *EdgeRepository) Delete(ctx context.Context, tenantID, edgeID string) error {
	cond := expression.Name("PK").AttributeExists()
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       edgeKey(tenantID, edgeID),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return apperrors.NewNotFoundError("edge", edgeID)
		}
		return translateError("delete edge", err)
	}

	r.logger.Debug("edge deleted", zap.String("edgeId", edgeID))
	return nil
}

// DeleteByNode removes every edge touching the node, in either direction,
// and reports how many went. A self-loop counts once.
func (r *EdgeRepository) DeleteByNode(ctx context.Context, tenantID, nodeID string) (int, error) {
	outgoing, err := r.GetBySource(ctx, tenantID, nodeID)
	if err != nil {
		return 0, err
	}
	incoming, err := r.GetByTarget(ctx, tenantID, nodeID)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{})
	deletes := make([]types.WriteRequest, 0, len(outgoing)+len(incoming))
	for _, edge := range append(outgoing, incoming...) {
		if _, dup := seen[edge.ID()]; dup {
			continue
		}
		seen[edge.ID()] = struct{}{}
		deletes = append(deletes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: edgeKey(tenantID, edge.ID())},
		})
	}
	if len(deletes) == 0 {
		return 0, nil
	}

	for start := 0; start < len(deletes); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(deletes) {
			end = len(deletes)
		}
		_, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.tableName: deletes[start:end],
			},
		})
		if err != nil {
			return 0, fmt.Errorf("failed to batch delete edges: %w", err)
		}
	}

	r.logger.Debug("edges deleted by node",
		zap.String("nodeId", nodeID),
		zap.Int("count", len(deletes)),
	)
	return len(deletes), nil
}

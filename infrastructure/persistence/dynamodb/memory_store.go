package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
)

// memoryScanCap bounds how many recent notes a search considers before
// term matching. Relevance ranking beyond recency is out of scope.
const memoryScanCap = 200

// MemoryStore is the DynamoDB ports.MemoryStore. Notes append under their
// scope with a timestamped sort key, so a reverse query reads newest first.
type MemoryStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.MemoryStore = (*MemoryStore)(nil)

// NewMemoryStore creates a DynamoDB-backed memory store.
func NewMemoryStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{client: client, tableName: tableName, logger: logger}
}

type memoryRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	MemoryID   string `dynamodbav:"MemoryID"`
	ScopeID    string `dynamodbav:"ScopeID"`
	Title      string `dynamodbav:"Title"`
	Content    string `dynamodbav:"Content"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

// Store appends one note to the scope.
func (s *MemoryStore) Store(ctx context.Context, scopeID, title, content string) error {
	now := time.Now().UTC()
	id := uuid.New().String()
	rec := memoryRecord{
		PK:         fmt.Sprintf("SCOPE#%s", scopeID),
		SK:         fmt.Sprintf("MEMORY#%s#%s", timestampKey(now), id),
		EntityType: "MEMORY",
		MemoryID:   id,
		ScopeID:    scopeID,
		Title:      title,
		Content:    content,
		CreatedAt:  timestampKey(now),
	}

	av, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return translateError("store memory", err)
	}

	s.logger.Debug("memory stored",
		zap.String("scopeId", scopeID),
		zap.String("title", title),
	)
	return nil
}

// Search returns up to limit notes from the scope whose title or content
// matches a query term, newest first. An empty query matches everything.
func (s *MemoryStore) Search(ctx context.Context, scopeID, query string, limit int) ([]ports.MemoryEntry, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("SCOPE#%s", scopeID))).
		And(expression.Key("SK").BeginsWith("MEMORY#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(memoryScanCap),
	})
	if err != nil {
		return nil, translateError("search memories", err)
	}

	terms := strings.Fields(strings.ToLower(query))
	entries := make([]ports.MemoryEntry, 0, limit)
	for _, item := range result.Items {
		var rec memoryRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			s.logger.Warn("failed to unmarshal memory item", zap.Error(err))
			continue
		}
		if !memoryMatches(rec, terms) {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
		if err != nil {
			s.logger.Warn("failed to parse memory CreatedAt", zap.Error(err))
			continue
		}
		entries = append(entries, ports.MemoryEntry{
			Title:     rec.Title,
			Content:   rec.Content,
			CreatedAt: createdAt,
		})
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

func memoryMatches(rec memoryRecord, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	haystack := strings.ToLower(rec.Title + " " + rec.Content)
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// Package dynamodb persists every record store in a single DynamoDB table.
//
// Key layout:
//
//	Intent      PK TENANT#<tenant>   SK INTENT#<id>
//	Decision    PK INTENT#<intent>   SK DECISION#<ts>#<id>     GSI2PK DECISION#<id>
//	Assumption  PK INTENT#<intent>   SK ASSUMPTION#<ts>#<id>   GSI2PK ASSUMPTION#<id>
//	Risk        PK INTENT#<intent>   SK RISK#<ts>#<id>         GSI2PK RISK#<id>
//	Task        PK INTENT#<intent>   SK TASK#<ts>#<id>         GSI2PK TASK#<id>
//	Edge        PK TENANT#<tenant>   SK EDGE#<id>              GSI1PK NODE#<source>  GSI2PK NODE#<target>
//	Proposal    PK TENANT#<tenant>   SK PROPOSAL#<ts>#<id>     GSI1PK TENANT#<t>#PSTATUS#<status>  GSI2PK PROPOSAL#<id>
//	Memory      PK SCOPE#<scope>     SK MEMORY#<ts>#<id>
//
// Timestamps embedded in sort keys are RFC3339Nano in UTC, so lexical key
// order is chronological order. Intent-keyed rows carry the tenant id as an
// attribute and every read verifies it against the caller's tenant; a
// mismatch reports NotFound so existence never leaks across tenants.
package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	gsi1Name = "GSI1"
	gsi2Name = "GSI2"

	// gsiMetadataSK marks the single index row a lookup-by-id query targets.
	gsiMetadataSK = "METADATA"
)

// timestampKey renders a timestamp for embedding in a sort key.
func timestampKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// queryAll drains a query across all result pages.
func queryAll(ctx context.Context, client *dynamodb.Client, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	items := make([]map[string]types.AttributeValue, 0)
	for {
		result, err := client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return items, nil
}

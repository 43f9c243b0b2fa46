package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

func TestTranslateError_ThrottlingMapsToUnavailable(t *testing.T) {
	for _, code := range []string{
		"ProvisionedThroughputExceededException",
		"RequestLimitExceeded",
		"ThrottlingException",
		"ServiceUnavailable",
	} {
		err := translateError("query intents", &smithy.GenericAPIError{Code: code, Message: "slow down"})
		assert.True(t, apperrors.IsUnavailable(err), "code %s", code)
	}
}

func TestTranslateError_ContextDeadlineMapsToTimeout(t *testing.T) {
	err := translateError("get intent", fmt.Errorf("request: %w", context.DeadlineExceeded))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout))
}

func TestTranslateError_UnknownFailureMapsToDatabase(t *testing.T) {
	err := translateError("save intent", errors.New("connection reset"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabase))
	assert.Contains(t, err.Error(), "save intent")
}

func TestConditionHelpers(t *testing.T) {
	assert.True(t, isConditionalCheckFailed(fmt.Errorf("put: %w", &types.ConditionalCheckFailedException{})))
	assert.False(t, isConditionalCheckFailed(errors.New("something else")))

	conditionFailed := "ConditionalCheckFailed"
	assert.True(t, isTransactionConditionFailed(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: &conditionFailed}},
	}))

	conflict := "TransactionConflict"
	assert.False(t, isTransactionConditionFailed(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: &conflict}},
	}))
}

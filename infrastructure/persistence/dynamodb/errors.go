package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// isConditionalCheckFailed reports whether a write was rejected by its
// condition expression.
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// isTransactionConditionFailed reports whether a transaction was cancelled
// because one of its condition checks failed, as opposed to throttling or a
// transient transaction conflict.
func isTransactionConditionFailed(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

// translateError maps a failed DynamoDB call onto the shared error taxonomy.
// Condition failures are handled by the callers that set the condition;
// everything else lands here so the HTTP layer can pick a status code
// without inspecting messages.
func translateError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewTimeoutError(operation).WithCause(err)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException", "ServiceUnavailable":
			return apperrors.NewUnavailableError("dynamodb").WithCause(err)
		}
	}
	return apperrors.NewDatabaseError(operation, err)
}

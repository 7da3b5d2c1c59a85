/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/suparena/docstore/errors"
)

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	switch {
	case stderrors.As(err, &throughput), stderrors.As(err, &limit), stderrors.As(err, &internal):
		return true
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailable", "RequestTimeout":
			return true
		}
	}

	// Check for AWS SDK retryable errors
	var retryable interface{ RetryableError() bool }
	if stderrors.As(err, &retryable) {
		return retryable.RetryableError()
	}

	return false
}

func isConditionFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return stderrors.As(err, &cfe)
}

func isResourceNotFound(err error) bool {
	var rnf *types.ResourceNotFoundException
	return stderrors.As(err, &rnf)
}

func isResourceInUse(err error) bool {
	var riu *types.ResourceInUseException
	return stderrors.As(err, &riu)
}

// cancellationReasons returns the per-item reasons of a cancelled transaction.
func cancellationReasons(err error) ([]types.CancellationReason, bool) {
	var tce *types.TransactionCanceledException
	if !stderrors.As(err, &tce) {
		return nil, false
	}
	return tce.CancellationReasons, true
}

func reasonIs(reasons []types.CancellationReason, i int, code string) bool {
	return i < len(reasons) && reasons[i].Code != nil && *reasons[i].Code == code
}

// classify maps an SDK error onto the docstore error taxonomy. Callers handle
// the operation-specific cases (condition failures, missing tables) first.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isRetryableError(err) ||
		stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(err, context.Canceled) {
		return errors.NewTransportFailureError(op, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.NewTransportFailureError(op, err)
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return errors.NewValidationError(op, apiErr.ErrorMessage())
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
)

// withRetry runs fn, retrying transport failures with linear backoff. Any other
// error is returned immediately.
func withRetry[R any](ctx context.Context, policy datastore.ConnectionPolicy, logger zerolog.Logger, op string, fn func(context.Context) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	retries := policy.Retries()
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, errors.NewTransportFailureError(op, err)
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !errors.IsTransportFailure(err) {
			return zero, err
		}

		if attempt < retries {
			backoff := time.Duration(attempt+1) * policy.RetryBackoff
			logger.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("retrying after transport failure")
			select {
			case <-ctx.Done():
				return zero, errors.NewTransportFailureError(op, ctx.Err())
			case <-time.After(backoff):
			}
		}
	}
	return zero, fmt.Errorf("%s failed after %d retries: %w", op, retries, lastErr)
}

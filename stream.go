/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/suparena/docstore/query"
	"github.com/suparena/docstore/storagemodels"
)

// Stream delivers the documents matching p on a channel, fetching pages in the
// background. The channel is closed when the query is exhausted, the context is
// cancelled, or a page fails and the error handler (if any) declines to continue.
func (r *Repository[T]) Stream(ctx context.Context, p query.Predicate, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.BufferSize < 0 {
		options.BufferSize = 0
	}
	if options.MaxConsecutiveErrors <= 0 {
		options.MaxConsecutiveErrors = storagemodels.DefaultStreamOptions().MaxConsecutiveErrors
	}

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)
	it := r.Query(p, WithPageSize(options.PageSize), WithContinuationToken(options.ContinuationToken))

	go r.streamWorker(ctx, it, options, resultCh)

	return resultCh
}

func (r *Repository[T]) streamWorker(
	ctx context.Context,
	it *Iterator[T],
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[T],
) {
	defer close(resultCh)

	var (
		itemIndex   int64
		pageNumber  int
		consecutive int
		errs        []error
		startTime   = time.Now()
	)

	reportProgress := func() {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed:    itemIndex,
			PagesProcessed:    pageNumber,
			ContinuationToken: it.ContinuationToken(),
			Errors:            errs,
			StartTime:         startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	send := func(result storagemodels.StreamResult[T]) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- result:
			return true
		}
	}

	if it.err != nil {
		send(storagemodels.StreamResult[T]{Error: it.err, Meta: storagemodels.StreamMeta{Timestamp: time.Now()}})
		return
	}

	for it.HasMoreResults() {
		if ctx.Err() != nil {
			return
		}

		page, err := it.fetch(ctx)
		if err != nil {
			consecutive++
			if consecutive < options.MaxConsecutiveErrors && options.ErrorHandler != nil && options.ErrorHandler(err) {
				errs = append(errs, err)
				backoff := time.Duration(consecutive) * r.policy.RetryBackoff
				r.logger.Warn().Err(err).Int("page", pageNumber+1).Dur("backoff", backoff).Msg("stream page failed, continuing")
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				continue
			}
			send(storagemodels.StreamResult[T]{
				Error: fmt.Errorf("query failed: %w", err),
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			})
			return
		}

		consecutive = 0
		pageNumber++
		it.pages++
		it.params.ContinuationToken = page.ContinuationToken
		it.done = !page.HasMoreResults()

		for _, doc := range page.Documents {
			result := storagemodels.StreamResult[T]{
				Raw: storagemodels.CloneDocument(doc),
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			}
			item, err := r.decode(doc)
			if err != nil {
				result.Error = err
				errs = append(errs, err)
			} else {
				result.Item = *item
			}
			itemIndex++

			if !send(result) {
				return
			}
		}

		reportProgress()
	}
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"fmt"

	"github.com/suparena/docstore/query"
	"github.com/suparena/docstore/storagemodels"
)

// QueryOption configures a query iterator.
type QueryOption func(*storagemodels.QueryParams)

// WithPageSize bounds the number of documents requested per page.
func WithPageSize(size int32) QueryOption {
	return func(p *storagemodels.QueryParams) {
		p.PageSize = size
	}
}

// WithContinuationToken resumes a previous query.
func WithContinuationToken(token string) QueryOption {
	return func(p *storagemodels.QueryParams) {
		p.ContinuationToken = token
	}
}

// Iterator walks the pages of a query. Pages may be empty while more results remain.
type Iterator[T any] struct {
	repo   *Repository[T]
	ref    storagemodels.CollectionRef
	params storagemodels.QueryParams
	err    error
	done   bool
	pages  int
}

// Query returns a lazy iterator over the documents matching p. A nil predicate
// matches the whole collection. Nothing is sent to the store until Next.
func (r *Repository[T]) Query(p query.Predicate, opts ...QueryOption) *Iterator[T] {
	return r.newIterator(storagemodels.QueryParams{Filter: p}, opts)
}

// QueryRaw returns a lazy iterator over the results of a native query.
func (r *Repository[T]) QueryRaw(raw *query.Raw, opts ...QueryOption) *Iterator[T] {
	if raw == nil {
		raw = &query.Raw{}
	}
	return r.newIterator(storagemodels.QueryParams{Raw: raw}, opts)
}

func (r *Repository[T]) newIterator(params storagemodels.QueryParams, opts []QueryOption) *Iterator[T] {
	for _, opt := range opts {
		opt(&params)
	}
	if params.PageSize <= 0 {
		params.PageSize = r.policy.PageSizeOr(0)
	}
	it := &Iterator[T]{repo: r, params: params}
	ref, err := r.collectionRef()
	if err != nil {
		it.err = err
		return it
	}
	it.ref = ref
	if err := params.Validate(); err != nil {
		it.err = err
	}
	return it
}

// HasMoreResults reports whether Next may return further documents.
func (it *Iterator[T]) HasMoreResults() bool {
	return !it.done
}

// ContinuationToken returns the token that resumes the query after the last page
// returned by Next. It is empty before the first page and after the last.
func (it *Iterator[T]) ContinuationToken() string {
	return it.params.ContinuationToken
}

// Next fetches and decodes one page. Transport failures are retried under the
// repository's policy. A page that fails to fetch or decode is not consumed, so
// the next call requests it again.
func (it *Iterator[T]) Next(ctx context.Context) ([]T, error) {
	if it.done {
		return nil, nil
	}
	if it.err != nil {
		it.done = true
		return nil, it.err
	}

	page, err := it.fetch(ctx)
	if err != nil {
		return nil, err
	}

	// The iterator only advances once the whole page decodes.
	items := make([]T, 0, len(page.Documents))
	for i, doc := range page.Documents {
		item, err := it.repo.decode(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %d of page %d: %w", i, it.pages+1, err)
		}
		items = append(items, *item)
	}

	it.pages++
	it.params.ContinuationToken = page.ContinuationToken
	it.done = !page.HasMoreResults()
	return items, nil
}

func (it *Iterator[T]) fetch(ctx context.Context) (*storagemodels.Page, error) {
	params := it.params
	return withRetry(ctx, it.repo.policy, it.repo.logger, "QueryDocuments", func(ctx context.Context) (*storagemodels.Page, error) {
		return it.repo.backend.QueryDocuments(ctx, it.ref, &params)
	})
}

// Drain reads every remaining page and returns the accumulated results.
func (it *Iterator[T]) Drain(ctx context.Context) ([]T, error) {
	var all []T
	for it.HasMoreResults() {
		items, err := it.Next(ctx)
		if err != nil {
			return all, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// FirstMatching returns the first document matching p, or nil when none does.
func (r *Repository[T]) FirstMatching(ctx context.Context, p query.Predicate) (*T, error) {
	it := r.Query(p)
	for it.HasMoreResults() {
		items, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return &items[0], nil
		}
	}
	return nil, nil
}

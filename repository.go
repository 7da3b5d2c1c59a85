/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
	"golang.org/x/sync/singleflight"
)

// Repository is a typed view over one (database, collection) pair.
type Repository[T any] struct {
	backend    datastore.Backend
	database   string
	collection string
	policy     datastore.ConnectionPolicy
	logger     zerolog.Logger

	group singleflight.Group

	mu   sync.RWMutex
	db   *storagemodels.DatabaseDescriptor
	coll *storagemodels.CollectionDescriptor
}

type repositoryConfig struct {
	policy *datastore.ConnectionPolicy
	logger *zerolog.Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*repositoryConfig)

// WithRetryPolicy overrides the retry and paging settings inherited from the provider.
func WithRetryPolicy(policy datastore.ConnectionPolicy) RepositoryOption {
	return func(c *repositoryConfig) {
		c.policy = &policy
	}
}

// WithRepositoryLogger overrides the logger inherited from the provider.
func WithRepositoryLogger(logger zerolog.Logger) RepositoryOption {
	return func(c *repositoryConfig) {
		c.logger = &logger
	}
}

// NewRepository binds T to (database, collection) using the provider's shared handle.
// Names are validated when an address is first resolved, not here.
func NewRepository[T any](ctx context.Context, provider *ClientProvider, database, collection string, opts ...RepositoryOption) (*Repository[T], error) {
	backend, err := provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	base := []RepositoryOption{WithRetryPolicy(provider.Policy()), WithRepositoryLogger(provider.Logger())}
	return NewRepositoryWithBackend[T](backend, database, collection, append(base, opts...)...), nil
}

// NewRepositoryWithBackend binds T to (database, collection) on an existing backend.
func NewRepositoryWithBackend[T any](backend datastore.Backend, database, collection string, opts ...RepositoryOption) *Repository[T] {
	cfg := repositoryConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	policy := datastore.DefaultConnectionPolicy()
	if cfg.policy != nil {
		policy = cfg.policy.WithDefaults()
	}
	logger := zerolog.Nop()
	if cfg.logger != nil {
		logger = *cfg.logger
	}
	return &Repository[T]{
		backend:    backend,
		database:   database,
		collection: collection,
		policy:     policy,
		logger: logger.With().
			Str("database", database).
			Str("collection", collection).
			Logger(),
	}
}

// Database returns the bound database name.
func (r *Repository[T]) Database() string { return r.database }

// Collection returns the bound collection name.
func (r *Repository[T]) Collection() string { return r.collection }

// CollectionAddress returns "databases/{db}/collections/{coll}".
func (r *Repository[T]) CollectionAddress() (string, error) {
	ref, err := r.collectionRef()
	if err != nil {
		return "", err
	}
	return ref.Address(), nil
}

// DocumentAddress returns "databases/{db}/collections/{coll}/documents/{id}".
func (r *Repository[T]) DocumentAddress(id string) (string, error) {
	ref, err := r.documentRef(id)
	if err != nil {
		return "", err
	}
	return ref.Address(), nil
}

func (r *Repository[T]) collectionRef() (storagemodels.CollectionRef, error) {
	return storagemodels.NewCollectionRef(r.database, r.collection)
}

func (r *Repository[T]) documentRef(id string) (storagemodels.DocumentRef, error) {
	ref, err := r.collectionRef()
	if err != nil {
		return storagemodels.DocumentRef{}, err
	}
	return ref.Document(id)
}

// resolve runs fn once for all concurrent callers of key. fn is detached from
// the cancellation of whichever caller started it and bounded by the policy's
// retry budget instead; each caller stops waiting when its own ctx ends.
func (r *Repository[T]) resolve(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := r.group.DoChan(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		if budget := r.resolveBudget(); budget > 0 {
			var cancel context.CancelFunc
			shared, cancel = context.WithTimeout(shared, budget)
			defer cancel()
		}
		return fn(shared)
	})

	select {
	case <-ctx.Done():
		return nil, errors.NewTransportFailureError("resolve "+key, ctx.Err())
	case res := <-ch:
		return res.Val, res.Err
	}
}

// resolveBudget is the longest a get-or-create may take: every attempt at the
// request timeout plus the linear backoff between them.
func (r *Repository[T]) resolveBudget() time.Duration {
	if r.policy.RequestTimeout <= 0 {
		return 0
	}
	n := time.Duration(r.policy.Retries())
	return r.policy.RequestTimeout*(n+1) + r.policy.RetryBackoff*n*(n+1)/2
}

// GetOrCreateDatabase resolves the bound database, creating it when absent. The
// descriptor is cached until Close or RemoveDatabase.
func (r *Repository[T]) GetOrCreateDatabase(ctx context.Context) (*storagemodels.DatabaseDescriptor, error) {
	r.mu.RLock()
	cached := r.db
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	if strings.TrimSpace(r.database) == "" {
		return nil, errors.NewUnknownEndpointError(r.database, r.collection)
	}

	v, err := r.resolve(ctx, "db", func(ctx context.Context) (any, error) {
		r.mu.RLock()
		cached := r.db
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		desc, err := withRetry(ctx, r.policy, r.logger, "GetOrCreateDatabase", func(ctx context.Context) (*storagemodels.DatabaseDescriptor, error) {
			return r.backend.GetOrCreateDatabase(ctx, r.database)
		})
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.db = desc
		r.mu.Unlock()
		r.logger.Debug().Str("selfLink", desc.SelfLink).Msg("database resolved")
		return desc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*storagemodels.DatabaseDescriptor), nil
}

// GetOrCreateCollection resolves the bound collection, resolving the database first.
func (r *Repository[T]) GetOrCreateCollection(ctx context.Context) (*storagemodels.CollectionDescriptor, error) {
	r.mu.RLock()
	cached := r.coll
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	if _, err := r.collectionRef(); err != nil {
		return nil, err
	}

	v, err := r.resolve(ctx, "coll", func(ctx context.Context) (any, error) {
		r.mu.RLock()
		cached := r.coll
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		if _, err := r.GetOrCreateDatabase(ctx); err != nil {
			return nil, err
		}
		desc, err := withRetry(ctx, r.policy, r.logger, "GetOrCreateCollection", func(ctx context.Context) (*storagemodels.CollectionDescriptor, error) {
			return r.backend.GetOrCreateCollection(ctx, r.database, r.collection)
		})
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.coll = desc
		r.mu.Unlock()
		r.logger.Debug().Str("selfLink", desc.SelfLink).Msg("collection resolved")
		return desc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*storagemodels.CollectionDescriptor), nil
}

// RemoveDatabase resolves the database (creating it if necessary), deletes it and
// forgets both cached descriptors.
func (r *Repository[T]) RemoveDatabase(ctx context.Context) (bool, error) {
	desc, err := r.GetOrCreateDatabase(ctx)
	if err != nil {
		return false, err
	}
	if err := r.backend.DeleteDatabase(ctx, desc.ID); err != nil {
		return false, err
	}
	r.mu.Lock()
	r.db = nil
	r.coll = nil
	r.mu.Unlock()
	r.logger.Info().Msg("database removed")
	return true, nil
}

// RemoveCollection resolves the collection (creating it if necessary), deletes it
// and forgets the cached collection descriptor.
func (r *Repository[T]) RemoveCollection(ctx context.Context) (bool, error) {
	desc, err := r.GetOrCreateCollection(ctx)
	if err != nil {
		return false, err
	}
	if err := r.backend.DeleteCollection(ctx, desc.DatabaseID, desc.ID); err != nil {
		return false, err
	}
	r.mu.Lock()
	r.coll = nil
	r.mu.Unlock()
	r.logger.Info().Msg("collection removed")
	return true, nil
}

// AddDocument creates a new document and returns the store's canonical copy,
// including the generated id and system attributes.
func (r *Repository[T]) AddDocument(ctx context.Context, entity T) (*T, error) {
	ref, err := r.collectionRef()
	if err != nil {
		return nil, err
	}
	doc, err := storagemodels.MarshalDocument(entity)
	if err != nil {
		return nil, errors.NewValidationError("entity", err.Error())
	}

	created, err := r.backend.CreateDocument(ctx, ref, doc)
	if err != nil {
		return nil, classifyWrite("create", ref.Address(), err)
	}
	if created == nil {
		return nil, errors.NewWriteFailureError("create", ref.Address(), nil)
	}
	id, _ := storagemodels.StringAttr(created, storagemodels.AttrID)
	r.logger.Debug().Str("id", id).Msg("document created")
	return r.decode(created)
}

// GetDocument reads the document with the given id.
func (r *Repository[T]) GetDocument(ctx context.Context, id string) (*T, error) {
	ref, err := r.documentRef(id)
	if err != nil {
		return nil, err
	}
	doc, err := withRetry(ctx, r.policy, r.logger, "ReadDocument", func(ctx context.Context) (storagemodels.Document, error) {
		return r.backend.ReadDocument(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return r.decode(doc)
}

// ReplaceDocument overwrites the existing document with the given id.
func (r *Repository[T]) ReplaceDocument(ctx context.Context, id string, entity T) (*T, error) {
	ref, err := r.documentRef(id)
	if err != nil {
		return nil, err
	}
	doc, err := storagemodels.MarshalDocument(entity)
	if err != nil {
		return nil, errors.NewValidationError("entity", err.Error())
	}
	doc[storagemodels.AttrID] = &types.AttributeValueMemberS{Value: id}

	replaced, err := r.backend.ReplaceDocument(ctx, ref, doc)
	if err != nil {
		return nil, classifyWrite("replace", ref.Address(), err)
	}
	if replaced == nil {
		return nil, errors.NewWriteFailureError("replace", ref.Address(), nil)
	}
	r.logger.Debug().Str("id", id).Msg("document replaced")
	return r.decode(replaced)
}

// RemoveDocument deletes the document with the given id. A missing document
// yields false and a NotFound error.
func (r *Repository[T]) RemoveDocument(ctx context.Context, id string) (bool, error) {
	ref, err := r.documentRef(id)
	if err != nil {
		return false, err
	}
	if err := r.backend.DeleteDocument(ctx, ref); err != nil {
		return false, err
	}
	r.logger.Debug().Str("id", id).Msg("document removed")
	return true, nil
}

// Close forgets the cached descriptors. The shared connection stays open.
func (r *Repository[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.db = nil
	r.coll = nil
	return nil
}

func (r *Repository[T]) decode(doc storagemodels.Document) (*T, error) {
	out := new(T)
	if err := storagemodels.UnmarshalDocument(doc, out); err != nil {
		return nil, err
	}
	return out, nil
}

// classifyWrite keeps taxonomy errors as they are and reports anything else as
// a write failure at address.
func classifyWrite(op, address string, err error) error {
	switch {
	case errors.IsAlreadyExists(err),
		errors.IsNotFound(err),
		errors.IsValidationError(err),
		errors.IsUnknownEndpoint(err),
		errors.IsConditionFailed(err),
		errors.IsTransportFailure(err),
		errors.IsWriteFailure(err):
		return err
	}
	return errors.NewWriteFailureError(op, address, fmt.Errorf("unexpected store response: %w", err))
}

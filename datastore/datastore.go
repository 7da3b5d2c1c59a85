/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"time"

	"github.com/suparena/docstore/storagemodels"
)

// Backend is the connection-level contract every document store implements.
// Backends are safe for concurrent use once constructed.
type Backend interface {
	// Kind names the backend, e.g. "dynamodb" or "mongodb".
	Kind() string

	GetOrCreateDatabase(ctx context.Context, database string) (*storagemodels.DatabaseDescriptor, error)
	DeleteDatabase(ctx context.Context, database string) error

	GetOrCreateCollection(ctx context.Context, database, collection string) (*storagemodels.CollectionDescriptor, error)
	DeleteCollection(ctx context.Context, database, collection string) error

	// CreateDocument stores a new document. The returned document carries the
	// system attributes assigned by the store.
	CreateDocument(ctx context.Context, ref storagemodels.CollectionRef, doc storagemodels.Document) (storagemodels.Document, error)
	ReadDocument(ctx context.Context, ref storagemodels.DocumentRef) (storagemodels.Document, error)
	ReplaceDocument(ctx context.Context, ref storagemodels.DocumentRef, doc storagemodels.Document) (storagemodels.Document, error)
	DeleteDocument(ctx context.Context, ref storagemodels.DocumentRef) error

	// QueryDocuments returns one page of matching documents.
	QueryDocuments(ctx context.Context, ref storagemodels.CollectionRef, params *storagemodels.QueryParams) (*storagemodels.Page, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Consistency levels understood by the backends that support tunable reads.
const (
	ConsistencyStrong   = "Strong"
	ConsistencySession  = "Session"
	ConsistencyEventual = "Eventual"
)

// NoRetries disables retrying when set as MaxRetryAttempts. A zero
// MaxRetryAttempts means the default.
const NoRetries = -1

// ConnectionPolicy tunes how a backend talks to the store.
type ConnectionPolicy struct {
	RequestTimeout   time.Duration `yaml:"requestTimeout"`
	MaxRetryAttempts int           `yaml:"maxRetryAttempts"`
	RetryBackoff     time.Duration `yaml:"retryBackoff"`
	ConsistencyLevel string        `yaml:"consistencyLevel"`
	Region           string        `yaml:"region"`
	PageSize         int32         `yaml:"pageSize"`
}

// DefaultConnectionPolicy returns the policy used when none is supplied.
func DefaultConnectionPolicy() ConnectionPolicy {
	return ConnectionPolicy{
		RequestTimeout:   30 * time.Second,
		MaxRetryAttempts: 3,
		RetryBackoff:     200 * time.Millisecond,
		ConsistencyLevel: ConsistencySession,
		PageSize:         100,
	}
}

// WithDefaults fills zero fields from DefaultConnectionPolicy.
func (p ConnectionPolicy) WithDefaults() ConnectionPolicy {
	d := DefaultConnectionPolicy()
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = d.RequestTimeout
	}
	if p.MaxRetryAttempts == 0 {
		p.MaxRetryAttempts = d.MaxRetryAttempts
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = d.RetryBackoff
	}
	if p.ConsistencyLevel == "" {
		p.ConsistencyLevel = d.ConsistencyLevel
	}
	if p.PageSize <= 0 {
		p.PageSize = d.PageSize
	}
	return p
}

// Retries returns how many times a failed call may be repeated.
func (p ConnectionPolicy) Retries() int {
	if p.MaxRetryAttempts < 0 {
		return 0
	}
	return p.MaxRetryAttempts
}

// PageSizeOr returns requested when positive, otherwise the policy page size.
func (p ConnectionPolicy) PageSizeOr(requested int32) int32 {
	if requested > 0 {
		return requested
	}
	if p.PageSize > 0 {
		return p.PageSize
	}
	return DefaultConnectionPolicy().PageSize
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/registry"
)

type repositoryKey struct {
	typ        reflect.Type
	database   string
	collection string
}

// Repositories hands out one Repository per (type, database, collection), all
// sharing the provider's connection.
type Repositories struct {
	provider *ClientProvider
	opts     []RepositoryOption

	mu    sync.Mutex
	repos map[repositoryKey]any
}

// NewRepositories creates an empty repository set over provider.
func NewRepositories(provider *ClientProvider, opts ...RepositoryOption) *Repositories {
	return &Repositories{
		provider: provider,
		opts:     opts,
		repos:    make(map[repositoryKey]any),
	}
}

// GetRepository returns the repository for T bound to (database, collection),
// creating it on first use.
func GetRepository[T any](ctx context.Context, set *Repositories, database, collection string) (*Repository[T], error) {
	key := repositoryKey{typ: reflect.TypeOf((*T)(nil)).Elem(), database: database, collection: collection}

	set.mu.Lock()
	defer set.mu.Unlock()

	if existing, ok := set.repos[key]; ok {
		return existing.(*Repository[T]), nil
	}
	repo, err := NewRepository[T](ctx, set.provider, database, collection, set.opts...)
	if err != nil {
		return nil, err
	}
	set.repos[key] = repo
	return repo, nil
}

// GetBoundRepository returns the repository for T at the collection registered
// with registry.Bind.
func GetBoundRepository[T any](ctx context.Context, set *Repositories) (*Repository[T], error) {
	b, ok := registry.BindingFor[T]()
	if !ok {
		var zero T
		return nil, errors.NewInvalidConfigurationError("binding", fmt.Sprintf("no collection bound for %T", zero))
	}
	return GetRepository[T](ctx, set, b.Database, b.Collection)
}

// RemoveRepository closes and forgets the repository for T at (database, collection).
func RemoveRepository[T any](set *Repositories, database, collection string) error {
	key := repositoryKey{typ: reflect.TypeOf((*T)(nil)).Elem(), database: database, collection: collection}

	set.mu.Lock()
	defer set.mu.Unlock()

	existing, ok := set.repos[key]
	if !ok {
		return errors.NewNotFoundError("repository", fmt.Sprintf("%s %s/%s", key.typ, database, collection))
	}
	delete(set.repos, key)
	return existing.(interface{ Close() error }).Close()
}

// List returns "type database/collection" for every open repository.
func (s *Repositories) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.repos))
	for k := range s.repos {
		keys = append(keys, fmt.Sprintf("%s %s/%s", k.typ, k.database, k.collection))
	}
	sort.Strings(keys)
	return keys
}

// Close clears the cached descriptors of every repository and empties the set.
func (s *Repositories) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, repo := range s.repos {
		_ = repo.(interface{ Close() error }).Close()
		delete(s.repos, k)
	}
	return nil
}

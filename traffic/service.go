/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package traffic

import (
	"context"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/suparena/docstore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
	"github.com/suparena/docstore/storagemodels"
)

// Service reads and records Traffic through a shared client provider.
type Service struct {
	repos    *docstore.Repositories
	logger   zerolog.Logger
	pageSize int32
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPageSize sets the number of documents fetched per query page.
func WithPageSize(size int32) Option {
	return func(s *Service) {
		s.pageSize = size
	}
}

// NewService creates a Service over provider.
func NewService(provider *docstore.ClientProvider, opts ...Option) *Service {
	s := &Service{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "traffic").Logger()
	s.repos = docstore.NewRepositories(provider, docstore.WithRepositoryLogger(s.logger))
	return s
}

// repository returns the bound Traffic repository with its collection resolved.
func (s *Service) repository(ctx context.Context) (*docstore.Repository[Traffic], error) {
	repo, err := docstore.GetBoundRepository[Traffic](ctx, s.repos)
	if err != nil {
		return nil, err
	}
	if _, err := repo.GetOrCreateCollection(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// Record stores t. A missing RequestID is generated and the application-id
// header, when present, must be a UUID and is stored in lowercase.
func (s *Service) Record(ctx context.Context, t Traffic) (*Traffic, error) {
	if t.RequestID == "" {
		t.RequestID = strfmt.UUID(uuid.NewString())
	} else if !strfmt.IsUUID(string(t.RequestID)) {
		return nil, errors.NewValidationError("RequestId", "not a UUID: "+string(t.RequestID))
	}
	if appID, ok := t.Headers[ApplicationIDHeader]; ok {
		normalized, err := normalizeApplicationID(appID)
		if err != nil {
			return nil, err
		}
		headers := make(map[string]string, len(t.Headers))
		for k, v := range t.Headers {
			headers[k] = v
		}
		headers[ApplicationIDHeader] = normalized
		t.Headers = headers
	}
	repo, err := s.repository(ctx)
	if err != nil {
		return nil, err
	}
	return repo.AddDocument(ctx, t)
}

// Get reads one Traffic document by id.
func (s *Service) Get(ctx context.Context, id string) (*Traffic, error) {
	repo, err := s.repository(ctx)
	if err != nil {
		return nil, err
	}
	return repo.GetDocument(ctx, id)
}

// GetAllTraffic returns every Traffic document whose application-id header
// equals applicationID, reading the query page by page.
func (s *Service) GetAllTraffic(ctx context.Context, applicationID string) ([]Traffic, error) {
	appID, err := normalizeApplicationID(applicationID)
	if err != nil {
		return nil, err
	}
	repo, err := s.repository(ctx)
	if err != nil {
		return nil, err
	}

	results := []Traffic{}
	it := repo.Query(query.HeaderEquals(ApplicationIDHeader, appID), docstore.WithPageSize(s.pageSize))
	pages := 0
	for it.HasMoreResults() {
		page, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		pages++
		results = append(results, page...)
	}

	s.logger.Debug().
		Str("applicationId", appID).
		Int("pages", pages).
		Int("count", len(results)).
		Msg("traffic query complete")
	return results, nil
}

// GetTrafficIDs returns the ids of the Traffic documents recorded for applicationID.
func (s *Service) GetTrafficIDs(ctx context.Context, applicationID string) ([]string, error) {
	appID, err := normalizeApplicationID(applicationID)
	if err != nil {
		return nil, err
	}
	repo, err := s.repository(ctx)
	if err != nil {
		return nil, err
	}

	var streamErr error
	ids := []string{}
	stream := repo.Stream(ctx, query.HeaderEquals(ApplicationIDHeader, appID), storagemodels.WithPageSize(s.pageSize))
	for result := range stream {
		if result.Error != nil {
			if streamErr == nil {
				streamErr = result.Error
			}
			continue
		}
		ids = append(ids, result.Item.ID)
	}
	if streamErr != nil {
		return nil, streamErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Close releases the service's repositories. The provider's connection stays open.
func (s *Service) Close() error {
	return s.repos.Close()
}

// normalizeApplicationID accepts any UUID spelling and returns the lowercase
// form used when the header is recorded.
func normalizeApplicationID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !strfmt.IsUUID(id) {
		return "", errors.NewValidationError("applicationId", "not a UUID: "+id)
	}
	return strings.ToLower(id), nil
}

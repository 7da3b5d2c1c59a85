/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/suparena/docstore/connect"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
)

// Connector builds a backend for an endpoint. connect.Open is the default.
type Connector func(ctx context.Context, endpoint, key string, policy datastore.ConnectionPolicy, logger zerolog.Logger) (datastore.Backend, error)

// ClientProvider owns the single connection handle shared by every repository.
type ClientProvider struct {
	endpoint  string
	key       string
	policy    datastore.ConnectionPolicy
	connector Connector
	logger    zerolog.Logger

	mu     sync.Mutex
	client datastore.Backend
}

// ProviderOption configures a ClientProvider.
type ProviderOption func(*ClientProvider)

// WithConnectionPolicy sets the policy passed to the backend on connect.
func WithConnectionPolicy(policy datastore.ConnectionPolicy) ProviderOption {
	return func(p *ClientProvider) {
		p.policy = policy
	}
}

// WithConnector replaces the function used to build backends.
func WithConnector(connector Connector) ProviderOption {
	return func(p *ClientProvider) {
		p.connector = connector
	}
}

// WithLogger sets the logger handed to backends and repositories.
func WithLogger(logger zerolog.Logger) ProviderOption {
	return func(p *ClientProvider) {
		p.logger = logger
	}
}

// NewClientProvider validates the endpoint and key. No connection is made until
// Client is first called.
func NewClientProvider(endpoint, key string, opts ...ProviderOption) (*ClientProvider, error) {
	if err := validateCredentials(endpoint, key); err != nil {
		return nil, err
	}
	p := &ClientProvider{
		endpoint:  endpoint,
		key:       key,
		policy:    datastore.DefaultConnectionPolicy(),
		connector: connect.Open,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.policy = p.policy.WithDefaults()
	return p, nil
}

// Client returns the cached handle, connecting on first use. Concurrent first
// calls share one connection attempt.
func (p *ClientProvider) Client(ctx context.Context) (datastore.Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := p.connector(ctx, p.endpoint, p.key, p.policy, p.logger)
	if err != nil {
		return nil, err
	}
	p.logger.Info().Str("backend", client.Kind()).Msg("document store client connected")
	p.client = client
	return client, nil
}

// Connect builds a fresh, uncached handle for the given endpoint and key. A nil
// policy uses the provider's policy.
func (p *ClientProvider) Connect(ctx context.Context, endpoint, key string, policy *datastore.ConnectionPolicy) (datastore.Backend, error) {
	if err := validateCredentials(endpoint, key); err != nil {
		return nil, err
	}
	effective := p.policy
	if policy != nil {
		effective = policy.WithDefaults()
	}
	return p.connector(ctx, endpoint, key, effective, p.logger)
}

// Reset closes and forgets the cached handle; the next Client call reconnects.
func (p *ClientProvider) Reset(ctx context.Context) error {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()

	if client == nil {
		return nil
	}
	p.logger.Info().Str("backend", client.Kind()).Msg("document store client reset")
	return client.Close(ctx)
}

// Policy returns the effective connection policy.
func (p *ClientProvider) Policy() datastore.ConnectionPolicy {
	return p.policy
}

// Logger returns the provider's logger.
func (p *ClientProvider) Logger() zerolog.Logger {
	return p.logger
}

func validateCredentials(endpoint, key string) error {
	if strings.TrimSpace(endpoint) == "" {
		return errors.NewInvalidConfigurationError("endpoint", "must not be blank")
	}
	if strings.TrimSpace(key) == "" {
		return errors.NewInvalidConfigurationError("key", "must not be blank")
	}
	return nil
}

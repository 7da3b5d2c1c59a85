/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package connect

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/datastore/ddb"
	"github.com/suparena/docstore/datastore/mock"
	docmongo "github.com/suparena/docstore/datastore/mongo"
	docredis "github.com/suparena/docstore/datastore/redis"
	"github.com/suparena/docstore/errors"
)

// Endpoint schemes understood by Open.
const (
	SchemeDynamoDB      = "dynamodb"
	SchemeDynamoDBHTTP  = "dynamodb+http"
	SchemeDynamoDBHTTPS = "dynamodb+https"
	SchemeMongoDB       = "mongodb"
	SchemeMongoDBSRV    = "mongodb+srv"
	SchemeRedis         = "redis"
	SchemeRedisTLS      = "rediss"
	SchemeMemory        = "memory"
)

// localRegion is used for dynamodb+http(s) endpoints that name no region.
const localRegion = "us-east-1"

// Open connects to the store named by endpoint. The scheme selects the backend
// and decides how key is interpreted.
func Open(ctx context.Context, endpoint, key string, policy datastore.ConnectionPolicy, logger zerolog.Logger) (datastore.Backend, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, errors.NewInvalidConfigurationError("endpoint", err.Error())
	}
	policy = policy.WithDefaults()
	scheme := strings.ToLower(u.Scheme)

	logger = logger.With().Str("backend", scheme).Logger()

	switch scheme {
	case SchemeDynamoDB, SchemeDynamoDBHTTP, SchemeDynamoDBHTTPS:
		return openDynamoDB(ctx, u, key, policy, logger)
	case SchemeMongoDB, SchemeMongoDBSRV:
		client, err := docmongo.NewClient(ctx, docmongo.ClientOptions{URI: endpoint, Password: key, Policy: policy}, logger)
		if err != nil {
			return nil, err
		}
		return docmongo.New(client, logger), nil
	case SchemeRedis, SchemeRedisTLS:
		client, err := docredis.NewClient(ctx, docredis.ClientOptions{URL: endpoint, Password: key, Policy: policy}, logger)
		if err != nil {
			return nil, err
		}
		return docredis.New(client, logger), nil
	case SchemeMemory:
		logger.Debug().Msg("using in-process store")
		return mock.New(), nil
	}
	return nil, errors.NewInvalidConfigurationError("endpoint", fmt.Sprintf("unsupported scheme %q", u.Scheme))
}

// openDynamoDB reads the region from the host of dynamodb://<region>, or from
// the region query parameter of dynamodb+http(s)://host:port?region=r. The key
// is ACCESS_KEY_ID:SECRET_ACCESS_KEY.
func openDynamoDB(ctx context.Context, u *url.URL, key string, policy datastore.ConnectionPolicy, logger zerolog.Logger) (datastore.Backend, error) {
	accessKey, secret, ok := strings.Cut(key, ":")
	if !ok || strings.TrimSpace(accessKey) == "" || strings.TrimSpace(secret) == "" {
		return nil, errors.NewInvalidConfigurationError("key", "expected ACCESS_KEY_ID:SECRET_ACCESS_KEY")
	}

	opts := ddb.ClientOptions{
		Region:          policy.Region,
		AccessKeyID:     accessKey,
		SecretAccessKey: secret,
	}
	if region := u.Query().Get("region"); region != "" {
		opts.Region = region
	}

	if u.Scheme == SchemeDynamoDB {
		if u.Host != "" {
			opts.Region = u.Host
		}
		if opts.Region == "" {
			return nil, errors.NewInvalidConfigurationError("endpoint", "dynamodb endpoint must name a region, e.g. dynamodb://us-west-2")
		}
	} else {
		if u.Host == "" {
			return nil, errors.NewInvalidConfigurationError("endpoint", "missing host")
		}
		opts.BaseEndpoint = strings.TrimPrefix(u.Scheme, "dynamodb+") + "://" + u.Host
		if opts.Region == "" {
			opts.Region = localRegion
		}
	}

	client, err := ddb.NewDynamoDBClient(ctx, opts, logger)
	if err != nil {
		return nil, errors.NewInvalidConfigurationError("endpoint", err.Error())
	}
	return ddb.New(client, ddb.WithPolicy(policy), ddb.WithLogger(logger)), nil
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package redis

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
	"github.com/suparena/docstore/storagemodels"
)

const (
	keyPrefix = "docstore:"

	// scanBatch is the number of ids read per ZRANGEBYLEX while filtering.
	scanBatch = 100
)

var (
	// createScript inserts a document only if the collection exists and the id is free.
	// Returns -1 for a missing collection, 0 for a taken id, 1 on success.
	createScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then return -1 end
if redis.call('HSETNX', KEYS[2], ARGV[2], ARGV[3]) == 0 then return 0 end
redis.call('ZADD', KEYS[3], 0, ARGV[2])
return 1
`)

	// replaceScript overwrites an existing document. Returns 0 when it is missing.
	replaceScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

	// deleteScript removes a document and its index entry. Returns the number removed.
	deleteScript = redis.NewScript(`
local n = redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return n
`)
)

// ClientOptions describes how to reach Redis.
type ClientOptions struct {
	// URL is a redis:// or rediss:// URL.
	URL      string
	Password string
	Policy   datastore.ConnectionPolicy
}

// NewClient parses the URL, applies the password and timeouts and verifies the connection.
func NewClient(ctx context.Context, opts ClientOptions, logger zerolog.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, errors.NewInvalidConfigurationError("endpoint", err.Error())
	}
	if opts.Password != "" {
		redisOpts.Password = opts.Password
	}
	if opts.Policy.RequestTimeout > 0 {
		redisOpts.ReadTimeout = opts.Policy.RequestTimeout
		redisOpts.WriteTimeout = opts.Policy.RequestTimeout
	}

	client := redis.NewClient(redisOpts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewTransportFailureError("Ping", err)
	}

	logger.Debug().Str("addr", redisOpts.Addr).Int("db", redisOpts.DB).Msg("Redis client initialized")
	return client, nil
}

// Backend implements datastore.Backend on Redis. Databases and collections are
// sets of names, each collection keeps its documents in a hash and its ids in
// a sorted set read with ZRANGEBYLEX for stable paging.
type Backend struct {
	client redis.UniversalClient
	logger zerolog.Logger
	now    func() time.Time
}

// New wraps a connected client.
func New(client redis.UniversalClient, logger zerolog.Logger) *Backend {
	return &Backend{client: client, logger: logger, now: time.Now}
}

func (b *Backend) Kind() string { return "redis" }

// Names may not contain "/", so it terminates every name in a key.

func databasesKey() string { return keyPrefix + "databases" }

func databaseMetaKey(db string) string { return keyPrefix + "db:" + db + "/meta" }

func collectionsKey(db string) string { return keyPrefix + "db:" + db + "/collections" }

func collectionKey(ref storagemodels.CollectionRef, suffix string) string {
	return keyPrefix + "coll:" + ref.Database + "/" + ref.Collection + "/" + suffix
}

// createdAt sets the creation time of a meta hash once and returns it.
func (b *Backend) createdAt(ctx context.Context, metaKey string) (time.Time, error) {
	if err := b.client.HSetNX(ctx, metaKey, "createdAt", b.now().Unix()).Err(); err != nil {
		return time.Time{}, classify("HSETNX", err)
	}
	secs, err := b.client.HGet(ctx, metaKey, "createdAt").Int64()
	if err != nil {
		return time.Time{}, classify("HGET", err)
	}
	return time.Unix(secs, 0), nil
}

func (b *Backend) GetOrCreateDatabase(ctx context.Context, database string) (*storagemodels.DatabaseDescriptor, error) {
	added, err := b.client.SAdd(ctx, databasesKey(), database).Result()
	if err != nil {
		return nil, classify("SADD", err)
	}
	created, err := b.createdAt(ctx, databaseMetaKey(database))
	if err != nil {
		return nil, err
	}
	if added > 0 {
		b.logger.Info().Str("database", database).Msg("created database")
	}
	return &storagemodels.DatabaseDescriptor{
		ID:        database,
		SelfLink:  storagemodels.DatabaseAddress(database),
		CreatedAt: created,
	}, nil
}

func (b *Backend) DeleteDatabase(ctx context.Context, database string) error {
	removed, err := b.client.SRem(ctx, databasesKey(), database).Result()
	if err != nil {
		return classify("SREM", err)
	}
	if removed == 0 {
		return errors.NewNotFoundError("database", storagemodels.DatabaseAddress(database))
	}

	collections, err := b.client.SMembers(ctx, collectionsKey(database)).Result()
	if err != nil {
		return classify("SMEMBERS", err)
	}
	keys := []string{databaseMetaKey(database), collectionsKey(database)}
	for _, coll := range collections {
		ref := storagemodels.CollectionRef{Database: database, Collection: coll}
		keys = append(keys, collectionKey(ref, "meta"), collectionKey(ref, "docs"), collectionKey(ref, "ids"))
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return classify("DEL", err)
	}
	b.logger.Info().Str("database", database).Int("collections", len(collections)).Msg("deleted database")
	return nil
}

func (b *Backend) GetOrCreateCollection(ctx context.Context, database, collection string) (*storagemodels.CollectionDescriptor, error) {
	ref, err := storagemodels.NewCollectionRef(database, collection)
	if err != nil {
		return nil, err
	}
	exists, err := b.client.SIsMember(ctx, databasesKey(), database).Result()
	if err != nil {
		return nil, classify("SISMEMBER", err)
	}
	if !exists {
		return nil, errors.NewNotFoundError("database", ref.DatabaseAddress())
	}

	added, err := b.client.SAdd(ctx, collectionsKey(database), collection).Result()
	if err != nil {
		return nil, classify("SADD", err)
	}
	created, err := b.createdAt(ctx, collectionKey(ref, "meta"))
	if err != nil {
		return nil, err
	}
	if added > 0 {
		b.logger.Info().Str("collection", ref.Address()).Msg("created collection")
	}
	return &storagemodels.CollectionDescriptor{
		ID:         collection,
		DatabaseID: database,
		SelfLink:   ref.Address(),
		CreatedAt:  created,
	}, nil
}

func (b *Backend) DeleteCollection(ctx context.Context, database, collection string) error {
	ref, err := storagemodels.NewCollectionRef(database, collection)
	if err != nil {
		return err
	}
	removed, err := b.client.SRem(ctx, collectionsKey(database), collection).Result()
	if err != nil {
		return classify("SREM", err)
	}
	if removed == 0 {
		return errors.NewNotFoundError("collection", ref.Address())
	}
	if err := b.client.Del(ctx, collectionKey(ref, "meta"), collectionKey(ref, "docs"), collectionKey(ref, "ids")).Err(); err != nil {
		return classify("DEL", err)
	}
	b.logger.Info().Str("collection", ref.Address()).Msg("deleted collection")
	return nil
}

func (b *Backend) CreateDocument(ctx context.Context, ref storagemodels.CollectionRef, doc storagemodels.Document) (storagemodels.Document, error) {
	id, ok := storagemodels.StringAttr(doc, storagemodels.AttrID)
	if !ok || id == "" {
		id = uuid.NewString()
	}
	docRef, err := ref.Document(id)
	if err != nil {
		return nil, err
	}
	stored := b.stamp(docRef, doc)
	data, err := encodeDocument(stored)
	if err != nil {
		return nil, errors.NewValidationError("document", err.Error())
	}

	res, err := createScript.Run(ctx, b.client,
		[]string{collectionsKey(ref.Database), collectionKey(ref, "docs"), collectionKey(ref, "ids")},
		ref.Collection, id, data,
	).Int()
	if err != nil {
		return nil, classify("EVAL", err)
	}
	switch res {
	case -1:
		return nil, errors.NewNotFoundError("collection", ref.Address())
	case 0:
		return nil, errors.NewAlreadyExistsError("document", docRef.Address())
	}
	return stored, nil
}

func (b *Backend) ReadDocument(ctx context.Context, ref storagemodels.DocumentRef) (storagemodels.Document, error) {
	data, err := b.client.HGet(ctx, collectionKey(ref.CollectionRef, "docs"), ref.ID).Bytes()
	if err == redis.Nil {
		return nil, errors.NewNotFoundError("document", ref.Address())
	}
	if err != nil {
		return nil, classify("HGET", err)
	}
	return decodeDocument(data)
}

func (b *Backend) ReplaceDocument(ctx context.Context, ref storagemodels.DocumentRef, doc storagemodels.Document) (storagemodels.Document, error) {
	stored := b.stamp(ref, doc)
	data, err := encodeDocument(stored)
	if err != nil {
		return nil, errors.NewValidationError("document", err.Error())
	}
	res, err := replaceScript.Run(ctx, b.client, []string{collectionKey(ref.CollectionRef, "docs")}, ref.ID, data).Int()
	if err != nil {
		return nil, classify("EVAL", err)
	}
	if res == 0 {
		return nil, errors.NewNotFoundError("document", ref.Address())
	}
	return stored, nil
}

func (b *Backend) DeleteDocument(ctx context.Context, ref storagemodels.DocumentRef) error {
	res, err := deleteScript.Run(ctx, b.client,
		[]string{collectionKey(ref.CollectionRef, "docs"), collectionKey(ref.CollectionRef, "ids")},
		ref.ID,
	).Int()
	if err != nil {
		return classify("EVAL", err)
	}
	if res == 0 {
		return errors.NewNotFoundError("document", ref.Address())
	}
	return nil
}

// QueryDocuments walks the id index in lexical order, evaluating the predicate
// in process. The continuation token is the last id returned and is only set
// when at least one further match exists.
func (b *Backend) QueryDocuments(ctx context.Context, ref storagemodels.CollectionRef, params *storagemodels.QueryParams) (*storagemodels.Page, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Raw != nil {
		return nil, errors.NewValidationError("query", "raw queries are not supported by the redis backend")
	}
	after, err := DecodeToken(params.ContinuationToken)
	if err != nil {
		return nil, err
	}

	exists, err := b.client.SIsMember(ctx, collectionsKey(ref.Database), ref.Collection).Result()
	if err != nil {
		return nil, classify("SISMEMBER", err)
	}
	if !exists {
		return nil, errors.NewNotFoundError("collection", ref.Address())
	}

	limit := int(params.PageSize)
	if limit <= 0 {
		limit = int(datastore.DefaultConnectionPolicy().PageSize)
	}

	page := &storagemodels.Page{}
	start := "-"
	if after != "" {
		start = "(" + after
	}
	for {
		ids, err := b.client.ZRangeByLex(ctx, collectionKey(ref, "ids"), &redis.ZRangeBy{
			Min: start, Max: "+", Count: scanBatch,
		}).Result()
		if err != nil {
			return nil, classify("ZRANGEBYLEX", err)
		}
		if len(ids) == 0 {
			return page, nil
		}

		values, err := b.client.HMGet(ctx, collectionKey(ref, "docs"), ids...).Result()
		if err != nil {
			return nil, classify("HMGET", err)
		}
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				// Deleted between the two reads.
				continue
			}
			doc, err := decodeDocument([]byte(s))
			if err != nil {
				return nil, err
			}
			matched, err := query.Match(params.Filter, doc)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
			if len(page.Documents) == limit {
				last, _ := storagemodels.StringAttr(page.Documents[limit-1], storagemodels.AttrID)
				page.ContinuationToken = EncodeToken(last)
				return page, nil
			}
			page.Documents = append(page.Documents, doc)
		}
		if len(ids) < scanBatch {
			return page, nil
		}
		start = "(" + ids[len(ids)-1]
	}
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return errors.NewTransportFailureError("Ping", err)
	}
	return nil
}

// Close closes the client.
func (b *Backend) Close(ctx context.Context) error {
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

func (b *Backend) stamp(ref storagemodels.DocumentRef, doc storagemodels.Document) storagemodels.Document {
	out := storagemodels.CloneDocument(doc)
	if out == nil {
		out = make(storagemodels.Document)
	}
	out[storagemodels.AttrID] = &types.AttributeValueMemberS{Value: ref.ID}
	out[storagemodels.AttrSelf] = &types.AttributeValueMemberS{Value: ref.Address()}
	out[storagemodels.AttrETag] = &types.AttributeValueMemberS{Value: uuid.NewString()}
	out[storagemodels.AttrTS] = &types.AttributeValueMemberN{Value: strconv.FormatInt(b.now().Unix(), 10)}
	return out
}

// EncodeToken returns the continuation token that resumes after id.
func EncodeToken(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// DecodeToken reverses EncodeToken. The empty token decodes to "".
func DecodeToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) == 0 {
		return "", errors.NewValidationError("continuationToken", "malformed continuation token")
	}
	return string(raw), nil
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) ||
		stderrors.Is(err, redis.ErrClosed) ||
		stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(err, context.Canceled) {
		return errors.NewTransportFailureError(op, err)
	}
	return fmt.Errorf("redis %s failed: %w", op, err)
}

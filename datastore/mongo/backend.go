/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// MetaCollection holds one marker per database and per collection.
	MetaCollection = "_docstore"

	databaseMarkerID   = "database"
	collectionMarkerID = "collection:"

	// codeNamespaceExists is returned by create on an existing collection.
	codeNamespaceExists = 48
)

// ClientOptions describes how to reach MongoDB.
type ClientOptions struct {
	URI string
	// Password authenticates the user named in the URI. Ignored when the URI
	// carries no user.
	Password string
	Policy   datastore.ConnectionPolicy
}

// NewClient connects to MongoDB and verifies the connection.
func NewClient(ctx context.Context, opts ClientOptions, logger zerolog.Logger) (*mongo.Client, error) {
	u, err := url.Parse(opts.URI)
	if err != nil {
		return nil, errors.NewInvalidConfigurationError("endpoint", err.Error())
	}

	clientOpts := options.Client().ApplyURI(opts.URI)
	if u.User != nil && u.User.Username() != "" && opts.Password != "" {
		cred := options.Credential{Username: u.User.Username(), Password: opts.Password}
		if clientOpts.Auth != nil {
			cred.AuthSource = clientOpts.Auth.AuthSource
			cred.AuthMechanism = clientOpts.Auth.AuthMechanism
		}
		clientOpts.SetAuth(cred)
	}
	if opts.Policy.RequestTimeout > 0 {
		clientOpts.SetTimeout(opts.Policy.RequestTimeout)
	}
	if opts.Policy.ConsistencyLevel == datastore.ConsistencyStrong {
		clientOpts.SetReadConcern(readconcern.Majority())
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.NewTransportFailureError("Connect", err)
	}

	// Verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.NewTransportFailureError("Ping", err)
	}

	logger.Debug().Str("host", u.Host).Msg("MongoDB client initialized")
	return client, nil
}

// Backend implements datastore.Backend on MongoDB.
type Backend struct {
	client *mongo.Client
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	known map[string]struct{}
}

// New wraps a connected client.
func New(client *mongo.Client, logger zerolog.Logger) *Backend {
	return &Backend{
		client: client,
		logger: logger,
		now:    time.Now,
		known:  make(map[string]struct{}),
	}
}

func (b *Backend) Kind() string { return "mongodb" }

func (b *Backend) meta(database string) *mongo.Collection {
	return b.client.Database(database).Collection(MetaCollection)
}

// upsertMarker records id in the meta collection once and returns its creation time.
func (b *Backend) upsertMarker(ctx context.Context, database, id string) (time.Time, error) {
	now := b.now().UTC().Truncate(time.Millisecond)
	_, err := b.meta(database).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "createdAt", Value: now}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return time.Time{}, classify("UpsertMarker", err)
	}

	var marker struct {
		CreatedAt time.Time `bson:"createdAt"`
	}
	if err := b.meta(database).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&marker); err != nil {
		return time.Time{}, classify("FindMarker", err)
	}
	return marker.CreatedAt, nil
}

func (b *Backend) GetOrCreateDatabase(ctx context.Context, database string) (*storagemodels.DatabaseDescriptor, error) {
	if err := validateName("database", database); err != nil {
		return nil, err
	}
	createdAt, err := b.upsertMarker(ctx, database, databaseMarkerID)
	if err != nil {
		return nil, err
	}
	return &storagemodels.DatabaseDescriptor{
		ID:        database,
		SelfLink:  storagemodels.DatabaseAddress(database),
		CreatedAt: createdAt,
	}, nil
}

func (b *Backend) DeleteDatabase(ctx context.Context, database string) error {
	names, err := b.client.ListDatabaseNames(ctx, bson.D{{Key: "name", Value: database}})
	if err != nil {
		return classify("ListDatabaseNames", err)
	}
	if len(names) == 0 {
		return errors.NewNotFoundError("database", storagemodels.DatabaseAddress(database))
	}
	if err := b.client.Database(database).Drop(ctx); err != nil {
		return classify("DropDatabase", err)
	}

	b.mu.Lock()
	for key := range b.known {
		if db, _, _ := strings.Cut(key, "\x00"); db == database {
			delete(b.known, key)
		}
	}
	b.mu.Unlock()
	b.logger.Info().Str("database", database).Msg("dropped database")
	return nil
}

func (b *Backend) databaseExists(ctx context.Context, database string) (bool, error) {
	names, err := b.client.Database(database).ListCollectionNames(ctx, bson.D{{Key: "name", Value: MetaCollection}})
	if err != nil {
		return false, classify("ListCollectionNames", err)
	}
	return len(names) > 0, nil
}

func (b *Backend) GetOrCreateCollection(ctx context.Context, database, collection string) (*storagemodels.CollectionDescriptor, error) {
	ref, err := storagemodels.NewCollectionRef(database, collection)
	if err != nil {
		return nil, err
	}
	if err := validateName("collection", collection); err != nil {
		return nil, err
	}
	exists, err := b.databaseExists(ctx, database)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFoundError("database", ref.DatabaseAddress())
	}

	err = b.client.Database(database).CreateCollection(ctx, collection)
	var cmdErr mongo.CommandError
	switch {
	case err == nil:
		b.logger.Info().Str("collection", ref.Address()).Msg("created collection")
	case stderrors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists:
	default:
		return nil, classify("CreateCollection", err)
	}

	createdAt, err := b.upsertMarker(ctx, database, collectionMarkerID+collection)
	if err != nil {
		return nil, err
	}
	b.remember(ref)
	return &storagemodels.CollectionDescriptor{
		ID:         collection,
		DatabaseID: database,
		SelfLink:   ref.Address(),
		CreatedAt:  createdAt,
	}, nil
}

func (b *Backend) DeleteCollection(ctx context.Context, database, collection string) error {
	ref, err := storagemodels.NewCollectionRef(database, collection)
	if err != nil {
		return err
	}
	if err := b.requireCollection(ctx, ref); err != nil {
		return err
	}
	if err := b.client.Database(database).Collection(collection).Drop(ctx); err != nil {
		return classify("DropCollection", err)
	}
	if _, err := b.meta(database).DeleteOne(ctx, bson.D{{Key: "_id", Value: collectionMarkerID + collection}}); err != nil {
		return classify("DeleteMarker", err)
	}

	b.mu.Lock()
	delete(b.known, knownKey(ref))
	b.mu.Unlock()
	b.logger.Info().Str("collection", ref.Address()).Msg("dropped collection")
	return nil
}

// requireCollection fails with NotFound unless the collection exists. MongoDB
// would otherwise create it implicitly on first write.
func (b *Backend) requireCollection(ctx context.Context, ref storagemodels.CollectionRef) error {
	b.mu.RLock()
	_, ok := b.known[knownKey(ref)]
	b.mu.RUnlock()
	if ok {
		return nil
	}

	names, err := b.client.Database(ref.Database).ListCollectionNames(ctx, bson.D{{Key: "name", Value: ref.Collection}})
	if err != nil {
		return classify("ListCollectionNames", err)
	}
	if len(names) == 0 {
		return errors.NewNotFoundError("collection", ref.Address())
	}
	b.remember(ref)
	return nil
}

func (b *Backend) remember(ref storagemodels.CollectionRef) {
	b.mu.Lock()
	b.known[knownKey(ref)] = struct{}{}
	b.mu.Unlock()
}

func (b *Backend) collection(ref storagemodels.CollectionRef) *mongo.Collection {
	return b.client.Database(ref.Database).Collection(ref.Collection)
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
	if err := b.requireCollection(ctx, ref); err != nil {
		return nil, err
	}

	stored := b.stamp(docRef, doc)
	bdoc, err := toStored(docRef, stored)
	if err != nil {
		return nil, err
	}
	if _, err := b.collection(ref).InsertOne(ctx, bdoc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errors.NewAlreadyExistsError("document", docRef.Address())
		}
		return nil, classify("InsertOne", err)
	}
	return stored, nil
}

func (b *Backend) ReadDocument(ctx context.Context, ref storagemodels.DocumentRef) (storagemodels.Document, error) {
	var raw bson.D
	err := b.collection(ref.CollectionRef).FindOne(ctx, bson.D{{Key: "_id", Value: ref.ID}}).Decode(&raw)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.NewNotFoundError("document", ref.Address())
	}
	if err != nil {
		return nil, classify("FindOne", err)
	}
	return fromStored(raw)
}

func (b *Backend) ReplaceDocument(ctx context.Context, ref storagemodels.DocumentRef, doc storagemodels.Document) (storagemodels.Document, error) {
	stored := b.stamp(ref, doc)
	bdoc, err := toStored(ref, stored)
	if err != nil {
		return nil, err
	}
	res, err := b.collection(ref.CollectionRef).ReplaceOne(ctx, bson.D{{Key: "_id", Value: ref.ID}}, bdoc)
	if err != nil {
		return nil, classify("ReplaceOne", err)
	}
	if res.MatchedCount == 0 {
		return nil, errors.NewNotFoundError("document", ref.Address())
	}
	return stored, nil
}

func (b *Backend) DeleteDocument(ctx context.Context, ref storagemodels.DocumentRef) error {
	res, err := b.collection(ref.CollectionRef).DeleteOne(ctx, bson.D{{Key: "_id", Value: ref.ID}})
	if err != nil {
		return classify("DeleteOne", err)
	}
	if res.DeletedCount == 0 {
		return errors.NewNotFoundError("document", ref.Address())
	}
	return nil
}

// QueryDocuments pages through matches in _id order. The continuation token is
// the encoded _id of the last document returned.
func (b *Backend) QueryDocuments(ctx context.Context, ref storagemodels.CollectionRef, params *storagemodels.QueryParams) (*storagemodels.Page, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var (
		filter bson.D
		err    error
	)
	if params.Raw != nil {
		filter, err = compileRaw(params.Raw)
	} else {
		filter, err = compileFilter(params.Filter)
	}
	if err != nil {
		return nil, err
	}

	after, err := DecodeToken(params.ContinuationToken)
	if err != nil {
		return nil, err
	}
	if after != "" {
		filter = bson.D{{Key: "$and", Value: bson.A{
			filter,
			bson.D{{Key: "_id", Value: bson.D{{Key: "$gt", Value: after}}}},
		}}}
	}

	if err := b.requireCollection(ctx, ref); err != nil {
		return nil, err
	}

	limit := int64(params.PageSize)
	if limit <= 0 {
		limit = int64(datastore.DefaultConnectionPolicy().PageSize)
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(limit + 1)

	cursor, err := b.collection(ref).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, classify("Find", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var raws []bson.D
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, classify("Find", err)
	}

	page := &storagemodels.Page{Documents: make([]storagemodels.Document, 0, len(raws))}
	more := int64(len(raws)) > limit
	if more {
		raws = raws[:limit]
	}
	for _, raw := range raws {
		doc, err := fromStored(raw)
		if err != nil {
			return nil, err
		}
		page.Documents = append(page.Documents, doc)
	}
	if more {
		last, _ := storagemodels.StringAttr(page.Documents[len(page.Documents)-1], storagemodels.AttrID)
		page.ContinuationToken = EncodeToken(last)
	}
	return page, nil
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.NewTransportFailureError("Ping", err)
	}
	return nil
}

// Close disconnects the client.
func (b *Backend) Close(ctx context.Context) error {
	if err := b.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}

// stamp returns a copy of doc carrying the system attributes.
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

// toStored converts a stamped document to BSON with _id set to the document id.
func toStored(ref storagemodels.DocumentRef, doc storagemodels.Document) (bson.D, error) {
	if _, ok := doc["_id"]; ok {
		return nil, errors.NewValidationError("_id", "attribute name is reserved")
	}
	bdoc, err := toBSONDocument(doc)
	if err != nil {
		return nil, errors.NewValidationError("document", err.Error())
	}
	return append(bson.D{{Key: "_id", Value: ref.ID}}, bdoc...), nil
}

func fromStored(raw bson.D) (storagemodels.Document, error) {
	fields := make(bson.D, 0, len(raw))
	for _, e := range raw {
		if e.Key != "_id" {
			fields = append(fields, e)
		}
	}
	doc, err := fromBSONDocument(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored document: %w", err)
	}
	return doc, nil
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

func validateName(field, name string) error {
	if name == MetaCollection {
		return errors.NewValidationError(field, fmt.Sprintf("%q is reserved", name))
	}
	invalid := "$"
	if field == "database" {
		invalid = "$. "
	}
	if strings.ContainsAny(name, invalid) {
		return errors.NewValidationError(field, fmt.Sprintf("%q is not a valid MongoDB %s name", name, field))
	}
	return nil
}

func knownKey(ref storagemodels.CollectionRef) string {
	return ref.Database + "\x00" + ref.Collection
}

// classify maps driver errors onto the docstore error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) ||
		stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.NewTransportFailureError(op, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

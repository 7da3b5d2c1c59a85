/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// batchWriteLimit is the maximum number of requests in one BatchWriteItem call.
const batchWriteLimit = 25

// tableWaitTimeout bounds how long GetOrCreateDatabase waits for a new table.
const tableWaitTimeout = 2 * time.Minute

// API is the subset of the DynamoDB client used by Backend.
type API interface {
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *sdk.DeleteTableInput, optFns ...func(*sdk.Options)) (*sdk.DeleteTableOutput, error)
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	ExecuteStatement(ctx context.Context, params *sdk.ExecuteStatementInput, optFns ...func(*sdk.Options)) (*sdk.ExecuteStatementOutput, error)
	BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
	ListTables(ctx context.Context, params *sdk.ListTablesInput, optFns ...func(*sdk.Options)) (*sdk.ListTablesOutput, error)
}

// ClientOptions describes how to reach DynamoDB.
type ClientOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// BaseEndpoint overrides the service endpoint, e.g. for DynamoDB Local.
	BaseEndpoint string
}

// NewDynamoDBClient initializes a DynamoDB client using static AWS credentials.
// SDK-level retries are disabled; retrying is governed by the connection policy.
func NewDynamoDBClient(ctx context.Context, opts ClientOptions, logger zerolog.Logger) (*sdk.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
	})

	logger.Debug().
		Str("region", opts.Region).
		Str("endpoint", opts.BaseEndpoint).
		Msg("DynamoDB client initialized")
	return client, nil
}

// Backend implements datastore.Backend on DynamoDB. Each database is a table and
// each collection a partition of it.
type Backend struct {
	client API
	schema TableSchema
	policy datastore.ConnectionPolicy
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithSchema overrides DefaultTableSchema.
func WithSchema(schema TableSchema) Option {
	return func(b *Backend) { b.schema = schema }
}

// WithPolicy sets the connection policy.
func WithPolicy(policy datastore.ConnectionPolicy) Option {
	return func(b *Backend) { b.policy = policy }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Backend) { b.logger = logger }
}

// New constructs a Backend over an existing client.
func New(client API, opts ...Option) *Backend {
	b := &Backend{
		client: client,
		schema: DefaultTableSchema,
		policy: datastore.DefaultConnectionPolicy(),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (d *Backend) Kind() string { return "dynamodb" }

func (d *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.policy.RequestTimeout > 0 {
		return context.WithTimeout(ctx, d.policy.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (d *Backend) consistentRead() *bool {
	return aws.Bool(d.policy.ConsistencyLevel == datastore.ConsistencyStrong)
}

// GetOrCreateDatabase describes the table and creates it when missing. A
// concurrent creator surfaces as ResourceInUseException and is treated as success.
func (d *Backend) GetOrCreateDatabase(ctx context.Context, database string) (*storagemodels.DatabaseDescriptor, error) {
	table, err := d.schema.TableName(database)
	if err != nil {
		return nil, err
	}

	out, err := d.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)})
	switch {
	case err == nil && out.Table != nil && out.Table.TableStatus == types.TableStatusActive:
		return d.databaseDescriptor(database, out.Table), nil
	case err == nil:
		// CREATING or UPDATING; wait below.
	case isResourceNotFound(err):
		if err := d.createTable(ctx, table); err != nil {
			return nil, err
		}
	default:
		return nil, classify("DescribeTable", err)
	}

	waiter := sdk.NewTableExistsWaiter(d.client)
	desc, err := waiter.WaitForOutput(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)}, tableWaitTimeout)
	if err != nil {
		return nil, errors.NewTransportFailureError("WaitForTable", err)
	}
	return d.databaseDescriptor(database, desc.Table), nil
}

func (d *Backend) createTable(ctx context.Context, table string) error {
	_, err := d.client.CreateTable(ctx, &sdk.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(d.schema.PartitionKeyName), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(d.schema.SortKeyName), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(d.schema.PartitionKeyName), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(d.schema.SortKeyName), KeyType: types.KeyTypeRange},
		},
		BillingMode: d.schema.BillingMode,
	})
	if err != nil && !isResourceInUse(err) {
		return classify("CreateTable", err)
	}
	if err == nil {
		d.logger.Info().Str("table", table).Msg("created table")
	}
	return nil
}

func (d *Backend) databaseDescriptor(database string, table *types.TableDescription) *storagemodels.DatabaseDescriptor {
	desc := &storagemodels.DatabaseDescriptor{
		ID:       database,
		SelfLink: storagemodels.DatabaseAddress(database),
	}
	if table != nil && table.CreationDateTime != nil {
		desc.CreatedAt = *table.CreationDateTime
	}
	return desc
}

func (d *Backend) DeleteDatabase(ctx context.Context, database string) error {
	table, err := d.schema.TableName(database)
	if err != nil {
		return err
	}
	_, err = d.client.DeleteTable(ctx, &sdk.DeleteTableInput{TableName: aws.String(table)})
	if isResourceNotFound(err) {
		return errors.NewNotFoundError("database", storagemodels.DatabaseAddress(database))
	}
	if err != nil {
		return classify("DeleteTable", err)
	}
	d.logger.Info().Str("table", table).Msg("deleted table")
	return nil
}

// GetOrCreateCollection writes the collection marker item if it is absent.
func (d *Backend) GetOrCreateCollection(ctx context.Context, database, collection string) (*storagemodels.CollectionDescriptor, error) {
	ref, err := storagemodels.NewCollectionRef(database, collection)
	if err != nil {
		return nil, err
	}
	table, err := d.schema.TableName(database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	now := d.now()
	marker := d.schema.Key(d.schema.PartitionKey(collection), d.schema.MetaSortKey)
	marker[storagemodels.AttrID] = &types.AttributeValueMemberS{Value: collection}
	marker[storagemodels.AttrSelf] = &types.AttributeValueMemberS{Value: ref.Address()}
	marker[storagemodels.AttrTS] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)}

	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                aws.String(table),
		Item:                     marker,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": d.schema.PartitionKeyName},
	})
	switch {
	case err == nil:
		d.logger.Info().Str("collection", ref.Address()).Msg("created collection")
		return d.collectionDescriptor(ref, now), nil
	case isConditionFailed(err):
	case isResourceNotFound(err):
		return nil, errors.NewNotFoundError("database", ref.DatabaseAddress())
	default:
		return nil, classify("PutItem", err)
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(table),
		Key:            d.schema.Key(d.schema.PartitionKey(collection), d.schema.MetaSortKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("GetItem", err)
	}
	createdAt := now
	if ts, ok := out.Item[storagemodels.AttrTS].(*types.AttributeValueMemberN); ok {
		if secs, err := strconv.ParseInt(ts.Value, 10, 64); err == nil {
			createdAt = time.Unix(secs, 0)
		}
	}
	return d.collectionDescriptor(ref, createdAt), nil
}

func (d *Backend) collectionDescriptor(ref storagemodels.CollectionRef, createdAt time.Time) *storagemodels.CollectionDescriptor {
	return &storagemodels.CollectionDescriptor{
		ID:         ref.Collection,
		DatabaseID: ref.Database,
		SelfLink:   ref.Address(),
		CreatedAt:  createdAt,
	}
}

// DeleteCollection removes every item of the collection partition, marker included.
func (d *Backend) DeleteCollection(ctx context.Context, database, collection string) error {
	ref, err := storagemodels.NewCollectionRef(database, collection)
	if err != nil {
		return err
	}
	table, err := d.schema.TableName(database)
	if err != nil {
		return err
	}

	input := &sdk.QueryInput{
		TableName:                aws.String(table),
		KeyConditionExpression:   aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{"#pk": d.schema.PartitionKeyName, "#sk": d.schema.SortKeyName},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: d.schema.PartitionKey(collection)},
		},
		ProjectionExpression: aws.String("#pk, #sk"),
		ConsistentRead:       aws.Bool(true),
	}

	deleted := 0
	for {
		out, err := d.client.Query(ctx, input)
		if isResourceNotFound(err) {
			return errors.NewNotFoundError("database", ref.DatabaseAddress())
		}
		if err != nil {
			return classify("Query", err)
		}
		if err := d.batchDelete(ctx, table, out.Items); err != nil {
			return err
		}
		deleted += len(out.Items)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	if deleted == 0 {
		return errors.NewNotFoundError("collection", ref.Address())
	}
	d.logger.Info().Str("collection", ref.Address()).Int("items", deleted).Msg("deleted collection")
	return nil
}

func (d *Backend) batchDelete(ctx context.Context, table string, keys []map[string]types.AttributeValue) error {
	for start := 0; start < len(keys); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(keys))
		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
		}

		pending := map[string][]types.WriteRequest{table: requests}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt > d.policy.Retries() {
				return errors.NewTransportFailureError("BatchWriteItem", fmt.Errorf("%d unprocessed deletes", len(pending[table])))
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return errors.NewTransportFailureError("BatchWriteItem", ctx.Err())
				case <-time.After(time.Duration(attempt) * d.policy.RetryBackoff):
				}
			}
			out, err := d.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return classify("BatchWriteItem", err)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

// CreateDocument puts a new item in the same transaction as a check that the
// collection marker exists. A missing marker is NotFound, a taken id AlreadyExists.
func (d *Backend) CreateDocument(ctx context.Context, ref storagemodels.CollectionRef, doc storagemodels.Document) (storagemodels.Document, error) {
	id, ok := storagemodels.StringAttr(doc, storagemodels.AttrID)
	if !ok || id == "" {
		id = uuid.NewString()
	}
	docRef, err := ref.Document(id)
	if err != nil {
		return nil, err
	}
	table, item, err := d.item(docRef, doc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	names := map[string]string{"#pk": d.schema.PartitionKeyName}
	_, err = d.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{ConditionCheck: &types.ConditionCheck{
				TableName:                aws.String(table),
				Key:                      d.schema.Key(d.schema.PartitionKey(ref.Collection), d.schema.MetaSortKey),
				ConditionExpression:      aws.String("attribute_exists(#pk)"),
				ExpressionAttributeNames: names,
			}},
			{Put: &types.Put{
				TableName:                aws.String(table),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
				ExpressionAttributeNames: names,
			}},
		},
	})
	if err == nil {
		return d.document(item), nil
	}
	if isResourceNotFound(err) {
		return nil, errors.NewNotFoundError("database", ref.DatabaseAddress())
	}
	if reasons, ok := cancellationReasons(err); ok {
		switch {
		case reasonIs(reasons, 0, "ConditionalCheckFailed"):
			return nil, errors.NewNotFoundError("collection", ref.Address())
		case reasonIs(reasons, 1, "ConditionalCheckFailed"):
			return nil, errors.NewAlreadyExistsError("document", docRef.Address())
		}
	}
	return nil, classify("TransactWriteItems", err)
}

// requireCollection reads the collection marker item.
func (d *Backend) requireCollection(ctx context.Context, table string, ref storagemodels.CollectionRef) error {
	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:                aws.String(table),
		Key:                      d.schema.Key(d.schema.PartitionKey(ref.Collection), d.schema.MetaSortKey),
		ProjectionExpression:     aws.String("#pk"),
		ExpressionAttributeNames: map[string]string{"#pk": d.schema.PartitionKeyName},
		ConsistentRead:           d.consistentRead(),
	})
	if isResourceNotFound(err) {
		return errors.NewNotFoundError("database", ref.DatabaseAddress())
	}
	if err != nil {
		return classify("GetItem", err)
	}
	if out.Item == nil {
		return errors.NewNotFoundError("collection", ref.Address())
	}
	return nil
}

func (d *Backend) ReadDocument(ctx context.Context, ref storagemodels.DocumentRef) (storagemodels.Document, error) {
	table, err := d.schema.TableName(ref.Database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(table),
		Key:            d.schema.Key(d.schema.PartitionKey(ref.Collection), d.schema.DocumentSortKey(ref.ID)),
		ConsistentRead: d.consistentRead(),
	})
	if isResourceNotFound(err) {
		return nil, errors.NewNotFoundError("database", ref.DatabaseAddress())
	}
	if err != nil {
		return nil, classify("GetItem", err)
	}
	if out.Item == nil {
		return nil, errors.NewNotFoundError("document", ref.Address())
	}
	return d.document(out.Item), nil
}

// ReplaceDocument overwrites an existing item; a missing item is NotFound.
func (d *Backend) ReplaceDocument(ctx context.Context, ref storagemodels.DocumentRef, doc storagemodels.Document) (storagemodels.Document, error) {
	table, item, err := d.item(ref, doc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                aws.String(table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": d.schema.PartitionKeyName},
	})
	switch {
	case err == nil:
		return d.document(item), nil
	case isConditionFailed(err):
		return nil, errors.NewNotFoundError("document", ref.Address())
	case isResourceNotFound(err):
		return nil, errors.NewNotFoundError("database", ref.DatabaseAddress())
	}
	return nil, classify("PutItem", err)
}

func (d *Backend) DeleteDocument(ctx context.Context, ref storagemodels.DocumentRef) error {
	table, err := d.schema.TableName(ref.Database)
	if err != nil {
		return err
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	_, err = d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:                aws.String(table),
		Key:                      d.schema.Key(d.schema.PartitionKey(ref.Collection), d.schema.DocumentSortKey(ref.ID)),
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": d.schema.PartitionKeyName},
	})
	switch {
	case err == nil:
		return nil
	case isConditionFailed(err):
		return errors.NewNotFoundError("document", ref.Address())
	case isResourceNotFound(err):
		return errors.NewNotFoundError("database", ref.DatabaseAddress())
	}
	return classify("DeleteItem", err)
}

// QueryDocuments runs one page of a filtered Query over the collection partition,
// or one page of a PartiQL statement for raw queries.
func (d *Backend) QueryDocuments(ctx context.Context, ref storagemodels.CollectionRef, params *storagemodels.QueryParams) (*storagemodels.Page, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	table, err := d.schema.TableName(ref.Database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	// Later pages carry a token, so only the first page checks for the marker.
	if params.ContinuationToken == "" {
		if err := d.requireCollection(ctx, table, ref); err != nil {
			return nil, err
		}
	}

	if params.Raw != nil {
		return d.executeStatement(ctx, table, ref, params)
	}

	pk := d.schema.PartitionKey(ref.Collection)
	startKey, err := d.schema.decodeKeyToken(params.ContinuationToken, pk)
	if err != nil {
		return nil, err
	}
	filter, err := compileFilter(params.Filter)
	if err != nil {
		return nil, err
	}

	names := map[string]string{"#pk": d.schema.PartitionKeyName, "#sk": d.schema.SortKeyName}
	values := map[string]types.AttributeValue{
		":pk":        &types.AttributeValueMemberS{Value: pk},
		":docPrefix": &types.AttributeValueMemberS{Value: d.schema.DocumentPrefix},
	}
	input := &sdk.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("#pk = :pk AND begins_with(#sk, :docPrefix)"),
		Limit:                  aws.Int32(d.policy.PageSizeOr(params.PageSize)),
		ExclusiveStartKey:      startKey,
		ConsistentRead:         d.consistentRead(),
	}
	if filter != nil {
		input.FilterExpression = aws.String(filter.Text)
		for k, v := range filter.Names {
			names[k] = v
		}
		for k, v := range filter.Values {
			values[k] = v
		}
	}
	input.ExpressionAttributeNames = names
	input.ExpressionAttributeValues = values

	out, err := d.client.Query(ctx, input)
	if isResourceNotFound(err) {
		return nil, errors.NewNotFoundError("database", ref.DatabaseAddress())
	}
	if err != nil {
		return nil, classify("Query", err)
	}

	token, err := d.schema.encodeKeyToken(out.LastEvaluatedKey)
	if err != nil {
		return nil, err
	}
	page := &storagemodels.Page{ContinuationToken: token, Documents: make([]storagemodels.Document, 0, len(out.Items))}
	for _, item := range out.Items {
		page.Documents = append(page.Documents, d.document(item))
	}
	d.logger.Debug().
		Str("collection", ref.Address()).
		Int("items", len(page.Documents)).
		Bool("more", page.HasMoreResults()).
		Msg("query page")
	return page, nil
}

func (d *Backend) executeStatement(ctx context.Context, table string, ref storagemodels.CollectionRef, params *storagemodels.QueryParams) (*storagemodels.Page, error) {
	stmt, err := buildStatement(table, d.schema.PartitionKeyName, d.schema.SortKeyName,
		d.schema.PartitionKey(ref.Collection), d.schema.DocumentPrefix, params.Raw)
	if err != nil {
		return nil, err
	}

	input := &sdk.ExecuteStatementInput{
		Statement:      aws.String(stmt.Text),
		Parameters:     stmt.Parameters,
		Limit:          aws.Int32(d.policy.PageSizeOr(params.PageSize)),
		ConsistentRead: d.consistentRead(),
	}
	if params.ContinuationToken != "" {
		input.NextToken = aws.String(params.ContinuationToken)
	}

	out, err := d.client.ExecuteStatement(ctx, input)
	if isResourceNotFound(err) {
		return nil, errors.NewNotFoundError("database", ref.DatabaseAddress())
	}
	if err != nil {
		return nil, classify("ExecuteStatement", err)
	}

	page := &storagemodels.Page{Documents: make([]storagemodels.Document, 0, len(out.Items))}
	if out.NextToken != nil {
		page.ContinuationToken = *out.NextToken
	}
	for _, item := range out.Items {
		page.Documents = append(page.Documents, d.document(item))
	}
	return page, nil
}

func (d *Backend) Ping(ctx context.Context) error {
	_, err := d.client.ListTables(ctx, &sdk.ListTablesInput{Limit: aws.Int32(1)})
	return classify("ListTables", err)
}

// Close is a no-op; the SDK client holds no connections that need releasing.
func (d *Backend) Close(ctx context.Context) error {
	return nil
}

// item converts a document into a stored item with keys and system attributes.
func (d *Backend) item(ref storagemodels.DocumentRef, doc storagemodels.Document) (string, map[string]types.AttributeValue, error) {
	table, err := d.schema.TableName(ref.Database)
	if err != nil {
		return "", nil, err
	}
	item := storagemodels.CloneDocument(doc)
	if item == nil {
		item = make(map[string]types.AttributeValue)
	}
	for name := range item {
		if d.schema.IsKeyAttribute(name) {
			return "", nil, errors.NewValidationError(name, "attribute name is reserved for the table key")
		}
	}
	item[d.schema.PartitionKeyName] = &types.AttributeValueMemberS{Value: d.schema.PartitionKey(ref.Collection)}
	item[d.schema.SortKeyName] = &types.AttributeValueMemberS{Value: d.schema.DocumentSortKey(ref.ID)}
	item[storagemodels.AttrID] = &types.AttributeValueMemberS{Value: ref.ID}
	item[storagemodels.AttrSelf] = &types.AttributeValueMemberS{Value: ref.Address()}
	item[storagemodels.AttrETag] = &types.AttributeValueMemberS{Value: uuid.NewString()}
	item[storagemodels.AttrTS] = &types.AttributeValueMemberN{Value: strconv.FormatInt(d.now().Unix(), 10)}
	return table, item, nil
}

// document strips the key attributes from a stored item.
func (d *Backend) document(item map[string]types.AttributeValue) storagemodels.Document {
	doc := make(storagemodels.Document, len(item))
	for k, v := range item {
		if !d.schema.IsKeyAttribute(k) {
			doc[k] = v
		}
	}
	return doc
}

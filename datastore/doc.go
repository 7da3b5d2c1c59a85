/*
Package datastore defines the contract between the repository and the document stores.

The main interface is Backend, a connection-level handle that knows how to manage
databases, collections and documents:

	type Backend interface {
	    GetOrCreateDatabase(ctx context.Context, database string) (*storagemodels.DatabaseDescriptor, error)
	    GetOrCreateCollection(ctx context.Context, database, collection string) (*storagemodels.CollectionDescriptor, error)
	    CreateDocument(ctx context.Context, ref storagemodels.CollectionRef, doc storagemodels.Document) (storagemodels.Document, error)
	    ReadDocument(ctx context.Context, ref storagemodels.DocumentRef) (storagemodels.Document, error)
	    ReplaceDocument(ctx context.Context, ref storagemodels.DocumentRef, doc storagemodels.Document) (storagemodels.Document, error)
	    DeleteDocument(ctx context.Context, ref storagemodels.DocumentRef) error
	    QueryDocuments(ctx context.Context, ref storagemodels.CollectionRef, params *storagemodels.QueryParams) (*storagemodels.Page, error)
	    ...
	}

Implementations:
  - ddb: DynamoDB, one table per database with collections partitioned by key prefix
  - mongo: MongoDB, native databases and collections
  - redis: Redis hashes and sorted sets
  - mock: In-memory backend with error injection for testing

Every backend reports failures with the typed errors of the errors package, so
callers never need driver-specific checks.
*/
package datastore

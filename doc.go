/*
Package docstore is a typed client facade over managed document databases.

A single ClientProvider owns the connection handle. Repositories bind an entity
type to one (database, collection) pair and expose lazy get-or-create of the
database and collection, CRUD on typed entities, and paginated queries:

	provider, err := docstore.NewClientProvider("dynamodb://us-east-1", "AKIA...:secret",
	    docstore.WithLogger(logger))

	repo, err := docstore.NewRepository[Traffic](ctx, provider, "Traffic", "App1Traffic")
	if _, err := repo.GetOrCreateCollection(ctx); err != nil {
	    return err
	}

	created, err := repo.AddDocument(ctx, Traffic{Method: "GET"})

	it := repo.Query(query.HeaderEquals("application-id", appID), docstore.WithPageSize(50))
	for it.HasMoreResults() {
	    page, err := it.Next(ctx)
	    ...
	}

Backends are selected by endpoint scheme (see package connect): dynamodb, mongodb,
redis and memory. Every failure is reported with the typed errors of the errors
package, and transport failures on reads and queries are retried according to the
ConnectionPolicy.

Key Features:
  - Type-safe repositories using Go generics
  - Parameterized predicates that compile to each store's native filter
  - Raw native queries with named parameters
  - Restartable pagination through opaque continuation tokens
  - Background streaming with progress and error callbacks
  - In-memory backend with error injection for testing
*/
package docstore

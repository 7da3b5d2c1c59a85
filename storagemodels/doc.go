/*
Package storagemodels defines the data structures shared by the repository and
every backend.

Key Types:

Document:
The stored representation of an entity, a map from attribute name to the
DynamoDB attribute value union:

	doc, err := storagemodels.MarshalDocument(Traffic{RequestID: "R1", Method: "GET"})
	var out Traffic
	err = storagemodels.UnmarshalDocument(doc, &out)

Entities are encoded through their json struct tags.

CollectionRef / DocumentRef:
Validated logical addresses. Construction fails fast with an UnknownEndpointError
when the database or collection name is blank:

	ref, err := storagemodels.NewCollectionRef("Traffic", "App1Traffic")
	ref.Address()          // databases/Traffic/collections/App1Traffic
	doc, _ := ref.Document("42")
	doc.Address()          // databases/Traffic/collections/App1Traffic/documents/42

QueryParams / Page:
One page request and its result:

	params := &QueryParams{
	    Filter:   query.HeaderEquals("application-id", appID),
	    PageSize: 25,
	}
	page, err := backend.QueryDocuments(ctx, ref, params)
	for page.HasMoreResults() { ... }

StreamResult:
Results from streaming operations with metadata:

	type StreamResult[T any] struct {
	    Item  T          // The typed entity
	    Raw   Document   // Raw stored attributes
	    Error error      // Item-specific error, if any
	    Meta  StreamMeta // Metadata about this item
	}
*/
package storagemodels

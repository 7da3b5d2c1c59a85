/*
Package ddb provides a DynamoDB implementation of datastore.Backend.

Layout:

Each database maps to a table with a string hash key and a string range key
(PK and SK by default, see TableSchema). A collection is one partition of that
table: every item of collection "orders" has PK "COLL#orders". The partition
holds a marker item (SK "#META") written by GetOrCreateCollection, and one item
per document with SK "DOC#{id}".

	backend := ddb.New(client,
	    ddb.WithPolicy(policy),
	    ddb.WithLogger(logger),
	)

Queries:

Structured predicates compile to a FilterExpression evaluated within the
collection partition. Attribute names and values always travel as expression
placeholders. Raw queries are PartiQL WHERE clauses; they run through
ExecuteStatement, scoped to the partition, with "@name" parameters bound
positionally.

Continuation tokens wrap the LastEvaluatedKey of the previous page and are
rejected when presented to another collection.
*/
package ddb

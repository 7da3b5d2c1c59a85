/*
Package query provides the backend-neutral filter language used by the repository.

A Predicate is a small tree of comparisons over attribute paths:

	p := query.And(
	    query.HeaderEquals("application-id", appID),
	    query.Attr("StatusCode").Ge(500),
	)

Every backend compiles the same tree into its native form (a DynamoDB
FilterExpression, a MongoDB filter document, or in-process evaluation via Match),
and values always travel as parameters.

Raw carries native query text for callers that need the store's own language:

	raw := query.NewRaw(`"RequestPath" = @path`, query.Param{Name: "@path", Value: "/health"})

Placeholders inside quoted literals are ignored, and every placeholder must be bound.
*/
package query

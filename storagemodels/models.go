/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
)

// Document is the self-describing representation every backend stores.
// Values use the DynamoDB attribute value union (S, N, BOOL, NULL, M, L, B and sets).
type Document = map[string]types.AttributeValue

// System attributes maintained by the backends on every write.
const (
	AttrID   = "id"
	AttrSelf = "_self"
	AttrETag = "_etag"
	AttrTS   = "_ts"
)

const (
	databasesSegment   = "databases"
	collectionsSegment = "collections"
	documentsSegment   = "documents"
)

// DatabaseDescriptor describes a resolved database.
type DatabaseDescriptor struct {
	ID        string
	SelfLink  string
	CreatedAt time.Time
}

// CollectionDescriptor describes a resolved collection.
type CollectionDescriptor struct {
	ID         string
	DatabaseID string
	SelfLink   string
	CreatedAt  time.Time
}

// CollectionRef is the validated logical identity of a collection.
type CollectionRef struct {
	Database   string
	Collection string
}

// NewCollectionRef validates the (database, collection) pair. A blank name at
// either level yields an UnknownEndpointError naming the offending pair.
func NewCollectionRef(database, collection string) (CollectionRef, error) {
	if strings.TrimSpace(database) == "" || strings.TrimSpace(collection) == "" {
		return CollectionRef{}, errors.NewUnknownEndpointError(database, collection)
	}
	if err := validateSegment("database", database); err != nil {
		return CollectionRef{}, err
	}
	if err := validateSegment("collection", collection); err != nil {
		return CollectionRef{}, err
	}
	return CollectionRef{Database: database, Collection: collection}, nil
}

// DatabaseAddress returns "databases/{db}".
func (r CollectionRef) DatabaseAddress() string {
	return DatabaseAddress(r.Database)
}

// Address returns "databases/{db}/collections/{coll}".
func (r CollectionRef) Address() string {
	return fmt.Sprintf("%s/%s/%s", r.DatabaseAddress(), collectionsSegment, r.Collection)
}

// Document returns the reference of the document with the given id inside the collection.
func (r CollectionRef) Document(id string) (DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return DocumentRef{}, errors.NewValidationError("id", "document id must not be blank")
	}
	if err := validateSegment("id", id); err != nil {
		return DocumentRef{}, err
	}
	return DocumentRef{CollectionRef: r, ID: id}, nil
}

// DocumentRef is the validated logical identity of a single document.
type DocumentRef struct {
	CollectionRef
	ID string
}

// Address returns "databases/{db}/collections/{coll}/documents/{id}".
func (r DocumentRef) Address() string {
	return fmt.Sprintf("%s/%s/%s", r.CollectionRef.Address(), documentsSegment, r.ID)
}

// DatabaseAddress returns the logical address of a database.
func DatabaseAddress(database string) string {
	return fmt.Sprintf("%s/%s", databasesSegment, database)
}

func validateSegment(field, value string) error {
	if strings.Contains(value, "/") {
		return errors.NewValidationError(field, "must not contain '/'")
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return errors.NewValidationError(field, "must not contain control characters")
		}
	}
	return nil
}

// QueryParams defines a single page request against a collection.
type QueryParams struct {
	// Filter is the structured predicate; nil matches every document.
	Filter query.Predicate
	// Raw is native query text with named parameters. Raw and Filter are exclusive.
	Raw *query.Raw
	// PageSize bounds the number of documents the store evaluates for this page.
	PageSize int32
	// ContinuationToken resumes a previous query; empty starts from the beginning.
	ContinuationToken string
}

// Validate checks that the params describe a runnable query.
func (p *QueryParams) Validate() error {
	if p == nil {
		return errors.NewValidationError("params", "query params must not be nil")
	}
	if p.Filter != nil && p.Raw != nil {
		return errors.NewValidationError("params", "filter and raw query are mutually exclusive")
	}
	if p.PageSize < 0 {
		return errors.NewValidationError("pageSize", "must not be negative")
	}
	if p.Filter != nil {
		if err := query.Validate(p.Filter); err != nil {
			return err
		}
	}
	if p.Raw != nil {
		if err := p.Raw.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Page is one page of query results. More results exist iff ContinuationToken is non-empty.
type Page struct {
	Documents         []Document
	ContinuationToken string
}

// HasMoreResults reports whether another page can be requested.
func (p *Page) HasMoreResults() bool {
	return p != nil && p.ContinuationToken != ""
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/errors"
)

// TableSchema holds the key layout of a database table. Every collection is a
// partition of the table; its documents share the partition key.
type TableSchema struct {
	// PartitionKeyName is the hash key attribute (e.g., "PK")
	PartitionKeyName string
	// SortKeyName is the range key attribute (e.g., "SK")
	SortKeyName string
	// CollectionPrefix prefixes the collection name in the partition key
	CollectionPrefix string
	// DocumentPrefix prefixes the document id in the sort key
	DocumentPrefix string
	// MetaSortKey is the sort key of the collection marker item
	MetaSortKey string
	// BillingMode used when the table is created
	BillingMode types.BillingMode
}

// DefaultTableSchema is the layout used unless WithSchema overrides it.
var DefaultTableSchema = TableSchema{
	PartitionKeyName: "PK",
	SortKeyName:      "SK",
	CollectionPrefix: "COLL#",
	DocumentPrefix:   "DOC#",
	MetaSortKey:      "#META",
	BillingMode:      types.BillingModePayPerRequest,
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,255}$`)

// TableName returns the table that stores database.
func (s TableSchema) TableName(database string) (string, error) {
	if !tableNamePattern.MatchString(database) {
		return "", errors.NewValidationError("database", fmt.Sprintf("%q is not a valid DynamoDB table name", database))
	}
	return database, nil
}

// PartitionKey returns the partition key value shared by a collection's items.
func (s TableSchema) PartitionKey(collection string) string {
	return s.CollectionPrefix + collection
}

// DocumentSortKey returns the sort key value of a document.
func (s TableSchema) DocumentSortKey(id string) string {
	return s.DocumentPrefix + id
}

// Key builds the primary key of an item.
func (s TableSchema) Key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		s.PartitionKeyName: &types.AttributeValueMemberS{Value: pk},
		s.SortKeyName:      &types.AttributeValueMemberS{Value: sk},
	}
}

// IsKeyAttribute reports whether name is reserved for the primary key.
func (s TableSchema) IsKeyAttribute(name string) bool {
	return name == s.PartitionKeyName || name == s.SortKeyName
}

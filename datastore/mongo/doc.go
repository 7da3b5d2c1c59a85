/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mongo implements datastore.Backend on MongoDB, including Azure Cosmos DB
// for MongoDB.
//
// A database exists once its "_docstore" meta collection holds the database
// marker. Collections are real MongoDB collections, created explicitly so that
// writes to an unknown collection fail instead of creating it. Documents are
// stored with _id equal to their id, and queries page in _id order.
//
// Raw queries are extended JSON filter documents whose "@name" placeholders
// stand for whole values:
//
//	query.NewRaw(`{"StatusCode": {"$gte": @min}}`, query.Param{Name: "@min", Value: 500})
package mongo

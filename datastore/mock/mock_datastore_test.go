/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/datastore/mock"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
	"github.com/suparena/docstore/storagemodels"
)

var _ datastore.Backend = (*mock.Backend)(nil)

func doc(id, method string) storagemodels.Document {
	return storagemodels.Document{
		"id":     &types.AttributeValueMemberS{Value: id},
		"Method": &types.AttributeValueMemberS{Value: method},
	}
}

func TestMockBackend(t *testing.T) {
	ctx := context.Background()
	ref, _ := storagemodels.NewCollectionRef("Traffic", "App1Traffic")

	t.Run("BasicOperations", func(t *testing.T) {
		backend := mock.New()
		if _, err := backend.GetOrCreateCollection(ctx, "Traffic", "App1Traffic"); err != nil {
			t.Fatalf("GetOrCreateCollection failed: %v", err)
		}

		created, err := backend.CreateDocument(ctx, ref, doc("123", "GET"))
		if err != nil {
			t.Fatalf("CreateDocument failed: %v", err)
		}
		if self, _ := storagemodels.StringAttr(created, storagemodels.AttrSelf); self != "databases/Traffic/collections/App1Traffic/documents/123" {
			t.Fatalf("unexpected self link %q", self)
		}
		if etag, _ := storagemodels.StringAttr(created, storagemodels.AttrETag); etag == "" {
			t.Fatal("expected etag to be assigned")
		}

		if _, err := backend.CreateDocument(ctx, ref, doc("123", "POST")); !errors.IsAlreadyExists(err) {
			t.Fatalf("expected already exists, got %v", err)
		}

		docRef, _ := ref.Document("123")
		read, err := backend.ReadDocument(ctx, docRef)
		if err != nil {
			t.Fatalf("ReadDocument failed: %v", err)
		}
		if m, _ := storagemodels.StringAttr(read, "Method"); m != "GET" {
			t.Fatalf("unexpected method %q", m)
		}

		if _, err := backend.ReplaceDocument(ctx, docRef, doc("123", "PUT")); err != nil {
			t.Fatalf("ReplaceDocument failed: %v", err)
		}
		read, _ = backend.ReadDocument(ctx, docRef)
		if m, _ := storagemodels.StringAttr(read, "Method"); m != "PUT" {
			t.Fatalf("expected replaced method, got %q", m)
		}

		if err := backend.DeleteDocument(ctx, docRef); err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}
		if _, err := backend.ReadDocument(ctx, docRef); !errors.IsNotFound(err) {
			t.Fatalf("expected not found error, got: %v", err)
		}
		if err := backend.DeleteDocument(ctx, docRef); !errors.IsNotFound(err) {
			t.Fatalf("expected not found on second delete, got: %v", err)
		}
	})

	t.Run("GeneratedID", func(t *testing.T) {
		backend := mock.New()
		backend.GetOrCreateCollection(ctx, "Traffic", "App1Traffic")

		created, err := backend.CreateDocument(ctx, ref, storagemodels.Document{
			"Method": &types.AttributeValueMemberS{Value: "GET"},
		})
		if err != nil {
			t.Fatalf("CreateDocument failed: %v", err)
		}
		if id, _ := storagemodels.StringAttr(created, storagemodels.AttrID); id == "" {
			t.Fatal("expected generated id")
		}
	})

	t.Run("MissingCollection", func(t *testing.T) {
		backend := mock.New()
		if _, err := backend.CreateDocument(ctx, ref, doc("1", "GET")); !errors.IsNotFound(err) {
			t.Fatalf("expected not found for missing collection, got %v", err)
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		backend := mock.New()
		backend.GetOrCreateCollection(ctx, "Traffic", "App1Traffic")

		createErr := errors.NewWriteFailureError("create", ref.Address(), nil)
		backend.WithCreateError(createErr)
		if _, err := backend.CreateDocument(ctx, ref, doc("1", "GET")); err != createErr {
			t.Fatalf("expected create error, got: %v", err)
		}

		transient := errors.NewTransportFailureError("read", fmt.Errorf("connection reset"))
		backend.FailNext(mock.OpRead, 2, transient)
		docRef, _ := ref.Document("1")
		for i := 0; i < 2; i++ {
			if _, err := backend.ReadDocument(ctx, docRef); err != transient {
				t.Fatalf("call %d: expected transient error, got %v", i, err)
			}
		}
		if _, err := backend.ReadDocument(ctx, docRef); !errors.IsNotFound(err) {
			t.Fatalf("expected queue to drain, got %v", err)
		}
		if backend.Calls(mock.OpRead) != 3 {
			t.Fatalf("expected 3 read calls, got %d", backend.Calls(mock.OpRead))
		}
	})

	t.Run("QueryPagination", func(t *testing.T) {
		backend := mock.New()
		data := map[string]storagemodels.Document{}
		for i := 0; i < 7; i++ {
			id := fmt.Sprintf("%02d", i)
			method := "GET"
			if i%2 == 1 {
				method = "POST"
			}
			data[id] = doc(id, method)
		}
		backend.SetData("Traffic", "App1Traffic", data)

		params := &storagemodels.QueryParams{Filter: query.Attr("Method").Eq("GET"), PageSize: 2}
		seen := map[string]bool{}
		pages := 0
		for {
			page, err := backend.QueryDocuments(ctx, ref, params)
			if err != nil {
				t.Fatalf("QueryDocuments failed: %v", err)
			}
			pages++
			for _, d := range page.Documents {
				id, _ := storagemodels.StringAttr(d, "id")
				if seen[id] {
					t.Fatalf("duplicate id %s", id)
				}
				seen[id] = true
			}
			if !page.HasMoreResults() {
				break
			}
			params.ContinuationToken = page.ContinuationToken
		}
		if len(seen) != 4 {
			t.Fatalf("expected 4 GET documents, got %d", len(seen))
		}
		if pages != 2 {
			t.Fatalf("expected 2 pages, got %d", pages)
		}
	})

	t.Run("RawQueryRejected", func(t *testing.T) {
		backend := mock.New()
		backend.GetOrCreateCollection(ctx, "Traffic", "App1Traffic")
		_, err := backend.QueryDocuments(ctx, ref, &storagemodels.QueryParams{Raw: query.NewRaw(`x = 1`)})
		if !errors.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("MalformedToken", func(t *testing.T) {
		backend := mock.New()
		backend.GetOrCreateCollection(ctx, "Traffic", "App1Traffic")
		_, err := backend.QueryDocuments(ctx, ref, &storagemodels.QueryParams{ContinuationToken: "***"})
		if !errors.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("HelperMethods", func(t *testing.T) {
		backend := mock.New()
		backend.SetData("Traffic", "App1Traffic", map[string]storagemodels.Document{
			"1": doc("1", "GET"),
			"2": doc("2", "GET"),
		})

		if backend.Count("Traffic", "App1Traffic") != 2 {
			t.Fatalf("Expected count 2, got %d", backend.Count("Traffic", "App1Traffic"))
		}

		backend.Clear()
		if backend.Count("Traffic", "App1Traffic") != 0 {
			t.Fatal("Expected count 0 after clear")
		}
	})

	t.Run("Close", func(t *testing.T) {
		backend := mock.New()
		backend.Close(ctx)
		if !backend.Closed() {
			t.Fatal("expected backend to be closed")
		}
		if err := backend.Ping(ctx); !errors.IsTransportFailure(err) {
			t.Fatalf("expected transport failure after close, got %v", err)
		}
	})
}

//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
	"github.com/suparena/docstore/storagemodels"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startMongo(t *testing.T) *Backend {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	var (
		container testcontainers.Container
		err       error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("docker not available: %v", r)
			}
		}()
		container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mongo:7",
				ExposedPorts: []string{"27017/tcp"},
				WaitingFor:   wait.ForLog("Waiting for connections"),
				Tmpfs:        map[string]string{"/data/db": "rw"},
			},
			Started: true,
		})
	}()
	if err != nil {
		t.Skipf("MongoDB unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	client, err := NewClient(ctx, ClientOptions{URI: fmt.Sprintf("mongodb://%s:%s", host, port.Port())}, zerolog.Nop())
	require.NoError(t, err)
	b := New(client, zerolog.Nop())
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestMongoLifecycle(t *testing.T) {
	b := startMongo(t)
	ctx := context.Background()

	cref, err := storagemodels.NewCollectionRef("traffic", "requests")
	require.NoError(t, err)

	_, err = b.GetOrCreateCollection(ctx, "traffic", "requests")
	assert.True(t, errors.IsNotFound(err), "collection before database: %v", err)

	db, err := b.GetOrCreateDatabase(ctx, "traffic")
	require.NoError(t, err)
	again, err := b.GetOrCreateDatabase(ctx, "traffic")
	require.NoError(t, err)
	assert.Equal(t, db.CreatedAt, again.CreatedAt)

	_, err = b.CreateDocument(ctx, cref, storagemodels.Document{})
	assert.True(t, errors.IsNotFound(err), "create before collection: %v", err)

	coll, err := b.GetOrCreateCollection(ctx, "traffic", "requests")
	require.NoError(t, err)
	assert.Equal(t, "databases/traffic/collections/requests", coll.SelfLink)
	_, err = b.GetOrCreateCollection(ctx, "traffic", "requests")
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		_, err := b.CreateDocument(ctx, cref, storagemodels.Document{
			"id":      &types.AttributeValueMemberS{Value: fmt.Sprintf("r%02d", i)},
			"Method":  &types.AttributeValueMemberS{Value: map[bool]string{true: "GET", false: "POST"}[i%3 == 0]},
			"Headers": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{"application-id": &types.AttributeValueMemberS{Value: "A1"}}},
		})
		require.NoError(t, err)
	}
	_, err = b.CreateDocument(ctx, cref, storagemodels.Document{"id": &types.AttributeValueMemberS{Value: "r00"}})
	assert.True(t, errors.IsAlreadyExists(err))

	collect := func(params *storagemodels.QueryParams) []string {
		var ids []string
		for {
			page, err := b.QueryDocuments(ctx, cref, params)
			require.NoError(t, err)
			for _, doc := range page.Documents {
				id, _ := storagemodels.StringAttr(doc, "id")
				ids = append(ids, id)
			}
			if !page.HasMoreResults() {
				return ids
			}
			params.ContinuationToken = page.ContinuationToken
		}
	}

	assert.Equal(t, []string{"r00", "r03", "r06"},
		collect(&storagemodels.QueryParams{Filter: query.Attr("Method").Eq("GET"), PageSize: 2}))
	assert.Len(t, collect(&storagemodels.QueryParams{Filter: query.HeaderEquals("application-id", "A1"), PageSize: 4}), 9)
	assert.Len(t, collect(&storagemodels.QueryParams{
		Raw:      query.NewRaw(`{"Method": @m}`, query.Param{Name: "@m", Value: "POST"}),
		PageSize: 5,
	}), 6)

	dref, err := cref.Document("r01")
	require.NoError(t, err)
	_, err = b.ReplaceDocument(ctx, dref, storagemodels.Document{"Method": &types.AttributeValueMemberS{Value: "PUT"}})
	require.NoError(t, err)
	doc, err := b.ReadDocument(ctx, dref)
	require.NoError(t, err)
	method, _ := storagemodels.StringAttr(doc, "Method")
	assert.Equal(t, "PUT", method)

	require.NoError(t, b.DeleteDocument(ctx, dref))
	assert.True(t, errors.IsNotFound(b.DeleteDocument(ctx, dref)))

	require.NoError(t, b.DeleteCollection(ctx, "traffic", "requests"))
	assert.True(t, errors.IsNotFound(b.DeleteCollection(ctx, "traffic", "requests")))
	require.NoError(t, b.DeleteDatabase(ctx, "traffic"))
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
	"github.com/suparena/docstore/storagemodels"
)

var _ datastore.Backend = (*Backend)(nil)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *Backend) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewClient(context.Background(), ClientOptions{URL: "redis://" + mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)

	b := New(client, zerolog.Nop())
	t.Cleanup(func() {
		_ = b.Close(context.Background())
		mr.Close()
	})
	return mr, b
}

func readyCollection(t *testing.T, b *Backend, db, coll string) storagemodels.CollectionRef {
	t.Helper()
	ctx := context.Background()
	_, err := b.GetOrCreateDatabase(ctx, db)
	require.NoError(t, err)
	_, err = b.GetOrCreateCollection(ctx, db, coll)
	require.NoError(t, err)
	ref, err := storagemodels.NewCollectionRef(db, coll)
	require.NoError(t, err)
	return ref
}

func strDoc(id, method string) storagemodels.Document {
	return storagemodels.Document{
		"id":     &types.AttributeValueMemberS{Value: id},
		"Method": &types.AttributeValueMemberS{Value: method},
	}
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(context.Background(), ClientOptions{URL: "http://nope"}, zerolog.Nop())
	assert.True(t, errors.IsInvalidConfiguration(err))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewClient(context.Background(), ClientOptions{URL: "redis://" + addr}, zerolog.Nop())
	assert.True(t, errors.IsTransportFailure(err))
}

func TestDatabaseAndCollectionLifecycle(t *testing.T) {
	mr, b := setupMiniredis(t)
	ctx := context.Background()

	_, err := b.GetOrCreateCollection(ctx, "traffic", "requests")
	assert.True(t, errors.IsNotFound(err), "collection before database: %v", err)

	first, err := b.GetOrCreateDatabase(ctx, "traffic")
	require.NoError(t, err)
	second, err := b.GetOrCreateDatabase(ctx, "traffic")
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "databases/traffic", first.SelfLink)

	coll, err := b.GetOrCreateCollection(ctx, "traffic", "requests")
	require.NoError(t, err)
	assert.Equal(t, "databases/traffic/collections/requests", coll.SelfLink)

	members, err := mr.Members("docstore:db:traffic/collections")
	require.NoError(t, err)
	assert.Equal(t, []string{"requests"}, members)

	require.NoError(t, b.DeleteCollection(ctx, "traffic", "requests"))
	assert.True(t, errors.IsNotFound(b.DeleteCollection(ctx, "traffic", "requests")))

	require.NoError(t, b.DeleteDatabase(ctx, "traffic"))
	assert.True(t, errors.IsNotFound(b.DeleteDatabase(ctx, "traffic")))
}

func TestDocumentCRUD(t *testing.T) {
	_, b := setupMiniredis(t)
	ctx := context.Background()
	ref := readyCollection(t, b, "traffic", "requests")

	created, err := b.CreateDocument(ctx, ref, strDoc("r1", "GET"))
	require.NoError(t, err)
	self, _ := storagemodels.StringAttr(created, storagemodels.AttrSelf)
	assert.Equal(t, "databases/traffic/collections/requests/documents/r1", self)
	etag1, _ := storagemodels.StringAttr(created, storagemodels.AttrETag)
	assert.NotEmpty(t, etag1)

	_, err = b.CreateDocument(ctx, ref, strDoc("r1", "POST"))
	assert.True(t, errors.IsAlreadyExists(err))

	dref, err := ref.Document("r1")
	require.NoError(t, err)
	read, err := b.ReadDocument(ctx, dref)
	require.NoError(t, err)
	assert.Equal(t, created, read)

	replaced, err := b.ReplaceDocument(ctx, dref, strDoc("r1", "PUT"))
	require.NoError(t, err)
	etag2, _ := storagemodels.StringAttr(replaced, storagemodels.AttrETag)
	assert.NotEqual(t, etag1, etag2)

	missing, err := ref.Document("nope")
	require.NoError(t, err)
	_, err = b.ReplaceDocument(ctx, missing, strDoc("nope", "PUT"))
	assert.True(t, errors.IsNotFound(err))
	_, err = b.ReadDocument(ctx, missing)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, b.DeleteDocument(ctx, dref))
	assert.True(t, errors.IsNotFound(b.DeleteDocument(ctx, dref)))
}

func TestCreateInMissingCollection(t *testing.T) {
	_, b := setupMiniredis(t)
	readyCollection(t, b, "traffic", "requests")

	ref, err := storagemodels.NewCollectionRef("traffic", "other")
	require.NoError(t, err)
	_, err = b.CreateDocument(context.Background(), ref, strDoc("x", "GET"))
	assert.True(t, errors.IsNotFound(err))
}

func TestGeneratedID(t *testing.T) {
	_, b := setupMiniredis(t)
	ref := readyCollection(t, b, "traffic", "requests")

	created, err := b.CreateDocument(context.Background(), ref, storagemodels.Document{})
	require.NoError(t, err)
	id, ok := storagemodels.StringAttr(created, storagemodels.AttrID)
	assert.True(t, ok)
	assert.NotEmpty(t, id)
}

func TestQueryDocuments(t *testing.T) {
	_, b := setupMiniredis(t)
	ctx := context.Background()
	ref := readyCollection(t, b, "traffic", "requests")

	for i := 0; i < 250; i++ {
		method := "POST"
		if i%5 == 0 {
			method = "GET"
		}
		_, err := b.CreateDocument(ctx, ref, strDoc(fmt.Sprintf("r%03d", i), method))
		require.NoError(t, err)
	}

	params := &storagemodels.QueryParams{Filter: query.Attr("Method").Eq("GET"), PageSize: 7}
	var ids []string
	pages := 0
	for {
		page, err := b.QueryDocuments(ctx, ref, params)
		require.NoError(t, err)
		pages++
		for _, doc := range page.Documents {
			id, _ := storagemodels.StringAttr(doc, "id")
			ids = append(ids, id)
		}
		if !page.HasMoreResults() {
			break
		}
		params.ContinuationToken = page.ContinuationToken
	}

	assert.Len(t, ids, 50)
	assert.Equal(t, 8, pages)
	assert.Equal(t, "r000", ids[0])
	assert.Equal(t, "r245", ids[len(ids)-1])
}

func TestQueryDocumentsRejections(t *testing.T) {
	_, b := setupMiniredis(t)
	ctx := context.Background()
	ref := readyCollection(t, b, "traffic", "requests")

	_, err := b.QueryDocuments(ctx, ref, &storagemodels.QueryParams{Raw: query.NewRaw("Method = @m", query.Param{Name: "@m", Value: "GET"})})
	assert.True(t, errors.IsValidationError(err))

	_, err = b.QueryDocuments(ctx, ref, &storagemodels.QueryParams{ContinuationToken: "***"})
	assert.True(t, errors.IsValidationError(err))

	other, err := storagemodels.NewCollectionRef("traffic", "other")
	require.NoError(t, err)
	_, err = b.QueryDocuments(ctx, other, &storagemodels.QueryParams{})
	assert.True(t, errors.IsNotFound(err))
}

func TestCodecRoundTrip(t *testing.T) {
	doc := storagemodels.Document{
		"s":     &types.AttributeValueMemberS{Value: "x"},
		"n":     &types.AttributeValueMemberN{Value: "1.25"},
		"bool":  &types.AttributeValueMemberBOOL{Value: false},
		"null":  &types.AttributeValueMemberNULL{Value: true},
		"bin":   &types.AttributeValueMemberB{Value: []byte("raw")},
		"ss":    &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		"ns":    &types.AttributeValueMemberNS{Value: []string{"1", "2"}},
		"bs":    &types.AttributeValueMemberBS{Value: [][]byte{[]byte("z")}},
		"empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		"m": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"inner": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: "deep"},
			}},
		}},
	}

	data, err := encodeDocument(doc)
	require.NoError(t, err)
	back, err := decodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, back)

	_, err = decodeDocument([]byte(`{"x":{"S":"a","N":"1"}}`))
	assert.Error(t, err)
}

func TestPaginationProperty(t *testing.T) {
	_, b := setupMiniredis(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	run := 0
	properties.Property("N matches across page size P yield N distinct results", prop.ForAll(
		func(total, matching, pageSize int) bool {
			run++
			ref := readyCollection(t, b, "prop", fmt.Sprintf("c%d", run))
			if matching > total {
				matching = total
			}
			for i := 0; i < total; i++ {
				method := "POST"
				if i < matching {
					method = "GET"
				}
				if _, err := b.CreateDocument(ctx, ref, strDoc(fmt.Sprintf("%04d", (i*37)%1000+i*1000), method)); err != nil {
					return false
				}
			}

			params := &storagemodels.QueryParams{Filter: query.Attr("Method").Eq("GET"), PageSize: int32(pageSize)}
			seen := map[string]bool{}
			for {
				page, err := b.QueryDocuments(ctx, ref, params)
				if err != nil || len(page.Documents) > pageSize {
					return false
				}
				for _, doc := range page.Documents {
					id, _ := storagemodels.StringAttr(doc, "id")
					if seen[id] {
						return false
					}
					seen[id] = true
				}
				if !page.HasMoreResults() {
					break
				}
				params.ContinuationToken = page.ContinuationToken
			}
			return len(seen) == matching
		},
		gen.IntRange(0, 260),
		gen.IntRange(0, 260),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

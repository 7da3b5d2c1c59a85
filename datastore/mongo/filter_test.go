/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
	"github.com/suparena/docstore/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCompileFilter(t *testing.T) {
	t.Run("nil matches everything", func(t *testing.T) {
		f, err := compileFilter(nil)
		require.NoError(t, err)
		assert.Empty(t, f)
	})

	t.Run("comparison on nested path", func(t *testing.T) {
		f, err := compileFilter(query.HeaderEquals("application-id", "A1"))
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "Headers.application-id", Value: bson.D{{Key: "$eq", Value: "A1"}}}}, f)
	})

	t.Run("numbers become int64", func(t *testing.T) {
		f, err := compileFilter(query.Attr("StatusCode").Ge(400))
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "StatusCode", Value: bson.D{{Key: "$gte", Value: int64(400)}}}}, f)
	})

	t.Run("combinators", func(t *testing.T) {
		f, err := compileFilter(query.And(
			query.Attr("Method").Eq("GET"),
			query.Not(query.Attr("Ip").Exists()),
		))
		require.NoError(t, err)
		want := bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "Method", Value: bson.D{{Key: "$eq", Value: "GET"}}}},
			bson.D{{Key: "$nor", Value: bson.A{
				bson.D{{Key: "Ip", Value: bson.D{{Key: "$exists", Value: true}}}},
			}}},
		}}}
		assert.Equal(t, want, f)
	})

	t.Run("begins_with escapes the prefix", func(t *testing.T) {
		f, err := compileFilter(query.Attr("RequestPath").BeginsWith("/api/v1.0"))
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "RequestPath", Value: bson.D{{Key: "$regex", Value: `^/api/v1\.0`}}}}, f)
	})

	t.Run("begins_with requires a string", func(t *testing.T) {
		_, err := compileFilter(query.Attr("StatusCode").BeginsWith(4))
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("unaddressable segments", func(t *testing.T) {
		_, err := compileFilter(query.Attr("a.b").Eq(1))
		assert.True(t, errors.IsValidationError(err))
		_, err = compileFilter(query.Attr("$where").Eq(1))
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestCompileRaw(t *testing.T) {
	raw := query.NewRaw(`{"Method": @method, "StatusCode": {"$gte": @status}, "Note": "@literal"}`,
		query.Param{Name: "@method", Value: "GET"},
		query.Param{Name: "@status", Value: 400},
	)
	f, err := compileRaw(raw)
	require.NoError(t, err)

	want := bson.D{
		{Key: "Method", Value: "GET"},
		{Key: "StatusCode", Value: bson.D{{Key: "$gte", Value: int64(400)}}},
		{Key: "Note", Value: "@literal"},
	}
	assert.Equal(t, want, f)
}

func TestCompileRawRejectsInvalidJSON(t *testing.T) {
	_, err := compileRaw(query.NewRaw(`Method = 'GET'`))
	assert.True(t, errors.IsValidationError(err))

	_, err = compileRaw(query.NewRaw(`{"Method": @missing}`))
	assert.True(t, errors.IsValidationError(err))
}

func TestConvertRoundTrip(t *testing.T) {
	doc := storagemodels.Document{
		"s":    &types.AttributeValueMemberS{Value: "text"},
		"i":    &types.AttributeValueMemberN{Value: "42"},
		"f":    &types.AttributeValueMemberN{Value: "1.5"},
		"b":    &types.AttributeValueMemberBOOL{Value: true},
		"null": &types.AttributeValueMemberNULL{Value: true},
		"bin":  &types.AttributeValueMemberB{Value: []byte{1, 2}},
		"m": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"k": &types.AttributeValueMemberS{Value: "v"},
		}},
		"l": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberN{Value: "1"},
			&types.AttributeValueMemberS{Value: "two"},
		}},
	}

	bdoc, err := toBSONDocument(doc)
	require.NoError(t, err)

	// Round trip through the wire format to get the types the driver decodes.
	data, err := bson.Marshal(bdoc)
	require.NoError(t, err)
	var decoded bson.D
	require.NoError(t, bson.Unmarshal(data, &decoded))

	back, err := fromBSONDocument(decoded)
	require.NoError(t, err)
	assert.Equal(t, doc, back)
}

func TestConvertSetsBecomeLists(t *testing.T) {
	v, err := toBSON(&types.AttributeValueMemberSS{Value: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, bson.A{"a", "b"}, v)

	v, err = toBSON(&types.AttributeValueMemberBS{Value: [][]byte{{9}}})
	require.NoError(t, err)
	assert.Equal(t, bson.A{primitive.Binary{Data: []byte{9}}}, v)
}

func TestFromBSONExtendedTypes(t *testing.T) {
	d128, err := primitive.ParseDecimal128("12.50")
	require.NoError(t, err)
	av, err := fromBSON(d128)
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "12.50"}, av)

	av, err = fromBSON(int32(7))
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, av)
}

func TestToken(t *testing.T) {
	id, err := DecodeToken(EncodeToken("doc-17"))
	require.NoError(t, err)
	assert.Equal(t, "doc-17", id)

	id, err = DecodeToken("")
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = DecodeToken("!!")
	assert.True(t, errors.IsValidationError(err))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, validateName("database", "traffic"))
	assert.NoError(t, validateName("collection", "app.traffic"))
	assert.True(t, errors.IsValidationError(validateName("database", "a.b")))
	assert.True(t, errors.IsValidationError(validateName("collection", "$cmd")))
	assert.True(t, errors.IsValidationError(validateName("collection", MetaCollection)))
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toBSONDocument converts a document into an ordered BSON document. Keys are
// sorted so stored documents are stable across writes.
func toBSONDocument(doc storagemodels.Document) (bson.D, error) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		v, err := toBSON(doc[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out = append(out, bson.E{Key: k, Value: v})
	}
	return out, nil
}

// toBSON converts one attribute value. Sets become arrays and read back as lists.
func toBSON(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return parseNumber(v.Value)
	case *types.AttributeValueMemberBOOL:
		return v.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberB:
		return primitive.Binary{Data: v.Value}, nil
	case *types.AttributeValueMemberM:
		return toBSONDocument(v.Value)
	case *types.AttributeValueMemberL:
		arr := make(bson.A, 0, len(v.Value))
		for i, item := range v.Value {
			bv, err := toBSON(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr = append(arr, bv)
		}
		return arr, nil
	case *types.AttributeValueMemberSS:
		arr := make(bson.A, 0, len(v.Value))
		for _, s := range v.Value {
			arr = append(arr, s)
		}
		return arr, nil
	case *types.AttributeValueMemberNS:
		arr := make(bson.A, 0, len(v.Value))
		for _, s := range v.Value {
			n, err := parseNumber(s)
			if err != nil {
				return nil, err
			}
			arr = append(arr, n)
		}
		return arr, nil
	case *types.AttributeValueMemberBS:
		arr := make(bson.A, 0, len(v.Value))
		for _, b := range v.Value {
			arr = append(arr, primitive.Binary{Data: b})
		}
		return arr, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported attribute value %T", av)
}

// parseNumber keeps integers as int64 and stores everything else as a double.
func parseNumber(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// fromBSONDocument converts a decoded BSON document back into a document.
func fromBSONDocument(d bson.D) (storagemodels.Document, error) {
	out := make(storagemodels.Document, len(d))
	for _, e := range d {
		av, err := fromBSON(e.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", e.Key, err)
		}
		out[e.Key] = av
	}
	return out, nil
}

func fromBSON(v any) (types.AttributeValue, error) {
	switch tv := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: tv}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: tv}, nil
	case int32:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(tv), 10)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(tv, 10)}, nil
	case float64:
		if math.IsNaN(tv) || math.IsInf(tv, 0) {
			return nil, fmt.Errorf("non-finite number %v", tv)
		}
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(tv, 'f', -1, 64)}, nil
	case primitive.Decimal128:
		return &types.AttributeValueMemberN{Value: tv.String()}, nil
	case primitive.Binary:
		return &types.AttributeValueMemberB{Value: tv.Data}, nil
	case primitive.ObjectID:
		return &types.AttributeValueMemberS{Value: tv.Hex()}, nil
	case primitive.DateTime:
		return &types.AttributeValueMemberS{Value: tv.Time().UTC().Format(time.RFC3339Nano)}, nil
	case bson.D:
		m, err := fromBSONDocument(tv)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case bson.M:
		m := make(map[string]types.AttributeValue, len(tv))
		for k, item := range tv {
			av, err := fromBSON(item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case bson.A:
		l := make([]types.AttributeValue, 0, len(tv))
		for i, item := range tv {
			av, err := fromBSON(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			l = append(l, av)
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	}
	return nil, fmt.Errorf("unsupported BSON value %T", v)
}

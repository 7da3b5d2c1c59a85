/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Entities are described with their json tags so the same struct reads naturally
// from every backend.
const entityTagKey = "json"

// MarshalDocument converts an entity into a Document.
func MarshalDocument(entity any) (Document, error) {
	av, err := attributevalue.NewEncoder(func(o *attributevalue.EncoderOptions) {
		o.TagKey = entityTagKey
	}).Encode(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, fmt.Errorf("entity of type %T does not marshal to a document", entity)
	}
	return m.Value, nil
}

// UnmarshalDocument decodes a Document into out, which must be a pointer.
func UnmarshalDocument(doc Document, out any) error {
	err := attributevalue.NewDecoder(func(o *attributevalue.DecoderOptions) {
		o.TagKey = entityTagKey
	}).Decode(&types.AttributeValueMemberM{Value: doc}, out)
	if err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return nil
}

// StringAttr returns the string value of a top-level attribute, if present.
func StringAttr(doc Document, name string) (string, bool) {
	if s, ok := doc[name].(*types.AttributeValueMemberS); ok {
		return s.Value, true
	}
	return "", false
}

// CloneDocument returns a deep copy of doc.
func CloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue returns a deep copy of a single attribute value.
func CloneValue(v types.AttributeValue) types.AttributeValue {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: tv.Value}
	case *types.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: tv.Value}
	case *types.AttributeValueMemberBOOL:
		return &types.AttributeValueMemberBOOL{Value: tv.Value}
	case *types.AttributeValueMemberNULL:
		return &types.AttributeValueMemberNULL{Value: tv.Value}
	case *types.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: append([]byte(nil), tv.Value...)}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: append([]string(nil), tv.Value...)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: append([]string(nil), tv.Value...)}
	case *types.AttributeValueMemberBS:
		bs := make([][]byte, len(tv.Value))
		for i, b := range tv.Value {
			bs[i] = append([]byte(nil), b...)
		}
		return &types.AttributeValueMemberBS{Value: bs}
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: CloneDocument(tv.Value)}
	case *types.AttributeValueMemberL:
		l := make([]types.AttributeValue, len(tv.Value))
		for i, e := range tv.Value {
			l[i] = CloneValue(e)
		}
		return &types.AttributeValueMemberL{Value: l}
	default:
		return v
	}
}

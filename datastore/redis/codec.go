/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package redis

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/storagemodels"
)

// Documents are stored in DynamoDB JSON: every value is an object with a single
// type key, e.g. {"S":"GET"} or {"L":[{"N":"1"}]}. Binary values are base64.

func encodeDocument(doc storagemodels.Document) ([]byte, error) {
	wire, err := toWireMap(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

func decodeDocument(data []byte) (storagemodels.Document, error) {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode stored document: %w", err)
	}
	return fromWireMap(wire)
}

func toWireMap(m map[string]types.AttributeValue) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		w, err := toWire(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = w
	}
	return out, nil
}

func toWire(av types.AttributeValue) (map[string]any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]any{"S": v.Value}, nil
	case *types.AttributeValueMemberN:
		return map[string]any{"N": v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return map[string]any{"BOOL": v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return map[string]any{"NULL": true}, nil
	case *types.AttributeValueMemberB:
		return map[string]any{"B": nonNil(v.Value)}, nil
	case *types.AttributeValueMemberM:
		m, err := toWireMap(v.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"M": m}, nil
	case *types.AttributeValueMemberL:
		l := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			w, err := toWire(item)
			if err != nil {
				return nil, err
			}
			l = append(l, w)
		}
		return map[string]any{"L": l}, nil
	case *types.AttributeValueMemberSS:
		return map[string]any{"SS": nonNil(v.Value)}, nil
	case *types.AttributeValueMemberNS:
		return map[string]any{"NS": nonNil(v.Value)}, nil
	case *types.AttributeValueMemberBS:
		return map[string]any{"BS": nonNil(v.Value)}, nil
	}
	return nil, fmt.Errorf("unsupported attribute value %T", av)
}

func fromWireMap(m map[string]json.RawMessage) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, raw := range m {
		av, err := fromWire(raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func fromWire(raw json.RawMessage) (types.AttributeValue, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, err
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("expected exactly one type key, got %d", len(tagged))
	}

	for typ, body := range tagged {
		switch typ {
		case "S":
			v := &types.AttributeValueMemberS{}
			return v, json.Unmarshal(body, &v.Value)
		case "N":
			v := &types.AttributeValueMemberN{}
			return v, json.Unmarshal(body, &v.Value)
		case "BOOL":
			v := &types.AttributeValueMemberBOOL{}
			return v, json.Unmarshal(body, &v.Value)
		case "NULL":
			return &types.AttributeValueMemberNULL{Value: true}, nil
		case "B":
			v := &types.AttributeValueMemberB{}
			return v, json.Unmarshal(body, &v.Value)
		case "SS":
			v := &types.AttributeValueMemberSS{}
			return v, json.Unmarshal(body, &v.Value)
		case "NS":
			v := &types.AttributeValueMemberNS{}
			return v, json.Unmarshal(body, &v.Value)
		case "BS":
			v := &types.AttributeValueMemberBS{}
			return v, json.Unmarshal(body, &v.Value)
		case "M":
			var m map[string]json.RawMessage
			if err := json.Unmarshal(body, &m); err != nil {
				return nil, err
			}
			inner, err := fromWireMap(m)
			if err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberM{Value: inner}, nil
		case "L":
			var items []json.RawMessage
			if err := json.Unmarshal(body, &items); err != nil {
				return nil, err
			}
			l := make([]types.AttributeValue, 0, len(items))
			for _, item := range items {
				av, err := fromWire(item)
				if err != nil {
					return nil, err
				}
				l = append(l, av)
			}
			return &types.AttributeValueMemberL{Value: l}, nil
		default:
			return nil, fmt.Errorf("unknown type key %q", typ)
		}
	}
	return nil, nil
}

func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}

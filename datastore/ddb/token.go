/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/errors"
)

type keyToken struct {
	PK string `json:"pk"`
	SK string `json:"sk"`
}

// encodeKeyToken turns a LastEvaluatedKey into an opaque continuation token.
func (s TableSchema) encodeKeyToken(lastKey map[string]types.AttributeValue) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}
	pk, okPK := lastKey[s.PartitionKeyName].(*types.AttributeValueMemberS)
	sk, okSK := lastKey[s.SortKeyName].(*types.AttributeValueMemberS)
	if !okPK || !okSK {
		return "", errors.NewValidationError("continuationToken", "unexpected LastEvaluatedKey shape")
	}
	raw, err := json.Marshal(keyToken{PK: pk.Value, SK: sk.Value})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeKeyToken reverses encodeKeyToken. Tokens from another collection are rejected.
func (s TableSchema) decodeKeyToken(token, expectedPK string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.NewValidationError("continuationToken", "malformed continuation token")
	}
	var kt keyToken
	if err := json.Unmarshal(raw, &kt); err != nil || kt.SK == "" {
		return nil, errors.NewValidationError("continuationToken", "malformed continuation token")
	}
	if kt.PK != expectedPK {
		return nil, errors.NewValidationError("continuationToken", "token belongs to another collection")
	}
	return s.Key(kt.PK, kt.SK), nil
}

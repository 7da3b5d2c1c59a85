/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
)

// partiqlStatement is a parameterized ExecuteStatement request.
type partiqlStatement struct {
	Text       string
	Parameters []types.AttributeValue
}

// buildStatement scopes a raw PartiQL WHERE clause to one collection partition.
// Named parameters are rewritten to positional "?" markers and bound in order.
func buildStatement(table, pkName, skName, pk, docPrefix string, raw *query.Raw) (*partiqlStatement, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	values, err := raw.Values()
	if err != nil {
		return nil, err
	}
	clause, order := raw.Bind(func(string) string { return "?" })
	clause = strings.TrimSpace(clause)
	if clause == "" || !balanced(clause) {
		return nil, errors.NewValidationError("query", "raw query must be a single balanced WHERE clause")
	}

	text := fmt.Sprintf(`SELECT * FROM "%s" WHERE "%s" = ? AND begins_with("%s", ?) AND (%s)`,
		table, pkName, skName, clause)

	params := make([]types.AttributeValue, 0, len(order)+2)
	params = append(params,
		&types.AttributeValueMemberS{Value: pk},
		&types.AttributeValueMemberS{Value: docPrefix},
	)
	for _, name := range order {
		params = append(params, values[name])
	}
	return &partiqlStatement{Text: text, Parameters: params}, nil
}

// balanced reports whether parentheses outside quoted literals are balanced, so
// the clause cannot close the partition scope it is wrapped in.
func balanced(clause string) bool {
	depth := 0
	var quote byte
	for i := 0; i < len(clause); i++ {
		c := clause[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return false
			}
		case c == ';':
			return false
		}
	}
	return depth == 0 && quote == 0
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
	"go.mongodb.org/mongo-driver/bson"
)

var comparisonOperators = map[query.Op]string{
	query.OpEq: "$eq",
	query.OpNe: "$ne",
	query.OpLt: "$lt",
	query.OpLe: "$lte",
	query.OpGt: "$gt",
	query.OpGe: "$gte",
}

// compileFilter translates a predicate into a MongoDB filter document. A nil
// predicate compiles to an empty filter.
func compileFilter(p query.Predicate) (bson.D, error) {
	if p == nil {
		return bson.D{}, nil
	}
	if err := query.Validate(p); err != nil {
		return nil, err
	}
	return compile(p)
}

func compile(p query.Predicate) (bson.D, error) {
	switch n := p.(type) {
	case *query.Comparison:
		return comparison(n)
	case *query.AndExpr:
		terms, err := compileAll(n.Terms)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$and", Value: terms}}, nil
	case *query.OrExpr:
		terms, err := compileAll(n.Terms)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$or", Value: terms}}, nil
	case *query.NotExpr:
		inner, err := compile(n.Term)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{inner}}}, nil
	}
	return nil, fmt.Errorf("unsupported predicate %T", p)
}

func compileAll(terms []query.Predicate) (bson.A, error) {
	out := make(bson.A, 0, len(terms))
	for _, t := range terms {
		d, err := compile(t)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func comparison(n *query.Comparison) (bson.D, error) {
	path, err := fieldPath(n.Path)
	if err != nil {
		return nil, err
	}
	if n.Op == query.OpExists {
		return bson.D{{Key: path, Value: bson.D{{Key: "$exists", Value: true}}}}, nil
	}

	value, err := toBSON(n.Value)
	if err != nil {
		return nil, errors.NewValidationError(path, err.Error())
	}

	if op, ok := comparisonOperators[n.Op]; ok {
		return bson.D{{Key: path, Value: bson.D{{Key: op, Value: value}}}}, nil
	}

	switch n.Op {
	case query.OpBeginsWith:
		s, ok := n.Value.(*types.AttributeValueMemberS)
		if !ok {
			return nil, errors.NewValidationError(path, "begins_with requires a string operand")
		}
		return bson.D{{Key: path, Value: bson.D{{Key: "$regex", Value: "^" + regexp.QuoteMeta(s.Value)}}}}, nil
	case query.OpContains:
		// Substring match on strings, element match on arrays.
		if s, ok := n.Value.(*types.AttributeValueMemberS); ok {
			return bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: path, Value: bson.D{{Key: "$regex", Value: regexp.QuoteMeta(s.Value)}}}},
				bson.D{{Key: path, Value: value}},
			}}}, nil
		}
		return bson.D{{Key: path, Value: value}}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", n.Op)
}

// fieldPath joins path segments with dots. Segments that would change the
// meaning of the dotted path are rejected.
func fieldPath(segments []string) (string, error) {
	for _, seg := range segments {
		if strings.Contains(seg, ".") || strings.HasPrefix(seg, "$") {
			return "", errors.NewValidationError("path", fmt.Sprintf("segment %q cannot be addressed in MongoDB", seg))
		}
	}
	return strings.Join(segments, "."), nil
}

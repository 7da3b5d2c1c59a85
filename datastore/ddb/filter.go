/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/query"
)

// filterExpression is a compiled predicate: the expression text plus its
// attribute name and value placeholders.
type filterExpression struct {
	Text   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

type filterCompiler struct {
	names     map[string]string
	nameIndex map[string]string
	values    map[string]types.AttributeValue
}

// compileFilter transforms a predicate into a FilterExpression. Every attribute
// name becomes a "#fN" placeholder and every value a ":vN" placeholder, so
// neither is ever spliced into the expression text. A nil predicate compiles to nil.
func compileFilter(p query.Predicate) (*filterExpression, error) {
	if p == nil {
		return nil, nil
	}
	if err := query.Validate(p); err != nil {
		return nil, err
	}
	c := &filterCompiler{
		names:     make(map[string]string),
		nameIndex: make(map[string]string),
		values:    make(map[string]types.AttributeValue),
	}
	text, err := c.compile(p)
	if err != nil {
		return nil, err
	}
	return &filterExpression{Text: text, Names: c.names, Values: c.values}, nil
}

func (c *filterCompiler) compile(p query.Predicate) (string, error) {
	switch n := p.(type) {
	case *query.Comparison:
		return c.comparison(n)
	case *query.AndExpr:
		return c.join(n.Terms, " AND ")
	case *query.OrExpr:
		return c.join(n.Terms, " OR ")
	case *query.NotExpr:
		inner, err := c.compile(n.Term)
		if err != nil {
			return "", err
		}
		return "(NOT " + inner + ")", nil
	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

func (c *filterCompiler) join(terms []query.Predicate, sep string) (string, error) {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		part, err := c.compile(t)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *filterCompiler) comparison(n *query.Comparison) (string, error) {
	path := c.path(n.Path)
	if n.Op == query.OpExists {
		return fmt.Sprintf("attribute_exists(%s)", path), nil
	}
	value := c.value(n.Value)
	switch n.Op {
	case query.OpEq, query.OpNe, query.OpLt, query.OpLe, query.OpGt, query.OpGe:
		return fmt.Sprintf("%s %s %s", path, n.Op, value), nil
	case query.OpBeginsWith:
		return fmt.Sprintf("begins_with(%s, %s)", path, value), nil
	case query.OpContains:
		return fmt.Sprintf("contains(%s, %s)", path, value), nil
	}
	return "", fmt.Errorf("unsupported operator %q", n.Op)
}

func (c *filterCompiler) path(segments []string) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		placeholder, ok := c.nameIndex[seg]
		if !ok {
			placeholder = fmt.Sprintf("#f%d", len(c.names))
			c.names[placeholder] = seg
			c.nameIndex[seg] = placeholder
		}
		parts[i] = placeholder
	}
	return strings.Join(parts, ".")
}

func (c *filterCompiler) value(v types.AttributeValue) string {
	placeholder := fmt.Sprintf(":v%d", len(c.values))
	c.values[placeholder] = v
	return placeholder
}

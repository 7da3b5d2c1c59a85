/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Match evaluates p against doc. Comparisons across different attribute types
// never match; numbers compare by value, strings and binaries lexically.
func Match(p Predicate, doc map[string]types.AttributeValue) (bool, error) {
	switch n := p.(type) {
	case nil:
		return true, nil
	case *Comparison:
		return matchComparison(n, doc)
	case *AndExpr:
		for _, t := range n.Terms {
			ok, err := Match(t, doc)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *OrExpr:
		for _, t := range n.Terms {
			ok, err := Match(t, doc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *NotExpr:
		ok, err := Match(n.Term, doc)
		return !ok && err == nil, err
	default:
		return false, fmt.Errorf("unsupported predicate %T", p)
	}
}

// Lookup resolves a path through nested maps.
func Lookup(doc map[string]types.AttributeValue, path []string) (types.AttributeValue, bool) {
	if len(path) == 0 {
		return nil, false
	}
	cur, ok := doc[path[0]]
	for _, seg := range path[1:] {
		if !ok {
			return nil, false
		}
		m, isMap := cur.(*types.AttributeValueMemberM)
		if !isMap {
			return nil, false
		}
		cur, ok = m.Value[seg]
	}
	return cur, ok
}

func matchComparison(c *Comparison, doc map[string]types.AttributeValue) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	v, found := Lookup(doc, c.Path)
	switch c.Op {
	case OpExists:
		return found, nil
	case OpNe:
		return !found || !Equal(v, c.Value), nil
	}
	if !found {
		return false, nil
	}
	switch c.Op {
	case OpEq:
		return Equal(v, c.Value), nil
	case OpLt, OpLe, OpGt, OpGe:
		cmp, ok := Compare(v, c.Value)
		if !ok {
			return false, nil
		}
		switch c.Op {
		case OpLt:
			return cmp < 0, nil
		case OpLe:
			return cmp <= 0, nil
		case OpGt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case OpBeginsWith:
		return beginsWith(v, c.Value), nil
	case OpContains:
		return contains(v, c.Value), nil
	}
	return false, fmt.Errorf("unsupported operator %q", c.Op)
}

// Compare orders two scalar values of the same type.
func Compare(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			return strings.Compare(av.Value, bv.Value), true
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			return compareNumbers(av.Value, bv.Value)
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Compare(av.Value, bv.Value), true
		}
	}
	return 0, false
}

func compareNumbers(a, b string) (int, bool) {
	x, ok := new(big.Float).SetString(a)
	if !ok {
		return 0, false
	}
	y, ok := new(big.Float).SetString(b)
	if !ok {
		return 0, false
	}
	return x.Cmp(y), true
}

// Equal reports deep equality. Numbers are equal by value and sets ignore order.
func Equal(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB:
		cmp, ok := Compare(a, b)
		return ok && cmp == 0
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for k, v := range av.Value {
			w, ok := bv.Value[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !Equal(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		return ok && sameStrings(av.Value, bv.Value, strings.Compare)
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		return ok && sameStrings(av.Value, bv.Value, func(x, y string) int {
			c, _ := compareNumbers(x, y)
			return c
		})
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for _, x := range av.Value {
			if !containsBytes(bv.Value, x) {
				return false
			}
		}
		return true
	}
	return false
}

func sameStrings(a, b []string, cmp func(x, y string) int) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		found := false
		for _, y := range b {
			if cmp(x, y) == 0 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsBytes(set [][]byte, v []byte) bool {
	for _, b := range set {
		if bytes.Equal(b, v) {
			return true
		}
	}
	return false
}

func beginsWith(v, prefix types.AttributeValue) bool {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		p, ok := prefix.(*types.AttributeValueMemberS)
		return ok && strings.HasPrefix(tv.Value, p.Value)
	case *types.AttributeValueMemberB:
		p, ok := prefix.(*types.AttributeValueMemberB)
		return ok && bytes.HasPrefix(tv.Value, p.Value)
	}
	return false
}

func contains(v, operand types.AttributeValue) bool {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		p, ok := operand.(*types.AttributeValueMemberS)
		return ok && strings.Contains(tv.Value, p.Value)
	case *types.AttributeValueMemberL:
		for _, e := range tv.Value {
			if Equal(e, operand) {
				return true
			}
		}
	case *types.AttributeValueMemberSS:
		p, ok := operand.(*types.AttributeValueMemberS)
		if !ok {
			return false
		}
		for _, s := range tv.Value {
			if s == p.Value {
				return true
			}
		}
	case *types.AttributeValueMemberNS:
		p, ok := operand.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		for _, s := range tv.Value {
			if c, ok := compareNumbers(s, p.Value); ok && c == 0 {
				return true
			}
		}
	case *types.AttributeValueMemberBS:
		p, ok := operand.(*types.AttributeValueMemberB)
		return ok && containsBytes(tv.Value, p.Value)
	}
	return false
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/docstore/errors"
)

// Op is a comparison operator.
type Op string

const (
	OpEq         Op = "="
	OpNe         Op = "<>"
	OpLt         Op = "<"
	OpLe         Op = "<="
	OpGt         Op = ">"
	OpGe         Op = ">="
	OpBeginsWith Op = "begins_with"
	OpContains   Op = "contains"
	OpExists     Op = "attribute_exists"
)

// Predicate is a node of a filter tree. A nil Predicate matches every document.
type Predicate interface {
	predicate()
}

// Comparison compares the attribute at Path with a parameter value.
type Comparison struct {
	Path  []string
	Op    Op
	Value types.AttributeValue // nil for OpExists

	err error
}

// AndExpr matches when every term matches.
type AndExpr struct {
	Terms []Predicate
}

// OrExpr matches when at least one term matches.
type OrExpr struct {
	Terms []Predicate
}

// NotExpr negates its term.
type NotExpr struct {
	Term Predicate
}

func (*Comparison) predicate() {}
func (*AndExpr) predicate()    {}
func (*OrExpr) predicate()     {}
func (*NotExpr) predicate()    {}

// Attribute names a (possibly nested) attribute. Each element of the path is one
// map key, so keys containing dots or dashes need no quoting.
type Attribute struct {
	path []string
}

// Attr returns the attribute at the given path, e.g. Attr("Headers", "application-id").
func Attr(path ...string) Attribute {
	return Attribute{path: append([]string(nil), path...)}
}

// Path returns a copy of the attribute path.
func (a Attribute) Path() []string {
	return append([]string(nil), a.path...)
}

func (a Attribute) Eq(v any) Predicate         { return a.compare(OpEq, v) }
func (a Attribute) Ne(v any) Predicate         { return a.compare(OpNe, v) }
func (a Attribute) Lt(v any) Predicate         { return a.compare(OpLt, v) }
func (a Attribute) Le(v any) Predicate         { return a.compare(OpLe, v) }
func (a Attribute) Gt(v any) Predicate         { return a.compare(OpGt, v) }
func (a Attribute) Ge(v any) Predicate         { return a.compare(OpGe, v) }
func (a Attribute) BeginsWith(v any) Predicate { return a.compare(OpBeginsWith, v) }
func (a Attribute) Contains(v any) Predicate   { return a.compare(OpContains, v) }

// Exists matches documents that carry the attribute, whatever its value.
func (a Attribute) Exists() Predicate {
	return &Comparison{Path: a.Path(), Op: OpExists}
}

func (a Attribute) compare(op Op, v any) Predicate {
	av, err := MarshalValue(v)
	return &Comparison{Path: a.Path(), Op: op, Value: av, err: err}
}

// HeaderEquals matches documents whose Headers map holds value under name.
func HeaderEquals(name string, value any) Predicate {
	return Attr("Headers", name).Eq(value)
}

// And combines terms; nil terms are dropped.
func And(terms ...Predicate) Predicate {
	kept := compact(terms)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &AndExpr{Terms: kept}
}

// Or combines terms; nil terms are dropped.
func Or(terms ...Predicate) Predicate {
	kept := compact(terms)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &OrExpr{Terms: kept}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return &NotExpr{Term: p}
}

func compact(terms []Predicate) []Predicate {
	kept := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return kept
}

// MarshalValue converts a typed Go value into an attribute value using json tags.
func MarshalValue(v any) (types.AttributeValue, error) {
	av, err := attributevalue.NewEncoder(func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	}).Encode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query value: %w", err)
	}
	return av, nil
}

// Validate walks the predicate and reports the first malformed node.
func Validate(p Predicate) error {
	switch n := p.(type) {
	case nil:
		return nil
	case *Comparison:
		if n.err != nil {
			return errors.NewValidationError("value", n.err.Error())
		}
		if err := ValidatePath(n.Path); err != nil {
			return err
		}
		switch n.Op {
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpBeginsWith, OpContains:
			if n.Value == nil {
				return errors.NewValidationError("value", fmt.Sprintf("operator %s requires a value", n.Op))
			}
		case OpExists:
		default:
			return errors.NewValidationError("op", fmt.Sprintf("unsupported operator %q", n.Op))
		}
		return nil
	case *AndExpr:
		return validateAll(n.Terms)
	case *OrExpr:
		return validateAll(n.Terms)
	case *NotExpr:
		if n.Term == nil {
			return errors.NewValidationError("not", "negated term must not be nil")
		}
		return Validate(n.Term)
	default:
		return errors.NewValidationError("predicate", fmt.Sprintf("unsupported predicate %T", p))
	}
}

func validateAll(terms []Predicate) error {
	for _, t := range terms {
		if err := Validate(t); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePath rejects empty paths and segments that are blank or carry control characters.
func ValidatePath(path []string) error {
	if len(path) == 0 {
		return errors.NewValidationError("path", "attribute path must not be empty")
	}
	for _, seg := range path {
		if strings.TrimSpace(seg) == "" {
			return errors.NewValidationError("path", "attribute path segments must not be blank")
		}
		for _, r := range seg {
			if unicode.IsControl(r) {
				return errors.NewValidationError("path", fmt.Sprintf("segment %q contains control characters", seg))
			}
		}
	}
	return nil
}

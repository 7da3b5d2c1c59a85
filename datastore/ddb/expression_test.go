/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
)

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name      string
		predicate query.Predicate
		wantText  string
		wantNames map[string]string
	}{
		{
			name:      "single comparison",
			predicate: query.Attr("Method").Eq("GET"),
			wantText:  "#f0 = :v0",
			wantNames: map[string]string{"#f0": "Method"},
		},
		{
			name: "nested path and conjunction",
			predicate: query.And(
				query.HeaderEquals("application-id", "abc"),
				query.Attr("StatusCode").Ge(400),
			),
			wantText:  "(#f0.#f1 = :v0 AND #f2 >= :v1)",
			wantNames: map[string]string{"#f0": "Headers", "#f1": "application-id", "#f2": "StatusCode"},
		},
		{
			name:      "repeated names share a placeholder",
			predicate: query.Or(query.Attr("Method").Eq("GET"), query.Attr("Method").Eq("POST")),
			wantText:  "(#f0 = :v0 OR #f0 = :v1)",
			wantNames: map[string]string{"#f0": "Method"},
		},
		{
			name:      "negated existence",
			predicate: query.Not(query.Attr("Ip").Exists()),
			wantText:  "(NOT attribute_exists(#f0))",
			wantNames: map[string]string{"#f0": "Ip"},
		},
		{
			name:      "functions",
			predicate: query.And(query.Attr("RequestPath").BeginsWith("/api"), query.Attr("RequestPath").Contains("users")),
			wantText:  "(begins_with(#f0, :v0) AND contains(#f0, :v1))",
			wantNames: map[string]string{"#f0": "RequestPath"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := compileFilter(tt.predicate)
			if err != nil {
				t.Fatalf("compileFilter() error = %v", err)
			}
			if expr.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", expr.Text, tt.wantText)
			}
			if len(expr.Names) != len(tt.wantNames) {
				t.Fatalf("Names = %v, want %v", expr.Names, tt.wantNames)
			}
			for k, v := range tt.wantNames {
				if expr.Names[k] != v {
					t.Errorf("Names[%s] = %q, want %q", k, expr.Names[k], v)
				}
			}
		})
	}
}

func TestCompileFilterValues(t *testing.T) {
	expr, err := compileFilter(query.And(query.Attr("Method").Eq("GET"), query.Attr("StatusCode").Lt(500)))
	if err != nil {
		t.Fatalf("compileFilter() error = %v", err)
	}
	if s, ok := expr.Values[":v0"].(*types.AttributeValueMemberS); !ok || s.Value != "GET" {
		t.Errorf(":v0 = %#v, want S GET", expr.Values[":v0"])
	}
	if n, ok := expr.Values[":v1"].(*types.AttributeValueMemberN); !ok || n.Value != "500" {
		t.Errorf(":v1 = %#v, want N 500", expr.Values[":v1"])
	}
}

func TestCompileFilterNilAndInvalid(t *testing.T) {
	expr, err := compileFilter(nil)
	if err != nil || expr != nil {
		t.Fatalf("compileFilter(nil) = %v, %v; want nil, nil", expr, err)
	}

	_, err = compileFilter(query.Attr().Eq(1))
	if !errors.IsValidationError(err) {
		t.Errorf("expected validation error for empty path, got %v", err)
	}
}

func TestKeyToken(t *testing.T) {
	s := DefaultTableSchema
	pk := s.PartitionKey("traffic")

	t.Run("empty key yields empty token", func(t *testing.T) {
		token, err := s.encodeKeyToken(nil)
		if err != nil || token != "" {
			t.Fatalf("encodeKeyToken(nil) = %q, %v", token, err)
		}
		key, err := s.decodeKeyToken("", pk)
		if err != nil || key != nil {
			t.Fatalf("decodeKeyToken(\"\") = %v, %v", key, err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		token, err := s.encodeKeyToken(s.Key(pk, s.DocumentSortKey("42")))
		if err != nil {
			t.Fatalf("encodeKeyToken() error = %v", err)
		}
		key, err := s.decodeKeyToken(token, pk)
		if err != nil {
			t.Fatalf("decodeKeyToken() error = %v", err)
		}
		if sk := key["SK"].(*types.AttributeValueMemberS).Value; sk != "DOC#42" {
			t.Errorf("SK = %q, want DOC#42", sk)
		}
	})

	t.Run("token from another collection", func(t *testing.T) {
		token, _ := s.encodeKeyToken(s.Key(s.PartitionKey("other"), s.DocumentSortKey("1")))
		if _, err := s.decodeKeyToken(token, pk); !errors.IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		if _, err := s.decodeKeyToken("%%%", pk); !errors.IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestBuildStatement(t *testing.T) {
	raw := query.NewRaw("Method = @method AND StatusCode >= @status",
		query.Param{Name: "@method", Value: "GET"},
		query.Param{Name: "@status", Value: 400},
	)
	stmt, err := buildStatement("traffic", "PK", "SK", "COLL#requests", "DOC#", raw)
	if err != nil {
		t.Fatalf("buildStatement() error = %v", err)
	}
	want := `SELECT * FROM "traffic" WHERE "PK" = ? AND begins_with("SK", ?) AND (Method = ? AND StatusCode >= ?)`
	if stmt.Text != want {
		t.Errorf("Text = %q\nwant   %q", stmt.Text, want)
	}
	if len(stmt.Parameters) != 4 {
		t.Fatalf("len(Parameters) = %d, want 4", len(stmt.Parameters))
	}
	if s := stmt.Parameters[0].(*types.AttributeValueMemberS).Value; s != "COLL#requests" {
		t.Errorf("Parameters[0] = %q", s)
	}
	if s := stmt.Parameters[2].(*types.AttributeValueMemberS).Value; s != "GET" {
		t.Errorf("Parameters[2] = %q", s)
	}
	if n := stmt.Parameters[3].(*types.AttributeValueMemberN).Value; n != "400" {
		t.Errorf("Parameters[3] = %q", n)
	}
}

func TestBuildStatementRejectsScopeEscape(t *testing.T) {
	for _, text := range []string{
		"Method = 'GET') OR (1 = 1",
		"Method = 'GET'; DELETE FROM traffic",
		"(Method = 'GET'",
	} {
		if _, err := buildStatement("traffic", "PK", "SK", "COLL#x", "DOC#", query.NewRaw(text)); !errors.IsValidationError(err) {
			t.Errorf("%q: expected validation error, got %v", text, err)
		}
	}

	if _, err := buildStatement("traffic", "PK", "SK", "COLL#x", "DOC#", query.NewRaw("RequestPath = ')('")); err != nil {
		t.Errorf("quoted parentheses should be accepted: %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransport bool
		wantInvalid   bool
	}{
		{"throughput exceeded", &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}, true, false},
		{"internal error", &types.InternalServerError{Message: aws.String("boom")}, true, false},
		{"throttling code", &smithy.GenericAPIError{Code: "ThrottlingException"}, true, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true, false},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException", Message: "bad expression"}, false, true},
		{"other", &smithy.GenericAPIError{Code: "AccessDeniedException"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("Op", tt.err)
			if got := errors.IsTransportFailure(err); got != tt.wantTransport {
				t.Errorf("IsTransportFailure = %v, want %v (%v)", got, tt.wantTransport, err)
			}
			if got := errors.IsValidationError(err); got != tt.wantInvalid {
				t.Errorf("IsValidationError = %v, want %v (%v)", got, tt.wantInvalid, err)
			}
		})
	}

	if classify("Op", nil) != nil {
		t.Error("classify(nil) should be nil")
	}
}

func TestTableName(t *testing.T) {
	for name, valid := range map[string]bool{
		"traffic":     true,
		"my-db.v2_01": true,
		"ab":          false,
		"a/b/c":       false,
		"with space":  false,
	} {
		_, err := DefaultTableSchema.TableName(name)
		if valid && err != nil {
			t.Errorf("TableName(%q) unexpected error %v", name, err)
		}
		if !valid && !errors.IsValidationError(err) {
			t.Errorf("TableName(%q) expected validation error, got %v", name, err)
		}
	}
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("Document", "123")

	expected := `Document with key "123" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestAlreadyExistsError(t *testing.T) {
	err := NewAlreadyExistsError("Document", "ABC")

	expected := `Document with key "ABC" already exists`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !IsAlreadyExists(err) {
		t.Error("IsAlreadyExists should return true for AlreadyExistsError")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "id",
			message:  "must not be blank",
			expected: `validation failed for field "id": must not be blank`,
		},
		{
			name:     "without field",
			field:    "",
			message:  "missing required fields",
			expected: "validation failed: missing required fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}

			if !IsValidationError(err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestConditionFailedError(t *testing.T) {
	err := NewConditionFailedError("replace", "attribute_exists(PK)")

	expected := "condition check failed for replace operation: attribute_exists(PK)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !IsConditionFailed(err) {
		t.Error("IsConditionFailed should return true for ConditionFailedError")
	}
}

func TestUnknownEndpointError(t *testing.T) {
	err := NewUnknownEndpointError("", "App1Traffic")

	expected := `invalid document db endpoint. db: "" col: "App1Traffic"`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	var typed *UnknownEndpointError
	if !errors.As(err, &typed) {
		t.Fatal("errors.As should extract UnknownEndpointError")
	}
	if typed.Collection != "App1Traffic" {
		t.Errorf("Expected collection App1Traffic, got %q", typed.Collection)
	}
	if !IsUnknownEndpoint(err) {
		t.Error("IsUnknownEndpoint should return true for UnknownEndpointError")
	}
}

func TestInvalidConfigurationError(t *testing.T) {
	err := NewInvalidConfigurationError("endpointUrl", "must not be blank")

	if !IsInvalidConfiguration(err) {
		t.Error("IsInvalidConfiguration should return true for InvalidConfigurationError")
	}
	if IsValidationError(err) {
		t.Error("InvalidConfigurationError should not match ErrInvalidInput")
	}
}

func TestWriteFailureAndTransportFailureUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded

	writeErr := NewWriteFailureError("create", "databases/db/collections/c", cause)
	if !IsWriteFailure(writeErr) {
		t.Error("IsWriteFailure should return true for WriteFailureError")
	}
	if !errors.Is(writeErr, context.DeadlineExceeded) {
		t.Error("WriteFailureError should unwrap to its cause")
	}

	transportErr := NewTransportFailureError("query", cause)
	if !IsTransportFailure(transportErr) {
		t.Error("IsTransportFailure should return true for TransportFailureError")
	}
	if !errors.Is(transportErr, context.DeadlineExceeded) {
		t.Error("TransportFailureError should unwrap to its cause")
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewNotFoundError("Document", "123")
	wrapped := fmt.Errorf("repository operation failed: %w", original)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("Wrapped NotFoundError should still match ErrNotFound")
	}

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should work with wrapped errors")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrConditionFailed,
		ErrInvalidConfiguration,
		ErrUnknownEndpoint,
		ErrWriteFailure,
		ErrTransportFailure,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a document, collection or database does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when attempting to create a document that already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrInvalidConfiguration is returned when the endpoint or credential is missing or malformed
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownEndpoint is returned when a logical address names an empty database or collection
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrWriteFailure is returned when a create or replace did not report the expected status
	ErrWriteFailure = errors.New("write failure")

	// ErrTransportFailure is returned for connectivity, timeout and throttling errors from the store
	ErrTransportFailure = errors.New("transport failure")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when a resource already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// InvalidConfigurationError reports a blank or malformed connection setting.
type InvalidConfigurationError struct {
	Field   string
	Message string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Message)
}

func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// UnknownEndpointError identifies the (database, collection) pair that could not be
// resolved to a usable address.
type UnknownEndpointError struct {
	Database   string
	Collection string
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("invalid document db endpoint. db: %q col: %q", e.Database, e.Collection)
}

func (e *UnknownEndpointError) Is(target error) bool {
	return target == ErrUnknownEndpoint
}

// WriteFailureError wraps a create or replace that did not succeed.
type WriteFailureError struct {
	Operation string
	Address   string
	Err       error
}

func (e *WriteFailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failure at %s: %v", e.Operation, e.Address, e.Err)
	}
	return fmt.Sprintf("%s failure at %s", e.Operation, e.Address)
}

func (e *WriteFailureError) Is(target error) bool {
	return target == ErrWriteFailure
}

func (e *WriteFailureError) Unwrap() error {
	return e.Err
}

// TransportFailureError wraps a connectivity error reported by the underlying driver.
type TransportFailureError struct {
	Operation string
	Err       error
}

func (e *TransportFailureError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Operation, e.Err)
}

func (e *TransportFailureError) Is(target error) bool {
	return target == ErrTransportFailure
}

func (e *TransportFailureError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resourceType, key string) error {
	return &NotFoundError{Type: resourceType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(resourceType, key string) error {
	return &AlreadyExistsError{Type: resourceType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewInvalidConfigurationError creates a new InvalidConfigurationError
func NewInvalidConfigurationError(field, message string) error {
	return &InvalidConfigurationError{Field: field, Message: message}
}

// NewUnknownEndpointError creates a new UnknownEndpointError
func NewUnknownEndpointError(database, collection string) error {
	return &UnknownEndpointError{Database: database, Collection: collection}
}

// NewWriteFailureError creates a new WriteFailureError
func NewWriteFailureError(operation, address string, err error) error {
	return &WriteFailureError{Operation: operation, Address: address, Err: err}
}

// NewTransportFailureError creates a new TransportFailureError
func NewTransportFailureError(operation string, err error) error {
	return &TransportFailureError{Operation: operation, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsInvalidConfiguration checks if an error is an invalid configuration error
func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsUnknownEndpoint checks if an error is an unknown endpoint error
func IsUnknownEndpoint(err error) bool {
	return errors.Is(err, ErrUnknownEndpoint)
}

// IsWriteFailure checks if an error is a write failure
func IsWriteFailure(err error) bool {
	return errors.Is(err, ErrWriteFailure)
}

// IsTransportFailure checks if an error is a transport failure
func IsTransportFailure(err error) bool {
	return errors.Is(err, ErrTransportFailure)
}

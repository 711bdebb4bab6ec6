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
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateIdentifier is returned when an insert collides with an existing id
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConcurrentModification is returned when the stored revision no longer matches
	// the revision the caller last observed
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrBackendUnavailable is returned for I/O and connection failures of the authoritative store
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrCacheUnavailable marks cache store failures. Never surfaced to use-case callers.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrPublishFailure marks event publishing failures. Never surfaced to use-case callers.
	ErrPublishFailure = errors.New("publish failure")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Type, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DuplicateIdentifierError represents an insert of an id that already exists
type DuplicateIdentifierError struct {
	Type string
	ID   int64
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("%s with id %d already exists", e.Type, e.ID)
}

func (e *DuplicateIdentifierError) Is(target error) bool {
	return target == ErrDuplicateIdentifier
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

// ConcurrentModificationError is a failed compare-and-swap on the revision attribute.
// Actual is -1 when the backend cannot report the stored revision.
type ConcurrentModificationError struct {
	Type     string
	ID       int64
	Expected int64
	Actual   int64
}

func (e *ConcurrentModificationError) Error() string {
	if e.Actual < 0 {
		return fmt.Sprintf("%s %d was modified concurrently (expected revision %d)", e.Type, e.ID, e.Expected)
	}
	return fmt.Sprintf("%s %d was modified concurrently (expected revision %d, found %d)",
		e.Type, e.ID, e.Expected, e.Actual)
}

func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// BackendUnavailableError wraps a transport or driver failure of a storage backend
type BackendUnavailableError struct {
	Backend   string
	Operation string
	Err       error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("%s backend unavailable during %s: %v", e.Backend, e.Operation, e.Err)
}

func (e *BackendUnavailableError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// CacheUnavailableError wraps a failure of the side cache
type CacheUnavailableError struct {
	Operation string
	Key       string
	Err       error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache %s %q failed: %v", e.Operation, e.Key, e.Err)
}

func (e *CacheUnavailableError) Is(target error) bool {
	return target == ErrCacheUnavailable
}

func (e *CacheUnavailableError) Unwrap() error {
	return e.Err
}

// PublishFailureError wraps a failure to hand an event to the event channel
type PublishFailureError struct {
	EventType string
	Err       error
}

func (e *PublishFailureError) Error() string {
	return fmt.Sprintf("failed to publish %s event: %v", e.EventType, e.Err)
}

func (e *PublishFailureError) Is(target error) bool {
	return target == ErrPublishFailure
}

func (e *PublishFailureError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType string, id int64) error {
	return &NotFoundError{Type: entityType, ID: id}
}

// NewDuplicateIdentifierError creates a new DuplicateIdentifierError
func NewDuplicateIdentifierError(entityType string, id int64) error {
	return &DuplicateIdentifierError{Type: entityType, ID: id}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConcurrentModificationError creates a new ConcurrentModificationError
func NewConcurrentModificationError(entityType string, id, expected, actual int64) error {
	return &ConcurrentModificationError{Type: entityType, ID: id, Expected: expected, Actual: actual}
}

// NewBackendUnavailableError creates a new BackendUnavailableError
func NewBackendUnavailableError(backend, operation string, err error) error {
	return &BackendUnavailableError{Backend: backend, Operation: operation, Err: err}
}

// NewCacheUnavailableError creates a new CacheUnavailableError
func NewCacheUnavailableError(operation, key string, err error) error {
	return &CacheUnavailableError{Operation: operation, Key: key, Err: err}
}

// NewPublishFailureError creates a new PublishFailureError
func NewPublishFailureError(eventType string, err error) error {
	return &PublishFailureError{EventType: eventType, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateIdentifier checks if an error is a duplicate identifier error
func IsDuplicateIdentifier(err error) bool {
	return errors.Is(err, ErrDuplicateIdentifier)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConcurrentModification checks if an error is an optimistic-lock violation
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsBackendUnavailable checks if an error is a backend transport failure
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// IsCacheUnavailable checks if an error is a cache failure
func IsCacheUnavailable(err error) bool {
	return errors.Is(err, ErrCacheUnavailable)
}

// IsPublishFailure checks if an error is an event publishing failure
func IsPublishFailure(err error) bool {
	return errors.Is(err, ErrPublishFailure)
}

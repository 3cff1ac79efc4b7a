/*
errors.go - Centralized error types for the screen time engine

PURPOSE:
  All error kinds in one place. Stores return these, the engine and the
  query service pass them through untouched, and the API maps them to
  status codes.

ERROR CATEGORIES:
  1. Validation - malformed or out-of-range input (client error)
  2. Not found  - referenced id is absent (client error)
  3. Conflict   - delete blocked by a referencing record
  4. Storage    - the persistence layer failed (server error)

USAGE:
  if errors.Is(err, screentime.ErrNotFound) {
      // 404
  }

  var nf *screentime.NotFoundError
  if errors.As(err, &nf) {
      log.Printf("missing %s %d", nf.Kind, nf.ID)
  }

SEE ALSO:
  - api/handlers.go: statusFor maps these to HTTP codes
*/
package screentime

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input is malformed or out of range.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a delete is blocked by referencing records.
	ErrConflict = errors.New("conflict")

	// ErrStorage is returned when the underlying persistence fails.
	ErrStorage = errors.New("storage failure")
)

// Entity kinds used in NotFoundError and ConflictError.
const (
	KindAdjustmentType = "adjustment type"
	KindAdjustment     = "adjustment"
	KindTimeEntry      = "time entry"
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes which input was rejected and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError reports a delete refused because other records still
// reference the target.
type ConflictError struct {
	Kind       string
	ID         int64
	References int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d is still referenced by %d adjustment(s)", e.Kind, e.ID, e.References)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// StorageError wraps a persistence failure with the operation that hit it.
// It matches both ErrStorage and the underlying cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// NewStorageError wraps err, or returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if a delete was blocked by references.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

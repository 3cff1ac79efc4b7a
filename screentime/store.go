/*
store.go - Persistence interface for adjustment types, adjustments and time entries

PURPOSE:
  Defines the boundary between the engine and the database. The Store owns
  identity (IDs, CreatedAt) and record-level validation; everything above it
  assumes records it gets back are well formed.

KEY INTERFACES:
  Store:   CRUD with ordered, filtered listing
  TxStore: Store plus a consistent read snapshot for multi-query reads

VALIDATION CONTRACT:
  - CreateAdjustmentType: empty description  -> *ValidationError
  - CreateAdjustment:     unknown type id    -> *NotFoundError
  - CreateTimeEntry:      negative minutes   -> *ValidationError
  - Delete, Get:          unknown id         -> *NotFoundError
  - DeleteAdjustmentType: still referenced   -> *ConflictError
  Any other failure is a *StorageError.

ORDERING CONTRACT:
  - ListAdjustmentTypes: ID ascending (creation order)
  - ListAdjustments / ListTimeEntries: CreatedAt descending, ID descending

IMPLEMENTATIONS:
  - screentime/store/memory.go: In-memory, for tests and development
  - store/sqlite/sqlite.go:     SQLite (default) or PostgreSQL via database/sql

SEE ALSO:
  - filter.go: Filter semantics every implementation applies
*/
package screentime

import (
	"context"
	"strings"
)

// =============================================================================
// STORE - Interface for record persistence
// =============================================================================

// Store handles persistence of the three record kinds.
type Store interface {
	CreateAdjustmentType(ctx context.Context, description string, adjustment Minutes) (AdjustmentType, error)
	GetAdjustmentType(ctx context.Context, id int64) (AdjustmentType, error)
	ListAdjustmentTypes(ctx context.Context) ([]AdjustmentType, error)
	DeleteAdjustmentType(ctx context.Context, id int64) error

	CreateAdjustment(ctx context.Context, typeID int64, description *string) (Adjustment, error)
	GetAdjustment(ctx context.Context, id int64) (Adjustment, error)
	ListAdjustments(ctx context.Context, filter AdjustmentFilter) ([]Adjustment, error)
	DeleteAdjustment(ctx context.Context, id int64) error

	CreateTimeEntry(ctx context.Context, minutes Minutes) (TimeEntry, error)
	GetTimeEntry(ctx context.Context, id int64) (TimeEntry, error)
	ListTimeEntries(ctx context.Context, filter TimeEntryFilter) ([]TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, id int64) error
}

// =============================================================================
// TRANSACTIONAL STORE - Consistent reads across several queries
// =============================================================================

// TxStore wraps Store with snapshot reads.
// Use this when two listings must observe the same point in time
// (the balance fold reads adjustments and time entries together).
type TxStore interface {
	Store

	// ReadTx executes fn against a read-only snapshot. Writes made through
	// the Store passed to fn are rejected or rolled back by the implementation.
	ReadTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// RECORD VALIDATION - Shared by store implementations
// =============================================================================

// ValidateAdjustmentType checks the fields of a new adjustment type.
func ValidateAdjustmentType(description string) error {
	if strings.TrimSpace(description) == "" {
		return &ValidationError{Field: "description", Message: "must not be empty"}
	}
	return nil
}

// ValidateTimeEntry checks the minutes of a new time entry.
func ValidateTimeEntry(minutes Minutes) error {
	if minutes < 0 {
		return &ValidationError{Field: "time", Message: "must not be negative"}
	}
	return nil
}

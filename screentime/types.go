/*
Package screentime provides the core screen time engine.

PURPOSE:
  This package contains the data model, the persistence contract and the
  two algorithms that sit on top of it: the balance fold and the filtered
  history listing. Transport (api/) and persistence (store/) are plumbing
  around what lives here.

KEY CONCEPTS IN THIS FILE (types.go):
  - AdjustmentType: A reusable rule mapping a chore or behavior to minutes
  - Adjustment:     One application of an AdjustmentType, timestamped
  - TimeEntry:      Minutes actually consumed as screen time
  - Minutes:        Signed integer minutes, the only unit in the system

DESIGN PRINCIPLES:
  1. Immutability: records are created once and only ever deleted
  2. Derived balance: the balance is folded from records, never stored
  3. Server-assigned identity: IDs and CreatedAt come from the store
  4. Deterministic order: (CreatedAt, ID) totally orders every record

USAGE:
  t, _ := store.CreateAdjustmentType(ctx, "Cleaned room", 30)
  _, _ = store.CreateAdjustment(ctx, t.ID, nil)
  _, _ = store.CreateTimeEntry(ctx, 10)
  b, _ := screentime.NewBalanceEngine(store).Current(ctx) // b.Minutes == 20

SEE ALSO:
  - balance.go: Balance fold
  - query.go:   Filtered listing
  - store.go:   Persistence contract
*/
package screentime

import "time"

// =============================================================================
// MINUTES
// =============================================================================

// Minutes is a signed count of screen time minutes. 64 bits cannot
// realistically overflow for a family ledger.
type Minutes int64

// =============================================================================
// ENTITIES
// =============================================================================

// AdjustmentType is a named rule that grants (positive) or deducts
// (negative) minutes each time it is applied.
type AdjustmentType struct {
	ID          int64
	Description string
	Adjustment  Minutes
}

// Adjustment is one application of an AdjustmentType.
//
// Minutes is denormalized from the referenced type when the adjustment is
// read; it is never persisted on the adjustment itself.
type Adjustment struct {
	ID          int64
	TypeID      int64
	Description *string
	CreatedAt   time.Time
	Minutes     Minutes
}

// TimeEntry records minutes of screen time actually used.
type TimeEntry struct {
	ID        int64
	Time      Minutes
	CreatedAt time.Time
}

// Clock returns the current instant. Stores take one so tests can pin
// CreatedAt values.
type Clock func() time.Time

// SystemClock is the default Clock, always UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

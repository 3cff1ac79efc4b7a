package screentime

import (
	"sort"
	"time"
)

// =============================================================================
// FILTERS - Optional constraints for history listings
// =============================================================================

// AdjustmentFilter narrows an adjustment listing. Nil fields impose no
// constraint.
type AdjustmentFilter struct {
	Type  *int64     // exact AdjustmentType ID
	Since *time.Time // inclusive lower bound on CreatedAt
	Limit *int       // maximum number of results; 0 yields nothing
}

// TimeEntryFilter narrows a time entry listing.
type TimeEntryFilter struct {
	Since *time.Time
	Limit *int
}

// Validate rejects filter shapes that cannot be answered.
func (f AdjustmentFilter) Validate() error {
	return validateLimit(f.Limit)
}

// Validate rejects filter shapes that cannot be answered.
func (f TimeEntryFilter) Validate() error {
	return validateLimit(f.Limit)
}

// Match reports whether a satisfies the Type and Since constraints.
// Limit is applied separately, after ordering.
func (f AdjustmentFilter) Match(a Adjustment) bool {
	if f.Type != nil && a.TypeID != *f.Type {
		return false
	}
	return f.Since == nil || !a.CreatedAt.Before(*f.Since)
}

// Match reports whether e satisfies the Since constraint.
func (f TimeEntryFilter) Match(e TimeEntry) bool {
	return f.Since == nil || !e.CreatedAt.Before(*f.Since)
}

// Empty reports whether the filter can only ever produce no rows.
func (f AdjustmentFilter) Empty() bool { return f.Limit != nil && *f.Limit == 0 }

// Empty reports whether the filter can only ever produce no rows.
func (f TimeEntryFilter) Empty() bool { return f.Limit != nil && *f.Limit == 0 }

func validateLimit(limit *int) error {
	if limit != nil && *limit < 0 {
		return &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	return nil
}

// =============================================================================
// ORDERING - (CreatedAt, ID) descending
// =============================================================================

// newer reports whether record (t1, id1) sorts before (t2, id2) in a
// most-recent-first listing.
func newer(t1 time.Time, id1 int64, t2 time.Time, id2 int64) bool {
	if !t1.Equal(t2) {
		return t1.After(t2)
	}
	return id1 > id2
}

// SortAdjustmentsNewestFirst orders adjustments by CreatedAt descending,
// breaking ties by ID descending.
func SortAdjustmentsNewestFirst(adjs []Adjustment) {
	sort.Slice(adjs, func(i, j int) bool {
		return newer(adjs[i].CreatedAt, adjs[i].ID, adjs[j].CreatedAt, adjs[j].ID)
	})
}

// SortTimeEntriesNewestFirst orders time entries by CreatedAt descending,
// breaking ties by ID descending.
func SortTimeEntriesNewestFirst(entries []TimeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return newer(entries[i].CreatedAt, entries[i].ID, entries[j].CreatedAt, entries[j].ID)
	})
}

// Truncate caps s at limit when limit is set.
func Truncate[T any](s []T, limit *int) []T {
	if limit == nil || *limit >= len(s) {
		return s
	}
	return s[:*limit]
}

/*
balance.go - Balance calculation from adjustments and time entries

PURPOSE:
  Computes the currently available screen time. This is the central
  calculation that answers "how many minutes does the child have left?"

KEY INSIGHT:
  The balance is DERIVED, never stored. Every call folds the full history
  (or a bounded window of it), so creates and deletes take effect on the
  next read with no second write.

BALANCE COMPONENTS:
  Adjusted: sum of AdjustmentType.Adjustment over the adjustments in scope
  Spent:    sum of TimeEntry.Time over the time entries in scope
  Minutes:  Adjusted - Spent (may be negative after overspending)

CONSISTENCY:
  When the store implements TxStore, adjustments and time entries are read
  inside one ReadTx so both sums come from the same point in time. Plain
  Stores are read with two independent queries and may observe read skew.

FOLD ORDER:
  Events are applied oldest first: CreatedAt ascending, adjustments before
  time entries at the same instant, then ID ascending. The final balance
  does not depend on the order; the Timeline running balance does.

SEE ALSO:
  - query.go:  Listing the same records for audit
  - format.go: h:mm and decimal hour rendering
*/
package screentime

import (
	"context"
	"sort"
	"time"
)

// =============================================================================
// BALANCE
// =============================================================================

// Window bounds a balance computation. Nil bounds are open.
type Window struct {
	Since *time.Time // inclusive
	Until *time.Time // inclusive
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.Since != nil && t.Before(*w.Since) {
		return false
	}
	return w.Until == nil || !t.After(*w.Until)
}

// Validate rejects a window whose end precedes its start.
func (w Window) Validate() error {
	if w.Since != nil && w.Until != nil && w.Until.Before(*w.Since) {
		return &ValidationError{Field: "until", Message: "must not be before since"}
	}
	return nil
}

// Balance is the result of folding adjustments and time entries.
type Balance struct {
	Minutes     Minutes
	Adjusted    Minutes
	Spent       Minutes
	Adjustments int
	TimeEntries int
	Window      Window
	AsOf        time.Time
}

// =============================================================================
// TIMELINE - Running balance per record
// =============================================================================

// EventKind distinguishes the records that make up a timeline.
type EventKind string

const (
	EventAdjustment EventKind = "adjustment"
	EventTimeEntry  EventKind = "time_entry"
)

// TimelineEvent is one step of the fold with the balance after applying it.
type TimelineEvent struct {
	At       time.Time
	Kind     EventKind
	RecordID int64
	TypeID   int64 // zero for time entries
	Delta    Minutes
	Balance  Minutes
}

// =============================================================================
// ENGINE
// =============================================================================

// BalanceEngine folds store records into balances.
type BalanceEngine struct {
	store Store
	clock Clock
}

// NewBalanceEngine creates an engine reading from store.
func NewBalanceEngine(store Store) *BalanceEngine {
	return &BalanceEngine{store: store, clock: SystemClock}
}

// WithClock overrides the clock used for Balance.AsOf.
func (e *BalanceEngine) WithClock(clock Clock) *BalanceEngine {
	e.clock = clock
	return e
}

// Current returns the balance over the full history.
func (e *BalanceEngine) Current(ctx context.Context) (Balance, error) {
	return e.Window(ctx, Window{})
}

// Window returns the balance over the records created inside w.
func (e *BalanceEngine) Window(ctx context.Context, w Window) (Balance, error) {
	events, err := e.Timeline(ctx, w)
	if err != nil {
		return Balance{}, err
	}

	b := Balance{Window: w, AsOf: e.clock()}
	for _, ev := range events {
		switch ev.Kind {
		case EventAdjustment:
			b.Adjusted += ev.Delta
			b.Adjustments++
		case EventTimeEntry:
			b.Spent -= ev.Delta
			b.TimeEntries++
		}
	}
	b.Minutes = b.Adjusted - b.Spent
	return b, nil
}

// Timeline returns every record inside w, oldest first, each with the
// running balance after it is applied.
func (e *BalanceEngine) Timeline(ctx context.Context, w Window) ([]TimelineEvent, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	var (
		adjs    []Adjustment
		entries []TimeEntry
	)
	read := func(s Store) error {
		var err error
		adjs, err = s.ListAdjustments(ctx, AdjustmentFilter{Since: w.Since})
		if err != nil {
			return err
		}
		entries, err = s.ListTimeEntries(ctx, TimeEntryFilter{Since: w.Since})
		return err
	}

	if txs, ok := e.store.(TxStore); ok {
		if err := txs.ReadTx(ctx, read); err != nil {
			return nil, err
		}
	} else if err := read(e.store); err != nil {
		return nil, err
	}

	return fold(adjs, entries, w), nil
}

func fold(adjs []Adjustment, entries []TimeEntry, w Window) []TimelineEvent {
	events := make([]TimelineEvent, 0, len(adjs)+len(entries))
	for _, a := range adjs {
		if !w.Contains(a.CreatedAt) {
			continue
		}
		events = append(events, TimelineEvent{
			At:       a.CreatedAt,
			Kind:     EventAdjustment,
			RecordID: a.ID,
			TypeID:   a.TypeID,
			Delta:    a.Minutes,
		})
	}
	for _, te := range entries {
		if !w.Contains(te.CreatedAt) {
			continue
		}
		events = append(events, TimelineEvent{
			At:       te.CreatedAt,
			Kind:     EventTimeEntry,
			RecordID: te.ID,
			Delta:    -te.Time,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		if a.Kind != b.Kind {
			return a.Kind == EventAdjustment
		}
		return a.RecordID < b.RecordID
	})

	var running Minutes
	for i := range events {
		running += events[i].Delta
		events[i].Balance = running
	}
	return events
}

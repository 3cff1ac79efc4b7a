// Package store provides Store implementations.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/screentime/screentime"
)

// errReadOnly is returned when a write is attempted inside ReadTx.
var errReadOnly = errors.New("write attempted in read-only transaction")

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

var _ screentime.TxStore = (*Memory)(nil)

type Memory struct {
	mu    sync.RWMutex
	clock screentime.Clock

	types       map[int64]screentime.AdjustmentType
	adjustments map[int64]adjustmentRow
	timeEntries map[int64]screentime.TimeEntry

	lastTypeID       int64
	lastAdjustmentID int64
	lastTimeEntryID  int64
}

// adjustmentRow is what is persisted; Minutes is joined from the type on read.
type adjustmentRow struct {
	ID          int64
	TypeID      int64
	Description *string
	CreatedAt   time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(screentime.SystemClock)
}

// NewMemoryWithClock creates a memory store whose CreatedAt values come
// from clock.
func NewMemoryWithClock(clock screentime.Clock) *Memory {
	return &Memory{
		clock:       clock,
		types:       make(map[int64]screentime.AdjustmentType),
		adjustments: make(map[int64]adjustmentRow),
		timeEntries: make(map[int64]screentime.TimeEntry),
	}
}

// =============================================================================
// LOCKED ENTRY POINTS (screentime.Store)
// =============================================================================

func (m *Memory) CreateAdjustmentType(ctx context.Context, description string, adjustment screentime.Minutes) (screentime.AdjustmentType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(false).CreateAdjustmentType(ctx, description, adjustment)
}

func (m *Memory) GetAdjustmentType(ctx context.Context, id int64) (screentime.AdjustmentType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view(true).GetAdjustmentType(ctx, id)
}

func (m *Memory) ListAdjustmentTypes(ctx context.Context) ([]screentime.AdjustmentType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view(true).ListAdjustmentTypes(ctx)
}

func (m *Memory) DeleteAdjustmentType(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(false).DeleteAdjustmentType(ctx, id)
}

func (m *Memory) CreateAdjustment(ctx context.Context, typeID int64, description *string) (screentime.Adjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(false).CreateAdjustment(ctx, typeID, description)
}

func (m *Memory) GetAdjustment(ctx context.Context, id int64) (screentime.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view(true).GetAdjustment(ctx, id)
}

func (m *Memory) ListAdjustments(ctx context.Context, filter screentime.AdjustmentFilter) ([]screentime.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view(true).ListAdjustments(ctx, filter)
}

func (m *Memory) DeleteAdjustment(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(false).DeleteAdjustment(ctx, id)
}

func (m *Memory) CreateTimeEntry(ctx context.Context, minutes screentime.Minutes) (screentime.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(false).CreateTimeEntry(ctx, minutes)
}

func (m *Memory) GetTimeEntry(ctx context.Context, id int64) (screentime.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view(true).GetTimeEntry(ctx, id)
}

func (m *Memory) ListTimeEntries(ctx context.Context, filter screentime.TimeEntryFilter) ([]screentime.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view(true).ListTimeEntries(ctx, filter)
}

func (m *Memory) DeleteTimeEntry(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view(false).DeleteTimeEntry(ctx, id)
}

// =============================================================================
// TRANSACTIONAL READS (screentime.TxStore)
// =============================================================================

// ReadTx runs fn while holding the read lock, so every query fn makes sees
// the same state. Writes through the view fail.
func (m *Memory) ReadTx(_ context.Context, fn func(screentime.Store) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.view(true))
}

func (m *Memory) view(readOnly bool) *memoryView {
	return &memoryView{m: m, readOnly: readOnly}
}

// =============================================================================
// UNLOCKED VIEW - Callers hold m.mu
// =============================================================================

type memoryView struct {
	m        *Memory
	readOnly bool
}

func (v *memoryView) CreateAdjustmentType(_ context.Context, description string, adjustment screentime.Minutes) (screentime.AdjustmentType, error) {
	if v.readOnly {
		return screentime.AdjustmentType{}, screentime.NewStorageError("create adjustment type", errReadOnly)
	}
	if err := screentime.ValidateAdjustmentType(description); err != nil {
		return screentime.AdjustmentType{}, err
	}

	v.m.lastTypeID++
	t := screentime.AdjustmentType{ID: v.m.lastTypeID, Description: description, Adjustment: adjustment}
	v.m.types[t.ID] = t
	return t, nil
}

func (v *memoryView) GetAdjustmentType(_ context.Context, id int64) (screentime.AdjustmentType, error) {
	t, ok := v.m.types[id]
	if !ok {
		return screentime.AdjustmentType{}, &screentime.NotFoundError{Kind: screentime.KindAdjustmentType, ID: id}
	}
	return t, nil
}

func (v *memoryView) ListAdjustmentTypes(_ context.Context) ([]screentime.AdjustmentType, error) {
	result := make([]screentime.AdjustmentType, 0, len(v.m.types))
	for id := int64(1); id <= v.m.lastTypeID; id++ {
		if t, ok := v.m.types[id]; ok {
			result = append(result, t)
		}
	}
	return result, nil
}

func (v *memoryView) DeleteAdjustmentType(_ context.Context, id int64) error {
	if v.readOnly {
		return screentime.NewStorageError("delete adjustment type", errReadOnly)
	}
	if _, ok := v.m.types[id]; !ok {
		return &screentime.NotFoundError{Kind: screentime.KindAdjustmentType, ID: id}
	}

	refs := 0
	for _, row := range v.m.adjustments {
		if row.TypeID == id {
			refs++
		}
	}
	if refs > 0 {
		return &screentime.ConflictError{Kind: screentime.KindAdjustmentType, ID: id, References: refs}
	}

	delete(v.m.types, id)
	return nil
}

func (v *memoryView) CreateAdjustment(_ context.Context, typeID int64, description *string) (screentime.Adjustment, error) {
	if v.readOnly {
		return screentime.Adjustment{}, screentime.NewStorageError("create adjustment", errReadOnly)
	}
	if _, ok := v.m.types[typeID]; !ok {
		return screentime.Adjustment{}, &screentime.NotFoundError{Kind: screentime.KindAdjustmentType, ID: typeID}
	}

	v.m.lastAdjustmentID++
	row := adjustmentRow{
		ID:          v.m.lastAdjustmentID,
		TypeID:      typeID,
		Description: copyString(description),
		CreatedAt:   v.m.clock(),
	}
	v.m.adjustments[row.ID] = row
	return v.join(row), nil
}

func (v *memoryView) GetAdjustment(_ context.Context, id int64) (screentime.Adjustment, error) {
	row, ok := v.m.adjustments[id]
	if !ok {
		return screentime.Adjustment{}, &screentime.NotFoundError{Kind: screentime.KindAdjustment, ID: id}
	}
	return v.join(row), nil
}

func (v *memoryView) ListAdjustments(_ context.Context, filter screentime.AdjustmentFilter) ([]screentime.Adjustment, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var result []screentime.Adjustment
	for _, row := range v.m.adjustments {
		a := v.join(row)
		if filter.Match(a) {
			result = append(result, a)
		}
	}
	screentime.SortAdjustmentsNewestFirst(result)
	return screentime.Truncate(result, filter.Limit), nil
}

func (v *memoryView) DeleteAdjustment(_ context.Context, id int64) error {
	if v.readOnly {
		return screentime.NewStorageError("delete adjustment", errReadOnly)
	}
	if _, ok := v.m.adjustments[id]; !ok {
		return &screentime.NotFoundError{Kind: screentime.KindAdjustment, ID: id}
	}
	delete(v.m.adjustments, id)
	return nil
}

func (v *memoryView) CreateTimeEntry(_ context.Context, minutes screentime.Minutes) (screentime.TimeEntry, error) {
	if v.readOnly {
		return screentime.TimeEntry{}, screentime.NewStorageError("create time entry", errReadOnly)
	}
	if err := screentime.ValidateTimeEntry(minutes); err != nil {
		return screentime.TimeEntry{}, err
	}

	v.m.lastTimeEntryID++
	te := screentime.TimeEntry{ID: v.m.lastTimeEntryID, Time: minutes, CreatedAt: v.m.clock()}
	v.m.timeEntries[te.ID] = te
	return te, nil
}

func (v *memoryView) GetTimeEntry(_ context.Context, id int64) (screentime.TimeEntry, error) {
	te, ok := v.m.timeEntries[id]
	if !ok {
		return screentime.TimeEntry{}, &screentime.NotFoundError{Kind: screentime.KindTimeEntry, ID: id}
	}
	return te, nil
}

func (v *memoryView) ListTimeEntries(_ context.Context, filter screentime.TimeEntryFilter) ([]screentime.TimeEntry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var result []screentime.TimeEntry
	for _, te := range v.m.timeEntries {
		if filter.Match(te) {
			result = append(result, te)
		}
	}
	screentime.SortTimeEntriesNewestFirst(result)
	return screentime.Truncate(result, filter.Limit), nil
}

func (v *memoryView) DeleteTimeEntry(_ context.Context, id int64) error {
	if v.readOnly {
		return screentime.NewStorageError("delete time entry", errReadOnly)
	}
	if _, ok := v.m.timeEntries[id]; !ok {
		return &screentime.NotFoundError{Kind: screentime.KindTimeEntry, ID: id}
	}
	delete(v.m.timeEntries, id)
	return nil
}

// join denormalizes the type's minutes onto the adjustment.
func (v *memoryView) join(row adjustmentRow) screentime.Adjustment {
	return screentime.Adjustment{
		ID:          row.ID,
		TypeID:      row.TypeID,
		Description: copyString(row.Description),
		CreatedAt:   row.CreatedAt,
		Minutes:     v.m.types[row.TypeID].Adjustment,
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

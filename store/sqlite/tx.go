package sqlite

import (
	"context"

	"github.com/warp/screentime/screentime"
)

// =============================================================================
// READ TRANSACTION VIEW (screentime.Store inside ReadTx)
// =============================================================================

// txStore exposes a read-only conn as a screentime.Store. Writes fail with a
// storage error; the transaction is rolled back when ReadTx returns.
type txStore struct {
	c *conn
}

func (ts *txStore) CreateAdjustmentType(ctx context.Context, description string, adjustment screentime.Minutes) (screentime.AdjustmentType, error) {
	return ts.c.createAdjustmentType(ctx, description, adjustment)
}

func (ts *txStore) GetAdjustmentType(ctx context.Context, id int64) (screentime.AdjustmentType, error) {
	return ts.c.getAdjustmentType(ctx, id)
}

func (ts *txStore) ListAdjustmentTypes(ctx context.Context) ([]screentime.AdjustmentType, error) {
	return ts.c.listAdjustmentTypes(ctx)
}

func (ts *txStore) DeleteAdjustmentType(_ context.Context, _ int64) error {
	return screentime.NewStorageError("delete adjustment type", errReadOnly)
}

func (ts *txStore) CreateAdjustment(ctx context.Context, typeID int64, description *string) (screentime.Adjustment, error) {
	return ts.c.createAdjustment(ctx, typeID, description)
}

func (ts *txStore) GetAdjustment(ctx context.Context, id int64) (screentime.Adjustment, error) {
	return ts.c.getAdjustment(ctx, id)
}

func (ts *txStore) ListAdjustments(ctx context.Context, filter screentime.AdjustmentFilter) ([]screentime.Adjustment, error) {
	return ts.c.listAdjustments(ctx, filter)
}

func (ts *txStore) DeleteAdjustment(ctx context.Context, id int64) error {
	return ts.c.deleteByID(ctx, "adjustment", screentime.KindAdjustment, id)
}

func (ts *txStore) CreateTimeEntry(ctx context.Context, minutes screentime.Minutes) (screentime.TimeEntry, error) {
	return ts.c.createTimeEntry(ctx, minutes)
}

func (ts *txStore) GetTimeEntry(ctx context.Context, id int64) (screentime.TimeEntry, error) {
	return ts.c.getTimeEntry(ctx, id)
}

func (ts *txStore) ListTimeEntries(ctx context.Context, filter screentime.TimeEntryFilter) ([]screentime.TimeEntry, error) {
	return ts.c.listTimeEntries(ctx, filter)
}

func (ts *txStore) DeleteTimeEntry(ctx context.Context, id int64) error {
	return ts.c.deleteByID(ctx, "time_entry", screentime.KindTimeEntry, id)
}

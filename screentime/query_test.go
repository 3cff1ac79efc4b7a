package screentime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/screentime/screentime"
	"github.com/warp/screentime/screentime/store"
)

// seedAdjustments creates two types and five adjustments at epoch+0m..+4m,
// alternating types (chores, chores, penalty, chores, penalty).
func seedAdjustments(t *testing.T, s screentime.Store) (chores, penalty screentime.AdjustmentType) {
	t.Helper()
	ctx := context.Background()

	chores, err := s.CreateAdjustmentType(ctx, "Chores", 20)
	require.NoError(t, err)
	penalty, err = s.CreateAdjustmentType(ctx, "Late to bed", -10)
	require.NoError(t, err)

	for _, typ := range []screentime.AdjustmentType{chores, chores, penalty, chores, penalty} {
		_, err := s.CreateAdjustment(ctx, typ.ID, nil)
		require.NoError(t, err)
	}
	return chores, penalty
}

func adjustmentIDs(adjs []screentime.Adjustment) []int64 {
	ids := make([]int64, len(adjs))
	for i, a := range adjs {
		ids[i] = a.ID
	}
	return ids
}

func TestListAdjustments_NoFilter_NewestFirst(t *testing.T) {
	s := newTestStore()
	seedAdjustments(t, s)

	adjs, err := screentime.NewQueryService(s).ListAdjustments(context.Background(), screentime.AdjustmentFilter{})
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 4, 3, 2, 1}, adjustmentIDs(adjs))
}

func TestListAdjustments_MinutesJoinedFromType(t *testing.T) {
	s := newTestStore()
	chores, penalty := seedAdjustments(t, s)

	adjs, err := screentime.NewQueryService(s).ListAdjustments(context.Background(), screentime.AdjustmentFilter{})
	require.NoError(t, err)

	for _, a := range adjs {
		switch a.TypeID {
		case chores.ID:
			assert.Equal(t, screentime.Minutes(20), a.Minutes)
		case penalty.ID:
			assert.Equal(t, screentime.Minutes(-10), a.Minutes)
		}
	}
}

func TestListAdjustments_Limit(t *testing.T) {
	s := newTestStore()
	seedAdjustments(t, s)
	q := screentime.NewQueryService(s)
	ctx := context.Background()

	tests := []struct {
		name  string
		limit int
		want  []int64
	}{
		{"zero is empty", 0, []int64{}},
		{"fewer than total", 2, []int64{5, 4}},
		{"exactly total", 5, []int64{5, 4, 3, 2, 1}},
		{"more than total", 50, []int64{5, 4, 3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adjs, err := q.ListAdjustments(ctx, screentime.AdjustmentFilter{Limit: ptr(tt.limit)})
			require.NoError(t, err)
			assert.NotNil(t, adjs)
			assert.Equal(t, tt.want, adjustmentIDs(adjs))
		})
	}
}

func TestListAdjustments_NegativeLimit_Rejected(t *testing.T) {
	_, err := screentime.NewQueryService(newTestStore()).ListAdjustments(context.Background(),
		screentime.AdjustmentFilter{Limit: ptr(-1)})

	var ve *screentime.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "limit", ve.Field)
}

func TestListAdjustments_Since_Inclusive(t *testing.T) {
	s := newTestStore()
	seedAdjustments(t, s)

	adjs, err := screentime.NewQueryService(s).ListAdjustments(context.Background(),
		screentime.AdjustmentFilter{Since: ptr(epoch.Add(2 * time.Minute))})
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 4, 3}, adjustmentIDs(adjs))
	for _, a := range adjs {
		assert.False(t, a.CreatedAt.Before(epoch.Add(2*time.Minute)))
	}
}

func TestListAdjustments_SinceInFuture_Empty(t *testing.T) {
	s := newTestStore()
	seedAdjustments(t, s)

	adjs, err := screentime.NewQueryService(s).ListAdjustments(context.Background(),
		screentime.AdjustmentFilter{Since: ptr(time.Now().Add(24 * time.Hour))})
	require.NoError(t, err)
	assert.Empty(t, adjs)
}

func TestListAdjustments_ByType(t *testing.T) {
	s := newTestStore()
	_, penalty := seedAdjustments(t, s)

	adjs, err := screentime.NewQueryService(s).ListAdjustments(context.Background(),
		screentime.AdjustmentFilter{Type: ptr(penalty.ID)})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 3}, adjustmentIDs(adjs))
}

func TestListAdjustments_UnknownType_EmptyNotError(t *testing.T) {
	s := newTestStore()
	seedAdjustments(t, s)

	adjs, err := screentime.NewQueryService(s).ListAdjustments(context.Background(),
		screentime.AdjustmentFilter{Type: ptr(int64(404))})
	require.NoError(t, err)
	assert.NotNil(t, adjs)
	assert.Empty(t, adjs)
}

func TestListAdjustments_TypeWithoutAdjustments_Empty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedAdjustments(t, s)
	unused, err := s.CreateAdjustmentType(ctx, "Unused", 5)
	require.NoError(t, err)

	adjs, err := screentime.NewQueryService(s).ListAdjustments(ctx, screentime.AdjustmentFilter{Type: ptr(unused.ID)})
	require.NoError(t, err)
	assert.Empty(t, adjs)
}

func TestListAdjustments_CombinedFilters(t *testing.T) {
	s := newTestStore()
	chores, _ := seedAdjustments(t, s)

	adjs, err := screentime.NewQueryService(s).ListAdjustments(context.Background(), screentime.AdjustmentFilter{
		Type:  ptr(chores.ID),
		Since: ptr(epoch.Add(time.Minute)),
		Limit: ptr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, adjustmentIDs(adjs))
}

func TestListAdjustments_IdenticalTimestamps_TieBreakByID(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryWithClock(frozenClock(epoch))

	typ, err := s.CreateAdjustmentType(ctx, "Chores", 10)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.CreateAdjustment(ctx, typ.ID, nil)
		require.NoError(t, err)
	}

	adjs, err := screentime.NewQueryService(s).ListAdjustments(ctx, screentime.AdjustmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, adjustmentIDs(adjs))
}

func TestListTimeEntries_SinceAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, m := range []screentime.Minutes{10, 20, 30, 40} {
		_, err := s.CreateTimeEntry(ctx, m)
		require.NoError(t, err)
	}
	q := screentime.NewQueryService(s)

	entries, err := q.ListTimeEntries(ctx, screentime.TimeEntryFilter{Since: ptr(epoch.Add(time.Minute)), Limit: ptr(2)})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, screentime.Minutes(40), entries[0].Time)
	assert.Equal(t, screentime.Minutes(30), entries[1].Time)

	entries, err = q.ListTimeEntries(ctx, screentime.TimeEntryFilter{Limit: ptr(0)})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListAdjustmentTypes_CreationOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	q := screentime.NewQueryService(s)

	types, err := q.ListAdjustmentTypes(ctx)
	require.NoError(t, err)
	assert.NotNil(t, types)
	assert.Empty(t, types)

	for _, d := range []string{"Zebra chores", "Apple chores", "Middle chores"} {
		_, err := s.CreateAdjustmentType(ctx, d, 5)
		require.NoError(t, err)
	}

	types, err = q.ListAdjustmentTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 3)
	assert.Equal(t, "Zebra chores", types[0].Description)
	assert.Equal(t, "Apple chores", types[1].Description)
	assert.Equal(t, "Middle chores", types[2].Description)
}

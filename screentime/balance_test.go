package screentime_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/screentime/screentime"
	"github.com/warp/screentime/screentime/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var epoch = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

// steppingClock returns epoch, epoch+1m, epoch+2m, ...
func steppingClock() screentime.Clock {
	next := epoch
	return func() time.Time {
		t := next
		next = next.Add(time.Minute)
		return t
	}
}

func frozenClock(t time.Time) screentime.Clock {
	return func() time.Time { return t }
}

func newTestStore() *store.Memory {
	return store.NewMemoryWithClock(steppingClock())
}

func ptr[T any](v T) *T { return &v }

func currentMinutes(t *testing.T, s screentime.Store) screentime.Minutes {
	t.Helper()
	b, err := screentime.NewBalanceEngine(s).Current(context.Background())
	require.NoError(t, err)
	return b.Minutes
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestBalance_CleanedRoomMinusTimeEntry(t *testing.T) {
	// GIVEN: "Cleaned room" worth 30 minutes, applied once
	// WHEN: 10 minutes of screen time are used
	// THEN: 20 minutes remain

	ctx := context.Background()
	s := newTestStore()

	cleaned, err := s.CreateAdjustmentType(ctx, "Cleaned room", 30)
	require.NoError(t, err)
	_, err = s.CreateAdjustment(ctx, cleaned.ID, nil)
	require.NoError(t, err)
	_, err = s.CreateTimeEntry(ctx, 10)
	require.NoError(t, err)

	b, err := screentime.NewBalanceEngine(s).Current(ctx)
	require.NoError(t, err)

	assert.Equal(t, screentime.Minutes(20), b.Minutes)
	assert.Equal(t, screentime.Minutes(30), b.Adjusted)
	assert.Equal(t, screentime.Minutes(10), b.Spent)
	assert.Equal(t, 1, b.Adjustments)
	assert.Equal(t, 1, b.TimeEntries)
}

func TestBalance_OnlyTimeEntries_GoesNegative(t *testing.T) {
	// GIVEN: no adjustments
	// WHEN: 15 and 5 minutes are used
	// THEN: balance is -20, not clamped at zero

	ctx := context.Background()
	s := newTestStore()

	_, err := s.CreateTimeEntry(ctx, 15)
	require.NoError(t, err)
	_, err = s.CreateTimeEntry(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, screentime.Minutes(-20), currentMinutes(t, s))
}

func TestBalance_EmptyStore_IsZero(t *testing.T) {
	assert.Equal(t, screentime.Minutes(0), currentMinutes(t, newTestStore()))
}

func TestBalance_PenaltyType_Deducts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	reward, err := s.CreateAdjustmentType(ctx, "Homework done", 45)
	require.NoError(t, err)
	penalty, err := s.CreateAdjustmentType(ctx, "Talked back", -15)
	require.NoError(t, err)

	_, err = s.CreateAdjustment(ctx, reward.ID, nil)
	require.NoError(t, err)
	_, err = s.CreateAdjustment(ctx, penalty.ID, ptr("at dinner"))
	require.NoError(t, err)

	assert.Equal(t, screentime.Minutes(30), currentMinutes(t, s))
}

// =============================================================================
// DELETION
// =============================================================================

func TestBalance_DeleteAdjustment_RemovesExactlyItsContribution(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	big, err := s.CreateAdjustmentType(ctx, "Mowed lawn", 60)
	require.NoError(t, err)
	small, err := s.CreateAdjustmentType(ctx, "Fed the cat", 5)
	require.NoError(t, err)

	a1, err := s.CreateAdjustment(ctx, big.ID, nil)
	require.NoError(t, err)
	_, err = s.CreateAdjustment(ctx, small.ID, nil)
	require.NoError(t, err)
	_, err = s.CreateTimeEntry(ctx, 20)
	require.NoError(t, err)

	before := currentMinutes(t, s)
	require.Equal(t, screentime.Minutes(45), before)

	require.NoError(t, s.DeleteAdjustment(ctx, a1.ID))
	assert.Equal(t, before-60, currentMinutes(t, s))
}

func TestBalance_DeleteTimeEntry_RemovesExactlyItsContribution(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.CreateTimeEntry(ctx, 15)
	require.NoError(t, err)
	te, err := s.CreateTimeEntry(ctx, 5)
	require.NoError(t, err)

	require.NoError(t, s.DeleteTimeEntry(ctx, te.ID))
	assert.Equal(t, screentime.Minutes(-15), currentMinutes(t, s))
}

func TestBalance_DeleteMissingAdjustment_NotFoundAndUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	typ, err := s.CreateAdjustmentType(ctx, "Cleaned room", 30)
	require.NoError(t, err)
	_, err = s.CreateAdjustment(ctx, typ.ID, nil)
	require.NoError(t, err)

	err = s.DeleteAdjustment(ctx, 999)

	assert.ErrorIs(t, err, screentime.ErrNotFound)
	var nf *screentime.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, screentime.KindAdjustment, nf.Kind)
	assert.Equal(t, int64(999), nf.ID)
	assert.Equal(t, screentime.Minutes(30), currentMinutes(t, s))
}

func TestBalance_CreateAdjustmentWithMissingType_NotFoundAndUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.CreateAdjustment(ctx, 42, nil)

	assert.True(t, screentime.IsNotFound(err))
	assert.Equal(t, screentime.Minutes(0), currentMinutes(t, s))
}

// =============================================================================
// PROPERTY: balance equals live sums
// =============================================================================

func TestBalance_RandomHistory_EqualsLiveSums(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 20; run++ {
		s := newTestStore()

		var types []screentime.AdjustmentType
		for i := 0; i < 4; i++ {
			typ, err := s.CreateAdjustmentType(ctx, "rule", screentime.Minutes(rng.Intn(121)-60))
			require.NoError(t, err)
			types = append(types, typ)
		}

		liveAdjustments := map[int64]screentime.Minutes{}
		liveEntries := map[int64]screentime.Minutes{}

		for step := 0; step < 60; step++ {
			switch rng.Intn(4) {
			case 0, 1:
				typ := types[rng.Intn(len(types))]
				a, err := s.CreateAdjustment(ctx, typ.ID, nil)
				require.NoError(t, err)
				liveAdjustments[a.ID] = typ.Adjustment
			case 2:
				te, err := s.CreateTimeEntry(ctx, screentime.Minutes(rng.Intn(90)))
				require.NoError(t, err)
				liveEntries[te.ID] = te.Time
			case 3:
				for id := range liveAdjustments {
					require.NoError(t, s.DeleteAdjustment(ctx, id))
					delete(liveAdjustments, id)
					break
				}
				for id := range liveEntries {
					require.NoError(t, s.DeleteTimeEntry(ctx, id))
					delete(liveEntries, id)
					break
				}
			}
		}

		var want screentime.Minutes
		for _, m := range liveAdjustments {
			want += m
		}
		for _, m := range liveEntries {
			want -= m
		}
		assert.Equal(t, want, currentMinutes(t, s), "run %d", run)
	}
}

// =============================================================================
// WINDOWS AND TIMELINE
// =============================================================================

func TestBalance_Window_OnlyCountsRecordsInside(t *testing.T) {
	// Records at epoch+0m .. epoch+3m
	ctx := context.Background()
	s := newTestStore()

	typ, err := s.CreateAdjustmentType(ctx, "Read a book", 20)
	require.NoError(t, err)
	_, err = s.CreateAdjustment(ctx, typ.ID, nil) // +0m
	require.NoError(t, err)
	_, err = s.CreateTimeEntry(ctx, 5) // +1m
	require.NoError(t, err)
	_, err = s.CreateAdjustment(ctx, typ.ID, nil) // +2m
	require.NoError(t, err)
	_, err = s.CreateTimeEntry(ctx, 7) // +3m
	require.NoError(t, err)

	engine := screentime.NewBalanceEngine(s)

	b, err := engine.Window(ctx, screentime.Window{
		Since: ptr(epoch.Add(1 * time.Minute)),
		Until: ptr(epoch.Add(2 * time.Minute)),
	})
	require.NoError(t, err)
	assert.Equal(t, screentime.Minutes(15), b.Minutes)
	assert.Equal(t, 1, b.Adjustments)
	assert.Equal(t, 1, b.TimeEntries)

	b, err = engine.Window(ctx, screentime.Window{Since: ptr(epoch.Add(time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, screentime.Minutes(0), b.Minutes)
}

func TestBalance_Window_UntilBeforeSince_Rejected(t *testing.T) {
	_, err := screentime.NewBalanceEngine(newTestStore()).Window(context.Background(), screentime.Window{
		Since: ptr(epoch),
		Until: ptr(epoch.Add(-time.Second)),
	})
	assert.ErrorIs(t, err, screentime.ErrValidation)
}

func TestTimeline_RunningBalance_OldestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	typ, err := s.CreateAdjustmentType(ctx, "Cleaned room", 30)
	require.NoError(t, err)
	a, err := s.CreateAdjustment(ctx, typ.ID, nil)
	require.NoError(t, err)
	te, err := s.CreateTimeEntry(ctx, 45)
	require.NoError(t, err)

	events, err := screentime.NewBalanceEngine(s).Timeline(ctx, screentime.Window{})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, screentime.EventAdjustment, events[0].Kind)
	assert.Equal(t, a.ID, events[0].RecordID)
	assert.Equal(t, typ.ID, events[0].TypeID)
	assert.Equal(t, screentime.Minutes(30), events[0].Balance)

	assert.Equal(t, screentime.EventTimeEntry, events[1].Kind)
	assert.Equal(t, te.ID, events[1].RecordID)
	assert.Equal(t, screentime.Minutes(-45), events[1].Delta)
	assert.Equal(t, screentime.Minutes(-15), events[1].Balance)
}

func TestTimeline_SameInstant_AdjustmentsFirstThenByID(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryWithClock(frozenClock(epoch))

	_, err := s.CreateTimeEntry(ctx, 10)
	require.NoError(t, err)
	typ, err := s.CreateAdjustmentType(ctx, "Walked dog", 15)
	require.NoError(t, err)
	_, err = s.CreateAdjustment(ctx, typ.ID, nil)
	require.NoError(t, err)
	_, err = s.CreateAdjustment(ctx, typ.ID, nil)
	require.NoError(t, err)

	events, err := screentime.NewBalanceEngine(s).Timeline(ctx, screentime.Window{})
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, screentime.EventAdjustment, events[0].Kind)
	assert.Equal(t, int64(1), events[0].RecordID)
	assert.Equal(t, screentime.EventAdjustment, events[1].Kind)
	assert.Equal(t, int64(2), events[1].RecordID)
	assert.Equal(t, screentime.EventTimeEntry, events[2].Kind)
	assert.Equal(t, screentime.Minutes(20), events[2].Balance)
}

func TestBalance_AsOfUsesEngineClock(t *testing.T) {
	at := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	b, err := screentime.NewBalanceEngine(newTestStore()).WithClock(frozenClock(at)).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at, b.AsOf)
}

// =============================================================================
// STORAGE ERRORS PROPAGATE UNCHANGED
// =============================================================================

type failingStore struct {
	screentime.Store
	err error
}

func (f failingStore) ListAdjustments(context.Context, screentime.AdjustmentFilter) ([]screentime.Adjustment, error) {
	return nil, f.err
}

func TestBalance_StoreError_Propagated(t *testing.T) {
	cause := screentime.NewStorageError("list adjustments", assert.AnError)
	engine := screentime.NewBalanceEngine(failingStore{Store: store.NewMemory(), err: cause})

	_, err := engine.Current(context.Background())

	assert.Same(t, cause, err)
	assert.ErrorIs(t, err, screentime.ErrStorage)
	assert.ErrorIs(t, err, assert.AnError)
}

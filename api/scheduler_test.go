package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/screentime/screentime"
	"github.com/warp/screentime/screentime/store"
)

func newTestGauge() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_balance_minutes"})
}

func TestBalanceMonitor_RunNow(t *testing.T) {
	// GIVEN: A store with +30 earned and 45 spent
	ctx := context.Background()
	s := store.NewMemory()
	typ, err := s.CreateAdjustmentType(ctx, "Chores", 30)
	require.NoError(t, err)
	_, err = s.CreateAdjustment(ctx, typ.ID, nil)
	require.NoError(t, err)
	_, err = s.CreateTimeEntry(ctx, 45)
	require.NoError(t, err)

	m := NewBalanceMonitor(screentime.NewBalanceEngine(s), 0)
	m.Gauge = newTestGauge()

	// WHEN: Refreshing
	b, err := m.RunNow(ctx)

	// THEN: The gauge carries the folded balance
	require.NoError(t, err)
	assert.Equal(t, screentime.Minutes(-15), b.Minutes)
	assert.Equal(t, float64(-15), testutil.ToFloat64(m.Gauge))

	status := m.Status()
	assert.Equal(t, 1, status.Runs)
	assert.NoError(t, status.Err)
	assert.Equal(t, screentime.Minutes(-15), status.Balance.Minutes)
}

type brokenStore struct {
	screentime.Store
}

func (brokenStore) ListAdjustments(context.Context, screentime.AdjustmentFilter) ([]screentime.Adjustment, error) {
	return nil, screentime.NewStorageError("list adjustments", errors.New("disk I/O error"))
}

func TestBalanceMonitor_RunNow_ErrorKeepsGauge(t *testing.T) {
	m := NewBalanceMonitor(screentime.NewBalanceEngine(brokenStore{}), 0)
	m.Gauge = newTestGauge()
	m.Gauge.Set(42)

	_, err := m.RunNow(context.Background())

	assert.ErrorIs(t, err, screentime.ErrStorage)
	assert.Equal(t, float64(42), testutil.ToFloat64(m.Gauge))
	assert.ErrorIs(t, m.Status().Err, screentime.ErrStorage)
}

func TestBalanceMonitor_StartStop(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	_, err := s.CreateTimeEntry(ctx, 5)
	require.NoError(t, err)

	m := NewBalanceMonitor(screentime.NewBalanceEngine(s), 10*time.Millisecond)
	m.Gauge = newTestGauge()

	m.Start()
	m.Start() // second start is a no-op
	require.Eventually(t, func() bool { return m.Status().Runs >= 2 }, time.Second, 5*time.Millisecond)
	m.Stop()

	runs := m.Status().Runs
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, runs, m.Status().Runs, "no refreshes after Stop")
	assert.Equal(t, float64(-5), testutil.ToFloat64(m.Gauge))

	m.Stop() // stopping twice is safe
}

func TestBalanceMonitor_Disabled(t *testing.T) {
	m := NewBalanceMonitor(screentime.NewBalanceEngine(store.NewMemory()), 0)

	assert.False(t, m.Enabled)
	m.Start()
	m.Stop()
	assert.Equal(t, 0, m.Status().Runs)
}

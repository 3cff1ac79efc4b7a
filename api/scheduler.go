/*
scheduler.go - Periodic balance monitor

PURPOSE:
  Recomputes the all-time balance on a fixed interval and publishes it as
  the screentime_balance_minutes gauge, so a dashboard sees the balance
  move even when nobody calls GET /time.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Each run is a full fold through the balance engine; nothing is cached
    between runs and nothing is written back to the store
  - Failures are logged and counted, never fatal

CONFIGURATION:
  - Interval: How often to refresh (config monitor.interval, default 1m)
  - Enabled:  False when Interval is zero

USAGE:
  monitor := NewBalanceMonitor(engine, time.Minute)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - handlers.go: GetBalance sets the same gauge on demand
  - screentime/balance.go: BalanceEngine
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/warp/screentime/screentime"
)

// BalanceMonitor refreshes the balance gauge in the background.
type BalanceMonitor struct {
	Engine   *screentime.BalanceEngine
	Gauge    prometheus.Gauge
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	stateMu sync.Mutex
	last    screentime.Balance
	lastErr error
	runs    int
}

// NewBalanceMonitor creates a monitor publishing to BalanceMinutes.
func NewBalanceMonitor(engine *screentime.BalanceEngine, interval time.Duration) *BalanceMonitor {
	return &BalanceMonitor{
		Engine:   engine,
		Gauge:    BalanceMinutes,
		Interval: interval,
		Enabled:  interval > 0,
	}
}

// Start begins periodic refreshes. It refreshes once immediately.
func (m *BalanceMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled {
		slog.Info("Balance monitor disabled")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.Interval)
	m.stop = make(chan struct{})
	m.wg.Add(1)

	go m.run()

	slog.Info("Balance monitor started", "interval", m.Interval)
}

// Stop halts the monitor and waits for an in-flight refresh.
func (m *BalanceMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stop)
	m.wg.Wait()
	m.ticker = nil
	slog.Info("Balance monitor stopped")
}

func (m *BalanceMonitor) run() {
	defer m.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-m.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	m.RunNow(ctx) //nolint:errcheck // logged in RunNow

	for {
		select {
		case <-m.ticker.C:
			m.RunNow(ctx) //nolint:errcheck // logged in RunNow
		case <-m.stop:
			return
		}
	}
}

// RunNow refreshes the gauge immediately and returns the computed balance.
func (m *BalanceMonitor) RunNow(ctx context.Context) (screentime.Balance, error) {
	b, err := m.Engine.Current(ctx)

	m.stateMu.Lock()
	m.runs++
	m.lastErr = err
	if err == nil {
		m.last = b
	}
	m.stateMu.Unlock()

	if err != nil {
		MonitorRefreshes.WithLabelValues("error").Inc()
		slog.Error("Balance refresh failed", "error", err)
		return b, err
	}

	MonitorRefreshes.WithLabelValues("ok").Inc()
	m.Gauge.Set(float64(b.Minutes))
	slog.Debug("Balance refreshed", "minutes", int64(b.Minutes), "formatted", b.Minutes.Format())
	return b, nil
}

// MonitorStatus is a snapshot of the monitor's most recent refreshes.
type MonitorStatus struct {
	Balance screentime.Balance // last successful refresh
	Err     error              // result of the latest refresh
	Runs    int
}

// Status reports the latest refresh results.
func (m *BalanceMonitor) Status() MonitorStatus {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return MonitorStatus{Balance: m.last, Err: m.lastErr, Runs: m.runs}
}

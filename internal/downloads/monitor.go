package downloads

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/remedia-app/remedia/internal/host"
)

// DefaultDebounce is the trailing-edge window for queue-status refreshes.
const DefaultDebounce = 100 * time.Millisecond

// StatsFunc receives the refreshed queue stats.
type StatsFunc func(host.QueueStats)

// Monitor coalesces bursts of queue activity into a single host query.
// Every Trigger restarts the debounce timer; the query fires once the
// burst goes quiet. A failed query keeps the previously published stats.
type Monitor struct {
	engine   host.Host
	onStats  StatsFunc
	logger   *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	last   host.QueueStats
	closed bool
}

// NewMonitor wires a monitor with the default debounce window.
func NewMonitor(engine host.Host, onStats StatsFunc, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		engine:   engine,
		onStats:  onStats,
		logger:   logger.With("component", "queue-monitor"),
		debounce: DefaultDebounce,
	}
}

// SetDebounce overrides the debounce window.
func (m *Monitor) SetDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debounce = d
}

// Trigger schedules a refresh. Repeated triggers within the window reset
// the timer so only the trailing edge queries the host.
func (m *Monitor) Trigger() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, m.refresh)
}

func (m *Monitor) refresh() {
	stats, err := m.engine.GetQueueStatus(context.Background())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if err != nil {
		stats = m.last
	} else {
		m.last = stats
	}
	cb := m.onStats
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("queue status query failed", "error", err)
	}
	if cb != nil {
		cb(stats)
	}
}

// Stats returns the most recently published stats.
func (m *Monitor) Stats() host.QueueStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Close cancels any pending refresh. Subsequent triggers are ignored.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

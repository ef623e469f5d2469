package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/kimhsiao/memovox/backend/internal/logging"
	"github.com/kimhsiao/memovox/backend/internal/remote"
)

// DefaultProbeInterval is how often the monitor checks remote
// reachability when no interval is configured.
const DefaultProbeInterval = 30 * time.Second

// Monitor watches remote reachability and triggers a drain whenever
// connectivity comes back. It probes the note service on a fixed
// interval; an offline-to-online transition starts one SyncAll run.
type Monitor struct {
	engine   *Engine
	remote   remote.NoteService
	interval time.Duration

	stopCh chan struct{}
	wg     gosync.WaitGroup

	mu        gosync.RWMutex
	isRunning bool
	isOnline  bool
}

// NewMonitor creates a connectivity Monitor. A non-positive interval
// falls back to DefaultProbeInterval.
func NewMonitor(engine *Engine, remoteSvc remote.NoteService, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Monitor{
		engine:   engine,
		remote:   remoteSvc,
		interval: interval,
		isOnline: true, // assume online until a probe says otherwise
	}
}

// Start begins probing in the background. Calling Start on a running
// monitor is a no-op; a stopped monitor can be started again.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.wg.Add(1)
	go m.probeLoop(ctx, stopCh)

	logging.Info("Connectivity monitor started",
		map[string]interface{}{"interval_seconds": m.interval.Seconds()})
}

// Stop halts probing and waits for the probe goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	stopCh := m.stopCh
	m.mu.Unlock()

	close(stopCh)
	m.wg.Wait()

	logging.Info("Connectivity monitor stopped", nil)
}

// IsOnline reports the result of the most recent probe.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// IsRunning reports whether the monitor is active.
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}

// SetOnlineStatus overrides the tracked status directly. A transition
// from offline to online triggers a drain, same as a successful probe.
func (m *Monitor) SetOnlineStatus(ctx context.Context, isOnline bool) {
	m.mu.Lock()
	wasOnline := m.isOnline
	m.isOnline = isOnline
	m.mu.Unlock()

	if wasOnline == isOnline {
		return
	}

	logging.Info("Online status changed", map[string]interface{}{
		"was_online": wasOnline,
		"is_online":  isOnline,
	})

	if isOnline {
		m.drain(ctx)
	}
}

func (m *Monitor) probeLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// probe pings the remote service once and records the transition.
func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := m.remote.Ping(probeCtx)
	cancel()

	m.SetOnlineStatus(ctx, err == nil)
}

// drain kicks off one background sync run. Fire-and-forget: the engine's
// in-flight guard collapses overlapping runs. The WaitGroup tracks only
// the probe loop; drains are not joined on Stop.
func (m *Monitor) drain(ctx context.Context) {
	go func() {
		syncCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		if _, err := m.engine.SyncAll(syncCtx); err != nil {
			logging.Warn("Connectivity-triggered sync did not complete",
				map[string]interface{}{"error": err.Error()})
		}
	}()
}

package clipboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yiblet/clipstash/internal/clip"
)

const (
	DefaultPollInterval = 300 * time.Millisecond
	DefaultDebounce     = 500 * time.Millisecond
	DefaultQueueSize    = 16
)

// Handler consumes a captured payload. It runs on the monitor's single
// worker goroutine, so calls never overlap.
type Handler func(*clip.Payload)

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithDebounce sets the quiet window after a completed handler call during
// which new changes are consumed without being handled.
func WithDebounce(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.debounce = d }
}

// WithQueueSize sets the handoff buffer size.
func WithQueueSize(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.queueSize = n
		}
	}
}

// WithMonitorLogger sets the logger.
func WithMonitorLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) { m.log = l }
}

// WithMonitorClock overrides the clock used for debouncing.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// Monitor polls a Source and dispatches changed content to a Handler.
// The poller never waits on the handler: payloads go through a buffered
// queue and are dropped with a warning when it is full.
type Monitor struct {
	source    Source
	handle    Handler
	interval  time.Duration
	debounce  time.Duration
	queueSize int
	log       *slog.Logger
	now       func() time.Time

	queue chan *clip.Payload

	mu       sync.Mutex
	last     string // fingerprint of the last consumed change
	lastDone time.Time
}

// NewMonitor creates a monitor reading from source.
func NewMonitor(source Source, handle Handler, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		source:    source,
		handle:    handle,
		interval:  DefaultPollInterval,
		debounce:  DefaultDebounce,
		queueSize: DefaultQueueSize,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.queue = make(chan *clip.Payload, m.queueSize)
	return m
}

// Run polls until ctx is done, then drains queued payloads and returns.
// Content already on the clipboard when Run starts is not captured.
// A Monitor can be run only once.
func (m *Monitor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.work()
	}()

	m.prime()
	m.log.Info("clipboard monitor started", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(m.queue)
			wg.Wait()
			m.log.Info("clipboard monitor stopped")
			return nil
		case <-ticker.C:
			m.Poll()
		}
	}
}

// prime records the current clipboard as already seen.
func (m *Monitor) prime() {
	payload, err := m.source.Read()
	if err != nil || payload == nil {
		return
	}
	m.mu.Lock()
	m.last = payload.Fingerprint()
	m.mu.Unlock()
}

// Poll reads the source once and enqueues the payload if it changed.
// It reports whether a payload was enqueued.
func (m *Monitor) Poll() bool {
	payload, err := m.source.Read()
	if err != nil {
		m.log.Debug("clipboard read failed", "error", err)
		return false
	}

	m.mu.Lock()
	if payload == nil {
		m.last = ""
		m.mu.Unlock()
		return false
	}

	fp := payload.Fingerprint()
	if fp == m.last {
		m.mu.Unlock()
		return false
	}
	m.last = fp

	if !m.lastDone.IsZero() && m.now().Sub(m.lastDone) < m.debounce {
		m.mu.Unlock()
		m.log.Debug("clipboard change inside debounce window, skipping")
		return false
	}
	m.mu.Unlock()

	select {
	case m.queue <- payload:
		return true
	default:
		m.log.Warn("ingest queue full, dropping clipboard change", "kind", string(payload.Kind))
		return false
	}
}

// work runs the handler for queued payloads until the queue is closed.
func (m *Monitor) work() {
	for payload := range m.queue {
		m.handle(payload)

		m.mu.Lock()
		m.lastDone = m.now()
		m.mu.Unlock()
	}
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/slotwatch/internal/changes"
	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/fetch"
	"github.com/hamed0406/slotwatch/internal/metrics"
	"github.com/hamed0406/slotwatch/internal/notify"
	"github.com/hamed0406/slotwatch/internal/repo"
)

const (
	AlertTitle = "Visa slot availability changed"

	// OutcomeCancelled marks a cycle that never started because ctx ended
	// while waiting for the running one.
	OutcomeCancelled = "cancelled"
)

type Options struct {
	Interval     time.Duration
	Threshold    int
	FetchTimeout time.Duration
	TableFile    string // comparison table is written here when set
}

type Monitor struct {
	Logger   *zap.Logger
	Fetcher  fetch.Fetcher
	Notifier notify.Notifier
	Alerts   repo.AlertLog    // optional
	Metrics  *metrics.Metrics // optional
	Options

	// state is touched only by the goroutine holding sem.
	state  State
	sem    chan struct{}
	cycles atomic.Int64
	status atomic.Pointer[Status]
	now    func() time.Time
}

// NewMonitor builds a monitor starting from initial. Pass State{} for a
// fresh process; tests inject a seeded state.
func NewMonitor(
	logger *zap.Logger,
	fetcher fetch.Fetcher,
	notifier notify.Notifier,
	alerts repo.AlertLog,
	m *metrics.Metrics,
	opts Options,
	initial State,
) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	// 0 is a valid threshold: any non-decrease alerts.
	if opts.Threshold < 0 {
		opts.Threshold = changes.DefaultThreshold
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 60 * time.Second
	}
	mon := &Monitor{
		Logger:   logger,
		Fetcher:  fetcher,
		Notifier: notifier,
		Alerts:   alerts,
		Metrics:  m,
		Options:  opts,
		state:    initial,
		sem:      make(chan struct{}, 1),
		now:      func() time.Time { return time.Now().UTC() },
	}
	mon.status.Store(&Status{Initialized: initial.Initialized, Snapshot: initial.Previous.Clone()})
	return mon
}

// Run does an immediate cycle, then one per Interval, until ctx is cancelled.
// Ticks that fire while a cycle is still running are skipped.
func (m *Monitor) Run(ctx context.Context) {
	m.Logger.Info("monitor_started",
		zap.Duration("interval", m.Interval),
		zap.Int("threshold", m.Threshold),
		zap.Duration("fetch_timeout", m.FetchTimeout),
	)
	t := time.NewTicker(m.Interval)
	defer t.Stop()

	m.RunOnce(ctx)
	m.skipMissedTick(t.C)

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info("monitor_stopped")
			return
		case <-t.C:
			m.RunOnce(ctx)
			m.skipMissedTick(t.C)
		}
	}
}

// skipMissedTick discards a tick the ticker buffered while a cycle overran,
// so the next cycle waits for the next interval instead of starting at once.
func (m *Monitor) skipMissedTick(c <-chan time.Time) {
	select {
	case <-c:
		m.Logger.Debug("tick_skipped", zap.Duration("interval", m.Interval))
	default:
	}
}

// RunOnce executes a single cycle. Calls are serialized, so a manual check
// waits for a running cycle instead of overlapping it.
func (m *Monitor) RunOnce(ctx context.Context) CycleReport {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return CycleReport{StartedAt: m.now(), FinishedAt: m.now(), Outcome: OutcomeCancelled, Error: ctx.Err().Error()}
	}
	defer func() { <-m.sem }()

	rep := m.cycle(ctx)

	m.cycles.Add(1)
	m.Metrics.Cycle(rep.Outcome)
	m.status.Store(&Status{
		Initialized: m.state.Initialized,
		Cycles:      m.cycles.Load(),
		Last:        &rep,
		Snapshot:    m.state.Previous.Clone(),
	})
	m.logMemory()
	return rep
}

// Status returns the view published by the last cycle.
func (m *Monitor) Status() Status {
	return *m.status.Load()
}

func (m *Monitor) cycle(ctx context.Context) (rep CycleReport) {
	rep.StartedAt = m.now()
	defer func() {
		if p := recover(); p != nil {
			m.Logger.Error("cycle_panic", zap.Any("panic", p), zap.Stack("stack"))
			rep.Outcome = metrics.OutcomePanic
			rep.Error = fmt.Sprint(p)
		}
		rep.FinishedAt = m.now()
	}()

	fctx, cancel := context.WithTimeout(ctx, m.FetchTimeout)
	defer cancel()

	started := time.Now()
	current, err := m.Fetcher.Fetch(fctx)
	if err != nil {
		m.Logger.Warn("cycle_fetch_error", zap.Error(err), zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)))
		rep.Outcome = metrics.OutcomeFetchError
		rep.Error = err.Error()
		return rep
	}
	m.Metrics.Fetched(time.Since(started), current.Len(), current.TakenAt)
	rep.Records = current.Len()

	if !m.state.Initialized {
		m.state = Seeded(current)
		m.Logger.Info("baseline_seeded", zap.Int("records", current.Len()))
		rep.Outcome = metrics.OutcomeBaseline
		return rep
	}

	previous := m.state.Previous
	res := changes.Detect(current, previous, m.Threshold)
	rep.Changed = res.Changed()
	rep.Outcome = metrics.OutcomeQuiet

	if res.Changed() {
		if body, ok := changes.Compose(current, previous, m.Threshold); ok {
			rep.Outcome = metrics.OutcomeAlert
			rep.Alert = body
			m.dispatch(ctx, body)
		} else {
			m.Logger.Info("cycle_no_significant_increase", zap.Int("changed", len(res.Changes)))
		}
	} else {
		m.Logger.Info("cycle_no_change", zap.Int("records", current.Len()))
	}

	m.writeTable(previous, current)
	m.state = Seeded(current)
	return rep
}

func (m *Monitor) dispatch(ctx context.Context, body string) {
	rec := &domain.AlertRecord{
		Body:      body,
		Locations: strings.Count(body, "\n") + 1,
	}

	err := m.send(ctx, body)
	m.Metrics.AlertSent()
	if err != nil {
		for _, e := range notify.Errors(err) {
			channel := m.Notifier.Name()
			var ne *notify.NotificationError
			if errors.As(e, &ne) {
				channel = ne.Channel
			}
			m.Metrics.NotifyFailed(channel)
		}
		m.Logger.Warn("alert_notify_error", zap.Error(err), zap.Int("locations", rec.Locations))
		rec.Error = err.Error()
	} else {
		rec.Delivered = true
		m.Logger.Info("alert_sent", zap.Int("locations", rec.Locations))
	}

	if m.Alerts == nil {
		return
	}
	if err := m.Alerts.Record(ctx, rec); err != nil {
		m.Logger.Warn("alert_log_error", zap.Error(err))
	}
}

// send contains a panicking notifier so the cycle still advances its state.
func (m *Monitor) send(ctx context.Context, body string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			m.Logger.Error("notify_panic", zap.Any("panic", p), zap.Stack("stack"))
			err = &notify.NotificationError{Channel: m.Notifier.Name(), Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return m.Notifier.Send(ctx, AlertTitle, body)
}

func (m *Monitor) writeTable(previous, current domain.Snapshot) {
	if m.TableFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.TableFile), 0o755); err != nil {
		m.Logger.Warn("table_write_error", zap.Error(err))
		return
	}
	if err := os.WriteFile(m.TableFile, []byte(changes.Table(previous, current)), 0o644); err != nil {
		m.Logger.Warn("table_write_error", zap.String("path", m.TableFile), zap.Error(err))
	}
}

func (m *Monitor) logMemory() {
	if !m.Logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	const mb = 1024 * 1024
	m.Logger.Debug("cycle_memory",
		zap.Float64("sys_mb", float64(ms.Sys)/mb),
		zap.Float64("heap_alloc_mb", float64(ms.HeapAlloc)/mb),
		zap.Float64("heap_sys_mb", float64(ms.HeapSys)/mb),
		zap.Uint32("num_gc", ms.NumGC),
	)
}

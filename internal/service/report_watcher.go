package service

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"reports/internal/domain"
)

// EventReportChanged is emitted when the open report was rewritten in the
// store by someone else, e.g. the standalone MCP server.
const EventReportChanged = "report:changed-externally"

// DefaultWatchInterval is how often the store is polled.
const DefaultWatchInterval = 2 * time.Second

// ReportWatcher polls the store for changes to the report open in the
// editor. Writes the ReportService made itself only move the baseline.
type ReportWatcher struct {
	store    domain.ReportStore
	reports  *ReportService
	emitter  EventEmitter
	logger   *log.Logger
	interval time.Duration

	mu       sync.Mutex
	path     string
	lastSeen time.Time
	stopCh   chan struct{}
	done     chan struct{}
}

func NewReportWatcher(store domain.ReportStore, reports *ReportService, emitter EventEmitter, logger *log.Logger, interval time.Duration) *ReportWatcher {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &ReportWatcher{
		store:    store,
		reports:  reports,
		emitter:  emitter,
		logger:   logger.WithPrefix("poll"),
		interval: interval,
	}
}

// Start begins the polling loop.
func (w *ReportWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop(ctx, w.stopCh, w.done)
}

// Stop terminates the polling loop and waits for it.
func (w *ReportWatcher) Stop() {
	w.mu.Lock()
	stopCh, done := w.stopCh, w.done
	w.stopCh, w.done = nil, nil
	w.mu.Unlock()
	if stopCh != nil {
		close(stopCh)
		<-done
	}
}

func (w *ReportWatcher) pollLoop(ctx context.Context, stopCh, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Check compares the stored report with the last seen version and reports
// whether an external change was detected.
func (w *ReportWatcher) Check(ctx context.Context) bool {
	path := w.reports.CurrentPath()
	if path == "" {
		return false
	}
	rep, err := w.store.LoadReport(ctx, path)
	if err != nil {
		w.logger.Debug("check skipped", "path", path, "err", err)
		return false
	}

	w.mu.Lock()
	first := w.path != path
	changed := !first && !rep.UpdatedAt.Equal(w.lastSeen)
	w.path, w.lastSeen = path, rep.UpdatedAt
	w.mu.Unlock()

	if !changed || rep.UpdatedAt.Equal(w.reports.LastWrite(path)) {
		return false
	}
	w.logger.Info("report changed externally", "path", path)
	w.emitter.Emit(ctx, EventReportChanged, path)
	return true
}

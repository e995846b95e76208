package service

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"reports/internal/config"
)

// Scheduled job names, also used as running-guard keys.
const (
	JobAutosave    = "autosave"
	JobRefreshData = "refresh-data"
)

// Scheduler runs autosave and data refresh on cron specs. A job that is
// still running when its next tick fires is skipped.
type Scheduler struct {
	cfg          config.ScheduleConfig
	autosavePath string
	reports      *ReportService
	data         *DataService
	editor       *EditorService
	running      runningJobsGuard
	logger       *log.Logger

	cronSched    *cron.Cron
	lastAutosave uint64
}

func NewScheduler(cfg config.ScheduleConfig, autosavePath string, editor *EditorService, reports *ReportService, data *DataService, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		cfg:          cfg,
		autosavePath: autosavePath,
		reports:      reports,
		data:         data,
		editor:       editor,
		logger:       logger.WithPrefix("cron"),
	}
}

// Start registers the configured jobs and starts the cron runner. Empty
// specs disable their job. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.Stop()

	c := cron.New()
	jobs := 0
	if s.cfg.Autosave != "" && s.reports != nil {
		if _, err := c.AddFunc(s.cfg.Autosave, func() { s.run(ctx, JobAutosave, s.Autosave) }); err != nil {
			return fmt.Errorf("autosave schedule %q: %w", s.cfg.Autosave, err)
		}
		jobs++
	}
	if s.cfg.RefreshData != "" && s.data != nil {
		if _, err := c.AddFunc(s.cfg.RefreshData, func() { s.run(ctx, JobRefreshData, s.RefreshData) }); err != nil {
			return fmt.Errorf("refresh schedule %q: %w", s.cfg.RefreshData, err)
		}
		jobs++
	}
	if jobs == 0 {
		return nil
	}

	c.Start()
	s.cronSched = c
	s.logger.Info("scheduled", "jobs", jobs)
	return nil
}

func (s *Scheduler) run(ctx context.Context, job string, fn func(context.Context) error) {
	if !s.running.TryLock(job) {
		s.logger.Debug("still running, skipped", "job", job)
		return
	}
	defer s.running.Unlock(job)

	if err := fn(ctx); err != nil {
		s.logger.Error("job failed", "job", job, "err", err)
	}
}

// Autosave stores a copy of the editor document under the autosave path
// when it changed since the last publish and the last autosave.
func (s *Scheduler) Autosave(ctx context.Context) error {
	_, version := s.editor.Snapshot()
	if !s.editor.Dirty() || version == s.lastAutosave {
		return nil
	}
	if err := s.reports.SaveCopy(ctx, s.autosavePath, "autosave"); err != nil {
		return err
	}
	s.lastAutosave = version
	s.logger.Debug("autosaved", "path", s.autosavePath)
	return nil
}

// RefreshData refreshes every data view with a source.
func (s *Scheduler) RefreshData(ctx context.Context) error {
	n, err := s.data.RefreshAll(ctx)
	s.logger.Debug("data refreshed", "views", n)
	return err
}

// Stop halts the cron runner and waits for the jobs it started.
func (s *Scheduler) Stop() {
	if s.cronSched != nil {
		<-s.cronSched.Stop().Done()
		s.cronSched = nil
	}
}

// WaitRunning blocks until running jobs finish or ctx is cancelled.
func (s *Scheduler) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

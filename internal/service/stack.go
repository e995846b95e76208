package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"reports/internal/config"
	"reports/internal/domain"
	"reports/internal/placement"
	"reports/internal/secret"
	"reports/internal/storage"
)

// Stack is every service of one editing session wired against one config.
// The desktop app, the CLI and the standalone MCP server all build it the
// same way.
type Stack struct {
	DB        *storage.DB
	Store     domain.ReportStore
	Revisions *storage.RevisionStore
	Editor    *EditorService
	Reports   *ReportService
	Data      *DataService
	Settings  *SettingsService
	Scheduler *Scheduler

	closeStore func() error
}

// OpenStack opens storage and builds the services. The scheduler is built
// but not started.
func OpenStack(ctx context.Context, cfg config.Config, emitter EventEmitter, logger *log.Logger) (*Stack, error) {
	if logger == nil {
		logger = log.Default()
	}

	db, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store, closeStore, err := storage.OpenReportStore(ctx, cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	var opts []placement.Option
	if cfg.Editor.Capacity > 0 {
		opts = append(opts, placement.WithCapacity(cfg.Editor.Capacity))
	}

	st := &Stack{
		DB:         db,
		Store:      store,
		Revisions:  storage.NewRevisionStore(db, cfg.Editor.HistoryLimit),
		Settings:   NewSettingsService(db),
		closeStore: closeStore,
	}
	st.Editor = NewEditorService(placement.New(opts...), cfg.Editor.HistoryLimit, emitter, logger)
	st.Reports = NewReportService(store, st.Revisions, st.Editor, emitter, logger)
	st.Data = NewDataService(storage.NewDataConnectionStore(db), secret.Default(), st.Editor, emitter, logger)
	st.Scheduler = NewScheduler(cfg.Schedule, cfg.Editor.AutosavePath, st.Editor, st.Reports, st.Data, logger)
	return st, nil
}

// Close stops the scheduler and closes storage.
func (st *Stack) Close() error {
	st.Scheduler.Stop()
	return errors.Join(st.closeStore(), st.DB.Close())
}

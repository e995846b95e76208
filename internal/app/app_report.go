package app

import (
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"reports/internal/domain"
	"reports/internal/service"
	"reports/internal/storage"
)

// ── Reports ────────────────────────────────────────────────

// PublishReport saves the document under path and makes it the current report.
func (a *App) PublishReport(path string) error {
	if err := a.reports.Publish(a.ctx, path); err != nil {
		return err
	}
	a.rememberReport()
	return nil
}

// SaveReport overwrites the current report.
func (a *App) SaveReport() error {
	return a.reports.Save(a.ctx)
}

func (a *App) OpenReport(path string) (*domain.Report, error) {
	rep, err := a.reports.Open(a.ctx, path)
	if err != nil {
		return nil, err
	}
	a.rememberReport()
	return rep, nil
}

// ReloadReport discards local edits and reopens the current report, after
// the frontend saw a report:changed-externally event.
func (a *App) ReloadReport() (*domain.Report, error) {
	path := a.reports.CurrentPath()
	if path == "" {
		return nil, service.ErrNoCurrentPath
	}
	return a.reports.Open(a.ctx, path)
}

func (a *App) ListReports() ([]domain.ReportSummary, error) {
	return a.reports.List(a.ctx)
}

func (a *App) DeleteReport(path string) error {
	if err := a.reports.Delete(a.ctx, path); err != nil {
		return err
	}
	if clean, _ := service.CleanPath(path); clean == a.settings.LastReport() {
		if err := a.settings.SetLastReport(""); err != nil {
			wailsRuntime.LogWarningf(a.ctx, "Clear last report: %v", err)
		}
	}
	return nil
}

func (a *App) CurrentReportPath() string {
	return a.reports.CurrentPath()
}

// ── Revisions ──────────────────────────────────────────────

// ListRevisions returns the saved snapshots of path, or nil if it has none.
func (a *App) ListRevisions(path string) (*storage.RevisionHistory, error) {
	return a.reports.Revisions(path)
}

// RestoreRevision loads a snapshot into the editor as an undoable change.
func (a *App) RestoreRevision(revisionID string) error {
	return a.reports.Restore(a.ctx, revisionID)
}

func (a *App) rememberReport() {
	if err := a.settings.SetLastReport(a.reports.CurrentPath()); err != nil {
		wailsRuntime.LogWarningf(a.ctx, "Remember last report: %v", err)
	}
}

package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"reports/internal/config"
	mcpserver "reports/internal/mcp"
	"reports/internal/service"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx    context.Context
	cfg    config.Config
	logger *log.Logger

	stack    *service.Stack
	editor   *service.EditorService
	reports  *service.ReportService
	data     *service.DataService
	settings *service.SettingsService

	watcher  *service.ReportWatcher
	importer *service.ImportWatcher
	mcp      *mcpserver.Server

	// Cancels the background work started in Startup
	cancel context.CancelFunc
}

// New opens storage and builds the services. Nothing runs in the
// background until Startup.
func New(cfg config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &App{cfg: cfg, logger: logger}

	stack, err := service.OpenStack(context.Background(), cfg, wailsEmitter{app: a}, logger)
	if err != nil {
		return nil, fmt.Errorf("open stack: %w", err)
	}
	a.stack = stack
	a.editor = stack.Editor
	a.reports = stack.Reports
	a.data = stack.Data
	a.settings = stack.Settings
	a.watcher = service.NewReportWatcher(stack.Store, stack.Reports, wailsEmitter{app: a}, logger, service.DefaultWatchInterval)
	a.importer = service.NewImportWatcher(stack.Editor, wailsEmitter{app: a}, logger)
	return a, nil
}

// WindowSize is the size the main window opens with.
func (a *App) WindowSize() service.WindowSize {
	return a.settings.LoadWindowSize()
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	bg, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if last := a.settings.LastReport(); last != "" {
		if _, err := a.reports.Open(ctx, last); err != nil {
			wailsRuntime.LogWarningf(ctx, "Could not reopen %s: %v", last, err)
		}
	}

	if err := a.stack.Scheduler.Start(bg); err != nil {
		wailsRuntime.LogErrorf(ctx, "Scheduler disabled: %v", err)
	}
	a.watcher.Start(bg)

	if addr := a.cfg.MCP.Addr; addr != "" {
		a.mcp = mcpserver.New(bg, mcpserver.Deps{
			Emitter:         wailsEmitter{app: a},
			Editor:          a.editor,
			Reports:         a.reports,
			Logger:          a.logger,
			RequireApproval: a.cfg.MCP.RequireApproval,
		})
		go func() {
			if err := a.mcp.ServeHTTP(bg, addr); err != nil {
				wailsRuntime.LogErrorf(ctx, "MCP server stopped: %v", err)
			}
		}()
	}

	wailsRuntime.LogInfof(ctx, "Reports ready (store: %s, data: %s)", a.cfg.Store.Backend, a.cfg.DataDir)
}

// BeforeClose remembers the window size. It never blocks closing.
func (a *App) BeforeClose(ctx context.Context) bool {
	w, h := wailsRuntime.WindowGetSize(ctx)
	if err := a.settings.SaveWindowSize(w, h); err != nil {
		wailsRuntime.LogWarningf(ctx, "Save window size: %v", err)
	}
	return false
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	a.watcher.Stop()
	a.importer.Stop()
	if err := a.stack.Close(); err != nil {
		wailsRuntime.LogErrorf(ctx, "Close storage: %v", err)
	}
}

// ── Events ─────────────────────────────────────────────────

// wailsEmitter forwards service events to the frontend. Events raised
// before Startup have no window to reach and are dropped.
type wailsEmitter struct {
	app *App
}

func (e wailsEmitter) Emit(_ context.Context, event string, data any) {
	ctx := e.app.ctx
	if ctx == nil {
		return
	}
	switch event {
	case service.EventPlacementRejected:
		wailsRuntime.LogWarningf(ctx, "Placement rejected: %v", data)
	case service.EventImportFailed:
		wailsRuntime.LogErrorf(ctx, "Import failed: %v", data)
	case service.EventReportChanged:
		wailsRuntime.LogInfof(ctx, "Report %v changed outside the editor", data)
	}
	wailsRuntime.EventsEmit(ctx, event, data)
}

// ── MCP approval ───────────────────────────────────────────

// ApproveMCPAction lets a pending destructive agent action run.
func (a *App) ApproveMCPAction(actionID string) {
	if a.mcp != nil {
		a.mcp.Approve(actionID)
	}
}

// RejectMCPAction cancels a pending destructive agent action.
func (a *App) RejectMCPAction(actionID string) {
	if a.mcp != nil {
		a.mcp.Reject(actionID)
	}
}

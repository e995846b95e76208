package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reports/internal/config"
	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/service"
	"reports/internal/storage"
)

type reportFixture struct {
	editor  *service.EditorService
	reports *service.ReportService
	store   *storage.SQLiteReportStore
	emitter *service.MockEmitter
}

func newReportFixture(t *testing.T) reportFixture {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	emitter := &service.MockEmitter{}
	editor := service.NewEditorService(nil, 0, emitter, nil)
	store := storage.NewSQLiteReportStore(db)
	revs := storage.NewRevisionStore(db, 0)
	return reportFixture{
		editor:  editor,
		reports: service.NewReportService(store, revs, editor, emitter, nil),
		store:   store,
		emitter: emitter,
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"/finance/q3/", "finance/q3", false},
		{"  weekly ", "weekly", false},
		{"a//b", "a//b", false},
		{"///", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := service.CleanPath(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CleanPath(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestReportService_PublishAndOpen(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	f.editor.SetTitle(ctx, "Q3")
	f.editor.Insert(ctx, text("a"), domain.DefaultPageID, doctree.Append)

	if err := f.reports.Publish(ctx, "/finance/q3/"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if f.reports.CurrentPath() != "finance/q3" || f.editor.Dirty() {
		t.Fatalf("publish should set the current path and clear dirty")
	}
	if ev, ok := f.emitter.Last(service.EventReportSaved); !ok || ev.Data != "finance/q3" {
		t.Errorf("expected saved event, got %+v", ev)
	}

	editor := service.NewEditorService(nil, 0, nil, nil)
	reports := service.NewReportService(f.store, nil, editor, nil, nil)
	rep, err := reports.Open(ctx, "finance/q3")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if rep.Title != "Q3" || editor.Document().Title != "Q3" {
		t.Fatalf("open should load the document into the editor")
	}
	if editor.CanUndo() {
		t.Error("an opened report starts with empty history")
	}
}

func TestReportService_UndoAfterPublishIsDirty(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	f.editor.Insert(ctx, text("a"), domain.DefaultPageID, doctree.Append)
	if err := f.reports.Publish(ctx, "r/one"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if !f.editor.Undo(ctx) {
		t.Fatal("expected an undo step")
	}
	if len(f.editor.Document().Pages[0].Components) != 0 || !f.editor.Dirty() {
		t.Fatal("undo after publish must leave the document dirty")
	}

	f.reports.Save(ctx)
	if f.editor.Dirty() {
		t.Error("save should clear dirty")
	}
}

func TestReportService_OpenMissingKeepsDocument(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	f.editor.SetTitle(ctx, "Unsaved")
	_, err := f.reports.Open(ctx, "nope")
	if !errors.Is(err, domain.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if f.editor.Document().Title != "Unsaved" {
		t.Fatal("failed open must not replace the editor document")
	}
}

func TestReportService_SaveNeedsPath(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	if err := f.reports.Save(ctx); !errors.Is(err, service.ErrNoCurrentPath) {
		t.Fatalf("expected ErrNoCurrentPath, got %v", err)
	}
	f.reports.Publish(ctx, "r")
	f.editor.SetTitle(ctx, "v2")
	if err := f.reports.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	rep, _ := f.store.LoadReport(ctx, "r")
	if rep.Title != "v2" {
		t.Errorf("save should overwrite, got %q", rep.Title)
	}
}

func TestReportService_RevisionsAndRestore(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	f.editor.SetTitle(ctx, "first")
	f.reports.Publish(ctx, "r")
	f.editor.SetTitle(ctx, "second")
	f.reports.Publish(ctx, "r")

	hist, err := f.reports.Revisions("r")
	if err != nil || hist == nil || len(hist.Revisions) != 2 {
		t.Fatalf("expected two revisions, got %+v %v", hist, err)
	}

	if err := f.reports.Restore(ctx, hist.Revisions[0].ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if f.editor.Document().Title != "first" {
		t.Fatalf("restore should load the first revision")
	}
	if !f.editor.Undo(ctx) || f.editor.Document().Title != "second" {
		t.Error("restore should be undoable")
	}

	if err := f.reports.Restore(ctx, "missing"); !errors.Is(err, storage.ErrRevisionNotFound) {
		t.Errorf("expected ErrRevisionNotFound, got %v", err)
	}
}

func TestReportService_ListAndDelete(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	f.reports.Publish(ctx, "a")
	f.reports.Publish(ctx, "b")
	if err := f.reports.Delete(ctx, "/b/"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err := f.reports.List(ctx)
	if err != nil || len(list) != 1 || list[0].Path != "a" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if f.reports.CurrentPath() != "" {
		t.Error("deleting the current report should clear the current path")
	}
	if hist, _ := f.reports.Revisions("b"); hist != nil {
		t.Error("revisions should be deleted with the report")
	}
}

// ─────────────────────────────────────────────────────────────
// Scheduler
// ─────────────────────────────────────────────────────────────

func TestScheduler_AutosaveOnlyWhenChanged(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	sched := service.NewScheduler(config.ScheduleConfig{}, "drafts/current", f.editor, f.reports, nil, nil)

	if err := sched.Autosave(ctx); err != nil {
		t.Fatalf("autosave: %v", err)
	}
	if _, err := f.store.LoadReport(ctx, "drafts/current"); !errors.Is(err, domain.ErrReportNotFound) {
		t.Fatal("a clean document must not be autosaved")
	}

	f.editor.SetTitle(ctx, "draft")
	if err := sched.Autosave(ctx); err != nil {
		t.Fatalf("autosave: %v", err)
	}
	rep, err := f.store.LoadReport(ctx, "drafts/current")
	if err != nil || rep.Title != "draft" {
		t.Fatalf("expected autosaved draft, got %+v %v", rep, err)
	}
	if !f.editor.Dirty() {
		t.Error("autosave must not mark the document as published")
	}
	if f.reports.CurrentPath() != "" {
		t.Error("autosave must not change the current path")
	}

	sched.Autosave(ctx)
	hist, _ := f.reports.Revisions("drafts/current")
	if len(hist.Revisions) != 1 {
		t.Errorf("unchanged document should not be autosaved twice, got %d revisions", len(hist.Revisions))
	}
}

func TestScheduler_StartRejectsBadSchedule(t *testing.T) {
	f := newReportFixture(t)
	sched := service.NewScheduler(config.ScheduleConfig{Autosave: "every tuesday-ish"}, "x", f.editor, f.reports, nil, nil)
	if err := sched.Start(context.Background()); err == nil {
		sched.Stop()
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	f := newReportFixture(t)
	sched := service.NewScheduler(config.ScheduleConfig{Autosave: "@every 1h"}, "x", f.editor, f.reports, nil, nil)
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	sched.Stop()
	sched.Stop()
}

// ─────────────────────────────────────────────────────────────
// ReportWatcher
// ─────────────────────────────────────────────────────────────

func TestReportWatcher_DetectsExternalWrites(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	w := service.NewReportWatcher(f.store, f.reports, f.emitter, nil, 0)

	if w.Check(ctx) {
		t.Fatal("nothing is open yet")
	}

	f.editor.SetTitle(ctx, "mine")
	f.reports.Publish(ctx, "r")
	if w.Check(ctx) {
		t.Fatal("first check only records a baseline")
	}

	// our own save, then an unsaved edit before the next poll
	f.editor.SetTitle(ctx, "mine again")
	f.reports.Save(ctx)
	f.editor.SetTitle(ctx, "still typing")
	if w.Check(ctx) {
		t.Error("own save must not be reported")
	}

	other := domain.NewDocument()
	other.Title = "theirs"
	time.Sleep(time.Millisecond)
	if err := f.store.SaveReport(ctx, "r", other); err != nil {
		t.Fatal(err)
	}
	if !w.Check(ctx) {
		t.Fatal("external write not detected")
	}
	if ev, ok := f.emitter.Last(service.EventReportChanged); !ok || ev.Data != "r" {
		t.Errorf("expected change event, got %+v", ev)
	}
	if w.Check(ctx) {
		t.Error("same external write reported twice")
	}
}

func TestReportWatcher_StartStop(t *testing.T) {
	f := newReportFixture(t)
	w := service.NewReportWatcher(f.store, f.reports, nil, nil, 10*time.Millisecond)
	w.Start(context.Background())
	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	w.Stop()
	w.Stop()
}

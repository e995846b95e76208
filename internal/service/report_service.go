package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"reports/internal/domain"
	"reports/internal/schema"
	"reports/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Report Service: publishing and opening reports
// ─────────────────────────────────────────────────────────────

// ErrEmptyPath is returned for a path key that is blank after trimming.
var ErrEmptyPath = errors.New("report path is empty")

// ErrNoCurrentPath is returned by Save before anything was opened or published.
var ErrNoCurrentPath = errors.New("report has not been published yet")

// CleanPath trims surrounding slashes and spaces from a report path key.
// The rest of the key is opaque.
func CleanPath(path string) (string, error) {
	p := strings.Trim(strings.TrimSpace(path), "/")
	if p == "" {
		return "", ErrEmptyPath
	}
	return p, nil
}

// ReportService moves documents between the editor and a ReportStore, and
// keeps a revision for every publish when a RevisionStore is configured.
type ReportService struct {
	store     domain.ReportStore
	revisions *storage.RevisionStore // optional
	editor    *EditorService
	emitter   EventEmitter
	logger    *log.Logger

	mu      sync.Mutex
	current string
	written map[string]time.Time // store timestamp of our last write per path
}

func NewReportService(store domain.ReportStore, revisions *storage.RevisionStore, editor *EditorService, emitter EventEmitter, logger *log.Logger) *ReportService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReportService{
		store:     store,
		revisions: revisions,
		editor:    editor,
		emitter:   emitter,
		logger:    logger.WithPrefix("reports"),
	}
}

// CurrentPath is the path last opened or published, or "".
func (s *ReportService) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Publish stores the editor document under path and makes it the current
// path.
func (s *ReportService) Publish(ctx context.Context, path string) error {
	path, err := CleanPath(path)
	if err != nil {
		return err
	}
	doc, version := s.editor.Snapshot()
	if err := s.write(ctx, path, doc, "publish"); err != nil {
		return err
	}
	s.editor.MarkSaved(version)

	s.mu.Lock()
	s.current = path
	s.mu.Unlock()

	s.logger.Info("published", "path", path, "pages", len(doc.Pages))
	s.emitter.Emit(ctx, EventReportSaved, path)
	return nil
}

// LastWrite returns the store timestamp of the last write this service made
// to path, or the zero time.
func (s *ReportService) LastWrite(path string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written[path]
}

// Save publishes to the current path.
func (s *ReportService) Save(ctx context.Context) error {
	path := s.CurrentPath()
	if path == "" {
		return ErrNoCurrentPath
	}
	return s.Publish(ctx, path)
}

// SaveCopy stores the editor document under path without changing the
// current path or the saved state. Used by autosave.
func (s *ReportService) SaveCopy(ctx context.Context, path, label string) error {
	path, err := CleanPath(path)
	if err != nil {
		return err
	}
	doc, _ := s.editor.Snapshot()
	return s.write(ctx, path, doc, label)
}

func (s *ReportService) write(ctx context.Context, path string, doc domain.Document, label string) error {
	if err := s.store.SaveReport(ctx, path, doc); err != nil {
		return fmt.Errorf("publish %s: %w", path, err)
	}
	if rep, err := s.store.LoadReport(ctx, path); err == nil {
		s.mu.Lock()
		if s.written == nil {
			s.written = make(map[string]time.Time)
		}
		s.written[path] = rep.UpdatedAt
		s.mu.Unlock()
	}
	if s.revisions == nil {
		return nil
	}
	snapshot, err := schema.EncodeEnvelope(doc)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	if _, err := s.revisions.Push(path, label, string(snapshot)); err != nil {
		// the report itself is stored; a missing revision is not fatal
		s.logger.Warn("revision not recorded", "path", path, "err", err)
	}
	return nil
}

// Get loads the report at path without touching the editor.
func (s *ReportService) Get(ctx context.Context, path string) (*domain.Report, error) {
	path, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	return s.store.LoadReport(ctx, path)
}

// Open loads the report at path into the editor. The editor document is
// only replaced when the load succeeds.
func (s *ReportService) Open(ctx context.Context, path string) (*domain.Report, error) {
	rep, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.editor.Replace(ctx, rep.Layout); err != nil {
		return nil, fmt.Errorf("open %s: %w", rep.Path, err)
	}

	s.mu.Lock()
	s.current = rep.Path
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventReportOpened, rep.Path)
	return rep, nil
}

func (s *ReportService) List(ctx context.Context) ([]domain.ReportSummary, error) {
	return s.store.ListReports(ctx)
}

// Delete removes the report and its revisions.
func (s *ReportService) Delete(ctx context.Context, path string) error {
	path, err := CleanPath(path)
	if err != nil {
		return err
	}
	if err := s.store.DeleteReport(ctx, path); err != nil {
		return err
	}
	if s.revisions != nil {
		if err := s.revisions.Clear(path); err != nil {
			s.logger.Warn("revisions not cleared", "path", path, "err", err)
		}
	}

	s.mu.Lock()
	if s.current == path {
		s.current = ""
	}
	s.mu.Unlock()
	return nil
}

// Revisions returns the revision history of path, or nil when revisions
// are not kept.
func (s *ReportService) Revisions(path string) (*storage.RevisionHistory, error) {
	path, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	if s.revisions == nil {
		return nil, nil
	}
	return s.revisions.History(path)
}

// Restore loads a revision into the editor as an undoable change.
func (s *ReportService) Restore(ctx context.Context, revisionID string) error {
	if s.revisions == nil {
		return fmt.Errorf("%w: %s", storage.ErrRevisionNotFound, revisionID)
	}
	rev, err := s.revisions.Get(revisionID)
	if err != nil {
		return err
	}
	doc, err := schema.DecodeEnvelope([]byte(rev.Snapshot))
	if err != nil {
		return fmt.Errorf("restore %s: %w", revisionID, err)
	}
	if err := s.editor.Load(ctx, doc); err != nil {
		return fmt.Errorf("restore %s: %w", revisionID, err)
	}
	s.logger.Info("revision restored", "path", rev.Path, "revision", rev.ID)
	return nil
}

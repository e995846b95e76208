package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/palette"
	"reports/internal/placement"
	"reports/internal/schema"
	"reports/internal/selection"
)

// ─────────────────────────────────────────────────────────────
// Editor Service: the single owner of the open document
// ─────────────────────────────────────────────────────────────

// DefaultHistoryLimit bounds the undo stack when none is configured.
const DefaultHistoryLimit = 40

// EditorService holds the document being edited and the selection. Every
// mutation goes through it: callers are serialized, each change is pushed
// onto the undo stack, the selection is pruned against the new document
// and observers are notified.
type EditorService struct {
	mu         sync.Mutex
	doc        domain.Document
	sel        selection.Selection
	activePage string

	undo  []domain.Document
	redo  []domain.Document
	limit int

	// version counts committed changes; saved is the version last persisted.
	version uint64
	saved   uint64

	policy  *placement.Policy
	emitter EventEmitter
	logger  *log.Logger
}

// NewEditorService starts with an empty default document.
func NewEditorService(policy *placement.Policy, historyLimit int, emitter EventEmitter, logger *log.Logger) *EditorService {
	if policy == nil {
		policy = placement.New()
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	doc := domain.NewDocument()
	return &EditorService{
		doc:        doc,
		activePage: doc.Pages[0].ID,
		limit:      historyLimit,
		policy:     policy,
		emitter:    emitter,
		logger:     logger.WithPrefix("editor"),
	}
}

// ── Reads ──────────────────────────────────────────────────

// Document returns the current document. Documents are never mutated in
// place, so the value is safe to keep.
func (s *EditorService) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

func (s *EditorService) Selection() selection.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

func (s *EditorService) ActivePage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePage
}

// Remaining is the capacity left on pageID in pixels.
func (s *EditorService) Remaining(pageID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Remaining(s.doc, pageID)
}

// Snapshot returns the document with its change counter, for autosave.
func (s *EditorService) Snapshot() (domain.Document, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.version
}

// MarkSaved records that the document at version has been persisted.
func (s *EditorService) MarkSaved(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version > s.saved {
		s.saved = version
	}
}

// Dirty reports unsaved changes.
func (s *EditorService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version != s.saved
}

func (s *EditorService) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

func (s *EditorService) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// ── Node operations ────────────────────────────────────────

// Insert places n at index of the root list of pageID. The page must have
// room for it.
func (s *EditorService) Insert(ctx context.Context, n domain.Node, pageID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := doctree.InsertAt(s.doc, n, pageID, index)
	if err != nil {
		return fmt.Errorf("insert %s: %w", n.ID, err)
	}
	if err := s.policy.Check(next, pageID); err != nil {
		s.reject(ctx, err)
		return err
	}
	s.commit(ctx, next)
	return nil
}

// InsertBefore places n in front of siblingID, in whatever list holds it.
func (s *EditorService) InsertBefore(ctx context.Context, n domain.Node, siblingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, loc, ok := doctree.Locate(s.doc, siblingID)
	next, err := doctree.InsertBefore(s.doc, n, siblingID)
	if err != nil {
		return fmt.Errorf("insert %s: %w", n.ID, err)
	}
	if ok && loc.IsRoot() {
		if err := s.policy.Check(next, loc.PageID); err != nil {
			s.reject(ctx, err)
			return err
		}
	}
	s.commit(ctx, next)
	return nil
}

// AddToParent appends n to the container parentID.
func (s *EditorService) AddToParent(ctx context.Context, parentID string, n domain.Node) error {
	return s.apply(ctx, func(doc domain.Document) (domain.Document, error) {
		return doctree.AddToParent(doc, parentID, n)
	})
}

// Update patches the node id.
func (s *EditorService) Update(ctx context.Context, id string, p doctree.Patch) error {
	return s.apply(ctx, func(doc domain.Document) (domain.Document, error) {
		return doctree.Update(doc, id, p)
	})
}

// Remove deletes the given nodes with their descendants and returns every
// removed id. Unknown ids are skipped.
func (s *EditorService) Remove(ctx context.Context, ids ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, removed := doctree.RemoveAll(s.doc, ids)
	if len(removed) == 0 {
		return nil, fmt.Errorf("remove: %w: %v", doctree.ErrNodeNotFound, ids)
	}
	s.commit(ctx, next)
	return removed, nil
}

// Reorder moves activeID to the position of overID among their siblings.
func (s *EditorService) Reorder(ctx context.Context, pageID, activeID, overID string) error {
	return s.apply(ctx, func(doc domain.Document) (domain.Document, error) {
		return doctree.Reorder(doc, pageID, activeID, overID)
	})
}

// MoveToPage moves a root node to index of another page. The target page
// must have room for it.
func (s *EditorService) MoveToPage(ctx context.Context, nodeID, fromPageID, toPageID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := doctree.MoveToPage(s.doc, nodeID, fromPageID, toPageID, index)
	if err != nil {
		return fmt.Errorf("move %s: %w", nodeID, err)
	}
	if fromPageID != toPageID {
		if err := s.policy.Check(next, toPageID); err != nil {
			s.reject(ctx, err)
			return err
		}
	}
	s.commit(ctx, next)
	return nil
}

// Drop resolves a drag-and-drop gesture through the placement policy. An
// empty ActivePageID uses the editor's active page. A palette drop selects
// the new node.
func (s *EditorService) Drop(ctx context.Context, d placement.Drop) (placement.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ActivePageID == "" {
		d.ActivePageID = s.activePage
	}
	out, err := s.policy.Apply(s.doc, d)
	if err != nil {
		if errors.Is(err, placement.ErrCapacityExceeded) {
			s.reject(ctx, err)
		} else {
			s.logger.Debug("drop ignored", "err", err)
		}
		return out, err
	}
	if out.Action == placement.ActionNone {
		return out, nil
	}
	s.commit(ctx, out.Doc)
	if d.Source.New != nil {
		s.setSelection(ctx, s.sel.Select(d.Source.New.ID))
	}
	return out, nil
}

// DropItem builds a new node for a palette item and drops it on target.
func (s *EditorService) DropItem(ctx context.Context, item palette.Item, target placement.Target) (domain.Node, placement.Outcome, error) {
	n, err := palette.New(item)
	if err != nil {
		return domain.Node{}, placement.Outcome{}, err
	}
	out, err := s.Drop(ctx, placement.Drop{Source: placement.Source{New: &n}, Target: target})
	return n, out, err
}

// ── Selection ──────────────────────────────────────────────

// Select replaces the selection with id; an empty id clears it.
func (s *EditorService) Select(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSelection(ctx, s.sel.Select(id))
}

func (s *EditorService) SelectMany(ctx context.Context, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSelection(ctx, s.sel.SelectMany(ids))
}

func (s *EditorService) Toggle(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSelection(ctx, s.sel.Toggle(id))
}

// RemoveSelected deletes every selected node.
func (s *EditorService) RemoveSelected(ctx context.Context) ([]string, error) {
	ids := s.Selection().IDs()
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Remove(ctx, ids...)
}

// ── Pages ──────────────────────────────────────────────────

// AddPage appends an empty page and makes it active.
func (s *EditorService) AddPage(ctx context.Context, name string) (domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := doctree.AddPage(s.doc, domain.Page{ID: palette.NewPageID(), Name: name})
	if err != nil {
		return domain.Page{}, fmt.Errorf("add page: %w", err)
	}
	page := next.Pages[len(next.Pages)-1]
	s.commit(ctx, next)
	s.activePage = page.ID
	return page, nil
}

// RemovePage deletes a page and its nodes. The last page cannot be removed.
func (s *EditorService) RemovePage(ctx context.Context, pageID string) error {
	return s.apply(ctx, func(doc domain.Document) (domain.Document, error) {
		next, _, err := doctree.RemovePage(doc, pageID)
		return next, err
	})
}

func (s *EditorService) RenamePage(ctx context.Context, pageID, name string) error {
	return s.apply(ctx, func(doc domain.Document) (domain.Document, error) {
		return doctree.RenamePage(doc, pageID, name)
	})
}

func (s *EditorService) SetPageStyles(ctx context.Context, pageID string, styles *domain.PageStyles) error {
	return s.apply(ctx, func(doc domain.Document) (domain.Document, error) {
		return doctree.SetPageStyles(doc, pageID, styles)
	})
}

// SetActivePage chooses the page that receives fallback drops.
func (s *EditorService) SetActivePage(ctx context.Context, pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.PageIndex(pageID) < 0 {
		return fmt.Errorf("%w: %s", doctree.ErrPageNotFound, pageID)
	}
	s.activePage = pageID
	return nil
}

func (s *EditorService) SetTitle(ctx context.Context, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(ctx, doctree.SetTitle(s.doc, title))
}

func (s *EditorService) SetPageSettings(ctx context.Context, settings domain.PageSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(ctx, doctree.SetPageSettings(s.doc, settings))
}

// ── History ────────────────────────────────────────────────

// Undo restores the previous document. It returns false when there is
// nothing to undo.
func (s *EditorService) Undo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undo) == 0 {
		return false
	}
	prev := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, s.doc)
	s.version++
	s.set(ctx, prev)
	return true
}

// Redo re-applies the last undone change.
func (s *EditorService) Redo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redo) == 0 {
		return false
	}
	next := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, s.doc)
	s.version++
	s.set(ctx, next)
	return true
}

// ── Whole-document operations ──────────────────────────────

// Replace swaps in doc and starts a fresh history, as when a report is
// opened. doc must pass validation.
func (s *EditorService) Replace(ctx context.Context, doc domain.Document) error {
	doc = doctree.Normalize(doc)
	if err := doctree.Validate(doc); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.undo, s.redo = nil, nil
	s.version++
	s.saved = s.version
	s.set(ctx, doc)
	return nil
}

// Load swaps in doc as an undoable change, as for an import or a restored
// revision.
func (s *EditorService) Load(ctx context.Context, doc domain.Document) error {
	doc = doctree.Normalize(doc)
	if err := doctree.Validate(doc); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(ctx, doc)
	return nil
}

// Import decodes a layout file (current or legacy shape) and loads it.
func (s *EditorService) Import(ctx context.Context, data []byte) error {
	doc, err := schema.Decode(data)
	if err != nil {
		return fmt.Errorf("import layout: %w", err)
	}
	return s.Load(ctx, doc)
}

// Export encodes the current document as an indented layout file.
func (s *EditorService) Export() ([]byte, error) {
	return schema.EncodeIndent(s.Document())
}

// ── internals (callers hold s.mu) ──────────────────────────

func (s *EditorService) apply(ctx context.Context, op func(domain.Document) (domain.Document, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := op(s.doc)
	if err != nil {
		return err
	}
	s.commit(ctx, next)
	return nil
}

// commit records the current document for undo and installs next.
func (s *EditorService) commit(ctx context.Context, next domain.Document) {
	s.undo = append(s.undo, s.doc)
	if len(s.undo) > s.limit {
		s.undo = s.undo[len(s.undo)-s.limit:]
	}
	s.redo = nil
	s.version++
	s.set(ctx, next)
}

// set installs doc, repairs the active page and prunes the selection.
func (s *EditorService) set(ctx context.Context, doc domain.Document) {
	s.doc = doc
	if doc.PageIndex(s.activePage) < 0 {
		s.activePage = doc.Pages[0].ID
	}
	s.emitter.Emit(ctx, EventDocumentChanged, doc)

	ids := doctree.IDs(doc)
	s.setSelection(ctx, s.sel.Retain(func(id string) bool {
		_, ok := ids[id]
		return ok
	}))
}

func (s *EditorService) setSelection(ctx context.Context, next selection.Selection) {
	if slices.Equal(s.sel.IDs(), next.IDs()) {
		return
	}
	s.sel = next
	s.emitter.Emit(ctx, EventSelectionChanged, next.IDs())
}

func (s *EditorService) reject(ctx context.Context, err error) {
	var capErr *placement.CapacityError
	if errors.As(err, &capErr) {
		s.logger.Warn("placement rejected", "page", capErr.PageID, "occupied", capErr.Occupied, "capacity", capErr.Capacity)
		s.emitter.Emit(ctx, EventPlacementRejected, capErr.UserMessage())
	}
}

package service_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/palette"
	"reports/internal/placement"
	"reports/internal/selection"
	"reports/internal/service"
)

func newEditor(t *testing.T) (*service.EditorService, *service.MockEmitter) {
	t.Helper()
	emitter := &service.MockEmitter{}
	return service.NewEditorService(placement.New(), 5, emitter, nil), emitter
}

func text(id string) domain.Node {
	return domain.Node{ID: id, Content: domain.Text{Content: id}}
}

func rootIDs(doc domain.Document, page int) []string {
	var ids []string
	for _, n := range doc.Pages[page].Components {
		ids = append(ids, n.ID)
	}
	return ids
}

// ─────────────────────────────────────────────────────────────
// Node operations
// ─────────────────────────────────────────────────────────────

func TestEditor_InsertAndEmit(t *testing.T) {
	ed, emitter := newEditor(t)
	ctx := context.Background()

	if err := ed.Insert(ctx, text("a"), domain.DefaultPageID, doctree.Append); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := ed.Insert(ctx, text("b"), domain.DefaultPageID, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if got := rootIDs(ed.Document(), 0); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if emitter.Count(service.EventDocumentChanged) != 2 {
		t.Errorf("expected 2 document events, got %d", emitter.Count(service.EventDocumentChanged))
	}
	if !ed.Dirty() || !ed.CanUndo() {
		t.Error("expected dirty document with undo history")
	}
}

func TestEditor_InsertRejectsDuplicate(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	ed.Insert(ctx, text("a"), domain.DefaultPageID, doctree.Append)
	before := ed.Document()

	err := ed.Insert(ctx, text("a"), domain.DefaultPageID, doctree.Append)
	if !errors.Is(err, doctree.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if !reflect.DeepEqual(before, ed.Document()) {
		t.Fatal("failed insert must leave the document unchanged")
	}
}

func TestEditor_InsertOverCapacity(t *testing.T) {
	ed, emitter := newEditor(t)
	ctx := context.Background()

	tall := domain.Node{ID: "tall", Content: domain.Spacer{Height: 1100}}
	err := ed.Insert(ctx, tall, domain.DefaultPageID, doctree.Append)

	var capErr *placement.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if len(ed.Document().Pages[0].Components) != 0 {
		t.Fatal("rejected node must not be inserted")
	}
	ev, ok := emitter.Last(service.EventPlacementRejected)
	if !ok || ev.Data != capErr.UserMessage() {
		t.Errorf("expected rejection event with user message, got %+v", ev)
	}
}

func TestEditor_RemovePrunesSelection(t *testing.T) {
	ed, emitter := newEditor(t)
	ctx := context.Background()

	row := domain.Node{ID: "row", Content: domain.Row{Children: []domain.Node{text("child")}}}
	ed.Insert(ctx, row, domain.DefaultPageID, doctree.Append)
	ed.Insert(ctx, text("keep"), domain.DefaultPageID, doctree.Append)
	ed.SelectMany(ctx, []string{"child", "keep"})

	removed, err := ed.Remove(ctx, "row")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !reflect.DeepEqual(removed, []string{"row", "child"}) {
		t.Errorf("removed = %v", removed)
	}
	if got := ed.Selection().IDs(); !reflect.DeepEqual(got, []string{"keep"}) {
		t.Errorf("selection should drop removed descendants, got %v", got)
	}
	ev, _ := emitter.Last(service.EventSelectionChanged)
	if !reflect.DeepEqual(ev.Data, []string{"keep"}) {
		t.Errorf("unexpected selection event %+v", ev)
	}

	if _, err := ed.Remove(ctx, "ghost"); !errors.Is(err, doctree.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound for unknown id, got %v", err)
	}
}

func TestEditor_RemoveSelected(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	ed.Insert(ctx, text("a"), domain.DefaultPageID, doctree.Append)
	ed.Insert(ctx, text("b"), domain.DefaultPageID, doctree.Append)
	ed.Select(ctx, "a")
	ed.Toggle(ctx, "b")

	if _, err := ed.RemoveSelected(ctx); err != nil {
		t.Fatalf("remove selected: %v", err)
	}
	if len(ed.Document().Pages[0].Components) != 0 || ed.Selection().State() != selection.Empty {
		t.Fatalf("expected empty page and selection")
	}
}

func TestEditor_UpdateAndReorder(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		ed.Insert(ctx, text(id), domain.DefaultPageID, doctree.Append)
	}
	if err := ed.Update(ctx, "b", doctree.Patch{Fields: map[string]any{"content": "changed"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := ed.Reorder(ctx, domain.DefaultPageID, "a", "c"); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	doc := ed.Document()
	if got := rootIDs(doc, 0); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Errorf("order = %v", got)
	}
	if doc.Pages[0].Components[0].Content.(domain.Text).Content != "changed" {
		t.Errorf("update not applied")
	}
}

// ─────────────────────────────────────────────────────────────
// Drops
// ─────────────────────────────────────────────────────────────

func TestEditor_DropPaletteSelectsNewNode(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	n, out, err := ed.DropItem(ctx, palette.Item(domain.KindHeading), placement.Target{Kind: placement.TargetPage, PageID: domain.DefaultPageID})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if out.Action != placement.ActionInsert {
		t.Errorf("action = %s", out.Action)
	}
	if ed.Selection().Primary() != n.ID {
		t.Errorf("expected %s selected, got %v", n.ID, ed.Selection().IDs())
	}
}

func TestEditor_DropFallsBackToActivePage(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	page, err := ed.AddPage(ctx, "")
	if err != nil {
		t.Fatalf("add page: %v", err)
	}
	if page.Name != "Page 2" || ed.ActivePage() != page.ID {
		t.Fatalf("new page should be named and active: %+v", page)
	}

	n := text("orphan")
	_, err = ed.Drop(ctx, placement.Drop{
		Source: placement.Source{New: &n},
		Target: placement.Target{Kind: placement.TargetNode, NodeID: "vanished"},
	})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if got := rootIDs(ed.Document(), 1); !reflect.DeepEqual(got, []string{"orphan"}) {
		t.Errorf("expected append to active page, got %v", got)
	}
}

func TestEditor_DropNoneDoesNotCommit(t *testing.T) {
	ed, emitter := newEditor(t)
	ctx := context.Background()

	n := text("x")
	out, err := ed.Drop(ctx, placement.Drop{Source: placement.Source{New: &n}, Target: placement.Target{Kind: placement.TargetDeleteZone}})
	if err != nil || out.Action != placement.ActionNone {
		t.Fatalf("expected no-op, got %s %v", out.Action, err)
	}
	if ed.CanUndo() || emitter.Count(service.EventDocumentChanged) != 0 {
		t.Error("a no-op drop must not touch history or emit")
	}
}

// ─────────────────────────────────────────────────────────────
// Pages
// ─────────────────────────────────────────────────────────────

func TestEditor_Pages(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	if err := ed.RemovePage(ctx, domain.DefaultPageID); !errors.Is(err, doctree.ErrLastPage) {
		t.Fatalf("expected ErrLastPage, got %v", err)
	}

	p2, _ := ed.AddPage(ctx, "Appendix")
	ed.Insert(ctx, text("x"), p2.ID, doctree.Append)
	ed.Select(ctx, "x")

	if err := ed.RenamePage(ctx, p2.ID, "Annex"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := ed.RemovePage(ctx, p2.ID); err != nil {
		t.Fatalf("remove page: %v", err)
	}
	if ed.ActivePage() != domain.DefaultPageID {
		t.Errorf("active page should fall back to the first page, got %s", ed.ActivePage())
	}
	if ed.Selection().Len() != 0 {
		t.Errorf("selection should be pruned with the page")
	}
	if err := ed.SetActivePage(ctx, "nope"); !errors.Is(err, doctree.ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}
}

func TestEditor_MoveToPageCapacity(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	p2, _ := ed.AddPage(ctx, "")
	ed.Insert(ctx, domain.Node{ID: "big", Content: domain.Spacer{Height: 1000}}, domain.DefaultPageID, doctree.Append)
	ed.Insert(ctx, domain.Node{ID: "big2", Content: domain.Spacer{Height: 1000}}, p2.ID, doctree.Append)

	err := ed.MoveToPage(ctx, "big", domain.DefaultPageID, p2.ID, doctree.Append)
	if !errors.Is(err, placement.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if got := rootIDs(ed.Document(), 0); !reflect.DeepEqual(got, []string{"big"}) {
		t.Errorf("node must stay on its page, got %v", got)
	}
}

// ─────────────────────────────────────────────────────────────
// History and whole-document operations
// ─────────────────────────────────────────────────────────────

func TestEditor_UndoRedo(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	ed.Insert(ctx, text("a"), domain.DefaultPageID, doctree.Append)
	ed.SetTitle(ctx, "Quarterly")

	if !ed.Undo(ctx) || ed.Document().Title != domain.DefaultTitle {
		t.Fatalf("undo should restore the title")
	}
	if !ed.Undo(ctx) || len(ed.Document().Pages[0].Components) != 0 {
		t.Fatalf("second undo should remove the node")
	}
	if ed.Undo(ctx) {
		t.Fatal("nothing left to undo")
	}
	if !ed.Redo(ctx) || !ed.Redo(ctx) || ed.Document().Title != "Quarterly" {
		t.Fatalf("redo should reapply both changes")
	}
	if ed.Redo(ctx) {
		t.Fatal("nothing left to redo")
	}

	ed.Undo(ctx)
	ed.SetTitle(ctx, "Branch")
	if ed.CanRedo() {
		t.Error("a new change must clear the redo stack")
	}
}

func TestEditor_HistoryIsBounded(t *testing.T) {
	ed, _ := newEditor(t) // limit 5
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		ed.SetTitle(ctx, string(rune('a'+i)))
	}
	n := 0
	for ed.Undo(ctx) {
		n++
	}
	if n != 5 {
		t.Fatalf("expected 5 undo steps, got %d", n)
	}
}

func TestEditor_ImportExport(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	legacy := []byte(`{"title":"Legacy","components":[{"id":"h","type":"heading","content":"Hi"}]}`)
	if err := ed.Import(ctx, legacy); err != nil {
		t.Fatalf("import: %v", err)
	}
	doc := ed.Document()
	if doc.Title != "Legacy" || doc.Pages[0].ID != domain.DefaultPageID || len(doc.Pages[0].Components) != 1 {
		t.Fatalf("legacy import not migrated: %+v", doc)
	}
	if !ed.CanUndo() {
		t.Error("import should be undoable")
	}

	data, err := ed.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	other, _ := newEditor(t)
	if err := other.Import(ctx, data); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if !reflect.DeepEqual(other.Document(), doc) {
		t.Error("export/import should round-trip")
	}

	if err := ed.Import(ctx, []byte(`{"title":"x"}`)); err == nil {
		t.Error("expected error for layout without pages or components")
	}
	if ed.Document().Title != "Legacy" {
		t.Error("failed import must leave the document unchanged")
	}
}

func TestEditor_ReplaceResetsHistory(t *testing.T) {
	ed, _ := newEditor(t)
	ctx := context.Background()

	ed.SetTitle(ctx, "draft")
	doc := domain.NewDocument()
	doc.Title = "Opened"
	if err := ed.Replace(ctx, doc); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if ed.CanUndo() || ed.Dirty() {
		t.Error("replace should start a clean history")
	}

	bad := domain.NewDocument()
	bad.Pages[0].Components = []domain.Node{text("dup"), text("dup")}
	if err := ed.Replace(ctx, bad); !errors.Is(err, doctree.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	if ed.Document().Title != "Opened" {
		t.Error("rejected replace must keep the current document")
	}
}

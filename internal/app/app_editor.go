package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/export"
	"reports/internal/palette"
	"reports/internal/placement"
)

// ── Document ───────────────────────────────────────────────

func (a *App) GetDocument() domain.Document {
	return a.editor.Document()
}

func (a *App) GetEditorState() EditorState {
	doc := a.editor.Document()
	remaining := make(map[string]float64, len(doc.Pages))
	for _, p := range doc.Pages {
		remaining[p.ID] = a.editor.Remaining(p.ID)
	}
	return EditorState{
		Path:       a.reports.CurrentPath(),
		ActivePage: a.editor.ActivePage(),
		Selected:   a.editor.Selection().IDs(),
		Remaining:  remaining,
		History:    a.history(),
	}
}

func (a *App) GetPalette() []palette.Entry {
	return palette.Entries
}

func (a *App) SetTitle(title string) {
	a.editor.SetTitle(a.ctx, title)
}

func (a *App) SetPageSettings(settings domain.PageSettings) {
	a.editor.SetPageSettings(a.ctx, settings)
}

// ── Components ─────────────────────────────────────────────

// InsertItem appends a new palette item to pageID. An empty pageID uses the
// active page.
func (a *App) InsertItem(item, pageID string) (domain.Node, error) {
	n, err := palette.New(palette.Item(item))
	if err != nil {
		return domain.Node{}, err
	}
	if pageID == "" {
		pageID = a.editor.ActivePage()
	}
	if err := a.editor.Insert(a.ctx, n, pageID, doctree.Append); err != nil {
		return domain.Node{}, userError(err)
	}
	a.editor.Select(a.ctx, n.ID)
	return n, nil
}

// Drop applies a drag-and-drop gesture. A rejected drop is not an error:
// the result carries the message to show.
func (a *App) Drop(input DropInput) (DropResult, error) {
	var d placement.Drop
	switch {
	case input.Item != "":
		n, err := palette.New(palette.Item(input.Item))
		if err != nil {
			return DropResult{}, err
		}
		d.Source.New = &n
	case input.NodeID != "":
		d.Source.NodeID = input.NodeID
	default:
		return DropResult{}, fmt.Errorf("drop needs an item or a node")
	}

	switch input.TargetType {
	case "page":
		d.Target = placement.Target{Kind: placement.TargetPage, PageID: input.TargetID}
	case "node":
		d.Target = placement.Target{Kind: placement.TargetNode, NodeID: input.TargetID}
	case "delete":
		d.Target = placement.Target{Kind: placement.TargetDeleteZone}
	}

	out, err := a.editor.Drop(a.ctx, d)
	res := DropResult{Action: string(out.Action), PageID: out.PageID, Removed: out.Removed}
	if d.Source.New != nil && out.Action != placement.ActionNone {
		res.NodeID = d.Source.New.ID
	}
	var capErr *placement.CapacityError
	if errors.As(err, &capErr) {
		res.Action = string(placement.ActionNone)
		res.Message = capErr.UserMessage()
		return res, nil
	}
	if err != nil {
		return DropResult{}, err
	}
	return res, nil
}

// UpdateComponent merges fields and styles into a node. A null style value
// removes that key.
func (a *App) UpdateComponent(nodeID string, fields map[string]any, styles map[string]any) error {
	return a.editor.Update(a.ctx, nodeID, doctree.Patch{Fields: fields, Styles: domain.Style(styles)})
}

func (a *App) RemoveComponents(ids []string) ([]string, error) {
	return a.editor.Remove(a.ctx, ids...)
}

func (a *App) RemoveSelected() ([]string, error) {
	return a.editor.RemoveSelected(a.ctx)
}

func (a *App) ReorderComponent(pageID, activeID, overID string) error {
	return a.editor.Reorder(a.ctx, pageID, activeID, overID)
}

// MoveComponentToPage moves a root node to another page at index (-1 appends).
func (a *App) MoveComponentToPage(nodeID, toPageID string, index int) error {
	_, loc, ok := doctree.Locate(a.editor.Document(), nodeID)
	if !ok {
		return fmt.Errorf("move %s: %w", nodeID, doctree.ErrNodeNotFound)
	}
	return userError(a.editor.MoveToPage(a.ctx, nodeID, loc.PageID, toPageID, index))
}

// ── Selection ──────────────────────────────────────────────

func (a *App) Select(id string) {
	a.editor.Select(a.ctx, id)
}

func (a *App) ToggleSelect(id string) {
	a.editor.Toggle(a.ctx, id)
}

func (a *App) SelectMany(ids []string) {
	a.editor.SelectMany(a.ctx, ids)
}

// ── Pages ──────────────────────────────────────────────────

func (a *App) AddPage(name string) (domain.Page, error) {
	return a.editor.AddPage(a.ctx, name)
}

func (a *App) RemovePage(pageID string) error {
	return a.editor.RemovePage(a.ctx, pageID)
}

func (a *App) RenamePage(pageID, name string) error {
	return a.editor.RenamePage(a.ctx, pageID, name)
}

func (a *App) SetPageStyles(pageID string, styles *domain.PageStyles) error {
	return a.editor.SetPageStyles(a.ctx, pageID, styles)
}

func (a *App) SetActivePage(pageID string) error {
	return a.editor.SetActivePage(a.ctx, pageID)
}

// ── History ────────────────────────────────────────────────

func (a *App) Undo() HistoryView {
	a.editor.Undo(a.ctx)
	return a.history()
}

func (a *App) Redo() HistoryView {
	a.editor.Redo(a.ctx)
	return a.history()
}

func (a *App) history() HistoryView {
	return HistoryView{CanUndo: a.editor.CanUndo(), CanRedo: a.editor.CanRedo(), Dirty: a.editor.Dirty()}
}

// ── Import / export ────────────────────────────────────────

// ImportLayout replaces the document with a pasted layout, current or legacy.
func (a *App) ImportLayout(raw string) error {
	return a.editor.Import(a.ctx, []byte(raw))
}

func (a *App) ExportLayout() (string, error) {
	data, err := a.editor.Export()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportDocxHTML appends the blocks of a converted Word document to the
// active page. It stops at the first block the page cannot hold and returns
// how many were added.
func (a *App) ImportDocxHTML(html string) (int, error) {
	nodes, err := export.ImportHTML(strings.NewReader(html), nil)
	if err != nil {
		return 0, err
	}
	pageID := a.editor.ActivePage()
	for i, n := range nodes {
		if err := a.editor.Insert(a.ctx, n, pageID, doctree.Append); err != nil {
			return i, userError(err)
		}
	}
	return len(nodes), nil
}

func (a *App) PDFPlan() export.PDFPlan {
	return export.PlanPDF(a.editor.Document())
}

func (a *App) DocxPlan() []export.Paragraph {
	return export.PlanDOCX(a.editor.Document())
}

func (a *App) Outline() []export.OutlineEntry {
	return export.Outline(a.editor.Document())
}

// NodeJSON returns one node in the saved layout form, for the inspector.
func (a *App) NodeJSON(nodeID string) (string, error) {
	n, ok := doctree.Find(a.editor.Document(), nodeID)
	if !ok {
		return "", fmt.Errorf("node %s: %w", nodeID, doctree.ErrNodeNotFound)
	}
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WatchLayoutFile re-imports path whenever it changes on disk.
func (a *App) WatchLayoutFile(path string) error {
	if err := a.importer.ImportFile(a.ctx, path); err != nil {
		return err
	}
	return a.importer.Watch(a.ctx, path)
}

func (a *App) StopWatchingLayout() {
	a.importer.Stop()
}

// userError swaps a capacity rejection for the text shown to the user.
func userError(err error) error {
	var capErr *placement.CapacityError
	if errors.As(err, &capErr) {
		return errors.New(capErr.UserMessage())
	}
	return err
}

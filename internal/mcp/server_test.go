package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/service"
	"reports/internal/storage"
)

type fixture struct {
	srv     *Server
	editor  *service.EditorService
	emitter *service.MockEmitter
}

func newFixture(t *testing.T, requireApproval bool) fixture {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	emitter := &service.MockEmitter{}
	editor := service.NewEditorService(nil, 0, emitter, nil)
	reports := service.NewReportService(storage.NewSQLiteReportStore(db), storage.NewRevisionStore(db, 0), editor, emitter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv := New(ctx, Deps{Emitter: emitter, Editor: editor, Reports: reports, RequireApproval: requireApproval})
	return fixture{srv: srv, editor: editor, emitter: emitter}
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	return tc.Text
}

func rootIDs(p domain.Page) []string {
	var ids []string
	for _, n := range p.Components {
		ids = append(ids, n.ID)
	}
	return ids
}

// ─────────────────────────────────────────────────────────────
// Components
// ─────────────────────────────────────────────────────────────

func TestInsertComponent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	res, err := f.srv.handleInsertComponent(ctx, call(map[string]any{"item": "heading"}))
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
	var created domain.Node
	if err := json.Unmarshal([]byte(resultText(t, res)), &created); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !strings.HasPrefix(created.ID, "heading-") {
		t.Errorf("expected palette id, got %q", created.ID)
	}

	_, err = f.srv.handleInsertComponent(ctx, call(map[string]any{
		"component": `{"id":"intro","type":"text","content":"Hello"}`,
		"index":     float64(0),
	}))
	if err != nil {
		t.Fatalf("insert json: %v", err)
	}
	if got := rootIDs(f.editor.Document().Pages[0]); got[0] != "intro" || len(got) != 2 {
		t.Fatalf("roots = %v", got)
	}

	if _, err := f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"type":"gauge"}`})); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := f.srv.handleInsertComponent(ctx, call(map[string]any{})); err == nil {
		t.Error("expected error without item or component")
	}
}

func TestInsertComponent_IntoParent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"row","type":"row","children":[]}`}))
	if _, err := f.srv.handleInsertComponent(ctx, call(map[string]any{"item": "text", "parentId": "row"})); err != nil {
		t.Fatalf("insert into row: %v", err)
	}
	row, _ := doctree.Find(f.editor.Document(), "row")
	if len(row.Children()) != 1 {
		t.Fatalf("expected one child, got %d", len(row.Children()))
	}
}

func TestInsertComponent_PageFull(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.srv.handleInsertComponent(context.Background(), call(map[string]any{
		"component": `{"type":"spacer","height":5000}`,
	}))
	if err != nil {
		t.Fatalf("capacity rejection should be a tool result, got %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "page is full") {
		t.Errorf("expected page-full message, got %+v", res)
	}
	if len(f.editor.Document().Pages[0].Components) != 0 {
		t.Error("rejected insert must not change the document")
	}
}

func TestUpdateComponent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"t","type":"text","content":"a","styles":{"color":"red"}}`}))

	_, err := f.srv.handleUpdateComponent(ctx, call(map[string]any{
		"nodeId": "t",
		"fields": `{"content":"b"}`,
		"styles": `{"fontSize":18,"color":null}`,
	}))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	n, _ := doctree.Find(f.editor.Document(), "t")
	if n.Content.(domain.Text).Content != "b" {
		t.Errorf("content not updated: %+v", n.Content)
	}
	if _, ok := n.Styles["color"]; ok || n.Styles["fontSize"] != 18.0 {
		t.Errorf("styles = %v", n.Styles)
	}

	if _, err := f.srv.handleUpdateComponent(ctx, call(map[string]any{"nodeId": "t"})); err == nil {
		t.Error("expected error without fields or styles")
	}
}

func TestRemoveComponents_NoApproval(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"a","type":"text"}`}))
	f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"b","type":"text"}`}))

	if _, err := f.srv.handleRemoveComponents(ctx, call(map[string]any{"nodeIds": "a, b"})); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(f.editor.Document().Pages[0].Components) != 0 {
		t.Error("expected both components removed")
	}
}

func TestRemoveComponents_WaitsForApproval(t *testing.T) {
	for _, approve := range []bool{true, false} {
		f := newFixture(t, true)
		ctx := context.Background()
		f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"a","type":"text"}`}))

		done := make(chan error, 1)
		go func() {
			_, err := f.srv.handleRemoveComponents(ctx, call(map[string]any{"nodeIds": "a"}))
			done <- err
		}()

		var pending PendingAction
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if ev, ok := f.emitter.Last(EventApprovalRequired); ok {
				pending = ev.Data.(PendingAction)
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		if pending.ID == "" {
			t.Fatal("no approval request emitted")
		}
		if approve {
			f.srv.Approve(pending.ID)
		} else {
			f.srv.Reject(pending.ID)
		}

		err := <-done
		removed := !doctree.Contains(f.editor.Document(), "a")
		if approve && (err != nil || !removed) {
			t.Errorf("approved removal: err=%v removed=%v", err, removed)
		}
		if !approve && (err == nil || removed) {
			t.Errorf("rejected removal: err=%v removed=%v", err, removed)
		}
	}
}

func TestApprovalQueue_Timeout(t *testing.T) {
	emitter := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), emitter)
	q.SetTimeout(20 * time.Millisecond)

	ok, err := q.Request("remove_components", "Remove 1 component(s)")
	if ok || err == nil {
		t.Fatal("expected timeout")
	}
	if emitter.Count(EventApprovalDismissed) != 1 {
		t.Error("expected dismiss event")
	}
}

func TestReorderAndMove(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"` + id + `","type":"text"}`}))
	}

	if _, err := f.srv.handleReorderComponent(ctx, call(map[string]any{"nodeId": "c", "overId": "a"})); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := strings.Join(rootIDs(f.editor.Document().Pages[0]), ","); got != "c,a,b" {
		t.Errorf("after reorder = %s", got)
	}

	page, _ := f.editor.AddPage(ctx, "Second")
	if _, err := f.srv.handleMoveComponentToPage(ctx, call(map[string]any{"nodeId": "a", "toPageId": page.ID})); err != nil {
		t.Fatalf("move: %v", err)
	}
	doc := f.editor.Document()
	if got := rootIDs(doc.Pages[1]); len(got) != 1 || got[0] != "a" {
		t.Errorf("second page = %v", got)
	}
	if _, err := f.srv.handleMoveComponentToPage(ctx, call(map[string]any{"nodeId": "zzz", "toPageId": page.ID})); err == nil {
		t.Error("expected error for missing node")
	}
}

func TestDropComponent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	res, err := f.srv.handleDropComponent(ctx, call(map[string]any{
		"item": "text", "targetType": "page", "targetId": domain.DefaultPageID,
	}))
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if !strings.Contains(resultText(t, res), "insert") {
		t.Errorf("unexpected result %q", resultText(t, res))
	}
	if f.editor.Selection().Len() != 1 {
		t.Error("palette drop should select the new component")
	}

	res, _ = f.srv.handleDropComponent(ctx, call(map[string]any{"item": "text", "targetType": "none"}))
	if resultText(t, res) != "Nothing changed" {
		t.Errorf("drop without target should be a no-op, got %q", resultText(t, res))
	}

	id := f.editor.Document().Pages[0].Components[0].ID
	if _, err := f.srv.handleDropComponent(ctx, call(map[string]any{"nodeId": id, "targetType": "delete"})); err != nil {
		t.Fatalf("delete drop: %v", err)
	}
	if len(f.editor.Document().Pages[0].Components) != 0 {
		t.Error("delete-zone drop should remove the component")
	}
}

func TestSelectComponents(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"a","type":"text"}`}))
	f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"b","type":"text"}`}))

	if _, err := f.srv.handleSelectComponents(ctx, call(map[string]any{"nodeIds": "a,b"})); err != nil {
		t.Fatalf("select: %v", err)
	}
	if f.editor.Selection().Len() != 2 {
		t.Errorf("expected two selected")
	}
	if _, err := f.srv.handleSelectComponents(ctx, call(map[string]any{"nodeIds": "missing"})); err == nil {
		t.Error("expected error for unknown id")
	}
	f.srv.handleSelectComponents(ctx, call(map[string]any{}))
	if f.editor.Selection().Len() != 0 {
		t.Error("empty list should clear the selection")
	}
}

// ─────────────────────────────────────────────────────────────
// Document tools and resources
// ─────────────────────────────────────────────────────────────

func TestComputeFormulas(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"dv","type":"data-view","viewType":"table",
		"data":[{"v":1},{"v":3}],"config":{},"formulas":[{"type":"average","key":"v"}]}`}))
	f.srv.handleInsertComponent(ctx, call(map[string]any{"component": `{"id":"t","type":"text"}`}))

	res, err := f.srv.handleComputeFormulas(ctx, call(map[string]any{}))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	var out []formulaSummary
	json.Unmarshal([]byte(resultText(t, res)), &out)
	if len(out) != 1 || out[0].Results[0].Value != 2 {
		t.Fatalf("unexpected formulas %+v", out)
	}

	if _, err := f.srv.handleComputeFormulas(ctx, call(map[string]any{"nodeId": "t"})); err == nil {
		t.Error("expected error for a non data view")
	}
}

func TestAddPageAndPublish(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.srv.handleAddPage(ctx, call(map[string]any{"name": "Appendix"})); err != nil {
		t.Fatalf("add page: %v", err)
	}
	doc := f.editor.Document()
	if len(doc.Pages) != 2 || f.editor.ActivePage() != doc.Pages[1].ID {
		t.Fatalf("new page should be appended and active")
	}

	res, err := f.srv.handlePublishReport(ctx, call(map[string]any{"path": "/team/weekly/"}))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(resultText(t, res), "team/weekly") {
		t.Errorf("unexpected result %q", resultText(t, res))
	}
	if _, err := f.srv.handlePublishReport(ctx, call(map[string]any{"path": " "})); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestGetDocument(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.srv.handleGetDocument(context.Background(), call(nil))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var out struct {
		ActivePage string             `json:"activePageId"`
		Remaining  map[string]float64 `json:"remainingHeight"`
	}
	json.Unmarshal([]byte(resultText(t, res)), &out)
	if out.ActivePage != domain.DefaultPageID || out.Remaining[domain.DefaultPageID] <= 0 {
		t.Errorf("unexpected summary %+v", out)
	}
}

func TestPageResource(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	var req mcp.ReadResourceRequest
	req.Params.URI = "report://page/" + domain.DefaultPageID
	contents, err := f.srv.handlePageResource(ctx, req)
	if err != nil || len(contents) != 1 {
		t.Fatalf("read page: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, `"components": []`) {
		t.Errorf("unexpected page json %s", text)
	}

	req.Params.URI = "report://page/nope"
	if _, err := f.srv.handlePageResource(ctx, req); err == nil {
		t.Error("expected error for unknown page")
	}

	req.Params.URI = documentURI
	if _, err := f.srv.handleDocumentResource(ctx, req); err != nil {
		t.Errorf("read document: %v", err)
	}
}

package doctree_test

import (
	"errors"
	"reflect"
	"testing"

	"reports/internal/doctree"
	"reports/internal/domain"
)

func text(id string) domain.Node {
	return domain.Node{ID: id, Content: domain.Text{Content: id}}
}

func heading(id string) domain.Node {
	return domain.Node{ID: id, Content: domain.Heading{Content: id}}
}

func row(id string, kids ...domain.Node) domain.Node {
	return domain.Node{ID: id, Content: domain.Row{Children: kids, Gap: 10}}
}

func column(id string, kids ...domain.Node) domain.Node {
	return domain.Node{ID: id, Content: domain.Column{Children: kids}}
}

// twoPages builds page-1 with a, b and page-2 with c, d.
func twoPages(t *testing.T) domain.Document {
	t.Helper()
	doc := domain.NewDocument()
	doc, err := doctree.AddPage(doc, domain.Page{ID: "page-2", Components: []domain.Node{text("c"), text("d")}})
	if err != nil {
		t.Fatalf("add page: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		doc, err = doctree.InsertAt(doc, text(id), "page-1", doctree.Append)
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	return doc
}

func rootIDs(p domain.Page) []string {
	var ids []string
	for _, n := range p.Components {
		ids = append(ids, n.ID)
	}
	return ids
}

func mustValid(t *testing.T, doc domain.Document) {
	t.Helper()
	if err := doctree.Validate(doc); err != nil {
		t.Fatalf("document invariants broken: %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Insert
// ─────────────────────────────────────────────────────────────

func TestInsertAt_EmptyPage(t *testing.T) {
	doc, err := doctree.InsertAt(domain.NewDocument(), heading("h1"), "page-1", 0)
	if err != nil {
		t.Fatalf("InsertAt: %v", err)
	}
	comps := doc.Pages[0].Components
	if len(comps) != 1 || comps[0].ID != "h1" || comps[0].Order != 0 {
		t.Fatalf("expected single root h1 with order 0, got %+v", comps)
	}
	mustValid(t, doc)
}

func TestInsertAt_IndexAndReindex(t *testing.T) {
	doc := twoPages(t)
	doc, err := doctree.InsertAt(doc, text("x"), "page-1", 1)
	if err != nil {
		t.Fatalf("InsertAt: %v", err)
	}
	if got := rootIDs(doc.Pages[0]); !reflect.DeepEqual(got, []string{"a", "x", "b"}) {
		t.Errorf("unexpected order: %v", got)
	}
	doc, err = doctree.InsertAt(doc, text("y"), "page-1", 99)
	if err != nil {
		t.Fatalf("InsertAt out of range: %v", err)
	}
	if got := rootIDs(doc.Pages[0]); got[len(got)-1] != "y" {
		t.Errorf("out-of-range index should append, got %v", got)
	}
	mustValid(t, doc)
}

func TestInsertAt_Rejections(t *testing.T) {
	doc := twoPages(t)

	tests := []struct {
		name   string
		node   domain.Node
		pageID string
		want   error
	}{
		{"unknown page", text("z"), "page-9", doctree.ErrPageNotFound},
		{"duplicate root id", text("c"), "page-1", doctree.ErrDuplicateID},
		{"duplicate nested id", row("r", text("a")), "page-1", doctree.ErrDuplicateID},
		{"duplicate inside subtree", row("r", text("q"), text("q")), "page-1", doctree.ErrDuplicateID},
		{"missing id", domain.Node{Content: domain.Text{}}, "page-1", doctree.ErrInvalidNode},
		{"missing content", domain.Node{ID: "n"}, "page-1", doctree.ErrInvalidNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doctree.InsertAt(doc, tt.node, tt.pageID, doctree.Append)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !reflect.DeepEqual(got, doc) {
				t.Fatal("document must be unchanged on rejection")
			}
		})
	}
}

func TestInsertAt_DoesNotMutateInput(t *testing.T) {
	doc := twoPages(t)
	before := rootIDs(doc.Pages[0])

	if _, err := doctree.InsertAt(doc, text("x"), "page-1", 0); err != nil {
		t.Fatalf("InsertAt: %v", err)
	}
	if got := rootIDs(doc.Pages[0]); !reflect.DeepEqual(got, before) {
		t.Errorf("input document was modified: %v", got)
	}
}

func TestInsertBefore_Nested(t *testing.T) {
	doc, _ := doctree.InsertAt(domain.NewDocument(), row("r", text("a"), text("b")), "page-1", 0)

	doc, err := doctree.InsertBefore(doc, text("x"), "b")
	if err != nil {
		t.Fatalf("InsertBefore: %v", err)
	}
	r, _ := doctree.Find(doc, "r")
	kids := r.Children()
	if len(kids) != 3 || kids[1].ID != "x" || kids[1].Order != 1 || kids[2].Order != 2 {
		t.Fatalf("unexpected children: %+v", kids)
	}
	mustValid(t, doc)
}

// ─────────────────────────────────────────────────────────────
// AddToParent
// ─────────────────────────────────────────────────────────────

func TestAddToParent(t *testing.T) {
	doc, _ := doctree.InsertAt(domain.NewDocument(), row("r"), "page-1", 0)

	doc, err := doctree.AddToParent(doc, "r", text("t"))
	if err != nil {
		t.Fatalf("AddToParent: %v", err)
	}
	r, _ := doctree.Find(doc, "r")
	if kids := r.Children(); len(kids) != 1 || kids[0].ID != "t" {
		t.Fatalf("expected row children [t], got %+v", kids)
	}
	if got := rootIDs(doc.Pages[0]); !reflect.DeepEqual(got, []string{"r"}) {
		t.Errorf("t must not be a page root, roots = %v", got)
	}
	_, loc, _ := doctree.Locate(doc, "t")
	if loc.ParentID != "r" || loc.Depth != 1 {
		t.Errorf("unexpected location %+v", loc)
	}
	mustValid(t, doc)
}

func TestAddToParent_LeafIsNoop(t *testing.T) {
	doc := twoPages(t)
	got, err := doctree.AddToParent(doc, "a", text("t"))
	if !errors.Is(err, doctree.ErrNotContainer) {
		t.Fatalf("expected ErrNotContainer, got %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatal("document must be unchanged")
	}
	if _, err := doctree.AddToParent(doc, "ghost", text("t")); !errors.Is(err, doctree.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────

func TestUpdate_StyleShallowMerge(t *testing.T) {
	n := text("a")
	n.Styles = domain.Style{"color": "red", "fontSize": 12.0}
	doc, _ := doctree.InsertAt(domain.NewDocument(), row("r", n), "page-1", 0)

	doc, err := doctree.Update(doc, "a", doctree.Patch{Styles: domain.Style{"fontSize": 18.0}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := doctree.Find(doc, "a")
	if got.Styles["color"] != "red" || got.Styles["fontSize"] != 18.0 {
		t.Errorf("unexpected styles: %v", got.Styles)
	}
}

func TestUpdate_Fields(t *testing.T) {
	doc, _ := doctree.InsertAt(domain.NewDocument(), row("r", text("a")), "page-1", 0)

	doc, err := doctree.Update(doc, "a", doctree.Patch{Fields: map[string]any{"content": "changed", "id": "hijack"}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, ok := doctree.Find(doc, "a")
	if !ok {
		t.Fatal("id must not change through a patch")
	}
	if got.Content.(domain.Text).Content != "changed" {
		t.Errorf("content not updated: %+v", got.Content)
	}

	doc, err = doctree.Update(doc, "r", doctree.Patch{Fields: map[string]any{"gap": 24, "children": []any{}}})
	if err != nil {
		t.Fatalf("Update container: %v", err)
	}
	r, _ := doctree.Find(doc, "r")
	if r.Content.(domain.Row).Gap != 24 || len(r.Children()) != 1 {
		t.Errorf("container update must keep children: %+v", r.Content)
	}
}

func TestUpdate_KindMismatch(t *testing.T) {
	doc := twoPages(t)
	_, err := doctree.Update(doc, "a", doctree.Patch{Content: domain.Heading{Content: "x"}})
	if !errors.Is(err, doctree.ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Remove
// ─────────────────────────────────────────────────────────────

func TestRemove_NestedTwoLevels(t *testing.T) {
	tree := row("r", column("c", text("x"), text("a"), text("y")), text("z"))
	doc, _ := doctree.InsertAt(domain.NewDocument(), tree, "page-1", 0)

	doc, removed, err := doctree.Remove(doc, "a")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !reflect.DeepEqual(removed, []string{"a"}) {
		t.Errorf("unexpected removed ids %v", removed)
	}
	if doctree.Contains(doc, "a") {
		t.Fatal("a still present")
	}
	c, _ := doctree.Find(doc, "c")
	kids := c.Children()
	if len(kids) != 2 || kids[0].ID != "x" || kids[1].ID != "y" || kids[1].Order != 1 {
		t.Errorf("column not re-densed: %+v", kids)
	}
	r, _ := doctree.Find(doc, "r")
	if len(r.Children()) != 2 {
		t.Errorf("row must keep both children, got %d", len(r.Children()))
	}
	mustValid(t, doc)
}

func TestRemove_Cascade(t *testing.T) {
	doc, _ := doctree.InsertAt(domain.NewDocument(), row("r", column("c", text("x"))), "page-1", 0)

	doc, removed, err := doctree.Remove(doc, "r")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !reflect.DeepEqual(removed, []string{"r", "c", "x"}) {
		t.Errorf("expected cascade ids, got %v", removed)
	}
	if len(doc.Pages[0].Components) != 0 {
		t.Error("page should be empty")
	}
}

func TestRemoveAll_SkipsMissing(t *testing.T) {
	doc := twoPages(t)
	doc, removed := doctree.RemoveAll(doc, []string{"a", "ghost", "d"})
	if !reflect.DeepEqual(removed, []string{"a", "d"}) {
		t.Errorf("unexpected removed ids %v", removed)
	}
	if got := rootIDs(doc.Pages[1]); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("unexpected page-2 roots %v", got)
	}
	mustValid(t, doc)
}

// ─────────────────────────────────────────────────────────────
// Reorder & move
// ─────────────────────────────────────────────────────────────

func TestReorder(t *testing.T) {
	doc := domain.NewDocument()
	for _, id := range []string{"a", "b", "c", "d"} {
		doc, _ = doctree.InsertAt(doc, text(id), "page-1", doctree.Append)
	}

	tests := []struct {
		active, over string
		want         []string
	}{
		{"a", "c", []string{"b", "c", "a", "d"}},
		{"d", "a", []string{"d", "a", "b", "c"}},
		{"b", "b", []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		got, err := doctree.Reorder(doc, "page-1", tt.active, tt.over)
		if err != nil {
			t.Fatalf("Reorder(%s,%s): %v", tt.active, tt.over, err)
		}
		if ids := rootIDs(got.Pages[0]); !reflect.DeepEqual(ids, tt.want) {
			t.Errorf("Reorder(%s,%s) = %v, want %v", tt.active, tt.over, ids, tt.want)
		}
		mustValid(t, got)
	}
}

func TestReorder_NestedAndErrors(t *testing.T) {
	doc, _ := doctree.InsertAt(domain.NewDocument(), row("r", text("a"), text("b"), text("c")), "page-1", 0)
	doc, _ = doctree.InsertAt(doc, text("top"), "page-1", doctree.Append)

	got, err := doctree.Reorder(doc, "page-1", "c", "a")
	if err != nil {
		t.Fatalf("nested reorder: %v", err)
	}
	r, _ := doctree.Find(got, "r")
	if kids := r.Children(); kids[0].ID != "c" || kids[0].Order != 0 {
		t.Errorf("unexpected nested order %+v", kids)
	}

	if _, err := doctree.Reorder(doc, "page-1", "a", "top"); !errors.Is(err, doctree.ErrNotSiblings) {
		t.Errorf("expected ErrNotSiblings, got %v", err)
	}
	if _, err := doctree.Reorder(doc, "page-1", "ghost", "top"); !errors.Is(err, doctree.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestMoveToPage(t *testing.T) {
	doc := twoPages(t)

	got, err := doctree.MoveToPage(doc, "a", "page-1", "page-2", 1)
	if err != nil {
		t.Fatalf("MoveToPage: %v", err)
	}
	if ids := rootIDs(got.Pages[0]); !reflect.DeepEqual(ids, []string{"b"}) {
		t.Errorf("page-1 roots = %v", ids)
	}
	if ids := rootIDs(got.Pages[1]); !reflect.DeepEqual(ids, []string{"c", "a", "d"}) {
		t.Errorf("page-2 roots = %v", ids)
	}
	mustValid(t, got)

	if ids := rootIDs(doc.Pages[1]); !reflect.DeepEqual(ids, []string{"c", "d"}) {
		t.Errorf("input modified: %v", ids)
	}
}

func TestMoveToPage_NestedIsRejected(t *testing.T) {
	doc, _ := doctree.InsertAt(domain.NewDocument(), row("r", text("a")), "page-1", 0)
	doc, _ = doctree.AddPage(doc, domain.Page{ID: "page-2"})

	got, err := doctree.MoveToPage(doc, "a", "page-1", "page-2", 0)
	if !errors.Is(err, doctree.ErrNotRoot) {
		t.Fatalf("expected ErrNotRoot, got %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatal("document must be unchanged")
	}
}

// ─────────────────────────────────────────────────────────────
// Pages & validation
// ─────────────────────────────────────────────────────────────

func TestPages(t *testing.T) {
	doc := twoPages(t)
	if doc.Pages[1].Name != "Page 2" {
		t.Errorf("expected default name 'Page 2', got %q", doc.Pages[1].Name)
	}

	doc, err := doctree.RenamePage(doc, "page-2", "Appendix")
	if err != nil || doc.Pages[1].Name != "Appendix" {
		t.Fatalf("rename failed: %v", err)
	}

	doc, removed, err := doctree.RemovePage(doc, "page-2")
	if err != nil {
		t.Fatalf("RemovePage: %v", err)
	}
	if !reflect.DeepEqual(removed, []string{"c", "d"}) {
		t.Errorf("unexpected removed ids %v", removed)
	}
	if _, _, err := doctree.RemovePage(doc, "page-1"); !errors.Is(err, doctree.ErrLastPage) {
		t.Fatalf("expected ErrLastPage, got %v", err)
	}
	if _, err := doctree.AddPage(doc, domain.Page{ID: "page-1"}); !errors.Is(err, doctree.ErrDuplicateID) {
		t.Fatalf("expected duplicate page id error, got %v", err)
	}
}

func TestFindWithPage(t *testing.T) {
	doc := twoPages(t)
	n, p, ok := doctree.FindWithPage(doc, "d")
	if !ok || n.ID != "d" || p.ID != "page-2" {
		t.Fatalf("unexpected result %v %v %v", n.ID, p.ID, ok)
	}
	if _, _, ok := doctree.FindWithPage(doc, "ghost"); ok {
		t.Fatal("expected miss")
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	doc := domain.NewDocument()
	doc.Pages[0].Components = []domain.Node{
		{ID: "a", Order: 7, Content: domain.Text{}},
		{ID: "r", Order: 7, Content: domain.Row{Children: []domain.Node{{ID: "x", Order: 3, Content: domain.Text{}}}}},
	}
	if err := doctree.Validate(doc); !errors.Is(err, doctree.ErrInvalidDocument) {
		t.Fatalf("expected invalid document, got %v", err)
	}
	mustValid(t, doctree.Normalize(doc))

	doc.Pages[0].Components = append(doc.Pages[0].Components, domain.Node{ID: "x", Order: 2, Content: domain.Text{}})
	err := doctree.Validate(doctree.Normalize(doc))
	if !errors.Is(err, doctree.ErrDuplicateID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

package doctree

import (
	"encoding/json"
	"fmt"
	"slices"

	"reports/internal/domain"
)

// checkInsertable rejects nodes without id or content and nodes whose
// subtree would reuse an id already present in doc.
func checkInsertable(doc domain.Document, n domain.Node) error {
	return claimIDs(IDs(doc), n)
}

// claimIDs validates n's subtree against taken and adds its ids to it.
func claimIDs(taken map[string]struct{}, n domain.Node) error {
	if n.ID == "" || n.Content == nil {
		return fmt.Errorf("%w: node needs an id and content", ErrInvalidNode)
	}
	if _, ok := taken[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
	}
	taken[n.ID] = struct{}{}
	for _, c := range n.Children() {
		if err := claimIDs(taken, c); err != nil {
			return err
		}
	}
	return nil
}

// InsertAt inserts n as a root of the page at index (Append, or any
// out-of-range index, appends) and re-derives the page's root order.
func InsertAt(doc domain.Document, n domain.Node, pageID string, index int) (domain.Document, error) {
	pi := doc.PageIndex(pageID)
	if pi < 0 {
		return doc, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	if err := checkInsertable(doc, n); err != nil {
		return doc, err
	}
	comps := reindex(insertAt(doc.Pages[pi].Components, normalizeNode(n), index))
	return withPageComponents(doc, pi, comps), nil
}

// InsertBefore inserts n into the sibling list of the node siblingID, at
// that node's position. Works for roots and nested nodes alike.
func InsertBefore(doc domain.Document, n domain.Node, siblingID string) (domain.Document, error) {
	if err := checkInsertable(doc, n); err != nil {
		return doc, err
	}
	n = normalizeNode(n)
	return rewriteDoc(doc, siblingID, func(siblings []domain.Node, i int) ([]domain.Node, error) {
		return insertAt(siblings, n, i), nil
	})
}

// AddToParent appends n to the children of the container parentID.
func AddToParent(doc domain.Document, parentID string, n domain.Node) (domain.Document, error) {
	if err := checkInsertable(doc, n); err != nil {
		return doc, err
	}
	n = normalizeNode(n)
	return rewriteDoc(doc, parentID, func(siblings []domain.Node, i int) ([]domain.Node, error) {
		parent := siblings[i]
		if !parent.IsContainer() {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotContainer, parent.ID, parent.Kind())
		}
		kids := parent.Children()
		kids = reindex(insertAt(kids, n, Append))
		parent, _ = parent.WithChildren(kids)
		out := slices.Clone(siblings)
		out[i] = parent
		return out, nil
	})
}

// Patch is a partial node update. Fields overlays payload fields by their
// wire name; Content replaces the payload wholesale and must keep the kind.
// Styles is shallow-merged into the existing styles. Children, id, type and
// order are never changed by a patch.
type Patch struct {
	Content domain.Content
	Fields  map[string]any
	Styles  domain.Style
}

// Update applies p to the node id wherever it lives.
func Update(doc domain.Document, id string, p Patch) (domain.Document, error) {
	return rewriteDoc(doc, id, func(siblings []domain.Node, i int) ([]domain.Node, error) {
		n, err := applyPatch(siblings[i], p)
		if err != nil {
			return nil, err
		}
		out := slices.Clone(siblings)
		out[i] = n
		return out, nil
	})
}

func applyPatch(n domain.Node, p Patch) (domain.Node, error) {
	kids := n.Children()

	if p.Content != nil {
		if p.Content.Kind() != n.Kind() {
			return n, fmt.Errorf("%w: %s is %s, got %s", ErrKindMismatch, n.ID, n.Kind(), p.Content.Kind())
		}
		n.Content = p.Content
	}
	if len(p.Fields) > 0 {
		c, err := mergeFields(n, p.Fields)
		if err != nil {
			return n, err
		}
		n.Content = c
	}
	if n.IsContainer() {
		n, _ = n.WithChildren(kids)
	}
	if p.Styles != nil {
		n.Styles = n.Styles.Merge(p.Styles)
	}
	return n, nil
}

// protectedFields cannot be changed through Patch.Fields.
var protectedFields = []string{"id", "type", "order", "styles", "children"}

// mergeFields overlays fields on the node's wire representation and
// decodes the result back into a payload of the same kind.
func mergeFields(n domain.Node, fields map[string]any) (domain.Content, error) {
	raw, err := json.Marshal(domain.Node{ID: n.ID, Content: n.Content})
	if err != nil {
		return nil, fmt.Errorf("encode node %s: %w", n.ID, err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", n.ID, err)
	}
	for k, v := range fields {
		if slices.Contains(protectedFields, k) {
			continue
		}
		if v == nil {
			delete(wire, k)
			continue
		}
		wire[k] = v
	}
	if n.IsContainer() {
		wire["children"] = []any{}
	}

	merged, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode patch for %s: %w", n.ID, err)
	}
	var out domain.Node
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("apply patch to %s: %w", n.ID, err)
	}
	return out.Content, nil
}

// Remove deletes the node id and, implicitly, its descendants. It returns
// the ids of every removed node.
func Remove(doc domain.Document, id string) (domain.Document, []string, error) {
	var removed []string
	out, err := rewriteDoc(doc, id, func(siblings []domain.Node, i int) ([]domain.Node, error) {
		removed = SubtreeIDs(siblings[i])
		return deleteAt(siblings, i), nil
	})
	if err != nil {
		return doc, nil, err
	}
	return out, removed, nil
}

// RemoveAll deletes every listed node; ids that do not resolve (including
// descendants of an already removed node) are skipped.
func RemoveAll(doc domain.Document, ids []string) (domain.Document, []string) {
	var removed []string
	for _, id := range ids {
		next, gone, err := Remove(doc, id)
		if err != nil {
			continue
		}
		doc = next
		removed = append(removed, gone...)
	}
	return doc, removed
}

// Reorder moves activeID to the position of overID within their shared
// sibling list on the given page, shifting the nodes in between.
func Reorder(doc domain.Document, pageID, activeID, overID string) (domain.Document, error) {
	pi := doc.PageIndex(pageID)
	if pi < 0 {
		return doc, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	if activeID == overID {
		return doc, nil
	}
	_, aLoc, ok := Locate(doc, activeID)
	if !ok || aLoc.PageID != pageID {
		return doc, fmt.Errorf("%w: %s on page %s", ErrNodeNotFound, activeID, pageID)
	}
	_, oLoc, ok := Locate(doc, overID)
	if !ok || oLoc.PageID != pageID {
		return doc, fmt.Errorf("%w: %s on page %s", ErrNodeNotFound, overID, pageID)
	}
	if aLoc.ParentID != oLoc.ParentID {
		return doc, fmt.Errorf("%w: %s, %s", ErrNotSiblings, activeID, overID)
	}

	to := oLoc.Index
	if aLoc.IsRoot() {
		comps := reindex(moveWithin(doc.Pages[pi].Components, aLoc.Index, to))
		return withPageComponents(doc, pi, comps), nil
	}
	return rewriteDoc(doc, activeID, func(siblings []domain.Node, i int) ([]domain.Node, error) {
		return moveWithin(siblings, i, to), nil
	})
}

// MoveToPage detaches a root node from one page and splices it into the
// root list of another at index. Only page roots move across pages; a
// nested node yields ErrNotRoot.
func MoveToPage(doc domain.Document, nodeID, fromPageID, toPageID string, index int) (domain.Document, error) {
	from := doc.PageIndex(fromPageID)
	if from < 0 {
		return doc, fmt.Errorf("%w: %s", ErrPageNotFound, fromPageID)
	}
	to := doc.PageIndex(toPageID)
	if to < 0 {
		return doc, fmt.Errorf("%w: %s", ErrPageNotFound, toPageID)
	}
	_, loc, ok := Locate(doc, nodeID)
	if !ok || loc.PageID != fromPageID {
		return doc, fmt.Errorf("%w: %s on page %s", ErrNodeNotFound, nodeID, fromPageID)
	}
	if !loc.IsRoot() {
		return doc, fmt.Errorf("%w: %s", ErrNotRoot, nodeID)
	}

	if from == to {
		comps := reindex(moveWithin(doc.Pages[from].Components, loc.Index, index))
		return withPageComponents(doc, from, comps), nil
	}

	n := doc.Pages[from].Components[loc.Index]
	pages := slices.Clone(doc.Pages)
	pages[from].Components = reindex(deleteAt(pages[from].Components, loc.Index))
	pages[to].Components = reindex(insertAt(pages[to].Components, n, index))
	doc.Pages = pages
	return doc, nil
}

// normalizeNode re-derives order below n and replaces nil child lists with
// empty ones.
func normalizeNode(n domain.Node) domain.Node {
	if !n.IsContainer() {
		return n
	}
	src := n.Children()
	kids := make([]domain.Node, len(src))
	for i, c := range src {
		kids[i] = normalizeNode(c)
	}
	n, _ = n.WithChildren(reindex(kids))
	return n
}

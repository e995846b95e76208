// Package doctree implements the structural operations on a report
// document. Every operation takes a Document and returns a new one; the
// input is never modified and untouched subtrees are shared.
package doctree

import (
	"errors"
	"slices"

	"reports/internal/domain"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrPageNotFound = errors.New("page not found")
	ErrNotContainer = errors.New("node is not a container")
	ErrDuplicateID  = errors.New("duplicate node id")
	ErrInvalidNode  = errors.New("invalid node")
	ErrNotSiblings  = errors.New("nodes are not siblings")
	ErrNotRoot      = errors.New("node is not a page root")
	ErrKindMismatch = errors.New("content kind does not match node")
	ErrLastPage     = errors.New("cannot remove the last page")
)

// Append as an index inserts at the end of the list.
const Append = -1

// siblingFunc transforms the sibling list that holds the located node at i.
// It must return a fresh slice and never write into siblings.
type siblingFunc func(siblings []domain.Node, i int) ([]domain.Node, error)

// rewrite is the single locate-transform-reindex primitive behind every
// mutation. It searches list depth-first in pre-order, applies fn to the
// sibling list holding id, re-derives order there and rebuilds the path
// back to list copy-on-write.
func rewrite(list []domain.Node, id string, fn siblingFunc) ([]domain.Node, error) {
	for i, n := range list {
		if n.ID == id {
			out, err := fn(list, i)
			if err != nil {
				return list, err
			}
			return reindex(out), nil
		}

		kids := n.Children()
		if len(kids) == 0 {
			continue
		}
		newKids, err := rewrite(kids, id, fn)
		if errors.Is(err, ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return list, err
		}
		n, _ = n.WithChildren(newKids)
		out := slices.Clone(list)
		out[i] = n
		return out, nil
	}
	return list, ErrNodeNotFound
}

// rewriteDoc runs rewrite over every page until the node is found.
func rewriteDoc(doc domain.Document, id string, fn siblingFunc) (domain.Document, error) {
	for pi, p := range doc.Pages {
		comps, err := rewrite(p.Components, id, fn)
		if errors.Is(err, ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return doc, err
		}
		return withPageComponents(doc, pi, comps), nil
	}
	return doc, ErrNodeNotFound
}

func withPageComponents(doc domain.Document, pi int, comps []domain.Node) domain.Document {
	pages := slices.Clone(doc.Pages)
	pages[pi].Components = comps
	doc.Pages = pages
	return doc
}

// reindex sets Order to the list position. The slice must be owned by the
// caller.
func reindex(list []domain.Node) []domain.Node {
	for i := range list {
		list[i].Order = i
	}
	return list
}

// insertAt returns a new slice with n at index; out-of-range indexes append.
func insertAt(list []domain.Node, n domain.Node, index int) []domain.Node {
	if index < 0 || index > len(list) {
		index = len(list)
	}
	out := make([]domain.Node, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, n)
	return append(out, list[index:]...)
}

func deleteAt(list []domain.Node, i int) []domain.Node {
	out := make([]domain.Node, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

// moveWithin moves the element at from to position to, shifting the
// elements in between.
func moveWithin(list []domain.Node, from, to int) []domain.Node {
	n := list[from]
	out := deleteAt(list, from)
	return insertAt(out, n, to)
}

// ─────────────────────────────────────────────────────────────
// Lookup
// ─────────────────────────────────────────────────────────────

// Location describes where a node sits in the document.
type Location struct {
	PageID   string
	ParentID string // empty for page roots
	Index    int
	Depth    int
}

// IsRoot reports whether the node is a page root.
func (l Location) IsRoot() bool { return l.ParentID == "" }

// Walk visits every node in document order (pages in order, pre-order
// within a page). Returning false from fn stops the walk.
func Walk(doc domain.Document, fn func(n domain.Node, loc Location) bool) {
	for _, p := range doc.Pages {
		if !walk(p.Components, p.ID, "", 0, fn) {
			return
		}
	}
}

func walk(list []domain.Node, pageID, parentID string, depth int, fn func(domain.Node, Location) bool) bool {
	for i, n := range list {
		if !fn(n, Location{PageID: pageID, ParentID: parentID, Index: i, Depth: depth}) {
			return false
		}
		if !walk(n.Children(), pageID, n.ID, depth+1, fn) {
			return false
		}
	}
	return true
}

// Locate returns the node with the given id and where it sits.
func Locate(doc domain.Document, id string) (domain.Node, Location, bool) {
	var (
		found domain.Node
		at    Location
		ok    bool
	)
	Walk(doc, func(n domain.Node, loc Location) bool {
		if n.ID == id {
			found, at, ok = n, loc, true
			return false
		}
		return true
	})
	return found, at, ok
}

// Find returns the first node with the given id on any page at any depth.
func Find(doc domain.Document, id string) (domain.Node, bool) {
	n, _, ok := Locate(doc, id)
	return n, ok
}

// FindWithPage is Find that also yields the owning page.
func FindWithPage(doc domain.Document, id string) (domain.Node, domain.Page, bool) {
	n, loc, ok := Locate(doc, id)
	if !ok {
		return domain.Node{}, domain.Page{}, false
	}
	return n, doc.Pages[doc.PageIndex(loc.PageID)], true
}

// Contains reports whether a node with the given id exists.
func Contains(doc domain.Document, id string) bool {
	_, _, ok := Locate(doc, id)
	return ok
}

// IDs returns the set of node ids in the document.
func IDs(doc domain.Document) map[string]struct{} {
	ids := make(map[string]struct{})
	Walk(doc, func(n domain.Node, _ Location) bool {
		ids[n.ID] = struct{}{}
		return true
	})
	return ids
}

// SubtreeIDs returns n's id followed by the ids of all its descendants.
func SubtreeIDs(n domain.Node) []string {
	ids := []string{n.ID}
	for _, c := range n.Children() {
		ids = append(ids, SubtreeIDs(c)...)
	}
	return ids
}

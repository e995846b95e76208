// Package placement turns a finished drag-and-drop gesture into at most one
// tree operation, enforcing the page capacity heuristic on landings at the
// root of a page.
package placement

import (
	"errors"
	"fmt"

	"reports/internal/doctree"
	"reports/internal/domain"
)

// ErrCapacityExceeded is matched by every *CapacityError.
var ErrCapacityExceeded = errors.New("page capacity exceeded")

// CapacityError rejects a placement that would push a page past its
// printable height.
type CapacityError struct {
	PageID   string
	Occupied float64
	Capacity float64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("page %s full: %.0fpx needed, %.0fpx available", e.PageID, e.Occupied, e.Capacity)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// UserMessage is the short text shown to the editor user.
func (e *CapacityError) UserMessage() string {
	return "This page is full. Add a new page or make room before adding more content."
}

// Source is what was dragged: an existing node (NodeID) or a new node built
// from a palette item (New).
type Source struct {
	NodeID string
	New    *domain.Node
}

func (s Source) fromPalette() bool { return s.New != nil }

type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetDeleteZone
	TargetPage
	TargetNode
)

// Target is what the gesture ended over.
type Target struct {
	Kind   TargetKind
	PageID string
	NodeID string
}

// Drop is a completed gesture. ActivePageID is the page the user is
// working on; it receives fallback appends.
type Drop struct {
	Source       Source
	Target       Target
	ActivePageID string
}

type Action string

const (
	ActionNone        Action = "none"
	ActionInsert      Action = "insert"
	ActionAddToParent Action = "add-to-parent"
	ActionRemove      Action = "remove"
	ActionReorder     Action = "reorder"
	ActionMove        Action = "move"
)

// Outcome is the result of applying a drop. Doc is the input document
// whenever Action is ActionNone.
type Outcome struct {
	Doc     domain.Document
	Action  Action
	PageID  string
	Removed []string
}

// Policy maps drops to engine calls.
type Policy struct {
	measurer Measurer
	capacity float64
}

type Option func(*Policy)

// WithMeasurer replaces the default EstimateMeasurer.
func WithMeasurer(m Measurer) Option {
	return func(p *Policy) { p.measurer = m }
}

// WithCapacity fixes the page capacity in pixels instead of deriving it
// from the document's page settings.
func WithCapacity(px float64) Option {
	return func(p *Policy) { p.capacity = px }
}

func New(opts ...Option) *Policy {
	p := &Policy{measurer: EstimateMeasurer{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Capacity is the usable content height of a page of doc.
func (p *Policy) Capacity(doc domain.Document) float64 {
	if p.capacity > 0 {
		return p.capacity
	}
	return doc.PageSettings.ContentHeight()
}

// Remaining is the capacity left on a page, never negative.
func (p *Policy) Remaining(doc domain.Document, pageID string) float64 {
	pi := doc.PageIndex(pageID)
	if pi < 0 {
		return 0
	}
	left := p.Capacity(doc) - p.measurer.OccupiedHeight(doc.Pages[pi])
	if left < 0 {
		return 0
	}
	return left
}

// Apply resolves the drop. Expected conditions (stale ids, non-siblings,
// nested cross-page moves) yield ActionNone with the reason as error; a
// capacity rejection yields a *CapacityError. In every error case the
// returned Outcome carries the unchanged document.
func (p *Policy) Apply(doc domain.Document, d Drop) (Outcome, error) {
	if d.Source.fromPalette() {
		return p.applyNew(doc, *d.Source.New, d)
	}
	return p.applyExisting(doc, d)
}

func (p *Policy) applyNew(doc domain.Document, n domain.Node, d Drop) (Outcome, error) {
	switch d.Target.Kind {
	case TargetDeleteZone, TargetNone:
		return none(doc), nil

	case TargetPage:
		if doc.PageIndex(d.Target.PageID) < 0 {
			return p.appendToActive(doc, n, d)
		}
		return p.insertRoot(doc, n, d.Target.PageID, doctree.Append)

	case TargetNode:
		over, loc, ok := doctree.Locate(doc, d.Target.NodeID)
		if !ok {
			return p.appendToActive(doc, n, d)
		}
		if over.IsContainer() {
			next, err := doctree.AddToParent(doc, over.ID, n)
			return p.checked(doc, next, err, ActionAddToParent, loc.PageID)
		}
		if loc.IsRoot() {
			return p.insertRoot(doc, n, loc.PageID, loc.Index)
		}
		next, err := doctree.InsertBefore(doc, n, over.ID)
		return p.checked(doc, next, err, ActionInsert, loc.PageID)
	}
	return none(doc), nil
}

func (p *Policy) applyExisting(doc domain.Document, d Drop) (Outcome, error) {
	id := d.Source.NodeID
	_, src, ok := doctree.Locate(doc, id)
	if !ok {
		return none(doc), fmt.Errorf("drag source: %w: %s", doctree.ErrNodeNotFound, id)
	}

	switch d.Target.Kind {
	case TargetDeleteZone:
		next, removed, err := doctree.Remove(doc, id)
		if err != nil {
			return none(doc), err
		}
		return Outcome{Doc: next, Action: ActionRemove, PageID: src.PageID, Removed: removed}, nil

	case TargetPage:
		pi := doc.PageIndex(d.Target.PageID)
		if pi < 0 {
			return p.moveToActive(doc, id, src, d)
		}
		if d.Target.PageID == src.PageID {
			return none(doc), nil
		}
		index := doctree.Append
		if len(doc.Pages[pi].Components) == 0 {
			index = 0
		}
		return p.moveAcross(doc, id, src, d.Target.PageID, index)

	case TargetNode:
		if d.Target.NodeID == id {
			return none(doc), nil
		}
		_, over, ok := doctree.Locate(doc, d.Target.NodeID)
		if !ok {
			return p.moveToActive(doc, id, src, d)
		}
		if over.PageID == src.PageID {
			next, err := doctree.Reorder(doc, src.PageID, id, d.Target.NodeID)
			if err != nil {
				return none(doc), err
			}
			return Outcome{Doc: next, Action: ActionReorder, PageID: src.PageID}, nil
		}
		return p.moveAcross(doc, id, src, over.PageID, rootIndex(doc, d.Target.NodeID))
	}
	return none(doc), nil
}

// appendToActive is the fallback for palette drops whose target vanished.
func (p *Policy) appendToActive(doc domain.Document, n domain.Node, d Drop) (Outcome, error) {
	return p.insertRoot(doc, n, activePage(doc, d.ActivePageID), doctree.Append)
}

// moveToActive is the fallback for existing nodes whose target vanished:
// the node goes to the end of the active page.
func (p *Policy) moveToActive(doc domain.Document, id string, src doctree.Location, d Drop) (Outcome, error) {
	active := activePage(doc, d.ActivePageID)
	if active == src.PageID {
		if !src.IsRoot() {
			return none(doc), nil
		}
		next, err := doctree.MoveToPage(doc, id, src.PageID, active, doctree.Append)
		if err != nil {
			return none(doc), err
		}
		return Outcome{Doc: next, Action: ActionReorder, PageID: active}, nil
	}
	return p.moveAcross(doc, id, src, active, doctree.Append)
}

func (p *Policy) insertRoot(doc domain.Document, n domain.Node, pageID string, index int) (Outcome, error) {
	next, err := doctree.InsertAt(doc, n, pageID, index)
	if err != nil {
		return none(doc), err
	}
	if err := p.Check(next, pageID); err != nil {
		return none(doc), err
	}
	return Outcome{Doc: next, Action: ActionInsert, PageID: pageID}, nil
}

func (p *Policy) moveAcross(doc domain.Document, id string, src doctree.Location, pageID string, index int) (Outcome, error) {
	next, err := doctree.MoveToPage(doc, id, src.PageID, pageID, index)
	if err != nil {
		return none(doc), err
	}
	if err := p.Check(next, pageID); err != nil {
		return none(doc), err
	}
	return Outcome{Doc: next, Action: ActionMove, PageID: pageID}, nil
}

// checked turns the result of a nested insert into an Outcome. Growth inside
// a container counts against the page like growth at the root.
func (p *Policy) checked(doc, next domain.Document, err error, action Action, pageID string) (Outcome, error) {
	if err != nil {
		return none(doc), err
	}
	if err := p.Check(next, pageID); err != nil {
		return none(doc), err
	}
	return Outcome{Doc: next, Action: action, PageID: pageID}, nil
}

// Check measures pageID of projected, the document as it would look after
// an operation, against the capacity.
func (p *Policy) Check(projected domain.Document, pageID string) error {
	pi := projected.PageIndex(pageID)
	if pi < 0 {
		return nil
	}
	occupied := p.measurer.OccupiedHeight(projected.Pages[pi])
	capacity := p.Capacity(projected)
	if occupied > capacity {
		return &CapacityError{PageID: pageID, Occupied: occupied, Capacity: capacity}
	}
	return nil
}

func none(doc domain.Document) Outcome {
	return Outcome{Doc: doc, Action: ActionNone}
}

// activePage resolves the active page id, falling back to the first page.
func activePage(doc domain.Document, id string) string {
	if doc.PageIndex(id) >= 0 {
		return id
	}
	return doc.Pages[0].ID
}

// rootIndex returns the root-list index of id or of its top-level ancestor.
func rootIndex(doc domain.Document, id string) int {
	index := doctree.Append
	root := -1
	doctree.Walk(doc, func(n domain.Node, loc doctree.Location) bool {
		if loc.Depth == 0 {
			root = loc.Index
		}
		if n.ID == id {
			index = root
			return false
		}
		return true
	})
	return index
}

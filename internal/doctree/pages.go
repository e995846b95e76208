package doctree

import (
	"errors"
	"fmt"
	"slices"

	"reports/internal/domain"
)

// AddPage appends a page. An empty name becomes "Page N".
func AddPage(doc domain.Document, p domain.Page) (domain.Document, error) {
	if p.ID == "" {
		return doc, fmt.Errorf("%w: page needs an id", ErrInvalidNode)
	}
	if doc.PageIndex(p.ID) >= 0 {
		return doc, fmt.Errorf("%w: page %s", ErrDuplicateID, p.ID)
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("Page %d", len(doc.Pages)+1)
	}

	taken := IDs(doc)
	comps := make([]domain.Node, 0, len(p.Components))
	for _, n := range p.Components {
		if err := claimIDs(taken, n); err != nil {
			return doc, err
		}
		comps = append(comps, normalizeNode(n))
	}
	p.Components = reindex(comps)

	pages := make([]domain.Page, 0, len(doc.Pages)+1)
	pages = append(pages, doc.Pages...)
	doc.Pages = append(pages, p)
	return doc, nil
}

// RemovePage deletes a page and everything on it. The last remaining page
// is never removed. The ids of removed nodes are returned.
func RemovePage(doc domain.Document, pageID string) (domain.Document, []string, error) {
	pi := doc.PageIndex(pageID)
	if pi < 0 {
		return doc, nil, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	if len(doc.Pages) == 1 {
		return doc, nil, ErrLastPage
	}
	var removed []string
	for _, n := range doc.Pages[pi].Components {
		removed = append(removed, SubtreeIDs(n)...)
	}
	pages := make([]domain.Page, 0, len(doc.Pages)-1)
	pages = append(pages, doc.Pages[:pi]...)
	doc.Pages = append(pages, doc.Pages[pi+1:]...)
	return doc, removed, nil
}

// RenamePage sets the display name of a page.
func RenamePage(doc domain.Document, pageID, name string) (domain.Document, error) {
	pi := doc.PageIndex(pageID)
	if pi < 0 {
		return doc, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	pages := slices.Clone(doc.Pages)
	pages[pi].Name = name
	doc.Pages = pages
	return doc, nil
}

// SetPageStyles replaces the page-level styles; nil clears them.
func SetPageStyles(doc domain.Document, pageID string, styles *domain.PageStyles) (domain.Document, error) {
	pi := doc.PageIndex(pageID)
	if pi < 0 {
		return doc, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	pages := slices.Clone(doc.Pages)
	pages[pi].Styles = styles
	doc.Pages = pages
	return doc, nil
}

func SetTitle(doc domain.Document, title string) domain.Document {
	doc.Title = title
	return doc
}

func SetPageSettings(doc domain.Document, s domain.PageSettings) domain.Document {
	doc.PageSettings = s
	return doc
}

// Normalize re-derives every order value and replaces nil lists with empty
// ones. Loaders call it because stored order is never authoritative.
func Normalize(doc domain.Document) domain.Document {
	pages := make([]domain.Page, len(doc.Pages))
	for i, p := range doc.Pages {
		comps := make([]domain.Node, len(p.Components))
		for j, n := range p.Components {
			comps[j] = normalizeNode(n)
		}
		p.Components = reindex(comps)
		pages[i] = p
	}
	doc.Pages = pages
	return doc
}

// ErrInvalidDocument wraps every problem reported by Validate.
var ErrInvalidDocument = errors.New("invalid document")

// Validate checks the structural invariants: at least one page, unique
// page ids, unique non-empty node ids across the whole document, content on
// every node and dense zero-based order in every sibling list.
func Validate(doc domain.Document) error {
	if len(doc.Pages) == 0 {
		return fmt.Errorf("%w: no pages", ErrInvalidDocument)
	}
	pageIDs := make(map[string]struct{}, len(doc.Pages))
	for _, p := range doc.Pages {
		if p.ID == "" {
			return fmt.Errorf("%w: page without id", ErrInvalidDocument)
		}
		if _, dup := pageIDs[p.ID]; dup {
			return fmt.Errorf("%w: duplicate page id %s", ErrInvalidDocument, p.ID)
		}
		pageIDs[p.ID] = struct{}{}
	}

	seen := make(map[string]struct{})
	var check func(list []domain.Node) error
	check = func(list []domain.Node) error {
		for i, n := range list {
			if n.ID == "" {
				return fmt.Errorf("%w: node without id", ErrInvalidDocument)
			}
			if n.Content == nil {
				return fmt.Errorf("%w: node %s has no content", ErrInvalidDocument, n.ID)
			}
			if _, dup := seen[n.ID]; dup {
				return fmt.Errorf("%w: %w: %s", ErrInvalidDocument, ErrDuplicateID, n.ID)
			}
			seen[n.ID] = struct{}{}
			if n.Order != i {
				return fmt.Errorf("%w: node %s has order %d at position %d", ErrInvalidDocument, n.ID, n.Order, i)
			}
			if err := check(n.Children()); err != nil {
				return err
			}
		}
		return nil
	}
	for _, p := range doc.Pages {
		if err := check(p.Components); err != nil {
			return err
		}
	}
	return nil
}

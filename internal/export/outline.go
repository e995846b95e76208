package export

import (
	"reports/internal/doctree"
	"reports/internal/domain"
)

// OutlineEntry is one heading in the viewer sidebar.
type OutlineEntry struct {
	NodeID   string `json:"nodeId"`
	PageID   string `json:"pageId"`
	PageName string `json:"pageName"`
	Text     string `json:"text"`
	Depth    int    `json:"depth"`
}

// Outline lists the headings of doc in reading order, nested ones included.
func Outline(doc domain.Document) []OutlineEntry {
	names := make(map[string]string, len(doc.Pages))
	for _, p := range doc.Pages {
		names[p.ID] = p.Name
	}

	out := []OutlineEntry{}
	doctree.Walk(doc, func(n domain.Node, loc doctree.Location) bool {
		if h, ok := n.Content.(domain.Heading); ok {
			out = append(out, OutlineEntry{
				NodeID:   n.ID,
				PageID:   loc.PageID,
				PageName: names[loc.PageID],
				Text:     h.Content,
				Depth:    loc.Depth,
			})
		}
		return true
	})
	return out
}

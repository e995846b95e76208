package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/placement"
)

func (s *Server) registerDocumentTools() {
	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get the open report: title, page settings, pages and their components"),
	), s.handleGetDocument)

	s.mcp.AddTool(mcp.NewTool("add_page",
		mcp.WithDescription("Append a new empty page and make it the active page"),
		mcp.WithString("name", mcp.Description("Page name (optional, defaults to 'Page N')")),
	), s.handleAddPage)

	s.mcp.AddTool(mcp.NewTool("compute_formulas",
		mcp.WithDescription("Evaluate the formulas of data views (sum, average, min, max, variance)"),
		mcp.WithString("nodeId", mcp.Description("Data view ID (optional, all data views if omitted)")),
	), s.handleComputeFormulas)

	s.mcp.AddTool(mcp.NewTool("publish_report",
		mcp.WithDescription("Save the open report under a slash-delimited path, e.g. finance/q3"),
		mcp.WithString("path", mcp.Description("Report path"), mcp.Required()),
	), s.handlePublishReport)
}

// documentSummary is the get_document payload: the document plus the
// editor state an agent needs to place components.
type documentSummary struct {
	Document   domain.Document    `json:"document"`
	ActivePage string             `json:"activePageId"`
	Selected   []string           `json:"selectedIds"`
	Remaining  map[string]float64 `json:"remainingHeight"`
}

func (s *Server) handleGetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := s.editor.Document()
	remaining := make(map[string]float64, len(doc.Pages))
	for _, p := range doc.Pages {
		remaining[p.ID] = s.editor.Remaining(p.ID)
	}
	return jsonResult(documentSummary{
		Document:   doc,
		ActivePage: s.editor.ActivePage(),
		Selected:   s.editor.Selection().IDs(),
		Remaining:  remaining,
	})
}

func (s *Server) handleAddPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.editor.AddPage(ctx, getString(req.GetArguments(), "name"))
	if err != nil {
		return nil, fmt.Errorf("add page: %w", err)
	}
	return jsonResult(page)
}

type formulaSummary struct {
	NodeID  string                 `json:"nodeId"`
	Title   string                 `json:"title,omitempty"`
	Results []domain.FormulaResult `json:"results"`
}

func (s *Server) handleComputeFormulas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID := getString(req.GetArguments(), "nodeId")
	doc := s.editor.Document()

	if nodeID != "" {
		n, ok := doctree.Find(doc, nodeID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", doctree.ErrNodeNotFound, nodeID)
		}
		dv, ok := n.Content.(domain.DataView)
		if !ok {
			return nil, fmt.Errorf("component %s is a %s, not a data view", nodeID, n.Kind())
		}
		return jsonResult([]formulaSummary{{NodeID: n.ID, Title: dv.Title, Results: dv.Results()}})
	}

	out := []formulaSummary{}
	doctree.Walk(doc, func(n domain.Node, _ doctree.Location) bool {
		if dv, ok := n.Content.(domain.DataView); ok {
			out = append(out, formulaSummary{NodeID: n.ID, Title: dv.Title, Results: dv.Results()})
		}
		return true
	})
	return jsonResult(out)
}

func (s *Server) handlePublishReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("publishing is not available")
	}
	path := getString(req.GetArguments(), "path")
	if err := s.reports.Publish(ctx, path); err != nil {
		return nil, fmt.Errorf("publish report: %w", err)
	}
	return textResult(fmt.Sprintf("Report published at %s", s.reports.CurrentPath())), nil
}

// outcomeResult describes an applied drop.
func outcomeResult(out placement.Outcome) *mcp.CallToolResult {
	switch out.Action {
	case placement.ActionNone:
		return textResult("Nothing changed")
	case placement.ActionRemove:
		return textResult(fmt.Sprintf("Removed %d component(s)", len(out.Removed)))
	default:
		return textResult(fmt.Sprintf("Applied %s on page %s", out.Action, out.PageID))
	}
}

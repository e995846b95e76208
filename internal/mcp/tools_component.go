package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/doctree"
	"reports/internal/domain"
	"reports/internal/palette"
	"reports/internal/placement"
)

func (s *Server) registerComponentTools() {
	s.mcp.AddTool(mcp.NewTool("insert_component",
		mcp.WithDescription("Insert a component. Give either a palette item or a full component JSON. "+
			"Placement: parentId (append to a container), beforeId (insert before a sibling), or pageId+index (page root)"),
		mcp.WithString("item", mcp.Description("Palette item: heading, text, metric-card, image, divider, spacer, alert, data-view, row, column, container-flex, container-flex-row, container-flex-col")),
		mcp.WithString("component", mcp.Description(`Component JSON, e.g. {"type":"text","content":"Hello"} (id optional)`)),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("index", mcp.Description("Root position on the page (optional, appends if omitted)")),
		mcp.WithString("parentId", mcp.Description("Container ID to append into (optional)")),
		mcp.WithString("beforeId", mcp.Description("Sibling ID to insert before (optional)")),
	), s.handleInsertComponent)

	s.mcp.AddTool(mcp.NewTool("update_component",
		mcp.WithDescription("Update a component's fields and/or styles. Styles are merged key by key; a null style value removes the key"),
		mcp.WithString("nodeId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("fields", mcp.Description(`JSON object of kind-specific fields, e.g. {"content":"New text"}`)),
		mcp.WithString("styles", mcp.Description(`JSON object of style keys, e.g. {"fontSize":18,"width":"50%"}`)),
	), s.handleUpdateComponent)

	s.mcp.AddTool(mcp.NewTool("remove_components",
		mcp.WithDescription("Remove components and their children. Needs user approval when the editor is open"),
		mcp.WithString("nodeIds", mcp.Description("Comma-separated component IDs"), mcp.Required()),
	), s.handleRemoveComponents)

	s.mcp.AddTool(mcp.NewTool("reorder_component",
		mcp.WithDescription("Move a component to the position of a sibling in the same list"),
		mcp.WithString("nodeId", mcp.Description("Component to move"), mcp.Required()),
		mcp.WithString("overId", mcp.Description("Sibling whose position it takes"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleReorderComponent)

	s.mcp.AddTool(mcp.NewTool("move_component_to_page",
		mcp.WithDescription("Move a page-level component to another page. Rejected when the target page is full"),
		mcp.WithString("nodeId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("toPageId", mcp.Description("Target page ID"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Position on the target page (optional, appends if omitted)")),
	), s.handleMoveComponentToPage)

	s.mcp.AddTool(mcp.NewTool("drop_component",
		mcp.WithDescription("Simulate a drag-and-drop gesture, resolved exactly as the editor canvas does"),
		mcp.WithString("item", mcp.Description("Palette item being dragged (use this or nodeId)")),
		mcp.WithString("nodeId", mcp.Description("Existing component being dragged (use this or item)")),
		mcp.WithString("targetType", mcp.Description("Where the gesture ended"), mcp.Required(),
			mcp.Enum("page", "node", "delete", "none")),
		mcp.WithString("targetId", mcp.Description("Page ID or component ID for page/node targets")),
	), s.handleDropComponent)

	s.mcp.AddTool(mcp.NewTool("select_components",
		mcp.WithDescription("Replace the editor selection; empty clears it"),
		mcp.WithString("nodeIds", mcp.Description("Comma-separated component IDs")),
	), s.handleSelectComponents)
}

func (s *Server) handleInsertComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	n, err := buildComponent(getString(args, "item"), getString(args, "component"))
	if err != nil {
		return nil, err
	}

	switch {
	case getString(args, "parentId") != "":
		err = s.editor.AddToParent(ctx, getString(args, "parentId"), n)
	case getString(args, "beforeId") != "":
		err = s.editor.InsertBefore(ctx, n, getString(args, "beforeId"))
	default:
		err = s.editor.Insert(ctx, n, s.resolvePageID(args), getIndex(args, "index", doctree.Append))
	}
	if err != nil {
		return rejectedResult(fmt.Errorf("insert component: %w", err))
	}
	return jsonResult(n)
}

// buildComponent creates a node from a palette item or component JSON.
func buildComponent(item, raw string) (domain.Node, error) {
	if item != "" {
		return palette.New(palette.Item(item))
	}
	if raw == "" {
		return domain.Node{}, fmt.Errorf("item or component is required")
	}
	var n domain.Node
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return domain.Node{}, fmt.Errorf("parse component: %w", err)
	}
	if !domain.IsKnownKind(n.Kind()) {
		return domain.Node{}, fmt.Errorf("unknown component type %q", n.Kind())
	}
	if n.ID == "" {
		n.ID = palette.NewID(n.Kind())
	}
	return n, nil
}

func (s *Server) handleUpdateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	nodeID := getString(args, "nodeId")
	if nodeID == "" {
		return nil, fmt.Errorf("nodeId is required")
	}

	var p doctree.Patch
	if raw := getString(args, "fields"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Fields); err != nil {
			return nil, fmt.Errorf("parse fields: %w", err)
		}
	}
	if raw := getString(args, "styles"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Styles); err != nil {
			return nil, fmt.Errorf("parse styles: %w", err)
		}
	}
	if p.Fields == nil && p.Styles == nil {
		return nil, fmt.Errorf("fields or styles is required")
	}

	if err := s.editor.Update(ctx, nodeID, p); err != nil {
		return nil, fmt.Errorf("update component: %w", err)
	}
	n, _ := doctree.Find(s.editor.Document(), nodeID)
	return jsonResult(n)
}

func (s *Server) handleRemoveComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitIDs(getString(req.GetArguments(), "nodeIds"))
	if len(ids) == 0 {
		return nil, fmt.Errorf("nodeIds is required")
	}

	if err := s.confirm("remove_components", fmt.Sprintf("Remove %d component(s)", len(ids)), map[string]any{"nodeIds": ids}); err != nil {
		return nil, err
	}

	removed, err := s.editor.Remove(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("remove components: %w", err)
	}
	return jsonResult(map[string]any{"removed": removed})
}

func (s *Server) handleReorderComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	nodeID, overID := getString(args, "nodeId"), getString(args, "overId")
	if nodeID == "" || overID == "" {
		return nil, fmt.Errorf("nodeId and overId are required")
	}
	if err := s.editor.Reorder(ctx, s.resolvePageID(args), nodeID, overID); err != nil {
		return nil, fmt.Errorf("reorder component: %w", err)
	}
	return textResult(fmt.Sprintf("Component %s moved to the position of %s", nodeID, overID)), nil
}

func (s *Server) handleMoveComponentToPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	nodeID, toPage := getString(args, "nodeId"), getString(args, "toPageId")
	if nodeID == "" || toPage == "" {
		return nil, fmt.Errorf("nodeId and toPageId are required")
	}

	_, loc, ok := doctree.Locate(s.editor.Document(), nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", doctree.ErrNodeNotFound, nodeID)
	}
	if err := s.editor.MoveToPage(ctx, nodeID, loc.PageID, toPage, getIndex(args, "index", doctree.Append)); err != nil {
		return rejectedResult(fmt.Errorf("move component: %w", err))
	}
	return textResult(fmt.Sprintf("Component %s moved to page %s", nodeID, toPage)), nil
}

func (s *Server) handleDropComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	var d placement.Drop
	switch item, nodeID := getString(args, "item"), getString(args, "nodeId"); {
	case item != "":
		n, err := palette.New(palette.Item(item))
		if err != nil {
			return nil, err
		}
		d.Source.New = &n
	case nodeID != "":
		d.Source.NodeID = nodeID
	default:
		return nil, fmt.Errorf("item or nodeId is required")
	}

	targetID := getString(args, "targetId")
	switch getString(args, "targetType") {
	case "page":
		d.Target = placement.Target{Kind: placement.TargetPage, PageID: targetID}
	case "node":
		d.Target = placement.Target{Kind: placement.TargetNode, NodeID: targetID}
	case "delete":
		d.Target = placement.Target{Kind: placement.TargetDeleteZone}
		if d.Source.NodeID != "" {
			if err := s.confirm("drop_component", fmt.Sprintf("Delete component %s", d.Source.NodeID), map[string]any{"nodeIds": []string{d.Source.NodeID}}); err != nil {
				return nil, err
			}
		}
	default:
		d.Target = placement.Target{Kind: placement.TargetNone}
	}

	out, err := s.editor.Drop(ctx, d)
	if err != nil {
		return rejectedResult(fmt.Errorf("drop component: %w", err))
	}
	return outcomeResult(out), nil
}

func (s *Server) handleSelectComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := s.editor.Document()
	var ids []string
	for _, id := range splitIDs(getString(req.GetArguments(), "nodeIds")) {
		if !doctree.Contains(doc, id) {
			return nil, fmt.Errorf("%w: %s", doctree.ErrNodeNotFound, id)
		}
		ids = append(ids, id)
	}
	s.editor.SelectMany(ctx, ids)
	return jsonResult(map[string]any{
		"selected": s.editor.Selection().IDs(),
		"state":    string(s.editor.Selection().State()),
	})
}

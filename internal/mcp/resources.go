package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"reports/internal/doctree"
)

const (
	documentURI   = "report://document"
	pageURIPrefix = "report://page/"
)

func (s *Server) registerResources() {
	// ── report://document ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		documentURI,
		"Open Report",
		mcp.WithMIMEType("application/json"),
	), s.handleDocumentResource)

	// ── report://page/{pageId} ─────────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageURIPrefix+"{pageId}",
			"Components on a Page",
		),
		s.handlePageResource,
	)
}

func (s *Server) handleDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.editor.Document(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      documentURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := strings.TrimPrefix(uri, pageURIPrefix)
	if pageID == "" || pageID == uri {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	doc := s.editor.Document()
	i := doc.PageIndex(pageID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", doctree.ErrPageNotFound, pageID)
	}

	data, err := json.MarshalIndent(doc.Pages[i], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal page: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

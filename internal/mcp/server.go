package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"reports/internal/placement"
	"reports/internal/service"
)

// Server is the MCP server for the report builder.
// It exposes tools, resources, and prompts so AI agents can edit the open report.
type Server struct {
	mcp      *server.MCPServer
	emitter  service.EventEmitter
	approval *ApprovalQueue
	logger   *log.Logger

	// Services (injected from app layer)
	editor  *service.EditorService
	reports *service.ReportService
}

// Deps holds all dependencies passed from the App or CLI layer.
type Deps struct {
	Emitter service.EventEmitter
	Editor  *service.EditorService
	Reports *service.ReportService
	Logger  *log.Logger
	// RequireApproval routes destructive tools through the approval queue.
	// Off for the standalone stdio server, which has no UI to answer.
	RequireApproval bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = service.NopEmitter{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		emitter: emitter,
		logger:  logger.WithPrefix("mcp"),
		editor:  deps.Editor,
		reports: deps.Reports,
	}
	if deps.RequireApproval {
		s.approval = NewApprovalQueue(ctx, emitter)
	}

	s.mcp = server.NewMCPServer(
		"reports-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerDocumentTools()
	s.registerComponentTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ServeHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled. The desktop app uses it so agents edit the open report live.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := server.NewStreamableHTTPServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", addr)
		errCh <- httpSrv.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	if s.approval != nil {
		s.approval.Approve(actionID)
	}
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	if s.approval != nil {
		s.approval.Reject(actionID)
	}
}

// ── Helpers ────────────────────────────────────────────────

// confirm asks the user before a destructive tool runs. Without an approval
// queue every action is allowed.
func (s *Server) confirm(tool, description string, metadata any) error {
	if s.approval == nil {
		return nil
	}
	meta, _ := json.Marshal(metadata)
	_, err := s.approval.Request(tool, description, string(meta))
	return err
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// rejectedResult reports a capacity rejection as a tool-level error so the
// agent sees the same message as the editor user.
func rejectedResult(err error) (*mcp.CallToolResult, error) {
	var ce *placement.CapacityError
	if errors.As(err, &ce) {
		return mcp.NewToolResultError(ce.UserMessage()), nil
	}
	return nil, err
}

// resolvePageID returns the pageId from tool args or falls back to the
// editor's active page.
func (s *Server) resolvePageID(args map[string]any) string {
	if pid, ok := args["pageId"].(string); ok && pid != "" {
		return pid
	}
	return s.editor.ActivePage()
}

func getString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// getIndex reads an optional position; absent means append.
func getIndex(args map[string]any, key string, fallback int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return fallback
}

// splitIDs parses a comma-separated id list.
func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

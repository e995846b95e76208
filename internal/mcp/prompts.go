package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("build_report",
		mcp.WithPromptDescription("Guide through laying out a multi-page report"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Topic or title for the report"),
			mcp.RequiredArgument(),
		),
	), s.handleBuildReportPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("kpi_summary",
		mcp.WithPromptDescription("Add a row of metric cards backed by a data view with formulas"),
		mcp.WithArgument("metrics",
			mcp.ArgumentDescription("Comma-separated metric names, e.g. revenue, churn, nps"),
			mcp.RequiredArgument(),
		),
	), s.handleKPISummaryPrompt)
}

func (s *Server) handleBuildReportPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a report about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a report about "%s" in the open editor. Follow these steps:

1. Call get_document to see the pages and how much height each page has left
2. Insert a heading (insert_component item=heading) and set its content with update_component
3. Add text, alert and data-view components below it; use a row to place components side by side
4. When a page is full the insert is rejected: call add_page and continue on the new page
5. Call compute_formulas to check the numbers, then publish_report with a path like "reports/%s"

Keep every page within its height budget.`, topic, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleKPISummaryPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	metrics := req.Params.Arguments["metrics"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("KPI summary for: %s", metrics),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Add a KPI summary for these metrics: %s. Follow these steps:

1. Insert a row on the active page (insert_component item=row)
2. For each metric, insert a metric-card into the row (parentId = the row ID) and set label and value
3. Insert a data-view below the row with one formula per metric (sum or average)
4. Call compute_formulas and copy the results into the metric cards with update_component`, metrics),
				},
			},
		},
	}, nil
}

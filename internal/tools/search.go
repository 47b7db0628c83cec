package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchTool handles the wf_search MCP tool.
type SearchTool struct {
	svc *outline.Service
}

// NewSearchTool creates a SearchTool over the outline service.
func NewSearchTool(svc *outline.Service) *SearchTool {
	return &SearchTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Search the whole outline for nodes whose name contains the query " +
				"(case-insensitive). Results come back in outline order with a token " +
				"estimate; an oversized result set is flagged so you can narrow the " +
				"query or lower `limit`, `max_depth`, or `fields` before re-reading.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Substring to look for in node names."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum matches to return (default 10). The walk stops once the limit fills."),
		),
	}
	opts = append(opts, projectionParams()...)
	return mcp.NewTool("wf_search", opts...)
}

// Handle processes the wf_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := int(req.GetFloat("limit", 0))

	result, err := t.svc.Search(ctx, query, limit, projectionSpec(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Searching for %q failed: %v", query, err)), nil
	}
	if len(result.Nodes) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No nodes match %q.", query)), nil
	}

	raw, err := json.MarshalIndent(result.Nodes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d node(s) matching %q:\n\n", len(result.Nodes), query)
	b.Write(raw)
	fmt.Fprintf(&b, "\n\n📏 Estimated response size: ~%d tokens", result.Estimate.Tokens)
	if result.Estimate.Oversized {
		b.WriteString("\n⚠️ Large result set. Narrow the query or lower `limit`, `max_depth`, or `fields`.")
	}
	return mcp.NewToolResultText(b.String()), nil
}

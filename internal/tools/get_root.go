package tools

import (
	"context"
	"fmt"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// GetRootTool handles the wf_get_root MCP tool.
type GetRootTool struct {
	svc *outline.Service
}

// NewGetRootTool creates a GetRootTool over the outline service.
func NewGetRootTool(svc *outline.Service) *GetRootTool {
	return &GetRootTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *GetRootTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Fetch the top of the WorkFlowy outline. Returns the synthetic root node " +
				"(id \"None\") with children nested to `max_depth`. Start here to orient, " +
				"then drill into a subtree with wf_get_node or wf_list_children.",
		),
	}
	opts = append(opts, projectionParams()...)
	return mcp.NewTool("wf_get_root", opts...)
}

// Handle processes the wf_get_root tool call.
func (t *GetRootTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node, err := t.svc.GetRoot(ctx, projectionSpec(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Fetching the outline root failed: %v", err)), nil
	}
	return jsonResult(node)
}

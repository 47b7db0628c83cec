package tools

import (
	"context"
	"fmt"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// GetNodeTool handles the wf_get_node MCP tool.
type GetNodeTool struct {
	svc *outline.Service
}

// NewGetNodeTool creates a GetNodeTool over the outline service.
func NewGetNodeTool(svc *outline.Service) *GetNodeTool {
	return &GetNodeTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *GetNodeTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Fetch one node by id, with children nested to `max_depth`. " +
				"Request metadata fields (hierarchy, siblings, parentName, ...) " +
				"through `fields` when you need placement context.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node id, as returned by other tools. \"None\" is the root."),
		),
	}
	opts = append(opts, projectionParams()...)
	return mcp.NewTool("wf_get_node", opts...)
}

// Handle processes the wf_get_node tool call.
func (t *GetNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	node, err := t.svc.GetNode(ctx, id, projectionSpec(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Fetching node %q failed: %v", id, err)), nil
	}
	return jsonResult(node)
}

package tools

import (
	"context"
	"fmt"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListChildrenTool handles the wf_list_children MCP tool.
type ListChildrenTool struct {
	svc *outline.Service
}

// NewListChildrenTool creates a ListChildrenTool over the outline service.
func NewListChildrenTool(svc *outline.Service) *ListChildrenTool {
	return &ListChildrenTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *ListChildrenTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"List the direct children of a node in outline order. Each child is " +
				"projected like wf_get_node, so `max_depth` counts from the child down: " +
				"the default 2 includes grandchildren and great-grandchildren.",
		),
		mcp.WithString("parent_id",
			mcp.Required(),
			mcp.Description("Id of the node whose children to list. \"None\" lists the top level."),
		),
	}
	opts = append(opts, projectionParams()...)
	return mcp.NewTool("wf_list_children", opts...)
}

// Handle processes the wf_list_children tool call.
func (t *ListChildrenTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID := req.GetString("parent_id", "")
	if parentID == "" {
		return mcp.NewToolResultError("'parent_id' is required"), nil
	}

	children, err := t.svc.GetChildren(ctx, parentID, projectionSpec(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Listing children of %q failed: %v", parentID, err)), nil
	}
	return jsonResult(children)
}

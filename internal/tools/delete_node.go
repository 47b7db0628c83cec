package tools

import (
	"context"
	"fmt"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// DeleteNodeTool handles the wf_delete_node MCP tool.
type DeleteNodeTool struct {
	svc *outline.Service
}

// NewDeleteNodeTool creates a DeleteNodeTool over the outline service.
func NewDeleteNodeTool(svc *outline.Service) *DeleteNodeTool {
	return &DeleteNodeTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("wf_delete_node",
		mcp.WithDescription(
			"Permanently delete a node and every node beneath it. There is no "+
				"undo through this server; if unsure, wf_complete_node hides a node "+
				"without destroying it.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Id of the node to delete."),
		),
	)
}

// Handle processes the wf_delete_node tool call.
func (t *DeleteNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	if err := t.svc.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Deleting node %q failed: %v", id, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted node `%s` and its subtree.", id)), nil
}

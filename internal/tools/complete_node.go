package tools

import (
	"context"
	"fmt"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// CompleteNodeTool handles the wf_complete_node MCP tool.
type CompleteNodeTool struct {
	svc *outline.Service
}

// NewCompleteNodeTool creates a CompleteNodeTool over the outline service.
func NewCompleteNodeTool(svc *outline.Service) *CompleteNodeTool {
	return &CompleteNodeTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *CompleteNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("wf_complete_node",
		mcp.WithDescription(
			"Check a node off, or reopen it with completed=false. Completing a "+
				"node that is already complete is a no-op, not an error.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Id of the node."),
		),
		mcp.WithBoolean("completed",
			mcp.Description("Target state (default true). false reopens a completed node."),
		),
	)
}

// Handle processes the wf_complete_node tool call.
func (t *CompleteNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	completed := true
	if v, ok := req.GetArguments()["completed"].(bool); ok {
		completed = v
	}

	if err := t.svc.SetCompleted(ctx, id, completed); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Changing completion of node %q failed: %v", id, err)), nil
	}
	if completed {
		return mcp.NewToolResultText(fmt.Sprintf("Completed node `%s`.", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reopened node `%s`.", id)), nil
}

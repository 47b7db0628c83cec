package tools

import (
	"context"
	"fmt"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// MoveNodeTool handles the wf_move_node MCP tool.
type MoveNodeTool struct {
	svc *outline.Service
}

// NewMoveNodeTool creates a MoveNodeTool over the outline service.
func NewMoveNodeTool(svc *outline.Service) *MoveNodeTool {
	return &MoveNodeTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *MoveNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("wf_move_node",
		mcp.WithDescription(
			"Move a node (with its subtree) under a new parent. Moving a node "+
				"into its own subtree is rejected.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Id of the node to move."),
		),
		mcp.WithString("parent_id",
			mcp.Required(),
			mcp.Description("Id of the new parent. \"None\" moves to the top level."),
		),
		mcp.WithNumber("priority",
			mcp.Description("Position under the new parent (0 = first). Omit to append at the end."),
		),
	)
}

// Handle processes the wf_move_node tool call.
func (t *MoveNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	parentID := req.GetString("parent_id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if parentID == "" {
		return mcp.NewToolResultError("'parent_id' is required"), nil
	}

	err := t.svc.Move(ctx, outline.MoveParams{
		ID:       id,
		ParentID: parentID,
		Priority: int(req.GetFloat("priority", -1)),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Moving node %q failed: %v", id, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Moved node `%s` under `%s`.", id, parentID)), nil
}

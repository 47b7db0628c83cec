package tools

import (
	"context"
	"fmt"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// CreateNodeTool handles the wf_create_node MCP tool.
type CreateNodeTool struct {
	svc *outline.Service
}

// NewCreateNodeTool creates a CreateNodeTool over the outline service.
func NewCreateNodeTool(svc *outline.Service) *CreateNodeTool {
	return &CreateNodeTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("wf_create_node",
		mcp.WithDescription(
			"Create a new node under a parent. Returns the new node's id. "+
				"For several nodes under the same parent, prefer wf_batch_create: "+
				"it persists them in one round trip.",
		),
		mcp.WithString("parent_id",
			mcp.Required(),
			mcp.Description("Id of the parent node. \"None\" creates at the top level."),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Text of the new node."),
		),
		mcp.WithString("note",
			mcp.Description("Note body attached below the node text."),
		),
		mcp.WithNumber("priority",
			mcp.Description("Position under the parent (0 = first). Omit to append at the end."),
		),
	)
}

// Handle processes the wf_create_node tool call.
func (t *CreateNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID := req.GetString("parent_id", "")
	name := req.GetString("name", "")
	if parentID == "" {
		return mcp.NewToolResultError("'parent_id' is required"), nil
	}
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	id, err := t.svc.Create(ctx, outline.CreateParams{
		ParentID: parentID,
		Name:     name,
		Note:     req.GetString("note", ""),
		Priority: int(req.GetFloat("priority", -1)),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Creating %q failed: %v", name, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created node `%s` (%q) under `%s`.", id, name, parentID)), nil
}

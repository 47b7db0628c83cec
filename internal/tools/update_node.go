package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// UpdateNodeTool handles the wf_update_node MCP tool.
type UpdateNodeTool struct {
	svc *outline.Service
}

// NewUpdateNodeTool creates an UpdateNodeTool over the outline service.
func NewUpdateNodeTool(svc *outline.Service) *UpdateNodeTool {
	return &UpdateNodeTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("wf_update_node",
		mcp.WithDescription(
			"Rewrite a node's text and/or note. Omitted fields keep their current "+
				"value; passing an empty string clears the field.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Id of the node to update."),
		),
		mcp.WithString("name",
			mcp.Description("New node text."),
		),
		mcp.WithString("note",
			mcp.Description("New note body."),
		),
	)
}

// Handle processes the wf_update_node tool call.
func (t *UpdateNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	// Field presence decides what changes, so an explicit empty string
	// clears while an omitted field is left alone.
	args := req.GetArguments()
	var name, note *string
	if v, ok := args["name"].(string); ok {
		name = &v
	}
	if v, ok := args["note"].(string); ok {
		note = &v
	}
	if name == nil && note == nil {
		return mcp.NewToolResultError("Provide 'name', 'note', or both."), nil
	}

	if err := t.svc.Update(ctx, outline.UpdateParams{ID: id, Name: name, Note: note}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Updating node %q failed: %v", id, err)), nil
	}

	var changed []string
	if name != nil {
		changed = append(changed, "name")
	}
	if note != nil {
		changed = append(changed, "note")
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated %s of node `%s`.", strings.Join(changed, " and "), id)), nil
}

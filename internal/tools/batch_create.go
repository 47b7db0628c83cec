package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/calebwren/treeline/internal/outline"
	"github.com/mark3labs/mcp-go/mcp"
)

// BatchCreateTool handles the wf_batch_create MCP tool.
type BatchCreateTool struct {
	svc *outline.Service
}

// NewBatchCreateTool creates a BatchCreateTool over the outline service.
func NewBatchCreateTool(svc *outline.Service) *BatchCreateTool {
	return &BatchCreateTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *BatchCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("wf_batch_create",
		mcp.WithDescription(
			"Create several nodes under one parent in a single round trip. "+
				"Items are appended in order. Returns the new ids, one per item.",
		),
		mcp.WithString("parent_id",
			mcp.Required(),
			mcp.Description("Id of the parent node. \"None\" creates at the top level."),
		),
		mcp.WithString("items",
			mcp.Required(),
			mcp.Description(`JSON array of items, e.g. [{"name": "Milk"}, {"name": "Eggs", "note": "free range"}].`),
		),
	)
}

// Handle processes the wf_batch_create tool call.
func (t *BatchCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID := req.GetString("parent_id", "")
	if parentID == "" {
		return mcp.NewToolResultError("'parent_id' is required"), nil
	}
	raw := req.GetString("items", "")
	if raw == "" {
		return mcp.NewToolResultError("'items' is required"), nil
	}

	var items []outline.BatchItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf(`'items' must be a JSON array of {"name", "note"} objects: %v`, err)), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultError("'items' must contain at least one item"), nil
	}
	for i, item := range items {
		if item.Name == "" {
			return mcp.NewToolResultError(fmt.Sprintf("items[%d] needs a name", i)), nil
		}
	}

	ids, err := t.svc.BatchCreate(ctx, parentID, items)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Batch create under %q failed: %v", parentID, err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Created %d nodes under `%s`:\n", len(ids), parentID)
	for i, id := range ids {
		fmt.Fprintf(&b, "- `%s` %q\n", id, items[i].Name)
	}
	return mcp.NewToolResultText(b.String()), nil
}

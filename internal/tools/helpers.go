// Package tools implements the MCP tool handlers for the WorkFlowy
// outline.
//
// Each tool is a struct holding its dependencies and returning a handler
// compatible with mcp-go's CallToolRequest signature. One file per tool.
// Read tools share the projection parameters and answer with
// pretty-printed JSON; mutation tools answer with a short acknowledgement
// instead of re-fetching state the model already has.
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/calebwren/treeline/internal/projection"
	"github.com/mark3labs/mcp-go/mcp"
)

// projectionParams returns the parameter definitions every read tool
// shares.
func projectionParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("max_depth",
			mcp.Description("How many levels of children to include (default 2). 0 returns just the node itself."),
		),
		mcp.WithString("fields",
			mcp.Description("Comma-separated fields to include per node. Defaults to id,name,note,isCompleted. "+
				"Metadata fields: parentId, parentName, priority, lastModifiedAt, completedAt, isMirror, "+
				"originalId, isSharedViaUrl, sharedUrl, hierarchy, siblings, siblingCount."),
		),
		mcp.WithNumber("preview_length",
			mcp.Description("Truncate names and notes to this many characters (0 = full text). "+
				"Use with deep trees to keep responses small."),
		),
	}
}

// projectionSpec reads the shared read-tool parameters off the request.
func projectionSpec(req mcp.CallToolRequest) projection.Spec {
	spec := projection.Spec{
		MaxDepth:      int(req.GetFloat("max_depth", 2)),
		PreviewLength: int(req.GetFloat("preview_length", 0)),
	}
	if raw := req.GetString("fields", ""); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				spec.Fields = append(spec.Fields, f)
			}
		}
	}
	return spec
}

// jsonResult pretty-prints v as the tool's text payload.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

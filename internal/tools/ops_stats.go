package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/calebwren/treeline/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
)

// OpsStatsTool handles the wf_ops_stats MCP tool.
type OpsStatsTool struct {
	store *metrics.Store
}

// NewOpsStatsTool creates an OpsStatsTool over the metrics store. A nil
// store is allowed; the tool then reports that metrics are disabled.
func NewOpsStatsTool(store *metrics.Store) *OpsStatsTool {
	return &OpsStatsTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *OpsStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("wf_ops_stats",
		mcp.WithDescription(
			"Show per-operation statistics recorded by this server: call counts, "+
				"failures, latency, and retry attempts. Useful for diagnosing a slow "+
				"or flaky connection to WorkFlowy.",
		),
		mcp.WithNumber("recent",
			mcp.Description("Also list this many most recent individual calls (default 0)."),
		),
	)
}

// Handle processes the wf_ops_stats tool call.
func (t *OpsStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.store == nil {
		return mcp.NewToolResultText("Operation metrics are disabled: no metrics database is configured."), nil
	}

	summary, err := t.store.Summary()
	if err != nil {
		return nil, fmt.Errorf("reading metrics summary: %w", err)
	}
	if len(summary) == 0 {
		return mcp.NewToolResultText("No operations recorded yet."), nil
	}

	var b strings.Builder
	b.WriteString("# Operation Metrics\n\n")
	b.WriteString("| Operation | Calls | Failures | Avg ms | Max ms | Attempts | Last call |\n")
	b.WriteString("|-----------|-------|----------|--------|--------|----------|-----------|\n")
	for _, s := range summary {
		fmt.Fprintf(&b, "| %s | %d | %d | %.0f | %d | %d | %s |\n",
			s.Operation, s.Calls, s.Failures, s.AvgDurationMS, s.MaxDurationMS, s.TotalAttempts, s.LastCall)
	}

	if recent := int(req.GetFloat("recent", 0)); recent > 0 {
		entries, err := t.store.Recent(recent)
		if err != nil {
			return nil, fmt.Errorf("reading recent calls: %w", err)
		}
		b.WriteString("\n## Recent calls\n\n")
		for _, e := range entries {
			marker := "✅"
			if !e.Success {
				marker = "❌"
			}
			fmt.Fprintf(&b, "- %s %s — %d ms, %d attempt(s)", marker, e.Operation, e.DurationMS, e.Attempts)
			if e.ErrorKind != "" {
				fmt.Fprintf(&b, ", %s", e.ErrorKind)
			}
			fmt.Fprintf(&b, " (%s)\n", e.CreatedAt)
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}

// Package resources implements MCP resource handlers for treeline.
//
// Resources provide read-only data the host can pull in for context.
// They use URI-based addressing (treeline://...) following MCP
// conventions. Both resources read from the local call log, so they
// work offline and never touch the WorkFlowy API.
package resources

import (
	"context"

	"github.com/calebwren/treeline/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
)

// recentLimit caps the number of rows the recent-calls resource returns.
const recentLimit = 50

// Handler serves the call-log resource endpoints. A nil store is fine;
// the resources then report empty data.
type Handler struct {
	store *metrics.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *metrics.Store) *Handler {
	return &Handler{store: store}
}

// SummaryResource returns the MCP resource definition for per-operation
// aggregates.
func (h *Handler) SummaryResource() mcp.Resource {
	return mcp.NewResource(
		"treeline://ops/summary",
		"Operation Summary",
		mcp.WithResourceDescription("Per-operation call counts, failure counts, and latency aggregates from the local call log"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSummary returns the per-operation aggregates as JSON.
func (h *Handler) HandleSummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	summaries, err := h.store.Summary()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if summaries == nil {
		summaries = []metrics.OperationSummary{}
	}
	return jsonResource(req.Params.URI, summaries)
}

// RecentResource returns the MCP resource definition for the newest
// call records.
func (h *Handler) RecentResource() mcp.Resource {
	return mcp.NewResource(
		"treeline://ops/recent",
		"Recent API Calls",
		mcp.WithResourceDescription("The most recent WorkFlowy API calls with duration, outcome, and retry attempts"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRecent returns the newest call records as JSON, most recent
// first.
func (h *Handler) HandleRecent(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := h.store.Recent(recentLimit)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if entries == nil {
		entries = []metrics.Entry{}
	}
	return jsonResource(req.Params.URI, entries)
}

// Package server wires the treeline components and creates the MCP
// server instance.
//
// This is the composition root: it resolves the concrete stack (logger,
// metrics store, WorkFlowy client, outline service) and injects it into
// the tools, prompts, and resources. No outline logic lives here, only
// wiring.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/calebwren/treeline/internal/config"
	"github.com/calebwren/treeline/internal/metrics"
	"github.com/calebwren/treeline/internal/outline"
	"github.com/calebwren/treeline/internal/prompts"
	"github.com/calebwren/treeline/internal/resources"
	"github.com/calebwren/treeline/internal/telemetry"
	"github.com/calebwren/treeline/internal/tools"
	"github.com/calebwren/treeline/internal/workflowy"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with every tool, prompt,
// and resource registered.
//
// The returned cleanup function closes the log file and the metrics
// database and must be called on shutdown (typically via defer). It is
// always non-nil and safe to call even when parts of the stack failed
// to initialize.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	log, err := telemetry.New(telemetry.Options{
		Path:    cfg.LogFile,
		Level:   telemetry.ParseLevel(cfg.LogLevel),
		Console: cfg.LogConsole,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("opening log: %w", err)
	}

	// Metrics are an independent subsystem: when the database cannot be
	// opened the server keeps running and degrades to logging only.
	store, err := metrics.Open(cfg.MetricsDB)
	if err != nil {
		log.Warn("metrics disabled", telemetry.Ctx{"path": cfg.MetricsDB, "error": err.Error()})
		store = nil
	}

	cleanup := func() {
		_ = store.Close()
		_ = log.Close()
	}

	client := workflowy.New(cfg.Username, cfg.Password,
		workflowy.WithBaseURL(cfg.BaseURL),
		workflowy.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)
	svc := outline.New(client, log, outline.WithMetrics(store))

	s := server.NewMCPServer(
		"treeline",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register outline tools ---

	getRoot := tools.NewGetRootTool(svc)
	s.AddTool(getRoot.Definition(), getRoot.Handle)

	getNode := tools.NewGetNodeTool(svc)
	s.AddTool(getNode.Definition(), getNode.Handle)

	listChildren := tools.NewListChildrenTool(svc)
	s.AddTool(listChildren.Definition(), listChildren.Handle)

	search := tools.NewSearchTool(svc)
	s.AddTool(search.Definition(), search.Handle)

	createNode := tools.NewCreateNodeTool(svc)
	s.AddTool(createNode.Definition(), createNode.Handle)

	updateNode := tools.NewUpdateNodeTool(svc)
	s.AddTool(updateNode.Definition(), updateNode.Handle)

	deleteNode := tools.NewDeleteNodeTool(svc)
	s.AddTool(deleteNode.Definition(), deleteNode.Handle)

	completeNode := tools.NewCompleteNodeTool(svc)
	s.AddTool(completeNode.Definition(), completeNode.Handle)

	moveNode := tools.NewMoveNodeTool(svc)
	s.AddTool(moveNode.Definition(), moveNode.Handle)

	batchCreate := tools.NewBatchCreateTool(svc)
	s.AddTool(batchCreate.Definition(), batchCreate.Handle)

	opsStats := tools.NewOpsStatsTool(store)
	s.AddTool(opsStats.Definition(), opsStats.Handle)

	// --- Register prompts ---

	capture := prompts.NewCapturePrompt()
	s.AddPrompt(capture.Definition(), capture.Handle)

	review := prompts.NewReviewPrompt()
	s.AddPrompt(review.Definition(), review.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(store)
	s.AddResource(resourceHandler.SummaryResource(), resourceHandler.HandleSummary)
	s.AddResource(resourceHandler.RecentResource(), resourceHandler.HandleRecent)

	log.Info("server configured", telemetry.Ctx{
		"version": Version,
		"metrics": store != nil,
		"console": cfg.LogConsole,
	})

	// Startup credential probe. Runs in the background so a slow or
	// unreachable service never delays stdio startup; a bad password
	// shows up in the log before the first tool call instead of inside
	// its error.
	go func() {
		if err := svc.CheckAuth(context.Background()); err != nil {
			log.Error("credential check failed", telemetry.Ctx{"error": err.Error()})
		}
	}()

	return s, cleanup, nil
}

// noop is the default cleanup when initialization fails early.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// client how to work with the outline tools.
func serverInstructions() string {
	return `You have access to treeline, an MCP server for the user's WorkFlowy outline.

## WHEN TO USE treeline

Use these tools whenever the user refers to their WorkFlowy account or the
lists, notes, and todos they keep there:
- "add X to my shopping list", "what's on my plate this week?"
- "mark the deploy task done", "move the reading list under Personal"
- "find my notes about the offsite"

The outline is the user's real data. Mutations take effect immediately and
there is no undo through this server.

## HOW THE OUTLINE WORKS

- Every item ("node") has an id, a name, an optional note, and children.
- The synthetic root has id "None". It cannot be renamed, moved,
  completed, or deleted.
- Node ids come from reads. Never invent an id; fetch or search first.
- Other sessions can change the outline between your calls. A "not found"
  error usually means the node moved or was deleted: re-read before
  assuming a bug.

## READING EFFICIENTLY

Read results are JSON trees and can get large. Budget tokens:
1. Start with wf_get_root (default depth 2) to orient.
2. Drill down with wf_get_node or wf_list_children instead of raising
   max_depth.
3. Use "fields" to request only what you need; "preview_length" truncates
   long names and notes.
4. wf_search returns a token estimate and flags oversized result sets.
   When flagged, narrow the query or lower limit, max_depth, or fields.
5. Metadata fields (hierarchy, siblings, parentName, ...) are for
   placement questions; skip them otherwise.

## MUTATING SAFELY

- wf_create_node returns the new node's id. Keep it for follow-up calls.
- Creating several nodes under one parent: use wf_batch_create, which
  persists them in a single round trip.
- "priority" is the position under the parent: 0 = first, omit = append.
- wf_complete_node hides a node without destroying it. Prefer it over
  wf_delete_node when the user might want the item back.
- Moving a node into its own subtree is rejected.

## FAILURES AND RETRIES

Transient failures (network, rate limiting) are retried server-side with
backoff before you ever see an error. An error that reaches you is either
terminal (bad credentials, missing node, invalid request) or has already
survived every retry. Do not immediately re-issue the same call; fix the
input or tell the user.

wf_ops_stats shows call counts, failure rates, and latency when the user
asks how the connection has been behaving.`
}

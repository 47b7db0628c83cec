// Treeline: WorkFlowy MCP Server
//
// An MCP server that gives AI assistants (Claude Code, OpenCode, Gemini
// CLI, Codex, Cursor, VS Code Copilot) structured access to a WorkFlowy
// outline: reading bounded subtrees, searching, and editing nodes.
//
// Usage:
//
//	treeline serve    # Start MCP server (stdio transport)
//	treeline update   # Update to the latest version
package main

import (
	"fmt"
	"os"

	"github.com/calebwren/treeline/internal/config"
	treeserver "github.com/calebwren/treeline/internal/server"
	"github.com/calebwren/treeline/internal/updater"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("treeline v%s\n", treeserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	s, cleanup, err := treeserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check. Prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	return server.ServeStdio(s)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. Best-effort: network failures are
// silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(treeserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: treeline update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(treeserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(treeserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart treeline to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Treeline v%s — WorkFlowy MCP Server

Usage:
  treeline serve    Start the MCP server (stdio transport)
  treeline update   Update to the latest version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "treeline": {
        "command": "treeline",
        "args": ["serve"],
        "env": {
          "WORKFLOWY_USERNAME": "you@example.com",
          "WORKFLOWY_PASSWORD": "your-password"
        }
      }
    }
  }

  Optional environment variables:
    TREELINE_DATA_DIR      State directory (default ~/.treeline)
    TREELINE_LOG_FILE      Log file path (default <data dir>/treeline.log)
    TREELINE_LOG_LEVEL     debug, info, warn, error (default info)
    TREELINE_LOG_CONSOLE   Also log human-readable to stderr (default false)
    TREELINE_METRICS_DB    Metrics database path (default <data dir>/metrics.db)
    TREELINE_HTTP_TIMEOUT  WorkFlowy request timeout (default 30s)

Learn more: https://github.com/calebwren/treeline
`, treeserver.Version)
}

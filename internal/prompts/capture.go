// Package prompts implements MCP prompt handlers for common outline
// workflows.
//
// MCP prompts are user-triggered (like slash commands), unlike tools,
// which the model calls on its own. Each prompt expands into
// instructions that sequence the wf_* tools for the model.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// CapturePrompt handles the wf-capture MCP prompt. It files a quick
// thought into the outline without the user having to navigate it.
type CapturePrompt struct{}

// NewCapturePrompt creates a CapturePrompt.
func NewCapturePrompt() *CapturePrompt {
	return &CapturePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *CapturePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("wf-capture",
		mcp.WithPromptDescription(
			"Capture a quick note into your outline. "+
				"Finds the right parent node (or uses the root) and creates "+
				"the item there, so nothing gets lost.",
		),
		mcp.WithArgument("text",
			mcp.ArgumentDescription("The thought or task to capture"),
		),
		mcp.WithArgument("destination",
			mcp.ArgumentDescription(
				"Name of the node to file it under (for example 'Inbox'). Default: the outline root",
			),
		),
	)
}

// Handle processes the wf-capture prompt request.
func (p *CapturePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := ""
	destination := ""
	if args := req.Params.Arguments; args != nil {
		text = args["text"]
		destination = args["destination"]
	}

	var steps []string
	if text == "" {
		steps = append(steps, "Ask me what I want to capture")
	}
	if destination != "" {
		steps = append(steps,
			fmt.Sprintf("Run `wf_search` with query='%s' to find the destination node", destination),
			"If exactly one match looks right, run `wf_create_node` with its id as parentId and the text as name",
			"If several nodes match, show them to me and ask which one to use before creating",
			"If nothing matches, create the item at the root and tell me you did",
		)
	} else {
		steps = append(steps,
			"Run `wf_create_node` with parentId='None' (the root) and the text as name",
			"Confirm the new item's id and where it landed",
		)
	}

	var b strings.Builder
	if text != "" {
		fmt.Fprintf(&b, "I want to capture this into my outline: '%s'\n\nPlease:\n", text)
	} else {
		b.WriteString("I want to capture something into my outline.\n\nPlease:\n")
	}
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	return &mcp.GetPromptResult{
		Description: "Capture a note into the outline",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(b.String()),
			},
		},
	}, nil
}

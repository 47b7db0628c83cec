package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the wf-daily-review MCP prompt. It walks the
// model through a pass over the outline's open items.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("wf-daily-review",
		mcp.WithPromptDescription(
			"Review your outline: surface open items, flag stale ones, "+
				"and suggest what to tackle next.",
		),
		mcp.WithArgument("focus",
			mcp.ArgumentDescription(
				"Name of a branch to concentrate on (for example 'Work'). Default: the whole outline",
			),
		),
	)
}

// Handle processes the wf-daily-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	focus := ""
	if args := req.Params.Arguments; args != nil {
		focus = args["focus"]
	}

	var opening string
	if focus != "" {
		opening = fmt.Sprintf(
			"1. Run `wf_search` with query='%s' to find that branch, then `wf_list_children` on the best match with maxDepth=2\n",
			focus,
		)
	} else {
		opening = "1. Run `wf_get_root` with maxDepth=2 to see the top of the outline\n"
	}

	return &mcp.GetPromptResult{
		Description: "Daily outline review",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Help me review my outline.\n\nPlease:\n" +
						opening +
						"2. Include fields=[\"id\",\"name\",\"isCompleted\",\"lastModifiedAt\"] so you can see what is done and what has gone quiet\n" +
						"3. Summarize the open items grouped by branch, flagging anything untouched for a long time\n" +
						"4. Suggest the three most useful items to work on next and ask if I want any of them marked complete or moved",
				),
			},
		},
	}, nil
}

package projection

import (
	"encoding/json"
	"strings"

	"github.com/calebwren/treeline/internal/telemetry"
	"github.com/calebwren/treeline/internal/workflowy"
)

const (
	// tokenCharRatio is the chars-per-token heuristic used to size
	// responses without a tokenizer.
	tokenCharRatio = 4

	// OversizeTokenThreshold is the estimated token count above which
	// a search result is flagged to the caller.
	OversizeTokenThreshold = 10000

	// DefaultSearchLimit caps result counts when the caller passes
	// none.
	DefaultSearchLimit = 10
)

// Estimate sizes a serialized result set.
type Estimate struct {
	Tokens    int
	Oversized bool
}

// Search walks the subtree under root depth-first, collecting nodes
// whose name contains query case-insensitively, each projected from
// depth 0 under spec. Children are pushed only while the result list is
// under limit, so the walk stops as soon as the limit fills rather than
// visiting the rest of the outline. The Estimate is advisory: an
// oversized result set is returned anyway, flagged.
func (e *Engine) Search(root workflowy.NodeRef, query string, limit int, spec Spec) ([]ProjectedNode, Estimate) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	needle := strings.ToLower(query)

	// Explicit stack; children go on in reverse so pops follow outline
	// order.
	var stack []workflowy.NodeRef
	push := func(refs []workflowy.NodeRef) {
		for i := len(refs) - 1; i >= 0; i-- {
			stack = append(stack, refs[i])
		}
	}
	push(root.Children())

	results := []ProjectedNode{}
	for len(stack) > 0 && len(results) < limit {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if strings.Contains(strings.ToLower(n.Name()), needle) {
			results = append(results, e.Project(n, spec, 0))
		}
		if len(results) < limit {
			push(n.Children())
		}
	}

	return results, e.estimate(results)
}

// estimate serializes results once to apply the token heuristic, logging
// a warning when the estimate crosses the threshold.
func (e *Engine) estimate(results []ProjectedNode) Estimate {
	raw, err := json.Marshal(results)
	if err != nil {
		return Estimate{}
	}
	tokens := EstimateTokens(string(raw))
	est := Estimate{Tokens: tokens, Oversized: tokens > OversizeTokenThreshold}
	if est.Oversized {
		e.log.Warn("search result exceeds token threshold", telemetry.Ctx{
			"estimatedTokens": tokens,
			"threshold":       OversizeTokenThreshold,
			"results":         len(results),
		})
	}
	return est
}

// EstimateTokens approximates how many tokens text costs a language
// model, using the rough chars-per-token ratio. Non-empty text estimates
// to at least one token.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	if t := len(text) / tokenCharRatio; t > 0 {
		return t
	}
	return 1
}

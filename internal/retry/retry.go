// Package retry runs operations under the policy catalog, consulting the
// fault taxonomy to choose between another attempt and surfacing the
// failure.
package retry

import (
	"context"
	"time"

	"github.com/calebwren/treeline/internal/fault"
)

// sleep is swapped out by tests to observe backoff without waiting it out.
var sleep = time.Sleep

// Do invokes op until it succeeds, its failure classifies as
// non-retryable, or the policy's attempt budget is spent. The surfaced
// error is the last failure's classification annotated with the attempt
// count; earlier failures are discarded.
//
// Every call owns an independent attempt counter. ctx reaches the
// operation body, but the waits between attempts are not interruptible:
// a call that has started retrying runs to success or exhaustion, and the
// extra latency is bounded by the sum of the policy's delays.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	budget := p.MaxAttempts
	if budget < 1 {
		budget = 1
	}
	for attempt := 1; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		cls := fault.Classify(err)
		if !cls.Retryable || attempt >= budget {
			return zero, cls.WithAttempts(attempt)
		}
		sleep(p.backoff(attempt + 1))
	}
}

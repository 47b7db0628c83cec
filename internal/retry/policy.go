package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy parameterizes retry behavior for one class of operation.
type Policy struct {
	// Name tags log records and metrics rows.
	Name string
	// MaxAttempts caps total invocations, the first try included.
	MaxAttempts int
	// BaseDelay is the nominal wait before the second attempt.
	BaseDelay time.Duration
	// Multiplier grows the nominal delay between consecutive waits.
	Multiplier float64
	// Jitter randomizes each wait by up to ±25% so synchronized
	// clients do not retry in lockstep.
	Jitter bool
}

// The catalog. Reads are safe to replay, so Standard gets the most
// attempts. A mutation whose failure raced the service may already have
// been applied, and replaying it duplicates the side effect: Write and
// Batch therefore get fewer attempts and longer waits, and Batch, which
// multiplies that exposure across items, gets the fewest.
var (
	// Quick paces authentication probes.
	Quick = Policy{Name: "quick", MaxAttempts: 2, BaseDelay: 500 * time.Millisecond, Multiplier: 1.5, Jitter: true}

	// Standard paces reads and search.
	Standard = Policy{Name: "standard", MaxAttempts: 4, BaseDelay: time.Second, Multiplier: 2.0, Jitter: true}

	// Write paces single mutations.
	Write = Policy{Name: "write", MaxAttempts: 3, BaseDelay: 2 * time.Second, Multiplier: 2.5, Jitter: true}

	// Batch paces multi-item mutations.
	Batch = Policy{Name: "batch", MaxAttempts: 2, BaseDelay: 3 * time.Second, Multiplier: 2.5, Jitter: true}
)

// jitterFraction bounds the random perturbation of a nominal delay.
const jitterFraction = 0.25

// nominal returns the un-jittered wait preceding the given attempt:
// BaseDelay × Multiplier^(attempt-2). The first attempt has no wait.
func (p Policy) nominal(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-2))
	return time.Duration(d)
}

// backoff returns the wait before the given attempt, jittered when the
// policy asks for it. The result never drops below the previous wait's
// nominal value, so waits grow monotonically even under jitter.
func (p Policy) backoff(attempt int) time.Duration {
	d := p.nominal(attempt)
	if d <= 0 {
		return 0
	}
	if p.Jitter {
		f := 1 + jitterFraction*(2*rand.Float64()-1)
		d = time.Duration(float64(d) * f)
	}
	if floor := p.nominal(attempt - 1); d < floor {
		d = floor
	}
	return d
}

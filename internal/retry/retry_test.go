package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calebwren/treeline/internal/fault"
)

// stubSleep records backoff waits instead of sleeping them.
func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = orig })
	return &slept
}

func TestDo_FirstAttemptSuccess(t *testing.T) {
	slept := stubSleep(t)

	calls := 0
	got, err := Do(context.Background(), Standard, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("result = %q, want %q", got, "ok")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %d times, want 0", len(*slept))
	}
}

func TestDo_RetryableExhaustsBudget(t *testing.T) {
	policies := []Policy{Quick, Standard, Write, Batch}
	for _, p := range policies {
		t.Run(p.Name, func(t *testing.T) {
			slept := stubSleep(t)

			calls := 0
			_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
				calls++
				return 0, errors.New("connection refused")
			})
			if err == nil {
				t.Fatal("expected error after exhausting attempts")
			}
			if calls != p.MaxAttempts {
				t.Errorf("calls = %d, want %d", calls, p.MaxAttempts)
			}
			if len(*slept) != p.MaxAttempts-1 {
				t.Errorf("slept %d times, want %d", len(*slept), p.MaxAttempts-1)
			}

			var fe *fault.Error
			if !errors.As(err, &fe) {
				t.Fatalf("surfaced error is %T, want *fault.Error", err)
			}
			if fe.Kind != fault.KindNetwork {
				t.Errorf("Kind = %s, want %s", fe.Kind, fault.KindNetwork)
			}
			if fe.Attempts != p.MaxAttempts {
				t.Errorf("Attempts = %d, want %d", fe.Attempts, p.MaxAttempts)
			}
		})
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind fault.Kind
	}{
		{"authentication", errors.New("login rejected: invalid credentials"), fault.KindAuthentication},
		{"not found", fault.NotFound("abc"), fault.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slept := stubSleep(t)

			calls := 0
			_, err := Do(context.Background(), Standard, func(ctx context.Context) (int, error) {
				calls++
				return 0, tt.err
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if calls != 1 {
				t.Errorf("calls = %d, want 1", calls)
			}
			if len(*slept) != 0 {
				t.Errorf("slept %d times, want 0", len(*slept))
			}
			if !fault.IsKind(err, tt.kind) {
				t.Errorf("surfaced kind = %v, want %s", err, tt.kind)
			}

			var fe *fault.Error
			if errors.As(err, &fe) && fe.Attempts != 1 {
				t.Errorf("Attempts = %d, want 1", fe.Attempts)
			}
		})
	}
}

func TestDo_EventualSuccess(t *testing.T) {
	slept := stubSleep(t)

	calls := 0
	got, err := Do(context.Background(), Write, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset by peer")
		}
		return "saved", nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got != "saved" {
		t.Errorf("result = %q, want %q", got, "saved")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(*slept) != 2 {
		t.Errorf("slept %d times, want 2", len(*slept))
	}
}

func TestDo_ZeroMaxAttemptsRunsOnce(t *testing.T) {
	stubSleep(t)

	calls := 0
	_, err := Do(context.Background(), Policy{Name: "degenerate"}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_IndependentAttemptCounters(t *testing.T) {
	stubSleep(t)

	body := func(ctx context.Context) (int, error) { return 0, errors.New("rate limit") }
	for i := 0; i < 2; i++ {
		_, err := Do(context.Background(), Quick, body)
		var fe *fault.Error
		if !errors.As(err, &fe) {
			t.Fatalf("run %d: surfaced error is %T", i, err)
		}
		if fe.Attempts != Quick.MaxAttempts {
			t.Errorf("run %d: Attempts = %d, want %d", i, fe.Attempts, Quick.MaxAttempts)
		}
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	p := Policy{Name: "probe", MaxAttempts: 6, BaseDelay: 100 * time.Millisecond, Multiplier: 1.5, Jitter: true}
	slept := stubSleep(t)

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("expected exhaustion")
	}
	if len(*slept) != p.MaxAttempts-1 {
		t.Fatalf("slept %d times, want %d", len(*slept), p.MaxAttempts-1)
	}

	const eps = time.Millisecond
	for k, d := range *slept {
		attempt := k + 2 // d is the wait before this attempt
		nom := p.nominal(attempt)
		lo := time.Duration(float64(nom) * (1 - jitterFraction))
		hi := time.Duration(float64(nom) * (1 + jitterFraction))
		if d < lo-eps || d > hi+eps {
			t.Errorf("wait before attempt %d = %v, want within [%v, %v]", attempt, d, lo, hi)
		}
		if prev := p.nominal(attempt - 1); d < prev {
			t.Errorf("wait before attempt %d = %v, dropped below previous nominal %v", attempt, d, prev)
		}
	}
}

func TestBackoff_NoJitterIsNominal(t *testing.T) {
	p := Policy{Name: "flat", MaxAttempts: 4, BaseDelay: 100 * time.Millisecond, Multiplier: 2.0}
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}
	for i, attempt := range []int{2, 3, 4} {
		if got := p.backoff(attempt); got != want[i] {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, want[i])
		}
	}
	if got := p.backoff(1); got != 0 {
		t.Errorf("backoff(1) = %v, want 0", got)
	}
}

func TestPolicyCatalog(t *testing.T) {
	for _, p := range []Policy{Quick, Standard, Write, Batch} {
		if p.MaxAttempts < 1 {
			t.Errorf("%s: MaxAttempts = %d", p.Name, p.MaxAttempts)
		}
		if p.BaseDelay <= 0 {
			t.Errorf("%s: BaseDelay = %v", p.Name, p.BaseDelay)
		}
		if p.Multiplier < 1 {
			t.Errorf("%s: Multiplier = %v", p.Name, p.Multiplier)
		}
		if !p.Jitter {
			t.Errorf("%s: catalog policies jitter", p.Name)
		}
	}

	// Mutations get less retry budget and longer waits than reads.
	if Write.MaxAttempts >= Standard.MaxAttempts {
		t.Error("Write must allow fewer attempts than Standard")
	}
	if Batch.MaxAttempts > Write.MaxAttempts {
		t.Error("Batch must not allow more attempts than Write")
	}
	if Write.BaseDelay <= Standard.BaseDelay {
		t.Error("Write must wait longer than Standard before retrying")
	}
	if Batch.BaseDelay <= Write.BaseDelay {
		t.Error("Batch must wait longer than Write before retrying")
	}
	if Write.MaxAttempts < 3 {
		t.Error("Write must allow at least one transient failure before a manual check is needed")
	}
}

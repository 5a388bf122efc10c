package collector

import (
	"context"
	"fmt"
	"time"
)

// Backoff returns the wait after the given failed attempt (1-based).
type Backoff func(base time.Duration, attempt int) time.Duration

// FixedBackoff waits base after every failure.
func FixedBackoff(base time.Duration, _ int) time.Duration { return base }

// LinearBackoff waits base*attempt, growing with each failure.
func LinearBackoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// ParseBackoff maps a config name to a Backoff.
func ParseBackoff(name string) (Backoff, error) {
	switch name {
	case "", "fixed":
		return FixedBackoff, nil
	case "linear":
		return LinearBackoff, nil
	default:
		return nil, fmt.Errorf("unknown backoff %q", name)
	}
}

// RetryPolicy controls how the collector paces and retries provider calls.
type RetryPolicy struct {
	MaxAttempts  int
	Delay        time.Duration // base wait between attempts for one ticker
	Backoff      Backoff
	RequestDelay time.Duration // pacing sleep before every request
}

// DefaultRetryPolicy is three attempts with a fixed 20s wait.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 20 * time.Second, Backoff: FixedBackoff}
}

// DelayAfter returns the wait after the given failed attempt.
func (p RetryPolicy) DelayAfter(attempt int) time.Duration {
	if p.Backoff == nil {
		return p.Delay
	}
	return p.Backoff(p.Delay, attempt)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

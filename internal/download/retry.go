package download

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy is an explicit, injectable retry schedule. It is a plain
// value so tests can swap in a zero-wait policy.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts uint
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration
	// Multiplier grows the delay between successive retries.
	Multiplier float64
	// MaxInterval caps the delay between retries.
	MaxInterval time.Duration
}

// DefaultRetryPolicy returns the production retry schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2.0,
		MaxInterval:     10 * time.Second,
	}
}

// ZeroWaitPolicy returns a policy that retries immediately. For tests.
func ZeroWaitPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 0,
		Multiplier:      1.0,
		MaxInterval:     0,
	}
}

// newBackOff builds the backoff schedule for one download invocation.
// Schedules are stateful, so each invocation gets a fresh one.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	return b
}

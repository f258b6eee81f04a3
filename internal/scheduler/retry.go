// internal/scheduler/retry.go
package scheduler

import "time"

// RetryPolicy bounds the slot-search/create loop: a fixed attempt count and a
// delay function keyed by the attempt just failed. The delay function is
// pluggable so constant delay can later be swapped for backoff with jitter
// without changing call sites.
type RetryPolicy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
}

// FixedDelayPolicy returns the production policy: a constant inter-attempt
// delay regardless of attempt number.
func FixedDelayPolicy(maxAttempts int, delay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Delay: func(int) time.Duration {
			return delay
		},
	}
}

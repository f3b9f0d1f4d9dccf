package worker

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy is a bounded exponential backoff. The two tuned instances
// live here: the sync queue's defaults (withQueueDefaults) and the
// admission path's read policy (ReadRetryPolicy).
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Jitter widens each delay by up to this fraction so parallel
	// retries do not hit the sheets API in lockstep.
	Jitter float64
}

// withQueueDefaults fills zero fields with the sync-queue settings:
// patient delays, because nothing is waiting on a mirror write.
func (r RetryPolicy) withQueueDefaults() RetryPolicy {
	if r.MaxRetries == 0 {
		r.MaxRetries = 5
	}
	if r.InitialDelay == 0 {
		r.InitialDelay = 2 * time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = time.Minute
	}
	if r.BackoffFactor == 0 {
		r.BackoffFactor = 2
	}
	if r.Jitter == 0 {
		r.Jitter = 0.2
	}
	return r
}

// ReadRetryPolicy bounds retries of idempotent store reads on the
// admission path. Tight limits: an operator is waiting on the answer.
func ReadRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2,
	}
}

// NextDelay returns the delay before the given attempt (1-based). The
// MaxDelay clamp applies before jitter, so a jittered delay may exceed
// it by at most the jitter fraction.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	if r.Jitter > 0 {
		d += time.Duration(rand.Float64() * r.Jitter * float64(d))
	}
	return d
}

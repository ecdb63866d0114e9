package lifecycle

import "time"

// maxSendAttempts is the hard ceiling on transaction send attempts. A policy
// asking for more is clamped; resubmission past a checkpoint's validity is
// never silent.
const maxSendAttempts = 5

// RetryPolicy bounds the send retry loop.
type RetryPolicy struct {
	// MaxAttempts is the total number of send attempts, clamped to
	// maxSendAttempts.
	MaxAttempts int
	// InitialDelay before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// BackoffMult multiplies the delay after each attempt.
	BackoffMult float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  maxSendAttempts,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		BackoffMult:  2.0,
	}
}

// normalize fills zero fields from the default and clamps the attempt count.
func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.MaxAttempts > maxSendAttempts {
		p.MaxAttempts = maxSendAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.BackoffMult <= 1 {
		p.BackoffMult = def.BackoffMult
	}
	return p
}

// nextDelay advances the backoff.
func (p RetryPolicy) nextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * p.BackoffMult)
	if next > p.MaxDelay {
		next = p.MaxDelay
	}
	return next
}

package peer

import "time"

// RetryPolicy bounds how often the controller redials a peer whose listener
// is not up yet. The listener side is never retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of dials per connection attempt.
	// Values below 1 mean a single dial.
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Delay:       500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Allows reports whether another dial may follow the given number of dials.
func (p RetryPolicy) Allows(dials int) bool {
	return dials < p.MaxAttempts
}

// Backoff returns the wait before the dial that follows the given number of
// failed dials. The delay doubles each time and is capped at MaxDelay.
func (p RetryPolicy) Backoff(failed int) time.Duration {
	if failed < 1 {
		failed = 1
	}
	d := p.Delay
	for i := 1; i < failed; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

package live

import "time"

// Reconnection defaults.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// Policy decides whether and when a closed subscription retries. It holds no
// state of its own; the attempt count lives on the Client.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// DefaultPolicy returns the 5 attempt, 1s doubling, 10s capped policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Base:        DefaultBaseDelay,
		Max:         DefaultMaxDelay,
	}
}

// withDefaults fills zero fields so a partially configured Policy still works.
func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.Base <= 0 {
		p.Base = DefaultBaseDelay
	}
	if p.Max <= 0 {
		p.Max = DefaultMaxDelay
	}
	return p
}

// ShouldRetry reports whether a retry is allowed after attempt consecutive
// failures (0-indexed).
func (p Policy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

// Delay returns min(Base * 2^attempt, Max).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.Base
	for i := 0; i < attempt; i++ {
		if d >= p.Max {
			return p.Max
		}
		d *= 2
	}
	return min(d, p.Max)
}

// Next combines ShouldRetry and Delay.
func (p Policy) Next(attempt int) (time.Duration, bool) {
	if !p.ShouldRetry(attempt) {
		return 0, false
	}
	return p.Delay(attempt), true
}

package client

import "time"

const (
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultMaxAttempts = 5
)

// Backoff returns the delay before reconnect attempt n (1-based):
// base doubled n times, capped at maxDelay.
func Backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		if d >= maxDelay {
			return maxDelay
		}
		d *= 2
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

package ratelimiter

import "time"

// Limiter decides whether a caller identified by key may proceed. When it
// may not, the returned duration is how long until it can retry.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

// Noop lets every request through.
type Noop struct{}

func (Noop) Allow(string) (bool, time.Duration) { return true, 0 }

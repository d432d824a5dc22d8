// Package ratelimit implements per-key sliding window limits.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = time.Minute
)

// Config bounds the number of attempts per key within a sliding window.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}

// Decision is the outcome of a single attempt. Denied attempts are not
// recorded and do not extend the window.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter records attempts per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

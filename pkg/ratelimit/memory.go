package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps attempt timestamps per key in process memory. A janitor
// goroutine evicts keys with no attempt inside the window; call Stop to end it.
type MemoryLimiter struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	attempts map[string][]time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

type MemoryOption func(*MemoryLimiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) { l.now = now }
}

// NewMemoryLimiter starts a limiter whose janitor sweeps every janitorInterval.
// A non-positive interval uses the window length.
func NewMemoryLimiter(cfg Config, janitorInterval time.Duration, opts ...MemoryOption) *MemoryLimiter {
	cfg = cfg.withDefaults()
	l := &MemoryLimiter{
		cfg:      cfg,
		now:      time.Now,
		attempts: make(map[string][]time.Time),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if janitorInterval <= 0 {
		janitorInterval = cfg.Window
	}
	go l.janitor(janitorInterval)
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(key, now)

	if len(recent) >= l.cfg.MaxAttempts {
		return Decision{
			Allowed:    false,
			RetryAfter: recent[0].Add(l.cfg.Window).Sub(now),
		}, nil
	}

	recent = append(recent, now)
	l.attempts[key] = recent
	return Decision{Allowed: true, Remaining: l.cfg.MaxAttempts - len(recent)}, nil
}

// prune drops attempts outside the window. Callers hold mu.
func (l *MemoryLimiter) prune(key string, now time.Time) []time.Time {
	attempts := l.attempts[key]
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(attempts) && !attempts[i].After(cutoff) {
		i++
	}
	recent := attempts[i:]
	if len(recent) == 0 {
		delete(l.attempts, key)
		return nil
	}
	l.attempts[key] = recent
	return recent
}

func (l *MemoryLimiter) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictStale()
		case <-l.stopCh:
			return
		}
	}
}

func (l *MemoryLimiter) evictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key := range l.attempts {
		l.prune(key, now)
	}
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

// Stop shuts down the janitor. It is safe to call multiple times.
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

package resilience

import (
	"sync"
	"time"
)

// RateLimiterConfig holds sliding-window rate limiter configuration
type RateLimiterConfig struct {
	// Limit is the maximum number of admissions per window per key
	Limit int
	// Window is the sliding window length. Production use is one minute;
	// tests shrink it.
	Window time.Duration
}

// DefaultRateLimiterConfig returns the default per-model admission limits
func DefaultRateLimiterConfig(perMinute int) RateLimiterConfig {
	return RateLimiterConfig{
		Limit:  perMinute,
		Window: time.Minute,
	}
}

// SlidingWindowLimiter performs per-model admission control on outbound probe
// invocations. Rejection is not an error; it signals the caller to return a
// rate_limited result without attempting the invocation.
type SlidingWindowLimiter struct {
	limit  int
	window time.Duration

	mutex      sync.Mutex
	admissions map[string][]time.Time
}

// NewSlidingWindowLimiter creates a new limiter
func NewSlidingWindowLimiter(config RateLimiterConfig) *SlidingWindowLimiter {
	if config.Limit <= 0 {
		config.Limit = 60
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &SlidingWindowLimiter{
		limit:      config.Limit,
		window:     config.Window,
		admissions: make(map[string][]time.Time),
	}
}

// TryAdmit reports whether an invocation for the model key may proceed and,
// if so, records the admission. Pruning uses real elapsed time against every
// recorded timestamp, so out-of-order entries cannot keep the window full.
func (l *SlidingWindowLimiter) TryAdmit(modelKey string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := time.Now()
	kept := l.prune(modelKey, now)

	if len(kept) >= l.limit {
		return false
	}

	l.admissions[modelKey] = append(kept, now)
	return true
}

// Snapshot returns the current in-window admission count per model key
func (l *SlidingWindowLimiter) Snapshot() map[string]int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := time.Now()
	counts := make(map[string]int, len(l.admissions))
	for key := range l.admissions {
		kept := l.prune(key, now)
		if len(kept) > 0 {
			counts[key] = len(kept)
		}
	}

	return counts
}

// Limit returns the configured per-window admission limit
func (l *SlidingWindowLimiter) Limit() int {
	return l.limit
}

// prune drops timestamps older than the window. Callers must hold the mutex.
func (l *SlidingWindowLimiter) prune(modelKey string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)

	recorded := l.admissions[modelKey]
	kept := recorded[:0]
	for _, ts := range recorded {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) == 0 {
		delete(l.admissions, modelKey)
		return nil
	}

	l.admissions[modelKey] = kept
	return kept
}

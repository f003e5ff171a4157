package guardrail

import (
	"context"
	"sync"
	"time"
)

// waitPollInterval bounds how long WaitForToken sleeps between poll
// attempts, so a token freed early is picked up promptly.
const waitPollInterval = 100 * time.Millisecond

// TokenBucket is an in-process token-bucket rate limiter. Tokens accumulate
// continuously at RequestsPerSecond spread over TimeWindow, up to
// BurstCapacity, and each granted permit spends one token.
//
// All state lives behind a per-instance mutex: the refill is a
// read-modify-write of (tokens, lastUpdate) and must not double-count
// elapsed time across concurrent acquirers, so the lock wraps the whole
// computation rather than just the decrement.
type TokenBucket struct {
	name  string
	cfg   RateLimitConfig
	clock Clock
	hooks *Hooks

	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// NewTokenBucket creates a full bucket from cfg. The configuration is
// validated here; in particular a zero TimeWindow is rejected so the refill
// math cannot divide by zero.
func NewTokenBucket(name string, cfg RateLimitConfig, clock Clock, hooks *Hooks) (*TokenBucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = RealClock{}
	}

	return &TokenBucket{
		name:       name,
		cfg:        cfg,
		clock:      clock,
		hooks:      hooks,
		tokens:     float64(cfg.BurstCapacity),
		lastUpdate: clock.Now(),
	}, nil
}

// Name returns the logical resource name the bucket was created under.
func (tb *TokenBucket) Name() string { return tb.name }

// refillLocked credits tokens for the time elapsed since the last update and
// advances lastUpdate. Negative elapsed time (clock skew) credits nothing.
// Callers must hold tb.mu.
func (tb *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(tb.lastUpdate).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	tb.tokens += elapsed * tb.cfg.RequestsPerSecond / tb.cfg.TimeWindow.Seconds()
	if tb.tokens > float64(tb.cfg.BurstCapacity) {
		tb.tokens = float64(tb.cfg.BurstCapacity)
	}

	tb.lastUpdate = now
}

// Acquire attempts to take one token without blocking and reports whether a
// permit was granted.
func (tb *TokenBucket) Acquire() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(tb.clock.Now())

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}

	tb.hooks.emitRateLimited(tb.name)

	return false
}

// WaitForToken blocks until a token is available or timeout elapses,
// reporting whether a permit was granted. A non-positive timeout degrades to
// a single non-blocking attempt. Cancelling ctx also returns false; callers
// compose their own cancellation semantics on top of the boolean result.
func (tb *TokenBucket) WaitForToken(ctx context.Context, timeout time.Duration) bool {
	if tb.Acquire() {
		return true
	}

	if timeout <= 0 {
		return false
	}

	deadline := tb.clock.Now().Add(timeout)

	for {
		remaining := deadline.Sub(tb.clock.Now())
		if remaining <= 0 {
			return false
		}

		wait := remaining
		if wait > waitPollInterval {
			wait = waitPollInterval
		}

		timer := tb.clock.NewTimer(wait)
		select {
		case <-timer.C():
			if tb.Acquire() {
				return true
			}
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}
}

// Saturated reports whether the bucket is currently empty (no whole token
// available). Used for health reporting; it does not consume a token.
func (tb *TokenBucket) Saturated() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(tb.clock.Now())

	return tb.tokens < 1.0
}

package guardrail

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State uint32

// Circuit breaker states.
const (
	// StateClosed is the initial state: all calls pass through.
	StateClosed State = iota
	// StateOpen rejects every call without invoking the operation.
	StateOpen
	// StateHalfOpen admits a bounded number of concurrent trial calls.
	StateHalfOpen
)

// String returns the state as "closed", "open" or "half_open".
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker tracks consecutive failures of a named downstream resource
// and fails fast once it is deemed unhealthy.
//
// State machine: CLOSED counts consecutive failures (one interleaved success
// resets the count to zero — counting is cumulative since last reset, not
// windowed) and opens at FailureThreshold. OPEN rejects until
// RecoveryTimeout has elapsed past the last failure, then admits trial calls
// in HALF_OPEN, at most HalfOpenMaxRequests concurrently. A trial success
// closes the circuit; a trial failure reopens it.
//
// All mutation happens under a mutex scoped to this breaker instance, so
// concurrent callers against the same named resource observe one consistent
// machine. Independent names never contend.
type CircuitBreaker struct {
	name  string
	cfg   CircuitBreakerConfig
	clock Clock
	hooks *Hooks

	mu               sync.Mutex
	state            State
	failureCount     int
	lastFailure      time.Time // zero value = no failure recorded
	halfOpenRequests int
}

// NewCircuitBreaker creates a closed breaker for the named resource.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, clock Clock, hooks *Hooks) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = RealClock{}
	}

	return &CircuitBreaker{
		name:  name,
		cfg:   cfg,
		clock: clock,
		hooks: hooks,
	}, nil
}

// Name returns the logical resource name the breaker was created under.
func (cb *CircuitBreaker) Name() string { return cb.name }

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// Allow runs the admission side of the state machine. It returns nil when
// the call may proceed and ErrCircuitOpen when it must be rejected. A
// half-open admission counts against the trial cap until RecordSuccess or
// RecordFailure resolves it.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if !cb.lastFailure.IsZero() && cb.clock.Since(cb.lastFailure) > cb.cfg.RecoveryTimeout {
			cb.state = StateHalfOpen
			cb.halfOpenRequests = 1
			cb.hooks.emitCircuitHalfOpen(cb.name)

			return nil
		}

		return fmt.Errorf("circuit %q: %w", cb.name, ErrCircuitOpen)

	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("circuit %q: %w", cb.name, ErrCircuitOpen)
		}

		cb.halfOpenRequests++

		return nil

	default: // StateClosed
		return nil
	}
}

// RecordSuccess records a successful call. In the closed state it resets the
// consecutive-failure count; a half-open trial success closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateClosed
		cb.failureCount = 0
		cb.halfOpenRequests = 0
		cb.hooks.emitCircuitClose(cb.name)

	case StateClosed:
		cb.failureCount = 0

	default:
		// Open: success has nothing to act on.
	}
}

// RecordFailure records a failed call and reports whether the breaker is now
// open. Closed-state failures open the circuit at the threshold; any
// half-open trial failure reopens it.
func (cb *CircuitBreaker) RecordFailure() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailure = cb.clock.Now()

	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.hooks.emitCircuitOpen(cb.name)
		}

	case StateHalfOpen:
		cb.state = StateOpen
		cb.halfOpenRequests = 0
		cb.hooks.emitCircuitOpen(cb.name)

	default:
		// Already open.
	}

	return cb.state == StateOpen
}

// Execute runs op under the breaker's protection. When admission is rejected
// op is never invoked and ErrCircuitOpen is returned. An error from op is
// recorded and re-surfaced to the caller; if that failure itself left the
// circuit open, the returned error additionally matches ErrCircuitOpen while
// still wrapping the original failure.
func Execute[T any](ctx context.Context, cb *CircuitBreaker, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := cb.Allow(); err != nil {
		return zero, err
	}

	val, err := op(ctx)
	if err != nil {
		if opened := cb.RecordFailure(); opened {
			return zero, fmt.Errorf("circuit %q: %w: %w", cb.name, ErrCircuitOpen, err)
		}

		return zero, err
	}

	cb.RecordSuccess()

	return val, nil
}

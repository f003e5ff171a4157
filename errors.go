package guardrail

// ToolkitError identifies errors produced by the resilience layer itself, as
// opposed to errors returned by a wrapped operation. Callers can use it (or
// errors.Is against the sentinels below) to decide between backing off and
// surfacing a downstream fault.
type ToolkitError interface {
	error
	// IsToolkit reports whether this error originates from the resilience
	// layer rather than the protected operation.
	IsToolkit() bool
}

// toolkitError is the concrete type backing all sentinel errors.
type toolkitError string

// Sentinel errors.
var (
	// ErrRateLimited is returned when a token bucket has no token to grant.
	// It never indicates a downstream fault; back off or queue.
	ErrRateLimited error = toolkitError("rate limit exceeded")
	// ErrCircuitOpen is returned when a breaker is open, or half-open with
	// all trial slots taken. The wrapped operation was not invoked.
	ErrCircuitOpen error = toolkitError("circuit breaker is open")
	// ErrBulkheadFull is returned by [Bulkhead.TryAcquire] when every
	// permit is in use.
	ErrBulkheadFull error = toolkitError("bulkhead full")
)

func (e toolkitError) Error() string { return string(e) }

// IsToolkit reports whether the error is a resilience infrastructure error.
func (toolkitError) IsToolkit() bool { return true }

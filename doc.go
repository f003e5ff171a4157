// Package guardrail protects callers from overloading unreliable downstream
// dependencies, and from being overloaded themselves.
//
// It provides four primitives: a token-bucket rate limiter ([TokenBucket]),
// a distributed sliding-window rate limiter ([SlidingWindow]), a three-state
// circuit breaker ([CircuitBreaker]), and a concurrency cap ([Bulkhead]).
// A [Registry] caches named limiter and breaker instances so that call sites
// sharing a logical resource name (say, "bse_api") share one state machine.
//
// The package knows nothing about HTTP, HTML, or domain data; callers wrap
// their own operations with [Execute], [Run], or the middleware combinators
// and compose the protections explicitly at the call site.
package guardrail

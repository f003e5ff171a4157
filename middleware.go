package guardrail

import "context"

// Pattern: Decorator — each protection wraps the next, so the composition
// (rate limit, then circuit break, then bulkhead) is visible at the call
// site rather than hidden behind annotations.

// Middleware wraps an operation with additional behavior. Each middleware
// receives the next function in the chain and returns a wrapped version.
type Middleware[T any] func(next func(context.Context) (T, error)) func(context.Context) (T, error)

// Chain composes middlewares into one. The first middleware is the
// outermost wrapper: Chain(a, b, c) produces a(b(c(next))). Chain() with no
// middlewares is the identity.
func Chain[T any](middlewares ...Middleware[T]) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next
	}
}

// RateLimitMiddleware gates the chain on tb: a denied permit returns
// ErrRateLimited without invoking the rest of the chain.
func RateLimitMiddleware[T any](tb *TokenBucket) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		return func(ctx context.Context) (T, error) {
			if !tb.Acquire() {
				var zero T
				return zero, ErrRateLimited
			}

			return next(ctx)
		}
	}
}

// BreakerMiddleware runs the rest of the chain under cb via [Execute]:
// rejected admissions return ErrCircuitOpen, outcomes feed the breaker's
// state machine.
func BreakerMiddleware[T any](cb *CircuitBreaker) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		return func(ctx context.Context) (T, error) {
			return Execute(ctx, cb, next)
		}
	}
}

// BulkheadMiddleware runs the rest of the chain under b via [Run], blocking
// for a permit and releasing it on every exit path.
func BulkheadMiddleware[T any](b *Bulkhead) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		return func(ctx context.Context) (T, error) {
			return Run(ctx, b, next)
		}
	}
}

// RateLimited decorates op so each invocation must win a token from tb or
// fail with ErrRateLimited. Convenience for protecting a single call site
// without building a chain.
func RateLimited[T any](tb *TokenBucket, op func(context.Context) (T, error)) func(context.Context) (T, error) {
	return RateLimitMiddleware[T](tb)(op)
}

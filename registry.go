package guardrail

import (
	"sync"
)

// Registry caches limiter and breaker instances by logical resource name so
// that call sites sharing a name ("bse_api", "nse_api", ...) share one state
// machine. Entries are created lazily on first lookup and live for the
// registry's lifetime; the expected set of names is small and fixed, so
// there is no eviction.
//
// The registry's own mutex guards only the maps. Each cached instance
// carries its own lock, so unrelated resources never contend with each
// other.
type Registry struct {
	clock Clock
	hooks *Hooks

	mu       sync.Mutex
	limiters map[string]*TokenBucket
	breakers map[string]*CircuitBreaker

	// Per-name configurations seeded by LoadConfig, consulted when a Get
	// call supplies no explicit configuration.
	limiterConfigs map[string]RateLimitConfig
	breakerConfigs map[string]CircuitBreakerConfig
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock sets the clock handed to every instance the registry creates.
func WithClock(c Clock) RegistryOption {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithHooks sets the lifecycle hooks handed to every instance the registry
// creates.
func WithHooks(h *Hooks) RegistryOption {
	return func(r *Registry) {
		r.hooks = h
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		clock:          RealClock{},
		limiters:       make(map[string]*TokenBucket),
		breakers:       make(map[string]*CircuitBreaker),
		limiterConfigs: make(map[string]RateLimitConfig),
		breakerConfigs: make(map[string]CircuitBreakerConfig),
	}

	for _, o := range opts {
		o(r)
	}

	return r
}

// GetRateLimiter returns the token bucket for name, creating it on first
// use. The configuration is resolved in order: explicit cfg argument, then a
// config-file entry for name, then defaults. Once the instance exists, later
// calls return it unchanged and any newly supplied configuration is ignored.
func (r *Registry) GetRateLimiter(name string, cfg ...RateLimitConfig) (*TokenBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tb, ok := r.limiters[name]; ok {
		return tb, nil
	}

	tb, err := NewTokenBucket(name, r.resolveLimiterConfig(name, cfg), r.clock, r.hooks)
	if err != nil {
		return nil, err
	}

	r.limiters[name] = tb

	return tb, nil
}

// GetCircuitBreaker returns the breaker for name, creating it on first use.
// Configuration resolution follows the same order as GetRateLimiter.
func (r *Registry) GetCircuitBreaker(name string, cfg ...CircuitBreakerConfig) (*CircuitBreaker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb, nil
	}

	cb, err := NewCircuitBreaker(name, r.resolveBreakerConfig(name, cfg), r.clock, r.hooks)
	if err != nil {
		return nil, err
	}

	r.breakers[name] = cb

	return cb, nil
}

func (r *Registry) resolveLimiterConfig(name string, explicit []RateLimitConfig) RateLimitConfig {
	if len(explicit) > 0 {
		return explicit[0]
	}

	if cfg, ok := r.limiterConfigs[name]; ok {
		return cfg
	}

	return DefaultRateLimitConfig()
}

func (r *Registry) resolveBreakerConfig(name string, explicit []CircuitBreakerConfig) CircuitBreakerConfig {
	if len(explicit) > 0 {
		return explicit[0]
	}

	if cfg, ok := r.breakerConfigs[name]; ok {
		return cfg
	}

	return DefaultCircuitBreakerConfig()
}

// ---------------------------------------------------------------------------
// Default registry
// ---------------------------------------------------------------------------

//nolint:gochecknoglobals // singleton via sync.OnceValue
var defaultRegistry = sync.OnceValue(func() *Registry { return NewRegistry() })

// DefaultRegistry returns the package-level registry, creating it on first
// call. Prefer constructing an explicit [Registry] and injecting it;
// the default exists for callers that want process-wide sharing without
// plumbing.
//
// Pattern: Singleton — lazy initialization via sync.OnceValue.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// GetRateLimiter returns the named token bucket from [DefaultRegistry].
func GetRateLimiter(name string, cfg ...RateLimitConfig) (*TokenBucket, error) {
	return DefaultRegistry().GetRateLimiter(name, cfg...)
}

// GetCircuitBreaker returns the named breaker from [DefaultRegistry].
func GetCircuitBreaker(name string, cfg ...CircuitBreakerConfig) (*CircuitBreaker, error) {
	return DefaultRegistry().GetCircuitBreaker(name, cfg...)
}

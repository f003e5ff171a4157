package guardrail

import (
	"errors"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

// ---------------------------------------------------------------------------
// Runtime configuration types
// ---------------------------------------------------------------------------

// RateLimitConfig configures a [TokenBucket] or [SlidingWindow]. It is
// immutable once a limiter has been constructed from it.
type RateLimitConfig struct {
	// RequestsPerSecond is the token refill rate, spread over TimeWindow.
	// For [SlidingWindow] the same field is read as the absolute number of
	// events allowed per window (see the SlidingWindow docs).
	RequestsPerSecond float64
	// BurstCapacity is the maximum number of tokens the bucket holds.
	BurstCapacity int
	// TimeWindow is the interval the refill rate is spread over, and the
	// trailing window length for [SlidingWindow].
	TimeWindow time.Duration
}

// DefaultRateLimitConfig returns the stock limiter configuration:
// 10 requests per 60-second window with a burst of 20.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstCapacity:     20,
		TimeWindow:        60 * time.Second,
	}
}

// Validate reports whether the configuration is usable. A zero TimeWindow is
// rejected here so the refill math can never divide by zero.
func (c RateLimitConfig) Validate() error {
	if c.RequestsPerSecond <= 0 {
		return errors.New("requests_per_second must be > 0")
	}

	if c.BurstCapacity < 1 {
		return errors.New("burst_capacity must be >= 1")
	}

	if c.TimeWindow <= 0 {
		return errors.New("time_window must be > 0")
	}

	return nil
}

// CircuitBreakerConfig configures a [CircuitBreaker]. Immutable once a
// breaker has been constructed from it.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state that opens the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before a call is
	// allowed through as a half-open trial.
	RecoveryTimeout time.Duration
	// HalfOpenMaxRequests caps concurrent trial calls in the half-open
	// state; admissions beyond the cap are rejected.
	HalfOpenMaxRequests int
}

// DefaultCircuitBreakerConfig returns the stock breaker configuration:
// open after 5 consecutive failures, probe after 5 minutes, at most 3
// concurrent half-open trials.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:    5,
		RecoveryTimeout:     5 * time.Minute,
		HalfOpenMaxRequests: 3,
	}
}

// Validate reports whether the configuration is usable.
func (c CircuitBreakerConfig) Validate() error {
	if c.FailureThreshold < 1 {
		return errors.New("failure_threshold must be >= 1")
	}

	if c.RecoveryTimeout <= 0 {
		return errors.New("recovery_timeout must be > 0")
	}

	if c.HalfOpenMaxRequests < 1 {
		return errors.New("half_open_max_requests must be >= 1")
	}

	return nil
}

// ---------------------------------------------------------------------------
// Config file loading
// ---------------------------------------------------------------------------

type (
	// configFile is the top-level JSON structure: limiter and breaker
	// configurations keyed by logical resource name.
	configFile struct {
		Limiters map[string]limiterFileConfig `json:"limiters"`
		Breakers map[string]breakerFileConfig `json:"breakers"`
	}

	// limiterFileConfig mirrors RateLimitConfig with optional fields;
	// omitted fields keep their defaults. TimeWindow is parsed with
	// time.ParseDuration (example: "60s").
	limiterFileConfig struct {
		RequestsPerSecond *float64 `json:"requests_per_second,omitempty"`
		BurstCapacity     *int     `json:"burst_capacity,omitempty"`
		TimeWindow        *string  `json:"time_window,omitempty"`
	}

	// breakerFileConfig mirrors CircuitBreakerConfig with optional fields.
	// RecoveryTimeout is parsed with time.ParseDuration (example: "5m").
	breakerFileConfig struct {
		FailureThreshold    *int    `json:"failure_threshold,omitempty"`
		RecoveryTimeout     *string `json:"recovery_timeout,omitempty"`
		HalfOpenMaxRequests *int    `json:"half_open_max_requests,omitempty"`
	}
)

// LoadConfig reads a JSON configuration file and returns a [Registry]
// seeded with the decoded per-name configurations. Instances are not
// created until the first Get call for each name, so code-level options
// (clock, hooks) still apply. All configurations are validated eagerly so
// errors surface at load time rather than first use.
func LoadConfig(path string, opts ...RegistryOption) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("guardrail: read config: %w", err)
	}

	var cf configFile
	if err = json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("guardrail: parse config: %w", err)
	}

	reg := NewRegistry(opts...)

	for name, lc := range cf.Limiters {
		cfg, buildErr := lc.build()
		if buildErr != nil {
			return nil, fmt.Errorf("guardrail: limiter %q: %w", name, buildErr)
		}

		reg.limiterConfigs[name] = cfg
	}

	for name, bc := range cf.Breakers {
		cfg, buildErr := bc.build()
		if buildErr != nil {
			return nil, fmt.Errorf("guardrail: breaker %q: %w", name, buildErr)
		}

		reg.breakerConfigs[name] = cfg
	}

	return reg, nil
}

// build overlays the decoded fields on the defaults and validates the result.
func (lc limiterFileConfig) build() (RateLimitConfig, error) {
	cfg := DefaultRateLimitConfig()

	if lc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *lc.RequestsPerSecond
	}

	if lc.BurstCapacity != nil {
		cfg.BurstCapacity = *lc.BurstCapacity
	}

	if lc.TimeWindow != nil {
		d, err := time.ParseDuration(*lc.TimeWindow)
		if err != nil {
			return RateLimitConfig{}, fmt.Errorf("time_window: %w", err)
		}

		cfg.TimeWindow = d
	}

	if err := cfg.Validate(); err != nil {
		return RateLimitConfig{}, err
	}

	return cfg, nil
}

// build overlays the decoded fields on the defaults and validates the result.
func (bc breakerFileConfig) build() (CircuitBreakerConfig, error) {
	cfg := DefaultCircuitBreakerConfig()

	if bc.FailureThreshold != nil {
		cfg.FailureThreshold = *bc.FailureThreshold
	}

	if bc.RecoveryTimeout != nil {
		d, err := time.ParseDuration(*bc.RecoveryTimeout)
		if err != nil {
			return CircuitBreakerConfig{}, fmt.Errorf("recovery_timeout: %w", err)
		}

		cfg.RecoveryTimeout = d
	}

	if bc.HalfOpenMaxRequests != nil {
		cfg.HalfOpenMaxRequests = *bc.HalfOpenMaxRequests
	}

	if err := cfg.Validate(); err != nil {
		return CircuitBreakerConfig{}, err
	}

	return cfg, nil
}

package guardrail_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guardrail-dev/guardrail"
)

// ---------------------------------------------------------------------------
// Idempotence: same (kind, name) returns the identical instance
// ---------------------------------------------------------------------------

func TestRegistryReturnsSameLimiterInstance(t *testing.T) {
	reg := guardrail.NewRegistry()

	a, err := reg.GetRateLimiter("bse_api")
	if err != nil {
		t.Fatalf("GetRateLimiter() error = %v", err)
	}

	b, err := reg.GetRateLimiter("bse_api")
	if err != nil {
		t.Fatalf("GetRateLimiter() second call error = %v", err)
	}

	if a != b {
		t.Fatal("GetRateLimiter() returned distinct instances for the same name")
	}
}

func TestRegistryReturnsSameBreakerInstance(t *testing.T) {
	reg := guardrail.NewRegistry()

	a, err := reg.GetCircuitBreaker("bse_api")
	if err != nil {
		t.Fatalf("GetCircuitBreaker() error = %v", err)
	}

	b, err := reg.GetCircuitBreaker("bse_api")
	if err != nil {
		t.Fatalf("GetCircuitBreaker() second call error = %v", err)
	}

	if a != b {
		t.Fatal("GetCircuitBreaker() returned distinct instances for the same name")
	}
}

// ---------------------------------------------------------------------------
// Shared state: two lookups drive one state machine
// ---------------------------------------------------------------------------

func TestRegistrySharesStateAcrossLookups(t *testing.T) {
	reg := guardrail.NewRegistry()
	cfg := guardrail.RateLimitConfig{
		RequestsPerSecond: 1,
		BurstCapacity:     1,
		TimeWindow:        time.Minute,
	}

	a, err := reg.GetRateLimiter("shared", cfg)
	if err != nil {
		t.Fatalf("GetRateLimiter() error = %v", err)
	}

	if !a.Acquire() {
		t.Fatal("Acquire() on fresh limiter = false, want true")
	}

	// The second lookup sees the token already spent.
	b, _ := reg.GetRateLimiter("shared")
	if b.Acquire() {
		t.Fatal("Acquire() via second lookup = true, want false (state is shared)")
	}
}

// ---------------------------------------------------------------------------
// A later configuration is ignored once the instance exists
// ---------------------------------------------------------------------------

func TestRegistryIgnoresLaterConfig(t *testing.T) {
	reg := guardrail.NewRegistry()
	small := guardrail.RateLimitConfig{
		RequestsPerSecond: 1,
		BurstCapacity:     1,
		TimeWindow:        time.Minute,
	}
	big := guardrail.RateLimitConfig{
		RequestsPerSecond: 100,
		BurstCapacity:     100,
		TimeWindow:        time.Minute,
	}

	if _, err := reg.GetRateLimiter("sticky", small); err != nil {
		t.Fatalf("GetRateLimiter() error = %v", err)
	}

	tb, err := reg.GetRateLimiter("sticky", big)
	if err != nil {
		t.Fatalf("GetRateLimiter() second call error = %v", err)
	}

	if !tb.Acquire() {
		t.Fatal("Acquire() #1 = false, want true")
	}
	if tb.Acquire() {
		t.Fatal("Acquire() #2 = true, want false (burst is still 1)")
	}
}

// ---------------------------------------------------------------------------
// Kinds are independent: one name can host both a limiter and a breaker
// ---------------------------------------------------------------------------

func TestRegistryKindsAreIndependent(t *testing.T) {
	reg := guardrail.NewRegistry()

	if _, err := reg.GetRateLimiter("bse_api"); err != nil {
		t.Fatalf("GetRateLimiter() error = %v", err)
	}
	if _, err := reg.GetCircuitBreaker("bse_api"); err != nil {
		t.Fatalf("GetCircuitBreaker() error = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Invalid explicit configuration surfaces at creation
// ---------------------------------------------------------------------------

func TestRegistryRejectsInvalidConfig(t *testing.T) {
	reg := guardrail.NewRegistry()

	if _, err := reg.GetRateLimiter("bad", guardrail.RateLimitConfig{}); err == nil {
		t.Fatal("GetRateLimiter() with zero config error = nil, want validation error")
	}
}

// ---------------------------------------------------------------------------
// Default registry package-level accessors
// ---------------------------------------------------------------------------

func TestDefaultRegistryIsShared(t *testing.T) {
	a, err := guardrail.GetRateLimiter("default-reg-test")
	if err != nil {
		t.Fatalf("GetRateLimiter() error = %v", err)
	}

	b, _ := guardrail.DefaultRegistry().GetRateLimiter("default-reg-test")
	if a != b {
		t.Fatal("package-level and DefaultRegistry() lookups returned distinct instances")
	}
}

// ---------------------------------------------------------------------------
// Config file loading
// ---------------------------------------------------------------------------

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "guardrail.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestLoadConfigSeedsNamedInstances(t *testing.T) {
	path := writeConfig(t, `{
		"limiters": {
			"bse_api": {"requests_per_second": 2, "burst_capacity": 1, "time_window": "1s"}
		},
		"breakers": {
			"bse_api": {"failure_threshold": 1, "recovery_timeout": "10s"}
		}
	}`)

	reg, err := guardrail.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	tb, err := reg.GetRateLimiter("bse_api")
	if err != nil {
		t.Fatalf("GetRateLimiter() error = %v", err)
	}

	// burst_capacity 1 from the file, not the default 20.
	if !tb.Acquire() {
		t.Fatal("Acquire() #1 = false, want true")
	}
	if tb.Acquire() {
		t.Fatal("Acquire() #2 = true, want false (file burst is 1)")
	}

	cb, err := reg.GetCircuitBreaker("bse_api")
	if err != nil {
		t.Fatalf("GetCircuitBreaker() error = %v", err)
	}

	// failure_threshold 1 from the file: one failure opens.
	cb.RecordFailure()

	if got := cb.State(); got != guardrail.StateOpen {
		t.Fatalf("State() = %v, want open (file threshold is 1)", got)
	}
}

func TestLoadConfigUnknownNameGetsDefaults(t *testing.T) {
	path := writeConfig(t, `{"limiters": {}}`)

	reg, err := guardrail.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	tb, err := reg.GetRateLimiter("unlisted")
	if err != nil {
		t.Fatalf("GetRateLimiter() error = %v", err)
	}

	// Default burst is 20.
	for i := 0; i < 20; i++ {
		if !tb.Acquire() {
			t.Fatalf("Acquire() #%d = false, want true", i+1)
		}
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `{"limiters": {"x": {"time_window": "sixty"}}}`)

	if _, err := guardrail.LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() error = nil, want duration parse error")
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `{"breakers": {"x": {"failure_threshold": 0}}}`)

	if _, err := guardrail.LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() error = nil, want validation error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := guardrail.LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("LoadConfig() error = nil, want read error")
	}
}

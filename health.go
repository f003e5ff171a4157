package guardrail

import "sort"

type (
	// ResourceStatus is the health of one named limiter or breaker.
	ResourceStatus struct {
		Name    string `json:"name"`
		Kind    string `json:"kind"` // "circuit_breaker" or "rate_limiter"
		State   string `json:"state"`
		Healthy bool   `json:"healthy"`
	}

	// ReadinessStatus aggregates the health of every instance a registry
	// has created. Ready is false while any circuit is open.
	ReadinessStatus struct {
		Resources []ResourceStatus `json:"resources"`
		Ready     bool             `json:"ready"`
	}
)

// CheckReadiness derives a snapshot of the registry's health. An open
// circuit marks the whole registry not ready; a saturated token bucket is
// reported but does not affect readiness (starved, not broken).
func (r *Registry) CheckReadiness() ReadinessStatus {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}

	limiters := make([]*TokenBucket, 0, len(r.limiters))
	for _, tb := range r.limiters {
		limiters = append(limiters, tb)
	}
	r.mu.Unlock()

	status := ReadinessStatus{Ready: true}

	for _, cb := range breakers {
		s := cb.State()
		status.Resources = append(status.Resources, ResourceStatus{
			Name:    cb.Name(),
			Kind:    "circuit_breaker",
			State:   s.String(),
			Healthy: s != StateOpen,
		})

		if s == StateOpen {
			status.Ready = false
		}
	}

	for _, tb := range limiters {
		state := "ok"
		if tb.Saturated() {
			state = "saturated"
		}

		status.Resources = append(status.Resources, ResourceStatus{
			Name:    tb.Name(),
			Kind:    "rate_limiter",
			State:   state,
			Healthy: true,
		})
	}

	// Map iteration order is random; keep the report stable.
	sort.Slice(status.Resources, func(i, j int) bool {
		if status.Resources[i].Kind != status.Resources[j].Kind {
			return status.Resources[i].Kind < status.Resources[j].Kind
		}

		return status.Resources[i].Name < status.Resources[j].Name
	})

	return status
}

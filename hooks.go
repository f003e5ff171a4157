package guardrail

// Hooks holds optional callbacks for lifecycle events. All fields are nil by
// default; callers set only the hooks they care about. A Hooks value must not
// be mutated after construction — the emit methods read the function fields
// without synchronisation.
//
// Pattern: Observer — decouples event emission from consumers (logging,
// metrics, alerting) without the primitives knowing about observers.
type Hooks struct {
	OnRateLimited      func(name string)
	OnCircuitOpen      func(name string)
	OnCircuitClose     func(name string)
	OnCircuitHalfOpen  func(name string)
	OnBulkheadAcquired func()
	OnBulkheadReleased func()
	OnBulkheadFull     func()
	OnStoreFailOpen    func(identifier string, err error)
}

func (h *Hooks) emitRateLimited(name string) {
	if h != nil && h.OnRateLimited != nil {
		h.OnRateLimited(name)
	}
}

func (h *Hooks) emitCircuitOpen(name string) {
	if h != nil && h.OnCircuitOpen != nil {
		h.OnCircuitOpen(name)
	}
}

func (h *Hooks) emitCircuitClose(name string) {
	if h != nil && h.OnCircuitClose != nil {
		h.OnCircuitClose(name)
	}
}

func (h *Hooks) emitCircuitHalfOpen(name string) {
	if h != nil && h.OnCircuitHalfOpen != nil {
		h.OnCircuitHalfOpen(name)
	}
}

func (h *Hooks) emitBulkheadAcquired() {
	if h != nil && h.OnBulkheadAcquired != nil {
		h.OnBulkheadAcquired()
	}
}

func (h *Hooks) emitBulkheadReleased() {
	if h != nil && h.OnBulkheadReleased != nil {
		h.OnBulkheadReleased()
	}
}

func (h *Hooks) emitBulkheadFull() {
	if h != nil && h.OnBulkheadFull != nil {
		h.OnBulkheadFull()
	}
}

func (h *Hooks) emitStoreFailOpen(identifier string, err error) {
	if h != nil && h.OnStoreFailOpen != nil {
		h.OnStoreFailOpen(identifier, err)
	}
}

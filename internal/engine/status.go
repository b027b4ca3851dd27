package engine

// RuleStatus describes one configured rule and its current binding.
type RuleStatus struct {
	SurfaceID uint32 `json:"surfaceId"`
	AppID     string `json:"appId,omitempty"`
	Title     string `json:"title,omitempty"`
	Bound     string `json:"bound,omitempty"`
}

// AllocatorStatus describes the dynamic pool state.
type AllocatorStatus struct {
	Enabled   bool   `json:"enabled"`
	Next      uint32 `json:"next"`
	Max       uint32 `json:"max"`
	Remaining uint32 `json:"remaining"`
}

// Status is the engine view exposed over the control socket.
type Status struct {
	Rules     []RuleStatus    `json:"rules"`
	Allocator AllocatorStatus `json:"allocator"`
}

// Status returns a consistent snapshot of rule bindings and allocator state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := Status{
		Allocator: AllocatorStatus{
			Enabled:   e.alloc.Enabled(),
			Next:      e.alloc.Next(),
			Max:       e.alloc.Max(),
			Remaining: e.alloc.Remaining(),
		},
	}
	for _, rule := range e.store.Rules() {
		rs := RuleStatus{SurfaceID: rule.SurfaceID, Bound: rule.Bound}
		if rule.AppID != nil {
			rs.AppID = *rule.AppID
		}
		if rule.Title != nil {
			rs.Title = *rule.Title
		}
		status.Rules = append(status.Rules, rs)
	}
	return status
}

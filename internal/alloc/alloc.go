// Package alloc hands out sequential surface ids from a bounded pool for
// applications that match no configured rule.
package alloc

import "errors"

// Allocation errors. All are scoped to a single assignment attempt.
var (
	ErrPolicyDisabled = errors.New("default id policy disabled")
	ErrPoolExhausted  = errors.New("default id pool exhausted")
	ErrIDInUse        = errors.New("default id already in use")
)

// Allocator is a bounded counter over [first, max). The next id is
// monotonically non-decreasing for the process lifetime: consumed ids are
// never recycled, even after the owning surface is removed.
type Allocator struct {
	next    uint32
	max     uint32
	enabled bool
}

// New creates an allocator. A disabled allocator fails every allocation with
// ErrPolicyDisabled.
func New(enabled bool, first, max uint32) *Allocator {
	return &Allocator{next: first, max: max, enabled: enabled}
}

// Allocate returns the next pool id. Before the id is consumed, occupied is
// consulted: the host may have handed the id to another surface through an
// independent path. A conflict fails with ErrIDInUse and consumes nothing;
// the id is retried by whichever assignment comes next. On success the
// counter advances by exactly one and never rolls back, even if a later step
// of the same assignment fails.
func (a *Allocator) Allocate(occupied func(id uint32) (bool, error)) (uint32, error) {
	if !a.enabled {
		return 0, ErrPolicyDisabled
	}
	if a.next >= a.max {
		return 0, ErrPoolExhausted
	}
	id := a.next
	if occupied != nil {
		conflict, err := occupied(id)
		if err != nil {
			return 0, err
		}
		if conflict {
			return 0, ErrIDInUse
		}
	}
	a.next++
	return id, nil
}

// Enabled reports whether the default policy is active.
func (a *Allocator) Enabled() bool { return a.enabled }

// Next returns the id the next successful allocation would yield.
func (a *Allocator) Next() uint32 { return a.next }

// Max returns the exclusive upper bound of the pool.
func (a *Allocator) Max() uint32 { return a.max }

// Remaining returns how many ids the pool can still hand out.
func (a *Allocator) Remaining() uint32 {
	if !a.enabled || a.next >= a.max {
		return 0
	}
	return a.max - a.next
}

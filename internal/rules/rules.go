package rules

import (
	"errors"
	"fmt"

	"github.com/saimizi/ivi-id-agent/internal/config"
)

// Configuration errors reported by Load. All of them are fatal to startup.
var (
	ErrMissingSurfaceID      = errors.New("surface id is not set")
	ErrDefaultRangeCollision = errors.New("surface id inside default pool range")
	ErrDuplicateSurfaceID    = errors.New("duplicate surface id")
	ErrEmptyRule             = errors.New("rule has no match attributes")
	ErrNoUsableConfig        = errors.New("no rules and default behavior disabled")
)

// Spec is a realized rule record, independent of the configuration codec.
// A nil pattern is a wildcard.
type Spec struct {
	SurfaceID uint32
	AppID     *string
	Title     *string
}

// Pool describes the dynamic pool the rule set must not collide with.
type Pool struct {
	Enabled bool
	First   uint32
	Max     uint32
}

// Rule is a loaded rule. Bound holds the handle of the live surface currently
// occupying the rule, or "" when unbound. Only the assignment coordinator
// mutates Bound; the surface itself is owned by the host compositor.
type Rule struct {
	SurfaceID uint32
	AppID     *string
	Title     *string
	Bound     string
}

// Store is the ordered, immutable rule collection. Order is configuration
// order and is the matcher's tie-break.
type Store struct {
	rules []*Rule
}

// SpecsFromConfig converts configuration records into rule specs.
func SpecsFromConfig(cfg *config.Config) []Spec {
	specs := make([]Spec, 0, len(cfg.Surfaces))
	for _, sc := range cfg.Surfaces {
		specs = append(specs, Spec{SurfaceID: sc.SurfaceID, AppID: sc.AppID, Title: sc.Title})
	}
	return specs
}

// Load validates the fully-populated rule list and builds the immutable
// store. Validation failure leaves the engine unstarted.
func Load(specs []Spec, pool Pool) (*Store, error) {
	if len(specs) == 0 && !pool.Enabled {
		return nil, ErrNoUsableConfig
	}
	seen := make(map[uint32]struct{}, len(specs))
	rules := make([]*Rule, 0, len(specs))
	for i, spec := range specs {
		if spec.SurfaceID == 0 {
			return nil, fmt.Errorf("%w (rule %d)", ErrMissingSurfaceID, i)
		}
		if spec.AppID == nil && spec.Title == nil {
			return nil, fmt.Errorf("%w (rule %d, surface id %d)", ErrEmptyRule, i, spec.SurfaceID)
		}
		if pool.Enabled && spec.SurfaceID >= pool.First && spec.SurfaceID < pool.Max {
			return nil, fmt.Errorf("%w: surface id %d in [%d, %d)",
				ErrDefaultRangeCollision, spec.SurfaceID, pool.First, pool.Max)
		}
		if _, dup := seen[spec.SurfaceID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateSurfaceID, spec.SurfaceID)
		}
		seen[spec.SurfaceID] = struct{}{}
		rules = append(rules, &Rule{SurfaceID: spec.SurfaceID, AppID: spec.AppID, Title: spec.Title})
	}
	return &Store{rules: rules}, nil
}

// Len returns the number of rules in the store.
func (s *Store) Len() int {
	return len(s.rules)
}

// Rules returns the rules in configuration order. The slice is shared; the
// coordinator uses it for binding bookkeeping.
func (s *Store) Rules() []*Rule {
	return s.rules
}

// Release clears the binding of the rule bound to handle, returning the rule
// or nil when no rule was bound to it.
func (s *Store) Release(handle string) *Rule {
	for _, rule := range s.rules {
		if rule.Bound == handle && handle != "" {
			rule.Bound = ""
			return rule
		}
	}
	return nil
}

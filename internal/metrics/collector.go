// Package metrics aggregates in-process counters for assignment outcomes.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector counts assignment outcomes since process start. All methods are
// safe for concurrent use; the control server reads while the engine writes.
type Collector struct {
	mu       sync.RWMutex
	started  time.Time
	assigned uint64
	defaults uint64
	removed  uint64
	failures map[string]uint64
}

// Totals aggregates the headline counters.
type Totals struct {
	Assigned        uint64 `json:"assigned"`
	DefaultAssigned uint64 `json:"defaultAssigned"`
	Removed         uint64 `json:"removed"`
	Failed          uint64 `json:"failed"`
}

// FailureCount pairs a failure reason with its occurrence count.
type FailureCount struct {
	Reason string `json:"reason"`
	Count  uint64 `json:"count"`
}

// Snapshot is the serializable view of the current counters.
type Snapshot struct {
	Started  time.Time      `json:"started"`
	Totals   Totals         `json:"totals"`
	Failures []FailureCount `json:"failures,omitempty"`
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		started:  time.Now(),
		failures: make(map[string]uint64),
	}
}

// RecordAssigned counts a rule-matched assignment.
func (c *Collector) RecordAssigned() {
	c.mu.Lock()
	c.assigned++
	c.mu.Unlock()
}

// RecordDefaultAssigned counts a dynamic-pool assignment.
func (c *Collector) RecordDefaultAssigned() {
	c.mu.Lock()
	c.defaults++
	c.mu.Unlock()
}

// RecordRemoved counts a handled surface removal.
func (c *Collector) RecordRemoved() {
	c.mu.Lock()
	c.removed++
	c.mu.Unlock()
}

// RecordFailure counts a failed assignment attempt under the given reason.
func (c *Collector) RecordFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	c.mu.Lock()
	c.failures[reason]++
	c.mu.Unlock()
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		Started: c.started,
		Totals: Totals{
			Assigned:        c.assigned,
			DefaultAssigned: c.defaults,
			Removed:         c.removed,
		},
	}
	if len(c.failures) > 0 {
		snap.Failures = make([]FailureCount, 0, len(c.failures))
		for reason, count := range c.failures {
			snap.Failures = append(snap.Failures, FailureCount{Reason: reason, Count: count})
			snap.Totals.Failed += count
		}
		sort.Slice(snap.Failures, func(i, j int) bool {
			return snap.Failures[i].Reason < snap.Failures[j].Reason
		})
	}
	return snap
}

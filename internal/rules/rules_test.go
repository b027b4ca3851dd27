package rules

import (
	"errors"
	"testing"
)

func strptr(s string) *string { return &s }

func TestLoadRejectsDuplicateSurfaceID(t *testing.T) {
	specs := []Spec{
		{SurfaceID: 5, AppID: strptr("a")},
		{SurfaceID: 5, AppID: strptr("b")},
	}
	_, err := Load(specs, Pool{})
	if !errors.Is(err, ErrDuplicateSurfaceID) {
		t.Fatalf("expected ErrDuplicateSurfaceID, got %v", err)
	}
}

func TestLoadRejectsDefaultRangeCollision(t *testing.T) {
	specs := []Spec{{SurfaceID: 5, AppID: strptr("a")}}
	_, err := Load(specs, Pool{Enabled: true, First: 5, Max: 10})
	if !errors.Is(err, ErrDefaultRangeCollision) {
		t.Fatalf("expected ErrDefaultRangeCollision, got %v", err)
	}
}

func TestLoadAllowsIDAtPoolUpperBound(t *testing.T) {
	// The pool range is half-open, so the exclusive bound itself is usable.
	specs := []Spec{{SurfaceID: 10, AppID: strptr("a")}}
	if _, err := Load(specs, Pool{Enabled: true, First: 5, Max: 10}); err != nil {
		t.Fatalf("expected id at exclusive bound to load, got %v", err)
	}
}

func TestLoadRejectsEmptyRule(t *testing.T) {
	_, err := Load([]Spec{{SurfaceID: 7}}, Pool{})
	if !errors.Is(err, ErrEmptyRule) {
		t.Fatalf("expected ErrEmptyRule, got %v", err)
	}
}

func TestLoadRejectsMissingSurfaceID(t *testing.T) {
	_, err := Load([]Spec{{AppID: strptr("a")}}, Pool{})
	if !errors.Is(err, ErrMissingSurfaceID) {
		t.Fatalf("expected ErrMissingSurfaceID, got %v", err)
	}
}

func TestLoadRejectsNoUsableConfig(t *testing.T) {
	_, err := Load(nil, Pool{Enabled: false})
	if !errors.Is(err, ErrNoUsableConfig) {
		t.Fatalf("expected ErrNoUsableConfig, got %v", err)
	}
}

func TestLoadAcceptsEmptyRuleListWithPoolEnabled(t *testing.T) {
	store, err := Load(nil, Pool{Enabled: true, First: 100, Max: 200})
	if err != nil {
		t.Fatalf("expected empty rule list to load with pool enabled, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d rules", store.Len())
	}
}

func TestReleaseClearsBinding(t *testing.T) {
	store, err := Load([]Spec{{SurfaceID: 9, AppID: strptr("nav")}}, Pool{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rule := store.Rules()[0]
	rule.Bound = "0xabc"
	if released := store.Release("0xabc"); released != rule {
		t.Fatalf("expected bound rule to be released")
	}
	if rule.Bound != "" {
		t.Fatalf("expected binding cleared, got %q", rule.Bound)
	}
	if released := store.Release("0xabc"); released != nil {
		t.Fatalf("expected second release to find nothing")
	}
	if released := store.Release(""); released != nil {
		t.Fatalf("expected empty handle to release nothing")
	}
}

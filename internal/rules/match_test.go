package rules

import "testing"

func mustLoad(t *testing.T, specs []Spec) *Store {
	t.Helper()
	store, err := Load(specs, Pool{})
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return store
}

func TestMatchFirstRuleWins(t *testing.T) {
	store := mustLoad(t, []Spec{
		{SurfaceID: 100, AppID: strptr("a")},
		{SurfaceID: 101, AppID: strptr("a"), Title: strptr("t")},
	})
	rule := store.Match(Observation{AppID: "a", Title: "t"})
	if rule == nil || rule.SurfaceID != 100 {
		t.Fatalf("expected first rule (100) to win, got %+v", rule)
	}
}

func TestMatchTitleOnlyRuleIsAppWildcard(t *testing.T) {
	store := mustLoad(t, []Spec{{SurfaceID: 100, Title: strptr("X")}})
	if rule := store.Match(Observation{AppID: "anything", Title: "X"}); rule == nil {
		t.Fatalf("expected title-only rule to match regardless of app id")
	}
	if rule := store.Match(Observation{AppID: "anything", Title: "Y"}); rule != nil {
		t.Fatalf("expected title mismatch to miss, got %+v", rule)
	}
}

func TestMatchPresentPatternRequiresAttribute(t *testing.T) {
	store := mustLoad(t, []Spec{{SurfaceID: 100, Title: strptr("X")}})
	if rule := store.Match(Observation{AppID: "app"}); rule != nil {
		t.Fatalf("expected absent title to miss a title pattern, got %+v", rule)
	}
}

func TestMatchMissReturnsNil(t *testing.T) {
	store := mustLoad(t, []Spec{{SurfaceID: 100, AppID: strptr("a")}})
	if rule := store.Match(Observation{AppID: "b"}); rule != nil {
		t.Fatalf("expected no match, got %+v", rule)
	}
}

func TestObserveFallsBackToTitle(t *testing.T) {
	obs, fallback := Observe("", "T")
	if !fallback {
		t.Fatalf("expected fallback to be reported")
	}
	if obs.AppID != "T" || obs.Title != "T" {
		t.Fatalf("expected title used as synthetic app id, got %+v", obs)
	}

	obs, fallback = Observe("app", "T")
	if fallback || obs.AppID != "app" {
		t.Fatalf("expected declared app id to be kept, got %+v fallback=%v", obs, fallback)
	}

	obs, fallback = Observe("", "")
	if fallback || obs.AppID != "" {
		t.Fatalf("expected empty observation, got %+v fallback=%v", obs, fallback)
	}
}

func TestFallbackObservationMatchesAppIDRule(t *testing.T) {
	store := mustLoad(t, []Spec{{SurfaceID: 100, AppID: strptr("T")}})
	obs, _ := Observe("", "T")
	if rule := store.Match(obs); rule == nil {
		t.Fatalf("expected synthetic app id to satisfy app id pattern")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idagent.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullDocument(t *testing.T) {
	path := writeConfig(t, `
surfaces:
  - surfaceId: 1000
    appId: navigation
  - surfaceId: 1001
    title: "Media Player"
default:
  enabled: true
  surfaceId: 2000
  surfaceIdMax: 2100
store:
  host: 127.0.0.1
  port: 6380
`)
	cfg, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	nav := "navigation"
	media := "Media Player"
	want := []SurfaceConfig{
		{SurfaceID: 1000, AppID: &nav},
		{SurfaceID: 1001, Title: &media},
	}
	if diff := cmp.Diff(want, cfg.Surfaces); diff != "" {
		t.Fatalf("surfaces mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Default.Enabled || cfg.PoolFirst() != 2000 || cfg.PoolMax() != 2100 {
		t.Fatalf("unexpected default pool: %+v", cfg.Default)
	}
	if !cfg.StoreEnabled() || cfg.Store.Port != 6380 {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
}

func TestLoadDefaultsStorePort(t *testing.T) {
	path := writeConfig(t, `
store:
  host: 127.0.0.1
`)
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Store.Port != 6379 {
		t.Fatalf("expected default port 6379, got %d", cfg.Store.Port)
	}
}

func TestStoreHostOffDisablesMirror(t *testing.T) {
	for _, host := range []string{`"off"`, `"OFF"`, `""`, `"  "`} {
		path := writeConfig(t, "store:\n  host: "+host+"\n")
		cfg, _, err := Load(path)
		if err != nil {
			t.Fatalf("load config with host %s: %v", host, err)
		}
		if cfg.StoreEnabled() {
			t.Fatalf("expected store disabled for host %s", host)
		}
	}
}

func TestEnabledPoolWithMissingBoundsDegrades(t *testing.T) {
	path := writeConfig(t, `
default:
  enabled: true
  surfaceId: 2000
`)
	cfg, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Default.Enabled {
		t.Fatalf("expected default pool to be disabled")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestEmptyPoolRejected(t *testing.T) {
	path := writeConfig(t, `
default:
  enabled: true
  surfaceId: 2100
  surfaceIdMax: 2000
`)
	if _, _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty pool range")
	}
}

func TestEmptyPatternsNormalizeToAbsent(t *testing.T) {
	var cfg Config
	data := []byte(`
surfaces:
  - surfaceId: 5
    appId: ""
    title: ""
`)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cfg.applyDefaults()
	if cfg.Surfaces[0].AppID != nil || cfg.Surfaces[0].Title != nil {
		t.Fatalf("expected empty patterns to normalize to nil, got %+v", cfg.Surfaces[0])
	}
}

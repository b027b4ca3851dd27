package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultStorePort = 6379

// Config is the top-level configuration document.
type Config struct {
	Surfaces []SurfaceConfig `yaml:"surfaces"`
	Default  DefaultConfig   `yaml:"default"`
	Store    StoreConfig     `yaml:"store"`
}

// SurfaceConfig declares a target surface id for applications matching the
// given attributes. A nil pattern imposes no constraint.
type SurfaceConfig struct {
	SurfaceID uint32  `yaml:"surfaceId"`
	AppID     *string `yaml:"appId"`
	Title     *string `yaml:"title"`
}

// DefaultConfig describes the dynamic id pool used for applications that
// match no surface rule. The range is half-open: [SurfaceID, SurfaceIDMax).
type DefaultConfig struct {
	Enabled      bool    `yaml:"enabled"`
	SurfaceID    *uint32 `yaml:"surfaceId"`
	SurfaceIDMax *uint32 `yaml:"surfaceIdMax"`
}

// StoreConfig points at the external key-value store mirroring assignments.
// An empty or "off" host disables the mirror entirely.
type StoreConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Warning is a non-fatal finding produced while loading configuration.
type Warning string

// Load reads and validates a configuration file. Warnings report accepted
// but degraded settings, such as an enabled default pool with missing bounds.
func Load(path string) (*Config, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	warnings := cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, warnings, nil
}

func (c *Config) applyDefaults() []Warning {
	var warnings []Warning
	if c.Store.Port == 0 {
		c.Store.Port = defaultStorePort
	}
	host := strings.TrimSpace(c.Store.Host)
	if strings.EqualFold(host, "off") {
		host = ""
	}
	c.Store.Host = host
	if c.Default.Enabled && (c.Default.SurfaceID == nil || c.Default.SurfaceIDMax == nil) {
		c.Default.Enabled = false
		warnings = append(warnings, "default pool enabled but surfaceId/surfaceIdMax missing; default behavior disabled")
	}
	for i := range c.Surfaces {
		c.Surfaces[i].AppID = normalizePattern(c.Surfaces[i].AppID)
		c.Surfaces[i].Title = normalizePattern(c.Surfaces[i].Title)
	}
	return warnings
}

// normalizePattern treats an explicitly empty pattern as absent, matching the
// wildcard semantics of a missing key.
func normalizePattern(p *string) *string {
	if p != nil && *p == "" {
		return nil
	}
	return p
}

// Validate performs shape-level checks. Rule-set consistency (duplicate ids,
// pool collisions) is validated when the rule store is built.
func (c *Config) Validate() error {
	if c.Store.Port < 0 || c.Store.Port > 65535 {
		return fmt.Errorf("store port %d out of range", c.Store.Port)
	}
	if c.Default.Enabled {
		first := *c.Default.SurfaceID
		max := *c.Default.SurfaceIDMax
		if first >= max {
			return fmt.Errorf("default pool [%d, %d) is empty", first, max)
		}
	}
	return nil
}

// StoreEnabled reports whether the key-value mirror is configured.
func (c *Config) StoreEnabled() bool {
	return c.Store.Host != ""
}

// PoolFirst returns the first dynamic pool id, or 0 when the pool is disabled.
func (c *Config) PoolFirst() uint32 {
	if c.Default.SurfaceID == nil {
		return 0
	}
	return *c.Default.SurfaceID
}

// PoolMax returns the exclusive dynamic pool bound, or 0 when the pool is disabled.
func (c *Config) PoolMax() uint32 {
	if c.Default.SurfaceIDMax == nil {
		return 0
	}
	return *c.Default.SurfaceIDMax
}

// Package config holds all plancheck configuration, most importantly the
// clinical thresholds the verification engine compares against. Defaults
// match the departmental checking protocol; a yaml file and PLANCHECK_*
// environment variables can override them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all plancheck configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Engine thresholds
	Coverage  CoverageConfig  `yaml:"coverage"`
	Hotspot   HotspotConfig   `yaml:"hotspot"`
	Geometry  GeometryConfig  `yaml:"geometry"`
	Rendering RenderingConfig `yaml:"rendering"`
}

// CoverageConfig configures target dose-coverage tiering.
type CoverageConfig struct {
	ExcellentPct  float64 `yaml:"excellent_pct"`   // V95 at or above this tiers Excellent
	AcceptablePct float64 `yaml:"acceptable_pct"`  // V95 at or above this tiers Acceptable
	NearMeanScale float64 `yaml:"near_mean_scale"` // prescription estimate factor when no dose is resolvable
}

// HotspotConfig configures the body hotspot check.
type HotspotConfig struct {
	HotFactor      float64 `yaml:"hot_factor"`       // fraction of prescription counting as hot
	HotVolumeCm3   float64 `yaml:"hot_volume_cm3"`   // body volume above the hot dose needing review
	PointVolumeCm3 float64 `yaml:"point_volume_cm3"` // volume at the global max locating the hot structure
}

// GeometryConfig configures isocenter shift checking.
type GeometryConfig struct {
	LargeShiftCm float64 `yaml:"large_shift_cm"` // single-axis shift needing manual re-verification
}

// RenderingConfig configures report output.
type RenderingConfig struct {
	Color bool `yaml:"color"`
}

// DefaultConfig returns the departmental default thresholds.
func DefaultConfig() *Config {
	return &Config{
		Name:    "plancheck",
		Version: "1.0.0",
		Coverage: CoverageConfig{
			ExcellentPct:  95,
			AcceptablePct: 90,
			NearMeanScale: 1.05,
		},
		Hotspot: HotspotConfig{
			HotFactor:      1.07,
			HotVolumeCm3:   2.0,
			PointVolumeCm3: 0.035,
		},
		Geometry: GeometryConfig{
			LargeShiftCm: 20,
		},
		Rendering: RenderingConfig{
			Color: true,
		},
	}
}

// Load reads a config file and applies environment overrides. A missing
// file is not an error: defaults (plus env) apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as yaml, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides lets PLANCHECK_* variables override file values.
func (c *Config) applyEnvOverrides() {
	overrideFloat("PLANCHECK_LARGE_SHIFT_CM", &c.Geometry.LargeShiftCm)
	overrideFloat("PLANCHECK_HOT_VOLUME_CM3", &c.Hotspot.HotVolumeCm3)
	overrideFloat("PLANCHECK_EXCELLENT_PCT", &c.Coverage.ExcellentPct)
	overrideFloat("PLANCHECK_ACCEPTABLE_PCT", &c.Coverage.AcceptablePct)
	if v := os.Getenv("PLANCHECK_NO_COLOR"); v != "" {
		c.Rendering.Color = false
	}
}

func overrideFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func (c *Config) validate() error {
	if c.Coverage.AcceptablePct > c.Coverage.ExcellentPct {
		return fmt.Errorf("coverage: acceptable_pct %.1f above excellent_pct %.1f",
			c.Coverage.AcceptablePct, c.Coverage.ExcellentPct)
	}
	if c.Geometry.LargeShiftCm <= 0 {
		return fmt.Errorf("geometry: large_shift_cm must be positive")
	}
	if c.Hotspot.HotFactor <= 1 {
		return fmt.Errorf("hotspot: hot_factor must exceed 1")
	}
	return nil
}

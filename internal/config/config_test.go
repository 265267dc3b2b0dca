package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestWeightSumValidation(t *testing.T) {
	tests := []struct {
		name    string
		weights WeightConfig
		wantErr bool
	}{
		{
			name:    "default weights sum to one",
			weights: WeightConfig{Local: 0.35, Grid: 0.25, Gradient: 0.25, Pyramid: 0.15},
			wantErr: false,
		},
		{
			name:    "weights below one",
			weights: WeightConfig{Local: 0.35, Grid: 0.25, Gradient: 0.25, Pyramid: 0.05},
			wantErr: true,
		},
		{
			name:    "weights above one",
			weights: WeightConfig{Local: 0.5, Grid: 0.25, Gradient: 0.25, Pyramid: 0.15},
			wantErr: true,
		},
		{
			name:    "negative weight",
			weights: WeightConfig{Local: 1.1, Grid: 0.25, Gradient: -0.5, Pyramid: 0.15},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Engine.Weights = tt.weights
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"tiny vocab", func(c *Config) { c.Engine.VocabClusters = 8 }},
		{"negative workers", func(c *Config) { c.Engine.Workers = -1 }},
		{"zero batch", func(c *Config) { c.Engine.BatchSize = 0 }},
		{"threshold too high", func(c *Config) { c.Engine.MatchThreshold = 150 }},
		{"bad format", func(c *Config) { c.Output.DefaultFormat = "xml" }},
		{"bad color mode", func(c *Config) { c.Output.ColorMode = "sometimes" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
engine:
  vocab_clusters: 64
  batch_size: 16
cache:
  dir: /tmp/logomatch-test
output:
  default_format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Engine.VocabClusters != 64 {
		t.Errorf("vocab_clusters = %d, want 64", cfg.Engine.VocabClusters)
	}
	if cfg.Engine.BatchSize != 16 {
		t.Errorf("batch_size = %d, want 16", cfg.Engine.BatchSize)
	}
	if cfg.Cache.Dir != "/tmp/logomatch-test" {
		t.Errorf("cache dir = %q", cfg.Cache.Dir)
	}
	if cfg.Output.DefaultFormat != "json" {
		t.Errorf("default_format = %q, want json", cfg.Output.DefaultFormat)
	}
	// Unset values keep defaults
	if cfg.Engine.MaxDescriptors != 300 {
		t.Errorf("max_descriptors = %d, want default 300", cfg.Engine.MaxDescriptors)
	}
}

func TestLoadConfigExplicitFalseOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
engine:
  reverse_comparison: false
cache:
  enabled: false
output:
  verbose: true
  show_progress: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Cache.Enabled {
		t.Error("cache.enabled false in the file should override the true default")
	}
	if cfg.Engine.ReverseComparison {
		t.Error("engine.reverse_comparison false should override the true default")
	}
	if cfg.Output.ShowProgress {
		t.Error("output.show_progress false should override the true default")
	}
	if !cfg.Output.Verbose {
		t.Error("output.verbose true should be applied")
	}
}

func TestLoadConfigAbsentBooleansKeepDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("engine:\n  workers: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if !cfg.Cache.Enabled || !cfg.Engine.ReverseComparison || !cfg.Output.ShowProgress {
		t.Error("booleans absent from the file should keep their defaults")
	}
}

func TestLoadConfigRejectsInvalidWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
engine:
  weights:
    local: 0.5
    grid: 0.5
    gradient: 0.5
    pyramid: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoader().LoadConfig(path); err == nil {
		t.Error("expected validation failure for weights summing to 2.0")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOGOMATCH_CACHE_DIR", "/var/cache/lm")
	t.Setenv("LOGOMATCH_WORKERS", "3")
	t.Setenv("LOGOMATCH_MATCH_THRESHOLD", "55.5")

	cfg, err := NewLoader().LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Cache.Dir != "/var/cache/lm" {
		t.Errorf("cache dir = %q, want /var/cache/lm", cfg.Cache.Dir)
	}
	if cfg.Engine.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Engine.Workers)
	}
	if cfg.Engine.MatchThreshold != 55.5 {
		t.Errorf("match_threshold = %v, want 55.5", cfg.Engine.MatchThreshold)
	}
}

func TestEffectiveWorkers(t *testing.T) {
	e := EngineConfig{Workers: 4}
	if got := e.EffectiveWorkers(); got != 4 {
		t.Errorf("EffectiveWorkers() = %d, want 4", got)
	}

	e = EngineConfig{Workers: 0}
	got := e.EffectiveWorkers()
	if got < 1 || got > 8 {
		t.Errorf("EffectiveWorkers() = %d, want within [1,8]", got)
	}
}

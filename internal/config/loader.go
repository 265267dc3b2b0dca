package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.logomatch.yaml",               // Project-specific config (highest priority)
	"~/.config/logomatch/config.yaml", // User config
	"/etc/logomatch/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
	}
}

// LoadConfig loads configuration with priority order:
// flags (caller) > environment > project file > user file > system file > defaults.
// A non-empty customPath replaces the standard search paths entirely.
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Load lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			path := expandPath(l.configPaths[i])
			if !fileExists(path) {
				continue
			}
			if err := l.loadFromFile(config, path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", path, err)
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	// second decode into a generic tree so explicit-false booleans are
	// distinguishable from absent keys
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfigs(config, &fileConfig, raw)
	return nil
}

// applyEnvOverrides applies LOGOMATCH_* environment variable overrides
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		"LOGOMATCH_CACHE_DIR": func(v string) error { config.Cache.Dir = v; return nil },
		"LOGOMATCH_CACHE_ENABLED": func(v string) error {
			return parseBool(v, &config.Cache.Enabled)
		},
		"LOGOMATCH_WORKERS": func(v string) error {
			return parseInt(v, &config.Engine.Workers)
		},
		"LOGOMATCH_BATCH_SIZE": func(v string) error {
			return parseInt(v, &config.Engine.BatchSize)
		},
		"LOGOMATCH_VOCAB_CLUSTERS": func(v string) error {
			return parseInt(v, &config.Engine.VocabClusters)
		},
		"LOGOMATCH_MATCH_THRESHOLD": func(v string) error {
			return parseFloat(v, &config.Engine.MatchThreshold)
		},
		"LOGOMATCH_OUTPUT_FORMAT": func(v string) error { config.Output.DefaultFormat = v; return nil },
		"LOGOMATCH_COLOR_MODE":    func(v string) error { config.Output.ColorMode = v; return nil },
		"LOGOMATCH_VERBOSE": func(v string) error {
			return parseBool(v, &config.Output.Verbose)
		},
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}
	return nil
}

// mergeConfigs merges src into dst. Non-zero src values win; boolean
// fields merge on key presence in raw, so an explicit false overrides
// a true default.
func mergeConfigs(dst, src *Config, raw map[string]interface{}) {
	if src.Version != "" {
		dst.Version = src.Version
	}

	if src.Engine.Weights.Sum() != 0 {
		dst.Engine.Weights = src.Engine.Weights
	}
	if src.Engine.VocabClusters != 0 {
		dst.Engine.VocabClusters = src.Engine.VocabClusters
	}
	if src.Engine.VocabMinDescriptors != 0 {
		dst.Engine.VocabMinDescriptors = src.Engine.VocabMinDescriptors
	}
	if src.Engine.MaxDescriptors != 0 {
		dst.Engine.MaxDescriptors = src.Engine.MaxDescriptors
	}
	if src.Engine.SampleImages != 0 {
		dst.Engine.SampleImages = src.Engine.SampleImages
	}
	if src.Engine.SampleDescriptors != 0 {
		dst.Engine.SampleDescriptors = src.Engine.SampleDescriptors
	}
	if src.Engine.Workers != 0 {
		dst.Engine.Workers = src.Engine.Workers
	}
	if src.Engine.BatchSize != 0 {
		dst.Engine.BatchSize = src.Engine.BatchSize
	}
	if src.Engine.MinFileSize != 0 {
		dst.Engine.MinFileSize = src.Engine.MinFileSize
	}
	if src.Engine.MaxImageDim != 0 {
		dst.Engine.MaxImageDim = src.Engine.MaxImageDim
	}
	if src.Engine.MatchThreshold != 0 {
		dst.Engine.MatchThreshold = src.Engine.MatchThreshold
	}
	if keyPresent(raw, "engine", "reverse_comparison") {
		dst.Engine.ReverseComparison = src.Engine.ReverseComparison
	}

	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if keyPresent(raw, "cache", "enabled") {
		dst.Cache.Enabled = src.Cache.Enabled
	}

	if src.Output.DefaultFormat != "" {
		dst.Output.DefaultFormat = src.Output.DefaultFormat
	}
	if src.Output.ColorMode != "" {
		dst.Output.ColorMode = src.Output.ColorMode
	}
	if keyPresent(raw, "output", "verbose") {
		dst.Output.Verbose = src.Output.Verbose
	}
	if keyPresent(raw, "output", "show_progress") {
		dst.Output.ShowProgress = src.Output.ShowProgress
	}
}

// keyPresent reports whether raw contains section.key, regardless of
// the value it holds.
func keyPresent(raw map[string]interface{}, section, key string) bool {
	sec, ok := raw[section].(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = sec[key]
	return ok
}

// validateConfigPath rejects paths that escape to parent directories
func validateConfigPath(path string) error {
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path must not contain '..': %s", path)
	}
	return nil
}

// expandPath expands a leading ~ to the user home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func parseInt(value string, target *int) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

func parseFloat(value string, target *float64) error {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

func parseBool(value string, target *bool) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

// ExpandCacheDir resolves the configured cache directory to an absolute,
// tilde-expanded path.
func (c *Config) ExpandCacheDir() string {
	return expandPath(c.Cache.Dir)
}

package config

import (
	"fmt"
	"math"
	"runtime"
)

// Config holds the complete application configuration
type Config struct {
	Version string       `yaml:"version" json:"version"`
	Engine  EngineConfig `yaml:"engine" json:"engine"`
	Cache   CacheConfig  `yaml:"cache" json:"cache"`
	Output  OutputConfig `yaml:"output" json:"output"`
}

// WeightConfig holds the fusion weight for each feature type.
// The four weights must sum to 1.0; changing one requires
// renormalizing the others.
type WeightConfig struct {
	Local    float64 `yaml:"local" json:"local"`       // keypoint descriptor histogram
	Grid     float64 `yaml:"grid" json:"grid"`         // wide-linear intensity grid
	Gradient float64 `yaml:"gradient" json:"gradient"` // dense gradient descriptor
	Pyramid  float64 `yaml:"pyramid" json:"pyramid"`   // multi-branch pyramid
}

// Map returns the weights keyed by feature type name
func (w WeightConfig) Map() map[string]float64 {
	return map[string]float64{
		"local":    w.Local,
		"grid":     w.Grid,
		"gradient": w.Gradient,
		"pyramid":  w.Pyramid,
	}
}

// Sum returns the total of all weights
func (w WeightConfig) Sum() float64 {
	return w.Local + w.Grid + w.Gradient + w.Pyramid
}

// EngineConfig configures extraction, indexing and matching behavior
type EngineConfig struct {
	Weights             WeightConfig `yaml:"weights" json:"weights"`
	VocabClusters       int          `yaml:"vocab_clusters" json:"vocab_clusters"`               // codebook size K
	VocabMinDescriptors int          `yaml:"vocab_min_descriptors" json:"vocab_min_descriptors"` // below this the vocabulary is disabled
	MaxDescriptors      int          `yaml:"max_descriptors" json:"max_descriptors"`             // per-image cap, top-N by response
	SampleImages        int          `yaml:"sample_images" json:"sample_images"`                 // images sampled for vocabulary fitting
	SampleDescriptors   int          `yaml:"sample_descriptors" json:"sample_descriptors"`       // descriptors kept per sampled image
	Workers             int          `yaml:"workers" json:"workers"`                             // 0 = auto
	BatchSize           int          `yaml:"batch_size" json:"batch_size"`                       // embedding batch size
	MinFileSize         int64        `yaml:"min_file_size" json:"min_file_size"`                 // bytes
	MaxImageDim         int          `yaml:"max_image_dim" json:"max_image_dim"`                 // larger images are downscaled
	MatchThreshold      float64      `yaml:"match_threshold" json:"match_threshold"`             // default similarity threshold
	ReverseComparison   bool         `yaml:"reverse_comparison" json:"reverse_comparison"`
}

// CacheConfig configures the on-disk snapshot store
type CacheConfig struct {
	Dir     string `yaml:"dir" json:"dir"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"` // text|json|csv|markdown
	ColorMode     string `yaml:"color_mode" json:"color_mode"`         // auto|always|never
	Verbose       bool   `yaml:"verbose" json:"verbose"`
	ShowProgress  bool   `yaml:"show_progress" json:"show_progress"`
}

// weightTolerance bounds floating-point drift in the weight sum check
const weightTolerance = 1e-9

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Engine: EngineConfig{
			Weights: WeightConfig{
				Local:    0.35,
				Grid:     0.25,
				Gradient: 0.25,
				Pyramid:  0.15,
			},
			VocabClusters:       256,
			VocabMinDescriptors: 32,
			MaxDescriptors:      300,
			SampleImages:        100,
			SampleDescriptors:   100,
			Workers:             0,
			BatchSize:           32,
			MinFileSize:         100,
			MaxImageDim:         1024,
			MatchThreshold:      70.0,
			ReverseComparison:   true,
		},
		Cache: CacheConfig{
			Dir:     "~/.cache/logomatch",
			Enabled: true,
		},
		Output: OutputConfig{
			DefaultFormat: "text",
			ColorMode:     "auto",
			Verbose:       false,
			ShowProgress:  true,
		},
	}
}

// EffectiveWorkers resolves the worker pool size, capped at 8
func (c *EngineConfig) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateEngineConfig(); err != nil {
		return err
	}
	return c.validateOutputConfig()
}

func (c *Config) validateEngineConfig() error {
	e := &c.Engine

	if diff := math.Abs(e.Weights.Sum() - 1.0); diff > weightTolerance {
		return fmt.Errorf("fusion weights must sum to 1.0, got %.6f", e.Weights.Sum())
	}
	for name, w := range e.Weights.Map() {
		if w < 0 || w > 1 {
			return fmt.Errorf("fusion weight %q out of range [0,1]: %.6f", name, w)
		}
	}
	if e.VocabClusters < 16 {
		return fmt.Errorf("vocab_clusters must be at least 16, got %d", e.VocabClusters)
	}
	if e.VocabMinDescriptors < 1 {
		return fmt.Errorf("vocab_min_descriptors must be positive, got %d", e.VocabMinDescriptors)
	}
	if e.MaxDescriptors < 1 {
		return fmt.Errorf("max_descriptors must be positive, got %d", e.MaxDescriptors)
	}
	if e.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", e.Workers)
	}
	if e.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", e.BatchSize)
	}
	if e.MaxImageDim < 16 {
		return fmt.Errorf("max_image_dim must be at least 16, got %d", e.MaxImageDim)
	}
	if e.MatchThreshold < 0 || e.MatchThreshold > 100 {
		return fmt.Errorf("match_threshold out of range [0,100]: %.2f", e.MatchThreshold)
	}
	return nil
}

func (c *Config) validateOutputConfig() error {
	validFormats := map[string]bool{
		"text":     true,
		"json":     true,
		"csv":      true,
		"markdown": true,
	}
	if c.Output.DefaultFormat != "" && !validFormats[c.Output.DefaultFormat] {
		return fmt.Errorf("invalid output format: %s (must be one of: text, json, csv, markdown)", c.Output.DefaultFormat)
	}

	validColorModes := map[string]bool{
		"auto":   true,
		"always": true,
		"never":  true,
	}
	if c.Output.ColorMode != "" && !validColorModes[c.Output.ColorMode] {
		return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
	}
	return nil
}

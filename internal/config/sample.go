package config

// SampleConfig returns a fully commented configuration file
func SampleConfig() string {
	return `# LogoMatch configuration
version: "1.0"

engine:
  # Fusion weights per feature type. Must sum to 1.0 exactly;
  # changing one requires renormalizing the others.
  weights:
    local: 0.35    # keypoint descriptor histogram
    grid: 0.25     # wide-linear intensity grid
    gradient: 0.25 # dense gradient descriptor
    pyramid: 0.15  # multi-branch pyramid

  # Visual vocabulary (bag of visual words)
  vocab_clusters: 256       # codebook size K, shrinks automatically on small samples
  vocab_min_descriptors: 32 # below this the vocabulary is disabled entirely
  sample_images: 100        # images sampled when fitting the vocabulary
  sample_descriptors: 100   # descriptors kept per sampled image

  # Extraction
  max_descriptors: 300 # per-image keypoint cap, strongest first
  max_image_dim: 1024  # larger images are downscaled before extraction
  min_file_size: 100   # files smaller than this many bytes are skipped
  batch_size: 32       # embedding batch size
  workers: 0           # 0 = number of CPUs, capped at 8

  # Matching
  match_threshold: 70.0    # default minimum fused score
  reverse_comparison: true # also query in the opposite direction

cache:
  dir: ~/.cache/logomatch
  enabled: true

output:
  default_format: text # text, json, csv, markdown
  color_mode: auto     # auto, always, never
  verbose: false
  show_progress: true
`
}

// MinimalSampleConfig returns a compact configuration with only the
// settings most installations change.
func MinimalSampleConfig() string {
	return `# LogoMatch configuration (minimal)
version: "1.0"

engine:
  match_threshold: 70.0

cache:
  dir: ~/.cache/logomatch

output:
  default_format: text
`
}

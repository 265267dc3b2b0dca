// Package feature extracts per-image feature bundles: one encoded
// local-descriptor vector plus three global embeddings from extractors
// of distinct architectural families.
package feature

import "math"

// Feature type names. Weights for fusion are configured against these.
const (
	TypeLocal    = "local"    // encoded keypoint descriptors
	TypeGrid     = "grid"     // wide-linear intensity grid
	TypeGradient = "gradient" // dense gradient descriptor
	TypePyramid  = "pyramid"  // multi-branch pyramid
)

// Types returns all feature type names in canonical order
func Types() []string {
	return []string{TypeLocal, TypeGrid, TypeGradient, TypePyramid}
}

// Bundle maps feature type name to a fixed-length L2-normalized vector
type Bundle map[string][]float32

// Complete reports whether the bundle carries every feature type
func (b Bundle) Complete() bool {
	for _, t := range Types() {
		if len(b[t]) == 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the bundle
func (b Bundle) Clone() Bundle {
	out := make(Bundle, len(b))
	for t, v := range b {
		vec := make([]float32, len(v))
		copy(vec, v)
		out[t] = vec
	}
	return out
}

// Normalize scales v to unit L2 norm, returning a new slice. A zero
// vector is replaced by a uniform unit vector so no degenerate vector
// ever enters an index.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sum == 0 {
		if len(v) == 0 {
			return out
		}
		uniform := float32(1.0 / math.Sqrt(float64(len(v))))
		for i := range out {
			out[i] = uniform
		}
		return out
	}

	norm := float32(math.Sqrt(sum))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// Cosine computes cosine similarity with float64 accumulation.
// Mismatched or empty vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

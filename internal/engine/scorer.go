package engine

import (
	"fmt"
	"math"

	"github.com/yildizm/LogoMatch/internal/feature"
)

const weightTolerance = 1e-9

// Score is the stable result shape for every similarity computation:
// the fused value in [0,100] plus the per-feature-type breakdown it
// was fused from.
type Score struct {
	Fused     float64            `json:"fused"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// Scorer fuses per-feature-type cosine similarities into one weighted
// score. Weights are frozen at construction.
type Scorer struct {
	weights map[string]float64
}

// NewScorer validates that the weights cover the known feature types
// and sum to 1.0. Weights that do not are a configuration error, never
// silently renormalized.
func NewScorer(weights map[string]float64) (*Scorer, error) {
	var sum float64
	for ft, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative weight %v for %s", w, ft)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return nil, fmt.Errorf("feature weights sum to %v, must sum to 1.0", sum)
	}
	for _, ft := range feature.Types() {
		if _, ok := weights[ft]; !ok {
			return nil, fmt.Errorf("missing weight for feature type %s", ft)
		}
	}

	copied := make(map[string]float64, len(weights))
	for ft, w := range weights {
		copied[ft] = w
	}
	return &Scorer{weights: copied}, nil
}

// Weights returns a copy of the fusion weights
func (s *Scorer) Weights() map[string]float64 {
	out := make(map[string]float64, len(s.weights))
	for ft, w := range s.weights {
		out[ft] = w
	}
	return out
}

// similarity converts a raw cosine into the reported [0,100] range,
// clipping negative cosines to zero.
func similarity(cos float64) float64 {
	if cos < 0 {
		return 0
	}
	return cos * 100
}

// ScorePair computes the fused score of two bundles directly. A
// feature type missing from either side contributes zero, never an
// error.
func (s *Scorer) ScorePair(a, b feature.Bundle) Score {
	breakdown := make(map[string]float64, len(s.weights))
	for ft := range s.weights {
		va, okA := a[ft]
		vb, okB := b[ft]
		if !okA || !okB {
			breakdown[ft] = 0
			continue
		}
		breakdown[ft] = similarity(feature.Cosine(va, vb))
	}
	return Score{Fused: s.Fuse(breakdown), Breakdown: breakdown}
}

// Fuse collapses a breakdown into the weighted score. Missing keys
// contribute zero.
func (s *Scorer) Fuse(breakdown map[string]float64) float64 {
	var fused float64
	for ft, w := range s.weights {
		fused += w * breakdown[ft]
	}
	return fused
}

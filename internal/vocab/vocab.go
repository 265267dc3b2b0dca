// Package vocab fits a visual vocabulary over local descriptors and
// encodes descriptor sets into fixed-length histogram vectors.
package vocab

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/yildizm/LogoMatch/internal/feature"
	"github.com/yildizm/LogoMatch/internal/logger"
)

const (
	// MinDescriptors is the floor below which no vocabulary is fitted
	// and callers fall back to the mean encoder.
	MinDescriptors = 32

	minClusters   = 16
	maxBatchSize  = 1000
	maxIterations = 100

	// fixed seed keeps repeated fits over the same pool identical
	kmeansSeed = 42
)

// Vocabulary is a set of descriptor-space centroids. Encoding assigns
// each descriptor to its nearest centroid and returns the normalized
// occupancy histogram.
type Vocabulary struct {
	k         int
	centroids [][]float32
}

// EffectiveClusters applies the shrink rule: a pool smaller than twice
// the requested K cannot support K distinct clusters.
func EffectiveClusters(requested, poolSize int) int {
	if poolSize < 2*requested {
		k := poolSize / 2
		if k < minClusters {
			k = minClusters
		}
		if k > requested {
			k = requested
		}
		return k
	}
	return requested
}

// Fit builds a vocabulary from a pooled descriptor sample using
// mini-batch k-means. Returns an error when the pool is too small;
// callers should then encode without a vocabulary.
func Fit(descs [][]float32, clusters int, log *logger.Logger) (*Vocabulary, error) {
	if len(descs) < MinDescriptors {
		return nil, fmt.Errorf("descriptor pool too small: %d < %d", len(descs), MinDescriptors)
	}
	if clusters < 1 {
		return nil, fmt.Errorf("invalid cluster count %d", clusters)
	}

	k := EffectiveClusters(clusters, len(descs))
	dim := len(descs[0])
	for i, d := range descs {
		if len(d) != dim {
			return nil, fmt.Errorf("descriptor %d has dim %d, expected %d", i, len(d), dim)
		}
	}

	if log != nil {
		log.Debug("fitting vocabulary: %d descriptors, k=%d (requested %d)", len(descs), k, clusters)
	}

	centroids := miniBatchKMeans(descs, k, dim)
	return &Vocabulary{k: k, centroids: centroids}, nil
}

// FromCentroids reconstructs a vocabulary from persisted centroids
func FromCentroids(centroids [][]float32) (*Vocabulary, error) {
	if len(centroids) == 0 {
		return nil, fmt.Errorf("no centroids")
	}
	dim := len(centroids[0])
	for i, c := range centroids {
		if len(c) != dim {
			return nil, fmt.Errorf("centroid %d has dim %d, expected %d", i, len(c), dim)
		}
	}
	return &Vocabulary{k: len(centroids), centroids: centroids}, nil
}

// K returns the number of clusters
func (v *Vocabulary) K() int { return v.k }

// Dim is the encoded vector length, one bin per cluster
func (v *Vocabulary) Dim() int { return v.k }

// Centroids exposes the cluster centers for persistence
func (v *Vocabulary) Centroids() [][]float32 { return v.centroids }

// Encode maps descriptors to a normalized K-bin occupancy histogram.
// An empty set encodes to the uniform vector.
func (v *Vocabulary) Encode(descs [][]float32) []float32 {
	hist := make([]float32, v.k)
	for _, d := range descs {
		hist[v.nearest(d)]++
	}
	return feature.Normalize(hist)
}

func (v *Vocabulary) nearest(d []float32) int {
	best, bestDist := 0, math.MaxFloat64
	for i, c := range v.centroids {
		dist := sqDist(d, c)
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

func sqDist(a, b []float32) float64 {
	var sum float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return sum
}

// miniBatchKMeans runs seeded mini-batch k-means with per-centroid
// count-weighted updates, after Sculley (2010).
func miniBatchKMeans(descs [][]float32, k, dim int) [][]float32 {
	rng := rand.New(rand.NewSource(kmeansSeed))

	// initialize from a random sample without replacement
	perm := rng.Perm(len(descs))
	centroids := make([][]float32, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float32(nil), descs[perm[i%len(perm)]]...)
	}

	batchSize := min(maxBatchSize, len(descs))
	counts := make([]int, k)

	for iter := 0; iter < maxIterations; iter++ {
		for i := 0; i < batchSize; i++ {
			d := descs[rng.Intn(len(descs))]
			best, bestDist := 0, math.MaxFloat64
			for j, c := range centroids {
				dist := sqDist(d, c)
				if dist < bestDist {
					best, bestDist = j, dist
				}
			}

			counts[best]++
			eta := float32(1.0 / float64(counts[best]))
			c := centroids[best]
			for x := 0; x < dim; x++ {
				c[x] += eta * (d[x] - c[x])
			}
		}
	}
	return centroids
}

// MeanEncoder encodes descriptor sets as their normalized mean, used
// when the pool was too small to fit a vocabulary.
type MeanEncoder struct {
	dim int
}

// NewMeanEncoder creates a mean encoder for descriptors of dim length
func NewMeanEncoder(dim int) *MeanEncoder {
	return &MeanEncoder{dim: dim}
}

// Dim returns the encoded vector length
func (m *MeanEncoder) Dim() int { return m.dim }

// Encode averages the descriptors and normalizes. An empty set encodes
// to the uniform vector.
func (m *MeanEncoder) Encode(descs [][]float32) []float32 {
	mean := make([]float32, m.dim)
	if len(descs) == 0 {
		return feature.Normalize(mean)
	}
	for _, d := range descs {
		n := min(len(d), m.dim)
		for i := 0; i < n; i++ {
			mean[i] += d[i]
		}
	}
	inv := float32(1.0 / float64(len(descs)))
	for i := range mean {
		mean[i] *= inv
	}
	return feature.Normalize(mean)
}

// Package index provides flat inner-product similarity indexes over
// normalized feature vectors, one per collection and feature type.
package index

import (
	"fmt"
	"sort"

	"github.com/yildizm/LogoMatch/internal/feature"
)

// SearchResult is one index hit. Score is the inner product of the
// query and the stored vector; over unit vectors this is the cosine.
type SearchResult struct {
	Row   int
	Score float64
}

// Flat is an exhaustive inner-product index. Rows are append-only and
// positionally aligned with whatever external list the caller keeps.
type Flat struct {
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty index for vectors of dim length
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// FromVectors builds an index over pre-existing rows, validating dims
func FromVectors(dim int, vectors [][]float32) (*Flat, error) {
	f := NewFlat(dim)
	for i, v := range vectors {
		if err := f.Add(v); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return f, nil
}

// Add appends a vector as the next row
func (f *Flat) Add(v []float32) error {
	if len(v) != f.dim {
		return fmt.Errorf("vector has dim %d, index expects %d", len(v), f.dim)
	}
	f.vectors = append(f.vectors, v)
	return nil
}

// Len returns the number of rows
func (f *Flat) Len() int { return len(f.vectors) }

// Dim returns the vector length this index accepts
func (f *Flat) Dim() int { return f.dim }

// Vectors exposes the raw rows for persistence
func (f *Flat) Vectors() [][]float32 { return f.vectors }

// Search returns the top-k rows by inner product, descending. Ties
// break toward the lower row so results are deterministic.
func (f *Flat) Search(q []float32, k int) ([]SearchResult, error) {
	if len(q) != f.dim {
		return nil, fmt.Errorf("query has dim %d, index expects %d", len(q), f.dim)
	}
	if len(f.vectors) == 0 || k <= 0 {
		return nil, nil
	}

	results := make([]SearchResult, len(f.vectors))
	for i, v := range f.vectors {
		var dot float64
		for j := 0; j < f.dim; j++ {
			dot += float64(q[j]) * float64(v[j])
		}
		results[i] = SearchResult{Row: i, Score: dot}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Row < results[j].Row
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Collection holds one folder's indexes, one per feature type, with a
// single path list aligned row-for-row across all of them.
type Collection struct {
	Folder    string
	Paths     []string
	ByFeature map[string]*Flat
}

// Build assembles a collection from extracted bundles. Only images
// whose bundles carry every feature type are admitted, which keeps the
// per-feature indexes aligned on identical rows.
func Build(folder string, bundles map[string]feature.Bundle) (*Collection, error) {
	paths := make([]string, 0, len(bundles))
	for path, b := range bundles {
		if b.Complete() {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no complete feature bundles for %s", folder)
	}

	byFeature := make(map[string]*Flat, len(feature.Types()))
	for _, ft := range feature.Types() {
		dim := len(bundles[paths[0]][ft])
		idx := NewFlat(dim)
		for _, path := range paths {
			if err := idx.Add(bundles[path][ft]); err != nil {
				return nil, fmt.Errorf("%s %s: %w", ft, path, err)
			}
		}
		byFeature[ft] = idx
	}

	return &Collection{Folder: folder, Paths: paths, ByFeature: byFeature}, nil
}

// Len returns the number of indexed images
func (c *Collection) Len() int { return len(c.Paths) }

package index

import (
	"math"
	"testing"

	"github.com/yildizm/LogoMatch/internal/feature"
)

func TestFlatAddAndSearch(t *testing.T) {
	f := NewFlat(3)
	vecs := [][]float32{
		feature.Normalize([]float32{1, 0, 0}),
		feature.Normalize([]float32{0, 1, 0}),
		feature.Normalize([]float32{1, 1, 0}),
	}
	for _, v := range vecs {
		if err := f.Add(v); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if f.Len() != 3 {
		t.Fatalf("Len = %d, want 3", f.Len())
	}

	results, err := f.Search(vecs[0], 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Row != 0 {
		t.Errorf("best row = %d, want 0 (self)", results[0].Row)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("self score = %v, want 1", results[0].Score)
	}
	if results[1].Row != 2 {
		t.Errorf("second row = %d, want 2", results[1].Row)
	}
}

func TestFlatDimMismatch(t *testing.T) {
	f := NewFlat(4)
	if err := f.Add([]float32{1, 2}); err == nil {
		t.Error("Add accepted wrong dims")
	}
	if _, err := f.Search([]float32{1, 2}, 1); err == nil {
		t.Error("Search accepted wrong dims")
	}
}

func TestFlatEmptyAndKClamp(t *testing.T) {
	f := NewFlat(2)
	results, err := f.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search on empty: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty index returned %d results", len(results))
	}

	f.Add([]float32{1, 0})
	results, _ = f.Search([]float32{1, 0}, 10)
	if len(results) != 1 {
		t.Errorf("k beyond size returned %d results, want 1", len(results))
	}
}

func TestFromVectors(t *testing.T) {
	vecs := [][]float32{{1, 0}, {0, 1}}
	f, err := FromVectors(2, vecs)
	if err != nil {
		t.Fatalf("FromVectors: %v", err)
	}
	if f.Len() != 2 {
		t.Errorf("Len = %d, want 2", f.Len())
	}

	if _, err := FromVectors(2, [][]float32{{1, 0, 0}}); err == nil {
		t.Error("FromVectors accepted wrong dims")
	}
}

// completeBundle builds a distinct unit vector per feature type,
// rotated by variant so different images do not collide
func completeBundle(variant int) feature.Bundle {
	b := feature.Bundle{}
	for i, ft := range feature.Types() {
		v := make([]float32, 4)
		v[(i+variant)%4] = 1
		v[variant%4] += 0.5
		b[ft] = feature.Normalize(v)
	}
	return b
}

func TestBuildCollection(t *testing.T) {
	bundles := map[string]feature.Bundle{
		"/logos/b.png": completeBundle(1),
		"/logos/a.png": completeBundle(2),
		"/logos/c.png": {feature.TypeLocal: []float32{1}}, // incomplete, excluded
	}

	c, err := Build("/logos", bundles)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	// paths sorted for deterministic row alignment
	if c.Paths[0] != "/logos/a.png" || c.Paths[1] != "/logos/b.png" {
		t.Errorf("paths not sorted: %v", c.Paths)
	}
	for _, ft := range feature.Types() {
		idx, ok := c.ByFeature[ft]
		if !ok {
			t.Fatalf("missing index for %s", ft)
		}
		if idx.Len() != 2 {
			t.Errorf("%s index has %d rows, want 2", ft, idx.Len())
		}
	}
}

func TestBuildRowAlignment(t *testing.T) {
	bundles := map[string]feature.Bundle{
		"/x/a.png": completeBundle(1),
		"/x/b.png": completeBundle(3),
	}
	c, err := Build("/x", bundles)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// searching with a.png's own vector must return row 0 in every index
	for _, ft := range feature.Types() {
		results, err := c.ByFeature[ft].Search(bundles["/x/a.png"][ft], 1)
		if err != nil {
			t.Fatalf("%s: %v", ft, err)
		}
		if c.Paths[results[0].Row] != "/x/a.png" {
			t.Errorf("%s: row %d maps to %s, want /x/a.png", ft, results[0].Row, c.Paths[results[0].Row])
		}
	}
}

func TestBuildRejectsEmpty(t *testing.T) {
	if _, err := Build("/empty", nil); err == nil {
		t.Error("expected error for no bundles")
	}
	incomplete := map[string]feature.Bundle{
		"/x/a.png": {feature.TypeLocal: []float32{1}},
	}
	if _, err := Build("/x", incomplete); err == nil {
		t.Error("expected error when no bundle is complete")
	}
}

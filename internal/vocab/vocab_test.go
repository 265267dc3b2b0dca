package vocab

import (
	"math"
	"math/rand"
	"testing"
)

func unitNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// clusteredDescs generates points around well-separated centers
func clusteredDescs(n, dim, centers int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	descs := make([][]float32, n)
	for i := range descs {
		center := i % centers
		d := make([]float32, dim)
		for j := range d {
			d[j] = float32(center*10) + float32(rng.NormFloat64())
		}
		descs[i] = d
	}
	return descs
}

func TestEffectiveClusters(t *testing.T) {
	cases := []struct {
		requested, pool, want int
	}{
		{256, 1000, 256},  // plenty of data
		{256, 512, 256},   // exactly 2K
		{256, 511, 255},   // shrink to pool/2
		{256, 100, 50},    // shrink
		{256, 40, 20},     // shrink
		{256, 33, 16},     // floor at minClusters
		{8, 100, 8},       // small request unaffected
		{8, 15, 8},        // floor never raises above the request
	}
	for _, tc := range cases {
		if got := EffectiveClusters(tc.requested, tc.pool); got != tc.want {
			t.Errorf("EffectiveClusters(%d, %d) = %d, want %d", tc.requested, tc.pool, got, tc.want)
		}
	}
}

func TestFitRejectsSmallPool(t *testing.T) {
	descs := clusteredDescs(MinDescriptors-1, 8, 2, 1)
	if _, err := Fit(descs, 16, nil); err == nil {
		t.Error("expected error for pool below minimum")
	}
}

func TestFitRejectsMixedDims(t *testing.T) {
	descs := clusteredDescs(64, 8, 2, 1)
	descs[10] = make([]float32, 4)
	if _, err := Fit(descs, 16, nil); err == nil {
		t.Error("expected error for mixed dimensions")
	}
}

func TestFitDeterministic(t *testing.T) {
	descs := clusteredDescs(500, 16, 4, 7)
	v1, err := Fit(descs, 32, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	v2, err := Fit(descs, 32, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if v1.K() != v2.K() {
		t.Fatalf("k differs: %d vs %d", v1.K(), v2.K())
	}
	for i := range v1.Centroids() {
		for j := range v1.Centroids()[i] {
			if v1.Centroids()[i][j] != v2.Centroids()[i][j] {
				t.Fatalf("centroid %d differs between fits", i)
			}
		}
	}
}

func TestEncodeHistogram(t *testing.T) {
	descs := clusteredDescs(400, 8, 4, 3)
	v, err := Fit(descs, 16, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	enc := v.Encode(descs[:50])
	if len(enc) != v.K() {
		t.Fatalf("encoded len = %d, want %d", len(enc), v.K())
	}
	if math.Abs(unitNorm(enc)-1) > 1e-6 {
		t.Errorf("norm = %v, want 1", unitNorm(enc))
	}

	// empty set still yields a valid unit vector
	empty := v.Encode(nil)
	if math.Abs(unitNorm(empty)-1) > 1e-6 {
		t.Errorf("empty-set norm = %v, want 1", unitNorm(empty))
	}
}

func TestEncodeSeparatesClusters(t *testing.T) {
	descs := clusteredDescs(400, 8, 2, 5)
	v, err := Fit(descs, 16, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// split the pool by generating cluster, encodings should differ
	var a, b [][]float32
	for i, d := range descs {
		if i%2 == 0 {
			a = append(a, d)
		} else {
			b = append(b, d)
		}
	}
	encA := v.Encode(a[:40])
	encB := v.Encode(b[:40])

	// same underlying distribution halves should be similar to each other
	var dot float64
	for i := range encA {
		dot += float64(encA[i]) * float64(encB[i])
	}
	if dot < 0.9 {
		t.Errorf("same-distribution encodings diverge: dot = %v", dot)
	}
}

func TestFromCentroids(t *testing.T) {
	descs := clusteredDescs(200, 8, 2, 9)
	v, err := Fit(descs, 16, nil)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	restored, err := FromCentroids(v.Centroids())
	if err != nil {
		t.Fatalf("FromCentroids: %v", err)
	}
	e1 := v.Encode(descs[:30])
	e2 := restored.Encode(descs[:30])
	for i := range e1 {
		if e1[i] != e2[i] {
			t.Fatalf("restored vocabulary encodes differently at bin %d", i)
		}
	}

	if _, err := FromCentroids(nil); err == nil {
		t.Error("expected error for empty centroids")
	}
}

func TestMeanEncoder(t *testing.T) {
	m := NewMeanEncoder(8)
	if m.Dim() != 8 {
		t.Fatalf("Dim = %d, want 8", m.Dim())
	}
	descs := [][]float32{
		{1, 0, 0, 0, 0, 0, 0, 0},
		{0, 1, 0, 0, 0, 0, 0, 0},
	}
	enc := m.Encode(descs)
	if len(enc) != 8 {
		t.Fatalf("len = %d, want 8", len(enc))
	}
	if math.Abs(unitNorm(enc)-1) > 1e-6 {
		t.Errorf("norm = %v, want 1", unitNorm(enc))
	}
	if math.Abs(float64(enc[0])-float64(enc[1])) > 1e-6 {
		t.Errorf("symmetric input encoded asymmetrically: %v vs %v", enc[0], enc[1])
	}

	empty := m.Encode(nil)
	if math.Abs(unitNorm(empty)-1) > 1e-6 {
		t.Errorf("empty-set norm = %v, want 1", unitNorm(empty))
	}
}
